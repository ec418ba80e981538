// Package agent drives the command-processing loop: ground the command
// with retrieved knowledge, let the model decide on tool use, execute
// tools through the registry, and record the exchange in the ledger.
package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cwillems/vantage/internal/knowledge"
	"github.com/cwillems/vantage/internal/ledger"
	"github.com/cwillems/vantage/internal/provider"
	"github.com/cwillems/vantage/internal/tools"
)

// ErrNoProvider surfaces at construction when the required response
// model backend is missing.
var ErrNoProvider = errors.New("agent: response model backend is required")

const (
	defaultMaxRounds = 5
	defaultTopK      = 3

	// timestampLayout is fixed-width so stamps compare correctly as
	// strings, which the ledger relies on for its ordering invariant.
	timestampLayout = "2006-01-02T15:04:05.000000000Z"
)

// Result is the structured outcome of one Handle call. Warnings lists
// stages that degraded (retrieval, persistence) without failing the
// command.
type Result struct {
	Success    bool     `json:"success"`
	Response   string   `json:"response,omitempty"`
	Err        string   `json:"error,omitempty"`
	Engagement string   `json:"engagement"`
	Timestamp  string   `json:"timestamp"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Options configures an Orchestrator. Provider is required; Knowledge
// and Ledger may be nil, in which case the corresponding stage degrades
// instead of failing.
type Options struct {
	Provider  provider.Provider
	Knowledge knowledge.Store
	Ledger    ledger.Ledger
	Registry  *tools.Registry
	MaxRounds int
	TopK      int
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Orchestrator is the command-processing core. One Handle call runs to
// completion synchronously; concurrent calls share no state beyond the
// injected stores, which provide their own consistency.
type Orchestrator struct {
	prov      provider.Provider
	store     knowledge.Store
	ledger    ledger.Ledger
	registry  *tools.Registry
	maxRounds int
	topK      int
	log       zerolog.Logger
	now       func() time.Time
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Provider == nil {
		return nil, ErrNoProvider
	}
	if opts.Registry == nil {
		opts.Registry = tools.NewRegistry()
	}
	if opts.MaxRounds <= 0 {
		opts.MaxRounds = defaultMaxRounds
	}
	if opts.TopK <= 0 {
		opts.TopK = defaultTopK
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		prov:      opts.Provider,
		store:     opts.Knowledge,
		ledger:    opts.Ledger,
		registry:  opts.Registry,
		maxRounds: opts.MaxRounds,
		topK:      opts.TopK,
		log:       opts.Logger,
		now:       opts.Now,
	}, nil
}

// Handle processes one operator command against a named engagement.
// Failures below the orchestrator are converted into degraded-but-
// successful results or a structured failure; callers never see a
// panic or an unhandled fault.
func (o *Orchestrator) Handle(ctx context.Context, command, engagementID string) Result {
	var warnings []string

	snippets, warning := o.ground(ctx, command)
	if warning != "" {
		warnings = append(warnings, warning)
	}

	conv := NewConversation()
	conv.AddSystem(systemPrompt)
	if len(snippets) > 0 {
		var sb strings.Builder
		sb.WriteString("Background knowledge retrieved for this command:\n")
		for _, s := range snippets {
			sb.WriteString("\n- " + s.Text)
		}
		conv.AddSystem(sb.String())
	}
	conv.AddUser(fmt.Sprintf("[Engagement: %s] %s", engagementID, command))

	answer, failErr := o.runLoop(ctx, conv)
	if failErr != nil {
		return Result{
			Success:    false,
			Err:        "error processing command: " + failErr.Error(),
			Engagement: engagementID,
			Timestamp:  o.timestamp(),
		}
	}

	ts := o.timestamp()
	if warning := o.persist(ctx, engagementID, command, answer, ts); warning != "" {
		warnings = append(warnings, warning)
	}

	return Result{
		Success:    true,
		Response:   answer,
		Engagement: engagementID,
		Timestamp:  ts,
		Warnings:   warnings,
	}
}

// ground fetches top-k snippets for the command. Retrieval problems
// degrade to an empty grounding set with a warning; they never fail the
// command.
func (o *Orchestrator) ground(ctx context.Context, command string) ([]knowledge.Snippet, string) {
	if o.store == nil {
		return nil, "knowledge store unavailable; answering without grounding"
	}
	snippets, err := o.store.Query(ctx, command, o.topK)
	if err != nil {
		o.log.Warn().Err(err).Msg("knowledge retrieval failed")
		return nil, "knowledge retrieval failed; answering without grounding"
	}
	return snippets, ""
}

// runLoop drives model rounds until a final answer or the round cap.
// The returned error means the model backend was unreachable before any
// answer was produced; everything else resolves to an answer.
func (o *Orchestrator) runLoop(ctx context.Context, conv *Conversation) (string, error) {
	for round := 0; round < o.maxRounds; round++ {
		completion, err := o.prov.Complete(ctx, conv.Messages(), o.registry.Defs())
		if err != nil {
			return "", err
		}

		toolCalls := completion.ToolCalls
		if len(toolCalls) == 0 {
			toolCalls = parseTextToolCalls(completion.Content)
		}
		if len(toolCalls) == 0 {
			return completion.Content, nil
		}

		conv.AddAssistant(completion.Content, toolCalls)
		for _, tc := range toolCalls {
			conv.AddToolResult(tc.ID, o.dispatch(ctx, tc))
		}
	}

	o.log.Warn().Int("rounds", o.maxRounds).Msg("round cap reached without a final answer")
	return fallbackAnswer, nil
}

// dispatch executes one tool call and renders its outcome as a tool
// turn. Unknown tools and tool failures become conversation content so
// the model can recover; they never abort the command.
func (o *Orchestrator) dispatch(ctx context.Context, tc provider.ToolCall) string {
	o.log.Debug().Str("tool", tc.Name).Msg("dispatching tool call")

	res, err := o.registry.Execute(ctx, tc.Name, tc.Args)
	if err != nil {
		o.log.Warn().Str("tool", tc.Name).Err(err).Msg("tool execution failed")
		return "tool execution error: " + err.Error()
	}
	if res.Error != "" {
		out := res.Error
		if strings.HasPrefix(out, "unknown tool:") {
			out += ". Check the available tools list and retry with a valid tool name."
		}
		if res.Output != "" {
			out = res.Output + "\nError: " + out
		}
		return out
	}
	return res.Output
}

func (o *Orchestrator) persist(ctx context.Context, engagementID, command, answer, ts string) string {
	if o.ledger == nil {
		return "ledger unavailable; interaction was not recorded"
	}
	if err := o.ledger.Append(ctx, engagementID, command, answer, ts); err != nil {
		o.log.Warn().Str("engagement", engagementID).Err(err).Msg("ledger write failed")
		return "interaction was not recorded: " + err.Error()
	}
	return ""
}

func (o *Orchestrator) timestamp() string {
	return o.now().UTC().Format(timestampLayout)
}

// textToolCallRe matches the [TOOL:name|json_args] pattern some models
// emit instead of native tool calls.
var textToolCallRe = regexp.MustCompile(`\[TOOL:(\w+)\|(.+?)\]`)

func parseTextToolCalls(content string) []provider.ToolCall {
	var calls []provider.ToolCall
	for _, match := range textToolCallRe.FindAllStringSubmatch(content, -1) {
		calls = append(calls, provider.ToolCall{
			ID:   "fallback-" + uuid.NewString(),
			Name: match[1],
			Args: match[2],
		})
	}
	return calls
}
