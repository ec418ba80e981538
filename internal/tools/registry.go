package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/cwillems/vantage/internal/knowledge"
	"github.com/cwillems/vantage/internal/ledger"
	"github.com/cwillems/vantage/internal/provider"
	"github.com/cwillems/vantage/internal/schema"
)

// ErrNameCollision is returned when a tool name is registered twice.
// The registry keeps the first registration.
var ErrNameCollision = errors.New("tool name already registered")

// Registry maps tool names to implementations. Iteration order is
// registration order, which is also the order of the catalog shown to
// the model.
type Registry struct {
	tools     map[string]Tool
	order     []string
	validator *schema.Validator
}

func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]Tool),
		validator: schema.NewValidator(),
	}
}

// Register adds a tool. Registering a name twice fails with
// ErrNameCollision; an existing tool is never silently replaced.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", ErrNameCollision, name)
	}
	r.tools[name] = t
	r.order = append(r.order, name)
	return nil
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns all tools in registration order.
func (r *Registry) List() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Defs builds the tool catalog passed to the response model.
func (r *Registry) Defs() []provider.ToolDef {
	defs := make([]provider.ToolDef, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		defs = append(defs, provider.ToolDef{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}

// Execute validates args and dispatches to the named tool. Unknown
// tools and invalid arguments come back as Result.Error so the model
// can correct itself; a Go error means the tool itself failed in a way
// it could not express.
func (r *Registry) Execute(ctx context.Context, name, args string) (Result, error) {
	t, ok := r.tools[name]
	if !ok {
		return Result{Error: fmt.Sprintf("unknown tool: %s", name)}, nil
	}
	if args == "" {
		args = "{}"
	}
	if err := r.validator.Validate(t.Parameters(), args); err != nil {
		return Result{Error: fmt.Sprintf("invalid arguments for %s: %v", name, err)}, nil
	}
	return t.Execute(ctx, args)
}

// RegisterBuiltins registers the built-in tool set. Tools whose backing
// store is absent are skipped, mirroring how the orchestrator degrades
// when a collaborator is unavailable.
func RegisterBuiltins(r *Registry, store knowledge.Store, led ledger.Ledger) error {
	if store != nil {
		if err := r.Register(&KnowledgeSearchTool{Store: store}); err != nil {
			return err
		}
	}
	if err := r.Register(&VulnerabilityScanTool{}); err != nil {
		return err
	}
	if led != nil {
		if err := r.Register(&EngagementContextTool{Ledger: led}); err != nil {
			return err
		}
	}
	return nil
}
