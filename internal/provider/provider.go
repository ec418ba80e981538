package provider

import "context"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

type ToolCall struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Args string `json:"arguments"`
}

type ToolDef struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

// Completion is the model's decision for one round: a final answer
// (Content, no ToolCalls) or one or more tool invocation requests the
// caller is expected to execute before asking again.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// Final reports whether the model produced an answer rather than
// requesting tool execution.
func (c *Completion) Final() bool {
	return len(c.ToolCalls) == 0
}

type Provider interface {
	Complete(ctx context.Context, msgs []Message, tools []ToolDef) (*Completion, error)
	Name() string
	ModelName() string
	Models(ctx context.Context) ([]string, error)
}
