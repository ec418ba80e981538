package tools

import "context"

// Result is a tool's outcome. Error carries tool-level failures back to
// the model as conversation content; it is not a Go error and never
// aborts the surrounding command.
type Result struct {
	Output string
	Error  string
}

// Tool is a named capability the response model may request. Arguments
// arrive as a JSON string matching the schema returned by Parameters.
type Tool interface {
	Name() string
	Description() string
	Parameters() any
	Execute(ctx context.Context, args string) (Result, error)
}
