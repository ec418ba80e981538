package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cwillems/vantage/internal/ledger"
)

// EngagementContextTool renders the recorded history of a named
// engagement so the model can pick up where a previous session left
// off.
type EngagementContextTool struct {
	Ledger ledger.Ledger
}

type engagementContextArgs struct {
	EngagementName string `json:"engagement_name"`
}

func (e *EngagementContextTool) Name() string { return "get_engagement_context" }

func (e *EngagementContextTool) Description() string {
	return "Retrieve historical context and data for a specific penetration testing engagement."
}

func (e *EngagementContextTool) Parameters() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"engagement_name": map[string]any{"type": "string", "description": "Name of the engagement to look up"},
		},
		"required": []string{"engagement_name"},
	}
}

func (e *EngagementContextTool) Execute(ctx context.Context, rawArgs string) (Result, error) {
	var args engagementContextArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return Result{Error: "invalid arguments: " + err.Error()}, nil
	}

	interactions, err := e.Ledger.Read(ctx, args.EngagementName)
	if err != nil {
		return Result{Error: "error retrieving engagement data: " + err.Error()}, nil
	}
	if len(interactions) == 0 {
		return Result{Output: fmt.Sprintf("No existing data for engagement: %s", args.EngagementName)}, nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Engagement Context for %s (%d interactions):\n", args.EngagementName, len(interactions))
	for i, it := range interactions {
		fmt.Fprintf(&sb, "\n[%d] %s\nCommand: %s\nResponse: %s\n", i+1, it.Timestamp, it.Command, it.Response)
	}
	return Result{Output: sb.String()}, nil
}
