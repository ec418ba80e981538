package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cwillems/vantage/internal/knowledge"
)

// NoKnowledgeFound is returned by knowledge_search when nothing in the
// store matches. An empty store is a normal condition, not an error.
const NoKnowledgeFound = "No relevant information found in knowledge base."

const knowledgeSearchTopK = 3

// KnowledgeSearchTool searches the assessment knowledge base for
// techniques, vulnerabilities, and best practices.
type KnowledgeSearchTool struct {
	Store knowledge.Store
}

type knowledgeSearchArgs struct {
	Query string `json:"query"`
}

func (k *KnowledgeSearchTool) Name() string { return "knowledge_search" }

func (k *KnowledgeSearchTool) Description() string {
	return "Search the penetration testing knowledge base for techniques, vulnerabilities, and best practices."
}

func (k *KnowledgeSearchTool) Parameters() any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "What to look up in the knowledge base"},
		},
		"required": []string{"query"},
	}
}

func (k *KnowledgeSearchTool) Execute(ctx context.Context, rawArgs string) (Result, error) {
	var args knowledgeSearchArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return Result{Error: "invalid arguments: " + err.Error()}, nil
	}

	snippets, err := k.Store.Query(ctx, args.Query, knowledgeSearchTopK)
	if err != nil {
		return Result{Error: "error searching knowledge base: " + err.Error()}, nil
	}
	if len(snippets) == 0 {
		return Result{Output: NoKnowledgeFound}, nil
	}

	texts := make([]string, len(snippets))
	for i, s := range snippets {
		texts[i] = s.Text
	}
	return Result{Output: "Knowledge Base Results:\n" + strings.Join(texts, "\n\n")}, nil
}
