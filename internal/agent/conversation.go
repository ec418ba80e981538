package agent

import (
	"github.com/cwillems/vantage/internal/provider"
)

// maxToolResultLen bounds how much of a tool's output is fed back into
// the model's context.
const maxToolResultLen = 30000

// Conversation is the transient turn sequence for one Handle call. It
// is owned exclusively by that call and discarded when it returns; the
// ledger is the only durable memory.
type Conversation struct {
	messages []provider.Message
}

func NewConversation() *Conversation {
	return &Conversation{}
}

func (c *Conversation) AddSystem(content string) {
	c.messages = append(c.messages, provider.Message{Role: provider.RoleSystem, Content: content})
}

func (c *Conversation) AddUser(content string) {
	c.messages = append(c.messages, provider.Message{Role: provider.RoleUser, Content: content})
}

func (c *Conversation) AddAssistant(content string, toolCalls []provider.ToolCall) {
	c.messages = append(c.messages, provider.Message{
		Role: provider.RoleAssistant, Content: content, ToolCalls: toolCalls,
	})
}

func (c *Conversation) AddToolResult(toolCallID, content string) {
	if len(content) > maxToolResultLen {
		content = content[:maxToolResultLen] + "\n... [truncated]"
	}
	c.messages = append(c.messages, provider.Message{
		Role: provider.RoleTool, Content: content, ToolCallID: toolCallID,
	})
}

func (c *Conversation) Messages() []provider.Message {
	return c.messages
}

func (c *Conversation) Len() int {
	return len(c.messages)
}
