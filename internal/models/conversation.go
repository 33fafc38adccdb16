package models

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation.
type Turn struct {
	Role    Role
	Content string
}

// Conversation is the ordered history of a single chat session. It is
// owned by exactly one session and grows by appending; it is not safe
// for concurrent use.
type Conversation struct {
	turns []Turn
}

func NewConversation() *Conversation {
	return &Conversation{}
}

func (c *Conversation) Append(role Role, content string) {
	c.turns = append(c.turns, Turn{Role: role, Content: content})
}

// Turns returns the history in order. The returned slice must not be
// mutated by the caller.
func (c *Conversation) Turns() []Turn {
	return c.turns
}

func (c *Conversation) Len() int {
	return len(c.turns)
}
