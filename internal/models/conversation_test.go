package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationAppend(t *testing.T) {
	c := NewConversation()
	assert.Equal(t, 0, c.Len())

	c.Append(RoleUser, "hello")
	c.Append(RoleAssistant, "hi there")

	turns := c.Turns()
	assert.Len(t, turns, 2)
	assert.Equal(t, Turn{Role: RoleUser, Content: "hello"}, turns[0])
	assert.Equal(t, Turn{Role: RoleAssistant, Content: "hi there"}, turns[1])
}
