package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithConfig(t *testing.T) {
	engine, err := NewWithConfig(ChatConfig{
		Model:       "mistral",
		Temperature: 0.5,
		MaxTokens:   1000,
		BaseURL:     "http://localhost:11434",
	})
	require.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestNewWithConfigRejectsBadValues(t *testing.T) {
	_, err := NewWithConfig(ChatConfig{Temperature: 1.5})
	assert.Error(t, err)

	_, err = NewWithConfig(ChatConfig{MaxTokens: -1})
	assert.Error(t, err)
}

func TestCondenseWithoutHistory(t *testing.T) {
	// The first question of a session already stands alone; no model
	// call is made and the question passes through unchanged.
	engine, err := NewWithConfig(ChatConfig{Temperature: 0.5})
	require.NoError(t, err)

	condensed, err := engine.Condense(context.Background(), nil, "what shops are near the station?")
	require.NoError(t, err)
	assert.Equal(t, "what shops are near the station?", condensed)
}
