package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/schema"

	"github.com/feedchat/feedchat/internal/models"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model             string
	Temperature       float64
	MaxTokens         int
	SystemTemplate    string
	CondenseTemplate  string
	NoContextTemplate string
	BaseURL           string // Ollama server URL
}

// ChatEngine wraps an LLM for question condensation and answer synthesis.
// It is expensive to construct and meant to be built once at startup and
// shared across all sessions.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "mistral"
	}
	if config.Temperature < 0 || config.Temperature > 1 {
		return nil, fmt.Errorf("temperature must be between 0 and 1")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "You are a helpful assistant answering questions about a collection of articles. Answer based on the provided article excerpts."
	}
	if config.CondenseTemplate == "" {
		config.CondenseTemplate = "Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question.\n\n%s\nFollow up question: %s\n\nStandalone question:"
	}
	if config.NoContextTemplate == "" {
		config.NoContextTemplate = "No matching articles were found for this question. Answer from general knowledge and say that no sources are available."
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	llm, err := ollama.New(ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &ChatEngine{
		config: config,
		llm:    llm,
	}, nil
}

// Condense rewrites a follow-up question into a standalone query using
// the conversation history. With no history the question already stands
// alone and is returned as is, without an LLM call.
func (ce *ChatEngine) Condense(ctx context.Context, history []models.Turn, question string) (string, error) {
	if len(history) == 0 {
		return question, nil
	}

	var historyBuilder strings.Builder
	for _, turn := range history {
		historyBuilder.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Content))
	}

	prompt := fmt.Sprintf(ce.config.CondenseTemplate, historyBuilder.String(), question)

	condensed, err := ce.generate(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	})
	if err != nil {
		return "", fmt.Errorf("condense error: %w", err)
	}

	return strings.TrimSpace(condensed), nil
}

// Answer synthesizes a response to the question from the supplied
// passages. With no passages it still answers, using the no-context
// instruction instead of article excerpts.
func (ce *ChatEngine) Answer(ctx context.Context, question string, passages []models.Passage) (string, error) {
	var contextBuilder strings.Builder
	if len(passages) == 0 {
		contextBuilder.WriteString(ce.config.NoContextTemplate)
	} else {
		for _, p := range passages {
			contextBuilder.WriteString(fmt.Sprintf("Source: %s\n%s\n\n", p.Document.URL, p.Document.Text))
		}
	}

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman, contextBuilder.String()),
		llms.TextParts(schema.ChatMessageTypeHuman, question),
	}

	answer, err := ce.generate(ctx, content)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}

	return answer, nil
}

func (ce *ChatEngine) generate(ctx context.Context, content []llms.MessageContent) (string, error) {
	response, err := ce.llm.GenerateContent(ctx, content,
		llms.WithTemperature(ce.config.Temperature),
		llms.WithMaxTokens(ce.config.MaxTokens))
	if err != nil {
		return "", err
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0].Content == "" {
		return "", fmt.Errorf("no response from LLM")
	}
	return response.Choices[0].Content, nil
}
