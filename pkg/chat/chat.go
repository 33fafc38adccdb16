package chat

import (
	"context"
	"fmt"

	"github.com/feedchat/feedchat/internal/models"
	"github.com/feedchat/feedchat/internal/types"
)

type EngineConfig struct {
	Embedder  types.Embedder
	Store     types.VectorStore
	Completer types.Completer

	// TopK passages are retrieved per question; passages scoring below
	// SimilarityCutoff are discarded before synthesis and citation.
	TopK             int
	SimilarityCutoff float32

	// AnswerWithoutContext controls what happens when every retrieved
	// passage falls below the cutoff: answer from general capability, or
	// reply with NoContextReply without calling the model.
	AnswerWithoutContext bool
	NoContextReply       string
}

// Answer is the result of one question: the synthesized text plus its
// deduplicated sources, ordered by relevance rank.
type Answer struct {
	Text      string
	Citations []models.Citation
}

// Engine is the retrieval-augmented query pipeline. The embedder, store
// and completer are long-lived and shared; conversation state is passed
// in per call and owned by the session.
type Engine struct {
	config EngineConfig
}

func NewWithConfig(config EngineConfig) (*Engine, error) {
	if config.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if config.Completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if config.TopK == 0 {
		config.TopK = 5
	}
	if config.SimilarityCutoff == 0 {
		config.SimilarityCutoff = 0.80
	}
	if config.NoContextReply == "" {
		config.NoContextReply = "I could not find any relevant articles for that question."
	}

	return &Engine{config: config}, nil
}

// Ask answers one question within a session. On success both the user
// turn and the assistant turn are appended to the conversation; on
// failure the history is left untouched so the question can be retried
// against identical context.
func (e *Engine) Ask(ctx context.Context, session *models.Conversation, question string) (Answer, error) {
	condensed, err := e.config.Completer.Condense(ctx, session.Turns(), question)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to condense question: %w", err)
	}

	embedding, err := e.config.Embedder.EmbedQuery(ctx, condensed)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to embed query: %w", err)
	}

	passages, err := e.config.Store.Search(ctx, embedding, e.config.TopK)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to search: %w", err)
	}

	relevant := e.filterByScore(passages)

	var text string
	if len(relevant) == 0 && !e.config.AnswerWithoutContext {
		text = e.config.NoContextReply
	} else {
		text, err = e.config.Completer.Answer(ctx, condensed, relevant)
		if err != nil {
			return Answer{}, fmt.Errorf("failed to synthesize answer: %w", err)
		}
	}

	session.Append(models.RoleUser, question)
	session.Append(models.RoleAssistant, text)

	return Answer{
		Text:      text,
		Citations: models.Citations(relevant),
	}, nil
}

// filterByScore drops passages below the similarity cutoff, preserving
// the store's ranking order for the survivors.
func (e *Engine) filterByScore(passages []models.Passage) []models.Passage {
	var relevant []models.Passage
	for _, p := range passages {
		if p.Score >= e.config.SimilarityCutoff {
			relevant = append(relevant, p)
		}
	}
	return relevant
}
