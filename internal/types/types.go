package types

import (
	"context"

	"github.com/feedchat/feedchat/internal/models"
)

// Core interfaces

// Extractor fetches a page and returns its cleaned main text.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Embedder converts texts into fixed-dimension vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the narrow read/write contract over the vector database.
type VectorStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	Upsert(ctx context.Context, records []models.Record) error
	Search(ctx context.Context, embedding []float32, topK int) ([]models.Passage, error)
	Close()
}

// Completer is the answer-synthesis capability.
type Completer interface {
	Condense(ctx context.Context, history []models.Turn, question string) (string, error)
	Answer(ctx context.Context, question string, passages []models.Passage) (string, error)
}

// FeedSource lists the entries currently published by a feed.
type FeedSource interface {
	Poll(ctx context.Context) ([]models.FeedEntry, error)
}
