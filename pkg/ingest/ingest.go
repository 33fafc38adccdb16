package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/feedchat/feedchat/internal/models"
	"github.com/feedchat/feedchat/internal/types"
	"github.com/feedchat/feedchat/pkg/extract"
	"github.com/feedchat/feedchat/pkg/store"
)

// EmbedderFactory defers the expensive embedding-model load. The
// pipeline calls it at most once per run, and only after at least one
// genuinely new article has been extracted.
type EmbedderFactory func() (types.Embedder, error)

type PipelineConfig struct {
	Feed            types.FeedSource
	Extractor       types.Extractor
	Store           types.VectorStore
	EmbedderFactory EmbedderFactory
	OnProgress      func(entry models.FeedEntry) // optional, per feed entry
}

// Report summarizes one ingestion run. A run with zero new documents is
// a success, not an error.
type Report struct {
	Skipped int // already in the store
	Added   int // embedded and upserted
	Failed  int // content extraction failed
	Errors  []error
}

func (r Report) String() string {
	return fmt.Sprintf("skipped: %d, added: %d, failed: %d",
		r.Skipped, r.Added, r.Failed)
}

// Pipeline ingests feed entries into the vector store exactly once per
// distinct URL. Entries are processed sequentially: the check-then-write
// per id is not safe to run concurrently against the same id.
type Pipeline struct {
	config PipelineConfig
}

func NewWithConfig(config PipelineConfig) (*Pipeline, error) {
	if config.Feed == nil {
		return nil, fmt.Errorf("feed source is required")
	}
	if config.Extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("vector store is required")
	}
	if config.EmbedderFactory == nil {
		return nil, fmt.Errorf("embedder factory is required")
	}
	return &Pipeline{config: config}, nil
}

// Run polls the feed once and ingests every entry not yet in the store.
// Per-entry failures are counted and logged, never fatal: partial
// success is the normal case for a feed run.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	var report Report

	entries, err := p.config.Feed.Poll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to poll feed: %w", err)
	}
	if len(entries) == 0 {
		return report, nil
	}

	var newDocs []models.Document

	for _, entry := range entries {
		if p.config.OnProgress != nil {
			p.config.OnProgress(entry)
		}

		id := models.DocumentID(entry.Link)

		exists, err := p.config.Store.Exists(ctx, id)
		if err != nil {
			// Transient store trouble for one id skips the entry, not the run.
			report.Errors = append(report.Errors, err)
			log.Printf("skipping %s: %v", entry.Link, err)
			continue
		}
		if exists {
			report.Skipped++
			continue
		}

		text, err := p.config.Extractor.Extract(ctx, entry.Link)
		if err != nil {
			if errors.Is(err, extract.ErrExtractionFailed) {
				report.Failed++
				log.Printf("extraction failed for %s: %v", entry.Link, err)
				continue
			}
			return report, err
		}

		newDocs = append(newDocs, models.Document{
			ID:        id,
			Title:     entry.Title,
			URL:       entry.Link,
			Published: entry.Published,
			Text:      text,
		})
	}

	if len(newDocs) == 0 {
		return report, nil
	}

	// Only now is the model load cost paid.
	embedder, err := p.config.EmbedderFactory()
	if err != nil {
		return report, fmt.Errorf("failed to load embedding model: %w", err)
	}

	texts := make([]string, len(newDocs))
	for i, doc := range newDocs {
		texts[i] = doc.Text
	}

	embeddings, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return report, fmt.Errorf("failed to embed documents: %w", err)
	}

	records := make([]models.Record, len(newDocs))
	for i, doc := range newDocs {
		records[i] = models.Record{Document: doc, Embedding: embeddings[i]}
	}

	if err := p.config.Store.Upsert(ctx, records); err != nil {
		var partial *store.PartialUpsertError
		if errors.As(err, &partial) {
			report.Added = len(records) - len(partial.FailedIDs)
			report.Errors = append(report.Errors, err)
			return report, nil
		}
		return report, fmt.Errorf("failed to upsert documents: %w", err)
	}

	report.Added = len(records)
	return report, nil
}
