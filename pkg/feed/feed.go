package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/feedchat/feedchat/internal/models"
)

type PollerConfig struct {
	URL     string
	Timeout time.Duration
}

// Poller reads a syndication feed and returns its entries. It keeps no
// state between polls; dedup against already-ingested articles is the
// ingestion pipeline's job.
type Poller struct {
	config PollerConfig
	parser *gofeed.Parser
}

func NewWithConfig(config PollerConfig) (*Poller, error) {
	if config.URL == "" {
		return nil, fmt.Errorf("feed URL is required")
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Poller{
		config: config,
		parser: gofeed.NewParser(),
	}, nil
}

// Poll fetches and parses the feed. An empty feed is not an error: the
// caller receives an empty slice and decides how to report it.
func (p *Poller) Poll(ctx context.Context) ([]models.FeedEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	parsed, err := p.parser.ParseURLWithContext(p.config.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", p.config.URL, err)
	}

	entries := make([]models.FeedEntry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.Link == "" {
			continue
		}
		entries = append(entries, models.FeedEntry{
			Title:     item.Title,
			Link:      item.Link,
			Published: item.Published,
		})
	}

	return entries, nil
}
