package extract

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// ErrExtractionFailed covers every way a page can fail to yield text:
// network errors, non-200 responses, unparseable or empty bodies. The
// ingestion pipeline treats them all the same, so the extractor does not
// distinguish them either. Retry policy belongs to the caller.
var ErrExtractionFailed = errors.New("extraction failed")

type ExtractorConfig struct {
	RateLimit float64 // requests per second
	Timeout   time.Duration
	UserAgent string
}

type Extractor struct {
	config  ExtractorConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewWithConfig(config ExtractorConfig) *Extractor {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}

	return &Extractor{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

func New() *Extractor {
	return NewWithConfig(ExtractorConfig{})
}

// Extract fetches the page at url and returns its cleaned main text.
// Any failure comes back wrapped in ErrExtractionFailed.
func (e *Extractor) Extract(ctx context.Context, url string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Join(ErrExtractionFailed, err)
	}
	if e.config.UserAgent != "" {
		req.Header.Set("User-Agent", e.config.UserAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", errors.Join(ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Join(ErrExtractionFailed,
			errors.New("received status code "+resp.Status))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", errors.Join(ErrExtractionFailed, err)
	}

	content := e.extractMainContent(doc)
	if content == "" {
		return "", ErrExtractionFailed
	}

	return content, nil
}

func (e *Extractor) extractMainContent(doc *goquery.Document) string {
	// Drop elements that never carry article text
	doc.Find("script, style, nav, header, footer, aside").Remove()

	// Try to find main content area
	selectors := []string{
		"main",
		"article",
		".content",
		"#content",
		".post-body",
		"#post-body",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	// Fallback to body if no main content found
	if content == "" {
		content = doc.Find("body").Text()
	}

	return e.cleanContent(content)
}

func (e *Extractor) cleanContent(content string) string {
	// Remove extra whitespace
	content = strings.Join(strings.Fields(content), " ")

	// Remove common noise
	noisePatterns := []string{
		"Cookie Policy",
		"Accept Cookies",
		"Privacy Policy",
		"Terms of Service",
	}

	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}

	return strings.TrimSpace(content)
}
