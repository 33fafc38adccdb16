package models

import (
	"crypto/md5"
	"encoding/hex"
)

// Document is a single feed article after content extraction. A document
// is never mutated once created; its ID is derived solely from the URL.
type Document struct {
	ID        string
	Title     string
	URL       string
	Published string
	Text      string
}

// Record is the persisted form of a Document plus its embedding.
type Record struct {
	Document
	Embedding []float32
}

// Passage is a search hit: a stored record with its similarity score in [0,1].
type Passage struct {
	Document Document
	Score    float32
}

// Citation is a user-visible source reference.
type Citation struct {
	Title string
	URL   string
}

// UntitledDocument is used when a feed entry carried no title.
const UntitledDocument = "Untitled document"

// DocumentID derives the stable identifier for a URL. Two documents with
// the same URL always produce the same ID, which makes re-ingestion
// idempotent: the URL, not the content, is the dedup key.
func DocumentID(url string) string {
	sum := md5.Sum([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Citations builds the source list for a set of ranked passages,
// deduplicated by URL with the first-ranked occurrence winning. Passages
// without a stable reference (empty URL or the "#" placeholder) are
// excluded entirely.
func Citations(passages []Passage) []Citation {
	var citations []Citation
	seen := make(map[string]bool)

	for _, p := range passages {
		url := p.Document.URL
		if url == "" || url == "#" {
			continue
		}
		if seen[url] {
			continue
		}
		seen[url] = true

		title := p.Document.Title
		if title == "" {
			title = UntitledDocument
		}
		citations = append(citations, Citation{Title: title, URL: url})
	}

	return citations
}
