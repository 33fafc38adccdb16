package models

// FeedEntry is one item of a syndication feed, before any fetching or
// dedup has happened.
type FeedEntry struct {
	Title     string
	Link      string
	Published string
}
