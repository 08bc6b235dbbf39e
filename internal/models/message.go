package models

import "time"

// RawMessage is an unprocessed post fetched from an external feed.
type RawMessage struct {
	// ID is the feed-native identifier used for in-process dedupe.
	ID            string
	RawText       string
	SourceChannel string
	Source        Source
	// Image is a direct image URL supplied by the feed itself, if any.
	Image     string
	PostURL   string
	PostScore int
	PostTime  time.Time
}

// DealCandidate is a normalised extraction result, not yet persisted. It is
// also the element shape accepted by the bulk ingest endpoint.
type DealCandidate struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Brand         string   `json:"brand"`
	Store         string   `json:"store"`
	Price         *float64 `json:"price"`
	OriginalPrice *float64 `json:"originalPrice"`
	Discount      *float64 `json:"discount"`
	Link          string   `json:"link"`
	Image         string   `json:"image"`
	KeyFeatures   []string `json:"keyFeatures"`
	PostType      PostType `json:"postType"`
	Source        Source   `json:"source"`
	SourceChannel string   `json:"sourceChannel"`
	RawText       string   `json:"rawText"`

	PostURL   string    `json:"postUrl,omitempty"`
	PostScore int       `json:"postScore,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}
