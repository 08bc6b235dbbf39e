package models

import (
	"slices"
	"time"
)

// Sort orders accepted by DealFilter.
const (
	SortNewest   = "newest"
	SortVotes    = "votes"
	SortDiscount = "discount"
	SortPrice    = "price"
)

// DealFilter describes a listing query over non-expired deals.
type DealFilter struct {
	Page        int
	Limit       int
	PostType    PostType
	Brand       string
	Store       string
	Sort        string
	Search      string
	MinDiscount *float64
	MinPrice    *float64
	MaxPrice    *float64
}

// Offset returns the number of records to skip for the requested page.
func (f DealFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// DealPatch carries the moderation fields an admin may change. Nil means
// leave unchanged.
type DealPatch struct {
	IsExpired  *bool      `json:"isExpired"`
	IsFeatured *bool      `json:"isFeatured"`
	IsVerified *bool      `json:"isVerified"`
	PostType   *PostType  `json:"postType"`
	ExpiresAt  *time.Time `json:"expiresAt"`
}

// Empty reports whether the patch changes nothing.
func (p DealPatch) Empty() bool {
	return p.IsExpired == nil && p.IsFeatured == nil && p.IsVerified == nil &&
		p.PostType == nil && p.ExpiresAt == nil
}

// Count is a label with a record count, used for facet listings.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// StaleFilter selects records for retention deletion: older than Cutoff and
// not of an exempt type, or with an empty title regardless of age.
type StaleFilter struct {
	Cutoff time.Time
	Exempt []PostType
}

// Matches reports whether d would be deleted by this filter.
func (f StaleFilter) Matches(d Deal) bool {
	if d.Title == "" {
		return true
	}
	return d.CreatedAt.Before(f.Cutoff) && !slices.Contains(f.Exempt, d.PostType)
}
