package models

import (
	"errors"
	"slices"
	"strings"
	"time"
)

// ErrDealExists is returned when attempting to create a deal that already exists.
var ErrDealExists = errors.New("deal already exists")

// ErrNotFound is returned when a deal or user document does not exist.
var ErrNotFound = errors.New("not found")

const (
	DefaultStore    = "Unknown"
	DefaultCategory = "Protein"

	// MaxTitleLength bounds persisted titles; extracted titles are clipped
	// tighter, to MaxCandidateTitle.
	MaxTitleLength    = 300
	MaxCandidateTitle = 180
	MaxKeyFeatures    = 3
)

// Deal is the persisted record of a single product offer.
type Deal struct {
	ID            string     `firestore:"-" json:"id"`
	Title         string     `firestore:"title" json:"title" validate:"required,max=300"`
	Description   string     `firestore:"description" json:"description"`
	Brand         string     `firestore:"brand" json:"brand"`
	Store         string     `firestore:"store" json:"store" validate:"required"`
	Category      string     `firestore:"category" json:"category"`
	Price         *float64   `firestore:"price" json:"price" validate:"omitempty,gte=0"`
	OriginalPrice *float64   `firestore:"originalPrice" json:"originalPrice" validate:"omitempty,gte=0"`
	Discount      *float64   `firestore:"discount" json:"discount" validate:"omitempty,gte=0,lte=100"`
	Link          string     `firestore:"link" json:"link"`
	Image         string     `firestore:"image" json:"image"`
	KeyFeatures   []string   `firestore:"keyFeatures" json:"keyFeatures" validate:"max=3"`
	PostType      PostType   `firestore:"postType" json:"postType" validate:"required,oneof=Deal Restock PriceDrop Review Freebie Update Other"`
	Source        Source     `firestore:"source" json:"source" validate:"required,oneof=telegram reddit manual"`
	SourceChannel string     `firestore:"sourceChannel" json:"sourceChannel"`
	RawText       string     `firestore:"rawText" json:"rawText"`
	PostURL       string     `firestore:"postUrl" json:"postUrl"`
	SourceScore   int        `firestore:"sourceScore" json:"-" validate:"gte=0"`
	Votes         int        `firestore:"votes" json:"votes" validate:"gte=0"`
	VotedBy       []string   `firestore:"votedBy" json:"-"`
	IsExpired     bool       `firestore:"isExpired" json:"isExpired"`
	IsFeatured    bool       `firestore:"isFeatured" json:"isFeatured"`
	IsVerified    bool       `firestore:"isVerified" json:"isVerified"`
	ExpiresAt     *time.Time `firestore:"expiresAt" json:"expiresAt"`
	SubmittedBy   string     `firestore:"submittedBy" json:"submittedBy,omitempty"`
	DedupeKey     string     `firestore:"dedupeKey" json:"-"`
	CreatedAt     time.Time  `firestore:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time  `firestore:"updatedAt" json:"updatedAt"`
}

// DedupeKey is the case-insensitive identity used for duplicate detection.
func DedupeKey(title, store string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(store))
}

// ToggleVote adds userID to the voter set, or removes it if already present,
// and recomputes the counter from the set. It reports whether the user is a
// voter afterwards.
func (d *Deal) ToggleVote(userID string) bool {
	voted := true
	if i := slices.Index(d.VotedBy, userID); i >= 0 {
		d.VotedBy = slices.Delete(d.VotedBy, i, i+1)
		voted = false
	} else {
		d.VotedBy = append(d.VotedBy, userID)
	}
	d.Votes = d.SourceScore + len(d.VotedBy)
	return voted
}

// HasVoted reports whether userID is in the voter set.
func (d *Deal) HasVoted(userID string) bool {
	return slices.Contains(d.VotedBy, userID)
}
