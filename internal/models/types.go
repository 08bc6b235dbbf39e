package models

import "strings"

// PostType classifies a post. The set is closed.
type PostType string

const (
	PostTypeDeal      PostType = "Deal"
	PostTypeRestock   PostType = "Restock"
	PostTypePriceDrop PostType = "PriceDrop"
	PostTypeReview    PostType = "Review"
	PostTypeFreebie   PostType = "Freebie"
	PostTypeUpdate    PostType = "Update"
	PostTypeOther     PostType = "Other"
)

// PostTypes lists every PostType in display order.
var PostTypes = []PostType{
	PostTypeDeal,
	PostTypeRestock,
	PostTypePriceDrop,
	PostTypeReview,
	PostTypeFreebie,
	PostTypeUpdate,
	PostTypeOther,
}

// ParsePostType maps free-form text onto the closed set. Empty input is a
// Deal; anything unrecognised is Other.
func ParsePostType(s string) PostType {
	s = strings.TrimSpace(s)
	if s == "" {
		return PostTypeDeal
	}
	key := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s))
	for _, pt := range PostTypes {
		if strings.ToLower(string(pt)) == key {
			return pt
		}
	}
	return PostTypeOther
}

// Source names where a record came from.
type Source string

const (
	SourceTelegram Source = "telegram"
	SourceReddit   Source = "reddit"
	SourceManual   Source = "manual"
)

// ParseSource returns the matching Source and whether it was recognised.
func ParseSource(s string) (Source, bool) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceTelegram:
		return SourceTelegram, true
	case SourceReddit:
		return SourceReddit, true
	case SourceManual:
		return SourceManual, true
	}
	return "", false
}
