package ai

import (
	"math"
	"strings"

	"github.com/fiercfly/proteinHunt/internal/models"
	"github.com/fiercfly/proteinHunt/internal/util"
)

const (
	synthesizedTitleLength = 80
	fallbackTitle          = "Protein Update"
	maxFeatureLength       = 60
	maxDescriptionLength   = 500
)

// normalize applies every default and guard to one extraction element and
// pairs it with the metadata of the message it was extracted from.
func normalize(r rawDeal, src models.RawMessage) models.DealCandidate {
	postType := models.ParsePostType(r.PostType)

	title := strings.TrimSpace(util.Clip(strings.TrimSpace(r.Title), models.MaxCandidateTitle))
	if title == "" {
		title = synthesizeTitle(r)
	}

	store := strings.TrimSpace(r.Store)
	if store == "" {
		store = models.DefaultStore
	}

	image := verbatimURL(r.Image, src.RawText)
	if image == "" {
		image = src.Image
	}

	price := nonNegative(r.Price)
	originalPrice := nonNegative(r.OriginalPrice)
	discount := percentage(r.Discount)
	if discount == nil {
		discount = computeDiscount(price, originalPrice)
	}

	source := src.Source
	if source == "" {
		source = models.SourceTelegram
	}

	return models.DealCandidate{
		Title:         title,
		Description:   util.Clip(r.Description, maxDescriptionLength),
		Brand:         r.Brand,
		Store:         store,
		Price:         price,
		OriginalPrice: originalPrice,
		Discount:      discount,
		Link:          verbatimURL(r.Link, src.RawText),
		Image:         image,
		KeyFeatures:   keyFeatures(r.KeyFeatures),
		PostType:      postType,
		Source:        source,
		SourceChannel: src.SourceChannel,
		RawText:       src.RawText,
		PostURL:       src.PostURL,
		PostScore:     src.PostScore,
		CreatedAt:     src.PostTime,
	}
}

func synthesizeTitle(r rawDeal) string {
	if d := strings.TrimSpace(r.Description); d != "" {
		return util.Clip(d, synthesizedTitleLength) + "..."
	}
	if strings.TrimSpace(r.PostType) != "" {
		return string(models.ParsePostType(r.PostType)) + " Update"
	}
	return fallbackTitle
}

// verbatimURL keeps u only if it is an http(s) URL present in text.
func verbatimURL(u, text string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	lower := strings.ToLower(u)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return ""
	}
	if !strings.Contains(text, u) {
		return ""
	}
	return u
}

func keyFeatures(in []string) []string {
	out := make([]string, 0, models.MaxKeyFeatures)
	for _, f := range in {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		out = append(out, util.Clip(f, maxFeatureLength))
		if len(out) == models.MaxKeyFeatures {
			break
		}
	}
	return out
}

func nonNegative(f *float64) *float64 {
	if f == nil || *f < 0 || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return nil
	}
	return f
}

func percentage(f *float64) *float64 {
	if f = nonNegative(f); f == nil || *f > 100 {
		return nil
	}
	return f
}

func computeDiscount(price, original *float64) *float64 {
	if price == nil || original == nil {
		return nil
	}
	d, ok := util.DiscountPercent(*price, *original)
	if !ok {
		return nil
	}
	return &d
}
