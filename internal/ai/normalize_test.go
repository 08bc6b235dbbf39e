package ai

import (
	"strings"
	"testing"
	"time"

	"github.com/fiercfly/proteinHunt/internal/models"
)

func f64(f float64) *float64 { return &f }

func TestNormalize_TitleSynthesis(t *testing.T) {
	src := models.RawMessage{RawText: "x"}
	tests := []struct {
		name string
		raw  rawDeal
		want string
	}{
		{"keeps title", rawDeal{Title: "ON Gold Standard"}, "ON Gold Standard"},
		{"from description", rawDeal{Description: strings.Repeat("d", 100)}, strings.Repeat("d", 80) + "..."},
		{"from post type", rawDeal{PostType: "restock"}, "Restock Update"},
		{"last resort", rawDeal{}, "Protein Update"},
		{"clipped", rawDeal{Title: strings.Repeat("t", 300)}, strings.Repeat("t", models.MaxCandidateTitle)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalize(tt.raw, src)
			if got.Title != tt.want {
				t.Errorf("Title = %q, want %q", got.Title, tt.want)
			}
		})
	}
}

func TestNormalize_Defaults(t *testing.T) {
	posted := time.Unix(1700000000, 0)
	src := models.RawMessage{
		RawText:       "Deal https://amzn.to/abc",
		SourceChannel: "r/protein_deals",
		Source:        models.SourceReddit,
		Image:         "https://i.redd.it/hint.jpg",
		PostURL:       "https://www.reddit.com/r/protein_deals/comments/1",
		PostScore:     7,
		PostTime:      posted,
	}
	got := normalize(rawDeal{
		Title:         "Whey",
		Link:          "https://amzn.to/abc",
		Image:         "https://made.up/image.jpg",
		Price:         f64(1500),
		OriginalPrice: f64(3000),
		Discount:      f64(150),
		KeyFeatures:   []string{"1kg", " ", "24g protein", "Chocolate", "Extra"},
	}, src)

	if got.Store != models.DefaultStore {
		t.Errorf("Store = %q, want default", got.Store)
	}
	if got.PostType != models.PostTypeDeal {
		t.Errorf("PostType = %q, want Deal", got.PostType)
	}
	if got.Link != "https://amzn.to/abc" {
		t.Errorf("Link = %q", got.Link)
	}
	if got.Image != src.Image {
		t.Errorf("Image = %q, want source hint since extracted image is not in the text", got.Image)
	}
	if got.Discount == nil || *got.Discount != 50 {
		t.Errorf("Discount = %v, want computed 50", got.Discount)
	}
	if len(got.KeyFeatures) != 3 || got.KeyFeatures[2] != "Chocolate" {
		t.Errorf("KeyFeatures = %v", got.KeyFeatures)
	}
	if got.Source != models.SourceReddit || got.SourceChannel != "r/protein_deals" || got.RawText != src.RawText {
		t.Errorf("source metadata not carried: %+v", got)
	}
	if !got.CreatedAt.Equal(posted) || got.PostScore != 7 || got.PostURL != src.PostURL {
		t.Errorf("post metadata not carried: %+v", got)
	}
}

func TestNormalize_RejectsInventedLink(t *testing.T) {
	got := normalize(rawDeal{Title: "Whey", Link: "https://www.amazon.in/dp/GUESSED"}, models.RawMessage{RawText: "Whey at 999 on Amazon"})
	if got.Link != "" {
		t.Errorf("Link = %q, want empty", got.Link)
	}
	if got.Source != models.SourceTelegram {
		t.Errorf("Source = %q, want telegram default", got.Source)
	}
}
