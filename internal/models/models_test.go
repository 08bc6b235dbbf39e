package models

import (
	"testing"
	"time"
)

func TestDeal_ToggleVote(t *testing.T) {
	d := &Deal{Title: "Whey"}
	users := []string{"a", "b", "a", "c", "b", "b", "a", "c"}

	for i, u := range users {
		before := d.HasVoted(u)
		voted := d.ToggleVote(u)
		if voted == before {
			t.Fatalf("step %d: toggle for %q did not flip membership", i, u)
		}
		if d.Votes != len(d.VotedBy) {
			t.Fatalf("step %d: votes = %d, voters = %d", i, d.Votes, len(d.VotedBy))
		}
	}

	// a toggled 3 times, b 3 times, c twice
	if !d.HasVoted("a") || !d.HasVoted("b") || d.HasVoted("c") {
		t.Errorf("unexpected voter set %v", d.VotedBy)
	}
}

func TestDeal_ToggleVoteKeepsSeed(t *testing.T) {
	d := &Deal{Title: "Whey", SourceScore: 12, Votes: 12}
	d.ToggleVote("u1")
	if d.Votes != 13 {
		t.Errorf("Votes = %d, want 13", d.Votes)
	}
	d.ToggleVote("u1")
	if d.Votes != 12 {
		t.Errorf("Votes = %d, want 12", d.Votes)
	}
}

func TestDedupeKey(t *testing.T) {
	tests := []struct {
		name       string
		a, b       [2]string
		wantEquals bool
	}{
		{"case folded", [2]string{"Whey Gold", "Amazon"}, [2]string{"WHEY gold", "amazon"}, true},
		{"surrounding space", [2]string{" Whey Gold ", "Amazon"}, [2]string{"Whey Gold", " Amazon"}, true},
		{"different store", [2]string{"Whey Gold", "Amazon"}, [2]string{"Whey Gold", "Flipkart"}, false},
		{"different title", [2]string{"Whey Gold", "Amazon"}, [2]string{"Whey Gold 2lb", "Amazon"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DedupeKey(tt.a[0], tt.a[1]) == DedupeKey(tt.b[0], tt.b[1])
			if got != tt.wantEquals {
				t.Errorf("DedupeKey(%q) == DedupeKey(%q) is %v, want %v", tt.a, tt.b, got, tt.wantEquals)
			}
		})
	}
}

func TestParsePostType(t *testing.T) {
	tests := []struct {
		in   string
		want PostType
	}{
		{"", PostTypeDeal},
		{"deal", PostTypeDeal},
		{"Price Drop", PostTypePriceDrop},
		{"price_drop", PostTypePriceDrop},
		{"REVIEW", PostTypeReview},
		{"giveaway", PostTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParsePostType(tt.in); got != tt.want {
				t.Errorf("ParsePostType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseSource(t *testing.T) {
	if s, ok := ParseSource(" Reddit "); !ok || s != SourceReddit {
		t.Errorf("ParseSource(Reddit) = %q, %v", s, ok)
	}
	if _, ok := ParseSource("twitter"); ok {
		t.Error("ParseSource(twitter) should not be recognised")
	}
}

func TestStaleFilter_Matches(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	f := StaleFilter{Cutoff: now.Add(-10 * 24 * time.Hour), Exempt: []PostType{PostTypeReview}}
	old := now.Add(-20 * 24 * time.Hour)

	tests := []struct {
		name string
		deal Deal
		want bool
	}{
		{"old review kept", Deal{Title: "R", PostType: PostTypeReview, CreatedAt: old}, false},
		{"old deal deleted", Deal{Title: "D", PostType: PostTypeDeal, CreatedAt: old}, true},
		{"fresh deal kept", Deal{Title: "D", PostType: PostTypeDeal, CreatedAt: now}, false},
		{"fresh untitled deleted", Deal{PostType: PostTypeReview, CreatedAt: now}, true},
		{"old unknown type deleted", Deal{Title: "U", PostType: PostType("Giveaway"), CreatedAt: old}, true},
		{"old typeless deleted", Deal{Title: "U", CreatedAt: old}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Matches(tt.deal); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
