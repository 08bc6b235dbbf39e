package util

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Reddit permalink trailing slash",
			input: "https://reddit.com/r/protein_deals/comments/abc/whey_sale/",
			want:  "https://www.reddit.com/r/protein_deals/comments/abc/whey_sale",
		},
		{
			name:  "Old reddit host",
			input: "http://old.reddit.com/r/x/comments/1/",
			want:  "https://www.reddit.com/r/x/comments/1",
		},
		{
			name:  "Telegram tracking params",
			input: "https://telegram.me/protein_deals1/42?utm_source=share",
			want:  "https://t.me/protein_deals1/42",
		},
		{
			name:  "Retailer URL untouched",
			input: "https://www.amazon.in/dp/B0?utm_source=x",
			want:  "https://www.amazon.in/dp/B0?utm_source=x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if err != nil {
				t.Fatalf("NormalizeURL() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("NormalizeURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetDomain(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://www.amazon.in/dp/B0", "amazon.in"},
		{"https://shop.example.co.in/item", "example.co.in"},
		{"https://flipkart.com", "flipkart.com"},
		{"not a url", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := GetDomain(tt.input); got != tt.want {
				t.Errorf("GetDomain(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"₹1,299", 1299, true},
		{"Rs. 999.50", 999.5, true},
		{"INR 2,10,000", 210000, true},
		{"free", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseAmount(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseAmount(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestClip(t *testing.T) {
	if got := Clip("héllo", 2); got != "hé" {
		t.Errorf("Clip() = %q", got)
	}
	if got := Clip("abc", 10); got != "abc" {
		t.Errorf("Clip() = %q", got)
	}
	if got := Clip("abc", 0); got != "" {
		t.Errorf("Clip() = %q", got)
	}
}

func TestDiscountPercent(t *testing.T) {
	tests := []struct {
		price, original float64
		want            float64
		wantOK          bool
	}{
		{1499, 2999, 50, true},
		{1000, 1000, 0, false},
		{1200, 1000, 0, false},
		{100, 0, 0, false},
	}
	for _, tt := range tests {
		got, ok := DiscountPercent(tt.price, tt.original)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("DiscountPercent(%v, %v) = %v, %v; want %v, %v", tt.price, tt.original, got, ok, tt.want, tt.wantOK)
		}
	}
}
