package notifier

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/fiercfly/proteinHunt/internal/models"
)

func ptr(f float64) *float64 { return &f }

func newTestClient(url string) *Client {
	client := New(url, slog.New(slog.NewTextHandler(io.Discard, nil)))
	// Override rate limiter and backoff for tests to run fast
	client.rateLimiter = rate.NewLimiter(rate.Inf, 1)
	client.delay = time.Millisecond
	return client
}

func testDeal() models.Deal {
	return models.Deal{
		Title:         "ON Gold Standard Whey 2lb",
		Description:   "Double rich chocolate",
		Brand:         "Optimum Nutrition",
		Store:         "Amazon",
		Price:         ptr(2999),
		OriginalPrice: ptr(4299),
		Discount:      ptr(30),
		Link:          "https://www.amazon.in/dp/B000QSNYGI",
		Image:         "https://cdn.example.com/on.jpg",
		PostType:      models.PostTypeDeal,
		Source:        models.SourceTelegram,
		SourceChannel: "wheydeals",
		CreatedAt:     time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestFormatDealToEmbed(t *testing.T) {
	embed := formatDealToEmbed(testDeal())

	if embed.Title != "ON Gold Standard Whey 2lb" {
		t.Errorf("Title = %q", embed.Title)
	}
	if embed.URL != "https://www.amazon.in/dp/B000QSNYGI" {
		t.Errorf("URL = %q, want product link", embed.URL)
	}
	if embed.Thumbnail == nil || embed.Thumbnail.URL != "https://cdn.example.com/on.jpg" {
		t.Errorf("Thumbnail = %+v", embed.Thumbnail)
	}
	if embed.Color != colorGoodDeal {
		t.Errorf("Color = %d, want %d", embed.Color, colorGoodDeal)
	}
	if embed.Timestamp != "2026-03-10T12:00:00Z" {
		t.Errorf("Timestamp = %q", embed.Timestamp)
	}
	if embed.Footer.Text != "Deal · telegram/wheydeals" {
		t.Errorf("Footer = %q", embed.Footer.Text)
	}

	fields := make(map[string]string)
	for _, f := range embed.Fields {
		fields[f.Name] = f.Value
	}
	if fields["Price"] != "₹2999 ~~₹4299~~" {
		t.Errorf("Price field = %q", fields["Price"])
	}
	if fields["Discount"] != "30% off" {
		t.Errorf("Discount field = %q", fields["Discount"])
	}
	if fields["Store"] != "Amazon" || fields["Brand"] != "Optimum Nutrition" {
		t.Errorf("fields = %v", fields)
	}
}

func TestFormatDealToEmbed_Sparse(t *testing.T) {
	deal := models.Deal{
		Title:    "Restock alert",
		Store:    models.DefaultStore,
		PostType: models.PostTypeRestock,
		Source:   models.SourceReddit,
		PostURL:  "https://www.reddit.com/r/IndianFitness/comments/abc/",
	}
	embed := formatDealToEmbed(deal)
	if embed.URL != deal.PostURL {
		t.Errorf("URL = %q, want post URL fallback", embed.URL)
	}
	if embed.Thumbnail != nil {
		t.Error("expected no thumbnail")
	}
	if embed.Color != colorNoDiscount {
		t.Errorf("Color = %d, want %d", embed.Color, colorNoDiscount)
	}
	if len(embed.Fields) != 1 {
		t.Errorf("got %d fields, want only Store", len(embed.Fields))
	}
}

func TestDiscountColor(t *testing.T) {
	tests := []struct {
		discount *float64
		want     int
	}{
		{nil, colorNoDiscount},
		{ptr(5), colorNoDiscount},
		{ptr(10), colorSmallDeal},
		{ptr(35), colorGoodDeal},
		{ptr(70), colorSteal},
	}
	for _, tt := range tests {
		if got := discountColor(tt.discount); got != tt.want {
			t.Errorf("discountColor(%v) = %d, want %d", tt.discount, got, tt.want)
		}
	}
}

func TestFormatRupees(t *testing.T) {
	if got := formatRupees(1499); got != "₹1499" {
		t.Errorf("formatRupees(1499) = %q", got)
	}
	if got := formatRupees(99.5); got != "₹99.50" {
		t.Errorf("formatRupees(99.5) = %q", got)
	}
}

func TestClient_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST request, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var payload discordWebhookPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("Failed to decode payload: %v", err)
		}
		if len(payload.Embeds) != 1 || payload.Embeds[0].Title != "ON Gold Standard Whey 2lb" {
			t.Errorf("unexpected payload: %+v", payload)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	if err := newTestClient(server.URL).Send(context.Background(), testDeal()); err != nil {
		t.Fatalf("Send: %v", err)
	}
}

func TestClient_SendRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"message": "rate limited"}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	if err := newTestClient(server.URL).Send(context.Background(), testDeal()); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestClient_SendDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message": "Invalid Form Body"}`))
	}))
	defer server.Close()

	err := newTestClient(server.URL).Send(context.Background(), testDeal())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error = %v, want status in message", err)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestClient_EmptyWebhookIsNoop(t *testing.T) {
	c := newTestClient("")
	if c.Enabled() {
		t.Error("Enabled() = true for empty URL")
	}
	if err := c.Send(context.Background(), testDeal()); err != nil {
		t.Errorf("Send: %v", err)
	}
}
