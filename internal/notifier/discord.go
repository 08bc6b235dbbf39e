package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/time/rate"

	"github.com/fiercfly/proteinHunt/internal/models"
	"github.com/fiercfly/proteinHunt/internal/util"
)

const (
	colorNoDiscount = 3092790  // #2F3136
	colorSmallDeal  = 16753920 // #FFA500
	colorGoodDeal   = 16711680 // #FF0000
	colorSteal      = 5763719  // #57F287

	discountThresholdSmall = 10.0
	discountThresholdGood  = 30.0
	discountThresholdSteal = 50.0

	maxEmbedTitle       = 256
	maxEmbedDescription = 400
)

// Client posts new deals to a Discord webhook.
type Client struct {
	webhookURL  string
	client      *http.Client
	rateLimiter *rate.Limiter
	logger      *slog.Logger

	attempts uint
	delay    time.Duration
}

// New returns a webhook client. An empty webhookURL yields a client whose
// Send is a no-op.
func New(webhookURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		// Discord allows roughly 30 webhook messages per minute.
		rateLimiter: rate.NewLimiter(rate.Every(2*time.Second), 5),
		logger:      logger,
		attempts:    3,
		delay:       time.Second,
	}
}

// Enabled reports whether a webhook is configured.
func (c *Client) Enabled() bool {
	return c.webhookURL != ""
}

// Send announces a newly stored deal.
func (c *Client) Send(ctx context.Context, deal models.Deal) error {
	if c.webhookURL == "" {
		return nil
	}
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return fmt.Errorf("discord rate limiter: %w", err)
	}

	payload, err := json.Marshal(discordWebhookPayload{Embeds: []discordEmbed{formatDealToEmbed(deal)}})
	if err != nil {
		return err
	}

	err = retry.Do(
		func() error { return c.post(ctx, payload) },
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.MaxDelay(30*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Info("Retrying Discord webhook", "attempt", n+1, "error", err)
		}),
		retry.RetryIf(func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.retryable()
			}
			return true
		}),
	)
	if err != nil {
		return fmt.Errorf("discord webhook: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("discord status %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedThumbnail struct {
	URL string `json:"url,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description,omitempty"`
	URL         string                 `json:"url,omitempty"`
	Timestamp   string                 `json:"timestamp,omitempty"`
	Color       int                    `json:"color,omitempty"`
	Thumbnail   *discordEmbedThumbnail `json:"thumbnail,omitempty"`
	Fields      []discordEmbedField    `json:"fields,omitempty"`
	Footer      discordEmbedFooter     `json:"footer,omitempty"`
}

func formatDealToEmbed(deal models.Deal) discordEmbed {
	embed := discordEmbed{
		Title:       util.Clip(deal.Title, maxEmbedTitle),
		Description: util.Clip(deal.Description, maxEmbedDescription),
		URL:         deal.Link,
		Color:       discountColor(deal.Discount),
		Footer:      discordEmbedFooter{Text: footerText(deal)},
	}
	if embed.URL == "" {
		embed.URL = deal.PostURL
	}
	if !deal.CreatedAt.IsZero() {
		embed.Timestamp = deal.CreatedAt.Format(time.RFC3339)
	}
	if deal.Image != "" {
		embed.Thumbnail = &discordEmbedThumbnail{URL: deal.Image}
	}

	if deal.Price != nil {
		price := formatRupees(*deal.Price)
		if deal.OriginalPrice != nil && *deal.OriginalPrice > *deal.Price {
			price += " ~~" + formatRupees(*deal.OriginalPrice) + "~~"
		}
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Price", Value: price, Inline: true})
	}
	if deal.Discount != nil && *deal.Discount > 0 {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Discount", Value: fmt.Sprintf("%.0f%% off", *deal.Discount), Inline: true})
	}
	embed.Fields = append(embed.Fields, discordEmbedField{Name: "Store", Value: deal.Store, Inline: true})
	if deal.Brand != "" {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Brand", Value: deal.Brand, Inline: true})
	}
	return embed
}

func footerText(deal models.Deal) string {
	parts := []string{string(deal.PostType)}
	if deal.SourceChannel != "" {
		parts = append(parts, fmt.Sprintf("%s/%s", deal.Source, deal.SourceChannel))
	} else if deal.Source != "" {
		parts = append(parts, string(deal.Source))
	}
	return strings.Join(parts, " · ")
}

func formatRupees(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("₹%d", int64(v))
	}
	return fmt.Sprintf("₹%.2f", v)
}

func discountColor(discount *float64) int {
	if discount == nil {
		return colorNoDiscount
	}
	switch d := *discount; {
	case d >= discountThresholdSteal:
		return colorSteal
	case d >= discountThresholdGood:
		return colorGoodDeal
	case d >= discountThresholdSmall:
		return colorSmallDeal
	}
	return colorNoDiscount
}
