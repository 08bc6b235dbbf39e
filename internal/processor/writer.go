package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/fiercfly/proteinHunt/internal/metrics"
	"github.com/fiercfly/proteinHunt/internal/models"
	"github.com/fiercfly/proteinHunt/internal/util"
	"github.com/fiercfly/proteinHunt/internal/validator"
)

// DefaultDedupeWindow is how far back a title and store pair counts as a
// duplicate.
const DefaultDedupeWindow = 24 * time.Hour

// Result reports the outcome of one ingestion batch.
type Result struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`

	// Created holds the records that were written, in input order.
	Created []models.Deal `json:"-"`
}

// Writer persists deal candidates, skipping recent duplicates.
type Writer struct {
	store    DealStore
	validate *validator.Validator
	window   time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewWriter(store DealStore, window time.Duration, logger *slog.Logger) *Writer {
	if window <= 0 {
		window = DefaultDedupeWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		store:    store,
		validate: validator.New(),
		window:   window,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// generateDealID derives a stable document ID from the dedupe key, so two
// writers racing on the same post collide at the store.
func generateDealID(title, store string, createdAt time.Time) string {
	key := models.DedupeKey(title, store) + "|" + createdAt.UTC().Format(time.DateOnly)
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// Ingest writes each candidate independently. A failure on one candidate is
// logged and counted as skipped; it never stops the rest of the batch.
func (w *Writer) Ingest(ctx context.Context, candidates []models.DealCandidate) Result {
	var res Result
	for _, c := range candidates {
		deal, outcome := w.ingestOne(ctx, c)
		metrics.IngestDealsTotal.WithLabelValues(outcome).Inc()
		if outcome != "inserted" {
			res.Skipped++
			continue
		}
		res.Inserted++
		res.Created = append(res.Created, deal)
	}
	w.logger.Info("Ingested batch", "candidates", len(candidates), "inserted", res.Inserted, "skipped", res.Skipped)
	return res
}

func (w *Writer) ingestOne(ctx context.Context, c models.DealCandidate) (models.Deal, string) {
	deal, ok := w.toDeal(c)
	if !ok {
		w.logger.Debug("Skipping candidate without title or source", "title", c.Title, "source", c.Source)
		return deal, "invalid"
	}
	if err := w.validate.ValidateStruct(deal); err != nil {
		w.logger.Warn("Skipping invalid candidate", "title", deal.Title, "error", err)
		return deal, "invalid"
	}

	since := w.now().Add(-w.window)
	dup, err := w.store.FindDuplicate(ctx, deal.Title, deal.Store, since)
	if err != nil {
		w.logger.Error("Duplicate check failed", "title", deal.Title, "error", err)
		return deal, "error"
	}
	if dup {
		w.logger.Debug("Skipping duplicate", "title", deal.Title, "store", deal.Store)
		return deal, "duplicate"
	}

	if err := w.store.TryCreateDeal(ctx, deal, since); err != nil {
		if errors.Is(err, models.ErrDealExists) {
			w.logger.Debug("Deal created concurrently, skipping", "title", deal.Title, "store", deal.Store)
			return deal, "duplicate"
		}
		w.logger.Error("Failed to create deal", "title", deal.Title, "error", err)
		return deal, "error"
	}
	w.logger.Info("New deal added", "id", deal.ID, "title", deal.Title, "store", deal.Store)
	return deal, "inserted"
}

// toDeal builds the persisted record for a candidate. It reports false when
// the candidate lacks a title or a recognised source.
func (w *Writer) toDeal(c models.DealCandidate) (models.Deal, bool) {
	title := util.Clip(strings.TrimSpace(c.Title), models.MaxTitleLength)
	source, ok := models.ParseSource(string(c.Source))
	if title == "" || !ok {
		return models.Deal{}, false
	}

	store := strings.TrimSpace(c.Store)
	if store == "" {
		store = models.DefaultStore
	}
	now := w.now()
	createdAt := now
	if !c.CreatedAt.IsZero() {
		createdAt = c.CreatedAt.UTC()
	}
	features := c.KeyFeatures
	if len(features) > models.MaxKeyFeatures {
		features = features[:models.MaxKeyFeatures]
	}
	score := max(c.PostScore, 0)

	return models.Deal{
		ID:            generateDealID(title, store, createdAt),
		Title:         title,
		Description:   c.Description,
		Brand:         strings.TrimSpace(c.Brand),
		Store:         store,
		Category:      models.DefaultCategory,
		Price:         c.Price,
		OriginalPrice: c.OriginalPrice,
		Discount:      c.Discount,
		Link:          c.Link,
		Image:         c.Image,
		KeyFeatures:   features,
		PostType:      models.ParsePostType(string(c.PostType)),
		Source:        source,
		SourceChannel: c.SourceChannel,
		RawText:       c.RawText,
		PostURL:       c.PostURL,
		DedupeKey:     models.DedupeKey(title, store),
		SourceScore:   score,
		Votes:         score,
		VotedBy:       []string{},
		CreatedAt:     createdAt,
		UpdatedAt:     now,
	}, true
}
