// Package retention deletes aged and malformed deal records.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fiercfly/proteinHunt/internal/metrics"
	"github.com/fiercfly/proteinHunt/internal/models"
)

// DefaultMaxAge is the age after which non-review deals are deleted.
const DefaultMaxAge = 240 * time.Hour

// Store deletes every deal matched by a StaleFilter.
type Store interface {
	SweepStale(ctx context.Context, f models.StaleFilter) (int, error)
}

type Sweeper struct {
	store  Store
	maxAge time.Duration
	exempt []models.PostType
	logger *slog.Logger
	now    func() time.Time
}

func NewSweeper(store Store, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:  store,
		maxAge: maxAge,
		exempt: []models.PostType{models.PostTypeReview},
		logger: logger,
		now:    time.Now,
	}
}

// Filter returns the selection the next sweep would delete.
func (s *Sweeper) Filter() models.StaleFilter {
	return models.StaleFilter{
		Cutoff: s.now().UTC().Add(-s.maxAge),
		Exempt: s.exempt,
	}
}

// Sweep deletes records older than the max age, except reviews, together
// with any record whose title is empty.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	f := s.Filter()
	deleted, err := s.store.SweepStale(ctx, f)
	if err != nil {
		return deleted, fmt.Errorf("retention sweep: %w", err)
	}
	metrics.SweepDeletedTotal.Add(float64(deleted))
	s.logger.Info("Retention sweep finished", "deleted", deleted, "cutoff", f.Cutoff)
	return deleted, nil
}
