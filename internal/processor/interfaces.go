package processor

import (
	"context"
	"time"

	"github.com/fiercfly/proteinHunt/internal/models"
)

// DealStore abstracts the storage layer for deal ingestion.
type DealStore interface {
	FindDuplicate(ctx context.Context, title, store string, since time.Time) (bool, error)
	TryCreateDeal(ctx context.Context, deal models.Deal, since time.Time) error
}

// DealExtractor turns raw feed messages into deal candidates.
type DealExtractor interface {
	Extract(ctx context.Context, msgs []models.RawMessage) []models.DealCandidate
}

// DealNotifier announces newly stored deals.
type DealNotifier interface {
	Send(ctx context.Context, deal models.Deal) error
}
