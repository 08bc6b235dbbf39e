package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fiercfly/proteinHunt/internal/models"
)

func (c *Client) duplicateQuery(title, store string, since time.Time) firestore.Query {
	return c.deals().
		Where("dedupeKey", "==", models.DedupeKey(title, store)).
		Where("createdAt", ">=", since).
		Limit(1)
}

// FindDuplicate reports whether a record with the same title and store,
// compared case-insensitively, was created at or after since.
func (c *Client) FindDuplicate(ctx context.Context, title, store string, since time.Time) (bool, error) {
	docs, err := c.duplicateQuery(title, store, since).Documents(ctx).GetAll()
	if err != nil {
		return false, fmt.Errorf("failed to query duplicates for %q: %w", title, err)
	}
	return len(docs) > 0, nil
}

// TryCreateDeal creates deal under deal.ID. The duplicate check is repeated
// inside the transaction, so concurrent writers of the same title and store
// cannot both succeed. Returns models.ErrDealExists on any conflict.
func (c *Client) TryCreateDeal(ctx context.Context, deal models.Deal, since time.Time) error {
	ref := c.deals().Doc(deal.ID)
	if deal.ID == "" {
		ref = c.deals().NewDoc()
	}

	err := c.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		docs, err := tx.Documents(c.duplicateQuery(deal.Title, deal.Store, since)).GetAll()
		if err != nil {
			return err
		}
		if len(docs) > 0 {
			return models.ErrDealExists
		}
		return tx.Create(ref, deal)
	})
	if err != nil {
		if errors.Is(err, models.ErrDealExists) || status.Code(err) == codes.AlreadyExists {
			return models.ErrDealExists
		}
		return fmt.Errorf("failed to create deal %q: %w", deal.Title, err)
	}
	return nil
}

// CreateManualDeal stores a user submission under a fresh random ID.
func (c *Client) CreateManualDeal(ctx context.Context, deal *models.Deal) error {
	ref := c.deals().Doc(uuid.NewString())
	if _, err := ref.Create(ctx, deal); err != nil {
		return fmt.Errorf("failed to create manual deal: %w", err)
	}
	deal.ID = ref.ID
	return nil
}

// GetDeal retrieves a deal by its document ID. It returns models.ErrNotFound
// when no such deal exists.
func (c *Client) GetDeal(ctx context.Context, id string) (*models.Deal, error) {
	doc, err := c.deals().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get deal by ID %s: %w", id, err)
	}
	deal, err := decodeDeal(doc)
	if err != nil {
		return nil, err
	}
	return &deal, nil
}

// ToggleVote adds or removes userID from the deal's voters and updates the
// counter in the same transaction.
func (c *Client) ToggleVote(ctx context.Context, dealID, userID string) (int, bool, error) {
	ref := c.deals().Doc(dealID)
	var votes int
	var voted bool

	err := c.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return models.ErrNotFound
			}
			return err
		}
		deal, err := decodeDeal(doc)
		if err != nil {
			return err
		}
		voted = deal.ToggleVote(userID)
		votes = deal.Votes
		return tx.Update(ref, []firestore.Update{
			{Path: "votedBy", Value: deal.VotedBy},
			{Path: "votes", Value: deal.Votes},
			{Path: "updatedAt", Value: time.Now().UTC()},
		})
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return 0, false, err
		}
		return 0, false, fmt.Errorf("failed to toggle vote on %s: %w", dealID, err)
	}
	return votes, voted, nil
}

// UpdateDeal applies moderation fields and returns the updated record.
func (c *Client) UpdateDeal(ctx context.Context, id string, patch models.DealPatch) (*models.Deal, error) {
	updates := []firestore.Update{{Path: "updatedAt", Value: time.Now().UTC()}}
	if patch.IsExpired != nil {
		updates = append(updates, firestore.Update{Path: "isExpired", Value: *patch.IsExpired})
	}
	if patch.IsFeatured != nil {
		updates = append(updates, firestore.Update{Path: "isFeatured", Value: *patch.IsFeatured})
	}
	if patch.IsVerified != nil {
		updates = append(updates, firestore.Update{Path: "isVerified", Value: *patch.IsVerified})
	}
	if patch.PostType != nil {
		updates = append(updates, firestore.Update{Path: "postType", Value: string(*patch.PostType)})
	}
	if patch.ExpiresAt != nil {
		updates = append(updates, firestore.Update{Path: "expiresAt", Value: *patch.ExpiresAt})
	}

	if _, err := c.deals().Doc(id).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update deal %s: %w", id, err)
	}
	return c.GetDeal(ctx, id)
}

// DeleteDeal removes a deal. It returns models.ErrNotFound if it is absent.
func (c *Client) DeleteDeal(ctx context.Context, id string) error {
	if _, err := c.deals().Doc(id).Delete(ctx, firestore.Exists); err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ErrNotFound
		}
		return fmt.Errorf("failed to delete deal %s: %w", id, err)
	}
	return nil
}
