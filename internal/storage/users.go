package storage

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fiercfly/proteinHunt/internal/models"
)

type userDoc struct {
	SavedDeals []string `firestore:"savedDeals"`
}

// ListSaved returns the deals a user has saved, in save order. Deals that
// have since been deleted are omitted.
func (c *Client) ListSaved(ctx context.Context, userID string) ([]models.Deal, error) {
	doc, err := c.users().Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return []models.Deal{}, nil
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	var u userDoc
	if err := doc.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user %s: %w", userID, err)
	}
	if len(u.SavedDeals) == 0 {
		return []models.Deal{}, nil
	}

	refs := make([]*firestore.DocumentRef, 0, len(u.SavedDeals))
	for _, id := range u.SavedDeals {
		refs = append(refs, c.deals().Doc(id))
	}
	docs, err := c.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved deals: %w", err)
	}
	out := make([]models.Deal, 0, len(docs))
	for _, d := range docs {
		if !d.Exists() {
			continue
		}
		deal, err := decodeDeal(d)
		if err != nil {
			return nil, err
		}
		out = append(out, deal)
	}
	return out, nil
}

// ToggleSaved adds dealID to the user's saved list, or removes it if already
// present. It reports whether the deal is saved afterwards.
func (c *Client) ToggleSaved(ctx context.Context, userID, dealID string) (bool, error) {
	userRef := c.users().Doc(userID)
	dealRef := c.deals().Doc(dealID)
	var saved bool

	err := c.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(dealRef); err != nil {
			if status.Code(err) == codes.NotFound {
				return models.ErrNotFound
			}
			return err
		}
		var u userDoc
		doc, err := tx.Get(userRef)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return err
		default:
			if err := doc.DataTo(&u); err != nil {
				return err
			}
		}
		u.SavedDeals, saved = toggleID(u.SavedDeals, dealID)
		return tx.Set(userRef, map[string]interface{}{"savedDeals": u.SavedDeals}, firestore.MergeAll)
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("failed to toggle saved deal %s for %s: %w", dealID, userID, err)
	}
	return saved, nil
}

func toggleID(ids []string, id string) ([]string, bool) {
	if i := slices.Index(ids, id); i >= 0 {
		return slices.Delete(ids, i, i+1), false
	}
	return append(ids, id), true
}
