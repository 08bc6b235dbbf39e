package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/fiercfly/proteinHunt/internal/models"
)

// staleEntityFilter expresses f as a single Firestore filter:
// (createdAt < cutoff AND postType not-in exempt) OR title == null OR title == "".
// Unknown post types age out like any other non-exempt type.
func staleEntityFilter(f models.StaleFilter) firestore.EntityFilter {
	var aged firestore.EntityFilter = firestore.PropertyFilter{Path: "createdAt", Operator: "<", Value: f.Cutoff}
	if len(f.Exempt) > 0 {
		exempt := make([]string, 0, len(f.Exempt))
		for _, pt := range f.Exempt {
			exempt = append(exempt, string(pt))
		}
		aged = firestore.AndFilter{
			Filters: []firestore.EntityFilter{
				aged,
				firestore.PropertyFilter{Path: "postType", Operator: "not-in", Value: exempt},
			},
		}
	}
	return firestore.OrFilter{
		Filters: []firestore.EntityFilter{
			aged,
			firestore.PropertyFilter{Path: "title", Operator: "==", Value: nil},
			firestore.PropertyFilter{Path: "title", Operator: "==", Value: ""},
		},
	}
}

// SweepStale deletes every deal selected by f and returns how many deletes
// succeeded.
func (c *Client) SweepStale(ctx context.Context, f models.StaleFilter) (int, error) {
	iter := c.deals().WhereEntity(staleEntityFilter(f)).Select().Documents(ctx)
	defer iter.Stop()

	bw := c.client.BulkWriter(ctx)
	var jobs []*firestore.BulkWriterJob
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			bw.End()
			return 0, fmt.Errorf("failed to iterate stale deals: %w", err)
		}
		job, err := bw.Delete(doc.Ref)
		if err != nil {
			c.logger.Warn("Failed to queue delete", "id", doc.Ref.ID, "error", err)
			continue
		}
		jobs = append(jobs, job)
	}
	bw.End()

	deleted := 0
	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			c.logger.Warn("Stale deal delete failed", "error", err)
			continue
		}
		deleted++
	}
	return deleted, nil
}
