package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/codeGROOVE-dev/retry"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fiercfly/proteinHunt/internal/models"
)

const (
	dealsCollection = "deals"
	usersCollection = "users"
)

type Client struct {
	client *firestore.Client
	logger *slog.Logger
}

func New(ctx context.Context, projectID string, logger *slog.Logger) (*Client, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{client: client, logger: logger}, nil
}

// Connect creates a client and verifies the database is reachable, retrying
// transient failures a few times before giving up.
func Connect(ctx context.Context, projectID string, logger *slog.Logger) (*Client, error) {
	c, err := New(ctx, projectID, logger)
	if err != nil {
		return nil, err
	}
	err = retry.Do(
		func() error { return c.Ping(ctx) },
		retry.Attempts(5),
		retry.Delay(500*time.Millisecond),
		retry.MaxDelay(5*time.Second),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warn("Firestore ping failed, retrying", "attempt", n+1, "error", err)
		}),
		retry.RetryIf(func(err error) bool {
			code := status.Code(err)
			return code != codes.PermissionDenied && code != codes.Unauthenticated && code != codes.InvalidArgument
		}),
	)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("firestore unreachable: %w", err)
	}
	return c, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Ping performs a minimal read to confirm connectivity and credentials.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	iter := c.deals().Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return err
	}
	return nil
}

func (c *Client) deals() *firestore.CollectionRef {
	return c.client.Collection(dealsCollection)
}

func (c *Client) users() *firestore.CollectionRef {
	return c.client.Collection(usersCollection)
}

func decodeDeal(doc *firestore.DocumentSnapshot) (models.Deal, error) {
	var deal models.Deal
	if err := doc.DataTo(&deal); err != nil {
		return models.Deal{}, fmt.Errorf("failed to unmarshal deal %s: %w", doc.Ref.ID, err)
	}
	deal.ID = doc.Ref.ID
	return deal, nil
}

func decodeDeals(docs []*firestore.DocumentSnapshot) ([]models.Deal, error) {
	out := make([]models.Deal, 0, len(docs))
	for _, doc := range docs {
		deal, err := decodeDeal(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, deal)
	}
	return out, nil
}

// countValue converts an aggregation result entry into an int.
func countValue(v interface{}) (int, error) {
	switch val := v.(type) {
	case int64:
		return int(val), nil
	case *firestorepb.Value:
		return int(val.GetIntegerValue()), nil
	}
	return 0, fmt.Errorf("count aggregation result has unexpected type %T", v)
}

func (c *Client) count(ctx context.Context, q firestore.Query) (int, error) {
	snapshot, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count deals: %w", err)
	}
	v, ok := snapshot["all"]
	if !ok {
		return 0, fmt.Errorf("count aggregation result was invalid: 'all' key missing")
	}
	return countValue(v)
}
