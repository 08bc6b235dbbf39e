package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/fiercfly/proteinHunt/internal/models"
)

// scanLimit bounds how many documents a search or range query inspects.
const scanLimit = 500

// orderFor maps a sort key onto a document field and direction.
func orderFor(sortKey string) (string, firestore.Direction) {
	switch sortKey {
	case models.SortVotes:
		return "votes", firestore.Desc
	case models.SortDiscount:
		return "discount", firestore.Desc
	case models.SortPrice:
		return "price", firestore.Asc
	default:
		return "createdAt", firestore.Desc
	}
}

// needsScan reports whether the filter has conditions evaluated in memory.
func needsScan(f models.DealFilter) bool {
	return strings.TrimSpace(f.Search) != "" || f.MinDiscount != nil || f.MinPrice != nil || f.MaxPrice != nil
}

func (c *Client) dealsQuery(f models.DealFilter) firestore.Query {
	q := c.deals().Where("isExpired", "==", false)
	if f.PostType != "" {
		q = q.Where("postType", "==", string(f.PostType))
	}
	if f.Brand != "" {
		q = q.Where("brand", "==", f.Brand)
	}
	if f.Store != "" {
		q = q.Where("store", "==", f.Store)
	}
	return q
}

// matchesFilter evaluates the in-memory part of a filter.
func matchesFilter(d models.Deal, f models.DealFilter) bool {
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		haystack := strings.ToLower(d.Title + " " + d.Brand + " " + d.Description)
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	if f.MinDiscount != nil && (d.Discount == nil || *d.Discount < *f.MinDiscount) {
		return false
	}
	if f.MinPrice != nil && (d.Price == nil || *d.Price < *f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && (d.Price == nil || *d.Price > *f.MaxPrice) {
		return false
	}
	return true
}

// page returns the slice of deals for the filter's page.
func page(deals []models.Deal, f models.DealFilter) []models.Deal {
	start := f.Offset()
	if start >= len(deals) {
		return []models.Deal{}
	}
	end := len(deals)
	if f.Limit > 0 && start+f.Limit < end {
		end = start + f.Limit
	}
	return deals[start:end]
}

// ListDeals returns one page of non-expired deals and the total number of
// matches.
func (c *Client) ListDeals(ctx context.Context, f models.DealFilter) ([]models.Deal, int, error) {
	field, dir := orderFor(f.Sort)
	base := c.dealsQuery(f)

	if needsScan(f) {
		docs, err := base.OrderBy(field, dir).Limit(scanLimit).Documents(ctx).GetAll()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan deals: %w", err)
		}
		all, err := decodeDeals(docs)
		if err != nil {
			return nil, 0, err
		}
		matched := all[:0]
		for _, d := range all {
			if matchesFilter(d, f) {
				matched = append(matched, d)
			}
		}
		return page(matched, f), len(matched), nil
	}

	total, err := c.count(ctx, base)
	if err != nil {
		return nil, 0, err
	}
	q := base.OrderBy(field, dir).Offset(f.Offset())
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list deals: %w", err)
	}
	deals, err := decodeDeals(docs)
	if err != nil {
		return nil, 0, err
	}
	return deals, total, nil
}

// BrandCounts returns the most common brands among non-expired deals.
func (c *Client) BrandCounts(ctx context.Context, limit int) ([]models.Count, error) {
	return c.facet(ctx, "brand", limit)
}

// PostTypeCounts returns the number of non-expired deals per post type.
func (c *Client) PostTypeCounts(ctx context.Context) ([]models.Count, error) {
	return c.facet(ctx, "postType", 0)
}

func (c *Client) facet(ctx context.Context, field string, limit int) ([]models.Count, error) {
	iter := c.deals().Where("isExpired", "==", false).Select(field).Documents(ctx)
	defer iter.Stop()

	counts := make(map[string]int)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate %s facet: %w", field, err)
		}
		v, _ := doc.DataAt(field)
		name, _ := v.(string)
		if strings.TrimSpace(name) == "" {
			continue
		}
		counts[name]++
	}
	return rankCounts(counts, limit), nil
}

// rankCounts orders counts by descending count, then by name.
func rankCounts(counts map[string]int, limit int) []models.Count {
	out := make([]models.Count, 0, len(counts))
	for name, n := range counts {
		out = append(out, models.Count{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
