package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/fiercfly/proteinHunt/internal/metrics"
	"github.com/fiercfly/proteinHunt/internal/models"
	"github.com/fiercfly/proteinHunt/internal/util"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxBulkDeals    = 500
	brandFacetLimit = 50
)

type pagination struct {
	Total   int  `json:"total"`
	Page    int  `json:"page"`
	HasMore bool `json:"hasMore"`
}

type listResponse struct {
	Deals      []models.Deal `json:"deals"`
	Pagination pagination    `json:"pagination"`
}

// parseFilter reads listing parameters from the query string.
func parseFilter(q url.Values) (models.DealFilter, error) {
	f := models.DealFilter{
		Page:   1,
		Limit:  defaultPageSize,
		Brand:  strings.TrimSpace(q.Get("brand")),
		Store:  strings.TrimSpace(q.Get("store")),
		Sort:   q.Get("sort"),
		Search: strings.TrimSpace(q.Get("search")),
	}
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, fmt.Errorf("invalid page %q", v)
		}
		f.Page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, fmt.Errorf("invalid limit %q", v)
		}
		f.Limit = min(n, maxPageSize)
	}
	switch f.Sort {
	case "", models.SortNewest, models.SortVotes, models.SortDiscount, models.SortPrice:
	default:
		return f, fmt.Errorf("invalid sort %q", f.Sort)
	}
	if v := strings.TrimSpace(q.Get("postType")); v != "" && !strings.EqualFold(v, "all") {
		pt, ok := lookupPostType(v)
		if !ok {
			return f, fmt.Errorf("invalid postType %q", v)
		}
		f.PostType = pt
	}

	var err error
	if f.MinDiscount, err = floatParam(q, "minDiscount"); err != nil {
		return f, err
	}
	if f.MinPrice, err = floatParam(q, "minPrice"); err != nil {
		return f, err
	}
	if f.MaxPrice, err = floatParam(q, "maxPrice"); err != nil {
		return f, err
	}
	return f, nil
}

func floatParam(q url.Values, name string) (*float64, error) {
	v := strings.TrimSpace(q.Get(name))
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return nil, fmt.Errorf("invalid %s %q", name, v)
	}
	return &f, nil
}

// lookupPostType accepts only members of the closed set.
func lookupPostType(s string) (models.PostType, bool) {
	pt := models.ParsePostType(s)
	if pt == models.PostTypeOther && !strings.EqualFold(strings.TrimSpace(s), string(models.PostTypeOther)) {
		return "", false
	}
	return pt, true
}

func (h *Handler) listDeals(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	deals, total, err := h.repo.ListDeals(r.Context(), f)
	if err != nil {
		h.logger.Error("Failed to list deals", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list deals")
		return
	}
	if deals == nil {
		deals = []models.Deal{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Deals: deals,
		Pagination: pagination{
			Total:   total,
			Page:    f.Page,
			HasMore: f.Page*f.Limit < total,
		},
	})
}

func (h *Handler) brands(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.BrandCounts(r.Context(), brandFacetLimit)
	if err != nil {
		h.logger.Error("Failed to count brands", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load brands")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *Handler) postTypes(w http.ResponseWriter, r *http.Request) {
	counts, err := h.repo.PostTypeCounts(r.Context())
	if err != nil {
		h.logger.Error("Failed to count post types", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load post types")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (h *Handler) getDeal(w http.ResponseWriter, r *http.Request) {
	deal, err := h.repo.GetDeal(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, "get deal", err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

// bulkRequest keeps elements raw so one malformed candidate cannot fail the
// whole batch.
type bulkRequest struct {
	Deals []json.RawMessage `json:"deals"`
}

// bulkIngest accepts candidates from external scraper processes.
func (h *Handler) bulkIngest(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Deals) > maxBulkDeals {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("at most %d deals per request", maxBulkDeals))
		return
	}

	candidates := make([]models.DealCandidate, 0, len(req.Deals))
	undecodable := 0
	for i, raw := range req.Deals {
		var c models.DealCandidate
		if err := json.Unmarshal(raw, &c); err != nil {
			undecodable++
			metrics.IngestDealsTotal.WithLabelValues("invalid").Inc()
			h.logger.Warn("Skipping undecodable bulk candidate", "index", i, "error", err)
			continue
		}
		candidates = append(candidates, c)
	}

	res := h.ingester.Ingest(r.Context(), candidates)
	res.Skipped += undecodable
	writeJSON(w, http.StatusOK, res)
}

type submitRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Brand         string   `json:"brand"`
	Store         string   `json:"store"`
	Price         *float64 `json:"price"`
	OriginalPrice *float64 `json:"originalPrice"`
	Link          string   `json:"link"`
	Image         string   `json:"image"`
	KeyFeatures   []string `json:"keyFeatures"`
	PostType      string   `json:"postType"`
}

func isHTTPURL(s string) bool {
	u, err := url.ParseRequestURI(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// buildManualDeal turns a user submission into a record.
func (h *Handler) buildManualDeal(req submitRequest, userID string) (models.Deal, error) {
	title := strings.TrimSpace(req.Title)
	link := strings.TrimSpace(req.Link)
	if title == "" || link == "" {
		return models.Deal{}, errors.New("title and link are required")
	}
	if !isHTTPURL(link) {
		return models.Deal{}, errors.New("link must be an http(s) URL")
	}
	image := strings.TrimSpace(req.Image)
	if image != "" && !isHTTPURL(image) {
		return models.Deal{}, errors.New("image must be an http(s) URL")
	}

	store := strings.TrimSpace(req.Store)
	if store == "" {
		store = models.DefaultStore
	}
	features := slices.DeleteFunc(slices.Clone(req.KeyFeatures), func(s string) bool {
		return strings.TrimSpace(s) == ""
	})
	if len(features) > models.MaxKeyFeatures {
		features = features[:models.MaxKeyFeatures]
	}

	now := h.now()
	deal := models.Deal{
		Title:         title,
		Description:   strings.TrimSpace(req.Description),
		Brand:         strings.TrimSpace(req.Brand),
		Store:         store,
		Category:      models.DefaultCategory,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Link:          link,
		Image:         image,
		KeyFeatures:   features,
		PostType:      models.ParsePostType(req.PostType),
		Source:        models.SourceManual,
		VotedBy:       []string{},
		SubmittedBy:   userID,
		DedupeKey:     models.DedupeKey(title, store),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if req.Price != nil && req.OriginalPrice != nil {
		if pct, ok := util.DiscountPercent(*req.Price, *req.OriginalPrice); ok {
			deal.Discount = &pct
		}
	}
	if err := h.validate.ValidateStruct(deal); err != nil {
		return models.Deal{}, err
	}
	return deal, nil
}

func (h *Handler) submitDeal(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user := identityFrom(r.Context())
	deal, err := h.buildManualDeal(req, user.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.repo.CreateManualDeal(r.Context(), &deal); err != nil {
		h.logger.Error("Failed to create manual deal", "user", user.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to submit deal")
		return
	}
	h.logger.Info("Manual deal submitted", "id", deal.ID, "user", user.UserID)
	writeJSON(w, http.StatusCreated, deal)
}

func (h *Handler) vote(w http.ResponseWriter, r *http.Request) {
	user := identityFrom(r.Context())
	votes, voted, err := h.repo.ToggleVote(r.Context(), chi.URLParam(r, "id"), user.UserID)
	if err != nil {
		h.storeError(w, "toggle vote", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"votes": votes, "voted": voted})
}

func (h *Handler) updateDeal(w http.ResponseWriter, r *http.Request) {
	var patch models.DealPatch
	if err := decodeBody(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Empty() {
		writeError(w, http.StatusBadRequest, "no updatable fields supplied")
		return
	}
	if patch.PostType != nil && !slices.Contains(models.PostTypes, *patch.PostType) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid postType %q", *patch.PostType))
		return
	}
	deal, err := h.repo.UpdateDeal(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.storeError(w, "update deal", err)
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

func (h *Handler) deleteDeal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.repo.DeleteDeal(r.Context(), id); err != nil {
		h.storeError(w, "delete deal", err)
		return
	}
	h.logger.Info("Deal deleted by admin", "id", id, "user", identityFrom(r.Context()).UserID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) storeError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, models.ErrNotFound) {
		writeError(w, http.StatusNotFound, "deal not found")
		return
	}
	h.logger.Error("Store operation failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, "failed to "+op)
}
