package processor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fiercfly/proteinHunt/internal/models"
)

// --- Mock implementations ---

type mockStore struct {
	mu        sync.Mutex
	deals     map[string]models.Deal
	findErr   error
	createErr error
	// raceOnCreate simulates another writer winning between check and create.
	raceOnCreate bool
}

func newMockStore() *mockStore {
	return &mockStore{deals: make(map[string]models.Deal)}
}

func (m *mockStore) FindDuplicate(_ context.Context, title, store string, since time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return false, m.findErr
	}
	for _, d := range m.deals {
		if d.DedupeKey == models.DedupeKey(title, store) && !d.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) TryCreateDeal(_ context.Context, deal models.Deal, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raceOnCreate {
		return models.ErrDealExists
	}
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.deals[deal.ID]; exists {
		return models.ErrDealExists
	}
	m.deals[deal.ID] = deal
	return nil
}

type mockNotifier struct {
	sent    []models.Deal
	sendErr error
}

func (m *mockNotifier) Send(_ context.Context, deal models.Deal) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, deal)
	return nil
}

type mockPoller struct {
	msgs []models.RawMessage
}

func (m *mockPoller) Name() string { return "mock" }

func (m *mockPoller) Poll(_ context.Context) []models.RawMessage { return m.msgs }

type mockExtractor struct {
	calls int
	out   []models.DealCandidate
}

func (m *mockExtractor) Extract(_ context.Context, _ []models.RawMessage) []models.DealCandidate {
	m.calls++
	return m.out
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestWriter(store DealStore) *Writer {
	w := NewWriter(store, 0, quietLogger())
	w.now = func() time.Time { return fixedNow }
	return w
}

func candidate(title, store string) models.DealCandidate {
	return models.DealCandidate{
		Title:    title,
		Store:    store,
		PostType: models.PostTypeDeal,
		Source:   models.SourceTelegram,
	}
}

// --- Writer tests ---

func TestIngest_InsertThenSkipDuplicates(t *testing.T) {
	store := newMockStore()
	w := newTestWriter(store)

	batch := []models.DealCandidate{
		candidate("ON Gold Standard Whey 2lb", "Amazon"),
		candidate("MuscleBlaze Biozyme 1kg", "Flipkart"),
		{Title: "", Source: models.SourceTelegram},
	}

	first := w.Ingest(context.Background(), batch)
	if first.Inserted != 2 || first.Skipped != 1 {
		t.Fatalf("first ingest = %+v, want inserted=2 skipped=1", first)
	}
	if len(first.Created) != 2 {
		t.Errorf("Created len = %d, want 2", len(first.Created))
	}

	second := w.Ingest(context.Background(), batch[:2])
	if second.Inserted != 0 || second.Skipped != 2 {
		t.Errorf("second ingest = %+v, want inserted=0 skipped=2", second)
	}
	if len(store.deals) != 2 {
		t.Errorf("store has %d deals, want 2", len(store.deals))
	}
}

func TestIngest_DuplicateOutsideWindowIsInserted(t *testing.T) {
	store := newMockStore()
	old := models.Deal{
		ID:        "old",
		Title:     "Avvatar Whey 1kg",
		Store:     "Amazon",
		DedupeKey: models.DedupeKey("Avvatar Whey 1kg", "Amazon"),
		CreatedAt: fixedNow.Add(-25 * time.Hour),
	}
	store.deals[old.ID] = old

	res := newTestWriter(store).Ingest(context.Background(), []models.DealCandidate{candidate("Avvatar Whey 1kg", "Amazon")})
	if res.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", res.Inserted)
	}
}

func TestIngest_DuplicateIgnoresCaseAcrossDays(t *testing.T) {
	store := newMockStore()
	w := newTestWriter(store)

	// Yesterday evening, within the window but on a different calendar day.
	first := candidate("Whey Gold 2lb", "Amazon")
	first.CreatedAt = fixedNow.Add(-13 * time.Hour)
	if res := w.Ingest(context.Background(), []models.DealCandidate{first}); res.Inserted != 1 {
		t.Fatalf("first ingest = %+v, want inserted=1", res)
	}

	res := w.Ingest(context.Background(), []models.DealCandidate{candidate("whey gold 2LB", " AMAZON ")})
	if res.Inserted != 0 || res.Skipped != 1 {
		t.Errorf("second ingest = %+v, want inserted=0 skipped=1", res)
	}
	if len(store.deals) != 1 {
		t.Errorf("store has %d deals, want 1", len(store.deals))
	}
}

func TestIngest_SameTitleDifferentStore(t *testing.T) {
	store := newMockStore()
	res := newTestWriter(store).Ingest(context.Background(), []models.DealCandidate{
		candidate("Nakpro Whey 1kg", "Amazon"),
		candidate("Nakpro Whey 1kg", "Flipkart"),
	})
	if res.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", res.Inserted)
	}
}

func TestIngest_ConflictCountsAsSkip(t *testing.T) {
	store := newMockStore()
	store.raceOnCreate = true

	res := newTestWriter(store).Ingest(context.Background(), []models.DealCandidate{candidate("Race Whey", "Amazon")})
	if res.Inserted != 0 || res.Skipped != 1 {
		t.Errorf("result = %+v, want inserted=0 skipped=1", res)
	}
}

func TestIngest_StoreErrorsDoNotAbortBatch(t *testing.T) {
	store := newMockStore()
	store.createErr = errors.New("unavailable")
	w := newTestWriter(store)

	res := w.Ingest(context.Background(), []models.DealCandidate{
		candidate("A", "Amazon"),
		candidate("B", "Amazon"),
	})
	if res.Skipped != 2 || res.Inserted != 0 {
		t.Errorf("result = %+v, want inserted=0 skipped=2", res)
	}

	store.createErr = nil
	store.findErr = errors.New("query failed")
	res = w.Ingest(context.Background(), []models.DealCandidate{candidate("C", "Amazon")})
	if res.Skipped != 1 {
		t.Errorf("find error result = %+v, want skipped=1", res)
	}
}

func TestIngest_RejectsMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		cand models.DealCandidate
	}{
		{"missing title", models.DealCandidate{Source: models.SourceReddit}},
		{"whitespace title", models.DealCandidate{Title: "   ", Source: models.SourceReddit}},
		{"missing source", models.DealCandidate{Title: "Whey"}},
		{"unknown source", models.DealCandidate{Title: "Whey", Source: "myspace"}},
		{"manual without submitter", models.DealCandidate{Title: "Whey", Source: models.SourceManual}},
		{"discount over 100", models.DealCandidate{Title: "Whey", Source: models.SourceReddit, Discount: ptr(150)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			res := newTestWriter(store).Ingest(context.Background(), []models.DealCandidate{tt.cand})
			if res.Skipped != 1 || res.Inserted != 0 {
				t.Errorf("result = %+v, want skipped=1", res)
			}
			if len(store.deals) != 0 {
				t.Error("invalid candidate reached the store")
			}
		})
	}
}

func TestIngest_DerivedFields(t *testing.T) {
	store := newMockStore()
	posted := time.Date(2026, 3, 9, 8, 30, 0, 0, time.UTC)
	cand := models.DealCandidate{
		Title:       "Isopure Zero Carb 3lb",
		Source:      models.SourceReddit,
		PostType:    "price drop",
		Image:       "https://i.redd.it/abc.jpg",
		PostScore:   42,
		CreatedAt:   posted,
		KeyFeatures: []string{"25g protein", "zero carb", "3lb", "extra"},
	}

	res := newTestWriter(store).Ingest(context.Background(), []models.DealCandidate{cand})
	if res.Inserted != 1 {
		t.Fatalf("Inserted = %d, want 1", res.Inserted)
	}
	d := res.Created[0]
	if d.Store != models.DefaultStore {
		t.Errorf("Store = %q, want %q", d.Store, models.DefaultStore)
	}
	if d.Votes != 42 || d.SourceScore != 42 || len(d.VotedBy) != 0 {
		t.Errorf("votes = %d sourceScore = %d votedBy = %v", d.Votes, d.SourceScore, d.VotedBy)
	}
	if !d.CreatedAt.Equal(posted) {
		t.Errorf("CreatedAt = %v, want %v", d.CreatedAt, posted)
	}
	if !d.UpdatedAt.Equal(fixedNow) {
		t.Errorf("UpdatedAt = %v, want %v", d.UpdatedAt, fixedNow)
	}
	if d.PostType != models.PostTypePriceDrop {
		t.Errorf("PostType = %q, want PriceDrop", d.PostType)
	}
	if d.Image != cand.Image {
		t.Errorf("Image = %q, want %q", d.Image, cand.Image)
	}
	if len(d.KeyFeatures) != models.MaxKeyFeatures {
		t.Errorf("KeyFeatures len = %d, want %d", len(d.KeyFeatures), models.MaxKeyFeatures)
	}
	if d.Category != models.DefaultCategory {
		t.Errorf("Category = %q", d.Category)
	}
	if d.ID != generateDealID(d.Title, d.Store, posted) {
		t.Errorf("ID = %q is not the deterministic ID", d.ID)
	}
}

func TestIngest_NegativeScoreSeedsZero(t *testing.T) {
	cand := candidate("Downvoted Whey", "Amazon")
	cand.PostScore = -7
	res := newTestWriter(newMockStore()).Ingest(context.Background(), []models.DealCandidate{cand})
	if res.Inserted != 1 || res.Created[0].Votes != 0 {
		t.Errorf("result = %+v, want one insert with 0 votes", res)
	}
}

func TestGenerateDealID(t *testing.T) {
	morning := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, 3, 10, 22, 0, 0, 0, time.UTC)
	nextDay := time.Date(2026, 3, 11, 1, 0, 0, 0, time.UTC)

	if generateDealID("Whey", "Amazon", morning) != generateDealID("whey", "AMAZON", evening) {
		t.Error("IDs within one day should match regardless of case")
	}
	if generateDealID("Whey", "Amazon", morning) == generateDealID("Whey", "Amazon", nextDay) {
		t.Error("IDs on different days should differ")
	}
	if generateDealID("Whey", "Amazon", morning) == generateDealID("Whey", "Flipkart", morning) {
		t.Error("IDs for different stores should differ")
	}
	if len(generateDealID("Whey", "Amazon", morning)) != 64 {
		t.Error("ID should be a hex sha256")
	}
}

// --- Pipeline tests ---

func TestRunCycle_IngestsAndAnnounces(t *testing.T) {
	store := newMockStore()
	notif := &mockNotifier{}
	ext := &mockExtractor{out: []models.DealCandidate{
		candidate("ON Gold Standard Whey 2lb", "Amazon"),
		candidate("MuscleBlaze Biozyme 1kg", "Flipkart"),
	}}
	poller := &mockPoller{msgs: []models.RawMessage{{ID: "1"}, {ID: "2"}, {ID: "3"}}}
	p := NewPipeline(ext, newTestWriter(store), notif, quietLogger())

	res, err := p.RunCycle(context.Background(), poller)
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", res.Inserted)
	}
	if len(notif.sent) != 2 {
		t.Errorf("notifications = %d, want 2", len(notif.sent))
	}

	res, err = p.RunCycle(context.Background(), poller)
	if err != nil {
		t.Fatalf("second RunCycle: %v", err)
	}
	if res.Inserted != 0 || res.Skipped != 2 {
		t.Errorf("second cycle = %+v, want inserted=0 skipped=2", res)
	}
	if len(notif.sent) != 2 {
		t.Errorf("duplicates were announced: %d notifications", len(notif.sent))
	}
}

func TestRunCycle_EmptyPollSkipsExtraction(t *testing.T) {
	ext := &mockExtractor{}
	p := NewPipeline(ext, newTestWriter(newMockStore()), nil, quietLogger())

	res, err := p.RunCycle(context.Background(), &mockPoller{})
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if ext.calls != 0 {
		t.Errorf("extractor called %d times, want 0", ext.calls)
	}
	if res.Inserted != 0 || res.Skipped != 0 {
		t.Errorf("result = %+v, want zero", res)
	}
}

func TestRunCycle_NotifierFailureDoesNotFailCycle(t *testing.T) {
	notif := &mockNotifier{sendErr: errors.New("webhook down")}
	ext := &mockExtractor{out: []models.DealCandidate{candidate("Whey", "Amazon")}}
	p := NewPipeline(ext, newTestWriter(newMockStore()), notif, quietLogger())

	res, err := p.RunCycle(context.Background(), &mockPoller{msgs: []models.RawMessage{{ID: "1"}}})
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if res.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", res.Inserted)
	}
}

func ptr(f float64) *float64 { return &f }
