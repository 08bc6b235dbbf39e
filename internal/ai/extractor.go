package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/fiercfly/proteinHunt/internal/metrics"
	"github.com/fiercfly/proteinHunt/internal/models"
)

const (
	DefaultBatchSize = 20
	DefaultMaxChars  = 400
	defaultTimeout   = 30 * time.Second
)

// Options tunes batching and the local call budget.
type Options struct {
	BatchSize      int
	MaxChars       int
	Timeout        time.Duration
	CallsPerMinute float64
	Burst          int
}

// Extractor turns raw posts into deal candidates, preferring the configured
// model and falling back to heuristics whenever the model path fails.
type Extractor struct {
	gen     Generator
	limiter *rate.Limiter
	opts    Options
	logger  *slog.Logger
}

// NewExtractor builds an Extractor. gen may be nil, in which case every batch
// takes the heuristic path.
func NewExtractor(gen Generator, opts Options, logger *slog.Logger) *Extractor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	limit := rate.Inf
	if opts.CallsPerMinute > 0 {
		limit = rate.Limit(opts.CallsPerMinute / 60)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		gen:     gen,
		limiter: rate.NewLimiter(limit, opts.Burst),
		opts:    opts,
		logger:  logger,
	}
}

// Extract returns one candidate per relevant message, in input order.
// Messages judged irrelevant are dropped. It never fails: a failing model
// call degrades to heuristic extraction.
func (e *Extractor) Extract(ctx context.Context, msgs []models.RawMessage) []models.DealCandidate {
	var out []models.DealCandidate
	for start := 0; start < len(msgs); start += e.opts.BatchSize {
		end := min(start+e.opts.BatchSize, len(msgs))
		out = append(out, e.extractBatch(ctx, msgs[start:end])...)
	}
	metrics.ExtractionCandidatesTotal.Add(float64(len(out)))
	return out
}

func (e *Extractor) extractBatch(ctx context.Context, batch []models.RawMessage) []models.DealCandidate {
	raws, err := e.modelExtract(ctx, batch)
	path := "model"
	if err != nil {
		reason := fallbackReason(err)
		e.logger.Warn("Extraction falling back to heuristics", "reason", reason, "messages", len(batch), "error", err)
		metrics.ExtractionFallbackTotal.WithLabelValues(reason).Inc()
		raws = fallbackExtract(batch)
		path = "fallback"
	} else if len(raws) < len(batch) {
		// A short or salvaged reply leaves the tail unmatched; those messages
		// are already marked seen, so extract them heuristically instead.
		e.logger.Warn("Model reply shorter than batch, extracting tail heuristically",
			"messages", len(batch), "elements", len(raws))
		metrics.ExtractionFallbackTotal.WithLabelValues("short_reply").Inc()
		raws = append(raws, fallbackExtract(batch[len(raws):])...)
	}
	metrics.ExtractionBatchesTotal.WithLabelValues(path).Inc()

	deals := finalize(raws, batch)
	e.logger.Info("Extracted batch", "path", path, "messages", len(batch), "deals", len(deals))
	return deals
}

func (e *Extractor) modelExtract(ctx context.Context, batch []models.RawMessage) ([]rawDeal, error) {
	if e.gen == nil {
		return nil, ErrNoCredentials
	}
	if !e.limiter.Allow() {
		return nil, fmt.Errorf("%w: local call budget exhausted", ErrRateLimited)
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	text, err := e.gen.Generate(ctx, systemPrompt, buildPrompt(batch, e.opts.MaxChars))
	if err != nil {
		return nil, err
	}
	objs, err := decodeResponse(text)
	if err != nil {
		return nil, err
	}

	raws := make([]rawDeal, len(objs))
	for i, obj := range objs {
		raws[i] = decodeRawDeal(obj)
	}
	return raws, nil
}

// finalize pairs element i with message i, then drops skipped elements.
// Elements beyond the batch length have no source and are discarded.
func finalize(raws []rawDeal, batch []models.RawMessage) []models.DealCandidate {
	var out []models.DealCandidate
	for i, r := range raws {
		if i >= len(batch) {
			break
		}
		cand := normalize(r, batch[i])
		if r.skip {
			continue
		}
		out = append(out, cand)
	}
	return out
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, ErrNoCredentials):
		return "no_credentials"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrUnparseable):
		return "unparseable"
	case errors.Is(err, ErrNotArray):
		return "not_array"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	}
	return "provider_error"
}
