package processor

import (
	"context"
	"log/slog"

	"github.com/fiercfly/proteinHunt/internal/scraper"
)

// Pipeline runs one poll cycle: fetch, extract, store, announce.
type Pipeline struct {
	extractor DealExtractor
	writer    *Writer
	notifier  DealNotifier
	logger    *slog.Logger
}

// NewPipeline wires the cycle stages. notifier may be nil.
func NewPipeline(extractor DealExtractor, writer *Writer, notifier DealNotifier, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		extractor: extractor,
		writer:    writer,
		notifier:  notifier,
		logger:    logger,
	}
}

// RunCycle polls once and ingests whatever the extractor finds. Empty polls
// skip extraction entirely.
func (p *Pipeline) RunCycle(ctx context.Context, poller scraper.Poller) (Result, error) {
	msgs := poller.Poll(ctx)
	if len(msgs) == 0 {
		p.logger.Info("No new messages", "source", poller.Name())
		return Result{}, ctx.Err()
	}

	candidates := p.extractor.Extract(ctx, msgs)
	if len(candidates) == 0 {
		p.logger.Info("No deals extracted", "source", poller.Name(), "messages", len(msgs))
		return Result{}, ctx.Err()
	}

	res := p.writer.Ingest(ctx, candidates)
	p.logger.Info("Finished poll cycle", "source", poller.Name(), "messages", len(msgs),
		"candidates", len(candidates), "inserted", res.Inserted, "skipped", res.Skipped)

	p.announce(ctx, res)
	return res, nil
}

func (p *Pipeline) announce(ctx context.Context, res Result) {
	if p.notifier == nil {
		return
	}
	for _, deal := range res.Created {
		if err := p.notifier.Send(ctx, deal); err != nil {
			p.logger.Warn("Error sending deal notification", "id", deal.ID, "error", err)
		}
	}
}
