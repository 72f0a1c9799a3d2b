package internal

import (
	"context"
	"log/slog"
	"time"
)

const (
	unindexedAge   = time.Minute
	unindexedBatch = 100
)

type UnindexedSource interface {
	UnindexedCaptions(ctx context.Context, age time.Duration, limit int) ([]CaptionEvent, error)
}

// Poller re-publishes captions whose event never made it to the index.
type Poller struct {
	producer EventSender
	source   UnindexedSource
	period   time.Duration
}

func NewPoller(producer EventSender, source UnindexedSource, period time.Duration) *Poller {
	return &Poller{
		producer: producer,
		source:   source,
		period:   period,
	}
}

func (p *Poller) Run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.poll(ctx)

		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) poll(ctx context.Context) int {
	events, err := p.source.UnindexedCaptions(ctx, unindexedAge, unindexedBatch)
	if err != nil {
		slog.Error("Failed to query unindexed captions", slog.String("error", err.Error()))
		return 0
	}

	sent := 0
	for i := range events {
		if err := p.producer.SendCaptionEvent(&events[i]); err != nil {
			slog.Error("Failed to republish caption", slog.Int64("id", events[i].ID), slog.String("error", err.Error()))
			continue
		}
		sent++
	}
	if len(events) > 0 {
		slog.Info("Republished unindexed captions", slog.Int("found", len(events)), slog.Int("sent", sent))
	}
	return sent
}
