package job

import (
	"context"
	"log"
	"time"

	"signal-tracker/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const defaultRefreshTick = 10 * time.Second

type SignalRefresher interface {
	RefreshCategory(ctx context.Context, category domain.Category) ([]domain.Signal, []domain.CompletedRecord, error)
}

// RefreshPoller drives the completion detector: every tick it re-evaluates
// the active set of each category against fresh quotes.
type RefreshPoller struct {
	tracer    trace.Tracer
	refresher SignalRefresher
	tick      time.Duration
}

func NewRefreshPoller(tracer trace.Tracer, refresher SignalRefresher, tickSecs int) *RefreshPoller {
	tick := defaultRefreshTick
	if tickSecs > 0 {
		tick = time.Duration(tickSecs) * time.Second
	}
	return &RefreshPoller{
		tracer:    tracer,
		refresher: refresher,
		tick:      tick,
	}
}

// Start blocks until ctx is cancelled.
func (p *RefreshPoller) Start(ctx context.Context) {
	if p.refresher == nil {
		log.Println("Refresh poller disabled: no signal service")
		<-ctx.Done()
		return
	}

	log.Println("Refresh poller starting...")
	p.runOnce(ctx)

	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Refresh poller stopped")
			return
		case <-ticker.C:
			p.runOnce(ctx)
		}
	}
}

func (p *RefreshPoller) runOnce(ctx context.Context) {
	if p.tracer != nil {
		_, span := p.tracer.Start(ctx, "refresh-poller.tick")
		defer span.End()
	}
	for _, category := range domain.Categories {
		_, completed, err := p.refresher.RefreshCategory(ctx, category)
		if err != nil {
			log.Printf("refresh error for %s: %v", category, err)
			continue
		}
		if len(completed) > 0 {
			log.Printf("%s: %d signal(s) completed this tick", category, len(completed))
		}
	}
}
