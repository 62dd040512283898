package job

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"signal-tracker/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	defaultAutogenInterval = 45 * time.Minute
	autogenCheckTick       = 5 * time.Second
)

type CategoryGenerator interface {
	GenerateCategory(ctx context.Context, category domain.Category) ([]domain.Signal, int, error)
}

type AutogenStore interface {
	AutogenState(ctx context.Context, category domain.Category) (domain.AutogenState, error)
	SetAutogenState(ctx context.Context, category domain.Category, state domain.AutogenState) error
}

// AutogenScheduler fires signal generation per category on a fixed cadence.
// Whether a category is due is a pure computation over its persisted
// lastRunAt, so the driver loop only has to poll it; there are no per
// category timers to arm or disarm, which makes enabling idempotent by
// construction. The enabled flag and lastRunAt live in the store and
// survive restarts.
type AutogenScheduler struct {
	tracer    trace.Tracer
	generator CategoryGenerator
	store     AutogenStore
	interval  time.Duration
	now       func() time.Time

	mu      sync.Mutex
	enabled map[domain.Category]bool
}

func NewAutogenScheduler(tracer trace.Tracer, generator CategoryGenerator, store AutogenStore, intervalMins int) *AutogenScheduler {
	interval := defaultAutogenInterval
	if intervalMins > 0 {
		interval = time.Duration(intervalMins) * time.Minute
	}
	return &AutogenScheduler{
		tracer:    tracer,
		generator: generator,
		store:     store,
		interval:  interval,
		now:       time.Now,
		enabled:   make(map[domain.Category]bool),
	}
}

// TimeUntilNext reports how long until a category's next scheduled run.
// A zero lastRun means it never ran and is due immediately.
func TimeUntilNext(lastRun time.Time, interval time.Duration, now time.Time) time.Duration {
	if lastRun.IsZero() {
		return 0
	}
	next := lastRun.Add(interval)
	if !next.After(now) {
		return 0
	}
	return next.Sub(now)
}

// Start blocks until ctx is cancelled. Categories whose persisted state says
// enabled resume their schedule from the stored lastRunAt.
func (s *AutogenScheduler) Start(ctx context.Context) {
	if s.generator == nil || s.store == nil {
		log.Println("Auto-generation disabled: scheduler not wired")
		<-ctx.Done()
		return
	}

	s.resume(ctx)

	log.Println("Auto-generation scheduler starting...")
	ticker := time.NewTicker(autogenCheckTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Auto-generation scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// Enable turns auto-generation on for a category. Enabling an already
// enabled category changes nothing, in particular it does not reset the
// schedule.
func (s *AutogenScheduler) Enable(ctx context.Context, category domain.Category) (domain.AutogenState, error) {
	if !category.IsValid() {
		return domain.AutogenState{}, fmt.Errorf("unknown category: %s", category)
	}

	s.mu.Lock()
	already := s.enabled[category]
	s.enabled[category] = true
	s.mu.Unlock()

	state, err := s.store.AutogenState(ctx, category)
	if err != nil {
		return domain.AutogenState{}, fmt.Errorf("load autogen state: %w", err)
	}
	state.Enabled = true
	if err := s.store.SetAutogenState(ctx, category, state); err != nil {
		return domain.AutogenState{}, fmt.Errorf("save autogen state: %w", err)
	}

	if !already {
		log.Printf("auto-generation enabled for %s", category)
	}
	return state, nil
}

// Disable turns auto-generation off and persists the choice.
func (s *AutogenScheduler) Disable(ctx context.Context, category domain.Category) (domain.AutogenState, error) {
	if !category.IsValid() {
		return domain.AutogenState{}, fmt.Errorf("unknown category: %s", category)
	}

	s.mu.Lock()
	s.enabled[category] = false
	s.mu.Unlock()

	state, err := s.store.AutogenState(ctx, category)
	if err != nil {
		return domain.AutogenState{}, fmt.Errorf("load autogen state: %w", err)
	}
	state.Enabled = false
	if err := s.store.SetAutogenState(ctx, category, state); err != nil {
		return domain.AutogenState{}, fmt.Errorf("save autogen state: %w", err)
	}

	log.Printf("auto-generation disabled for %s", category)
	return state, nil
}

// Status returns the persisted state plus the countdown to the next run;
// the countdown is zero when the category is disabled.
func (s *AutogenScheduler) Status(ctx context.Context, category domain.Category) (domain.AutogenState, time.Duration, error) {
	if !category.IsValid() {
		return domain.AutogenState{}, 0, fmt.Errorf("unknown category: %s", category)
	}

	state, err := s.store.AutogenState(ctx, category)
	if err != nil {
		return domain.AutogenState{}, 0, fmt.Errorf("load autogen state: %w", err)
	}

	var until time.Duration
	if state.Enabled {
		until = TimeUntilNext(state.LastRunAt, s.interval, s.now().UTC())
	}
	return state, until, nil
}

func (s *AutogenScheduler) resume(ctx context.Context) {
	for _, category := range domain.Categories {
		state, err := s.store.AutogenState(ctx, category)
		if err != nil {
			log.Printf("autogen state load for %s: %v", category, err)
			continue
		}
		if !state.Enabled {
			continue
		}
		s.mu.Lock()
		s.enabled[category] = true
		s.mu.Unlock()
		log.Printf("auto-generation resumed for %s", category)
	}
}

func (s *AutogenScheduler) tick(ctx context.Context) {
	now := s.now().UTC()
	for _, category := range domain.Categories {
		if !s.isEnabled(category) {
			continue
		}

		state, err := s.store.AutogenState(ctx, category)
		if err != nil {
			log.Printf("autogen state load for %s: %v", category, err)
			continue
		}
		if TimeUntilNext(state.LastRunAt, s.interval, now) > 0 {
			continue
		}
		s.runOnce(ctx, category, now)
	}
}

// runOnce stamps lastRunAt before generating so a failing upstream keeps
// the cadence instead of retrying every check tick.
func (s *AutogenScheduler) runOnce(ctx context.Context, category domain.Category, now time.Time) {
	if s.tracer != nil {
		_, span := s.tracer.Start(ctx, "autogen.run-category")
		defer span.End()
	}

	if err := s.store.SetAutogenState(ctx, category, domain.AutogenState{Enabled: true, LastRunAt: now}); err != nil {
		log.Printf("autogen state save for %s: %v", category, err)
	}

	_, generated, err := s.generator.GenerateCategory(ctx, category)
	if err != nil {
		log.Printf("auto-generation error for %s: %v", category, err)
		return
	}
	log.Printf("auto-generation for %s produced %d candidate(s)", category, generated)
}

func (s *AutogenScheduler) isEnabled(category domain.Category) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled[category]
}
