package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"signal-tracker/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

func TestRefreshPollerStart(t *testing.T) {
	t.Parallel()

	tracer := trace.NewNoopTracerProvider().Tracer("test")
	stub := &stubRefresher{}
	poller := NewRefreshPoller(tracer, stub, 0)

	ctx, cancel := context.WithCancel(context.Background())
	go poller.Start(ctx)

	eventuallySignal(t, func() bool { return stub.calls() >= len(domain.Categories) })
	cancel()
}

func TestRefreshPollerRunOnceCoversEveryCategory(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	stub := &stubRefresher{errFor: domain.CategoryScalping}
	poller := NewRefreshPoller(tracer, stub, 10)

	poller.runOnce(context.Background())

	got := stub.seen()
	if len(got) != len(domain.Categories) {
		t.Fatalf("one failing category must not stop the tick: %v", got)
	}
	for i, category := range domain.Categories {
		if got[i] != category {
			t.Fatalf("unexpected category order: %v", got)
		}
	}
}

type stubRefresher struct {
	mu         sync.Mutex
	categories []domain.Category
	errFor     domain.Category
}

func (s *stubRefresher) RefreshCategory(ctx context.Context, category domain.Category) ([]domain.Signal, []domain.CompletedRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, category)
	if s.errFor != "" && category == s.errFor {
		return nil, nil, errors.New("tick failed")
	}
	return nil, nil, nil
}

func (s *stubRefresher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.categories)
}

func (s *stubRefresher) seen() []domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Category(nil), s.categories...)
}

func eventuallySignal(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
