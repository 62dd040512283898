package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"signal-tracker/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

// SimulatedWhaleFeed fabricates large transactions for the watched pairs.
// It is the default whale source; the HTTP feed is only used when an API
// key is configured.
type SimulatedWhaleFeed struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewSimulatedWhaleFeed(seed int64, now func() time.Time) *SimulatedWhaleFeed {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if now == nil {
		now = time.Now
	}
	return &SimulatedWhaleFeed{rng: rand.New(rand.NewSource(seed)), now: now}
}

func (f *SimulatedWhaleFeed) RecentMovements(ctx context.Context, pairs []string) ([]domain.WhaleMovement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	out := make([]domain.WhaleMovement, 0, len(pairs)*2)
	for _, pair := range pairs {
		for i := f.rng.Intn(3); i > 0; i-- {
			side := domain.WhaleAccumulation
			if f.rng.Float64() < 0.5 {
				side = domain.WhaleDistribution
			}
			out = append(out, domain.WhaleMovement{
				Pair:      pair,
				AmountUSD: 500_000 + f.rng.Float64()*19_500_000,
				Side:      side,
				Timestamp: now.Add(-time.Duration(f.rng.Intn(3600)) * time.Second),
			})
		}
	}
	return out, nil
}

type HTTPWhaleFeed struct {
	tracer  trace.Tracer
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewHTTPWhaleFeed(tracer trace.Tracer, baseURL, apiKey string) *HTTPWhaleFeed {
	return &HTTPWhaleFeed{
		tracer:  tracer,
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

func (f *HTTPWhaleFeed) RecentMovements(ctx context.Context, pairs []string) ([]domain.WhaleMovement, error) {
	ctx, span := f.tracer.Start(ctx, "whale-feed.recent-movements")
	defer span.End()

	u, err := url.Parse(f.baseURL)
	if err != nil {
		return nil, fmt.Errorf("whale feed url: %w", err)
	}
	q := u.Query()
	q.Set("pairs", strings.Join(pairs, ","))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("whale feed request: %w", err)
	}
	req.Header.Set("X-API-Key", f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whale feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whale feed status %d", resp.StatusCode)
	}

	var movements []domain.WhaleMovement
	if err := json.NewDecoder(resp.Body).Decode(&movements); err != nil {
		return nil, fmt.Errorf("decode whale feed: %w", err)
	}
	return movements, nil
}
