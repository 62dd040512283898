package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"signal-tracker/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

func TestArchiveRunMigrationsExecutesSchema(t *testing.T) {
	pool := &archiveStubPool{}
	repo := NewArchiveRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	if err := repo.RunMigrations(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execSQL) != 2 {
		t.Fatalf("expected table and index statements, got %d", len(pool.execSQL))
	}
	if !strings.Contains(pool.execSQL[0], "completed_signals") {
		t.Fatalf("unexpected migration sql: %s", pool.execSQL[0])
	}
}

func TestArchiveRecordsBatchesInserts(t *testing.T) {
	batchResults := &archiveStubBatchResults{}
	pool := &archiveStubPool{batchResults: batchResults}
	repo := NewArchiveRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	now := time.Now().UTC()
	hitAt := now.Add(-time.Minute)
	records := []domain.CompletedRecord{
		{
			Signal: domain.Signal{
				ID:         "scalp-1",
				Pair:       "BTC/USDT",
				Direction:  domain.DirectionLong,
				SignalType: domain.SignalTypeFuture,
				Status:     domain.StatusCompleted,
			},
			SchemaVersion: 1,
			CompletedAt:   now,
			TP2HitTime:    &hitAt,
		},
		{
			Signal: domain.Signal{
				ID:         "scalp-2",
				Pair:       "ETH/USDT",
				Direction:  domain.DirectionShort,
				SignalType: domain.SignalTypeFuture,
				Status:     domain.StatusCompleted,
			},
			SchemaVersion: 1,
			CompletedAt:   now,
		},
	}

	if err := repo.ArchiveRecords(context.Background(), records); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.queuedBatch == nil || pool.queuedBatch.Len() != 2 {
		t.Fatalf("expected a batch of 2 inserts, got %+v", pool.queuedBatch)
	}
	if batchResults.execCalls != 2 {
		t.Fatalf("expected 2 batch exec calls, got %d", batchResults.execCalls)
	}
}

func TestArchiveRecordsEmptyIsNoop(t *testing.T) {
	pool := &archiveStubPool{}
	repo := NewArchiveRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	if err := repo.ArchiveRecords(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.queuedBatch != nil {
		t.Fatal("no batch should be sent for empty input")
	}
}

func TestArchiveListCompletedScansRows(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	hit := now.Add(-2 * time.Minute)
	rows := [][]any{{
		"oc-1", "BTC/USDT", string(domain.DirectionLong), string(domain.SignalTypeFuture),
		95000.0, 92625.0, 96140.0, 97280.0, 98800.0,
		97500.0, 2.63, int16(72),
		true, true, false, int16(1),
		now.Add(-time.Hour), now, hit, nil,
	}}
	pool := &archiveStubPool{rowsData: rows}
	repo := NewArchiveRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	records, err := repo.ListCompleted(context.Background(), domain.CategoryOnchain, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if rec.ID != "oc-1" || rec.Direction != domain.DirectionLong || rec.SignalType != domain.SignalTypeFuture {
		t.Fatalf("unexpected record payload: %+v", rec)
	}
	if rec.Confidence != 72 || rec.SchemaVersion != 1 {
		t.Fatalf("unexpected scalar mapping: %+v", rec)
	}
	if rec.Status != domain.StatusCompleted || !rec.CompletedAt.Equal(now) {
		t.Fatalf("unexpected completion state: %+v", rec)
	}
	if rec.TP2HitTime == nil || !rec.TP2HitTime.Equal(hit) {
		t.Fatalf("tier two hit time lost in scan: %+v", rec.TP2HitTime)
	}
	if rec.TP3HitTime != nil {
		t.Fatalf("expected nil tier three hit time, got %+v", rec.TP3HitTime)
	}

	if !strings.Contains(pool.querySQL, "id LIKE $1") {
		t.Fatalf("expected category filter in query: %s", pool.querySQL)
	}
	if len(pool.queryArgs) != 2 || pool.queryArgs[0] != "oc-%" || pool.queryArgs[1] != 10 {
		t.Fatalf("unexpected query args: %v", pool.queryArgs)
	}
}

func TestArchiveListCompletedRejectsUnknownCategory(t *testing.T) {
	repo := NewArchiveRepository(&archiveStubPool{}, trace.NewNoopTracerProvider().Tracer("test"))
	if _, err := repo.ListCompleted(context.Background(), domain.Category("astrology"), 10); err == nil {
		t.Fatal("expected unknown category error")
	}
}

func TestArchiveDeleteOlderThanReportsRows(t *testing.T) {
	pool := &archiveStubPool{execTag: pgconn.NewCommandTag("DELETE 3")}
	repo := NewArchiveRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	gone, err := repo.DeleteOlderThan(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gone != 3 {
		t.Fatalf("expected 3 pruned rows, got %d", gone)
	}
	if len(pool.execSQL) != 1 || !strings.Contains(pool.execSQL[0], "DELETE FROM completed_signals") {
		t.Fatalf("unexpected prune sql: %v", pool.execSQL)
	}
}

type archiveStubPool struct {
	execSQL      []string
	execTag      pgconn.CommandTag
	batchResults pgx.BatchResults
	queuedBatch  *pgx.Batch
	rowsData     [][]any
	querySQL     string
	queryArgs    []any
}

func (s *archiveStubPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execSQL = append(s.execSQL, sql)
	return s.execTag, nil
}

func (s *archiveStubPool) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	s.queuedBatch = b
	if s.batchResults != nil {
		return s.batchResults
	}
	return &archiveStubBatchResults{}
}

func (s *archiveStubPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	s.querySQL = sql
	s.queryArgs = append([]any(nil), args...)
	if s.rowsData == nil {
		return &archiveStubRows{}, nil
	}
	dataCopy := make([][]any, len(s.rowsData))
	for i := range s.rowsData {
		row := make([]any, len(s.rowsData[i]))
		copy(row, s.rowsData[i])
		dataCopy[i] = row
	}
	return &archiveStubRows{data: dataCopy}, nil
}

type archiveStubBatchResults struct {
	execCalls int
}

func (s *archiveStubBatchResults) Exec() (pgconn.CommandTag, error) {
	s.execCalls++
	return pgconn.CommandTag{}, nil
}

func (s *archiveStubBatchResults) Query() (pgx.Rows, error) { return &archiveStubRows{}, nil }

func (s *archiveStubBatchResults) QueryRow() pgx.Row { return archiveStubRow{} }

func (s *archiveStubBatchResults) Close() error { return nil }

type archiveStubRows struct {
	data [][]any
	idx  int
}

func (r *archiveStubRows) Close() {}

func (r *archiveStubRows) Err() error { return nil }

func (r *archiveStubRows) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (r *archiveStubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *archiveStubRows) Next() bool {
	if len(r.data) == 0 || r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *archiveStubRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.data) {
		return fmt.Errorf("invalid scan index")
	}
	row := r.data[r.idx-1]
	for i, d := range dest {
		switch ptr := d.(type) {
		case *string:
			*ptr = row[i].(string)
		case *float64:
			*ptr = row[i].(float64)
		case *int16:
			*ptr = row[i].(int16)
		case *bool:
			*ptr = row[i].(bool)
		case *time.Time:
			*ptr = row[i].(time.Time)
		case **time.Time:
			if row[i] == nil {
				*ptr = nil
			} else {
				v := row[i].(time.Time)
				*ptr = &v
			}
		default:
			return fmt.Errorf("unsupported dest type %T", d)
		}
	}
	return nil
}

func (r *archiveStubRows) Values() ([]any, error) { return nil, nil }

func (r *archiveStubRows) RawValues() [][]byte { return nil }

func (r *archiveStubRows) Conn() *pgx.Conn { return nil }

type archiveStubRow struct{}

func (archiveStubRow) Scan(dest ...any) error { return nil }
