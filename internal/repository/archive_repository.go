package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"signal-tracker/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ArchiveRepository mirrors the completed-signal log into Postgres for
// long-term queries. The store stays the source of truth; archiving is
// write-behind and idempotent on record id.
type ArchiveRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewArchiveRepository(pool PgxPool, tracer trace.Tracer) *ArchiveRepository {
	return &ArchiveRepository{pool: pool, tracer: tracer}
}

func (r *ArchiveRepository) RunMigrations(ctx context.Context) error {
	_, span := r.tracer.Start(ctx, "archive-repo.run-migrations")
	defer span.End()

	if _, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS completed_signals (
			id TEXT PRIMARY KEY,
			pair TEXT NOT NULL,
			direction TEXT NOT NULL,
			signal_type TEXT NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION NOT NULL,
			take_profit_1 DOUBLE PRECISION NOT NULL,
			take_profit_2 DOUBLE PRECISION NOT NULL,
			take_profit_3 DOUBLE PRECISION NOT NULL,
			exit_price DOUBLE PRECISION NOT NULL,
			profit_loss_pct DOUBLE PRECISION NOT NULL,
			confidence SMALLINT NOT NULL,
			tp1_hit BOOLEAN NOT NULL,
			tp2_hit BOOLEAN NOT NULL,
			tp3_hit BOOLEAN NOT NULL,
			schema_version SMALLINT NOT NULL,
			created_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ NOT NULL,
			tp2_hit_at TIMESTAMPTZ,
			tp3_hit_at TIMESTAMPTZ
		)`); err != nil {
		return fmt.Errorf("create completed_signals: %w", err)
	}

	if _, err := r.pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS completed_signals_completed_at_idx
		 ON completed_signals (completed_at)`); err != nil {
		return fmt.Errorf("index completed_signals: %w", err)
	}
	return nil
}

func (r *ArchiveRepository) ArchiveRecords(ctx context.Context, records []domain.CompletedRecord) error {
	if len(records) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "archive-repo.archive-records")
	defer span.End()

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(
			`INSERT INTO completed_signals (
				id, pair, direction, signal_type,
				entry_price, stop_loss, take_profit_1, take_profit_2, take_profit_3,
				exit_price, profit_loss_pct, confidence,
				tp1_hit, tp2_hit, tp3_hit, schema_version,
				created_at, completed_at, tp2_hit_at, tp3_hit_at
			 ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
			 ON CONFLICT (id) DO NOTHING`,
			rec.ID,
			rec.Pair,
			string(rec.Direction),
			string(rec.SignalType),
			rec.EntryPrice,
			rec.StopLoss,
			rec.TakeProfit1,
			rec.TakeProfit2,
			rec.TakeProfit3,
			rec.CurrentPrice,
			rec.ProfitLossPct,
			int16(rec.Confidence),
			rec.TP1Hit,
			rec.TP2Hit,
			rec.TP3Hit,
			int16(rec.SchemaVersion),
			rec.CreatedAt.UTC(),
			rec.CompletedAt.UTC(),
			rec.TP2HitTime,
			rec.TP3HitTime,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("archive record: %w", err)
		}
	}
	return nil
}

func (r *ArchiveRepository) ListCompleted(ctx context.Context, category domain.Category, limit int) ([]domain.CompletedRecord, error) {
	_, span := r.tracer.Start(ctx, "archive-repo.list-completed")
	defer span.End()

	args := make([]any, 0, 2)
	var sb strings.Builder
	sb.WriteString(`SELECT id, pair, direction, signal_type,
			entry_price, stop_loss, take_profit_1, take_profit_2, take_profit_3,
			exit_price, profit_loss_pct, confidence,
			tp1_hit, tp2_hit, tp3_hit, schema_version,
			created_at, completed_at, tp2_hit_at, tp3_hit_at
		FROM completed_signals
		WHERE 1=1`)

	if category != "" {
		profile, ok := domain.ProfileFor(category)
		if !ok {
			return nil, fmt.Errorf("unknown category: %s", category)
		}
		args = append(args, profile.IDPrefix+"%")
		sb.WriteString(fmt.Sprintf(" AND id LIKE $%d", len(args)))
	}

	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	args = append(args, limit)
	sb.WriteString(fmt.Sprintf(" ORDER BY completed_at DESC LIMIT $%d", len(args)))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.CompletedRecord, 0, limit)
	for rows.Next() {
		var rec domain.CompletedRecord
		var direction, signalType string
		var confidence, schemaVersion int16
		var createdAt, completedAt time.Time

		if err := rows.Scan(
			&rec.ID,
			&rec.Pair,
			&direction,
			&signalType,
			&rec.EntryPrice,
			&rec.StopLoss,
			&rec.TakeProfit1,
			&rec.TakeProfit2,
			&rec.TakeProfit3,
			&rec.CurrentPrice,
			&rec.ProfitLossPct,
			&confidence,
			&rec.TP1Hit,
			&rec.TP2Hit,
			&rec.TP3Hit,
			&schemaVersion,
			&createdAt,
			&completedAt,
			&rec.TP2HitTime,
			&rec.TP3HitTime,
		); err != nil {
			return nil, err
		}
		rec.Direction = domain.Direction(direction)
		rec.SignalType = domain.SignalType(signalType)
		rec.Confidence = int(confidence)
		rec.SchemaVersion = int(schemaVersion)
		rec.CreatedAt = createdAt.UTC()
		rec.CompletedAt = completedAt.UTC()
		rec.Status = domain.StatusCompleted
		records = append(records, rec)
	}

	return records, rows.Err()
}

// DeleteOlderThan prunes archived records whose completion predates the
// cutoff and reports how many rows went away.
func (r *ArchiveRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	_, span := r.tracer.Start(ctx, "archive-repo.delete-older-than")
	defer span.End()

	tag, err := r.pool.Exec(ctx,
		`DELETE FROM completed_signals WHERE completed_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune completed_signals: %w", err)
	}
	return tag.RowsAffected(), nil
}
