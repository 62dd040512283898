package job

import (
	"context"
	"log"
	"time"

	"signal-tracker/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	defaultArchiveDrainTick = 5 * time.Minute
	archivePruneTick        = time.Hour
)

type CompletedSource interface {
	CompletedRecords(ctx context.Context) ([]domain.CompletedRecord, error)
}

type ArchiveSink interface {
	ArchiveRecords(ctx context.Context, records []domain.CompletedRecord) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ArchiveMaintenance mirrors the completed-signal log into the archive and
// prunes rows past the retention window. The sink is idempotent on record
// id, so each drain simply re-sends the whole log.
type ArchiveMaintenance struct {
	tracer    trace.Tracer
	source    CompletedSource
	sink      ArchiveSink
	drainTick time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewArchiveMaintenance(tracer trace.Tracer, source CompletedSource, sink ArchiveSink, drainSecs, retentionDays int) *ArchiveMaintenance {
	drainTick := defaultArchiveDrainTick
	if drainSecs > 0 {
		drainTick = time.Duration(drainSecs) * time.Second
	}
	var retention time.Duration
	if retentionDays > 0 {
		retention = time.Duration(retentionDays) * 24 * time.Hour
	}
	return &ArchiveMaintenance{
		tracer:    tracer,
		source:    source,
		sink:      sink,
		drainTick: drainTick,
		retention: retention,
		now:       time.Now,
	}
}

func (j *ArchiveMaintenance) Start(ctx context.Context) {
	if j == nil || j.source == nil || j.sink == nil {
		<-ctx.Done()
		return
	}

	log.Println("Archive maintenance starting...")
	drainTicker := time.NewTicker(j.drainTick)
	pruneTicker := time.NewTicker(archivePruneTick)
	defer drainTicker.Stop()
	defer pruneTicker.Stop()

	j.runDrain(ctx)
	j.runPrune(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("Archive maintenance stopped")
			return
		case <-drainTicker.C:
			j.runDrain(ctx)
		case <-pruneTicker.C:
			j.runPrune(ctx)
		}
	}
}

func (j *ArchiveMaintenance) runDrain(ctx context.Context) {
	if j.tracer != nil {
		_, span := j.tracer.Start(ctx, "archive-job.drain")
		defer span.End()
	}

	records, err := j.source.CompletedRecords(ctx)
	if err != nil {
		log.Printf("archive drain read error: %v", err)
		return
	}
	if len(records) == 0 {
		return
	}
	if err := j.sink.ArchiveRecords(ctx, records); err != nil {
		log.Printf("archive drain write error: %v", err)
		return
	}
	log.Printf("archive drain mirrored %d record(s)", len(records))
}

func (j *ArchiveMaintenance) runPrune(ctx context.Context) {
	if j.retention <= 0 {
		return
	}
	if j.tracer != nil {
		_, span := j.tracer.Start(ctx, "archive-job.prune")
		defer span.End()
	}

	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.sink.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("archive prune error: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("archive prune removed %d row(s)", deleted)
	}
}
