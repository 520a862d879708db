package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
	"github.com/couchcryptid/iasi-l2-converter/internal/observability"
	"github.com/couchcryptid/iasi-l2-converter/internal/queue"
)

// Job is one admitted granule.
type Job struct {
	ID           string
	Key          domain.DedupKey
	Notification domain.GranuleNotification
	Start        time.Time
	End          time.Time
	AdmittedAt   time.Time
}

// Processor runs the per-granule task: relevance gate, conversion, and
// hand-off of the resulting notifications.
type Processor struct {
	filter    RelevanceFilter
	converter Converter
	results   *queue.Queue[domain.OutboundNotification]
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewProcessor creates a Processor that pushes outbound notifications onto results.
func NewProcessor(filter RelevanceFilter, converter Converter, results *queue.Queue[domain.OutboundNotification], clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Processor {
	return &Processor{
		filter:    filter,
		converter: converter,
		results:   results,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Process converts one granule. Results are queued only after every product
// of the granule is on disk, vertical profile first.
func (p *Processor) Process(ctx context.Context, job Job) error {
	n := job.Notification
	logger := p.logger.With("task_id", job.ID, "dedup_key", job.Key, "uri", n.URI)

	relevant, err := p.filter.IsRelevant(job.Start, job.End, n.PlatformName)
	if err != nil {
		p.metrics.TransformErrors.WithLabelValues(domain.ErrorClass(err)).Inc()
		return fmt.Errorf("relevance test for %s: %w", job.Key, err)
	}
	if !relevant {
		p.metrics.GranulesOutsideArea.Inc()
		logger.Info("granule outside area of interest", "platform", n.PlatformName)
		return nil
	}

	started := p.clock.Now()
	artifacts, err := p.converter.Convert(ctx, SourcePath(n.URI))
	p.metrics.TransformDuration.Observe(p.clock.Since(started).Seconds())
	if err != nil {
		p.metrics.TransformErrors.WithLabelValues(domain.ErrorClass(err)).Inc()
		return fmt.Errorf("convert %s: %w", job.Key, err)
	}

	for _, a := range artifacts {
		p.results.Push(domain.NewOutboundNotification(a, n.Metadata))
	}

	logger.Info("granule converted",
		"products", len(artifacts),
		"elapsed", p.clock.Since(job.AdmittedAt),
	)
	return nil
}
