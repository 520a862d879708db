package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
	"github.com/couchcryptid/iasi-l2-converter/internal/observability"
	"github.com/couchcryptid/iasi-l2-converter/internal/queue"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// ResultPublisher drains the result queue and sends one outbound notification
// per product, in arrival order.
type ResultPublisher struct {
	results   *queue.Queue[domain.OutboundNotification]
	publisher Publisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	// pending holds a result whose publish was interrupted by shutdown.
	pending *domain.OutboundNotification
}

// NewResultPublisher creates a ResultPublisher.
func NewResultPublisher(results *queue.Queue[domain.OutboundNotification], pub Publisher, logger *slog.Logger, metrics *observability.Metrics) *ResultPublisher {
	return &ResultPublisher{
		results:   results,
		publisher: pub,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run publishes queued results until ctx is cancelled. A failed publish is
// retried with backoff so later results never overtake an earlier one.
func (r *ResultPublisher) Run(ctx context.Context) error {
	for {
		n, err := r.results.Pop(ctx)
		if err != nil {
			r.logger.Info("result publisher stopping", "reason", ctx.Err())
			return nil
		}
		if !r.publishWithRetry(ctx, n) {
			r.pending = &n
			return nil
		}
	}
}

// Flush publishes whatever is still queued, giving up when ctx ends. It must
// not run concurrently with Run.
func (r *ResultPublisher) Flush(ctx context.Context) int {
	sent := 0
	for {
		var n domain.OutboundNotification
		if r.pending != nil {
			n, r.pending = *r.pending, nil
		} else {
			next, ok := r.results.TryPop()
			if !ok {
				return sent
			}
			n = next
		}
		if !r.publishWithRetry(ctx, n) {
			r.logger.Warn("results dropped on shutdown", "dropped", r.results.Len()+1)
			return sent
		}
		sent++
	}
}

// publishWithRetry returns false if ctx ended before the publish succeeded.
func (r *ResultPublisher) publishWithRetry(ctx context.Context, n domain.OutboundNotification) bool {
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		err := r.publisher.Publish(ctx, n)
		if err == nil {
			r.metrics.ArtifactsPublished.WithLabelValues(n.Product()).Inc()
			r.logger.Info("product published", "uid", n.UID(), "product", n.Product(), "subject", n.Subject)
			return true
		}

		r.metrics.PublishErrors.Inc()
		r.logger.Error("publish product failed", "uid", n.UID(), "error", err, "retry_in", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return false
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}
