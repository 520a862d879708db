package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
	"github.com/couchcryptid/iasi-l2-converter/internal/observability"
	"github.com/couchcryptid/iasi-l2-converter/internal/pool"
	"github.com/couchcryptid/iasi-l2-converter/internal/queue"
	"github.com/couchcryptid/iasi-l2-converter/internal/registry"
)

// TaskSubmitter accepts granule tasks for execution.
type TaskSubmitter interface {
	Submit(task pool.Task) error
}

// Dispatcher admits granules through the job registry and submits one
// conversion task per admitted granule.
type Dispatcher struct {
	in            *queue.Queue[domain.GranuleNotification]
	registry      *registry.JobRegistry
	tasks         TaskSubmitter
	processor     *Processor
	clock         clockwork.Clock
	window        time.Duration
	defaultLength time.Duration
	logger        *slog.Logger
	metrics       *observability.Metrics
}

// NewDispatcher creates a Dispatcher. window is the duplicate suppression
// window; defaultLength stands in for a missing end time.
func NewDispatcher(in *queue.Queue[domain.GranuleNotification], reg *registry.JobRegistry, tasks TaskSubmitter, processor *Processor, clock clockwork.Clock, window, defaultLength time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		in:            in,
		registry:      reg,
		tasks:         tasks,
		processor:     processor,
		clock:         clock,
		window:        window,
		defaultLength: defaultLength,
		logger:        logger,
		metrics:       metrics,
	}
}

// Run dispatches queued notifications until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		n, err := d.in.Pop(ctx)
		if err != nil {
			d.logger.Info("dispatcher stopping", "reason", ctx.Err())
			return nil
		}
		d.Dispatch(n)
	}
}

// Dispatch admits one notification. Duplicates within the suppression window
// are dropped.
func (d *Dispatcher) Dispatch(n domain.GranuleNotification) {
	start, end, ok := GranuleWindow(n, d.defaultLength)
	if !ok {
		d.metrics.NotificationsRejected.WithLabelValues(reasonWindow).Inc()
		d.logger.Info("cannot derive granule time window", "platform", n.PlatformName, "uri", n.URI)
		return
	}

	key := domain.NewDedupKey(n.PlatformName, start)
	if !d.registry.TryAdmit(key) {
		d.metrics.Duplicates.Inc()
		d.logger.Debug("duplicate granule dropped", "dedup_key", key, "uri", n.URI)
		return
	}

	job := Job{
		ID:           uuid.NewString(),
		Key:          key,
		Notification: n,
		Start:        start,
		End:          end,
		AdmittedAt:   d.clock.Now(),
	}
	task := pool.Task{
		ID:   job.ID,
		Name: string(key),
		Run: func(ctx context.Context) error {
			return d.processor.Process(ctx, job)
		},
	}

	if err := d.tasks.Submit(task); err != nil {
		d.registry.Release(key)
		d.logger.Error("submit granule task failed", "dedup_key", key, "error", err)
		return
	}

	d.registry.ScheduleRelease(key, d.window)
	d.metrics.GranulesAdmitted.Inc()
	d.logger.Info("granule admitted",
		"task_id", job.ID,
		"dedup_key", key,
		"platform", n.PlatformName,
		"start_time", start,
		"end_time", end,
	)
}

// GranuleWindow derives the observation interval of a notification. The start
// falls back to the nominal time, the end to start plus defaultLength.
func GranuleWindow(n domain.GranuleNotification, defaultLength time.Duration) (start, end time.Time, ok bool) {
	start = n.StartTime
	if start.IsZero() {
		start = n.NominalTime
	}
	if start.IsZero() {
		return time.Time{}, time.Time{}, false
	}

	end = n.EndTime
	if end.IsZero() {
		end = start.Add(defaultLength)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
