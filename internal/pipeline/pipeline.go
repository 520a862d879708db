// Package pipeline wires the granule flow: the listener validates inbound
// notifications, the dispatcher admits granules through the job registry and
// submits conversion tasks to the worker pool, and the result publisher
// announces finished products.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
	"github.com/couchcryptid/iasi-l2-converter/internal/observability"
	"github.com/couchcryptid/iasi-l2-converter/internal/pool"
	"github.com/couchcryptid/iasi-l2-converter/internal/queue"
	"github.com/couchcryptid/iasi-l2-converter/internal/registry"
)

// Subscriber receives raw notifications from the transport. Receive blocks
// until a message arrives or ctx ends.
type Subscriber interface {
	Receive(ctx context.Context) (domain.RawMessage, error)
}

// Publisher sends outbound product notifications.
type Publisher interface {
	Publish(ctx context.Context, n domain.OutboundNotification) error
}

// Converter turns one source file into its product files.
type Converter interface {
	Convert(ctx context.Context, sourcePath string) ([]domain.OutputArtifact, error)
}

// RelevanceFilter decides whether a granule overlaps the area of interest.
type RelevanceFilter interface {
	IsRelevant(start, end time.Time, platform string) (bool, error)
}

// Stages are the collaborators the pipeline drives.
type Stages struct {
	Subscriber Subscriber
	Publisher  Publisher
	Converter  Converter
	Filter     RelevanceFilter
	Hosts      *HostChecker
}

// Options tune the pipeline.
type Options struct {
	Workers              int
	DedupWindow          time.Duration
	ReceiveTimeout       time.Duration
	DefaultGranuleLength time.Duration
	// DrainTimeout bounds the wait for running tasks and queued results on shutdown.
	DrainTimeout time.Duration
}

// Status is a point-in-time view of the pipeline.
type Status struct {
	Running        bool       `json:"running"`
	InboundQueued  int        `json:"inbound_queued"`
	ResultsQueued  int        `json:"results_queued"`
	GranulesLocked int        `json:"granules_locked"`
	Pool           pool.Stats `json:"pool"`
}

// Pipeline orchestrates the listener, dispatcher, worker pool and result
// publisher.
type Pipeline struct {
	subscriber Subscriber
	inbound    *queue.Queue[domain.GranuleNotification]
	results    *queue.Queue[domain.OutboundNotification]
	registry   *registry.JobRegistry
	workers    *pool.Pool

	listener   *Listener
	dispatcher *Dispatcher
	publisher  *ResultPublisher

	drainTimeout time.Duration
	logger       *slog.Logger
	metrics      *observability.Metrics
	ready        atomic.Bool
}

// New builds a Pipeline from its stages.
func New(s Stages, opts Options, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	inbound := queue.New[domain.GranuleNotification]()
	results := queue.New[domain.OutboundNotification]()
	reg := registry.New(clock, logger)
	workers := pool.New(opts.Workers, logger, metrics)
	processor := NewProcessor(s.Filter, s.Converter, results, clock, logger, metrics)

	return &Pipeline{
		subscriber:   s.Subscriber,
		inbound:      inbound,
		results:      results,
		registry:     reg,
		workers:      workers,
		listener:     NewListener(s.Subscriber, s.Hosts, inbound, opts.ReceiveTimeout, logger, metrics),
		dispatcher:   NewDispatcher(inbound, reg, workers, processor, clock, opts.DedupWindow, opts.DefaultGranuleLength, logger, metrics),
		publisher:    NewResultPublisher(results, s.Publisher, logger, metrics),
		drainTimeout: opts.DrainTimeout,
		logger:       logger,
		metrics:      metrics,
	}
}

// CheckReadiness returns nil once the pipeline loops are running and the
// transport, if it can tell, is connected.
func (p *Pipeline) CheckReadiness(ctx context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline is not running")
	}
	if rc, ok := p.subscriber.(interface {
		CheckReadiness(ctx context.Context) error
	}); ok {
		return rc.CheckReadiness(ctx)
	}
	return nil
}

// Status reports queue depths and pool counters.
func (p *Pipeline) Status() Status {
	return Status{
		Running:        p.ready.Load(),
		InboundQueued:  p.inbound.Len(),
		ResultsQueued:  p.results.Len(),
		GranulesLocked: p.registry.Len(),
		Pool:           p.workers.Stats(),
	}
}

// Run starts every stage and blocks until ctx is cancelled or a stage fails.
// On shutdown, running conversions finish and their results are published
// within the drain timeout.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.workers.Start(ctx); err != nil {
		return err
	}

	// The publisher outlives ctx so results of in-flight tasks still go out.
	pubCtx, stopPublisher := context.WithCancel(context.WithoutCancel(ctx))
	defer stopPublisher()
	pubDone := make(chan struct{})
	go func() {
		defer close(pubDone)
		p.publisher.Run(pubCtx) //nolint:errcheck // Run only returns nil
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return p.listener.Run(gctx) })
	g.Go(func() error { return p.dispatcher.Run(gctx) })

	p.logger.Info("pipeline started")
	p.metrics.PipelineRunning.Set(1)
	p.ready.Store(true)

	err := g.Wait()

	p.ready.Store(false)
	p.metrics.PipelineRunning.Set(0)
	p.logger.Info("pipeline stopping", "reason", ctx.Err())

	if stopErr := p.workers.Stop(p.drainTimeout); stopErr != nil {
		p.logger.Warn("worker pool did not drain", "error", stopErr, "timeout", p.drainTimeout)
	}

	stopPublisher()
	<-pubDone

	flushCtx, cancel := context.WithTimeout(context.Background(), p.drainTimeout)
	defer cancel()
	if n := p.publisher.Flush(flushCtx); n > 0 {
		p.logger.Info("published remaining results", "count", n)
	}

	p.logger.Info("pipeline stopped", "locked_granules", p.registry.Len())
	return err
}
