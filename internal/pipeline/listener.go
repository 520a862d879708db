package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
	"github.com/couchcryptid/iasi-l2-converter/internal/observability"
	"github.com/couchcryptid/iasi-l2-converter/internal/queue"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// Rejection reasons recorded on notifications_rejected_total.
const (
	reasonDecode = "decode"
	reasonKind   = "kind"
	reasonHost   = "host"
	reasonFields = "fields"
	reasonWindow = "window"
)

// Listener receives notifications from the transport, validates them, and
// forwards admissible ones to the inbound queue.
type Listener struct {
	subscriber     Subscriber
	hosts          *HostChecker
	out            *queue.Queue[domain.GranuleNotification]
	receiveTimeout time.Duration
	logger         *slog.Logger
	metrics        *observability.Metrics
}

// NewListener creates a Listener.
func NewListener(sub Subscriber, hosts *HostChecker, out *queue.Queue[domain.GranuleNotification], receiveTimeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Listener {
	return &Listener{
		subscriber:     sub,
		hosts:          hosts,
		out:            out,
		receiveTimeout: receiveTimeout,
		logger:         logger,
		metrics:        metrics,
	}
}

// Run receives until ctx is cancelled. Each receive is bounded by the receive
// timeout so an idle transport never pins the loop.
func (l *Listener) Run(ctx context.Context) error {
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		if ctx.Err() != nil {
			l.logger.Info("listener stopping", "reason", ctx.Err())
			return nil
		}

		msg, err := l.receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			if errors.Is(err, context.DeadlineExceeded) {
				l.logger.Debug("no notification within receive timeout", "timeout", l.receiveTimeout)
				continue
			}
			l.logger.Error("receive notification failed", "error", err)
			if !retry.SleepWithContext(ctx, backoff) {
				continue
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 200 * time.Millisecond

		l.handle(ctx, msg)
	}
}

func (l *Listener) receive(ctx context.Context) (domain.RawMessage, error) {
	rctx, cancel := context.WithTimeout(ctx, l.receiveTimeout)
	defer cancel()
	return l.subscriber.Receive(rctx)
}

// handle validates one message and commits it whatever the outcome; a
// rejected notification is never redelivered.
func (l *Listener) handle(ctx context.Context, msg domain.RawMessage) {
	defer l.commit(ctx, msg)
	l.metrics.NotificationsReceived.Inc()

	n, err := domain.ParseNotification(msg.Value)
	if err != nil {
		l.reject(reasonDecode, slog.LevelWarn, "undecodable notification", "source", msg.Source, "error", err)
		return
	}

	if !l.admissible(n) {
		return
	}

	l.logger.Debug("notification accepted",
		"platform", n.PlatformName,
		"start_time", n.StartTime,
		"uri", n.URI,
	)
	l.out.Push(n)
}

// admissible applies the listener checks in order: kind, origin host, then
// required fields.
func (l *Listener) admissible(n domain.GranuleNotification) bool {
	if n.Kind != domain.KindFile {
		l.reject(reasonKind, slog.LevelDebug, "ignoring notification kind", "kind", n.Kind)
		return false
	}

	local, err := l.hosts.IsLocal(n.URI)
	if err != nil || !local {
		l.reject(reasonHost, slog.LevelWarn, "notification from another host", "uri", n.URI, "error", err)
		return false
	}

	if n.PlatformName == "" || (n.StartTime.IsZero() && n.NominalTime.IsZero()) {
		l.reject(reasonFields, slog.LevelInfo, "notification missing platform or start time",
			"uri", n.URI, "platform", n.PlatformName)
		return false
	}
	return true
}

func (l *Listener) reject(reason string, level slog.Level, msg string, args ...any) {
	l.metrics.NotificationsRejected.WithLabelValues(reason).Inc()
	l.logger.Log(context.Background(), level, msg, args...)
}

func (l *Listener) commit(ctx context.Context, msg domain.RawMessage) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		l.logger.Warn("commit notification failed", "error", err, "source", msg.Source)
	}
}
