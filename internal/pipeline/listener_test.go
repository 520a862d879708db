package pipeline_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
	"github.com/couchcryptid/iasi-l2-converter/internal/pipeline"
	"github.com/couchcryptid/iasi-l2-converter/internal/queue"
)

func TestListener_Validation(t *testing.T) {
	cases := []struct {
		name   string
		msg    map[string]any
		reason string
	}{
		{name: "wrong kind", msg: with(m01Notification(), "kind", "dataset"), reason: "kind"},
		{name: "missing kind", msg: with(m01Notification(), "kind", nil), reason: "kind"},
		{name: "remote host", msg: with(m01Notification(), "uri", "ssh://192.0.2.10/data/iasi/"+sourceName), reason: "host"},
		{name: "missing platform", msg: with(m01Notification(), "platformName", nil), reason: "fields"},
		{name: "missing start time", msg: with(m01Notification(), "startTime", nil), reason: "fields"},
		{name: "bad timestamp", msg: with(m01Notification(), "startTime", "yesterday"), reason: "decode"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := newMockSubscriber()
			metrics := newTestMetrics()
			out := queue.New[domain.GranuleNotification]()
			l := pipeline.NewListener(sub, pipeline.NewHostChecker("node1"), out, 20*time.Millisecond, slog.Default(), metrics)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan error, 1)
			go func() { done <- l.Run(ctx) }()

			sub.send(t, tc.msg)
			require.Eventually(t, func() bool {
				return testutil.ToFloat64(metrics.NotificationsRejected.WithLabelValues(tc.reason)) == 1
			}, time.Second, 5*time.Millisecond)

			cancel()
			require.NoError(t, <-done)

			assert.Equal(t, 0, out.Len())
			assert.Equal(t, int64(1), sub.commits.Load(), "rejected notifications are still committed")
		})
	}
}

func TestListener_ForwardsAdmissible(t *testing.T) {
	cases := []struct {
		name string
		msg  map[string]any
	}{
		{name: "bare path", msg: with(m01Notification(), "uri", "/data/iasi/"+sourceName)},
		{name: "file uri", msg: m01Notification()},
		{name: "own server name", msg: with(m01Notification(), "uri", "ssh://NODE1/data/iasi/"+sourceName)},
		{name: "localhost", msg: with(m01Notification(), "uri", "ssh://localhost/data/iasi/"+sourceName)},
		{name: "loopback address", msg: with(m01Notification(), "uri", "ssh://127.0.0.1/data/iasi/"+sourceName)},
		{name: "nominal time only", msg: with(with(m01Notification(), "startTime", nil), "nominalTime", "2023-03-27T09:16:06Z")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := newMockSubscriber()
			metrics := newTestMetrics()
			out := queue.New[domain.GranuleNotification]()
			l := pipeline.NewListener(sub, pipeline.NewHostChecker("node1"), out, 20*time.Millisecond, slog.Default(), metrics)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go l.Run(ctx) //nolint:errcheck // stopped by cancel

			sub.send(t, tc.msg)

			popCtx, popCancel := context.WithTimeout(context.Background(), time.Second)
			defer popCancel()
			n, err := out.Pop(popCtx)
			require.NoError(t, err)

			assert.Equal(t, "M01", n.PlatformName)
			assert.Equal(t, domain.KindFile, n.Kind)
			assert.InDelta(t, 1, testutil.ToFloat64(metrics.NotificationsReceived), 0)
		})
	}
}

func TestListener_StopsOnCancelWhileIdle(t *testing.T) {
	sub := newMockSubscriber()
	l := pipeline.NewListener(sub, pipeline.NewHostChecker("node1"), queue.New[domain.GranuleNotification](),
		10*time.Millisecond, slog.Default(), newTestMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	// Several receive timeouts elapse without traffic.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}
