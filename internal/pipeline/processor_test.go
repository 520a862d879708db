package pipeline_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
	"github.com/couchcryptid/iasi-l2-converter/internal/pipeline"
	"github.com/couchcryptid/iasi-l2-converter/internal/queue"
)

func m01Job(t *testing.T) pipeline.Job {
	t.Helper()
	n := parse(t, m01Notification())
	return pipeline.Job{
		ID:           "task-1",
		Key:          domain.NewDedupKey(n.PlatformName, n.StartTime),
		Notification: n,
		Start:        n.StartTime,
		End:          n.EndTime,
	}
}

func drain(q *queue.Queue[domain.OutboundNotification]) []domain.OutboundNotification {
	var out []domain.OutboundNotification
	for {
		n, ok := q.TryPop()
		if !ok {
			return out
		}
		out = append(out, n)
	}
}

func TestProcessor_QueuesProfileBeforeCrossSection(t *testing.T) {
	results := queue.New[domain.OutboundNotification]()
	conv := &mockConverter{}
	p := pipeline.NewProcessor(&mockFilter{relevant: true}, conv, results, clockwork.NewFakeClock(), slog.Default(), newTestMetrics())

	require.NoError(t, p.Process(context.Background(), m01Job(t)))

	out := drain(results)
	require.Len(t, out, 2)
	assert.Equal(t, "iasi_l2_vprof", out[0].Product())
	assert.Equal(t, "iasi_l2_vcross", out[1].Product())
	assert.Equal(t, "/products/"+productStem+"_vprof.nc", out[0].Data[domain.FieldURI])
}

func TestProcessor_OutsideAreaSkipsConversion(t *testing.T) {
	results := queue.New[domain.OutboundNotification]()
	conv := &mockConverter{}
	metrics := newTestMetrics()
	p := pipeline.NewProcessor(&mockFilter{relevant: false}, conv, results, clockwork.NewFakeClock(), slog.Default(), metrics)

	require.NoError(t, p.Process(context.Background(), m01Job(t)))

	assert.Equal(t, int64(0), conv.calls.Load())
	assert.Equal(t, 0, results.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GranulesOutsideArea), 0)
}

func TestProcessor_Errors(t *testing.T) {
	cases := []struct {
		name      string
		filterErr error
		convErr   error
		class     string
		converted int64
	}{
		{name: "unknown platform", filterErr: fmt.Errorf("%w: no TLE for M09", domain.ErrGeometry), class: "geometry"},
		{name: "bad source name", convErr: fmt.Errorf("%w: unexpected name", domain.ErrFormat), class: "format", converted: 1},
		{name: "rename failed", convErr: fmt.Errorf("%w: rename", domain.ErrIO), class: "io", converted: 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			results := queue.New[domain.OutboundNotification]()
			conv := &mockConverter{err: tc.convErr}
			metrics := newTestMetrics()
			p := pipeline.NewProcessor(&mockFilter{relevant: true, err: tc.filterErr}, conv, results, clockwork.NewFakeClock(), slog.Default(), metrics)

			err := p.Process(context.Background(), m01Job(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "M01_202303270916")
			assert.Equal(t, tc.class, domain.ErrorClass(err))

			assert.Equal(t, tc.converted, conv.calls.Load())
			assert.Equal(t, 0, results.Len(), "no partial output is published")
			assert.InDelta(t, 1, testutil.ToFloat64(metrics.TransformErrors.WithLabelValues(tc.class)), 0)
		})
	}
}

func TestProcessor_ObservesDuration(t *testing.T) {
	clock := clockwork.NewFakeClock()
	metrics := newTestMetrics()
	p := pipeline.NewProcessor(&mockFilter{relevant: true}, &mockConverter{}, queue.New[domain.OutboundNotification](), clock, slog.Default(), metrics)

	job := m01Job(t)
	job.AdmittedAt = clock.Now().Add(-time.Minute)
	require.NoError(t, p.Process(context.Background(), job))

	assert.Equal(t, 1, testutil.CollectAndCount(metrics.TransformDuration))
}
