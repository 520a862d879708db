package pipeline_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
	"github.com/couchcryptid/iasi-l2-converter/internal/observability"
	"github.com/couchcryptid/iasi-l2-converter/internal/pipeline"
	"github.com/couchcryptid/iasi-l2-converter/internal/pool"
	"github.com/couchcryptid/iasi-l2-converter/internal/queue"
	"github.com/couchcryptid/iasi-l2-converter/internal/registry"
)

type recordingSubmitter struct {
	mu    sync.Mutex
	tasks []pool.Task
	err   error
}

func (r *recordingSubmitter) Submit(task pool.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.tasks = append(r.tasks, task)
	return nil
}

func (r *recordingSubmitter) submitted() []pool.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]pool.Task(nil), r.tasks...)
}

func parse(t *testing.T, fields map[string]any) domain.GranuleNotification {
	t.Helper()
	sub := newMockSubscriber()
	sub.send(t, fields)
	msg := <-sub.msgs
	n, err := domain.ParseNotification(msg.Value)
	require.NoError(t, err)
	return n
}

type dispatcherFixture struct {
	clock    *clockwork.FakeClock
	registry *registry.JobRegistry
	tasks    *recordingSubmitter
	results  *queue.Queue[domain.OutboundNotification]
	conv     *mockConverter
	metrics  *observability.Metrics
	d        *pipeline.Dispatcher
}

func newDispatcherFixture() *dispatcherFixture {
	f := &dispatcherFixture{
		clock:   clockwork.NewFakeClock(),
		tasks:   &recordingSubmitter{},
		results: queue.New[domain.OutboundNotification](),
		conv:    &mockConverter{},
		metrics: newTestMetrics(),
	}
	f.registry = registry.New(f.clock, slog.Default())
	proc := pipeline.NewProcessor(&mockFilter{relevant: true}, f.conv, f.results, f.clock, slog.Default(), f.metrics)
	f.d = pipeline.NewDispatcher(queue.New[domain.GranuleNotification](), f.registry, f.tasks, proc, f.clock,
		5*time.Minute, 15*time.Minute, slog.Default(), f.metrics)
	return f
}

func TestDispatcher_AdmitsAndSubmits(t *testing.T) {
	f := newDispatcherFixture()
	n := parse(t, m01Notification())

	f.d.Dispatch(n)

	tasks := f.tasks.submitted()
	require.Len(t, tasks, 1)
	assert.Equal(t, "M01_202303270916", tasks[0].Name)
	assert.NotEmpty(t, tasks[0].ID)
	assert.True(t, f.registry.Contains(domain.NewDedupKey("M01", n.StartTime)))
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.GranulesAdmitted), 0)

	// The submitted task runs the processor.
	require.NoError(t, tasks[0].Run(context.Background()))
	assert.Equal(t, 2, f.results.Len())
}

func TestDispatcher_DropsDuplicateUntilWindowElapses(t *testing.T) {
	f := newDispatcherFixture()
	n := parse(t, m01Notification())

	f.d.Dispatch(n)
	f.d.Dispatch(n)
	assert.Len(t, f.tasks.submitted(), 1)
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.Duplicates), 0)

	// Completion of the first task does not release the key.
	require.NoError(t, f.tasks.submitted()[0].Run(context.Background()))
	f.d.Dispatch(n)
	assert.Len(t, f.tasks.submitted(), 1)

	f.clock.Advance(5 * time.Minute)
	require.Eventually(t, func() bool { return f.registry.Len() == 0 }, time.Second, 5*time.Millisecond)

	f.d.Dispatch(n)
	assert.Len(t, f.tasks.submitted(), 2)
}

func TestDispatcher_SubmitFailureReleasesKey(t *testing.T) {
	f := newDispatcherFixture()
	f.tasks.err = pool.ErrPoolStopped
	n := parse(t, m01Notification())

	f.d.Dispatch(n)

	assert.Equal(t, 0, f.registry.Len())
	assert.InDelta(t, 0, testutil.ToFloat64(f.metrics.GranulesAdmitted), 0)
}

func TestDispatcher_RejectsUnboundedWindow(t *testing.T) {
	f := newDispatcherFixture()
	n := parse(t, m01Notification())
	n.StartTime = time.Time{}
	n.NominalTime = time.Time{}

	f.d.Dispatch(n)

	assert.Empty(t, f.tasks.submitted())
	assert.InDelta(t, 1, testutil.ToFloat64(f.metrics.NotificationsRejected.WithLabelValues("window")), 0)
}

func TestGranuleWindow(t *testing.T) {
	start := time.Date(2023, 3, 27, 9, 16, 6, 0, time.UTC)
	end := time.Date(2023, 3, 27, 9, 28, 20, 0, time.UTC)

	cases := []struct {
		name      string
		n         domain.GranuleNotification
		wantStart time.Time
		wantEnd   time.Time
		wantOK    bool
	}{
		{name: "start and end", n: domain.GranuleNotification{StartTime: start, EndTime: end}, wantStart: start, wantEnd: end, wantOK: true},
		{name: "end missing", n: domain.GranuleNotification{StartTime: start}, wantStart: start, wantEnd: start.Add(15 * time.Minute), wantOK: true},
		{name: "nominal only", n: domain.GranuleNotification{NominalTime: start}, wantStart: start, wantEnd: start.Add(15 * time.Minute), wantOK: true},
		{name: "no time", n: domain.GranuleNotification{EndTime: end}},
		{name: "end before start", n: domain.GranuleNotification{StartTime: end, EndTime: start}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, e, ok := pipeline.GranuleWindow(tc.n, 15*time.Minute)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantStart, s)
			assert.Equal(t, tc.wantEnd, e)
		})
	}
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	f := newDispatcherFixture()
	in := queue.New[domain.GranuleNotification]()
	proc := pipeline.NewProcessor(&mockFilter{relevant: true}, f.conv, f.results, f.clock, slog.Default(), f.metrics)
	d := pipeline.NewDispatcher(in, f.registry, f.tasks, proc, f.clock, 5*time.Minute, 15*time.Minute, slog.Default(), f.metrics)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	in.Push(parse(t, m01Notification()))
	require.Eventually(t, func() bool { return len(f.tasks.submitted()) == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
