package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/iasi-l2-converter/internal/domain"
	"github.com/couchcryptid/iasi-l2-converter/internal/observability"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSubscriber struct {
	msgs    chan domain.RawMessage
	commits atomic.Int64
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{msgs: make(chan domain.RawMessage, 16)}
}

func (m *mockSubscriber) Receive(ctx context.Context) (domain.RawMessage, error) {
	select {
	case msg := <-m.msgs:
		msg.Commit = func(context.Context) error {
			m.commits.Add(1)
			return nil
		}
		return msg, nil
	case <-ctx.Done():
		return domain.RawMessage{}, ctx.Err()
	}
}

func (m *mockSubscriber) send(t *testing.T, fields map[string]any) {
	t.Helper()
	data, err := json.Marshal(fields)
	require.NoError(t, err)
	m.msgs <- domain.RawMessage{Value: data, Source: "iasi-l2-hdf5", Timestamp: time.Now()}
}

type mockPublisher struct {
	mu        sync.Mutex
	sent      []domain.OutboundNotification
	failFirst int
	attempts  int
}

func (m *mockPublisher) Publish(_ context.Context, n domain.OutboundNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts++
	if m.attempts <= m.failFirst {
		return errors.New("broker unavailable")
	}
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockPublisher) published() []domain.OutboundNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OutboundNotification(nil), m.sent...)
}

func (m *mockPublisher) products() []string {
	var out []string
	for _, n := range m.published() {
		out = append(out, n.Product())
	}
	return out
}

// mockConverter returns one artifact per variant under /products. If gate is
// set, Convert signals started and waits for the gate to close.
type mockConverter struct {
	calls   atomic.Int64
	err     error
	gate    chan struct{}
	started chan struct{}

	mu    sync.Mutex
	paths []string
}

func (m *mockConverter) Convert(_ context.Context, sourcePath string) ([]domain.OutputArtifact, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.paths = append(m.paths, sourcePath)
	m.mu.Unlock()

	if m.gate != nil {
		m.started <- struct{}{}
		<-m.gate
	}
	if m.err != nil {
		return nil, m.err
	}

	out := make([]domain.OutputArtifact, 0, len(domain.Variants))
	for _, v := range domain.Variants {
		name := domain.ProductFileName(sourcePath, v)
		out = append(out, domain.NewOutputArtifact(filepath.Join("/products", name), v))
	}
	return out, nil
}

func (m *mockConverter) sourcePaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.paths...)
}

type mockFilter struct {
	relevant bool
	err      error
	calls    atomic.Int64
}

func (m *mockFilter) IsRelevant(_, _ time.Time, _ string) (bool, error) {
	m.calls.Add(1)
	return m.relevant, m.err
}

func newTestMetrics() *observability.Metrics {
	// Use a fresh registry to avoid "already registered" panics in tests.
	return observability.NewMetricsForTesting()
}

// --- fixtures ---

const (
	sourceName  = "W_XX-EUMETSAT-kan,iasi,metopb+kan_C_EUMS_20230327093243_IASI_PW3_02_M01_20230327091606Z_20230327092820Z.hdf"
	productStem = "W_XX-EUMETSAT-kan_iasi_metopb_kan_C_EUMS_20230327093243_IASI_PW3_02_M01_20230327091606Z_20230327092820Z"
)

// m01Notification is the inbound message for the Metop-B granule starting
// 2023-03-27T09:16:06Z.
func m01Notification() map[string]any {
	return map[string]any{
		"kind":         "file",
		"uri":          "file:///data/iasi/" + sourceName,
		"platformName": "M01",
		"sensor":       "iasi",
		"startTime":    "2023-03-27T09:16:06Z",
		"endTime":      "2023-03-27T09:28:20Z",
		"origin":       "kan",
	}
}

func with(fields map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	if value == nil {
		delete(out, key)
	} else {
		out[key] = value
	}
	return out
}
