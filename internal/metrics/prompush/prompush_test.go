package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquorsales/internal/metrics"
)

type gateway struct {
	mu     sync.Mutex
	paths  []string
	bodies [][]byte
}

func (g *gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	g.mu.Lock()
	g.paths = append(g.paths, r.Method+" "+r.URL.Path)
	g.bodies = append(g.bodies, body)
	g.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func TestNewBackend_Validates(t *testing.T) {
	t.Parallel()

	_, err := NewBackend("", "http://localhost:9091")
	assert.Error(t, err)

	_, err = NewBackend("liquorsales", "::not a url")
	assert.Error(t, err)
}

func TestBackend_CountsAndPushes(t *testing.T) {
	t.Parallel()

	gw := &gateway{}
	srv := httptest.NewServer(gw)
	defer srv.Close()

	b, err := NewBackend("liquorsales", srv.URL)
	require.NoError(t, err)

	b.IncCounter(metrics.RecordsTotal, 10, metrics.Labels{"kind": "read"})
	b.IncCounter(metrics.RecordsTotal, 5, metrics.Labels{"kind": "read"})
	b.IncCounter(metrics.DropsTotal, 2, metrics.Labels{"reason": "import_ratio.invalid_date"})
	b.IncCounter(metrics.DropsTotal, 0, metrics.Labels{"reason": "ignored"})
	b.IncCounter("unknown_total", 1, nil)
	b.ObserveHistogram(metrics.StepDurationSeconds, 0.2, metrics.Labels{"step": "aggregate", "status": "ok"})

	assert.Equal(t, 15.0, testutil.ToFloat64(b.records.WithLabelValues("read")))
	assert.Equal(t, 2.0, testutil.ToFloat64(b.drops.WithLabelValues("import_ratio.invalid_date")))
	assert.Equal(t, 1, testutil.CollectAndCount(b.drops))

	require.NoError(t, b.Flush())

	gw.mu.Lock()
	defer gw.mu.Unlock()
	require.Len(t, gw.paths, 1)
	assert.Equal(t, "PUT /metrics/job/liquorsales", gw.paths[0])
	assert.NotEmpty(t, gw.bodies[0])
}

func TestBackend_FlushError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("liquorsales", srv.URL)
	require.NoError(t, err)
	b.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "charts", "status": "ok"})
	assert.Error(t, b.Flush())
}
