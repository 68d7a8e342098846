// Package datadog implements a Datadog backend for the internal/metrics package.
//
// Updates are buffered per series (metric name plus label tags) and submitted
// on Flush. A background loop flushes on a ticker so a long analysis shows up
// as a time series; Close stops the loop and submits the last window.
//
// Counters become Datadog count series. Histogram samples are summarized per
// window as p50/p90/p99/max/samples gauges.
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"liquorsales/internal/metrics"
)

const (
	defaultJob        = "liquorsales"
	defaultFlushEvery = 60 * time.Second
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>". Empty means "liquorsales".
	JobName string
	// Tags are extra tags added to every series (e.g. "team:data").
	Tags []string
	// FlushEvery is the submission period. Zero or less means one minute.
	FlushEvery time.Duration

	// test seams
	getenv    func(string) string
	now       func() time.Time
	tick      func(time.Duration) (<-chan time.Time, func())
	submitter submitter
}

// submitter is the part of *datadogV2.MetricsApi the backend calls.
type submitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// series identifies one buffered Datadog series.
type series struct {
	metric string
	tags   string // sorted, comma joined
}

// window holds the updates of one flush period.
type window struct {
	counts  map[series]float64
	samples map[series][]float64
}

func newWindow() window {
	return window{counts: make(map[series]float64), samples: make(map[series][]float64)}
}

func (w window) empty() bool { return len(w.counts) == 0 && len(w.samples) == 0 }

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api  submitter
	ctx  context.Context
	tags []string
	now  func() time.Time

	mu  sync.Mutex
	cur window

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

var _ metrics.Backend = (*Backend)(nil)

// NewBackend starts a backend submitting through the official client, which
// reads DD_API_KEY and DD_SITE from the environment. The environment tag is
// taken from ENV, then DD_ENV, else "env:unknown".
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	if opts.JobName == "" {
		opts.JobName = defaultJob
	}
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = defaultFlushEvery
	}
	if opts.getenv == nil {
		opts.getenv = os.Getenv
	}
	if opts.now == nil {
		opts.now = time.Now
	}
	if opts.tick == nil {
		opts.tick = func(d time.Duration) (<-chan time.Time, func()) {
			t := time.NewTicker(d)
			return t.C, t.Stop
		}
	}
	if opts.submitter == nil {
		opts.submitter = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}

	tags := append([]string{envTag(opts.getenv), "job:" + opts.JobName}, opts.Tags...)
	b := &Backend{
		api:  opts.submitter,
		ctx:  dd.NewDefaultContext(parent),
		tags: tags,
		now:  opts.now,
		cur:  newWindow(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	c, stopTick := opts.tick(opts.FlushEvery)
	go b.loop(c, stopTick)
	return b, nil
}

func envTag(getenv func(string) string) string {
	for _, k := range []string{"ENV", "DD_ENV"} {
		if v := strings.TrimSpace(getenv(k)); v != "" {
			return "env:" + v
		}
	}
	return "env:unknown"
}

func (b *Backend) loop(c <-chan time.Time, stopTick func()) {
	defer close(b.done)
	defer stopTick()
	for {
		select {
		case <-c:
			_ = b.Flush()
		case <-b.stop:
			return
		}
	}
}

// Close stops the flush loop and submits what is buffered. Later calls
// only flush.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		close(b.stop)
		<-b.done
	})
	return b.Flush()
}

// IncCounter implements metrics.Backend. Non-positive deltas are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	k := seriesOf(name, labels)
	b.mu.Lock()
	b.cur.counts[k] += delta
	b.mu.Unlock()
}

// ObserveHistogram implements metrics.Backend. Negative samples are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}
	k := seriesOf(name, labels)
	b.mu.Lock()
	b.cur.samples[k] = append(b.cur.samples[k], value)
	b.mu.Unlock()
}

// Flush submits the current window and starts a new one. The window is
// discarded even when submission fails.
func (b *Backend) Flush() error {
	b.mu.Lock()
	w := b.cur
	b.cur = newWindow()
	b.mu.Unlock()

	if w.empty() {
		return nil
	}
	payload := datadogV2.MetricPayload{Series: b.payloadSeries(w, b.now().Unix())}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// payloadSeries converts a window into Datadog series ordered by metric name
// and tags.
func (b *Backend) payloadSeries(w window, ts int64) []datadogV2.MetricSeries {
	out := make([]datadogV2.MetricSeries, 0, len(w.counts)+5*len(w.samples))

	for _, k := range sortedSeries(w.counts) {
		out = append(out, point(k.metric, datadogV2.METRICINTAKETYPE_COUNT, w.counts[k], b.seriesTags(k), ts))
	}

	for _, k := range sortedSeries(w.samples) {
		s := append([]float64(nil), w.samples[k]...)
		sort.Float64s(s)
		tags := b.seriesTags(k)
		gauge := datadogV2.METRICINTAKETYPE_GAUGE
		out = append(out,
			point(k.metric+".p50", gauge, nearestRank(s, 0.50), tags, ts),
			point(k.metric+".p90", gauge, nearestRank(s, 0.90), tags, ts),
			point(k.metric+".p99", gauge, nearestRank(s, 0.99), tags, ts),
			point(k.metric+".max", gauge, s[len(s)-1], tags, ts),
			point(k.metric+".samples", gauge, float64(len(s)), tags, ts),
		)
	}
	return out
}

func (b *Backend) seriesTags(k series) []string {
	tags := append([]string(nil), b.tags...)
	if k.tags != "" {
		tags = append(tags, strings.Split(k.tags, ",")...)
	}
	return tags
}

func point(metric string, typ datadogV2.MetricIntakeType, v float64, tags []string, ts int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   typ.Ptr(),
		Points: []datadogV2.MetricPoint{{Timestamp: dd.PtrInt64(ts), Value: dd.PtrFloat64(v)}},
		Tags:   tags,
	}
}

// seriesOf maps a metrics name and labels to a Datadog series:
// "liquor_drops_total" becomes "liquor.drops.total" and labels become sorted
// "key:value" tags. An empty label value is tagged "unknown".
func seriesOf(name string, labels metrics.Labels) series {
	tags := make([]string, 0, len(labels))
	for k, v := range labels {
		if v == "" {
			v = "unknown"
		}
		tags = append(tags, k+":"+v)
	}
	sort.Strings(tags)
	return series{metric: strings.ReplaceAll(name, "_", "."), tags: strings.Join(tags, ",")}
}

func sortedSeries[V any](m map[series]V) []series {
	keys := make([]series, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].metric != keys[j].metric {
			return keys[i].metric < keys[j].metric
		}
		return keys[i].tags < keys[j].tags
	})
	return keys
}

// nearestRank returns the p-quantile of sorted s, rounding the rank to the
// nearest index.
func nearestRank(s []float64, p float64) float64 {
	if len(s) == 0 {
		return 0
	}
	i := int(p*float64(len(s)-1) + 0.5)
	i = max(0, min(i, len(s)-1))
	return s[i]
}

// ParseTagsCSV splits "env:prod, team:data" into trimmed, non-empty tags.
func ParseTagsCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
