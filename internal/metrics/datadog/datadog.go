// Package datadog implements a buffered Datadog backend for internal/metrics.
//
// Counters and histogram samples are buffered in memory under a mutex and
// submitted on Flush. A background loop flushes every FlushEvery; Close
// stops the loop and flushes one last time.
package datadog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"salesdash/internal/metrics"
)

type Options struct {
	// Service becomes tag "service:<name>". Defaults to "salesdash".
	Service string
	// Tags are extra tags such as "env:prod".
	Tags []string
	// FlushEvery defaults to 60s.
	FlushEvery time.Duration

	// test seams
	now       func() time.Time
	submitter metricsSubmitter
}

// metricsSubmitter is the slice of *datadogV2.MetricsApi the backend uses.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

type Backend struct {
	api        metricsSubmitter
	ctx        context.Context
	flushEvery time.Duration
	baseTags   []string
	now        func() time.Time

	stopCh chan struct{}
	doneCh chan struct{}

	mu       sync.Mutex
	counters map[string]float64
	samples  map[string][]float64
}

// NewBackend builds the backend with the official client, which reads
// DD_API_KEY and DD_SITE from the environment.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	service := opts.Service
	if service == "" {
		service = "salesdash"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}
	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}

	submitter := opts.submitter
	if submitter == nil {
		if os.Getenv("DD_API_KEY") == "" {
			return nil, fmt.Errorf("datadog metrics init: DD_API_KEY is not set")
		}
		submitter = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "service:"+service)
	baseTags = append(baseTags, opts.Tags...)

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		baseTags:   baseTags,
		now:        nowFn,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		counters:   make(map[string]float64),
		samples:    make(map[string][]float64),
	}
	go b.loop()
	return b, nil
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

func (b *Backend) loop() {
	defer close(b.doneCh)
	t := time.NewTicker(b.flushEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and submits whatever is buffered. Call once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counters[seriesKey(name, labels)] += delta
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := seriesKey(name, labels)
	b.samples[k] = append(b.samples[k], value)
}

// Flush submits buffered metrics and resets the buffers, even when the
// submission fails.
func (b *Backend) Flush() error {
	b.mu.Lock()
	counters, samples := b.counters, b.samples
	b.counters = make(map[string]float64)
	b.samples = make(map[string][]float64)
	b.mu.Unlock()

	if len(counters) == 0 && len(samples) == 0 {
		return nil
	}
	payload := datadogV2.MetricPayload{Series: b.buildSeries(counters, samples, b.now().Unix())}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	if err != nil {
		return fmt.Errorf("datadog submit: %w", err)
	}
	return nil
}

func (b *Backend) buildSeries(counters map[string]float64, samples map[string][]float64, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, len(counters)+6*len(samples))

	for _, k := range sortedKeys(counters) {
		name, tags := splitSeriesKey(k)
		series = append(series, point(metricName(name), datadogV2.METRICINTAKETYPE_COUNT, counters[k], withTags(b.baseTags, tags...), nowUnix))
	}
	for _, k := range sortedKeys(samples) {
		cp := append([]float64(nil), samples[k]...)
		if len(cp) == 0 {
			continue
		}
		sort.Float64s(cp)
		name, tags := splitSeriesKey(k)
		all := withTags(b.baseTags, tags...)
		prefix := metricName(name)
		series = append(series,
			point(prefix+".p50", datadogV2.METRICINTAKETYPE_GAUGE, percentileNearestRank(cp, 0.50), all, nowUnix),
			point(prefix+".p90", datadogV2.METRICINTAKETYPE_GAUGE, percentileNearestRank(cp, 0.90), all, nowUnix),
			point(prefix+".p99", datadogV2.METRICINTAKETYPE_GAUGE, percentileNearestRank(cp, 0.99), all, nowUnix),
			point(prefix+".max", datadogV2.METRICINTAKETYPE_GAUGE, cp[len(cp)-1], all, nowUnix),
			point(prefix+".samples", datadogV2.METRICINTAKETYPE_GAUGE, float64(len(cp)), all, nowUnix),
		)
	}
	return series
}

func point(metric string, typ datadogV2.MetricIntakeType, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   typ.Ptr(),
		Points: []datadogV2.MetricPoint{
			{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
		},
		Tags: tags,
	}
}

// metricName maps "salesdash_uploads_total" to "salesdash.uploads.total".
func metricName(name string) string {
	return strings.ReplaceAll(name, "_", ".")
}

// seriesKey encodes name and sorted "k:v" tags into one map key.
func seriesKey(name string, labels metrics.Labels) string {
	parts := make([]string, 0, len(labels)+1)
	parts = append(parts, name)
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, k+":"+labels[k])
	}
	return strings.Join(parts, "\x00")
}

func splitSeriesKey(k string) (string, []string) {
	parts := strings.Split(k, "\x00")
	return parts[0], parts[1:]
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	return append(out, extras...)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

// ParseTagsCSV parses "env:prod,team:retail" into tags.
func ParseTagsCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var _ metrics.Backend = (*Backend)(nil)
