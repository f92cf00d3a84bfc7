// Package metrics is the small instrumentation surface the dashboard
// service reports through. Backends live in subpackages.
package metrics

const (
	// UploadsTotal counts uploads; labels: format, status.
	UploadsTotal = "salesdash_uploads_total"
	// RecomputeTotal counts filter+aggregate passes; labels: status.
	RecomputeTotal = "salesdash_recompute_total"
	// RecomputeSeconds observes recompute pass latency; labels: status.
	RecomputeSeconds = "salesdash_recompute_duration_seconds"
)

type Labels map[string]string

type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
	Close() error
}

// Nop discards everything. It is the default backend.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }
func (Nop) Close() error                             { return nil }

var _ Backend = Nop{}
