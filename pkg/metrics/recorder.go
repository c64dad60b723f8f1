package metrics

import "time"

// Standard store instrumentation, one counter per operation plus its
// latency distribution and a counter for items batches left behind.
var (
	OperationMetric   = MetricDefinition{Name: "dynamo.operations", Type: TypeCount}
	DurationMetric    = MetricDefinition{Name: "dynamo.operation.duration_ms", Type: TypeHistogram}
	UnprocessedMetric = MetricDefinition{Name: "dynamo.batch.unprocessed", Type: TypeCount}
)

// Recorder shapes store operation measurements into provider calls, so
// every operation reports the same tag set: table, op and status.
type Recorder struct {
	provider Provider
}

// NewRecorder wraps a provider; nil falls back to Discard.
func NewRecorder(p Provider) *Recorder {
	if p == nil {
		p = Discard
	}
	return &Recorder{provider: p}
}

// Operation records one finished operation with its latency and outcome.
// Provider errors are dropped; metrics never break the data path.
func (r *Recorder) Operation(table, op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	tags := []string{"table:" + table, "op:" + op, "status:" + status}
	_ = r.provider.Count(OperationMetric.Name, 1, tags)
	_ = r.provider.Histogram(DurationMetric.Name, float64(time.Since(start).Milliseconds()), tags)
}

// Unprocessed records how many items a batch call reported back unhandled.
func (r *Recorder) Unprocessed(table, op string, count int) {
	tags := []string{"table:" + table, "op:" + op}
	_ = r.provider.Count(UnprocessedMetric.Name, float64(count), tags)
}
