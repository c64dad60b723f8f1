package metrics

// Provider is the contract for shipping metrics. It keeps Datadog
// swappable for Prometheus or plain logging without touching callers.
type Provider interface {
	Count(name string, value float64, tags []string) error
	Gauge(name string, value float64, tags []string) error
	Histogram(name string, value float64, tags []string) error
}

// MetricType enumerates the supported metric kinds.
type MetricType string

const (
	TypeCount     MetricType = "count"
	TypeGauge     MetricType = "gauge"
	TypeHistogram MetricType = "histogram"
)

// MetricDefinition holds a metric's emitted name and kind.
type MetricDefinition struct {
	Name string
	Type MetricType
}

// Discard drops every measurement. It is the default provider wherever
// none was configured.
var Discard Provider = discardProvider{}

type discardProvider struct{}

func (discardProvider) Count(string, float64, []string) error     { return nil }
func (discardProvider) Gauge(string, float64, []string) error     { return nil }
func (discardProvider) Histogram(string, float64, []string) error { return nil }
