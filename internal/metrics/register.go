package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "unihelp"

// Values of the status label on provider request counters.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	httpOnce sync.Once
	embOnce  sync.Once
	genOnce  sync.Once
	ragOnce  sync.Once
)

// mustRegisterOnce registers the group on the default registry the first time it is called.
func mustRegisterOnce(once *sync.Once, cs ...prometheus.Collector) {
	once.Do(func() { prometheus.MustRegister(cs...) })
}

// RegisterAll registers every metric group served on /metrics.
func RegisterAll() {
	RegisterHTTPMetrics()
	RegisterEmbeddingMetrics()
	RegisterGenerationMetrics()
	RegisterRAGMetrics()
}
