package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Writes counts store writes by operation (create, update, delete) and
	// result (ok, error).
	Writes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "itemboard_item_writes_total",
		Help: "Item store writes by operation and result.",
	}, []string{"op", "result"})

	// Subscribers is the number of open live item subscriptions.
	Subscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "itemboard_live_subscribers",
		Help: "Open live item list subscriptions.",
	})
)

// RecordWrite bumps the write counter for op.
func RecordWrite(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	Writes.WithLabelValues(op, result).Inc()
}

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
