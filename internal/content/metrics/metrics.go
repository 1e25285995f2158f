// Package metrics exposes counters for the content feature.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cic_content_writes_total",
		Help: "Content records written, by kind and operation.",
	}, []string{"kind", "op"})

	renderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cic_content_render_failures_total",
		Help: "Markdown bodies that failed to render to HTML.",
	})
)

func IncWrite(kind, op string) {
	recordWrites.WithLabelValues(kind, op).Inc()
}

func IncRenderFailure() {
	renderFailures.Inc()
}
