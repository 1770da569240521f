package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes recorded by MessagesTotal.
const (
	OutcomeHandled      = "handled"
	OutcomeDecodeError  = "decode_error"
	OutcomeHandlerError = "handler_error"
)

// InvalidType labels inbound lines whose type could not be decoded.
const InvalidType = "invalid"

var (
	Registry = prometheus.NewRegistry()

	MessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "messages_total",
			Help:      "Inbound messages by type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	OutboundTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relay",
			Name:      "outbound_total",
			Help:      "Messages written by this node, by type.",
		},
		[]string{"type"},
	)

	HandleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relay",
			Name:      "handle_duration_seconds",
			Help:      "Time spent handling one inbound message.",
			// 10us .. ~160ms
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 15),
		},
		[]string{"type"},
	)

	Values = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "relay",
			Name:      "values",
			Help:      "Number of values held by the broadcast store.",
		},
	)

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "relay",
			Name:      "build_info",
			Help:      "Build info (constant 1, labeled by version and git_sha).",
		},
		[]string{"version", "git_sha"},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "relay",
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(MessagesTotal, OutboundTotal, HandleDuration, Values, buildInfo, uptime)
}

// MetricsHandler exposes the registry. Mount it with mux.Handle("/metrics", telemetry.MetricsHandler()).
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetBuildInfo should be called once at startup.
func SetBuildInfo(version, gitSHA string) {
	buildInfo.WithLabelValues(version, gitSHA).Set(1)
}
