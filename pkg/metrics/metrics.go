package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scanner_scans_total", Help: "Scan cycles by result"},
		[]string{"result"},
	)
	AcquisitionAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scanner_acquisition_attempts_total", Help: "Snapshot acquisition attempts by classification"},
		[]string{"outcome"},
	)
	EventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "scanner_events_total", Help: "Strategy events emitted"},
		[]string{"type", "side"},
	)
	ProviderResets = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "scanner_provider_resets_total", Help: "Provider re-creations after repeated failures"},
	)
	NotificationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "scanner_notification_failures_total", Help: "Notifications that could not be delivered"},
	)
	ConsecutiveFailures = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "scanner_consecutive_failures", Help: "Current run of failed acquisitions"},
	)
	OpenPosition = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "scanner_open_position", Help: "1 while a simulated position is open"},
	)
	ConsecutiveTargets = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "scanner_consecutive_targets", Help: "Consecutive target exits per side"},
		[]string{"side"},
	)
)

func init() {
	prometheus.MustRegister(
		ScansTotal,
		AcquisitionAttempts,
		EventsTotal,
		ProviderResets,
		NotificationFailures,
		ConsecutiveFailures,
		OpenPosition,
		ConsecutiveTargets,
	)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
