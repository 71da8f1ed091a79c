package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveConnections *prometheus.GaugeVec
	Commands          *prometheus.CounterVec
	VoiceEvents       *prometheus.CounterVec
	ProviderErrors    *prometheus.CounterVec
	DeployPolls       prometheus.Counter
	DeployDuration    prometheus.Histogram
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveConnections: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of open websocket connections by path.",
		}, []string{"path"}),
		Commands: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Pipeline commands by action and outcome.",
		}, []string{"action", "outcome"}),
		VoiceEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_events_total",
			Help:      "Voice relay events by type.",
		}, []string{"event"}),
		ProviderErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Remote provider errors by provider and code.",
		}, []string{"provider", "code"}),
		DeployPolls: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deploy_polls_total",
			Help:      "Deployment status fetches issued while polling.",
		}),
		DeployDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "deploy_duration_seconds",
			Help:      "Wall-clock time from deployment trigger to terminal state.",
			Buckets:   []float64{5, 10, 20, 30, 60, 90, 120, 180},
		}),
	}
}

func (m *Metrics) ObserveDeployDuration(d time.Duration) {
	m.DeployDuration.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
