package metrics

import (
	"net/http"

	"github.com/FayezAlshami/DTC/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager holds the service's Prometheus metrics on a private registry.
type Manager struct {
	Registry *prometheus.Registry

	ListingsSubmittedTotal  prometheus.Counter
	ListingsPublishedTotal  prometheus.Counter
	ListingsRejectedTotal   prometheus.Counter
	ListingsMatchedTotal    prometheus.Counter
	NegotiationsTotal       *prometheus.CounterVec
	EffectDispatchesTotal   *prometheus.CounterVec
	CommandErrorsTotal      *prometheus.CounterVec
	CommandLatencySeconds   *prometheus.HistogramVec
}

func NewManager(serviceName string) *Manager {
	registry := prometheus.NewRegistry()

	m := &Manager{
		Registry: registry,
		ListingsSubmittedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "listings_submitted_total",
			Help:      "Total number of listings submitted for moderation.",
		}),
		ListingsPublishedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "listings_published_total",
			Help:      "Total number of listings approved and published.",
		}),
		ListingsRejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "listings_rejected_total",
			Help:      "Total number of listings rejected by moderation.",
		}),
		ListingsMatchedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "listings_matched_total",
			Help:      "Total number of listings matched through an accepted negotiation.",
		}),
		NegotiationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "negotiations_total",
			Help:      "Total number of negotiation operations by outcome.",
		}, []string{"outcome"}),
		EffectDispatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "effect_dispatches_total",
			Help:      "Total number of side-effect dispatches by effect and result.",
		}, []string{"effect", "result"}),
		CommandErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Name:      "command_errors_total",
			Help:      "Total number of command errors by command and error type.",
		}, []string{"command", "error_type"}),
		CommandLatencySeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Name:      "command_latency_seconds",
			Help:      "Latency of marketplace commands.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"command"}),
	}

	registry.MustRegister(
		m.ListingsSubmittedTotal,
		m.ListingsPublishedTotal,
		m.ListingsRejectedTotal,
		m.ListingsMatchedTotal,
		m.NegotiationsTotal,
		m.EffectDispatchesTotal,
		m.CommandErrorsTotal,
		m.CommandLatencySeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// StartServer exposes the registry on /metrics. Blocks.
func StartServer(port string, log logger.Logger, registry *prometheus.Registry) error {
	if port == "" {
		log.Info("Prometheus metrics server port not configured, server will not start")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	log.Infof("Prometheus metrics server starting on port %s", port)

	server := &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}
	return server.ListenAndServe()
}
