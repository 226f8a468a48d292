package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medadhere_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"route", "method"},
	)

	DosesLogged = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medadhere_doses_logged_total",
			Help: "Total dose events logged",
		},
		[]string{"status"},
	)

	IdentificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medadhere_identifications_total",
			Help: "Total pill identification attempts",
		},
		[]string{"result"},
	)

	IdentificationConfidence = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medadhere_identification_confidence",
			Help:    "Pill identification confidence scores",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
		},
	)

	IngestionChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medadhere_ingestion_checks_total",
			Help: "Total ingestion detection checks",
		},
		[]string{"result"},
	)

	AlertsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medadhere_caregiver_alerts_total",
			Help: "Total caregiver alerts sent",
		},
		[]string{"severity"},
	)

	AdherenceReportDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medadhere_report_duration_seconds",
			Help:    "Adherence report generation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	DrugLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medadhere_drug_lookups_total",
			Help: "Total external drug database lookups",
		},
		[]string{"source", "status"},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medadhere_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medadhere_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)

	WebSocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "medadhere_websocket_connections",
			Help: "Active WebSocket event subscribers",
		},
	)
)

func Init() {
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DosesLogged)
	prometheus.MustRegister(IdentificationsTotal)
	prometheus.MustRegister(IdentificationConfidence)
	prometheus.MustRegister(IngestionChecks)
	prometheus.MustRegister(AlertsSent)
	prometheus.MustRegister(AdherenceReportDuration)
	prometheus.MustRegister(DrugLookups)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
	prometheus.MustRegister(WebSocketConnections)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
