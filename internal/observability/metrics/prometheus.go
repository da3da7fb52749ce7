package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/arx-deidentifier/gta-benchmark/pkg/constants"
)

// Decision outcomes
const (
	OutcomeSafe           = "safe"
	OutcomeUnsafe         = "unsafe"
	OutcomePopulationOnly = "population_only"
	OutcomeNoAttack       = "naive_no_attack"
)

// PrometheusMetrics counts anonymity decisions and times metric evaluations.
// All recording methods are safe on a nil receiver.
type PrometheusMetrics struct {
	logger   *logrus.Logger
	registry *prometheus.Registry
	server   *http.Server
	config   *PrometheusConfig

	decisionsTotal           *prometheus.CounterVec
	invariantViolationsTotal *prometheus.CounterVec
	evaluationDuration       *prometheus.HistogramVec
	classesEvaluatedTotal    *prometheus.CounterVec
	partitionsTotal          *prometheus.CounterVec
}

// PrometheusConfig configures Prometheus metrics
type PrometheusConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Port      int    `json:"port" mapstructure:"port"`
	Path      string `json:"path" mapstructure:"path"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
}

// NewPrometheusMetrics creates the metrics on a private registry
func NewPrometheusMetrics(config *PrometheusConfig, logger *logrus.Logger) (*PrometheusMetrics, error) {
	if config == nil {
		config = getDefaultPrometheusConfig()
	}

	if logger == nil {
		logger = logrus.New()
	}

	if config.Namespace == "" {
		config.Namespace = constants.DefaultMetricsNamespace
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	pm := &PrometheusMetrics{
		logger:   logger,
		registry: registry,
		config:   config,

		decisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "decisions_total",
			Help:      "Anonymity decisions by attacker model and outcome",
		}, []string{"attacker_model", "outcome"}),

		invariantViolationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "invariant_violations_total",
			Help:      "Internal consistency violations that aborted an evaluation",
		}, []string{"code"}),

		evaluationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of scoring one partition",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"attacker_model"}),

		classesEvaluatedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "classes_evaluated_total",
			Help:      "Equivalence classes scored by the payout metric",
		}, []string{"attacker_model"}),

		partitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "partitions_total",
			Help:      "Partitions scored by batch evaluations by status",
		}, []string{"status"}),
	}

	return pm, nil
}

// Registry returns the registry the metrics are registered with
func (pm *PrometheusMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// Start serves the registry over HTTP until Stop is called
func (pm *PrometheusMetrics) Start(ctx context.Context) error {
	if !pm.config.Enabled {
		pm.logger.Info("Prometheus metrics disabled")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(pm.config.Path, promhttp.HandlerFor(pm.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))

	pm.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", pm.config.Port),
		Handler: mux,
	}

	pm.logger.WithFields(logrus.Fields{
		"port": pm.config.Port,
		"path": pm.config.Path,
	}).Info("Starting Prometheus metrics server")

	go func() {
		if err := pm.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			pm.logger.WithError(err).Error("Prometheus metrics server error")
		}
	}()

	return nil
}

// Stop stops the Prometheus metrics server
func (pm *PrometheusMetrics) Stop(ctx context.Context) error {
	if pm == nil || pm.server == nil {
		return nil
	}

	pm.logger.Info("Stopping Prometheus metrics server")
	return pm.server.Shutdown(ctx)
}

// RecordDecision counts one anonymity decision
func (pm *PrometheusMetrics) RecordDecision(attackerModel, outcome string) {
	if pm != nil {
		pm.decisionsTotal.WithLabelValues(attackerModel, outcome).Inc()
	}
}

// RecordInvariantViolation counts an aborted evaluation
func (pm *PrometheusMetrics) RecordInvariantViolation(code string) {
	if pm != nil {
		pm.invariantViolationsTotal.WithLabelValues(code).Inc()
	}
}

// ObserveEvaluation records the scoring of one partition
func (pm *PrometheusMetrics) ObserveEvaluation(attackerModel string, classes int, d time.Duration) {
	if pm != nil {
		pm.evaluationDuration.WithLabelValues(attackerModel).Observe(d.Seconds())
		pm.classesEvaluatedTotal.WithLabelValues(attackerModel).Add(float64(classes))
	}
}

// RecordPartition counts a partition processed by a batch evaluation
func (pm *PrometheusMetrics) RecordPartition(status string) {
	if pm != nil {
		pm.partitionsTotal.WithLabelValues(status).Inc()
	}
}

func getDefaultPrometheusConfig() *PrometheusConfig {
	return &PrometheusConfig{
		Enabled:   false,
		Port:      constants.DefaultMetricsPort,
		Path:      constants.DefaultMetricsPath,
		Namespace: constants.DefaultMetricsNamespace,
	}
}

// DefaultPrometheusConfig returns the default metrics configuration
func DefaultPrometheusConfig() *PrometheusConfig {
	return getDefaultPrometheusConfig()
}
