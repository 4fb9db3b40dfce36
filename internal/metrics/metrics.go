package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"

	"lanta-sber-sender/internal/config"
)

// RunMetrics batch-job gauges pushed to a Pushgateway once per run.
// The process exits right after, so nothing is exposed for scraping.
type RunMetrics struct {
	registry *prometheus.Registry

	patients    prometheus.Gauge
	rows        prometheus.Gauge
	duration    prometheus.Gauge
	success     prometheus.Gauge
	lastSuccess prometheus.Gauge

	url    string
	job    string
	logger *zap.Logger
}

// New registers the run gauges on a private registry
func New(cfg config.MetricsConfig, logger *zap.Logger) *RunMetrics {
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		patients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lanta_report",
			Name:      "patients",
			Help:      "Patients with an active monitoring contract in the last run",
		}),
		rows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lanta_report",
			Name:      "rows",
			Help:      "Report rows produced by the last run",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lanta_report",
			Name:      "duration_seconds",
			Help:      "Wall time of the last run",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lanta_report",
			Name:      "last_run_success",
			Help:      "1 if the last run completed, 0 if it failed",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lanta_report",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last completed run",
		}),
		url:    cfg.PushgatewayURL,
		job:    cfg.Job,
		logger: logger,
	}
	m.registry.MustRegister(m.patients, m.rows, m.duration, m.success, m.lastSuccess)
	return m
}

// Observe records the outcome of a run that finished at end
func (m *RunMetrics) Observe(patients, rows int, duration time.Duration, end time.Time, runErr error) {
	m.patients.Set(float64(patients))
	m.rows.Set(float64(rows))
	m.duration.Set(duration.Seconds())
	if runErr != nil {
		m.success.Set(0)
		return
	}
	m.success.Set(1)
	m.lastSuccess.Set(float64(end.Unix()))
}

// Enabled reports whether a Pushgateway is configured
func (m *RunMetrics) Enabled() bool {
	return m.url != ""
}

// Push sends the gauges to the Pushgateway; no-op when none is configured
func (m *RunMetrics) Push(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	if err := push.New(m.url, m.job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", m.url, err)
	}
	m.logger.Debug("Metrics pushed", zap.String("pushgateway", m.url), zap.String("job", m.job))
	return nil
}
