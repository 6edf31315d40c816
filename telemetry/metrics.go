// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	ReconcilesTotal      prometheus.Counter
	ReconcilesAbandoned  prometheus.Counter // member absent from the guild
	ReconcileErrors      prometheus.Counter
	TeamsProvisioned     prometheus.Counter
	WebhookRequests      prometheus.Counter
	WebhookAuthFailures  prometheus.Counter
	BulkCheckItemErrors  prometheus.Counter

	// Histograms (seconds)
	ReconcileDuration prometheus.Observer
	ProvisionDuration prometheus.Observer

	// Gauges
	KnownTeamsGauge prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		ReconcilesTotal = promauto.NewCounter(prometheus.CounterOpts{Name: "teamsync_reconciles_total", Help: "Number of membership reconciliations performed"})
		ReconcilesAbandoned = promauto.NewCounter(prometheus.CounterOpts{Name: "teamsync_reconciles_abandoned_total", Help: "Number of reconciliations abandoned because the member was not in the guild"})
		ReconcileErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "teamsync_reconcile_errors_total", Help: "Number of reconciliations that failed"})
		TeamsProvisioned = promauto.NewCounter(prometheus.CounterOpts{Name: "teamsync_teams_provisioned_total", Help: "Number of team role/channel pairs created"})
		WebhookRequests = promauto.NewCounter(prometheus.CounterOpts{Name: "teamsync_webhook_requests_total", Help: "Number of membership webhook deliveries received"})
		WebhookAuthFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "teamsync_webhook_auth_failures_total", Help: "Number of webhook deliveries rejected for a bad bearer token"})
		BulkCheckItemErrors = promauto.NewCounter(prometheus.CounterOpts{Name: "teamsync_bulk_check_item_errors_total", Help: "Number of per-member failures skipped during a bulk check"})
		ReconcileDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "teamsync_reconcile_duration_seconds", Help: "Reconciliation duration seconds", Buckets: prometheus.DefBuckets})
		ProvisionDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "teamsync_provision_duration_seconds", Help: "Team provisioning duration seconds", Buckets: prometheus.DefBuckets})
		KnownTeamsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "teamsync_known_teams", Help: "Number of teams with a persisted provisioning record"})
	})
}

// SetKnownTeams records the current provisioning record count.
func SetKnownTeams(n int) {
	if KnownTeamsGauge != nil {
		KnownTeamsGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with a corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
