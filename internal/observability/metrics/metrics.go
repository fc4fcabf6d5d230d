// Package metrics exposes the service's prometheus counters.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	WebhookOutcomeAccepted = "accepted"
	WebhookOutcomeRejected = "rejected"
	WebhookOutcomeFailed   = "failed"
)

const (
	EntitlementResultLocal  = "local"
	EntitlementResultRemote = "remote"
	EntitlementResultMiss   = "miss"
	EntitlementResultError  = "error"
)

// Config carries the const labels stamped onto every series.
type Config struct {
	ServiceName string
	Environment string
}

// IngestMetrics captures webhook ingestion and entitlement lookup signals.
type IngestMetrics struct {
	webhookEvents      *prometheus.CounterVec
	entitlementLookups *prometheus.CounterVec
}

var (
	ingestMetricsOnce sync.Once
	ingestMetrics     *IngestMetrics
)

// Ingest returns the singleton ingestion metrics registry.
func Ingest() *IngestMetrics {
	return IngestWithConfig(Config{})
}

// IngestWithConfig returns the singleton ingestion metrics registry using config labels.
func IngestWithConfig(cfg Config) *IngestMetrics {
	ingestMetricsOnce.Do(func() {
		ingestMetrics = newIngestMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return ingestMetrics
}

// ResetIngestMetricsForTest resets the ingestion metrics singleton for tests.
func ResetIngestMetricsForTest() {
	ingestMetricsOnce = sync.Once{}
	ingestMetrics = nil
}

func newIngestMetrics(registerer prometheus.Registerer, cfg Config) *IngestMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "coursegate"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "coursegate_webhook_events_total",
		Help:        "Webhook deliveries by provider and processing outcome.",
		ConstLabels: constLabels,
	}, []string{"provider", "outcome"})
	entitlementLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:        "coursegate_entitlement_lookups_total",
		Help:        "Entitlement checks by resolution path.",
		ConstLabels: constLabels,
	}, []string{"result"})

	registerer.MustRegister(
		webhookEvents,
		entitlementLookups,
	)

	return &IngestMetrics{
		webhookEvents:      webhookEvents,
		entitlementLookups: entitlementLookups,
	}
}

// IncWebhookEvent increments the webhook delivery counter.
func (m *IngestMetrics) IncWebhookEvent(provider, outcome string) {
	if m == nil || m.webhookEvents == nil {
		return
	}
	m.webhookEvents.WithLabelValues(provider, outcome).Inc()
}

// IncEntitlementLookup increments the entitlement check counter.
func (m *IngestMetrics) IncEntitlementLookup(result string) {
	if m == nil || m.entitlementLookups == nil {
		return
	}
	m.entitlementLookups.WithLabelValues(result).Inc()
}
