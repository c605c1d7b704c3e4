package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersCreated      prometheus.Counter
	TokensIssued      prometheus.Counter
	AuthFailures      prometheus.Counter
	CredentialsIssued prometheus.Counter
	Verifications     *prometheus.CounterVec
	LedgerAttestation *prometheus.CounterVec
	EndpointLatency   *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_users_created_total",
			Help: "Total number of users registered",
		}),
		TokensIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_tokens_issued_total",
			Help: "Total number of access tokens issued",
		}),
		AuthFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_auth_failures_total",
			Help: "Total number of authentication failures",
		}),
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_credentials_issued_total",
			Help: "Total number of credentials issued",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certledger_verifications_total",
			Help: "Total number of verification requests, labeled by verdict",
		}, []string{"verdict"}),
		LedgerAttestation: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certledger_ledger_attestations_total",
			Help: "Total number of ledger attestation attempts, labeled by operation and outcome",
		}, []string{"operation", "outcome"}),
		EndpointLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certledger_endpoint_latency_seconds",
			Help:    "Latency of endpoints in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}
