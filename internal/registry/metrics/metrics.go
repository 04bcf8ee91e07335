package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the registry engine.
type Metrics struct {
	InstitutionsRegistered  prometheus.Counter
	InstitutionsDeactivated prometheus.Counter
	CertificatesIssued      prometheus.Counter
	CertificatesRevoked     prometheus.Counter
	Verifications           *prometheus.CounterVec
	RejectedMutations       *prometheus.CounterVec
}

// New creates and registers all registry metrics.
func New() *Metrics {
	return &Metrics{
		InstitutionsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_institutions_registered_total",
			Help: "Total number of institutions registered",
		}),
		InstitutionsDeactivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_institutions_deactivated_total",
			Help: "Total number of institution deactivations applied",
		}),
		CertificatesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_certificates_issued_total",
			Help: "Total number of certificates issued",
		}),
		CertificatesRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "certledger_certificates_revoked_total",
			Help: "Total number of certificate revocations applied",
		}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certledger_verifications_total",
			Help: "Verification verdicts by outcome",
		}, []string{"outcome"}),
		RejectedMutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "certledger_rejected_mutations_total",
			Help: "Mutations rejected before any state change, by error code",
		}, []string{"code"}),
	}
}

func (m *Metrics) RecordVerification(valid bool) {
	if m == nil {
		return
	}
	outcome := "valid"
	if !valid {
		outcome = "invalid"
	}
	m.Verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordRejection(code string) {
	if m == nil {
		return
	}
	m.RejectedMutations.WithLabelValues(code).Inc()
}
