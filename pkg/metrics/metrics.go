package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	AccountOperations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "account_operations_total",
		Help: "Account lifecycle operations by operation and outcome.",
	}, []string{"operation", "outcome"})

	OrphanedIdentities = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "account_orphaned_identities_total",
		Help: "Identities left without a profile after a failed compensation.",
	})

	IdentityDeletedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "identity_deleted_events_total",
		Help: "Identity deletion events handled by the profile cleanup trigger.",
	}, []string{"outcome"})
)

// Register registers the collectors on reg (or the default registerer when nil).
// Registering twice is not an error.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{AccountOperations, OrphanedIdentities, IdentityDeletedEvents} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				return err
			}
		}
	}
	return nil
}

// Outcome returns the outcome label for err.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
