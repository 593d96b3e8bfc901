package service

import "time"

// Metrics receives operation outcomes from the services. A nil Metrics is
// valid and records nothing.
type Metrics interface {
	LedgerAdjustment(op, outcome string)
	SagaOutcome(outcome string)
	ObserveStore(op string, d time.Duration)
}

const (
	OutcomeOK           = "ok"
	OutcomeInsufficient = "insufficient"
	OutcomeError        = "error"

	SagaCommitted   = "committed"
	SagaCompensated = "compensated"
	SagaOrphaned    = "orphaned"
)

type nopMetrics struct{}

func (nopMetrics) LedgerAdjustment(string, string)    {}
func (nopMetrics) SagaOutcome(string)                 {}
func (nopMetrics) ObserveStore(string, time.Duration) {}
