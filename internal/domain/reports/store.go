package reports

import "miluim/internal/domain/ledger"

// Source is the read side of the ledger that reports are built from.
type Source interface {
	ListDutyPeriods(f ledger.DutyFilter) []ledger.DutyPeriodView
	ListPayments(f ledger.PaymentFilter) []ledger.PaymentView
}
