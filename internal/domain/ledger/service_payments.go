package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"miluim/internal/domain/dates"
)

type PaymentInput struct {
	EmployeeID   int64
	DutyPeriodID *int64
	Amount       decimal.Decimal
	PaymentDate  string
	Reference    string
	Notes        string
}

// PaymentPatch edits a payment. ClearDutyPeriod detaches it from its
// period; DutyPeriodID attaches it to another one.
type PaymentPatch struct {
	DutyPeriodID    *int64
	ClearDutyPeriod bool
	Amount          *decimal.Decimal
	PaymentDate     *string
	Reference       *string
	Notes           *string
}

// AddPayment always appends. Payments are never merged, even when they
// repeat an earlier one.
func (l *Ledger) AddPayment(ctx context.Context, in PaymentInput) (Payment, error) {
	if !in.Amount.IsPositive() {
		return Payment{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	day, ok := dates.Normalizer{Order: l.opts.DateOrder}.Normalize(in.PaymentDate)
	if !ok {
		return Payment{}, fmt.Errorf("%w: payment date %q", ErrInvalidDate, in.PaymentDate)
	}

	return mutate(ctx, l, func(doc *Document) (Payment, bool, error) {
		if doc.employeeIndex(in.EmployeeID) < 0 {
			return Payment{}, false, ErrEmployeeNotFound
		}
		if err := checkPeriodOwner(doc, in.DutyPeriodID, in.EmployeeID); err != nil {
			return Payment{}, false, err
		}
		p := Payment{
			ID:           doc.nextPaymentID(),
			EmployeeID:   in.EmployeeID,
			DutyPeriodID: copyID(in.DutyPeriodID),
			Amount:       in.Amount,
			PaymentDate:  day,
			Reference:    strings.TrimSpace(in.Reference),
			Notes:        strings.TrimSpace(in.Notes),
			Source:       SourceManual,
			CreatedAt:    l.now(),
		}
		doc.Payments = append(doc.Payments, p)
		return p, true, nil
	})
}

func (l *Ledger) UpdatePayment(ctx context.Context, id int64, patch PaymentPatch) (Payment, error) {
	if patch.Amount != nil && !patch.Amount.IsPositive() {
		return Payment{}, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	var day string
	if patch.PaymentDate != nil {
		var ok bool
		day, ok = dates.Normalizer{Order: l.opts.DateOrder}.Normalize(*patch.PaymentDate)
		if !ok {
			return Payment{}, fmt.Errorf("%w: payment date %q", ErrInvalidDate, *patch.PaymentDate)
		}
	}

	return mutate(ctx, l, func(doc *Document) (Payment, bool, error) {
		i := doc.paymentIndex(id)
		if i < 0 {
			return Payment{}, false, ErrPaymentNotFound
		}
		p := &doc.Payments[i]
		switch {
		case patch.ClearDutyPeriod:
			p.DutyPeriodID = nil
		case patch.DutyPeriodID != nil:
			if err := checkPeriodOwner(doc, patch.DutyPeriodID, p.EmployeeID); err != nil {
				return Payment{}, false, err
			}
			p.DutyPeriodID = copyID(patch.DutyPeriodID)
		}
		if patch.Amount != nil {
			p.Amount = *patch.Amount
		}
		if day != "" {
			p.PaymentDate = day
		}
		if patch.Reference != nil {
			p.Reference = strings.TrimSpace(*patch.Reference)
		}
		if patch.Notes != nil {
			p.Notes = strings.TrimSpace(*patch.Notes)
		}
		return *p, true, nil
	})
}

func (l *Ledger) DeletePayment(ctx context.Context, id int64) error {
	_, err := mutate(ctx, l, func(doc *Document) (struct{}, bool, error) {
		i := doc.paymentIndex(id)
		if i < 0 {
			return struct{}{}, false, ErrPaymentNotFound
		}
		doc.Payments = slices.Delete(doc.Payments, i, i+1)
		return struct{}{}, true, nil
	})
	return err
}

func checkPeriodOwner(doc *Document, periodID *int64, employeeID int64) error {
	if periodID == nil {
		return nil
	}
	i := doc.dutyPeriodIndex(*periodID)
	if i < 0 {
		return ErrDutyPeriodNotFound
	}
	if doc.DutyPeriods[i].EmployeeID != employeeID {
		return ErrPeriodEmployeeMismatch
	}
	return nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
