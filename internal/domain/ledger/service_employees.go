package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

type EmployeeInput struct {
	NationalID string
	FirstName  string
	LastName   string
	Department string
	DailyRate  decimal.Decimal
	Status     string
}

type EmployeePatch struct {
	NationalID *string
	FirstName  *string
	LastName   *string
	Department *string
	DailyRate  *decimal.Decimal
	Status     *string
}

// DeleteResult counts the records removed along with an entity.
type DeleteResult struct {
	DutyPeriods int `json:"dutyPeriods"`
	Payments    int `json:"payments"`
}

func (l *Ledger) AddEmployee(ctx context.Context, in EmployeeInput) (Employee, error) {
	in.NationalID = strings.TrimSpace(in.NationalID)
	in.FirstName = nameKey(in.FirstName)
	in.LastName = nameKey(in.LastName)
	in.Department = strings.TrimSpace(in.Department)
	if in.FirstName == "" {
		return Employee{}, fmt.Errorf("%w: first name is required", ErrInvalidInput)
	}
	if in.LastName == "" {
		in.LastName = in.FirstName
	}
	if in.DailyRate.IsNegative() {
		return Employee{}, fmt.Errorf("%w: daily rate must not be negative", ErrInvalidInput)
	}
	if !in.DailyRate.IsPositive() {
		in.DailyRate = l.opts.DefaultRate
	}
	if in.Status == "" {
		in.Status = EmployeeActive
	}
	if !slices.Contains(EmployeeStatuses, in.Status) {
		return Employee{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}

	return mutate(ctx, l, func(doc *Document) (Employee, bool, error) {
		if in.NationalID != "" && nationalIDTaken(doc, in.NationalID, 0) {
			return Employee{}, false, ErrDuplicateNationalID
		}
		now := l.now()
		e := Employee{
			ID:         doc.nextEmployeeID(),
			NationalID: in.NationalID,
			FirstName:  in.FirstName,
			LastName:   in.LastName,
			Department: in.Department,
			DailyRate:  in.DailyRate,
			Status:     in.Status,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		doc.Employees = append(doc.Employees, e)
		return e, true, nil
	})
}

// UpdateEmployee edits an employee. Existing duty periods keep the rate
// they were priced with.
func (l *Ledger) UpdateEmployee(ctx context.Context, id int64, patch EmployeePatch) (Employee, error) {
	if patch.DailyRate != nil && patch.DailyRate.IsNegative() {
		return Employee{}, fmt.Errorf("%w: daily rate must not be negative", ErrInvalidInput)
	}
	if patch.Status != nil && !slices.Contains(EmployeeStatuses, *patch.Status) {
		return Employee{}, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, *patch.Status)
	}
	if patch.FirstName != nil && nameKey(*patch.FirstName) == "" {
		return Employee{}, fmt.Errorf("%w: first name must not be empty", ErrInvalidInput)
	}

	return mutate(ctx, l, func(doc *Document) (Employee, bool, error) {
		i := doc.employeeIndex(id)
		if i < 0 {
			return Employee{}, false, ErrEmployeeNotFound
		}
		e := &doc.Employees[i]
		if patch.NationalID != nil {
			nid := strings.TrimSpace(*patch.NationalID)
			if nid != "" && nationalIDTaken(doc, nid, id) {
				return Employee{}, false, ErrDuplicateNationalID
			}
			e.NationalID = nid
		}
		if patch.FirstName != nil {
			e.FirstName = nameKey(*patch.FirstName)
		}
		if patch.LastName != nil {
			e.LastName = nameKey(*patch.LastName)
		}
		if patch.Department != nil {
			e.Department = strings.TrimSpace(*patch.Department)
		}
		if patch.DailyRate != nil {
			e.DailyRate = *patch.DailyRate
		}
		if patch.Status != nil {
			e.Status = *patch.Status
		}
		e.UpdatedAt = l.now()
		return *e, true, nil
	})
}

// DeleteEmployee removes an employee with all of its duty periods and
// payments in one step.
func (l *Ledger) DeleteEmployee(ctx context.Context, id int64) (DeleteResult, error) {
	return mutate(ctx, l, func(doc *Document) (DeleteResult, bool, error) {
		i := doc.employeeIndex(id)
		if i < 0 {
			return DeleteResult{}, false, ErrEmployeeNotFound
		}
		doc.Employees = slices.Delete(doc.Employees, i, i+1)

		var res DeleteResult
		doc.DutyPeriods = slices.DeleteFunc(doc.DutyPeriods, func(p DutyPeriod) bool {
			if p.EmployeeID == id {
				res.DutyPeriods++
				return true
			}
			return false
		})
		doc.Payments = slices.DeleteFunc(doc.Payments, func(p Payment) bool {
			if p.EmployeeID == id {
				res.Payments++
				return true
			}
			return false
		})
		return res, true, nil
	})
}

func nationalIDTaken(doc *Document, nationalID string, except int64) bool {
	key := idKey(nationalID)
	for _, e := range doc.Employees {
		if e.ID != except && e.NationalID != "" && idKey(e.NationalID) == key {
			return true
		}
	}
	return false
}
