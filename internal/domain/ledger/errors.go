package ledger

import "errors"

var (
	ErrEmployeeNotFound       = errors.New("employee not found")
	ErrDutyPeriodNotFound     = errors.New("duty period not found")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrDuplicateNationalID    = errors.New("an employee with this national id already exists")
	ErrPeriodEmployeeMismatch = errors.New("duty period belongs to another employee")
	ErrDateOutsidePeriod      = errors.New("date falls outside the duty period month")
	ErrInvalidDate            = errors.New("invalid date")
	ErrInvalidInput           = errors.New("invalid input")
	ErrPersist                = errors.New("ledger could not be persisted")
	ErrClosed                 = errors.New("ledger is closed")
	ErrCorruptDocument        = errors.New("ledger document is inconsistent")
	ErrUnsupportedFormat      = errors.New("unsupported ledger document format")
)
