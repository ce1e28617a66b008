package importer

import "errors"

var (
	ErrMissingColumns     = errors.New("required columns not found")
	ErrInvalidGrouping    = errors.New("invalid grouping")
	ErrVocabulary         = errors.New("invalid header vocabulary")
	ErrEmptyWorkbook      = errors.New("workbook has no rows")
	ErrUnreadableWorkbook = errors.New("workbook could not be read")

	ErrMissingName     = errors.New("missing employee name")
	ErrMissingIdentity = errors.New("missing employee name and national id")
	ErrInvalidDate     = errors.New("date is missing or not recognized")
	ErrInvalidRange    = errors.New("end date is before start date")
	ErrNotDuty         = errors.New("row is not marked as reserve duty")
	ErrInvalidAmount   = errors.New("amount is missing or not positive")
)
