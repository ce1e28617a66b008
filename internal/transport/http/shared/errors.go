package shared

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"miluim/internal/domain/importer"
	"miluim/internal/domain/ledger"
	"miluim/internal/transport/http/api"
)

// FailLedger answers with the status that matches a ledger or importer
// error. Unknown errors are logged and reported as 500.
func FailLedger(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, ledger.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "employee_not_found", err.Error(), requestID)
	case errors.Is(err, ledger.ErrDutyPeriodNotFound):
		api.Fail(w, http.StatusNotFound, "duty_period_not_found", err.Error(), requestID)
	case errors.Is(err, ledger.ErrPaymentNotFound):
		api.Fail(w, http.StatusNotFound, "payment_not_found", err.Error(), requestID)
	case errors.Is(err, ledger.ErrDuplicateNationalID):
		api.Fail(w, http.StatusConflict, "duplicate_national_id", err.Error(), requestID)
	case errors.Is(err, ledger.ErrPeriodEmployeeMismatch):
		api.Fail(w, http.StatusConflict, "period_employee_mismatch", err.Error(), requestID)
	case errors.Is(err, ledger.ErrDateOutsidePeriod),
		errors.Is(err, ledger.ErrInvalidDate),
		errors.Is(err, ledger.ErrInvalidInput):
		api.Fail(w, http.StatusBadRequest, "invalid_input", err.Error(), requestID)
	case importer.IsInputError(err):
		api.Fail(w, http.StatusBadRequest, "invalid_upload", err.Error(), requestID)
	case errors.Is(err, ErrBadBody):
		api.Fail(w, http.StatusBadRequest, "invalid_payload", err.Error(), requestID)
	case errors.Is(err, ledger.ErrClosed):
		api.Fail(w, http.StatusServiceUnavailable, "unavailable", "ledger is shutting down", requestID)
	case errors.Is(err, ledger.ErrPersist):
		zap.L().Error("ledger write failed", zap.Error(err), zap.String("requestId", requestID))
		api.Fail(w, http.StatusInternalServerError, "persist_failed", "changes could not be saved", requestID)
	default:
		zap.L().Error("request failed", zap.Error(err), zap.String("requestId", requestID))
		api.Fail(w, http.StatusInternalServerError, "internal_error", "internal server error", requestID)
	}
}
