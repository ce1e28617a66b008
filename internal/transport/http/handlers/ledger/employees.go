package ledgerhandler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"miluim/internal/domain/ledger"
	"miluim/internal/transport/http/api"
	"miluim/internal/transport/http/middleware"
	"miluim/internal/transport/http/shared"
)

type employeeRequest struct {
	NationalID string      `json:"nationalId" validate:"max=32"`
	FirstName  string      `json:"firstName" validate:"required,max=100"`
	LastName   string      `json:"lastName" validate:"max=100"`
	Department string      `json:"department" validate:"max=100"`
	DailyRate  json.Number `json:"dailyRate" validate:"omitempty,decimal"`
	Status     string      `json:"status" validate:"omitempty,oneof=active inactive"`
}

type employeePatchRequest struct {
	NationalID *string      `json:"nationalId" validate:"omitempty,max=32"`
	FirstName  *string      `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName   *string      `json:"lastName" validate:"omitempty,max=100"`
	Department *string      `json:"department" validate:"omitempty,max=100"`
	DailyRate  *json.Number `json:"dailyRate" validate:"omitempty,decimal"`
	Status     *string      `json:"status" validate:"omitempty,oneof=active inactive"`
}

func (h *Handler) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	v := shared.NewValidator()
	filter := ledger.EmployeeFilter{
		Year:       v.Int("year", q.Get("year"), 1900, 2200),
		Department: q.Get("department"),
		Status:     q.Get("status"),
	}
	v.Enum("status", filter.Status, ledger.EmployeeStatuses, "must be active or inactive")
	if v.Reject(w, requestID) {
		return
	}
	writeList(w, r, h.Ledger.ListEmployees(filter))
}

func (h *Handler) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "employeeID")
	if !ok {
		return
	}
	detail, err := h.Ledger.GetEmployee(id)
	if err != nil {
		shared.FailLedger(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, detail, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var req employeeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	v := shared.NewValidator()
	v.Struct(req)
	if v.Reject(w, requestID) {
		return
	}

	emp, err := h.Ledger.AddEmployee(r.Context(), ledger.EmployeeInput{
		NationalID: req.NationalID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Department: req.Department,
		DailyRate:  optionalDecimal(req.DailyRate),
		Status:     req.Status,
	})
	if err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	api.Created(w, emp, requestID)
}

func (h *Handler) handleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, ok := pathID(w, r, "employeeID")
	if !ok {
		return
	}
	var req employeePatchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	v := shared.NewValidator()
	v.Struct(req)
	if v.Reject(w, requestID) {
		return
	}

	patch := ledger.EmployeePatch{
		NationalID: req.NationalID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Department: req.Department,
		Status:     req.Status,
	}
	if req.DailyRate != nil {
		rate := optionalDecimal(*req.DailyRate)
		patch.DailyRate = &rate
	}
	emp, err := h.Ledger.UpdateEmployee(r.Context(), id, patch)
	if err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	api.Success(w, emp, requestID)
}

func (h *Handler) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, ok := pathID(w, r, "employeeID")
	if !ok {
		return
	}
	removed, err := h.Ledger.DeleteEmployee(r.Context(), id)
	if err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	api.Success(w, map[string]any{"deleted": id, "cascade": removed}, requestID)
}

// optionalDecimal converts a validated number. Empty means zero.
func optionalDecimal(n json.Number) decimal.Decimal {
	if n == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero
	}
	return d
}
