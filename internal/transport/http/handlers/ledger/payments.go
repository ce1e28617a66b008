package ledgerhandler

import (
	"encoding/json"
	"net/http"

	"miluim/internal/domain/ledger"
	"miluim/internal/transport/http/api"
	"miluim/internal/transport/http/middleware"
	"miluim/internal/transport/http/shared"
)

type paymentRequest struct {
	EmployeeID   int64       `json:"employeeId" validate:"required,gt=0"`
	DutyPeriodID *int64      `json:"dutyPeriodId" validate:"omitempty,gt=0"`
	Amount       json.Number `json:"amount" validate:"required,decimal"`
	PaymentDate  string      `json:"paymentDate" validate:"required"`
	Reference    string      `json:"reference" validate:"max=100"`
	Notes        string      `json:"notes" validate:"max=1000"`
}

type paymentPatchRequest struct {
	DutyPeriodID    *int64       `json:"dutyPeriodId" validate:"omitempty,gt=0"`
	ClearDutyPeriod bool         `json:"clearDutyPeriod"`
	Amount          *json.Number `json:"amount" validate:"omitempty,decimal"`
	PaymentDate     *string      `json:"paymentDate" validate:"omitempty,min=1"`
	Reference       *string      `json:"reference" validate:"omitempty,max=100"`
	Notes           *string      `json:"notes" validate:"omitempty,max=1000"`
}

func (h *Handler) handleListPayments(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	v := shared.NewValidator()
	filter := ledger.PaymentFilter{
		EmployeeID:   v.ID("employeeId", q.Get("employeeId")),
		DutyPeriodID: v.ID("dutyPeriodId", q.Get("dutyPeriodId")),
		Year:         v.Int("year", q.Get("year"), 1900, 2200),
	}
	if v.Reject(w, requestID) {
		return
	}
	writeList(w, r, h.Ledger.ListPayments(filter))
}

func (h *Handler) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "paymentID")
	if !ok {
		return
	}
	view, err := h.Ledger.GetPayment(id)
	if err != nil {
		shared.FailLedger(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var req paymentRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	v := shared.NewValidator()
	v.Struct(req)
	if v.Reject(w, requestID) {
		return
	}

	payment, err := h.Ledger.AddPayment(r.Context(), ledger.PaymentInput{
		EmployeeID:   req.EmployeeID,
		DutyPeriodID: req.DutyPeriodID,
		Amount:       optionalDecimal(req.Amount),
		PaymentDate:  req.PaymentDate,
		Reference:    req.Reference,
		Notes:        req.Notes,
	})
	if err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	api.Created(w, payment, requestID)
}

func (h *Handler) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, ok := pathID(w, r, "paymentID")
	if !ok {
		return
	}
	var req paymentPatchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	v := shared.NewValidator()
	v.Struct(req)
	if req.ClearDutyPeriod && req.DutyPeriodID != nil {
		v.Add("clearDutyPeriod", "cannot be combined with dutyPeriodId")
	}
	if v.Reject(w, requestID) {
		return
	}

	patch := ledger.PaymentPatch{
		DutyPeriodID:    req.DutyPeriodID,
		ClearDutyPeriod: req.ClearDutyPeriod,
		PaymentDate:     req.PaymentDate,
		Reference:       req.Reference,
		Notes:           req.Notes,
	}
	if req.Amount != nil {
		amount := optionalDecimal(*req.Amount)
		patch.Amount = &amount
	}
	payment, err := h.Ledger.UpdatePayment(r.Context(), id, patch)
	if err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	api.Success(w, payment, requestID)
}

func (h *Handler) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, ok := pathID(w, r, "paymentID")
	if !ok {
		return
	}
	if err := h.Ledger.DeletePayment(r.Context(), id); err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	api.Success(w, map[string]any{"deleted": id}, requestID)
}
