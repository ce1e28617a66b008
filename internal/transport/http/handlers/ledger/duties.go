package ledgerhandler

import (
	"encoding/json"
	"net/http"

	"miluim/internal/domain/ledger"
	"miluim/internal/transport/http/api"
	"miluim/internal/transport/http/middleware"
	"miluim/internal/transport/http/shared"
)

type dutyRequest struct {
	EmployeeID int64       `json:"employeeId" validate:"required,gt=0"`
	Dates      []string    `json:"dates" validate:"max=366,dive,required"`
	StartDate  string      `json:"startDate" validate:"required_with=EndDate"`
	EndDate    string      `json:"endDate" validate:"required_with=StartDate"`
	DailyRate  json.Number `json:"dailyRate" validate:"omitempty,decimal"`
	Status     string      `json:"status" validate:"omitempty,oneof=pending submitted approved rejected"`
	Notes      string      `json:"notes" validate:"max=1000"`
}

type dutyPatchRequest struct {
	Dates     *[]string    `json:"dates" validate:"omitempty,max=31,dive,required"`
	DailyRate *json.Number `json:"dailyRate" validate:"omitempty,decimal"`
	Status    *string      `json:"status" validate:"omitempty,oneof=pending submitted approved rejected"`
	Notes     *string      `json:"notes" validate:"omitempty,max=1000"`
}

func (h *Handler) handleListDuties(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	v := shared.NewValidator()
	filter := ledger.DutyFilter{
		Year:          v.Int("year", q.Get("year"), 1900, 2200),
		Month:         v.Int("month", q.Get("month"), 1, 12),
		EmployeeID:    v.ID("employeeId", q.Get("employeeId")),
		Department:    q.Get("department"),
		PaymentStatus: q.Get("status"),
		From:          v.Month("from", q.Get("from")),
		To:            v.Month("to", q.Get("to")),
	}
	v.Enum("status", filter.PaymentStatus, ledger.PaymentStatuses, "must be paid, partial or pending")
	if v.Reject(w, requestID) {
		return
	}
	writeList(w, r, h.Ledger.ListDutyPeriods(filter))
}

func (h *Handler) handleGetDuty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "dutyID")
	if !ok {
		return
	}
	view, err := h.Ledger.GetDutyPeriod(id)
	if err != nil {
		shared.FailLedger(w, err, middleware.GetRequestID(r.Context()))
		return
	}
	api.Success(w, view, middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateDuty(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var req dutyRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	v := shared.NewValidator()
	v.Struct(req)
	if len(req.Dates) == 0 && req.StartDate == "" {
		v.Add("dates", "dates or startDate and endDate are required")
	}
	if v.Reject(w, requestID) {
		return
	}

	results, err := h.Ledger.AddDutyPeriods(r.Context(), ledger.DutyInput{
		EmployeeID: req.EmployeeID,
		Dates:      req.Dates,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		DailyRate:  optionalDecimal(req.DailyRate),
		Status:     req.Status,
		Notes:      req.Notes,
	})
	if err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	api.Created(w, results, requestID)
}

func (h *Handler) handleUpdateDuty(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, ok := pathID(w, r, "dutyID")
	if !ok {
		return
	}
	var req dutyPatchRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	v := shared.NewValidator()
	v.Struct(req)
	if v.Reject(w, requestID) {
		return
	}

	patch := ledger.DutyPatch{Dates: req.Dates, Status: req.Status, Notes: req.Notes}
	if req.DailyRate != nil {
		rate := optionalDecimal(*req.DailyRate)
		patch.DailyRate = &rate
	}
	period, err := h.Ledger.UpdateDutyPeriod(r.Context(), id, patch)
	if err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	api.Success(w, period, requestID)
}

func (h *Handler) handleDeleteDuty(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	id, ok := pathID(w, r, "dutyID")
	if !ok {
		return
	}
	payments, err := h.Ledger.DeleteDutyPeriod(r.Context(), id)
	if err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	api.Success(w, map[string]any{"deleted": id, "cascade": ledger.DeleteResult{Payments: payments}}, requestID)
}
