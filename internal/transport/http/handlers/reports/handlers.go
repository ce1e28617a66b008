package reportshandler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"miluim/internal/domain/ledger"
	"miluim/internal/domain/reports"
	"miluim/internal/transport/http/api"
	"miluim/internal/transport/http/middleware"
	"miluim/internal/transport/http/shared"
)

const (
	contentTypePDF  = "application/pdf"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Handler struct {
	Service *reports.Service
}

func NewHandler(svc *reports.Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/reconciliation", h.handleReconciliation)
	})
}

func (h *Handler) handleReconciliation(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	v := shared.NewValidator()
	format, err := reports.ParseFormat(q.Get("format"))
	if err != nil {
		v.Add("format", "must be json, pdf or xlsx")
	}
	filter := reports.Filter{
		Year:          v.Int("year", q.Get("year"), 1900, 2200),
		Month:         v.Int("month", q.Get("month"), 1, 12),
		EmployeeID:    v.ID("employeeId", q.Get("employeeId")),
		Department:    q.Get("department"),
		PaymentStatus: q.Get("status"),
		From:          v.Month("monthFrom", q.Get("monthFrom")),
		To:            v.Month("monthTo", q.Get("monthTo")),
	}
	v.Enum("status", filter.PaymentStatus, ledger.PaymentStatuses, "must be paid, partial or pending")
	if filter.From != "" && filter.To != "" && filter.From > filter.To {
		v.Add("monthFrom", "must not be after monthTo")
	}
	if v.Reject(w, requestID) {
		return
	}

	report := h.Service.Reconciliation(filter)
	if format == reports.FormatJSON {
		api.Success(w, report, requestID)
		return
	}

	var buf bytes.Buffer
	var contentType string
	switch format {
	case reports.FormatPDF:
		err = reports.RenderPDF(&buf, report, h.Service.FontFile())
		contentType = contentTypePDF
	case reports.FormatXLSX:
		err = reports.RenderXLSX(&buf, report)
		contentType = contentTypeXLSX
	}
	if err != nil {
		zap.L().Error("report render failed", zap.String("format", format), zap.Error(err), zap.String("requestId", requestID))
		api.Fail(w, http.StatusInternalServerError, "report_failed", "report could not be rendered", requestID)
		return
	}
	filename := fmt.Sprintf("reconciliation-%s.%s", report.GeneratedAt.Format("20060102-150405"), format)
	api.Attachment(w, contentType, filename, buf.Bytes())
}
