package ledgerhandler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"miluim/internal/domain/ledger"
	"miluim/internal/transport/http/api"
	"miluim/internal/transport/http/middleware"
	"miluim/internal/transport/http/shared"
)

const maxListLimit = 1000

type Handler struct {
	Ledger *ledger.Ledger
}

func NewHandler(l *ledger.Ledger) *Handler {
	return &Handler{Ledger: l}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.handleStats)
	r.Get("/years", h.handleYears)
	r.Get("/years/{year}/months", h.handleMonths)
	r.Get("/departments", h.handleDepartments)

	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.handleListEmployees)
		r.Post("/", h.handleCreateEmployee)
		r.Route("/{employeeID}", func(r chi.Router) {
			r.Get("/", h.handleGetEmployee)
			r.Patch("/", h.handleUpdateEmployee)
			r.Delete("/", h.handleDeleteEmployee)
		})
	})
	r.Route("/duties", func(r chi.Router) {
		r.Get("/", h.handleListDuties)
		r.Post("/", h.handleCreateDuty)
		r.Route("/{dutyID}", func(r chi.Router) {
			r.Get("/", h.handleGetDuty)
			r.Patch("/", h.handleUpdateDuty)
			r.Delete("/", h.handleDeleteDuty)
		})
	})
	r.Route("/payments", func(r chi.Router) {
		r.Get("/", h.handleListPayments)
		r.Post("/", h.handleCreatePayment)
		r.Route("/{paymentID}", func(r chi.Router) {
			r.Get("/", h.handleGetPayment)
			r.Patch("/", h.handleUpdatePayment)
			r.Delete("/", h.handleDeletePayment)
		})
	})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	year := v.Int("year", r.URL.Query().Get("year"), 1900, 2200)
	if v.Reject(w, requestID) {
		return
	}
	api.Success(w, h.Ledger.Stats(year), requestID)
}

func (h *Handler) handleYears(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Ledger.Years(), middleware.GetRequestID(r.Context()))
}

func (h *Handler) handleMonths(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1900 || year > 2200 {
		api.Fail(w, http.StatusBadRequest, "invalid_year", "year must be a four digit number", requestID)
		return
	}
	api.Success(w, h.Ledger.Months(year), requestID)
}

func (h *Handler) handleDepartments(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Ledger.Departments(), middleware.GetRequestID(r.Context()))
}

// writeList sends one window of items. X-Total-Count carries the size of
// the full list.
func writeList[T any](w http.ResponseWriter, r *http.Request, items []T) {
	page := shared.Paginate(items, shared.ParsePagination(r, 0, maxListLimit))
	w.Header().Set("X-Total-Count", strconv.Itoa(page.Total))
	api.Success(w, page.Items, middleware.GetRequestID(r.Context()))
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, ok := shared.PathID(r, name)
	if !ok {
		api.Fail(w, http.StatusBadRequest, "invalid_id", name+" must be a positive integer", middleware.GetRequestID(r.Context()))
	}
	return id, ok
}
