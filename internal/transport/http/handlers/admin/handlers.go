package adminhandler

import (
	"context"
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"miluim/internal/domain/ledger"
	"miluim/internal/platform/jobs"
	"miluim/internal/transport/http/api"
	"miluim/internal/transport/http/middleware"
	"miluim/internal/transport/http/shared"
)

// JobBackup is the name backups run under, whether scheduled or manual.
const JobBackup = "ledger-backup"

var labelPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{0,40}$`)

type Handler struct {
	Ledger *ledger.Ledger
	Jobs   *jobs.Service
	Logger *zap.Logger
}

func NewHandler(l *ledger.Ledger, jobsSvc *jobs.Service, logger *zap.Logger) *Handler {
	return &Handler{Ledger: l, Jobs: jobsSvc, Logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/reset", h.handleReset)
	r.Post("/backups", h.handleBackup)
	r.Get("/jobs", h.handleJobs)
}

// BackupJob returns the job that copies the ledger under label.
func BackupJob(l *ledger.Ledger, label string) jobs.Func {
	return func(ctx context.Context) (any, error) {
		location, err := l.Backup(ctx, label)
		if err != nil {
			return nil, err
		}
		return map[string]string{"location": location}, nil
	}
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	location, err := h.Ledger.Reset(r.Context())
	if err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	h.Logger.Warn("ledger reset",
		zap.String("backup", location),
		zap.String("subject", middleware.GetSubject(r)),
		zap.String("requestId", requestID),
	)
	api.Success(w, map[string]string{"backupLocation": location}, requestID)
}

type backupRequest struct {
	Label string `json:"label"`
}

func (h *Handler) handleBackup(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	var req backupRequest
	if r.ContentLength != 0 {
		if err := shared.DecodeJSON(r, &req); err != nil {
			shared.FailLedger(w, err, requestID)
			return
		}
	}
	if req.Label == "" {
		req.Label = "manual"
	}
	if !labelPattern.MatchString(req.Label) {
		shared.FailValidation(w, requestID, []shared.ValidationIssue{{Field: "label", Reason: "may hold up to 40 letters, digits, dashes or underscores"}})
		return
	}

	result, err := h.Jobs.RunNow(r.Context(), JobBackup, BackupJob(h.Ledger, req.Label))
	if err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	api.Created(w, result, requestID)
}

func (h *Handler) handleJobs(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Jobs.Runs(), middleware.GetRequestID(r.Context()))
}
