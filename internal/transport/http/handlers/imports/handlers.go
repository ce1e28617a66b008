package importshandler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"miluim/internal/domain/importer"
	"miluim/internal/domain/ledger"
	"miluim/internal/platform/metrics"
	"miluim/internal/transport/http/api"
	"miluim/internal/transport/http/middleware"
	"miluim/internal/transport/http/shared"
)

// maxUploadMemory is how much of a multipart upload is kept in memory;
// the rest spills to temp files.
const maxUploadMemory = 8 << 20

type Handler struct {
	Ledger  *ledger.Ledger
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

func NewHandler(l *ledger.Ledger, collector *metrics.Collector, logger *zap.Logger) *Handler {
	return &Handler{Ledger: l, Metrics: collector, Logger: logger}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/import", func(r chi.Router) {
		r.Post("/attendance", h.handleAttendance)
		r.Post("/payments", h.handlePayments)
	})
}

type importRequest struct {
	Rows        []map[string]any `json:"rows" validate:"max=100000"`
	DryRun      bool             `json:"dryRun"`
	Grouping    string           `json:"grouping" validate:"omitempty,oneof=month range"`
	PaymentDate string           `json:"paymentDate" validate:"omitempty,isodate"`
}

// upload is a parsed import request in either accepted shape.
type upload struct {
	table       importer.Table
	cols        importer.Columns
	dryRun      bool
	grouping    string
	paymentDate string
	source      string
}

func (h *Handler) handleAttendance(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	up, ok := h.readUpload(w, r, importer.KindAttendance)
	if !ok {
		return
	}
	var grouping importer.Grouping
	if up.grouping != "" {
		parsed, err := importer.ParseGrouping(up.grouping)
		if err != nil {
			shared.FailLedger(w, err, requestID)
			return
		}
		grouping = parsed
	}

	res, err := h.Ledger.ImportAttendance(r.Context(), up.table, up.cols, ledger.ImportOptions{
		Grouping: grouping,
		DryRun:   up.dryRun,
	})
	h.record("attendance", res.RawRowCount, res.Skipped, err)
	if err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	h.Logger.Info("attendance imported",
		zap.String("source", up.source),
		zap.Bool("dryRun", res.DryRun),
		zap.Int("rows", res.RawRowCount),
		zap.Int("classified", res.ClassifiedRowCount),
		zap.Int("drafts", res.DraftCount),
		zap.Int("newEmployees", res.ImportedEmployees),
		zap.Int("newDuties", res.ImportedDuties),
		zap.Int("mergedDuties", res.MergedDuties),
		zap.Int("skipped", res.Skipped),
		zap.String("requestId", requestID),
	)
	api.Success(w, res, requestID)
}

func (h *Handler) handlePayments(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	up, ok := h.readUpload(w, r, importer.KindPayment)
	if !ok {
		return
	}

	res, err := h.Ledger.ImportPayments(r.Context(), up.table, up.cols, ledger.PaymentImportOptions{
		FallbackDate: up.paymentDate,
		DryRun:       up.dryRun,
	})
	h.record("payments", res.RawRowCount, res.Skipped, err)
	if err != nil {
		shared.FailLedger(w, err, requestID)
		return
	}
	h.Logger.Info("payments imported",
		zap.String("source", up.source),
		zap.Bool("dryRun", res.DryRun),
		zap.Int("rows", res.RawRowCount),
		zap.Int("imported", res.ImportedPayments),
		zap.Int("unmatched", len(res.Unmatched)),
		zap.Int("skipped", res.Skipped),
		zap.String("requestId", requestID),
	)
	api.Success(w, res, requestID)
}

func (h *Handler) record(kind string, rows, skipped int, err error) {
	if h.Metrics != nil {
		h.Metrics.RecordImport(kind, rows, skipped, err != nil)
	}
}

// readUpload accepts a JSON body {rows, dryRun, grouping, paymentDate} or a
// multipart form with a workbook in "file". It answers the request itself
// when the input is unusable.
func (h *Handler) readUpload(w http.ResponseWriter, r *http.Request, kind importer.Kind) (upload, bool) {
	requestID := middleware.GetRequestID(r.Context())
	var (
		up  upload
		err error
	)
	if strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		up, err = h.readWorkbook(r, kind)
	} else {
		up, err = h.readRows(r, kind)
	}
	var issues validationIssues
	if errors.As(err, &issues) {
		shared.FailValidation(w, requestID, issues.list)
		return upload{}, false
	}
	if err != nil {
		shared.FailLedger(w, err, requestID)
		return upload{}, false
	}
	return up, true
}

type validationIssues struct {
	list []shared.ValidationIssue
}

func (v validationIssues) Error() string {
	return fmt.Sprintf("%d validation issues", len(v.list))
}

func (h *Handler) readRows(r *http.Request, kind importer.Kind) (upload, error) {
	var req importRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		return upload{}, err
	}
	v := shared.NewValidator()
	v.Struct(req)
	if v.HasIssues() {
		return upload{}, validationIssues{list: v.Issues()}
	}

	up := upload{
		table:       importer.TableFromMaps(req.Rows),
		dryRun:      req.DryRun || shared.QueryBool(r, "dryRun"),
		grouping:    req.Grouping,
		paymentDate: req.PaymentDate,
		source:      "json",
	}
	if len(up.table.Rows) == 0 {
		return up, nil
	}
	cols, err := h.Ledger.Vocabulary().Resolve(up.table.Headers, kind)
	if err != nil {
		return upload{}, err
	}
	up.cols = cols
	return up, nil
}

func (h *Handler) readWorkbook(r *http.Request, kind importer.Kind) (upload, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return upload{}, fmt.Errorf("%w: %v", shared.ErrBadBody, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return upload{}, fmt.Errorf("%w: a workbook is required in the file field", shared.ErrBadBody)
	}
	defer file.Close()

	v := shared.NewValidator()
	grouping := r.FormValue("grouping")
	v.Enum("grouping", grouping, []string{string(importer.GroupByMonth), string(importer.GroupByRange)}, "must be month or range")
	paymentDate := strings.TrimSpace(r.FormValue("paymentDate"))
	if paymentDate != "" {
		v.Date("paymentDate", paymentDate)
	}
	dryRun := shared.QueryBool(r, "dryRun")
	if raw := r.FormValue("dryRun"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			v.Add("dryRun", "must be true or false")
		}
		dryRun = dryRun || parsed
	}
	if v.HasIssues() {
		return upload{}, validationIssues{list: v.Issues()}
	}

	grid, err := importer.ReadWorkbook(file, r.FormValue("sheet"))
	if err != nil {
		return upload{}, err
	}
	table, cols, err := importer.TableFromGrid(grid, h.Ledger.Vocabulary(), kind)
	if err != nil {
		return upload{}, err
	}
	return upload{
		table:       table,
		cols:        cols,
		dryRun:      dryRun,
		grouping:    grouping,
		paymentDate: paymentDate,
		source:      header.Filename,
	}, nil
}
