// Package reports serves the management reports and dashboard over HTTP.
// Every report accepts ?format=csv or ?format=xlsx for export.
package reports

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"jewelpo/internal/apperr"
	"jewelpo/internal/audit"
	"jewelpo/internal/auth"
	"jewelpo/internal/logger"
	"jewelpo/internal/reports"
	"jewelpo/internal/response"
)

// Handler holds dependencies for report handlers.
type Handler struct {
	DB      *sqlx.DB
	Reports *reports.Service
}

// Register adds the report and dashboard routes.
func (h *Handler) Register(handle func(pattern string, handler func(http.ResponseWriter, *http.Request))) {
	handle("GET /api/v1/reports/cycle-time", h.report(func(ctx context.Context) (reports.Tabular, error) {
		return h.Reports.CycleTime(ctx)
	}))
	handle("GET /api/v1/reports/vendor-performance", h.report(func(ctx context.Context) (reports.Tabular, error) {
		return h.Reports.VendorPerformance(ctx)
	}))
	handle("GET /api/v1/reports/qc-failures", h.report(func(ctx context.Context) (reports.Tabular, error) {
		return h.Reports.QCFailures(ctx)
	}))
	handle("GET /api/v1/reports/inventory-aging", h.report(func(ctx context.Context) (reports.Tabular, error) {
		return h.Reports.InventoryAging(ctx)
	}))
	handle("GET /api/v1/reports/accounts-payable", h.report(func(ctx context.Context) (reports.Tabular, error) {
		return h.Reports.AccountsPayable(ctx)
	}))
	handle("GET /api/v1/reports/accounts-view", h.report(func(ctx context.Context) (reports.Tabular, error) {
		return h.Reports.AccountsView(ctx)
	}))
	handle("GET /api/v1/reports/pipeline", h.report(func(ctx context.Context) (reports.Tabular, error) {
		return h.Reports.Pipeline(ctx)
	}))

	handle("GET /api/v1/dashboard", h.Dashboard)
	handle("GET /api/v1/dashboard/queue", h.Queue)
}

// report runs a report and writes it as JSON or as the requested export.
func (h *Handler) report(run func(ctx context.Context) (reports.Tabular, error)) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		format := r.URL.Query().Get("format")
		if format != "" && format != "json" && format != "csv" && format != "xlsx" {
			response.Error(r.Context(), w, apperr.Invalid("format must be json, csv or xlsx"))
			return
		}
		result, err := run(r.Context())
		if err != nil {
			response.Error(r.Context(), w, err)
			return
		}
		if format == "" || format == "json" {
			response.JSON(w, result)
			return
		}

		t := result.Table()
		h.logExport(r, t, format)
		if format == "xlsx" {
			err = ExportExcel(w, t)
		} else {
			err = ExportCSV(w, t)
		}
		if err != nil {
			logger.FromContext(r.Context()).Error("report export failed", zap.String("report", t.Name), zap.Error(err))
		}
	}
}

// logExport records who exported which report. Failures are logged, not returned.
func (h *Handler) logExport(r *http.Request, t reports.Table, format string) {
	rc, _ := auth.FromContext(r.Context())
	err := audit.Log(r.Context(), h.DB, audit.Entry{
		CompanyID:  rc.CompanyID,
		UserID:     rc.UserID,
		ActionType: audit.ReportExport,
		TargetType: audit.TargetReport,
		Details:    fmt.Sprintf("Exported %s as %s (%d rows)", t.Name, format, len(t.Rows)),
		IPAddress:  audit.ClientIP(r.Context()),
	})
	if err != nil {
		logger.FromContext(r.Context()).Warn("audit report export", zap.Error(err))
	}
}

// Dashboard returns the headline counters.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Reports.Dashboard(r.Context())
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	response.JSON(w, d)
}

// Queue returns the caller's role-specific work queue.
func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	q, err := h.Reports.Queue(r.Context())
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	response.JSON(w, q)
}
