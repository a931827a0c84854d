package admin

import (
	"net/http"
	"strconv"

	"jewelpo/internal/audit"
	"jewelpo/internal/response"
)

// ListAuditLogs returns the newest audit entries for the caller's company.
// Platform admins see every company. Supports ?action_type, ?target_type and ?limit.
func (h *Handler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	rc, err := requireAdmin(r.Context())
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	q := r.URL.Query()
	f := audit.Filter{
		ActionType: q.Get("action_type"),
		TargetType: q.Get("target_type"),
	}
	if !rc.IsPlatformAdmin() {
		f.CompanyID = rc.CompanyID
	}
	if l, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.Limit = l
	}
	entries, err := audit.List(r.Context(), h.DB, f)
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	response.JSON(w, entries)
}
