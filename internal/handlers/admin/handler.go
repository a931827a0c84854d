package admin

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"jewelpo/internal/apperr"
	"jewelpo/internal/auth"
	"jewelpo/internal/response"
)

// Handler holds dependencies for account, audit and maintenance handlers.
type Handler struct {
	DB        *sqlx.DB
	Tokens    *auth.TokenIssuer
	BackupDir string
	Now       func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now().UTC()
	}
	return h.Now().UTC()
}

// LoginRequest is the body of POST /api/v1/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token for later requests.
type LoginResponse struct {
	Token     string              `json:"token"`
	ExpiresAt time.Time           `json:"expires_at"`
	User      auth.RequestContext `json:"user"`
}

// Register adds the account, audit and maintenance routes.
func (h *Handler) Register(handle func(pattern string, handler func(http.ResponseWriter, *http.Request))) {
	handle("GET /api/v1/health", h.Health)
	handle("POST /api/v1/auth/login", h.HandleLogin)
	handle("GET /api/v1/auth/me", h.HandleMe)
	handle("GET /api/v1/auth/actions", h.HandleMyActions)

	handle("GET /api/v1/users", h.ListUsers)
	handle("POST /api/v1/users", h.CreateUser)
	handle("PUT /api/v1/users/{id}", h.UpdateUser)

	handle("GET /api/v1/audit-logs", h.ListAuditLogs)

	handle("GET /api/v1/admin/backups", h.HandleListBackups)
	handle("POST /api/v1/admin/backups", h.HandleCreateBackup)
}

// Health reports whether the database answers.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		response.Err(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	response.JSON(w, map[string]string{"status": "ok"})
}

// requireAdmin returns the caller when they hold admin or platform_admin.
func requireAdmin(ctx context.Context) (auth.RequestContext, error) {
	rc, ok := auth.FromContext(ctx)
	if !ok || rc.UserID == 0 {
		return rc, apperr.Denied("Authentication required.")
	}
	if !rc.HasAny(auth.RoleAdmin, auth.RolePlatformAdmin) {
		return rc, apperr.Denied("Admin access required.")
	}
	return rc, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("invalid id")
	}
	return id, nil
}
