package admin

import (
	"database/sql"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"jewelpo/internal/audit"
	"jewelpo/internal/auth"
	"jewelpo/internal/database"
	"jewelpo/internal/logger"
	"jewelpo/internal/models"
	"jewelpo/internal/response"
)

const badCredentials = "Invalid username or password"

// HandleLogin checks a username and password and returns a signed token.
// Repeated failures lock the account for auth.AccountLockoutDuration.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var req LoginRequest
	if err := response.DecodeBody(r, &req); err != nil || req.Username == "" || req.Password == "" {
		response.Err(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	now := h.now()
	locked, err := auth.IsAccountLocked(ctx, h.DB, req.Username, now)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	if locked {
		response.Err(w, "Account temporarily locked due to too many failed login attempts. Try again later.", http.StatusForbidden)
		return
	}

	var u models.User
	err = h.DB.GetContext(ctx, &u, `SELECT id, company_id, username, full_name, password_hash, roles, active,
		failed_login_attempts, locked_until, last_login, created_at FROM users WHERE username = ?`, req.Username)
	if errors.Is(err, sql.ErrNoRows) {
		response.Err(w, badCredentials, http.StatusUnauthorized)
		return
	}
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		if err := auth.IncrementFailedLoginAttempts(ctx, h.DB, req.Username, now); err != nil {
			log.Error("record failed login", zap.Error(err))
		}
		log.Info("login failed", zap.String("username", req.Username))
		response.Err(w, badCredentials, http.StatusUnauthorized)
		return
	}
	if !u.Active {
		response.Err(w, "Account deactivated", http.StatusForbidden)
		return
	}

	if err := auth.ResetFailedLoginAttempts(ctx, h.DB, req.Username); err != nil {
		log.Error("reset failed logins", zap.Error(err))
	}

	rc := auth.RequestContext{UserID: u.ID, CompanyID: u.CompanyID, Username: u.Username, Roles: auth.ParseRoles(u.Roles)}
	token, exp, err := h.Tokens.Issue(rc)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	if _, err := h.DB.ExecContext(ctx, "UPDATE users SET last_login = ? WHERE id = ?", database.Timestamp(now), u.ID); err != nil {
		log.Warn("update last_login", zap.Error(err))
	}
	err = audit.Log(ctx, h.DB, audit.Entry{
		CompanyID:  u.CompanyID,
		UserID:     u.ID,
		ActionType: audit.UserLogin,
		TargetType: audit.TargetUser,
		TargetID:   u.ID,
		Details:    "Logged in",
		IPAddress:  audit.ClientIP(r.Context()),
		At:         now,
	})
	if err != nil {
		log.Warn("audit login", zap.Error(err))
	}
	log.Info("login", zap.Int64("user_id", u.ID), zap.Int64("company_id", u.CompanyID))

	response.JSON(w, LoginResponse{Token: token, ExpiresAt: exp, User: rc})
}

// HandleMe returns the caller's identity with their current roles.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	rc, ok := auth.FromContext(r.Context())
	if !ok || rc.UserID == 0 {
		response.Err(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	response.JSON(w, rc)
}
