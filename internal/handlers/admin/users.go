package admin

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"jewelpo/internal/apperr"
	"jewelpo/internal/audit"
	"jewelpo/internal/auth"
	"jewelpo/internal/database"
	"jewelpo/internal/models"
	"jewelpo/internal/response"
	"jewelpo/internal/validation"
)

const userSelect = `SELECT id, company_id, username, full_name, password_hash, roles, active,
	failed_login_attempts, locked_until, last_login, created_at FROM users`

// CreateUserRequest is the body of POST /api/v1/users.
type CreateUserRequest struct {
	CompanyID int64       `json:"company_id"`
	Username  string      `json:"username"`
	FullName  string      `json:"full_name"`
	Password  string      `json:"password"`
	Roles     []auth.Role `json:"roles"`
}

// UpdateUserRequest replaces the user's roles. Name, active flag and
// password change only when present.
type UpdateUserRequest struct {
	FullName *string     `json:"full_name"`
	Roles    []auth.Role `json:"roles"`
	Active   *bool       `json:"active"`
	Password string      `json:"password"`
}

// validateRoles rejects unknown roles. Only a platform admin may grant platform_admin.
func validateRoles(ve *validation.ValidationErrors, caller auth.RequestContext, roles []auth.Role) {
	if len(roles) == 0 {
		ve.Add("roles", "at least one role is required")
		return
	}
	for _, r := range roles {
		if !r.Valid() {
			ve.Add("roles", fmt.Sprintf("unknown role %q", r))
		} else if r == auth.RolePlatformAdmin && !caller.IsPlatformAdmin() {
			ve.Add("roles", "only a platform admin may grant platform_admin")
		}
	}
}

// ListUsers returns the caller's company users, or every user for a platform admin.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	rc, err := requireAdmin(r.Context())
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	query, args := userSelect, []interface{}{}
	if !rc.IsPlatformAdmin() {
		query += " WHERE company_id = ?"
		args = append(args, rc.CompanyID)
	}
	users := []models.User{}
	if err := h.DB.SelectContext(r.Context(), &users, query+" ORDER BY id", args...); err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	response.JSON(w, users)
}

// CreateUser adds an account to the caller's company. A platform admin may name another company.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc, err := requireAdmin(ctx)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	var req CreateUserRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CompanyID == 0 || !rc.IsPlatformAdmin() {
		req.CompanyID = rc.CompanyID
	}

	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "username", req.Username)
	validation.ValidateMaxLength(ve, "username", req.Username, 100)
	validation.ValidateMaxLength(ve, "full_name", req.FullName, 255)
	validateRoles(ve, rc, req.Roles)
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		ve.Add("password", err.Error())
	}
	if ve.HasErrors() {
		response.Error(ctx, w, apperr.FromValidation(ve))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}

	tx, err := h.DB.BeginTxx(ctx, nil)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `INSERT INTO users (company_id, username, full_name, password_hash, roles, active, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)`,
		req.CompanyID, req.Username, req.FullName, hash, auth.JoinRoles(req.Roles), database.Timestamp(h.now()))
	if err != nil {
		if database.IsUniqueViolation(err) {
			response.Error(ctx, w, apperr.Conflictf("Username %s already exists.", req.Username))
			return
		}
		if database.IsForeignKeyViolation(err) {
			response.Error(ctx, w, apperr.Invalid("Company %d does not exist.", req.CompanyID))
			return
		}
		response.Error(ctx, w, err)
		return
	}
	id, _ := res.LastInsertId()
	err = audit.Log(ctx, tx, audit.Entry{
		CompanyID: req.CompanyID, UserID: rc.UserID, ActionType: audit.UserCreated,
		TargetType: audit.TargetUser, TargetID: id, IPAddress: audit.ClientIP(ctx),
		Details: fmt.Sprintf("Created user %s with roles %s", req.Username, auth.JoinRoles(req.Roles)),
	})
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	var u models.User
	if err := tx.GetContext(ctx, &u, userSelect+" WHERE id = ?", id); err != nil {
		response.Error(ctx, w, err)
		return
	}
	if err := tx.Commit(); err != nil {
		response.Error(ctx, w, err)
		return
	}
	response.Created(w, u)
}

// UpdateUser edits an account in the caller's company.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rc, err := requireAdmin(ctx)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	var req UpdateUserRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Err(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Active != nil && !*req.Active && id == rc.UserID {
		response.Error(ctx, w, apperr.Invalid("You cannot deactivate yourself."))
		return
	}

	ve := &validation.ValidationErrors{}
	if req.FullName != nil {
		validation.ValidateMaxLength(ve, "full_name", *req.FullName, 255)
	}
	validateRoles(ve, rc, req.Roles)
	if req.Password != "" {
		if err := auth.ValidatePasswordStrength(req.Password); err != nil {
			ve.Add("password", err.Error())
		}
	}
	if ve.HasErrors() {
		response.Error(ctx, w, apperr.FromValidation(ve))
		return
	}

	tx, err := h.DB.BeginTxx(ctx, nil)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	defer tx.Rollback()

	var u models.User
	query, args := userSelect+" WHERE id = ?", []interface{}{id}
	if !rc.IsPlatformAdmin() {
		query += " AND company_id = ?"
		args = append(args, rc.CompanyID)
	}
	err = tx.GetContext(ctx, &u, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		response.Error(ctx, w, apperr.NotFoundf("User %d not found.", id))
		return
	}
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	target := auth.RequestContext{Roles: auth.ParseRoles(u.Roles)}
	if target.IsPlatformAdmin() && !rc.IsPlatformAdmin() {
		response.Error(ctx, w, apperr.Denied("Only a platform admin may edit a platform admin account."))
		return
	}

	fullName := u.FullName
	if req.FullName != nil {
		fullName = *req.FullName
	}
	active := u.Active
	if req.Active != nil {
		active = *req.Active
	}
	hash := u.PasswordHash
	if req.Password != "" {
		if hash, err = auth.HashPassword(req.Password); err != nil {
			response.Error(ctx, w, err)
			return
		}
	}
	activeFlag := 0
	if active {
		activeFlag = 1
	}
	_, err = tx.ExecContext(ctx, `UPDATE users SET full_name = ?, roles = ?, active = ?, password_hash = ? WHERE id = ?`,
		fullName, auth.JoinRoles(req.Roles), activeFlag, hash, id)
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	details := fmt.Sprintf("Updated user %s: roles %s, active %t", u.Username, auth.JoinRoles(req.Roles), active)
	if req.Password != "" {
		details += ", password reset"
	}
	err = audit.Log(ctx, tx, audit.Entry{
		CompanyID: u.CompanyID, UserID: rc.UserID, ActionType: audit.UserUpdated,
		TargetType: audit.TargetUser, TargetID: id, Details: details, IPAddress: audit.ClientIP(ctx),
	})
	if err != nil {
		response.Error(ctx, w, err)
		return
	}
	if err := tx.GetContext(ctx, &u, userSelect+" WHERE id = ?", id); err != nil {
		response.Error(ctx, w, err)
		return
	}
	if err := tx.Commit(); err != nil {
		response.Error(ctx, w, err)
		return
	}
	response.JSON(w, u)
}
