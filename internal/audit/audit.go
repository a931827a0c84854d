package audit

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"jewelpo/internal/database"
	"jewelpo/internal/models"
)

// Target types.
const (
	TargetPurchaseOrder = "purchase_order"
	TargetVendor        = "vendor"
	TargetUser          = "user"
	TargetReport        = "report"
	TargetDatabase      = "database"
)

// Action types written outside the workflow table.
const (
	PODeleted     = "po_deleted"
	VendorCreated = "vendor_created"
	VendorUpdated = "vendor_updated"
	VendorDeleted = "vendor_deleted"
	UserLogin     = "user_login"
	UserCreated   = "user_created"
	UserUpdated   = "user_updated"
	BackupCreated = "backup_created"
	ReportExport  = "report_exported"
)

// Entry is one audit record to append.
type Entry struct {
	CompanyID  int64
	UserID     int64
	ActionType string
	TargetType string
	TargetID   int64
	Details    string
	IPAddress  string
	At         time.Time
}

// Log appends e using ex, which is normally the caller's open transaction so
// the entry commits or rolls back with the change it describes.
func Log(ctx context.Context, ex sqlx.ExecerContext, e Entry) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	var userID interface{}
	if e.UserID > 0 {
		userID = e.UserID
	}
	_, err := ex.ExecContext(ctx, `INSERT INTO audit_logs
		(company_id, user_id, action_type, target_type, target_id, details, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CompanyID, userID, e.ActionType, e.TargetType, e.TargetID, e.Details, e.IPAddress, database.Timestamp(e.At))
	if err != nil {
		return fmt.Errorf("write audit entry %s: %w", e.ActionType, err)
	}
	return nil
}

// ForTarget lists entries for one record, oldest first.
func ForTarget(ctx context.Context, q sqlx.QueryerContext, targetType string, targetID int64) ([]models.AuditEntry, error) {
	entries := []models.AuditEntry{}
	err := sqlx.SelectContext(ctx, q, &entries, `SELECT id, company_id, user_id, action_type, target_type,
		target_id, details, ip_address, created_at
		FROM audit_logs WHERE target_type = ? AND target_id = ? ORDER BY id`, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	CompanyID  int64
	ActionType string
	TargetType string
	Limit      int
}

// List returns the newest entries first. CompanyID zero spans every tenant.
func List(ctx context.Context, q sqlx.QueryerContext, f Filter) ([]models.AuditEntry, error) {
	query := `SELECT id, company_id, user_id, action_type, target_type, target_id, details, ip_address, created_at
		FROM audit_logs WHERE 1=1`
	var args []interface{}
	if f.CompanyID != 0 {
		query += " AND company_id = ?"
		args = append(args, f.CompanyID)
	}
	if f.ActionType != "" {
		query += " AND action_type = ?"
		args = append(args, f.ActionType)
	}
	if f.TargetType != "" {
		query += " AND target_type = ?"
		args = append(args, f.TargetType)
	}
	if f.Limit <= 0 || f.Limit > 500 {
		f.Limit = 100
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, f.Limit)

	entries := []models.AuditEntry{}
	if err := sqlx.SelectContext(ctx, q, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list audit log: %w", err)
	}
	return entries, nil
}

// GetClientIP returns the caller's address. X-Forwarded-For and X-Real-IP
// are consulted only when trustProxy is set.
func GetClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			ips := strings.Split(xff, ",")
			return strings.TrimSpace(ips[0])
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return strings.TrimSpace(xri)
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

type ipKey struct{}

// WithClientIP stores the caller address so services can record it.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipKey{}, ip)
}

// ClientIP returns the address stored by WithClientIP.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(ipKey{}).(string)
	return ip
}
