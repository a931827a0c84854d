// Package reports computes the read-only management views over purchase
// orders: cycle times, vendor performance, QC failures, inventory aging,
// accounts payable and the dashboard queues. Every view is tenant scoped
// unless the caller is a platform admin.
package reports

import (
	"context"
	"math"
	"time"

	"github.com/jmoiron/sqlx"

	"jewelpo/internal/apperr"
	"jewelpo/internal/auth"
	"jewelpo/internal/database"
)

// Service runs report queries.
type Service struct {
	DB  *sqlx.DB
	Now func() time.Time
}

// NewService builds a report Service.
func NewService(db *sqlx.DB) *Service {
	return &Service{DB: db, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Table is the flat form of a report used for CSV and XLSX export.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Tabular is implemented by every report result.
type Tabular interface {
	Table() Table
}

var managers = []auth.Role{auth.RolePurchaseHead, auth.RoleAdmin, auth.RolePlatformAdmin}

// authorize admits report managers, plus accounts when finance is set.
func authorize(ctx context.Context, finance bool) (auth.RequestContext, error) {
	rc, ok := auth.FromContext(ctx)
	if !ok || rc.UserID == 0 {
		return rc, apperr.Denied("Authentication required.")
	}
	if rc.HasAny(managers...) || (finance && rc.Has(auth.RoleAccounts)) {
		return rc, nil
	}
	return rc, apperr.Denied("")
}

func member(ctx context.Context) (auth.RequestContext, error) {
	rc, ok := auth.FromContext(ctx)
	if !ok || rc.UserID == 0 {
		return rc, apperr.Denied("Authentication required.")
	}
	return rc, nil
}

// tenant returns " AND <column> = ?" for tenant users and nothing for platform admins.
func tenant(rc auth.RequestContext, column string) (string, []interface{}) {
	if rc.IsPlatformAdmin() {
		return "", nil
	}
	return " AND " + column + " = ?", []interface{}{rc.CompanyID}
}

// selectIn expands IN (?) placeholders with sqlx.In before running the query.
func (s *Service) selectIn(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	q, expanded, err := sqlx.In(query, args...)
	if err != nil {
		return err
	}
	return s.DB.SelectContext(ctx, dest, s.DB.Rebind(q), expanded...)
}

// daysSince parses a stored timestamp and returns whole days until now.
func daysSince(stored string, now time.Time) int {
	t, err := database.ParseTime(stored)
	if err != nil {
		return 0
	}
	return database.DaysBetween(t, now)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
