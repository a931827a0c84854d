// Package purchase runs the purchase-order workflow: it authorizes each
// action, checks the order's current status, applies the action's child-row
// changes and advances the status inside one transaction.
package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"jewelpo/internal/apperr"
	"jewelpo/internal/audit"
	"jewelpo/internal/auth"
	"jewelpo/internal/database"
	"jewelpo/internal/logger"
	"jewelpo/internal/metrics"
	"jewelpo/internal/models"
	"jewelpo/internal/websocket"
	"jewelpo/internal/workflow"
)

// Publisher receives an event after every committed change.
type Publisher interface {
	Publish(evt websocket.Event)
}

// Service holds dependencies for workflow operations.
type Service struct {
	DB      *sqlx.DB
	Events  Publisher
	Metrics *metrics.Metrics
	Log     *zap.Logger
	Now     func() time.Time
}

// NewService builds a Service. events and m may be nil.
func NewService(db *sqlx.DB, events Publisher, m *metrics.Metrics, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{DB: db, Events: events, Metrics: m, Log: log, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

// Expect lets a client pin the order version it last read. Zero skips the check.
type Expect struct {
	Version int64 `json:"version"`
}

func caller(ctx context.Context) (auth.RequestContext, error) {
	rc, ok := auth.FromContext(ctx)
	if !ok || rc.UserID == 0 {
		return auth.RequestContext{}, apperr.Denied("Authentication required.")
	}
	return rc, nil
}

const poSelect = `SELECT po.id, po.company_id, po.initiated_by_user_id,
	COALESCE(NULLIF(u.full_name, ''), u.username, '') AS initiated_by_name,
	po.customer_name, po.order_source, po.requested_designs, po.vendor_id,
	v.vendor_name, po.po_number, po.status, po.target_date, po.received_date,
	po.version, po.created_at, po.updated_at
	FROM purchase_orders po
	LEFT JOIN users u ON u.id = po.initiated_by_user_id
	LEFT JOIN vendors v ON v.id = po.vendor_id`

// scope restricts a query to the caller's company unless they are a platform admin.
func scope(rc auth.RequestContext, column string) (string, []interface{}) {
	if rc.IsPlatformAdmin() {
		return "", nil
	}
	return " AND " + column + " = ?", []interface{}{rc.CompanyID}
}

func loadPO(ctx context.Context, q sqlx.QueryerContext, rc auth.RequestContext, id int64) (*models.PurchaseOrder, error) {
	cond, args := scope(rc, "po.company_id")
	var po models.PurchaseOrder
	err := sqlx.GetContext(ctx, q, &po, poSelect+" WHERE po.id = ?"+cond, append([]interface{}{id}, args...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFoundf("Purchase order %d not found.", id)
	}
	if err != nil {
		return nil, apperr.Wrap(err, "load purchase order")
	}
	return &po, nil
}

// step describes one workflow action against an existing order.
type step struct {
	action workflow.Action
	poID   int64
	expect Expect
	// validate checks the caller's input once the caller is authorized.
	validate func() error
	// apply runs inside the transaction after the status check. It returns
	// the target status and the audit details.
	apply func(ctx context.Context, tx *sqlx.Tx, rc auth.RequestContext, po *models.PurchaseOrder) (workflow.Status, string, error)
}

// advance is the single path every state-changing action takes.
func (s *Service) advance(ctx context.Context, st step) (*models.PurchaseOrder, error) {
	po, err := s.runStep(ctx, st)
	s.observe(st.action, err)
	if err != nil {
		return nil, err
	}
	s.publish(po, st.action)
	return po, nil
}

func (s *Service) runStep(ctx context.Context, st step) (*models.PurchaseOrder, error) {
	rc, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	if err := workflow.Authorize(rc, st.action); err != nil {
		return nil, err
	}
	if st.validate != nil {
		if err := st.validate(); err != nil {
			return nil, err
		}
	}
	rule, _ := workflow.Lookup(st.action)

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	po, err := loadPO(ctx, tx, rc, st.poID)
	if err != nil {
		return nil, err
	}
	if st.expect.Version != 0 && st.expect.Version != po.Version {
		return nil, apperr.Precondition("Purchase order %d was changed by someone else. Reload and try again.", po.ID)
	}
	if err := workflow.Check(st.action, po.Status); err != nil {
		return nil, err
	}

	to, details, err := st.apply(ctx, tx, rc, po)
	if err != nil {
		return nil, err
	}

	now := s.now()
	res, err := tx.ExecContext(ctx, `UPDATE purchase_orders SET status = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND company_id = ? AND status = ? AND version = ?`,
		to, database.Timestamp(now), po.ID, po.CompanyID, po.Status, po.Version)
	if err != nil {
		return nil, apperr.Wrap(err, "advance purchase order")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.Precondition("Purchase order %d is no longer %q: already processed by someone else.", po.ID, po.Status)
	}

	if to != po.Status {
		if err := recordPhase(ctx, tx, po.ID, po.CompanyID, to, st.action, rc.UserID, now); err != nil {
			return nil, err
		}
	}
	if err := audit.Log(ctx, tx, audit.Entry{
		CompanyID:  po.CompanyID,
		UserID:     rc.UserID,
		ActionType: rule.AuditType,
		TargetType: audit.TargetPurchaseOrder,
		TargetID:   po.ID,
		Details:    details,
		IPAddress:  audit.ClientIP(ctx),
		At:         now,
	}); err != nil {
		return nil, apperr.Wrap(err, "audit")
	}
	if err := tx.Commit(); err != nil {
		return nil, apperr.Wrap(err, "commit")
	}

	logger.FromContext(ctx).Info("purchase order advanced",
		zap.Int64("po_id", po.ID),
		zap.String("action", string(st.action)),
		zap.String("from", string(po.Status)),
		zap.String("to", string(to)),
		zap.String("user", rc.Username))

	po.Status = to
	po.Version++
	po.UpdatedAt = database.Timestamp(now)
	return po, nil
}

func recordPhase(ctx context.Context, tx *sqlx.Tx, poID, companyID int64, status workflow.Status, action workflow.Action, userID int64, at time.Time) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO po_phase_history (po_id, company_id, status, action, user_id, entered_at)
		VALUES (?, ?, ?, ?, ?, ?)`, poID, companyID, status, action, userID, database.Timestamp(at))
	if err != nil {
		return apperr.Wrap(err, "record phase")
	}
	return nil
}

func (s *Service) observe(a workflow.Action, err error) {
	result := "ok"
	if err != nil {
		switch apperr.KindOf(err) {
		case apperr.PermissionDenied:
			result = "denied"
		case apperr.PreconditionFailed, apperr.Conflict:
			result = "rejected"
		case apperr.Validation, apperr.NotFound:
			result = "invalid"
		default:
			result = "error"
		}
	}
	s.Metrics.ObserveTransition(string(a), result)
}

func (s *Service) publish(po *models.PurchaseOrder, a workflow.Action) {
	if s.Events == nil {
		return
	}
	s.Events.Publish(websocket.Event{
		Type:      "purchase_order",
		CompanyID: po.CompanyID,
		ID:        po.ID,
		Action:    string(a),
		Status:    string(po.Status),
	})
}

func count(ctx context.Context, tx *sqlx.Tx, query string, args ...interface{}) (int, error) {
	var n int
	if err := tx.GetContext(ctx, &n, query, args...); err != nil {
		return 0, apperr.Wrap(err, fmt.Sprintf("count: %s", query))
	}
	return n, nil
}

func jewelNotOnOrder(err error, jewelID, poID int64) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFoundf("Jewel %d is not part of purchase order %d.", jewelID, poID)
	}
	return apperr.Wrap(err, "load jewel")
}
