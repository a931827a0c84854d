package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"jewelpo/internal/apperr"
	"jewelpo/internal/audit"
	"jewelpo/internal/auth"
	"jewelpo/internal/logger"
	"jewelpo/internal/models"
	"jewelpo/internal/websocket"
	"jewelpo/internal/workflow"
)

// Get returns one order with its lines, pieces, invoice, history and the
// actions the caller may take next.
func (s *Service) Get(ctx context.Context, poID int64) (*models.PODetail, error) {
	rc, err := caller(ctx)
	if err != nil {
		return nil, err
	}
	po, err := loadPO(ctx, s.DB, rc, poID)
	if err != nil {
		return nil, err
	}
	d := &models.PODetail{
		PurchaseOrder: *po,
		Items:         []models.POItem{},
		Jewels:        []models.JewelUnit{},
		History:       []models.PhaseEntry{},
	}

	if err := s.DB.SelectContext(ctx, &d.Items, `SELECT id, po_id, design_code, quantity, quantity_received
		FROM po_items WHERE po_id = ? ORDER BY id`, po.ID); err != nil {
		return nil, apperr.Wrap(err, "list po items")
	}
	if err := s.DB.SelectContext(ctx, &d.Jewels, `SELECT j.id, j.company_id, j.po_id, j.po_item_id, i.design_code,
		j.jewel_code, j.qc_status, j.qc_remarks, j.image_status, j.inward_by_user_id, j.inward_at
		FROM jewel_inventory j JOIN po_items i ON i.id = j.po_item_id
		WHERE j.po_id = ? ORDER BY j.id`, po.ID); err != nil {
		return nil, apperr.Wrap(err, "list jewels")
	}

	var inv models.Invoice
	err = s.DB.GetContext(ctx, &inv, `SELECT id, po_id, company_id, vendor_invoice_number, invoice_date, total_amount,
		accounts_status, accounts_remarks, accounts_user_id, purchase_team_user_id, created_at, updated_at
		FROM purchase_invoices WHERE po_id = ?`, po.ID)
	switch {
	case err == nil:
		d.Invoice = &inv
	case !errors.Is(err, sql.ErrNoRows):
		return nil, apperr.Wrap(err, "load invoice")
	}

	if err := s.DB.SelectContext(ctx, &d.History, `SELECT id, po_id, status, action, user_id, entered_at
		FROM po_phase_history WHERE po_id = ? ORDER BY id`, po.ID); err != nil {
		return nil, apperr.Wrap(err, "list phase history")
	}
	d.Audit, err = audit.ForTarget(ctx, s.DB, audit.TargetPurchaseOrder, po.ID)
	if err != nil {
		return nil, apperr.Wrap(err, "list audit")
	}

	d.AllItemsInwarded = len(d.Items) > 0
	for _, it := range d.Items {
		if it.QuantityReceived < it.Quantity {
			d.AllItemsInwarded = false
		}
	}
	d.AllItemsQCd = len(d.Jewels) > 0
	d.AllPassedImaged = true
	for _, j := range d.Jewels {
		if j.QCStatus == "Pending" {
			d.AllItemsQCd = false
		}
		if j.QCStatus == "Pass" && j.ImageStatus == "Pending" {
			d.AllPassedImaged = false
		}
	}
	d.AvailableActions = workflow.Available(rc, po.Status)
	if d.AvailableActions == nil {
		d.AvailableActions = []workflow.Action{}
	}
	return d, nil
}

// ListFilter narrows List.
type ListFilter struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// List returns a page of orders visible to the caller, most recently changed
// first, and the total number of matches. Sales-only users see their own requests.
func (s *Service) List(ctx context.Context, f ListFilter) ([]models.PurchaseOrder, int, error) {
	rc, err := caller(ctx)
	if err != nil {
		return nil, 0, err
	}
	if f.Status != "" && !workflow.Status(f.Status).Valid() {
		return nil, 0, apperr.Invalid("Unknown status %q.", f.Status)
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}

	where, args := scope(rc, "po.company_id")
	where = " WHERE 1=1" + where
	if rc.SalesOnly() {
		where += " AND po.initiated_by_user_id = ?"
		args = append(args, rc.UserID)
	}
	if f.Status != "" {
		where += " AND po.status = ?"
		args = append(args, f.Status)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		where += " AND (po.customer_name LIKE ? OR po.po_number LIKE ? OR po.requested_designs LIKE ?)"
		like := "%" + q + "%"
		args = append(args, like, like, like)
	}

	var total int
	if err := s.DB.GetContext(ctx, &total, "SELECT COUNT(*) FROM purchase_orders po"+where, args...); err != nil {
		return nil, 0, apperr.Wrap(err, "count purchase orders")
	}
	orders := []models.PurchaseOrder{}
	query := poSelect + where + " ORDER BY po.updated_at DESC, po.id DESC LIMIT ? OFFSET ?"
	if err := s.DB.SelectContext(ctx, &orders, query, append(args, f.Limit, (f.Page-1)*f.Limit)...); err != nil {
		return nil, 0, apperr.Wrap(err, "list purchase orders")
	}
	return orders, total, nil
}

// Delete removes an order and everything attached to it. Only admins may delete.
func (s *Service) Delete(ctx context.Context, poID int64) error {
	rc, err := caller(ctx)
	if err != nil {
		return err
	}
	if !rc.HasAny(auth.RoleAdmin, auth.RolePlatformAdmin) {
		return apperr.Denied("Only administrators can delete purchase orders.")
	}

	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return apperr.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	po, err := loadPO(ctx, tx, rc, poID)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM purchase_orders WHERE id = ?`, po.ID); err != nil {
		return apperr.Wrap(err, "delete purchase order")
	}
	now := s.now()
	if err := audit.Log(ctx, tx, audit.Entry{
		CompanyID:  po.CompanyID,
		UserID:     rc.UserID,
		ActionType: audit.PODeleted,
		TargetType: audit.TargetPurchaseOrder,
		TargetID:   po.ID,
		Details:    fmt.Sprintf("Deleted request for %s in status %s", po.CustomerName, po.Status),
		IPAddress:  audit.ClientIP(ctx),
		At:         now,
	}); err != nil {
		return apperr.Wrap(err, "audit")
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(err, "commit")
	}
	logger.FromContext(ctx).Warn("purchase order deleted",
		zap.Int64("po_id", po.ID), zap.String("user", rc.Username))
	if s.Events != nil {
		s.Events.Publish(websocket.Event{Type: "purchase_order", CompanyID: po.CompanyID, ID: po.ID, Action: "delete"})
	}
	return nil
}
