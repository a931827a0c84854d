package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"jewelpo/internal/apperr"
	"jewelpo/internal/auth"
	"jewelpo/internal/database"
	"jewelpo/internal/models"
	"jewelpo/internal/validation"
	"jewelpo/internal/workflow"
)

// InwardInput tags one received piece against an ordered design.
type InwardInput struct {
	Expect
	POItemID  int64  `json:"po_item_id"`
	JewelCode string `json:"jewel_code"`
}

func (in *InwardInput) validate() error {
	in.JewelCode = strings.TrimSpace(in.JewelCode)
	ve := &validation.ValidationErrors{}
	validation.RequireID(ve, "po_item_id", in.POItemID)
	validation.RequireField(ve, "jewel_code", in.JewelCode)
	validation.ValidateMaxLength(ve, "jewel_code", in.JewelCode, 64)
	validation.ValidateCode(ve, "jewel_code", in.JewelCode)
	if ve.HasErrors() {
		return apperr.FromValidation(ve)
	}
	return nil
}

func jewelCodeInUse(code string) error {
	return apperr.Conflictf("Jewel Code '%s' is already in use.", code)
}

// InwardItem records one physical piece with a jewel code that is unique in
// the company, and counts it against the design's ordered quantity.
func (s *Service) InwardItem(ctx context.Context, poID int64, in InwardInput) (*models.JewelUnit, error) {
	var unit models.JewelUnit
	_, err := s.advance(ctx, step{
		action:   workflow.ActionInwardItem,
		poID:     poID,
		expect:   in.Expect,
		validate: in.validate,
		apply: func(ctx context.Context, tx *sqlx.Tx, rc auth.RequestContext, po *models.PurchaseOrder) (workflow.Status, string, error) {
			var item models.POItem
			err := tx.GetContext(ctx, &item, `SELECT id, po_id, design_code, quantity, quantity_received
				FROM po_items WHERE id = ? AND po_id = ?`, in.POItemID, po.ID)
			if errors.Is(err, sql.ErrNoRows) {
				return "", "", apperr.Invalid("Item %d is not part of purchase order %d.", in.POItemID, po.ID)
			}
			if err != nil {
				return "", "", apperr.Wrap(err, "load po item")
			}

			inUse, err := count(ctx, tx, `SELECT COUNT(*) FROM jewel_inventory WHERE company_id = ? AND jewel_code = ?`,
				po.CompanyID, in.JewelCode)
			if err != nil {
				return "", "", err
			}
			if inUse > 0 {
				return "", "", jewelCodeInUse(in.JewelCode)
			}
			if item.QuantityReceived >= item.Quantity {
				return "", "", apperr.Precondition("All items for this design have already been inwarded.")
			}

			now := s.now()
			res, err := tx.ExecContext(ctx, `INSERT INTO jewel_inventory
				(company_id, po_id, po_item_id, jewel_code, qc_status, qc_remarks, image_status, inward_by_user_id, inward_at)
				VALUES (?, ?, ?, ?, 'Pending', '', 'Pending', ?, ?)`,
				po.CompanyID, po.ID, item.ID, in.JewelCode, rc.UserID, database.Timestamp(now))
			if database.IsUniqueViolation(err) {
				return "", "", jewelCodeInUse(in.JewelCode)
			}
			if err != nil {
				return "", "", apperr.Wrap(err, "insert jewel")
			}
			id, err := res.LastInsertId()
			if err != nil {
				return "", "", apperr.Wrap(err, "jewel id")
			}

			res, err = tx.ExecContext(ctx, `UPDATE po_items SET quantity_received = quantity_received + 1
				WHERE id = ? AND quantity_received < quantity`, item.ID)
			if err != nil {
				return "", "", apperr.Wrap(err, "count received")
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return "", "", apperr.Precondition("All items for this design have already been inwarded.")
			}

			uid := rc.UserID
			unit = models.JewelUnit{
				ID:          id,
				CompanyID:   po.CompanyID,
				POID:        po.ID,
				POItemID:    item.ID,
				DesignCode:  item.DesignCode,
				JewelCode:   in.JewelCode,
				QCStatus:    "Pending",
				ImageStatus: "Pending",
				InwardBy:    &uid,
				InwardAt:    database.Timestamp(now),
			}
			to, err := workflow.Next(workflow.ActionInwardItem, po.Status)
			return to, fmt.Sprintf("Jewel %s inwarded for design %s (%d/%d)",
				in.JewelCode, item.DesignCode, item.QuantityReceived+1, item.Quantity), err
		},
	})
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// MarkInwardComplete closes receiving. Partial receipt is allowed.
func (s *Service) MarkInwardComplete(ctx context.Context, poID int64, expect Expect) (*models.PurchaseOrder, error) {
	return s.advance(ctx, step{
		action: workflow.ActionMarkInwardComplete,
		poID:   poID,
		expect: expect,
		apply: func(ctx context.Context, tx *sqlx.Tx, rc auth.RequestContext, po *models.PurchaseOrder) (workflow.Status, string, error) {
			var totals struct {
				Ordered  int `db:"ordered"`
				Received int `db:"received"`
			}
			if err := tx.GetContext(ctx, &totals, `SELECT COALESCE(SUM(quantity), 0) AS ordered,
				COALESCE(SUM(quantity_received), 0) AS received FROM po_items WHERE po_id = ?`, po.ID); err != nil {
				return "", "", apperr.Wrap(err, "sum received")
			}
			to, err := workflow.Next(workflow.ActionMarkInwardComplete, po.Status)
			return to, fmt.Sprintf("Inward complete: %d of %d unit(s) received", totals.Received, totals.Ordered), err
		},
	})
}
