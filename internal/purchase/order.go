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
	"jewelpo/internal/models"
	"jewelpo/internal/validation"
	"jewelpo/internal/workflow"
)

// MaxLineQuantity caps the units ordered for a single design.
const MaxLineQuantity = 10000

// LineInput is one design ordered from the vendor.
type LineInput struct {
	DesignCode string `json:"design_code"`
	Quantity   int    `json:"quantity"`
}

// PlaceOrderInput assigns a vendor and the ordered designs to a request.
type PlaceOrderInput struct {
	Expect
	VendorID   int64       `json:"vendor_id"`
	PONumber   string      `json:"po_number"`
	TargetDate string      `json:"target_date"`
	Items      []LineInput `json:"items"`
}

func (in *PlaceOrderInput) validate() error {
	in.PONumber = strings.TrimSpace(in.PONumber)
	ve := &validation.ValidationErrors{}
	validation.RequireID(ve, "vendor_id", in.VendorID)
	validation.RequireField(ve, "po_number", in.PONumber)
	validation.ValidateMaxLength(ve, "po_number", in.PONumber, 64)
	validation.ValidateCode(ve, "po_number", in.PONumber)
	validation.RequireField(ve, "target_date", in.TargetDate)
	validation.ValidateDate(ve, "target_date", in.TargetDate)
	if len(in.Items) == 0 {
		ve.Add("items", "at least one design is required")
	}
	for i := range in.Items {
		line := &in.Items[i]
		line.DesignCode = strings.TrimSpace(line.DesignCode)
		field := fmt.Sprintf("items[%d]", i)
		validation.RequireField(ve, field+".design_code", line.DesignCode)
		validation.ValidateMaxLength(ve, field+".design_code", line.DesignCode, 64)
		validation.ValidateCode(ve, field+".design_code", line.DesignCode)
		validation.ValidateIntRange(ve, field+".quantity", line.Quantity, 1, MaxLineQuantity)
	}
	if ve.HasErrors() {
		return apperr.FromValidation(ve)
	}
	return nil
}

// PlaceOrder records the vendor order for a New Request.
func (s *Service) PlaceOrder(ctx context.Context, poID int64, in PlaceOrderInput) (*models.PurchaseOrder, error) {
	return s.advance(ctx, step{
		action:   workflow.ActionPlaceOrder,
		poID:     poID,
		expect:   in.Expect,
		validate: in.validate,
		apply: func(ctx context.Context, tx *sqlx.Tx, rc auth.RequestContext, po *models.PurchaseOrder) (workflow.Status, string, error) {
			var active bool
			err := tx.GetContext(ctx, &active, `SELECT is_active FROM vendors WHERE id = ? AND company_id = ?`, in.VendorID, po.CompanyID)
			if errors.Is(err, sql.ErrNoRows) {
				return "", "", apperr.Invalid("Vendor %d does not exist.", in.VendorID)
			}
			if err != nil {
				return "", "", apperr.Wrap(err, "load vendor")
			}
			if !active {
				return "", "", apperr.Invalid("Vendor %d is inactive.", in.VendorID)
			}

			if _, err := tx.ExecContext(ctx, `UPDATE purchase_orders SET vendor_id = ?, po_number = ?, target_date = ? WHERE id = ?`,
				in.VendorID, in.PONumber, in.TargetDate, po.ID); err != nil {
				return "", "", apperr.Wrap(err, "set vendor order")
			}
			units := 0
			for _, line := range in.Items {
				if _, err := tx.ExecContext(ctx, `INSERT INTO po_items (po_id, design_code, quantity, quantity_received)
					VALUES (?, ?, ?, 0)`, po.ID, line.DesignCode, line.Quantity); err != nil {
					return "", "", apperr.Wrap(err, "insert po item")
				}
				units += line.Quantity
			}
			to, err := workflow.Next(workflow.ActionPlaceOrder, po.Status)
			return to, fmt.Sprintf("PO %s placed: %d design(s), %d unit(s), target %s",
				in.PONumber, len(in.Items), units, in.TargetDate), err
		},
	})
}

// ReceiveGoodsInput records the date the vendor's shipment arrived.
type ReceiveGoodsInput struct {
	Expect
	ReceivedDate string `json:"received_date"`
}

func (in *ReceiveGoodsInput) validate() error {
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "received_date", in.ReceivedDate)
	validation.ValidateDate(ve, "received_date", in.ReceivedDate)
	if ve.HasErrors() {
		return apperr.FromValidation(ve)
	}
	return nil
}

// ReceiveGoods marks the vendor shipment as physically received.
func (s *Service) ReceiveGoods(ctx context.Context, poID int64, in ReceiveGoodsInput) (*models.PurchaseOrder, error) {
	return s.advance(ctx, step{
		action:   workflow.ActionReceiveGoods,
		poID:     poID,
		expect:   in.Expect,
		validate: in.validate,
		apply: func(ctx context.Context, tx *sqlx.Tx, rc auth.RequestContext, po *models.PurchaseOrder) (workflow.Status, string, error) {
			if _, err := tx.ExecContext(ctx, `UPDATE purchase_orders SET received_date = ? WHERE id = ?`, in.ReceivedDate, po.ID); err != nil {
				return "", "", apperr.Wrap(err, "set received date")
			}
			to, err := workflow.Next(workflow.ActionReceiveGoods, po.Status)
			return to, "Goods received on " + in.ReceivedDate, err
		},
	})
}

// simple advances an order whose action has no inputs beyond the caller.
func (s *Service) simple(ctx context.Context, a workflow.Action, poID int64, expect Expect, details string) (*models.PurchaseOrder, error) {
	return s.advance(ctx, step{
		action: a,
		poID:   poID,
		expect: expect,
		apply: func(ctx context.Context, tx *sqlx.Tx, rc auth.RequestContext, po *models.PurchaseOrder) (workflow.Status, string, error) {
			to, err := workflow.Next(a, po.Status)
			return to, details, err
		},
	})
}
