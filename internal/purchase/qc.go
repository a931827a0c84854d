package purchase

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"jewelpo/internal/apperr"
	"jewelpo/internal/auth"
	"jewelpo/internal/models"
	"jewelpo/internal/validation"
	"jewelpo/internal/workflow"
)

// QCInput records the inspection result for one piece.
type QCInput struct {
	Expect
	JewelID  int64  `json:"jewel_id"`
	QCStatus string `json:"qc_status"`
	Remarks  string `json:"qc_remarks"`
}

func (in *QCInput) validate() error {
	in.Remarks = strings.TrimSpace(in.Remarks)
	ve := &validation.ValidationErrors{}
	validation.RequireID(ve, "jewel_id", in.JewelID)
	validation.RequireField(ve, "qc_status", in.QCStatus)
	validation.ValidateEnum(ve, "qc_status", in.QCStatus, validation.ValidQCDecisions)
	validation.ValidateMaxLength(ve, "qc_remarks", in.Remarks, 2000)
	if in.QCStatus == "Fail" && in.Remarks == "" {
		ve.Add("qc_remarks", "are required when QC fails")
	}
	if ve.HasErrors() {
		return apperr.FromValidation(ve)
	}
	if in.QCStatus == "Pass" {
		in.Remarks = ""
	}
	return nil
}

// UpdateQC sets one piece to Pass or Fail. Repeating it overwrites the previous result.
func (s *Service) UpdateQC(ctx context.Context, poID int64, in QCInput) (*models.PurchaseOrder, error) {
	return s.advance(ctx, step{
		action:   workflow.ActionUpdateQC,
		poID:     poID,
		expect:   in.Expect,
		validate: in.validate,
		apply: func(ctx context.Context, tx *sqlx.Tx, rc auth.RequestContext, po *models.PurchaseOrder) (workflow.Status, string, error) {
			var code string
			err := tx.GetContext(ctx, &code, `SELECT jewel_code FROM jewel_inventory WHERE id = ? AND po_id = ?`, in.JewelID, po.ID)
			if err != nil {
				return "", "", jewelNotOnOrder(err, in.JewelID, po.ID)
			}
			if _, err := tx.ExecContext(ctx, `UPDATE jewel_inventory SET qc_status = ?, qc_remarks = ? WHERE id = ?`,
				in.QCStatus, in.Remarks, in.JewelID); err != nil {
				return "", "", apperr.Wrap(err, "update qc")
			}
			details := fmt.Sprintf("Jewel %s QC %s", code, in.QCStatus)
			if in.Remarks != "" {
				details += ": " + in.Remarks
			}
			to, err := workflow.Next(workflow.ActionUpdateQC, po.Status)
			return to, details, err
		},
	})
}

// MarkQCComplete closes inspection once no piece is Pending. Any failed piece
// sends the order to QC Failed.
func (s *Service) MarkQCComplete(ctx context.Context, poID int64, expect Expect) (*models.PurchaseOrder, error) {
	return s.advance(ctx, step{
		action: workflow.ActionMarkQCComplete,
		poID:   poID,
		expect: expect,
		apply: func(ctx context.Context, tx *sqlx.Tx, rc auth.RequestContext, po *models.PurchaseOrder) (workflow.Status, string, error) {
			pending, err := count(ctx, tx, `SELECT COUNT(*) FROM jewel_inventory WHERE po_id = ? AND qc_status = 'Pending'`, po.ID)
			if err != nil {
				return "", "", err
			}
			if pending > 0 {
				return "", "", apperr.Precondition("Cannot complete QC: %d item(s) are still pending QC.", pending)
			}
			failed, err := count(ctx, tx, `SELECT COUNT(*) FROM jewel_inventory WHERE po_id = ? AND qc_status = 'Fail'`, po.ID)
			if err != nil {
				return "", "", err
			}
			to := workflow.ResolveQC(failed)
			return to, fmt.Sprintf("QC complete with %d failed item(s)", failed), nil
		},
	})
}

// ImageInput marks one QC-passed piece as photographed.
type ImageInput struct {
	Expect
	JewelID int64 `json:"jewel_id"`
}

func (in *ImageInput) validate() error {
	ve := &validation.ValidationErrors{}
	validation.RequireID(ve, "jewel_id", in.JewelID)
	if ve.HasErrors() {
		return apperr.FromValidation(ve)
	}
	return nil
}

// UpdateImageStatus sets a passed piece's image status to Completed.
func (s *Service) UpdateImageStatus(ctx context.Context, poID int64, in ImageInput) (*models.PurchaseOrder, error) {
	return s.advance(ctx, step{
		action:   workflow.ActionUpdateImageStatus,
		poID:     poID,
		expect:   in.Expect,
		validate: in.validate,
		apply: func(ctx context.Context, tx *sqlx.Tx, rc auth.RequestContext, po *models.PurchaseOrder) (workflow.Status, string, error) {
			var code string
			err := tx.GetContext(ctx, &code, `SELECT jewel_code FROM jewel_inventory WHERE id = ? AND po_id = ?`, in.JewelID, po.ID)
			if err != nil {
				return "", "", jewelNotOnOrder(err, in.JewelID, po.ID)
			}
			res, err := tx.ExecContext(ctx, `UPDATE jewel_inventory SET image_status = 'Completed'
				WHERE id = ? AND qc_status = 'Pass' AND image_status = 'Pending'`, in.JewelID)
			if err != nil {
				return "", "", apperr.Wrap(err, "update image status")
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return "", "", apperr.Precondition("Jewel %s must have passed QC and still be pending imaging.", code)
			}
			to, err := workflow.Next(workflow.ActionUpdateImageStatus, po.Status)
			return to, fmt.Sprintf("Jewel %s imaged", code), err
		},
	})
}

// MarkImagingComplete closes imaging once every passed piece is photographed.
func (s *Service) MarkImagingComplete(ctx context.Context, poID int64, expect Expect) (*models.PurchaseOrder, error) {
	return s.advance(ctx, step{
		action: workflow.ActionMarkImagingComplete,
		poID:   poID,
		expect: expect,
		apply: func(ctx context.Context, tx *sqlx.Tx, rc auth.RequestContext, po *models.PurchaseOrder) (workflow.Status, string, error) {
			pending, err := count(ctx, tx, `SELECT COUNT(*) FROM jewel_inventory
				WHERE po_id = ? AND qc_status = 'Pass' AND image_status = 'Pending'`, po.ID)
			if err != nil {
				return "", "", err
			}
			if pending > 0 {
				return "", "", apperr.Precondition("Cannot complete imaging: %d QC-passed item(s) are still pending imaging.", pending)
			}
			to, err := workflow.Next(workflow.ActionMarkImagingComplete, po.Status)
			return to, "Imaging complete", err
		},
	})
}
