package purchase

import (
	"context"
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

// GeneratePurchaseFile hands the order to accounts. Orders that failed QC
// skip imaging and reach this step directly.
func (s *Service) GeneratePurchaseFile(ctx context.Context, poID int64, expect Expect) (*models.PurchaseOrder, error) {
	return s.simple(ctx, workflow.ActionGeneratePurchaseFile, poID, expect, "Purchase file generated")
}

// VerifyInput carries the accounts team's remarks.
type VerifyInput struct {
	Expect
	Remarks string `json:"accounts_remarks"`
}

func (in *VerifyInput) validate() error {
	in.Remarks = strings.TrimSpace(in.Remarks)
	ve := &validation.ValidationErrors{}
	validation.ValidateMaxLength(ve, "accounts_remarks", in.Remarks, 2000)
	if ve.HasErrors() {
		return apperr.FromValidation(ve)
	}
	return nil
}

// AccountsVerify marks the purchase file verified and creates or updates the
// order's invoice record with the accounts decision.
func (s *Service) AccountsVerify(ctx context.Context, poID int64, in VerifyInput) (*models.PurchaseOrder, error) {
	return s.advance(ctx, step{
		action:   workflow.ActionAccountsVerify,
		poID:     poID,
		expect:   in.Expect,
		validate: in.validate,
		apply: func(ctx context.Context, tx *sqlx.Tx, rc auth.RequestContext, po *models.PurchaseOrder) (workflow.Status, string, error) {
			ts := database.Timestamp(s.now())
			if _, err := tx.ExecContext(ctx, `INSERT INTO purchase_invoices
				(po_id, company_id, accounts_status, accounts_remarks, accounts_user_id, created_at, updated_at)
				VALUES (?, ?, 'Verified', ?, ?, ?, ?)
				ON CONFLICT(po_id) DO UPDATE SET
					accounts_status = excluded.accounts_status,
					accounts_remarks = excluded.accounts_remarks,
					accounts_user_id = excluded.accounts_user_id,
					updated_at = excluded.updated_at`,
				po.ID, po.CompanyID, in.Remarks, rc.UserID, ts, ts); err != nil {
				return "", "", apperr.Wrap(err, "upsert invoice verification")
			}
			details := "Accounts verified"
			if in.Remarks != "" {
				details += ": " + in.Remarks
			}
			to, err := workflow.Next(workflow.ActionAccountsVerify, po.Status)
			return to, details, err
		},
	})
}

// InvoiceInput is the vendor invoice logged by the purchase team.
type InvoiceInput struct {
	Expect
	VendorInvoiceNumber string `json:"vendor_invoice_number"`
	InvoiceDate         string `json:"invoice_date"`
	TotalAmount         string `json:"total_amount"`
}

func (in *InvoiceInput) validate() (string, error) {
	in.VendorInvoiceNumber = strings.TrimSpace(in.VendorInvoiceNumber)
	ve := &validation.ValidationErrors{}
	validation.RequireField(ve, "vendor_invoice_number", in.VendorInvoiceNumber)
	validation.ValidateMaxLength(ve, "vendor_invoice_number", in.VendorInvoiceNumber, 64)
	validation.RequireField(ve, "invoice_date", in.InvoiceDate)
	validation.ValidateDate(ve, "invoice_date", in.InvoiceDate)
	amount := validation.ParseAmount(ve, "total_amount", in.TotalAmount)
	if ve.HasErrors() {
		return "", apperr.FromValidation(ve)
	}
	return amount.StringFixed(2), nil
}

// LogInvoice records the vendor invoice. The invoice row is keyed by order, so
// logging again while Invoice Received corrects it in place.
func (s *Service) LogInvoice(ctx context.Context, poID int64, in InvoiceInput) (*models.PurchaseOrder, error) {
	var amount string
	return s.advance(ctx, step{
		action: workflow.ActionLogInvoice,
		poID:   poID,
		expect: in.Expect,
		validate: func() error {
			var err error
			amount, err = in.validate()
			return err
		},
		apply: func(ctx context.Context, tx *sqlx.Tx, rc auth.RequestContext, po *models.PurchaseOrder) (workflow.Status, string, error) {
			ts := database.Timestamp(s.now())
			if _, err := tx.ExecContext(ctx, `INSERT INTO purchase_invoices
				(po_id, company_id, vendor_invoice_number, invoice_date, total_amount, purchase_team_user_id, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(po_id) DO UPDATE SET
					vendor_invoice_number = excluded.vendor_invoice_number,
					invoice_date = excluded.invoice_date,
					total_amount = excluded.total_amount,
					purchase_team_user_id = excluded.purchase_team_user_id,
					updated_at = excluded.updated_at`,
				po.ID, po.CompanyID, in.VendorInvoiceNumber, in.InvoiceDate, amount, rc.UserID, ts, ts); err != nil {
				return "", "", apperr.Wrap(err, "upsert invoice")
			}
			to, err := workflow.Next(workflow.ActionLogInvoice, po.Status)
			return to, fmt.Sprintf("Invoice %s dated %s for %s", in.VendorInvoiceNumber, in.InvoiceDate, amount), err
		},
	})
}

// PurchaseComplete closes the purchase side of the order.
func (s *Service) PurchaseComplete(ctx context.Context, poID int64, expect Expect) (*models.PurchaseOrder, error) {
	return s.simple(ctx, workflow.ActionPurchaseComplete, poID, expect, "Purchase complete")
}

// CustomerDelivery records hand-over to the customer. It is the final step.
func (s *Service) CustomerDelivery(ctx context.Context, poID int64, expect Expect) (*models.PurchaseOrder, error) {
	return s.simple(ctx, workflow.ActionCustomerDelivery, poID, expect, "Delivered to customer")
}
