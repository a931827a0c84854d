package reports

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"jewelpo/internal/workflow"
)

// PayableInvoice is one invoice row with its order and vendor.
type PayableInvoice struct {
	POID                int64               `db:"po_id" json:"po_id"`
	PONumber            *string             `db:"po_number" json:"po_number"`
	VendorName          *string             `db:"vendor_name" json:"vendor_name"`
	Status              workflow.Status     `db:"status" json:"status"`
	VendorInvoiceNumber *string             `db:"vendor_invoice_number" json:"vendor_invoice_number"`
	InvoiceDate         *string             `db:"invoice_date" json:"invoice_date"`
	TotalAmount         decimal.NullDecimal `db:"total_amount" json:"total_amount"`
	AccountsStatus      string              `db:"accounts_status" json:"accounts_status"`
}

// PayableSummary sums invoice amounts per accounts status.
type PayableSummary struct {
	Pending  decimal.Decimal `json:"pending"`
	Verified decimal.Decimal `json:"verified"`
	Paid     decimal.Decimal `json:"paid"`
	Total    decimal.Decimal `json:"total"`
}

type AccountsPayableReport struct {
	Invoices []PayableInvoice `json:"invoices"`
	Summary  PayableSummary   `json:"summary"`
}

// AccountsPayable lists invoices grouped Pending, Verified then Paid, oldest first.
func (s *Service) AccountsPayable(ctx context.Context) (*AccountsPayableReport, error) {
	rc, err := authorize(ctx, true)
	if err != nil {
		return nil, err
	}
	cond, args := tenant(rc, "i.company_id")

	report := &AccountsPayableReport{Invoices: []PayableInvoice{}}
	err = s.DB.SelectContext(ctx, &report.Invoices, `SELECT i.po_id, po.po_number, v.vendor_name, po.status,
		i.vendor_invoice_number, i.invoice_date, i.total_amount, i.accounts_status
		FROM purchase_invoices i
		JOIN purchase_orders po ON po.id = i.po_id
		LEFT JOIN vendors v ON v.id = po.vendor_id
		WHERE 1=1`+cond+`
		ORDER BY CASE i.accounts_status WHEN 'Pending' THEN 0 WHEN 'Verified' THEN 1 ELSE 2 END,
			i.invoice_date, i.po_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("accounts payable: %w", err)
	}
	for _, inv := range report.Invoices {
		if !inv.TotalAmount.Valid {
			continue
		}
		amt := inv.TotalAmount.Decimal
		switch inv.AccountsStatus {
		case "Pending":
			report.Summary.Pending = report.Summary.Pending.Add(amt)
		case "Verified":
			report.Summary.Verified = report.Summary.Verified.Add(amt)
		case "Paid":
			report.Summary.Paid = report.Summary.Paid.Add(amt)
		}
		report.Summary.Total = report.Summary.Total.Add(amt)
	}
	return report, nil
}

func (r *AccountsPayableReport) Table() Table {
	t := Table{Name: "accounts-payable", Headers: []string{"PO Number", "Vendor", "PO Status", "Invoice Number", "Invoice Date", "Amount", "Accounts Status"}}
	for _, inv := range r.Invoices {
		t.Rows = append(t.Rows, []string{deref(inv.PONumber), deref(inv.VendorName), string(inv.Status),
			deref(inv.VendorInvoiceNumber), deref(inv.InvoiceDate), money(inv.TotalAmount), inv.AccountsStatus})
	}
	return t
}

// AccountsRow is an order in a finance status with its invoice, if any.
type AccountsRow struct {
	POID                int64               `db:"id" json:"po_id"`
	PONumber            *string             `db:"po_number" json:"po_number"`
	CustomerName        string              `db:"customer_name" json:"customer_name"`
	VendorName          *string             `db:"vendor_name" json:"vendor_name"`
	Status              workflow.Status     `db:"status" json:"status"`
	VendorInvoiceNumber *string             `db:"vendor_invoice_number" json:"vendor_invoice_number"`
	TotalAmount         decimal.NullDecimal `db:"total_amount" json:"total_amount"`
	AccountsStatus      *string             `db:"accounts_status" json:"accounts_status"`
	UpdatedAt           string              `db:"updated_at" json:"updated_at"`
}

type AccountsViewReport struct {
	Orders []AccountsRow `json:"orders"`
}

// AccountsView is the accounts team's worklist: every order from Purchase File
// Generated onwards, most recently changed first.
func (s *Service) AccountsView(ctx context.Context) (*AccountsViewReport, error) {
	rc, err := authorize(ctx, true)
	if err != nil {
		return nil, err
	}
	cond, args := tenant(rc, "po.company_id")

	report := &AccountsViewReport{Orders: []AccountsRow{}}
	err = s.selectIn(ctx, &report.Orders, `SELECT po.id, po.po_number, po.customer_name, v.vendor_name, po.status,
		i.vendor_invoice_number, i.total_amount, i.accounts_status, po.updated_at
		FROM purchase_orders po
		LEFT JOIN vendors v ON v.id = po.vendor_id
		LEFT JOIN purchase_invoices i ON i.po_id = po.id
		WHERE po.status IN (?)`+cond+`
		ORDER BY po.updated_at DESC, po.id DESC`,
		append([]interface{}{workflow.StatusStrings(workflow.FinanceStatuses)}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("accounts view: %w", err)
	}
	return report, nil
}

func (r *AccountsViewReport) Table() Table {
	t := Table{Name: "accounts-view", Headers: []string{"PO Number", "Customer", "Vendor", "Status", "Invoice Number", "Amount", "Accounts Status"}}
	for _, o := range r.Orders {
		t.Rows = append(t.Rows, []string{deref(o.PONumber), o.CustomerName, deref(o.VendorName), string(o.Status),
			deref(o.VendorInvoiceNumber), money(o.TotalAmount), deref(o.AccountsStatus)})
	}
	return t
}

func money(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(2)
}
