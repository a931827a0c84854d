package reports

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"jewelpo/internal/workflow"
)

// AgingUnit is a QC-passed piece still held for an undelivered order.
type AgingUnit struct {
	JewelID       int64               `db:"id" json:"jewel_id"`
	JewelCode     string              `db:"jewel_code" json:"jewel_code"`
	DesignCode    string              `db:"design_code" json:"design_code"`
	POID          int64               `db:"po_id" json:"po_id"`
	PONumber      *string             `db:"po_number" json:"po_number"`
	VendorName    *string             `db:"vendor_name" json:"vendor_name"`
	Status        workflow.Status     `db:"status" json:"status"`
	InwardAt      string              `db:"inward_at" json:"inward_at"`
	DaysInStock   int                 `db:"-" json:"days_in_stock"`
	EstimatedCost decimal.NullDecimal `db:"-" json:"estimated_cost"`
}

// AgingBucket totals units by days in stock.
type AgingBucket struct {
	Label string          `json:"label"`
	Units int             `json:"units"`
	Value decimal.Decimal `json:"value"`
}

type InventoryAgingReport struct {
	Units      []AgingUnit     `json:"units"`
	Buckets    []AgingBucket   `json:"buckets"`
	TotalUnits int             `json:"total_units"`
	TotalValue decimal.Decimal `json:"total_value"`
}

var agingBuckets = []struct {
	label string
	max   int
}{
	{"0-30", 30},
	{"31-60", 60},
	{"61-90", 90},
	{"90+", -1},
}

func bucketFor(days int) int {
	for i, b := range agingBuckets {
		if b.max < 0 || days <= b.max {
			return i
		}
	}
	return len(agingBuckets) - 1
}

// InventoryAging lists stock that passed QC but has not reached the customer.
// A unit's estimated cost is its order's invoice total spread over the units
// received on that order; orders without an invoice contribute no value.
func (s *Service) InventoryAging(ctx context.Context) (*InventoryAgingReport, error) {
	rc, err := authorize(ctx, false)
	if err != nil {
		return nil, err
	}
	cond, args := tenant(rc, "j.company_id")

	var rows []struct {
		AgingUnit
		InvoiceTotal decimal.NullDecimal `db:"invoice_total"`
		Received     int                 `db:"received"`
	}
	err = s.DB.SelectContext(ctx, &rows, `SELECT j.id, j.jewel_code, pi.design_code, j.po_id, po.po_number,
		v.vendor_name, po.status, j.inward_at, i.total_amount AS invoice_total,
		(SELECT COALESCE(SUM(x.quantity_received), 0) FROM po_items x WHERE x.po_id = po.id) AS received
		FROM jewel_inventory j
		JOIN po_items pi ON pi.id = j.po_item_id
		JOIN purchase_orders po ON po.id = j.po_id
		LEFT JOIN vendors v ON v.id = po.vendor_id
		LEFT JOIN purchase_invoices i ON i.po_id = po.id
		WHERE j.qc_status = 'Pass' AND po.status <> ?`+cond+`
		ORDER BY j.inward_at, j.id`, append([]interface{}{workflow.StatusCustomerDelivered}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("inventory aging: %w", err)
	}

	now := s.now()
	report := &InventoryAgingReport{Units: make([]AgingUnit, 0, len(rows)), Buckets: make([]AgingBucket, len(agingBuckets))}
	for i, b := range agingBuckets {
		report.Buckets[i].Label = b.label
	}
	for _, row := range rows {
		u := row.AgingUnit
		u.DaysInStock = daysSince(u.InwardAt, now)
		if row.InvoiceTotal.Valid && row.Received > 0 {
			u.EstimatedCost = decimal.NewNullDecimal(row.InvoiceTotal.Decimal.DivRound(decimal.NewFromInt(int64(row.Received)), 2))
		}
		b := &report.Buckets[bucketFor(u.DaysInStock)]
		b.Units++
		if u.EstimatedCost.Valid {
			b.Value = b.Value.Add(u.EstimatedCost.Decimal)
			report.TotalValue = report.TotalValue.Add(u.EstimatedCost.Decimal)
		}
		report.TotalUnits++
		report.Units = append(report.Units, u)
	}
	return report, nil
}

func (r *InventoryAgingReport) Table() Table {
	t := Table{Name: "inventory-aging", Headers: []string{"Jewel Code", "Design", "PO Number", "Vendor", "Status", "Inward At", "Days In Stock", "Estimated Cost"}}
	for _, u := range r.Units {
		t.Rows = append(t.Rows, []string{u.JewelCode, u.DesignCode, deref(u.PONumber), deref(u.VendorName),
			string(u.Status), u.InwardAt, strconv.Itoa(u.DaysInStock), money(u.EstimatedCost)})
	}
	return t
}
