package reports

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"jewelpo/internal/database"
)

// VendorPerformance summarises one vendor's orders.
type VendorPerformance struct {
	VendorID      int64           `db:"id" json:"vendor_id"`
	VendorName    string          `db:"vendor_name" json:"vendor_name"`
	TotalPOs      int             `db:"total_pos" json:"total_pos"`
	ItemsOrdered  int             `db:"items_ordered" json:"items_ordered"`
	ItemsReceived int             `db:"items_received" json:"items_received"`
	AvgDaysLate   *float64        `db:"-" json:"avg_days_late"`
	TotalFailQC   int             `db:"total_fail_qc" json:"total_fail_qc"`
	TotalInvoiced decimal.Decimal `db:"-" json:"total_invoiced"`
}

// VendorPerformanceReport lists every vendor by name.
type VendorPerformanceReport struct {
	Vendors []VendorPerformance `json:"vendors"`
}

// VendorPerformance reports volume, lateness, QC failures and invoiced value per vendor.
// Lateness is received_date minus target_date in days, over received orders only.
func (s *Service) VendorPerformance(ctx context.Context) (*VendorPerformanceReport, error) {
	rc, err := authorize(ctx, false)
	if err != nil {
		return nil, err
	}
	cond, args := tenant(rc, "v.company_id")

	report := &VendorPerformanceReport{Vendors: []VendorPerformance{}}
	err = s.DB.SelectContext(ctx, &report.Vendors, `SELECT v.id, v.vendor_name,
		(SELECT COUNT(*) FROM purchase_orders po WHERE po.vendor_id = v.id) AS total_pos,
		(SELECT COALESCE(SUM(pi.quantity), 0) FROM po_items pi
			JOIN purchase_orders po ON po.id = pi.po_id WHERE po.vendor_id = v.id) AS items_ordered,
		(SELECT COALESCE(SUM(pi.quantity_received), 0) FROM po_items pi
			JOIN purchase_orders po ON po.id = pi.po_id WHERE po.vendor_id = v.id) AS items_received,
		(SELECT COUNT(*) FROM jewel_inventory j
			JOIN purchase_orders po ON po.id = j.po_id WHERE po.vendor_id = v.id AND j.qc_status = 'Fail') AS total_fail_qc
		FROM vendors v WHERE 1=1`+cond+` ORDER BY v.vendor_name, v.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("vendor performance: %w", err)
	}
	if len(report.Vendors) == 0 {
		return report, nil
	}

	byID := make(map[int64]*VendorPerformance, len(report.Vendors))
	for i := range report.Vendors {
		byID[report.Vendors[i].VendorID] = &report.Vendors[i]
	}

	poCond, poArgs := tenant(rc, "company_id")
	var deliveries []struct {
		VendorID     int64  `db:"vendor_id"`
		TargetDate   string `db:"target_date"`
		ReceivedDate string `db:"received_date"`
	}
	err = s.DB.SelectContext(ctx, &deliveries, `SELECT vendor_id, target_date, received_date FROM purchase_orders
		WHERE vendor_id IS NOT NULL AND target_date IS NOT NULL AND received_date IS NOT NULL`+poCond, poArgs...)
	if err != nil {
		return nil, fmt.Errorf("vendor lateness: %w", err)
	}
	late := map[int64][2]int{}
	for _, d := range deliveries {
		target, err1 := database.ParseTime(d.TargetDate)
		received, err2 := database.ParseTime(d.ReceivedDate)
		if err1 != nil || err2 != nil {
			continue
		}
		acc := late[d.VendorID]
		acc[0] += database.DaysBetween(target, received)
		acc[1]++
		late[d.VendorID] = acc
	}
	for id, acc := range late {
		if v, ok := byID[id]; ok && acc[1] > 0 {
			avg := round1(float64(acc[0]) / float64(acc[1]))
			v.AvgDaysLate = &avg
		}
	}

	invCond, invArgs := tenant(rc, "i.company_id")
	var amounts []struct {
		VendorID int64               `db:"vendor_id"`
		Amount   decimal.NullDecimal `db:"total_amount"`
	}
	err = s.DB.SelectContext(ctx, &amounts, `SELECT po.vendor_id, i.total_amount FROM purchase_invoices i
		JOIN purchase_orders po ON po.id = i.po_id
		WHERE po.vendor_id IS NOT NULL AND i.total_amount IS NOT NULL`+invCond, invArgs...)
	if err != nil {
		return nil, fmt.Errorf("vendor invoiced: %w", err)
	}
	for _, a := range amounts {
		if v, ok := byID[a.VendorID]; ok && a.Amount.Valid {
			v.TotalInvoiced = v.TotalInvoiced.Add(a.Amount.Decimal)
		}
	}
	return report, nil
}

func (r *VendorPerformanceReport) Table() Table {
	t := Table{Name: "vendor-performance", Headers: []string{
		"Vendor", "Total POs", "Items Ordered", "Items Received", "Avg Days Late", "Failed QC", "Total Invoiced"}}
	for _, v := range r.Vendors {
		late := "N/A"
		if v.AvgDaysLate != nil {
			late = strconv.FormatFloat(*v.AvgDaysLate, 'f', 1, 64)
		}
		t.Rows = append(t.Rows, []string{v.VendorName, strconv.Itoa(v.TotalPOs), strconv.Itoa(v.ItemsOrdered),
			strconv.Itoa(v.ItemsReceived), late, strconv.Itoa(v.TotalFailQC), v.TotalInvoiced.StringFixed(2)})
	}
	return t
}

// QCVendorSummary is the failure rate of one vendor's inspected units.
type QCVendorSummary struct {
	VendorName  string  `db:"vendor_name" json:"vendor_name"`
	TotalFailed int     `db:"total_failed" json:"total_failed"`
	TotalQCd    int     `db:"total_qcd" json:"total_qcd"`
	FailRate    float64 `db:"-" json:"fail_rate"`
}

// QCFailure is one unit that failed inspection.
type QCFailure struct {
	JewelCode  string  `db:"jewel_code" json:"jewel_code"`
	QCRemarks  string  `db:"qc_remarks" json:"qc_remarks"`
	InwardAt   string  `db:"inward_at" json:"inward_at"`
	DesignCode string  `db:"design_code" json:"design_code"`
	PONumber   *string `db:"po_number" json:"po_number"`
	VendorName *string `db:"vendor_name" json:"vendor_name"`
}

type QCFailureReport struct {
	Summary  []QCVendorSummary `json:"summary"`
	Failures []QCFailure       `json:"failures"`
}

// QCFailures reports fail rates per vendor and lists failed units, newest first.
func (s *Service) QCFailures(ctx context.Context) (*QCFailureReport, error) {
	rc, err := authorize(ctx, false)
	if err != nil {
		return nil, err
	}
	cond, args := tenant(rc, "j.company_id")

	report := &QCFailureReport{Summary: []QCVendorSummary{}, Failures: []QCFailure{}}
	err = s.DB.SelectContext(ctx, &report.Summary, `SELECT v.vendor_name,
		SUM(CASE WHEN j.qc_status = 'Fail' THEN 1 ELSE 0 END) AS total_failed,
		SUM(CASE WHEN j.qc_status IN ('Pass', 'Fail') THEN 1 ELSE 0 END) AS total_qcd
		FROM jewel_inventory j
		JOIN purchase_orders po ON po.id = j.po_id
		JOIN vendors v ON v.id = po.vendor_id
		WHERE 1=1`+cond+`
		GROUP BY v.id, v.vendor_name
		HAVING total_qcd > 0
		ORDER BY total_failed DESC, v.vendor_name`, args...)
	if err != nil {
		return nil, fmt.Errorf("qc summary: %w", err)
	}
	for i := range report.Summary {
		sm := &report.Summary[i]
		sm.FailRate = round1(float64(sm.TotalFailed) / float64(sm.TotalQCd) * 100)
	}

	err = s.DB.SelectContext(ctx, &report.Failures, `SELECT j.jewel_code, j.qc_remarks, j.inward_at,
		pi.design_code, po.po_number, v.vendor_name
		FROM jewel_inventory j
		JOIN po_items pi ON pi.id = j.po_item_id
		JOIN purchase_orders po ON po.id = j.po_id
		LEFT JOIN vendors v ON v.id = po.vendor_id
		WHERE j.qc_status = 'Fail'`+cond+`
		ORDER BY j.inward_at DESC, j.id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("qc failures: %w", err)
	}
	return report, nil
}

// Table exports the failed units; the vendor summary is JSON only.
func (r *QCFailureReport) Table() Table {
	t := Table{Name: "qc-failures", Headers: []string{"Jewel Code", "Design", "PO Number", "Vendor", "Remarks", "Inward At"}}
	for _, f := range r.Failures {
		t.Rows = append(t.Rows, []string{f.JewelCode, f.DesignCode, deref(f.PONumber), deref(f.VendorName), f.QCRemarks, f.InwardAt})
	}
	return t
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
