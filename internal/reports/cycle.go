package reports

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"jewelpo/internal/database"
	"jewelpo/internal/workflow"
)

// CycleMetric is the average duration of one lifecycle segment.
// AvgDays is nil when no delivered order has both endpoints.
type CycleMetric struct {
	Name    string   `json:"name"`
	AvgDays *float64 `json:"avg_days"`
	Samples int      `json:"samples"`
}

// CycleTimeReport covers every Customer Delivered order.
type CycleTimeReport struct {
	Delivered int           `json:"delivered"`
	Metrics   []CycleMetric `json:"metrics"`
}

type milestone int

const (
	msCreated milestone = iota
	msPlaced
	msReceived
	msInward
	msQC
	msPurchased
	msDelivered
	msCount
)

var segments = []struct {
	name     string
	from, to milestone
}{
	{"request_to_placed", msCreated, msPlaced},
	{"placed_to_received", msPlaced, msReceived},
	{"received_to_inward", msReceived, msInward},
	{"inward_to_qc", msInward, msQC},
	{"qc_to_purchase_complete", msQC, msPurchased},
	{"total_cycle", msCreated, msDelivered},
}

var statusMilestone = map[workflow.Status]milestone{
	workflow.StatusOrderPlaced:       msPlaced,
	workflow.StatusGoodsReceived:     msReceived,
	workflow.StatusInwardComplete:    msInward,
	workflow.StatusQCPassed:          msQC,
	workflow.StatusQCFailed:          msQC,
	workflow.StatusPurchaseComplete:  msPurchased,
	workflow.StatusCustomerDelivered: msDelivered,
}

// CycleTime averages the time between lifecycle milestones of delivered orders.
// Milestones come from the phase history, except that the received milestone
// uses the order's received_date when one was entered.
func (s *Service) CycleTime(ctx context.Context) (*CycleTimeReport, error) {
	rc, err := authorize(ctx, false)
	if err != nil {
		return nil, err
	}
	cond, args := tenant(rc, "company_id")

	var orders []struct {
		ID           int64   `db:"id"`
		CreatedAt    string  `db:"created_at"`
		ReceivedDate *string `db:"received_date"`
	}
	err = s.DB.SelectContext(ctx, &orders, `SELECT id, created_at, received_date FROM purchase_orders
		WHERE status = ?`+cond, append([]interface{}{workflow.StatusCustomerDelivered}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("cycle time orders: %w", err)
	}

	report := &CycleTimeReport{Delivered: len(orders), Metrics: make([]CycleMetric, len(segments))}
	for i, seg := range segments {
		report.Metrics[i].Name = seg.name
	}
	if len(orders) == 0 {
		return report, nil
	}

	stamps := make(map[int64]*[msCount]*time.Time, len(orders))
	ids := make([]int64, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		var m [msCount]*time.Time
		if t, err := database.ParseTime(o.CreatedAt); err == nil {
			m[msCreated] = &t
		}
		stamps[o.ID] = &m
	}

	var phases []struct {
		POID      int64           `db:"po_id"`
		Status    workflow.Status `db:"status"`
		EnteredAt string          `db:"entered_at"`
	}
	err = s.selectIn(ctx, &phases, `SELECT po_id, status, MIN(entered_at) AS entered_at
		FROM po_phase_history WHERE po_id IN (?) GROUP BY po_id, status`, ids)
	if err != nil {
		return nil, fmt.Errorf("cycle time phases: %w", err)
	}
	for _, p := range phases {
		ms, ok := statusMilestone[p.Status]
		if !ok {
			continue
		}
		t, err := database.ParseTime(p.EnteredAt)
		if err != nil {
			continue
		}
		m := stamps[p.POID]
		if m[ms] == nil || t.Before(*m[ms]) {
			m[ms] = &t
		}
	}
	for _, o := range orders {
		m := stamps[o.ID]
		if o.ReceivedDate != nil {
			if t, err := database.ParseTime(*o.ReceivedDate); err == nil {
				m[msReceived] = &t
			}
		}
	}

	for i, seg := range segments {
		var sum float64
		n := 0
		for _, m := range stamps {
			from, to := m[seg.from], m[seg.to]
			if from == nil || to == nil {
				continue
			}
			sum += to.Sub(*from).Hours() / 24
			n++
		}
		report.Metrics[i].Samples = n
		if n > 0 {
			avg := round1(sum / float64(n))
			report.Metrics[i].AvgDays = &avg
		}
	}
	return report, nil
}

// Table renders missing averages as N/A.
func (r *CycleTimeReport) Table() Table {
	t := Table{Name: "cycle-time", Headers: []string{"Metric", "Average Days", "Orders"}}
	for _, m := range r.Metrics {
		avg := "N/A"
		if m.AvgDays != nil {
			avg = strconv.FormatFloat(*m.AvgDays, 'f', 1, 64)
		}
		t.Rows = append(t.Rows, []string{m.Name, avg, strconv.Itoa(m.Samples)})
	}
	return t
}
