package reports

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"jewelpo/internal/auth"
	"jewelpo/internal/workflow"
)

var closedStatuses = func() []workflow.Status {
	var out []workflow.Status
	for _, st := range workflow.Statuses {
		if !st.Open() {
			out = append(out, st)
		}
	}
	return out
}()

// OpenOrder is an order still moving through procurement.
type OpenOrder struct {
	POID         int64           `db:"id" json:"po_id"`
	CompanyID    int64           `db:"company_id" json:"company_id"`
	CustomerName string          `db:"customer_name" json:"customer_name"`
	PONumber     *string         `db:"po_number" json:"po_number"`
	Status       workflow.Status `db:"status" json:"status"`
	VendorName   *string         `db:"vendor_name" json:"vendor_name"`
	InitiatedBy  string          `db:"initiated_by" json:"initiated_by"`
	CreatedAt    string          `db:"created_at" json:"created_at"`
	DaysOpen     int             `db:"-" json:"days_open"`
}

const openSelect = `SELECT po.id, po.company_id, po.customer_name, po.po_number, po.status, v.vendor_name,
	COALESCE(NULLIF(u.full_name, ''), u.username, '') AS initiated_by, po.created_at
	FROM purchase_orders po
	LEFT JOIN vendors v ON v.id = po.vendor_id
	LEFT JOIN users u ON u.id = po.initiated_by_user_id`

type PipelineReport struct {
	Orders []OpenOrder `json:"orders"`
}

// Pipeline lists every open order, longest open first.
func (s *Service) Pipeline(ctx context.Context) (*PipelineReport, error) {
	rc, err := authorize(ctx, false)
	if err != nil {
		return nil, err
	}
	cond, args := tenant(rc, "po.company_id")

	report := &PipelineReport{Orders: []OpenOrder{}}
	err = s.selectIn(ctx, &report.Orders, openSelect+` WHERE po.status NOT IN (?)`+cond,
		append([]interface{}{workflow.StatusStrings(closedStatuses)}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	now := s.now()
	for i := range report.Orders {
		report.Orders[i].DaysOpen = daysSince(report.Orders[i].CreatedAt, now)
	}
	sort.SliceStable(report.Orders, func(i, j int) bool {
		a, b := report.Orders[i], report.Orders[j]
		if a.DaysOpen != b.DaysOpen {
			return a.DaysOpen > b.DaysOpen
		}
		return a.POID < b.POID
	})
	return report, nil
}

func (r *PipelineReport) Table() Table {
	t := Table{Name: "pipeline", Headers: []string{"PO ID", "PO Number", "Customer", "Status", "Vendor", "Initiated By", "Created At", "Days Open"}}
	for _, o := range r.Orders {
		t.Rows = append(t.Rows, []string{strconv.FormatInt(o.POID, 10), deref(o.PONumber), o.CustomerName,
			string(o.Status), deref(o.VendorName), o.InitiatedBy, o.CreatedAt, strconv.Itoa(o.DaysOpen)})
	}
	return t
}

// Dashboard holds the three headline counters.
type Dashboard struct {
	NewRequests      int `json:"new_requests"`
	PendingQC        int `json:"pending_qc"`
	PendingInvoicing int `json:"pending_invoicing"`
}

// Dashboard counts new requests, orders awaiting QC and orders awaiting an
// invoice. A sales-only caller counts only their own requests.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	rc, err := member(ctx)
	if err != nil {
		return nil, err
	}
	cond, args := tenant(rc, "company_id")
	if rc.SalesOnly() {
		cond += " AND initiated_by_user_id = ?"
		args = append(args, rc.UserID)
	}

	var counts []struct {
		Status workflow.Status `db:"status"`
		N      int             `db:"n"`
	}
	err = s.selectIn(ctx, &counts, `SELECT status, COUNT(*) AS n FROM purchase_orders
		WHERE status IN (?)`+cond+` GROUP BY status`,
		append([]interface{}{workflow.StatusStrings([]workflow.Status{
			workflow.StatusNewRequest, workflow.StatusInwardComplete, workflow.StatusAccountsVerified,
		})}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	d := &Dashboard{}
	for _, c := range counts {
		switch c.Status {
		case workflow.StatusNewRequest:
			d.NewRequests = c.N
		case workflow.StatusInwardComplete:
			d.PendingQC = c.N
		case workflow.StatusAccountsVerified:
			d.PendingInvoicing = c.N
		}
	}
	return d, nil
}

// QueueLimit caps the dashboard work queue.
const QueueLimit = 10

var (
	accountsQueue = []workflow.Status{
		workflow.StatusPurchaseFileGenerated, workflow.StatusAccountsVerified, workflow.StatusInvoiceReceived,
	}
	purchaseQueue = []workflow.Status{
		workflow.StatusImagingComplete, workflow.StatusQCFailed, workflow.StatusAccountsVerified, workflow.StatusInvoiceReceived,
	}
	floorQueue = []workflow.Status{
		workflow.StatusNewRequest, workflow.StatusOrderPlaced, workflow.StatusGoodsReceived, workflow.StatusInwardComplete,
		workflow.StatusQCPassed, workflow.StatusQCFailed, workflow.StatusImagingComplete,
	}
)

// Queue returns the caller's most recent open work, picked by their highest role.
func (s *Service) Queue(ctx context.Context) ([]OpenOrder, error) {
	rc, err := member(ctx)
	if err != nil {
		return nil, err
	}

	var where string
	var args []interface{}
	switch {
	case rc.HasAny(auth.RolePlatformAdmin, auth.RoleAdmin, auth.RolePurchaseHead):
		where, args = "po.status NOT IN (?)", []interface{}{workflow.StatusStrings(closedStatuses)}
	case rc.Has(auth.RoleAccounts):
		where, args = "po.status IN (?)", []interface{}{workflow.StatusStrings(accountsQueue)}
	case rc.Has(auth.RolePurchaseTeam):
		where, args = "po.status IN (?)", []interface{}{workflow.StatusStrings(purchaseQueue)}
	case rc.HasAny(auth.RoleOrderTeam, auth.RoleInventoryTeam):
		where, args = "po.status IN (?)", []interface{}{workflow.StatusStrings(floorQueue)}
	case rc.Has(auth.RoleSalesTeam):
		where = "po.status NOT IN (?) AND po.initiated_by_user_id = ?"
		args = []interface{}{workflow.StatusStrings(closedStatuses), rc.UserID}
	default:
		return []OpenOrder{}, nil
	}
	cond, targs := tenant(rc, "po.company_id")

	orders := []OpenOrder{}
	err = s.selectIn(ctx, &orders, openSelect+` WHERE `+where+cond+` ORDER BY po.created_at DESC, po.id DESC LIMIT ?`,
		append(append(args, targs...), QueueLimit)...)
	if err != nil {
		return nil, fmt.Errorf("queue: %w", err)
	}
	now := s.now()
	for i := range orders {
		orders[i].DaysOpen = daysSince(orders[i].CreatedAt, now)
	}
	return orders, nil
}
