package reports_test

import (
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/xuri/excelize/v2"

	"jewelpo/internal/auth"
	handlers "jewelpo/internal/handlers/reports"
	"jewelpo/internal/reports"
	"jewelpo/internal/testutil"
)

type env struct {
	t   *testing.T
	db  *sqlx.DB
	mux *http.ServeMux
	tn  testutil.Tenant
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	h := &handlers.Handler{DB: db, Reports: reports.NewService(db)}
	mux := http.NewServeMux()
	h.Register(mux.HandleFunc)
	return &env{t: t, db: db, mux: mux, tn: testutil.SeedTenant(t, db, "acme")}
}

func (e *env) get(path string, rc auth.RequestContext) *httptest.ResponseRecorder {
	e.t.Helper()
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, testutil.AuthedJSONRequest("GET", path, nil, rc))
	return w
}

func (e *env) seedPayable() {
	e.t.Helper()
	res, err := e.db.Exec(`INSERT INTO purchase_orders (company_id, initiated_by_user_id, customer_name, order_source,
		vendor_id, po_number, status) VALUES (?, ?, 'Asha', 'Walk-in', ?, 'PO-9', 'Invoice Received')`,
		e.tn.CompanyID, e.tn.Sales.UserID, e.tn.VendorID)
	if err != nil {
		e.t.Fatal(err)
	}
	po, _ := res.LastInsertId()
	if _, err := e.db.Exec(`INSERT INTO purchase_invoices (po_id, company_id, vendor_invoice_number, invoice_date,
		total_amount, accounts_status) VALUES (?, ?, 'INV-9', '2026-01-10', '1250.5', 'Verified')`, po, e.tn.CompanyID); err != nil {
		e.t.Fatal(err)
	}
}

func TestReportJSON(t *testing.T) {
	e := newEnv(t)
	e.seedPayable()

	w := e.get("/api/v1/reports/accounts-payable", e.tn.Accounts)
	testutil.AssertStatus(t, w, http.StatusOK)
	var r struct {
		Invoices []struct {
			PONumber    string `json:"po_number"`
			TotalAmount string `json:"total_amount"`
		} `json:"invoices"`
		Summary struct {
			Verified string `json:"verified"`
		} `json:"summary"`
	}
	testutil.DecodeEnvelope(t, w, &r)
	if len(r.Invoices) != 1 || r.Invoices[0].PONumber != "PO-9" || r.Invoices[0].TotalAmount != "1250.5" {
		t.Errorf("unexpected invoices %+v", r.Invoices)
	}
	if r.Summary.Verified != "1250.5" {
		t.Errorf("verified total = %s", r.Summary.Verified)
	}
}

func TestReportAccessOverHTTP(t *testing.T) {
	e := newEnv(t)
	testutil.AssertStatus(t, e.get("/api/v1/reports/pipeline", e.tn.Sales), http.StatusForbidden)
	testutil.AssertStatus(t, e.get("/api/v1/reports/vendor-performance", e.tn.Accounts), http.StatusForbidden)
	testutil.AssertStatus(t, e.get("/api/v1/reports/accounts-view", e.tn.Accounts), http.StatusOK)
	testutil.AssertStatus(t, e.get("/api/v1/reports/cycle-time", e.tn.PurchaseHead), http.StatusOK)
	testutil.AssertStatus(t, e.get("/api/v1/reports/qc-failures?format=pdf", e.tn.Admin), http.StatusBadRequest)
}

func TestReportCSVExport(t *testing.T) {
	e := newEnv(t)
	e.seedPayable()

	w := e.get("/api/v1/reports/accounts-payable?format=csv", e.tn.Admin)
	testutil.AssertStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "accounts-payable.csv") {
		t.Errorf("content disposition = %s", cd)
	}
	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0][0] != "PO Number" || records[1][0] != "PO-9" || records[1][5] != "1250.50" {
		t.Errorf("unexpected csv %v", records)
	}

	var n int
	if err := e.db.Get(&n, `SELECT COUNT(*) FROM audit_logs WHERE action_type = 'report_exported' AND user_id = ?`, e.tn.Admin.UserID); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected one export audit entry, got %d", n)
	}
}

func TestReportExcelExport(t *testing.T) {
	e := newEnv(t)
	e.seedPayable()

	w := e.get("/api/v1/reports/vendor-performance?format=xlsx", e.tn.Admin)
	testutil.AssertStatus(t, w, http.StatusOK)
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "vendor-performance.xlsx") {
		t.Errorf("content disposition = %s", cd)
	}

	f, err := excelize.OpenReader(w.Body)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Report")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0][0] != "Vendor" || rows[1][0] != "acme Gold Works" || rows[1][6] != "1250.50" {
		t.Errorf("unexpected sheet %v", rows)
	}
}

func TestDashboardAndQueue(t *testing.T) {
	e := newEnv(t)
	e.seedPayable()

	w := e.get("/api/v1/dashboard", e.tn.Sales)
	testutil.AssertStatus(t, w, http.StatusOK)
	var d reports.Dashboard
	testutil.DecodeEnvelope(t, w, &d)
	if d != (reports.Dashboard{}) {
		t.Errorf("nothing is pending, got %+v", d)
	}

	w = e.get("/api/v1/dashboard/queue", e.tn.PurchaseTeam)
	testutil.AssertStatus(t, w, http.StatusOK)
	var q []struct {
		PONumber string `json:"po_number"`
		Status   string `json:"status"`
	}
	testutil.DecodeEnvelope(t, w, &q)
	if len(q) != 1 || q[0].PONumber != "PO-9" {
		t.Errorf("purchase team should see the invoiced order, got %+v", q)
	}
}
