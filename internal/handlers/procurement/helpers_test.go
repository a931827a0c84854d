package procurement_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"

	"jewelpo/internal/auth"
	"jewelpo/internal/handlers/procurement"
	"jewelpo/internal/purchase"
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
	h := &procurement.Handler{Purchase: purchase.NewService(db, nil, nil, nil)}
	mux := http.NewServeMux()
	h.Register(mux.HandleFunc)
	return &env{t: t, db: db, mux: mux, tn: testutil.SeedTenant(t, db, "acme")}
}

func (e *env) do(method, path string, body interface{}, rc auth.RequestContext) *httptest.ResponseRecorder {
	e.t.Helper()
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, testutil.AuthedJSONRequest(method, path, body, rc))
	return w
}

type poView struct {
	ID               int64    `json:"id"`
	Status           string   `json:"status"`
	Version          int64    `json:"version"`
	AvailableActions []string `json:"available_actions"`
	Items            []struct {
		ID               int64 `json:"id"`
		Quantity         int   `json:"quantity"`
		QuantityReceived int   `json:"quantity_received"`
	} `json:"items"`
	Jewels []struct {
		ID          int64  `json:"id"`
		JewelCode   string `json:"jewel_code"`
		QCStatus    string `json:"qc_status"`
		ImageStatus string `json:"image_status"`
	} `json:"jewels"`
	Invoice *struct {
		TotalAmount    string `json:"total_amount"`
		AccountsStatus string `json:"accounts_status"`
	} `json:"invoice"`
}

func (e *env) create(rc auth.RequestContext) int64 {
	e.t.Helper()
	w := e.do("POST", "/api/v1/purchase-orders", map[string]string{
		"customer_name":     "Asha Rao",
		"order_source":      "Exhibition",
		"requested_designs": "Emerald pendant",
	}, rc)
	testutil.AssertStatus(e.t, w, http.StatusCreated)
	var po poView
	testutil.DecodeEnvelope(e.t, w, &po)
	return po.ID
}

func (e *env) get(id int64) poView {
	e.t.Helper()
	w := e.do("GET", "/api/v1/purchase-orders/"+itoa(id), nil, e.tn.Admin)
	testutil.AssertStatus(e.t, w, http.StatusOK)
	var po poView
	testutil.DecodeEnvelope(e.t, w, &po)
	return po
}

func (e *env) act(id int64, action string, body interface{}, rc auth.RequestContext) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.do("POST", "/api/v1/purchase-orders/"+itoa(id)+"/actions/"+action, body, rc)
}

func (e *env) mustAct(id int64, action string, body interface{}, rc auth.RequestContext) {
	e.t.Helper()
	w := e.act(id, action, body, rc)
	if w.Code != http.StatusOK {
		e.t.Fatalf("%s: expected 200, got %d: %s", action, w.Code, w.Body.String())
	}
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
