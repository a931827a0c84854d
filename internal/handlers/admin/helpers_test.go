package admin_test

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"jewelpo/internal/auth"
	"jewelpo/internal/handlers/admin"
	"jewelpo/internal/testutil"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

type env struct {
	t      *testing.T
	db     *sqlx.DB
	mux    *http.ServeMux
	h      *admin.Handler
	now    time.Time
	tn     testutil.Tenant
	root   auth.RequestContext
	tokens *auth.TokenIssuer
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	e := &env{t: t, db: db, now: fixedNow, tokens: auth.NewTokenIssuer("test-secret", time.Hour)}
	e.tn = testutil.SeedTenant(t, db, "acme")
	e.root = testutil.CreateUser(t, db, e.tn.CompanyID, "root", auth.RolePlatformAdmin)
	e.h = &admin.Handler{
		DB:        db,
		Tokens:    e.tokens,
		BackupDir: t.TempDir(),
		Now:       func() time.Time { return e.now },
	}
	e.mux = http.NewServeMux()
	e.h.Register(e.mux.HandleFunc)
	return e
}

func (e *env) do(method, path string, body interface{}, rc auth.RequestContext) *httptest.ResponseRecorder {
	e.t.Helper()
	w := httptest.NewRecorder()
	e.mux.ServeHTTP(w, testutil.AuthedJSONRequest(method, path, body, rc))
	return w
}

func (e *env) login(username, password string) *httptest.ResponseRecorder {
	e.t.Helper()
	return e.do("POST", "/api/v1/auth/login", map[string]string{"username": username, "password": password}, auth.RequestContext{})
}

func (e *env) countAudit(actionType string) int {
	e.t.Helper()
	var n int
	if err := e.db.Get(&n, "SELECT COUNT(*) FROM audit_logs WHERE action_type = ?", actionType); err != nil {
		e.t.Fatalf("count audit: %v", err)
	}
	return n
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
