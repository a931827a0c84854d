package admin_test

import (
	"net/http"
	"testing"
	"time"

	"jewelpo/internal/audit"
	"jewelpo/internal/auth"
	"jewelpo/internal/handlers/admin"
	"jewelpo/internal/testutil"
)

func TestLoginSuccess(t *testing.T) {
	e := newEnv(t)

	w := e.login("acme-order", testutil.TestPassword)
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp admin.LoginResponse
	testutil.DecodeEnvelope(t, w, &resp)
	if resp.Token == "" {
		t.Fatal("expected a token")
	}
	if resp.User.UserID != e.tn.OrderTeam.UserID || resp.User.CompanyID != e.tn.CompanyID {
		t.Errorf("user = %+v, want %+v", resp.User, e.tn.OrderTeam)
	}

	rc, err := e.tokens.Parse(resp.Token)
	if err != nil {
		t.Fatalf("parse issued token: %v", err)
	}
	if rc.UserID != e.tn.OrderTeam.UserID || !rc.Has(auth.RoleOrderTeam) {
		t.Errorf("token carries %+v", rc)
	}

	var lastLogin *string
	if err := e.db.Get(&lastLogin, "SELECT last_login FROM users WHERE id = ?", rc.UserID); err != nil {
		t.Fatal(err)
	}
	if lastLogin == nil || *lastLogin != "2026-03-01 09:30:00" {
		t.Errorf("last_login = %v", lastLogin)
	}
	if n := e.countAudit(audit.UserLogin); n != 1 {
		t.Errorf("login audit rows = %d, want 1", n)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	e := newEnv(t)

	for _, tc := range []struct{ name, user, pass string }{
		{"wrong password", "acme-order", "Wrong1234"},
		{"unknown user", "nobody", testutil.TestPassword},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := e.login(tc.user, tc.pass)
			testutil.AssertStatus(t, w, http.StatusUnauthorized)
			if got := testutil.DecodeError(t, w); got.Error != "Invalid username or password" || got.Code != "unauthorized" {
				t.Errorf("error = %+v", got)
			}
		})
	}

	w := e.login("", "")
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestLoginLockout(t *testing.T) {
	e := newEnv(t)

	for i := 0; i < auth.MaxFailedLoginAttempts; i++ {
		testutil.AssertStatus(t, e.login("acme-sales", "Wrong1234"), http.StatusUnauthorized)
	}

	w := e.login("acme-sales", testutil.TestPassword)
	testutil.AssertStatus(t, w, http.StatusForbidden)

	e.now = e.now.Add(auth.AccountLockoutDuration + time.Minute)
	testutil.AssertStatus(t, e.login("acme-sales", testutil.TestPassword), http.StatusOK)

	var attempts int
	if err := e.db.Get(&attempts, "SELECT failed_login_attempts FROM users WHERE username = 'acme-sales'"); err != nil {
		t.Fatal(err)
	}
	if attempts != 0 {
		t.Errorf("failed attempts after success = %d", attempts)
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	e := newEnv(t)
	if _, err := e.db.Exec("UPDATE users SET active = 0 WHERE id = ?", e.tn.Accounts.UserID); err != nil {
		t.Fatal(err)
	}

	w := e.login("acme-accounts", testutil.TestPassword)
	testutil.AssertStatus(t, w, http.StatusForbidden)
	if got := testutil.DecodeError(t, w); got.Error != "Account deactivated" {
		t.Errorf("error = %q", got.Error)
	}
}

func TestMe(t *testing.T) {
	e := newEnv(t)

	w := e.do("GET", "/api/v1/auth/me", nil, e.tn.PurchaseHead)
	testutil.AssertStatus(t, w, http.StatusOK)
	var rc auth.RequestContext
	testutil.DecodeEnvelope(t, w, &rc)
	if rc.Username != "acme-head" || !rc.Has(auth.RolePurchaseHead) {
		t.Errorf("me = %+v", rc)
	}

	testutil.AssertStatus(t, e.do("GET", "/api/v1/auth/me", nil, auth.RequestContext{}), http.StatusUnauthorized)
}

func TestMyActions(t *testing.T) {
	e := newEnv(t)

	w := e.do("GET", "/api/v1/auth/actions", nil, e.tn.Accounts)
	testutil.AssertStatus(t, w, http.StatusOK)
	var rows []admin.ActionPermission
	testutil.DecodeEnvelope(t, w, &rows)

	allowed := map[string]bool{}
	for _, r := range rows {
		allowed[string(r.Action)] = r.Allowed
	}
	if !allowed["accounts_verify"] {
		t.Error("accounts should be allowed to accounts_verify")
	}
	if allowed["place_order"] {
		t.Error("accounts should not be allowed to place_order")
	}
	if _, ok := allowed["customer_delivery"]; !ok {
		t.Error("expected every action to be listed")
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	testutil.AssertStatus(t, e.do("GET", "/api/v1/health", nil, auth.RequestContext{}), http.StatusOK)
}
