package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"

	"jewelpo/internal/config"
	"jewelpo/internal/server"
	"jewelpo/internal/testutil"
	"jewelpo/internal/websocket"
)

func newApp(t *testing.T) (*server.App, *httptest.Server, testutil.Tenant) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := config.Default()
	cfg.JWT.Secret = "0123456789abcdef0123"
	cfg.DB.BackupDir = t.TempDir()
	cfg.Server.LoginRatePerMinute = 5
	app := server.New(cfg, db, zap.NewNop())
	tn := testutil.SeedTenant(t, db, "acme")
	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return app, srv, tn
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func login(t *testing.T, srv *httptest.Server, username string) string {
	t.Helper()
	resp := call(t, srv, "POST", "/api/v1/auth/login", "", map[string]string{"username": username, "password": testutil.TestPassword})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", username, resp.StatusCode)
	}
	var env struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatal(err)
	}
	return env.Data.Token
}

func TestAuthRequired(t *testing.T) {
	_, srv, _ := newApp(t)

	if resp := call(t, srv, "GET", "/api/v1/health", "", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("health = %d", resp.StatusCode)
	}
	if resp := call(t, srv, "GET", "/api/v1/purchase-orders", "", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token = %d", resp.StatusCode)
	}
	if resp := call(t, srv, "GET", "/api/v1/purchase-orders", "garbage", nil); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token = %d", resp.StatusCode)
	}
}

func TestLoginThenCreatePO(t *testing.T) {
	_, srv, _ := newApp(t)
	token := login(t, srv, "acme-sales")

	resp := call(t, srv, "POST", "/api/v1/purchase-orders", token, map[string]string{
		"customer_name":     "Asha Rao",
		"order_source":      "Store Walk-in",
		"requested_designs": "Ruby ring",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d", resp.StatusCode)
	}
	if resp.Header.Get(server.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
	if resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Error("missing security headers")
	}

	me := call(t, srv, "GET", "/api/v1/auth/me", token, nil)
	if me.StatusCode != http.StatusOK {
		t.Errorf("me = %d", me.StatusCode)
	}
}

func TestDeactivatedTokenRefused(t *testing.T) {
	app, srv, tn := newApp(t)
	token := login(t, srv, "acme-order")

	if _, err := app.DB.Exec("UPDATE users SET active = 0 WHERE id = ?", tn.OrderTeam.UserID); err != nil {
		t.Fatal(err)
	}
	if resp := call(t, srv, "GET", "/api/v1/auth/me", token, nil); resp.StatusCode != http.StatusForbidden {
		t.Errorf("deactivated = %d", resp.StatusCode)
	}
}

func TestRevokedRoleTakesEffectImmediately(t *testing.T) {
	app, srv, tn := newApp(t)
	token := login(t, srv, "acme-sales")

	if _, err := app.DB.Exec("UPDATE users SET roles = 'accounts' WHERE id = ?", tn.Sales.UserID); err != nil {
		t.Fatal(err)
	}
	resp := call(t, srv, "POST", "/api/v1/purchase-orders", token, map[string]string{
		"customer_name": "Asha Rao",
		"order_source":  "Store Walk-in",
	})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("create with revoked sales role = %d, want 403", resp.StatusCode)
	}
}

func TestAccountLookupFailureIsServerError(t *testing.T) {
	app, srv, _ := newApp(t)
	token := login(t, srv, "acme-order")

	if _, err := app.DB.Exec("ALTER TABLE users RENAME TO users_archive"); err != nil {
		t.Fatal(err)
	}
	if resp := call(t, srv, "GET", "/api/v1/auth/me", token, nil); resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("me with broken users table = %d, want 500", resp.StatusCode)
	}
}

func TestLoginRateLimited(t *testing.T) {
	_, srv, _ := newApp(t)

	var last int
	for i := 0; i < 6; i++ {
		last = call(t, srv, "POST", "/api/v1/auth/login", "", map[string]string{"username": "x", "password": "y"}).StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("6th login = %d, want 429", last)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv, _ := newApp(t)
	token := login(t, srv, "acme-admin")
	call(t, srv, "GET", "/api/v1/purchase-orders", token, nil)

	resp := call(t, srv, "GET", "/metrics", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics = %d", resp.StatusCode)
	}
	var body bytes.Buffer
	body.ReadFrom(resp.Body)
	if !strings.Contains(body.String(), `path="GET /api/v1/purchase-orders"`) {
		t.Error("request counter not labelled by route pattern")
	}
}

func TestWebsocketReceivesCompanyEvents(t *testing.T) {
	app, srv, tn := newApp(t)
	token := login(t, srv, "acme-order")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + token
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for app.Hub.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	app.Hub.Publish(websocket.Event{Type: "purchase_order", CompanyID: tn.CompanyID + 1, ID: 99, Action: "place_order"})
	app.Hub.Publish(websocket.Event{Type: "purchase_order", CompanyID: tn.CompanyID, ID: 1, Action: "place_order"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var evt websocket.Event
	if err := conn.ReadJSON(&evt); err != nil {
		t.Fatalf("read: %v", err)
	}
	if evt.ID != 1 || evt.CompanyID != tn.CompanyID {
		t.Errorf("received %+v, want the acme event only", evt)
	}
}

func TestSeed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := config.SeedConfig{Company: "Head Office", Username: "owner", Password: "Owner1234"}
	ctx := context.Background()

	if err := server.Seed(ctx, db, cfg, zap.NewNop()); err != nil {
		t.Fatal(err)
	}
	if err := server.Seed(ctx, db, cfg, zap.NewNop()); err != nil {
		t.Fatalf("second seed: %v", err)
	}
	var roles string
	if err := db.Get(&roles, "SELECT roles FROM users WHERE username = 'owner'"); err != nil {
		t.Fatal(err)
	}
	if roles != "platform_admin,admin" {
		t.Errorf("roles = %q", roles)
	}
	var n int
	db.Get(&n, "SELECT COUNT(*) FROM users")
	if n != 1 {
		t.Errorf("users = %d after seeding twice", n)
	}

	weak := config.SeedConfig{Company: "X", Username: "y", Password: "weak"}
	if err := server.Seed(ctx, testutil.SetupTestDB(t), weak, zap.NewNop()); err == nil {
		t.Error("weak seed password accepted")
	}
}
