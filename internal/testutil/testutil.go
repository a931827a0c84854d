package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"jewelpo/internal/auth"
	"jewelpo/internal/database"
	"jewelpo/internal/models"
)

// TestPassword is the password of every user created by CreateUser.
const TestPassword = "Passw0rd1"

// SetupTestDB opens a migrated in-memory database. A single connection keeps
// every query on the same in-memory schema.
func SetupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.Open(":memory:", 1)
	if err != nil {
		t.Fatalf("Failed to open test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// CreateCompany inserts a tenant.
func CreateCompany(t *testing.T, db *sqlx.DB, name string) int64 {
	t.Helper()
	res, err := db.Exec("INSERT INTO companies (company_name) VALUES (?)", name)
	if err != nil {
		t.Fatalf("Failed to insert company: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// CreateUser inserts an active user and returns its request context.
func CreateUser(t *testing.T, db *sqlx.DB, companyID int64, username string, roles ...auth.Role) auth.RequestContext {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	res, err := db.Exec(`INSERT INTO users (company_id, username, full_name, password_hash, roles, active)
		VALUES (?, ?, ?, ?, ?, 1)`, companyID, username, username+" name", string(hash), auth.JoinRoles(roles))
	if err != nil {
		t.Fatalf("Failed to insert user: %v", err)
	}
	id, _ := res.LastInsertId()
	return auth.RequestContext{UserID: id, CompanyID: companyID, Username: username, Roles: roles}
}

// CreateVendor inserts an active vendor.
func CreateVendor(t *testing.T, db *sqlx.DB, companyID int64, name string) int64 {
	t.Helper()
	res, err := db.Exec(`INSERT INTO vendors (company_id, vendor_name, contact_person, email, phone, is_active)
		VALUES (?, ?, 'Contact', ?, '555-0100', 1)`, companyID, name, name+"@vendor.example")
	if err != nil {
		t.Fatalf("Failed to insert vendor: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// Tenant is a company with one user per role.
type Tenant struct {
	CompanyID     int64
	Sales         auth.RequestContext
	OrderTeam     auth.RequestContext
	InventoryTeam auth.RequestContext
	PurchaseTeam  auth.RequestContext
	Accounts      auth.RequestContext
	PurchaseHead  auth.RequestContext
	Admin         auth.RequestContext
	VendorID      int64
}

// SeedTenant creates a company named name with a user for every team role and one vendor.
func SeedTenant(t *testing.T, db *sqlx.DB, name string) Tenant {
	t.Helper()
	cid := CreateCompany(t, db, name)
	return Tenant{
		CompanyID:     cid,
		Sales:         CreateUser(t, db, cid, name+"-sales", auth.RoleSalesTeam),
		OrderTeam:     CreateUser(t, db, cid, name+"-order", auth.RoleOrderTeam),
		InventoryTeam: CreateUser(t, db, cid, name+"-inventory", auth.RoleInventoryTeam),
		PurchaseTeam:  CreateUser(t, db, cid, name+"-purchase", auth.RolePurchaseTeam),
		Accounts:      CreateUser(t, db, cid, name+"-accounts", auth.RoleAccounts),
		PurchaseHead:  CreateUser(t, db, cid, name+"-head", auth.RolePurchaseHead),
		Admin:         CreateUser(t, db, cid, name+"-admin", auth.RoleAdmin),
		VendorID:      CreateVendor(t, db, cid, name+" Gold Works"),
	}
}

// Ctx returns a background context carrying rc.
func Ctx(rc auth.RequestContext) context.Context {
	return auth.WithRequestContext(context.Background(), rc)
}

// AuthedJSONRequest builds a request with rc attached the way the auth middleware does.
func AuthedJSONRequest(method, path string, body interface{}, rc auth.RequestContext) *http.Request {
	var req *http.Request
	if body != nil {
		b, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	return req.WithContext(auth.WithRequestContext(req.Context(), rc))
}

// DecodeAPIResponse decodes an APIResponse from a ResponseRecorder.
func DecodeAPIResponse(t *testing.T, w *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var response models.APIResponse
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("Failed to decode API response: %v", err)
	}
	return response
}

// DecodeError decodes an error body.
func DecodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode error response: %v", err)
	}
	return resp
}

// AssertStatus checks that the HTTP status code matches expected.
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// DecodeEnvelope decodes an API response envelope and extracts the data.
func DecodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	var resp models.APIResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode API envelope: %v", err)
	}
	dataBytes, _ := json.Marshal(resp.Data)
	if err := json.Unmarshal(dataBytes, v); err != nil {
		t.Fatalf("Failed to decode data from envelope: %v", err)
	}
}
