package procurement_test

import (
	"net/http"
	"testing"

	"jewelpo/internal/testutil"
)

type vendorView struct {
	ID         int64  `json:"id"`
	VendorName string `json:"vendor_name"`
	Email      string `json:"email"`
	IsActive   bool   `json:"is_active"`
}

func TestVendorCRUD(t *testing.T) {
	e := newEnv(t)

	w := e.do("POST", "/api/v1/vendors", map[string]interface{}{
		"vendor_name": "Shree Casting", "contact_person": "Mehul", "email": "mehul@shree.example", "phone": "555-0101",
	}, e.tn.Admin)
	testutil.AssertStatus(t, w, http.StatusCreated)
	var v vendorView
	testutil.DecodeEnvelope(t, w, &v)
	if v.ID == 0 || !v.IsActive || v.VendorName != "Shree Casting" {
		t.Fatalf("unexpected vendor %+v", v)
	}

	w = e.do("PUT", "/api/v1/vendors/"+itoa(v.ID), map[string]interface{}{
		"vendor_name": "Shree Casting Pvt", "email": "mehul@shree.example", "is_active": false,
	}, e.tn.Admin)
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.DecodeEnvelope(t, w, &v)
	if v.IsActive || v.VendorName != "Shree Casting Pvt" {
		t.Errorf("update not applied: %+v", v)
	}

	w = e.do("GET", "/api/v1/vendors?active=1", nil, e.tn.OrderTeam)
	testutil.AssertStatus(t, w, http.StatusOK)
	var active []vendorView
	testutil.DecodeEnvelope(t, w, &active)
	if len(active) != 1 || active[0].ID != e.tn.VendorID {
		t.Errorf("expected only the seeded active vendor, got %+v", active)
	}

	testutil.AssertStatus(t, e.do("DELETE", "/api/v1/vendors/"+itoa(v.ID), nil, e.tn.Admin), http.StatusOK)
	testutil.AssertStatus(t, e.do("GET", "/api/v1/vendors/"+itoa(v.ID), nil, e.tn.Admin), http.StatusNotFound)
}

func TestVendorValidationAndDuplicates(t *testing.T) {
	e := newEnv(t)

	w := e.do("POST", "/api/v1/vendors", map[string]interface{}{"vendor_name": "", "email": "not-an-email"}, e.tn.Admin)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
	if resp := testutil.DecodeError(t, w); len(resp.Fields) != 2 {
		t.Errorf("expected vendor_name and email errors, got %+v", resp.Fields)
	}

	w = e.do("POST", "/api/v1/vendors", map[string]interface{}{"vendor_name": "A", "email": "a@v.example"}, e.tn.Admin)
	testutil.AssertStatus(t, w, http.StatusCreated)
	w = e.do("POST", "/api/v1/vendors", map[string]interface{}{"vendor_name": "B", "email": "a@v.example"}, e.tn.Admin)
	testutil.AssertStatus(t, w, http.StatusConflict)

	// Email uniqueness is per company.
	other := testutil.SeedTenant(t, e.db, "beta")
	w = e.do("POST", "/api/v1/vendors", map[string]interface{}{"vendor_name": "A", "email": "a@v.example"}, other.Admin)
	testutil.AssertStatus(t, w, http.StatusCreated)
}

func TestVendorPermissionsAndReferences(t *testing.T) {
	e := newEnv(t)
	w := e.do("POST", "/api/v1/vendors", map[string]interface{}{"vendor_name": "X", "email": "x@v.example"}, e.tn.PurchaseHead)
	testutil.AssertStatus(t, w, http.StatusForbidden)

	e.placedAndReceived(1)
	w = e.do("DELETE", "/api/v1/vendors/"+itoa(e.tn.VendorID), nil, e.tn.Admin)
	testutil.AssertStatus(t, w, http.StatusConflict)
}
