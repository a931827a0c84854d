package procurement_test

import (
	"net/http"
	"strings"
	"testing"

	"jewelpo/internal/testutil"
)

// placedAndReceived places PO-100 for qty units of R1 and receives it.
func (e *env) placedAndReceived(qty int) (int64, int64) {
	e.t.Helper()
	id := e.create(e.tn.Sales)
	e.mustAct(id, "place_order", map[string]interface{}{
		"vendor_id": e.tn.VendorID, "po_number": "PO-100", "target_date": "2026-11-01",
		"items": []map[string]interface{}{{"design_code": "R1", "quantity": qty}},
	}, e.tn.OrderTeam)
	e.mustAct(id, "receive_goods", map[string]string{"received_date": "2026-10-20"}, e.tn.InventoryTeam)
	return id, e.get(id).Items[0].ID
}

// receivedAndInwarded inwards one unit per code and completes inward.
func (e *env) receivedAndInwarded(codes ...string) int64 {
	e.t.Helper()
	id, item := e.placedAndReceived(len(codes))
	for _, code := range codes {
		e.mustAct(id, "inward_item", map[string]interface{}{"po_item_id": item, "jewel_code": code}, e.tn.OrderTeam)
	}
	e.mustAct(id, "mark_inward_complete", nil, e.tn.OrderTeam)
	return id
}

func TestInwardOverHTTP(t *testing.T) {
	e := newEnv(t)
	id, item := e.placedAndReceived(2)

	for _, code := range []string{"J1", "J2"} {
		e.mustAct(id, "inward_item", map[string]interface{}{"po_item_id": item, "jewel_code": code}, e.tn.OrderTeam)
	}
	w := e.act(id, "inward_item", map[string]interface{}{"po_item_id": item, "jewel_code": "J3"}, e.tn.OrderTeam)
	testutil.AssertStatus(t, w, http.StatusConflict)
	if resp := testutil.DecodeError(t, w); !strings.Contains(resp.Error, "already been inwarded") {
		t.Errorf("unexpected error %q", resp.Error)
	}

	po := e.get(id)
	if po.Items[0].QuantityReceived != 2 || len(po.Jewels) != 2 {
		t.Errorf("unexpected order %+v", po)
	}
}

func TestInwardDuplicateCode(t *testing.T) {
	e := newEnv(t)
	id, item := e.placedAndReceived(2)
	e.mustAct(id, "inward_item", map[string]interface{}{"po_item_id": item, "jewel_code": "J1"}, e.tn.OrderTeam)

	w := e.act(id, "inward_item", map[string]interface{}{"po_item_id": item, "jewel_code": "J1"}, e.tn.OrderTeam)
	testutil.AssertStatus(t, w, http.StatusConflict)
	if resp := testutil.DecodeError(t, w); resp.Code != "conflict" {
		t.Errorf("expected conflict, got %+v", resp)
	}
}

func TestInwardResponseIsTheUnit(t *testing.T) {
	e := newEnv(t)
	id, item := e.placedAndReceived(1)
	w := e.act(id, "inward_item", map[string]interface{}{"po_item_id": item, "jewel_code": "J1"}, e.tn.OrderTeam)
	testutil.AssertStatus(t, w, http.StatusOK)
	var unit struct {
		JewelCode  string `json:"jewel_code"`
		DesignCode string `json:"design_code"`
		QCStatus   string `json:"qc_status"`
	}
	testutil.DecodeEnvelope(t, w, &unit)
	if unit.JewelCode != "J1" || unit.DesignCode != "R1" || unit.QCStatus != "Pending" {
		t.Errorf("unexpected unit %+v", unit)
	}
}

func TestQCOverHTTP(t *testing.T) {
	e := newEnv(t)
	id := e.receivedAndInwarded("J1", "J2")
	po := e.get(id)

	testutil.AssertStatus(t, e.act(id, "mark_qc_complete", nil, e.tn.OrderTeam), http.StatusConflict)

	w := e.act(id, "update_qc", map[string]interface{}{"jewel_id": po.Jewels[0].ID, "qc_status": "Fail"}, e.tn.OrderTeam)
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	e.mustAct(id, "update_qc", map[string]interface{}{
		"jewel_id": po.Jewels[0].ID, "qc_status": "Fail", "qc_remarks": "scratched",
	}, e.tn.OrderTeam)
	e.mustAct(id, "update_qc", map[string]interface{}{"jewel_id": po.Jewels[1].ID, "qc_status": "Pass"}, e.tn.OrderTeam)
	e.mustAct(id, "mark_qc_complete", nil, e.tn.OrderTeam)

	po = e.get(id)
	if po.Status != "QC Failed" {
		t.Fatalf("expected QC Failed, got %s", po.Status)
	}
	want := []string{"update_image_status", "generate_purchase_file"}
	if len(po.AvailableActions) != len(want) {
		t.Fatalf("available actions = %v, want %v", po.AvailableActions, want)
	}
	for i := range want {
		if po.AvailableActions[i] != want[i] {
			t.Errorf("available actions = %v, want %v", po.AvailableActions, want)
		}
	}
}

func TestImagingOverHTTP(t *testing.T) {
	e := newEnv(t)
	id := e.receivedAndInwarded("J1")
	jewel := e.get(id).Jewels[0].ID
	e.mustAct(id, "update_qc", map[string]interface{}{"jewel_id": jewel, "qc_status": "Pass"}, e.tn.OrderTeam)
	e.mustAct(id, "mark_qc_complete", nil, e.tn.OrderTeam)

	testutil.AssertStatus(t, e.act(id, "mark_imaging_complete", nil, e.tn.InventoryTeam), http.StatusConflict)
	testutil.AssertStatus(t, e.act(id, "update_image_status", map[string]interface{}{"jewel_id": jewel}, e.tn.Sales), http.StatusForbidden)
	e.mustAct(id, "update_image_status", map[string]interface{}{"jewel_id": jewel}, e.tn.InventoryTeam)
	e.mustAct(id, "mark_imaging_complete", nil, e.tn.InventoryTeam)

	if po := e.get(id); po.Status != "Imaging Complete" || po.Jewels[0].ImageStatus != "Completed" {
		t.Errorf("unexpected order %+v", po)
	}
}
