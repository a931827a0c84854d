package workflow

import (
	"jewelpo/internal/apperr"
	"jewelpo/internal/auth"
)

// Action names a workflow operation a caller can request.
type Action string

const (
	ActionCreateRequest        Action = "create_request"
	ActionPlaceOrder           Action = "place_order"
	ActionReceiveGoods         Action = "receive_goods"
	ActionInwardItem           Action = "inward_item"
	ActionMarkInwardComplete   Action = "mark_inward_complete"
	ActionUpdateQC             Action = "update_qc"
	ActionMarkQCComplete       Action = "mark_qc_complete"
	ActionUpdateImageStatus    Action = "update_image_status"
	ActionMarkImagingComplete  Action = "mark_imaging_complete"
	ActionGeneratePurchaseFile Action = "generate_purchase_file"
	ActionAccountsVerify       Action = "accounts_verify"
	ActionLogInvoice           Action = "log_invoice"
	ActionPurchaseComplete     Action = "purchase_complete"
	ActionCustomerDelivery     Action = "customer_delivery"
)

// Rule is one row of the transition table. Actions whose To contains their
// From status mutate child rows and leave the order status where it is.
// log_invoice may be repeated while Invoice Received to correct the invoice.
type Rule struct {
	Action    Action
	From      []Status
	To        []Status
	Roles     []auth.Role
	AuditType string
}

// supervisors may perform every step after the request is raised.
var supervisors = []auth.Role{auth.RoleAdmin, auth.RolePlatformAdmin, auth.RolePurchaseHead}

func team(r auth.Role) []auth.Role {
	return append([]auth.Role{r}, supervisors...)
}

func one(s Status) []Status { return []Status{s} }

var rules = []Rule{
	{ActionCreateRequest, nil, one(StatusNewRequest),
		[]auth.Role{auth.RoleSalesTeam, auth.RoleAdmin}, "purchase_request_created"},
	{ActionPlaceOrder, one(StatusNewRequest), one(StatusOrderPlaced),
		team(auth.RoleOrderTeam), "po_placed"},
	{ActionReceiveGoods, one(StatusOrderPlaced), one(StatusGoodsReceived),
		team(auth.RoleInventoryTeam), "po_goods_received"},
	{ActionInwardItem, one(StatusGoodsReceived), one(StatusGoodsReceived),
		team(auth.RoleOrderTeam), "po_jewel_inwarded"},
	{ActionMarkInwardComplete, one(StatusGoodsReceived), one(StatusInwardComplete),
		team(auth.RoleOrderTeam), "po_inward_complete"},
	{ActionUpdateQC, one(StatusInwardComplete), one(StatusInwardComplete),
		team(auth.RoleOrderTeam), "po_jewel_qc_updated"},
	{ActionMarkQCComplete, one(StatusInwardComplete), []Status{StatusQCPassed, StatusQCFailed},
		team(auth.RoleOrderTeam), "po_qc_complete"},
	{ActionUpdateImageStatus, []Status{StatusQCPassed, StatusQCFailed}, []Status{StatusQCPassed, StatusQCFailed},
		team(auth.RoleInventoryTeam), "po_jewel_imaged"},
	{ActionMarkImagingComplete, one(StatusQCPassed), one(StatusImagingComplete),
		team(auth.RoleInventoryTeam), "po_imaging_complete"},
	{ActionGeneratePurchaseFile, []Status{StatusImagingComplete, StatusQCFailed}, one(StatusPurchaseFileGenerated),
		team(auth.RolePurchaseTeam), "po_pf_generated"},
	{ActionAccountsVerify, one(StatusPurchaseFileGenerated), one(StatusAccountsVerified),
		team(auth.RoleAccounts), "po_accounts_verified"},
	{ActionLogInvoice, []Status{StatusAccountsVerified, StatusInvoiceReceived}, one(StatusInvoiceReceived),
		team(auth.RolePurchaseTeam), "po_invoice_logged"},
	{ActionPurchaseComplete, one(StatusInvoiceReceived), one(StatusPurchaseComplete),
		team(auth.RolePurchaseTeam), "po_complete"},
	{ActionCustomerDelivery, one(StatusPurchaseComplete), one(StatusCustomerDelivered),
		team(auth.RoleSalesTeam), "po_customer_delivered"},
}

var byAction = func() map[Action]Rule {
	m := make(map[Action]Rule, len(rules))
	for _, r := range rules {
		m[r.Action] = r
	}
	return m
}()

// Rules returns a copy of the transition table in lifecycle order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Lookup returns the rule for a.
func Lookup(a Action) (Rule, bool) {
	r, ok := byAction[a]
	return r, ok
}

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	_, ok := byAction[a]
	return ok
}

// AllowsFrom reports whether the rule applies to an order in status s.
func (r Rule) AllowsFrom(s Status) bool {
	for _, f := range r.From {
		if f == s {
			return true
		}
	}
	return false
}

// AllowsRole reports whether rc holds one of the rule's roles.
func (r Rule) AllowsRole(rc auth.RequestContext) bool {
	return rc.HasAny(r.Roles...)
}

// Authorize checks the caller's roles for action a.
func Authorize(rc auth.RequestContext, a Action) error {
	r, ok := byAction[a]
	if !ok {
		return apperr.Invalid("unknown action %q", a)
	}
	if a == ActionCreateRequest && rc.IsPlatformAdmin() {
		return apperr.Denied("Platform Admin cannot create requests directly. Please log in as a Company Admin.")
	}
	if !r.AllowsRole(rc) {
		return apperr.Denied("")
	}
	return nil
}

// Check verifies an order in status current may take action a.
func Check(a Action, current Status) error {
	r, ok := byAction[a]
	if !ok {
		return apperr.Invalid("unknown action %q", a)
	}
	if !r.AllowsFrom(current) {
		return apperr.Precondition("Purchase order is %q: already processed or invalid state for %s.", current, a)
	}
	return nil
}

// Next returns the status an order moves to when a succeeds from current.
// Actions that only touch child rows return current. mark_qc_complete has two
// targets and is resolved through ResolveQC instead.
func Next(a Action, current Status) (Status, error) {
	if err := Check(a, current); err != nil {
		return "", err
	}
	r := byAction[a]
	if len(r.To) == 1 {
		return r.To[0], nil
	}
	for _, to := range r.To {
		if to == current {
			return current, nil
		}
	}
	return "", apperr.Invalid("action %s needs an outcome to pick its target status", a)
}

// ResolveQC picks the outcome of mark_qc_complete: any failed unit fails the order.
func ResolveQC(failCount int) Status {
	if failCount > 0 {
		return StatusQCFailed
	}
	return StatusQCPassed
}

// Available lists the actions rc may take on an order in status current.
func Available(rc auth.RequestContext, current Status) []Action {
	var out []Action
	for _, r := range rules {
		if len(r.From) == 0 {
			continue
		}
		if r.AllowsFrom(current) && Authorize(rc, r.Action) == nil {
			out = append(out, r.Action)
		}
	}
	return out
}
