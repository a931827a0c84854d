package procurement

import (
	"net/http"
	"strconv"

	"jewelpo/internal/apperr"
	"jewelpo/internal/purchase"
	"jewelpo/internal/response"
	"jewelpo/internal/workflow"
)

// ListPOs returns a page of purchase orders.
// Query: status, q, page, limit.
func (h *Handler) ListPOs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	f := purchase.ListFilter{Status: q.Get("status"), Search: q.Get("q"), Page: page, Limit: limit}

	orders, total, err := h.Purchase.List(r.Context(), f)
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	response.JSONMeta(w, orders, total, f.Page, f.Limit)
}

// GetPO returns the full detail of one purchase order.
func (h *Handler) GetPO(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	d, err := h.Purchase.Get(r.Context(), id)
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	response.JSON(w, d)
}

// CreatePO raises a new purchase request.
func (h *Handler) CreatePO(w http.ResponseWriter, r *http.Request) {
	var in purchase.CreateRequestInput
	if err := response.DecodeBody(r, &in); err != nil {
		response.Err(w, "invalid body", http.StatusBadRequest)
		return
	}
	po, err := h.Purchase.CreateRequest(r.Context(), in)
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	response.Created(w, po)
}

// DeletePO removes a purchase order.
func (h *Handler) DeletePO(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	if err := h.Purchase.Delete(r.Context(), id); err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	response.JSON(w, map[string]interface{}{"deleted": id})
}

func (h *Handler) orderingActions() map[workflow.Action]actionFunc {
	return map[workflow.Action]actionFunc{
		workflow.ActionPlaceOrder:           bind(h.Purchase.PlaceOrder),
		workflow.ActionGeneratePurchaseFile: bind(h.Purchase.GeneratePurchaseFile),
		workflow.ActionAccountsVerify:       bind(h.Purchase.AccountsVerify),
		workflow.ActionLogInvoice:           bind(h.Purchase.LogInvoice),
		workflow.ActionPurchaseComplete:     bind(h.Purchase.PurchaseComplete),
		workflow.ActionCustomerDelivery:     bind(h.Purchase.CustomerDelivery),
	}
}

// Act runs the workflow action named in the URL against one purchase order.
// POST /api/v1/purchase-orders/{id}/actions/{action}
func (h *Handler) Act(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	action := workflow.Action(r.PathValue("action"))
	fn, ok := h.orderingActions()[action]
	if !ok {
		fn, ok = h.receivingActions()[action]
	}
	if !ok {
		response.Error(r.Context(), w, apperr.NotFoundf("Unknown action %q.", action))
		return
	}
	out, err := fn(r.Context(), id, r)
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	response.JSON(w, out)
}
