package procurement

import (
	"net/http"

	"jewelpo/internal/purchase"
	"jewelpo/internal/response"
)

// ListVendors returns the company's vendors. ?active=1 limits to active ones.
func (h *Handler) ListVendors(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "1"
	vendors, err := h.Purchase.ListVendors(r.Context(), activeOnly)
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	response.JSON(w, vendors)
}

// GetVendor returns a single vendor by ID.
func (h *Handler) GetVendor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	v, err := h.Purchase.GetVendor(r.Context(), id)
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	response.JSON(w, v)
}

// CreateVendor creates a new vendor.
func (h *Handler) CreateVendor(w http.ResponseWriter, r *http.Request) {
	var in purchase.VendorInput
	if err := response.DecodeBody(r, &in); err != nil {
		response.Err(w, "invalid body", http.StatusBadRequest)
		return
	}
	v, err := h.Purchase.CreateVendor(r.Context(), in)
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	response.Created(w, v)
}

// UpdateVendor replaces an existing vendor's details.
func (h *Handler) UpdateVendor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	var in purchase.VendorInput
	if err := response.DecodeBody(r, &in); err != nil {
		response.Err(w, "invalid body", http.StatusBadRequest)
		return
	}
	v, err := h.Purchase.UpdateVendor(r.Context(), id, in)
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	response.JSON(w, v)
}

// DeleteVendor deletes a vendor no purchase order uses.
func (h *Handler) DeleteVendor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	if err := h.Purchase.DeleteVendor(r.Context(), id); err != nil {
		response.Error(r.Context(), w, err)
		return
	}
	response.JSON(w, map[string]interface{}{"deleted": id})
}
