package procurement

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"jewelpo/internal/apperr"
	"jewelpo/internal/purchase"
	"jewelpo/internal/response"
)

// Handler holds dependencies for purchase order and vendor handlers.
type Handler struct {
	Purchase *purchase.Service
}

// pathID parses the {id} wildcard.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Invalid("invalid id")
	}
	return id, nil
}

// decodeOptional decodes a JSON body, treating an empty body as the zero value.
func decodeOptional(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := response.DecodeBody(r, v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Invalid("invalid body: %v", err)
	}
	return nil
}

// actionFunc runs one workflow action for the order in the URL.
type actionFunc func(ctx context.Context, id int64, r *http.Request) (interface{}, error)

// bind adapts a service method taking a JSON input to an actionFunc.
func bind[In, Out any](fn func(context.Context, int64, In) (Out, error)) actionFunc {
	return func(ctx context.Context, id int64, r *http.Request) (interface{}, error) {
		var in In
		if err := decodeOptional(r, &in); err != nil {
			return nil, err
		}
		return fn(ctx, id, in)
	}
}

// Register adds the purchase order and vendor routes. handle is normally
// (*http.ServeMux).HandleFunc or a wrapper around it.
func (h *Handler) Register(handle func(pattern string, handler func(http.ResponseWriter, *http.Request))) {
	handle("GET /api/v1/purchase-orders", h.ListPOs)
	handle("POST /api/v1/purchase-orders", h.CreatePO)
	handle("GET /api/v1/purchase-orders/{id}", h.GetPO)
	handle("DELETE /api/v1/purchase-orders/{id}", h.DeletePO)
	handle("POST /api/v1/purchase-orders/{id}/actions/{action}", h.Act)

	handle("GET /api/v1/vendors", h.ListVendors)
	handle("POST /api/v1/vendors", h.CreateVendor)
	handle("GET /api/v1/vendors/{id}", h.GetVendor)
	handle("PUT /api/v1/vendors/{id}", h.UpdateVendor)
	handle("DELETE /api/v1/vendors/{id}", h.DeleteVendor)
}
