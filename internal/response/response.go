package response

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"jewelpo/internal/apperr"
	"jewelpo/internal/logger"
	"jewelpo/internal/models"
)

// JSON writes a successful API response with the given data.
func JSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.APIResponse{Data: data})
}

// Created writes a 201 API response.
func Created(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(models.APIResponse{Data: data})
}

// JSONMeta writes a successful API response with pagination metadata.
func JSONMeta(w http.ResponseWriter, data interface{}, total, page, limit int) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(models.APIResponse{
		Data: data,
		Meta: &models.Meta{Total: total, Page: page, Limit: limit},
	})
}

// Err writes a JSON error response with the given message and HTTP status code.
func Err(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: msg, Code: codeName(code)})
}

// Error maps a service error to its HTTP status. Internal causes are logged
// with the request logger and replaced by a generic message.
func Error(ctx context.Context, w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := models.ErrorResponse{Error: "Internal error.", Code: apperr.Internal.String()}

	var ae *apperr.Error
	if errors.As(err, &ae) && ae.Kind != apperr.Internal {
		body = models.ErrorResponse{Error: ae.Message, Code: ae.Kind.String(), Fields: ae.Fields}
	} else {
		logger.FromContext(ctx).Error("request failed", zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// StatusFor returns the HTTP status for err's kind.
func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.PermissionDenied:
		return http.StatusForbidden
	case apperr.PreconditionFailed, apperr.Conflict:
		return http.StatusConflict
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func codeName(code int) string {
	switch code {
	case http.StatusBadRequest:
		return apperr.Validation.String()
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return apperr.PermissionDenied.String()
	case http.StatusNotFound:
		return apperr.NotFound.String()
	case http.StatusConflict:
		return apperr.Conflict.String()
	case http.StatusTooManyRequests:
		return "rate_limited"
	}
	if code >= 500 {
		return apperr.Internal.String()
	}
	return "error"
}

// DecodeBody decodes a JSON request body into the given value.
func DecodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
