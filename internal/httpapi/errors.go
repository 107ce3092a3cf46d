package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// apiError: JSON-конверт ошибки API.
type apiError struct {
	Code    string
	Message string
	Status  int
}

func newError(code, message string, status int) apiError {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return apiError{Code: sanitize(code, 80), Message: sanitize(message, 512), Status: status}
}

func writeError(ctx context.Context, w http.ResponseWriter, e apiError) {
	payload := map[string]any{
		"error":   e.Code,
		"message": e.Message,
		"status":  e.Status,
	}
	if id := middleware.GetReqID(ctx); id != "" {
		payload["request_id"] = sanitize(id, 80)
	}
	writeJSON(w, e.Status, payload)
}

// writeDomainError переводит доменную ошибку в HTTP-ответ.
func writeDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	writeError(ctx, w, errorFor(err))
}

func errorFor(err error) apiError {
	if rej, ok := domain.AsRejection(err); ok {
		return newError(string(rej.Reason), rej.Message, http.StatusConflict)
	}
	switch {
	case domain.IsNotFound(err):
		return newError("not_found", err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrUserIDRequired):
		return newError("user_required", "X-User-ID header is required", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrPaymentMethodRequired), errors.Is(err, domain.ErrQuantityInvalid):
		return newError("invalid_request", err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrPaymentFailed):
		return newError("payment_failed", err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, domain.ErrPersistence):
		return newError("persistence_failed", "changes may not be saved", http.StatusServiceUnavailable)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newError("request_cancelled", err.Error(), http.StatusRequestTimeout)
	}
	return newError("internal", "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(dst)
}

func sanitize(value string, limit int) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "\r", " ")
	value = strings.TrimSpace(value)
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
