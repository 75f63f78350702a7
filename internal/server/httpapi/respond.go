package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophblog/internal/common"
	"github.com/dmitrijs2005/gophblog/internal/logging"
	"github.com/dmitrijs2005/gophblog/internal/server/apperr"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorPayload(w http.ResponseWriter, status int, p errorPayload) {
	writeJSON(w, status, errorBody{Error: p})
}

// writeError renders err. Typed service errors keep their status, code and
// message; transient storage failures become 503; anything else is logged
// and rendered as a generic 500.
func writeError(ctx context.Context, w http.ResponseWriter, l logging.Logger, err error) {
	if ae, ok := apperr.As(err); ok {
		if ae.Err != nil {
			l.Debug(ctx, "request failed", "code", ae.Code(), "cause", ae.Err.Error())
		}
		writeErrorPayload(w, ae.Status(), errorPayload{
			Code:    ae.Code(),
			Message: ae.PublicMessage(),
			Details: ae.Details,
		})
		return
	}

	if errors.Is(err, common.ErrTransient) {
		l.Warn(ctx, "transient failure", "error", err, "request_id", RequestIDFromContext(ctx))
		w.Header().Set("Retry-After", "1")
		writeErrorPayload(w, http.StatusServiceUnavailable, errorPayload{
			Code:    "SERVICE_UNAVAILABLE",
			Message: "service temporarily unavailable, please retry",
		})
		return
	}

	l.Error(ctx, "unhandled error", "error", err, "request_id", RequestIDFromContext(ctx))
	writeErrorPayload(w, http.StatusInternalServerError, errorPayload{
		Code:    "INTERNAL_ERROR",
		Message: "internal server error",
	})
}

// decodeJSON reads a JSON body into dst. Malformed bodies are validation
// errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation(apperr.FieldError{Field: "body", Message: "request body too large"})
		}
		return apperr.Validation(apperr.FieldError{Field: "body", Message: "malformed JSON"})
	}
	return nil
}
