package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/splax/reportdesk/internal/service/auth"
	"github.com/splax/reportdesk/internal/service/report"
	"github.com/splax/reportdesk/internal/service/users"
)

const maxBodyBytes = 1 << 20

var errInvalidJSON = errors.New("invalid JSON body")

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) error {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		return errInvalidJSON
	}
	return nil
}

// statusFor maps service errors onto response codes. Unknown errors are 500.
func statusFor(err error) int {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, errInvalidJSON),
		errors.Is(err, auth.ErrDuplicateEmail),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, users.ErrEmptyUpdate):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrUserNotFound),
		errors.Is(err, users.ErrUserNotFound),
		errors.Is(err, report.ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, auth.ErrUnauthenticated),
		errors.Is(err, report.ErrOwnerRequired):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError renders err with the mapped status. Internal failures are
// logged and replaced by a generic message.
func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		r.logger.Error("request failed", "error", err, "path", req.URL.Path)
		writeError(w, status, "internal server error")
		return
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		writeJSON(w, status, map[string]any{"error": "validation failed", "fields": verrs})
		return
	}
	writeError(w, status, err.Error())
}
