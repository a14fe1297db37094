package httpx

import (
	"errors"
	"net/http"

	"github.com/prontivus/prontivus/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807. Internal
// detail is kept out of client-visible denials.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrSystemRole):
		Problem(w, http.StatusConflict, "System Role", err.Error())
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Invalid Credentials", "username or password is incorrect")
	case errors.Is(err, shared.ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
	case errors.Is(err, shared.ErrForbidden):
		Problem(w, http.StatusForbidden, "Forbidden", "insufficient role or permissions")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
