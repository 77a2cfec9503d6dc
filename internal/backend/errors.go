package backend

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/apexpos/admin/internal/platform/httpx"
)

// StatusError reports a non-2xx answer from the product backend.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("backend: %s: status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("backend: %s: status %d: %s", e.Op, e.Code, body)
}

// Unwrap maps the status code onto the httpx sentinel errors.
func (e *StatusError) Unwrap() error {
	switch e.Code {
	case http.StatusNotFound:
		return httpx.ErrNotFound
	case http.StatusConflict:
		return httpx.ErrDuplicate
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return httpx.ErrValidation
	case http.StatusUnsupportedMediaType:
		return httpx.ErrUnsupported
	default:
		return httpx.ErrUpstream
	}
}
