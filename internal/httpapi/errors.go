package httpapi

import (
	"errors"
	"net/http"

	"github.com/TemirB/storefront-checkout/internal/domain"
)

// kindToStatus maps domain error kinds to HTTP status codes. Anything not
// listed is a 500.
var kindToStatus = []struct {
	kind   error
	status int
}{
	{domain.ErrInvalidCart, http.StatusBadRequest},
	{domain.ErrPaymentFailed, http.StatusPaymentRequired},
	{domain.ErrNotFound, http.StatusNotFound},
	{domain.ErrInternal, http.StatusInternalServerError},
}

func httpStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	for _, k := range kindToStatus {
		if errors.Is(err, k.kind) {
			return k.status
		}
	}
	return http.StatusInternalServerError
}

// publicMessage is what the caller sees. Validation details are safe to
// return; a rejection never says whether stock or payment failed, and
// internal faults say nothing.
func publicMessage(err error, status int) string {
	switch status {
	case http.StatusBadRequest:
		return err.Error()
	case http.StatusPaymentRequired:
		return "payment failed"
	case http.StatusNotFound:
		return "not found"
	default:
		return "internal error"
	}
}
