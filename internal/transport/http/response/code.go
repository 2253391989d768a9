package response

import (
	"errors"
	"net/http"

	"shop-api/internal/domain"
)

// StatusOf maps a domain error onto the HTTP status clients see. Product
// lookups and stock shortages during placement report 500, as they always
// have.
func StatusOf(err error) int {
	var de *domain.Error
	if errors.As(err, &de) && de.Status != 0 {
		return de.Status
	}
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Default messages for failures raised outside the domain layer.
var StatusMsg = map[int]string{
	http.StatusBadRequest:            "Bad request",
	http.StatusRequestEntityTooLarge: "Request body too large",
	http.StatusTooManyRequests:       "Too many requests",
	http.StatusInternalServerError:   "Internal error",
	http.StatusServiceUnavailable:    "Server busy",
	http.StatusGatewayTimeout:        "Request timed out",
}
