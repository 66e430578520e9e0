package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/voltrip/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, capacity_exceeded, route_failed, ...
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "unavailable", msg)
}

// errDomain maps core errors onto status codes.
func errDomain(c *fiber.Ctx, err error) error {
	var rf *domain.RouteFailedError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return errNotFound(c, "session not found")
	case errors.Is(err, domain.ErrUnknownCharger):
		return newError(c, 404, "unknown_charger", err.Error())
	case errors.Is(err, domain.ErrMissingEndpoint):
		return newError(c, 409, "missing_endpoint", err.Error())
	case errors.Is(err, domain.ErrCapacityExceeded):
		return newError(c, 409, "capacity_exceeded", err.Error())
	case errors.As(err, &rf):
		return newError(c, 422, "route_failed", rf.Error())
	case errors.Is(err, domain.ErrTimeout):
		return newError(c, 504, "timeout", err.Error())
	case errors.Is(err, domain.ErrServiceError):
		return newError(c, 502, "service_error", err.Error())
	default:
		return errInternal(c, err.Error())
	}
}

// isRoutingError reports errors that the session already turned into a
// notice. Mutations that hit them still succeeded.
func isRoutingError(err error) bool {
	return errors.Is(err, domain.ErrRouteComputationFailed) ||
		errors.Is(err, domain.ErrServiceError) ||
		errors.Is(err, domain.ErrTimeout) ||
		errors.Is(err, domain.ErrMissingEndpoint)
}
