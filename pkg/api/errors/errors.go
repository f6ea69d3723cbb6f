// Package errors writes the JSON error bodies returned by the HTTP API.
// Internal causes are logged and never sent to the client.
package errors

import (
	"log"
	"net/http"
	"strings"

	"github.com/jordanlanch/homeschoolhub/pkg/domain"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/labstack/echo/v4"
)

// ValidationError answers 400 with the given message. Validation messages
// describe the caller's input, so they are safe to return.
func ValidationError(c echo.Context, message string) error {
	log.Printf("[VALIDATION ERROR] Path: %s, Error: %s", c.Request().URL.Path, message)

	if message == "" {
		message = "Invalid request data. Please check your input and try again."
	}
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: message,
	})
}

// BindError answers 400 for a body that could not be decoded
func BindError(c echo.Context, err error) error {
	log.Printf("[BIND ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "validation_error",
		Message: "Invalid request data. Please check your input and try again.",
	})
}

// InternalError returns a generic internal server error
func InternalError(c echo.Context, err error) error {
	log.Printf("[INTERNAL ERROR] Path: %s, Error: %v", c.Request().URL.Path, err)

	return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred. Please try again later.",
	})
}

// UnauthorizedError returns a generic unauthorized error
func UnauthorizedError(c echo.Context, code string) error {
	if code == "" {
		code = "unauthorized"
	}
	return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
		Error:   code,
		Message: "You are not authorized to access this resource.",
	})
}

// ForbiddenError returns a generic forbidden error
func ForbiddenError(c echo.Context, code string) error {
	if code == "" {
		code = "forbidden"
	}
	return c.JSON(http.StatusForbidden, models.ErrorResponse{
		Error:   code,
		Message: "You do not have permission to access this resource.",
	})
}

// NotFoundError returns a not found error naming the resource
func NotFoundError(c echo.Context, resource string) error {
	msg := "The requested resource was not found."
	if resource != "" {
		msg = resource + " not found"
	}
	return c.JSON(http.StatusNotFound, models.ErrorResponse{
		Error:   "not_found",
		Message: msg,
	})
}

// ConflictError returns a conflict error
func ConflictError(c echo.Context, message string) error {
	return c.JSON(http.StatusConflict, models.ErrorResponse{
		Error:   "conflict",
		Message: message,
	})
}

// FromDomain writes the response matching a domain error. Anything that is
// not a domain error is treated as internal.
func FromDomain(c echo.Context, err error) error {
	switch status := domain.HTTPStatus(err); status {
	case http.StatusInternalServerError:
		return InternalError(c, err)
	case http.StatusUnauthorized:
		return UnauthorizedError(c, "")
	default:
		return c.JSON(status, models.ErrorResponse{
			Error:   strings.ToLower(domain.GetErrorCode(err)),
			Message: domain.PublicMessage(err),
		})
	}
}
