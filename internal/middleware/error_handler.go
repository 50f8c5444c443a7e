package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"tuition_tracker_echo/internal/storage"
)

// ErrorResponse is the JSON body written for every failed request.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorHandler renders errors as JSON. Storage sentinels map to 404 and 409,
// validation errors to 400 with per-field messages.
func ErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	resp := ErrorResponse{Message: http.StatusText(http.StatusInternalServerError)}

	var (
		he   *echo.HTTPError
		verr validator.ValidationErrors
	)
	switch {
	case errors.As(err, &he):
		code = he.Code
		if msg, ok := he.Message.(string); ok && msg != "" {
			resp.Message = msg
		} else {
			resp.Message = http.StatusText(code)
		}
	case errors.As(err, &verr):
		code = http.StatusBadRequest
		resp.Message = "validation failed"
		resp.Fields = make(map[string]string, len(verr))
		for _, fe := range verr {
			resp.Fields[fe.Field()] = fieldMessage(fe)
		}
	case errors.Is(err, storage.ErrNotFound):
		code = http.StatusNotFound
		resp.Message = err.Error()
	case errors.Is(err, storage.ErrDuplicate):
		code = http.StatusConflict
		resp.Message = err.Error()
	}

	// Log the error
	if code >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "Request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", code,
			"error", err)
	}

	if c.Response().Committed {
		return
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, resp)
	}
	if err != nil {
		slog.Error("Failed to write error response", "error", err)
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "month":
		return "must be a month code such as JAN"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min", "max":
		return fmt.Sprintf("must satisfy %s=%s", fe.Tag(), fe.Param())
	}
	return "is invalid"
}
