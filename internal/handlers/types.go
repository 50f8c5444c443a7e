package handlers

import (
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"tuition_tracker_echo/internal/models"
)

// Response is the envelope every JSON endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(c echo.Context, code int, message string, data interface{}) error {
	return c.JSON(code, Response{Success: true, Message: message, Data: data})
}

// CustomValidator plugs go-playground/validator into echo's c.Validate.
type CustomValidator struct {
	validator *validator.Validate
}

func NewValidator() *CustomValidator {
	v := validator.New()
	// report fields by their json names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterValidation("month", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseMonth(fl.Field().String())
		return ok
	})
	return &CustomValidator{validator: v}
}

func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// bindAndValidate binds the request body and runs struct validation.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

func getStringFromContext(c echo.Context, key string) string {
	if val := c.Get(key); val != nil {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// actor is the identity recorded as marked-by: email when known, else uid.
func actor(c echo.Context) string {
	if email := getStringFromContext(c, "userEmail"); email != "" {
		return email
	}
	return getStringFromContext(c, "userUID")
}

func uintParam(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(id), nil
}

// monthQuery reads ?month=, defaulting to now's month.
func monthQuery(c echo.Context, now time.Time) (models.Month, error) {
	raw := strings.TrimSpace(c.QueryParam("month"))
	if raw == "" {
		return models.MonthOf(now.Month()), nil
	}
	month, ok := models.ParseMonth(raw)
	if !ok {
		return "", echo.NewHTTPError(http.StatusBadRequest, "invalid month")
	}
	return month, nil
}

func pageQuery(c echo.Context) int {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
