package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"tuition_tracker_echo/internal/models"
	"tuition_tracker_echo/internal/storage"
)

type ClassHandler struct {
	repo *storage.Repository
}

func NewClassHandler(repo *storage.Repository) *ClassHandler {
	return &ClassHandler{repo: repo}
}

func (h *ClassHandler) Register(g *echo.Group) {
	g.GET("/classes", h.ListClasses)
	g.POST("/classes", h.CreateClass)
	g.GET("/classes/:id", h.GetClass)
}

type createClassRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// ListClasses returns every class ordered by name
func (h *ClassHandler) ListClasses(c echo.Context) error {
	classes, err := h.repo.ListClasses(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", classes)
}

func (h *ClassHandler) GetClass(c echo.Context) error {
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	class, err := h.repo.GetClass(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, "", class)
}

// CreateClass handles the creation of a new class owned by the caller
func (h *ClassHandler) CreateClass(c echo.Context) error {
	var req createClassRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	class := models.Class{
		Name:     strings.TrimSpace(req.Name),
		OwnerUID: getStringFromContext(c, "userUID"),
	}
	if class.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	if err := h.repo.CreateClass(c.Request().Context(), &class); err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Class created successfully", class)
}
