package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/minicrm/crm-api/internal/core/ports"
)

type StaffHandler struct {
	service ports.StaffService
}

func NewStaffHandler(service ports.StaffService) *StaffHandler {
	return &StaffHandler{service: service}
}

// List handles GET /api/staff.
//
// @Summary      List staff members
// @Tags         staff
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.User
// @Failure      403  {object}  errorResponse
// @Router       /api/staff [get]
func (h *StaffHandler) List(c echo.Context) error {
	staff, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, staff)
}

// Create handles POST /api/staff.
//
// @Summary      Create a staff member
// @Tags         staff
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createStaffRequest  true  "Staff member"
// @Success      201   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/staff [post]
func (h *StaffHandler) Create(c echo.Context) error {
	var req createStaffRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.Create(c.Request().Context(), ports.CreateStaffInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Contact:  req.Contact,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// Update handles PUT /api/staff/:id.
//
// @Summary      Update a staff member
// @Tags         staff
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string              true  "Staff user id"
// @Param        body  body      updateStaffRequest  true  "Fields to change"
// @Success      200   {object}  domain.User
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/staff/{id} [put]
func (h *StaffHandler) Update(c echo.Context) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	var req updateStaffRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.Update(c.Request().Context(), id, ports.UserPatch{
		Name:    req.Name,
		Email:   req.Email,
		Contact: req.Contact,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Delete handles DELETE /api/staff/:id. The member is also unassigned from
// every project.
//
// @Summary      Delete a staff member
// @Tags         staff
// @Security     BearerAuth
// @Param        id  path  string  true  "Staff user id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /api/staff/{id} [delete]
func (h *StaffHandler) Delete(c echo.Context) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
