package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
)

// LeadHandler serves the lead registry.
type LeadHandler struct {
	service ports.LeadService
}

func NewLeadHandler(service ports.LeadService) *LeadHandler {
	return &LeadHandler{service: service}
}

// List handles GET /api/leads.
//
// @Summary      List leads
// @Tags         leads
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status"
// @Success      200     {array}   domain.Lead
// @Failure      401     {object}  errorResponse
// @Failure      403     {object}  errorResponse
// @Router       /api/leads [get]
func (h *LeadHandler) List(c echo.Context) error {
	leads, err := h.service.List(c.Request().Context(), ports.LeadFilter{Status: c.QueryParam("status")})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, leads)
}

// Create handles POST /api/leads.
//
// @Summary      Capture a lead
// @Tags         leads
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createLeadRequest  true  "Lead"
// @Success      201   {object}  domain.Lead
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/leads [post]
func (h *LeadHandler) Create(c echo.Context) error {
	var req createLeadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	lead, err := h.service.Create(c.Request().Context(), ports.CreateLeadInput{
		Name:    req.Name,
		Email:   req.Email,
		Contact: req.Contact,
		Status:  req.Status,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, lead)
}

// Update handles PUT /api/leads/:id.
//
// @Summary      Update a lead
// @Tags         leads
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Lead id"
// @Param        body  body      updateLeadRequest  true  "Fields to change"
// @Success      200   {object}  domain.Lead
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/leads/{id} [put]
func (h *LeadHandler) Update(c echo.Context) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	var req updateLeadRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	patch := ports.LeadPatch{Name: req.Name, Contact: req.Contact}
	if req.Status != nil {
		status := domain.LeadStatus(*req.Status)
		patch.Status = &status
	}

	lead, err := h.service.Update(c.Request().Context(), id, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, lead)
}

// Delete handles DELETE /api/leads/:id.
//
// @Summary      Delete a lead
// @Tags         leads
// @Security     BearerAuth
// @Param        id  path  string  true  "Lead id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Router       /api/leads/{id} [delete]
func (h *LeadHandler) Delete(c echo.Context) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
