package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/minicrm/crm-api/internal/core/ports"
)

// ClientHandler serves the client registry and the lead conversion entry point.
type ClientHandler struct {
	clients     ports.ClientService
	conversions ports.ConversionService
}

func NewClientHandler(clients ports.ClientService, conversions ports.ConversionService) *ClientHandler {
	return &ClientHandler{clients: clients, conversions: conversions}
}

// Convert handles POST /api/clients/convert/:key. The key is a lead id or
// the lead's email. Partial failures come back as warnings on a 200.
//
// @Summary      Convert a lead into a client
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Param        key  path      string  true  "Lead id or email"
// @Success      200  {object}  domain.ConversionResult
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /api/clients/convert/{key} [post]
func (h *ClientHandler) Convert(c echo.Context) error {
	key, err := pathParam(c, "key")
	if err != nil {
		return err
	}

	result, err := h.conversions.Convert(c.Request().Context(), key)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

// List handles GET /api/clients.
//
// @Summary      List clients
// @Tags         clients
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Client
// @Failure      403  {object}  errorResponse
// @Router       /api/clients [get]
func (h *ClientHandler) List(c echo.Context) error {
	clients, err := h.clients.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, clients)
}

// Update handles PUT /api/clients/:id.
//
// @Summary      Update a client
// @Tags         clients
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string               true  "Client id"
// @Param        body  body      updateClientRequest  true  "Fields to change"
// @Success      200   {object}  domain.Client
// @Failure      404   {object}  errorResponse
// @Router       /api/clients/{id} [put]
func (h *ClientHandler) Update(c echo.Context) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	var req updateClientRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	client, err := h.clients.Update(c.Request().Context(), id, ports.ClientPatch{Name: req.Name, Contact: req.Contact})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, client)
}

// Delete handles DELETE /api/clients/:id.
//
// @Summary      Delete a client
// @Tags         clients
// @Security     BearerAuth
// @Param        id  path  string  true  "Client id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /api/clients/{id} [delete]
func (h *ClientHandler) Delete(c echo.Context) error {
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.clients.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
