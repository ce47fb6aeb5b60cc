package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/minicrm/crm-api/internal/core/domain"
	"github.com/minicrm/crm-api/internal/core/ports"
)

// ProjectHandler exposes the project visibility resolver. Every read is scoped
// to the caller; what a role may see or change is decided by the service.
type ProjectHandler struct {
	service ports.ProjectService
}

func NewProjectHandler(service ports.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// List handles GET /api/projects.
//
// @Summary      List visible projects
// @Description  Admins see every project, staff the ones they are assigned to, clients their own. Filters narrow the visible set.
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        client    query     string  false  "Client user id"
// @Param        staff     query     string  false  "Staff user id"
// @Param        progress  query     string  false  "not started, in progress or completed"
// @Success      200       {array}   domain.Project
// @Failure      400       {object}  errorResponse
// @Failure      403       {object}  errorResponse
// @Router       /api/projects [get]
func (h *ProjectHandler) List(c echo.Context) error {
	actor, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	projects, err := h.service.ListVisible(c.Request().Context(), actor, ports.ProjectFilter{
		ClientID: c.QueryParam("client"),
		StaffID:  c.QueryParam("staff"),
		Progress: c.QueryParam("progress"),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, projects)
}

// Get handles GET /api/projects/:id. Projects outside the caller's scope
// report 404.
//
// @Summary      Get a project
// @Tags         projects
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Project id"
// @Success      200  {object}  domain.Project
// @Failure      404  {object}  errorResponse
// @Router       /api/projects/{id} [get]
func (h *ProjectHandler) Get(c echo.Context) error {
	actor, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}

	project, err := h.service.Get(c.Request().Context(), actor, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

// Create handles POST /api/projects.
//
// @Summary      Create a project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createProjectRequest  true  "Project"
// @Success      201   {object}  domain.Project
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /api/projects [post]
func (h *ProjectHandler) Create(c echo.Context) error {
	actor, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	var req createProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	deadline, err := parseDeadline(req.Deadline)
	if err != nil {
		return err
	}

	project, err := h.service.Create(c.Request().Context(), actor, ports.CreateProjectInput{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    deadline,
		ClientID:    req.Client,
		StaffIDs:    req.Staff,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, project)
}

// Update handles PUT /api/projects/:id. Staff may only move progress on
// projects they are assigned to; other fields in their request are ignored.
//
// @Summary      Update a project
// @Tags         projects
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "Project id"
// @Param        body  body      updateProjectRequest  true  "Fields to change"
// @Success      200   {object}  domain.Project
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/projects/{id} [put]
func (h *ProjectHandler) Update(c echo.Context) error {
	actor, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	var req updateProjectRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	patch, err := toProjectPatch(req)
	if err != nil {
		return err
	}

	project, err := h.service.Update(c.Request().Context(), actor, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, project)
}

// Delete handles DELETE /api/projects/:id.
//
// @Summary      Delete a project
// @Tags         projects
// @Security     BearerAuth
// @Param        id  path  string  true  "Project id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/projects/{id} [delete]
func (h *ProjectHandler) Delete(c echo.Context) error {
	actor, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	id, err := pathParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), actor, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func toProjectPatch(req updateProjectRequest) (domain.ProjectPatch, error) {
	patch := domain.ProjectPatch{
		Title:       req.Title,
		Description: req.Description,
		ClientID:    req.Client,
		StaffIDs:    req.Staff,
	}
	if req.Deadline != nil {
		deadline, err := parseDeadline(*req.Deadline)
		if err != nil {
			return domain.ProjectPatch{}, err
		}
		patch.Deadline = &deadline
	}
	if req.Progress != nil {
		progress := domain.Progress(*req.Progress)
		patch.Progress = &progress
	}
	return patch, nil
}
