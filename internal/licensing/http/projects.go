package http

import (
	"net/http"

	"github.com/geoforest/licensing/internal/licensing/service"
	"github.com/geoforest/licensing/pkg/httpx"
	"github.com/geoforest/licensing/pkg/licensesdk"
)

type ProjectsHandler struct {
	ProjectService *service.ProjectService
}

// HandleRegister handles POST /v1/projects
//
//	@Summary		Register Project
//	@Description	Registers a project under the caller's license. Devices may supply their own id.
//	@Tags			Projects
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		licensesdk.RegisterProjectRequest	true	"Project"
//	@Success		201		{object}	licensesdk.Project
//	@Failure		400		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		403		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		409		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Router			/v1/projects [post].
func (h *ProjectsHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req licensesdk.RegisterProjectRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	project, err := h.ProjectService.Register(r.Context(), principal(r), req.ID, req.Name)
	if err != nil {
		writeServiceError(w, r, "register project", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, projectResponse(project))
}

// HandleList handles GET /v1/projects
//
//	@Summary		List Projects
//	@Description	Lists the active projects of the caller's license, oldest first.
//	@Tags			Projects
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	licensesdk.ProjectList
//	@Failure		401	{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Router			/v1/projects [get].
func (h *ProjectsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	projects, err := h.ProjectService.List(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "list projects", err)
		return
	}

	out := licensesdk.ProjectList{Projects: make([]licensesdk.Project, len(projects))}
	for i, p := range projects {
		out.Projects[i] = projectResponse(p)
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleDelete handles DELETE /v1/projects/{id}
//
//	@Summary		Delete Project
//	@Description	Soft deletes a project. Deleted projects can no longer be delegated.
//	@Tags			Projects
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Project ID"
//	@Success		204	"Project deleted"
//	@Failure		403	{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Router			/v1/projects/{id} [delete].
func (h *ProjectsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.ProjectService.SoftDelete(r.Context(), principal(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, "delete project", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleDelegated handles GET /v1/delegations/received
//
//	@Summary		List Received Delegations
//	@Description	Lists the delegations the caller's license has redeemed, newest first.
//	@Tags			Delegations
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	licensesdk.DelegationList
//	@Failure		401	{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Router			/v1/delegations/received [get].
func (h *ProjectsHandler) HandleDelegated(w http.ResponseWriter, r *http.Request) {
	offers, err := h.ProjectService.Delegated(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "list received delegations", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, delegationList(offers))
}
