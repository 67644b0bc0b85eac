package http

import (
	"net/http"

	"github.com/geoforest/licensing/internal/licensing/service"
	"github.com/geoforest/licensing/pkg/httpx"
	"github.com/geoforest/licensing/pkg/licensesdk"
)

type TeamHandler struct {
	TeamService *service.TeamService
}

// HandleAdd handles POST /v1/team/members
//
//	@Summary		Add Team Member
//	@Description	Creates a sign-in identity and adds it to the caller's license. Requires the owner or manager role.
//	@Tags			Team
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		licensesdk.AddMemberRequest	true	"New member"
//	@Success		201		{object}	licensesdk.Member
//	@Failure		400		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		403		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		409		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		500		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Router			/v1/team/members [post].
func (h *TeamHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var req licensesdk.AddMemberRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	member, err := h.TeamService.AddMember(r.Context(), principal(r), service.AddMemberRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(w, r, "add member", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, memberResponse(member))
}

// HandleRemove handles DELETE /v1/team/members/{id}
//
//	@Summary		Remove Team Member
//	@Description	Removes a member from the caller's license and revokes their claims. The owner cannot be removed.
//	@Tags			Team
//	@Security		BearerAuth
//	@Param			id	path	string	true	"Actor ID"
//	@Success		204	"Member removed"
//	@Failure		400	{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		401	{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Router			/v1/team/members/{id} [delete].
func (h *TeamHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	if err := h.TeamService.RemoveMember(r.Context(), principal(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, "remove member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
