package http

import (
	"net/http"

	"github.com/geoforest/licensing/internal/licensing/service"
	"github.com/geoforest/licensing/pkg/httpx"
	"github.com/geoforest/licensing/pkg/licensesdk"
)

type DelegationsHandler struct {
	DelegationService *service.DelegationService
}

// HandleCreate handles POST /v1/delegations
//
//	@Summary		Create Delegation Code
//	@Description	Issues a single-use 6 character code that hands the project to whichever license redeems it.
//	@Description	Requires the owner or manager role.
//	@Tags			Delegations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		licensesdk.CreateDelegationRequest	true	"Project to delegate"
//	@Success		201		{object}	licensesdk.CreateDelegationResponse
//	@Failure		400		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		403		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		500		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Router			/v1/delegations [post].
func (h *DelegationsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req licensesdk.CreateDelegationRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	code, err := h.DelegationService.Create(r.Context(), principal(r), req.ProjectID, req.ProjectName)
	if err != nil {
		writeServiceError(w, r, "create delegation", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, licensesdk.CreateDelegationResponse{Code: code})
}

// HandleRedeem handles POST /v1/delegations/redeem
//
//	@Summary		Redeem Delegation Code
//	@Description	Consumes a code issued by another license. Codes are case-insensitive and work exactly once.
//	@Tags			Delegations
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		licensesdk.RedeemDelegationRequest	true	"Code to redeem"
//	@Success		200		{object}	licensesdk.RedeemDelegationResponse
//	@Failure		400		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		403		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		404		{object}	licensesdk.ErrorResponse	"unknown or already used code"
//	@Failure		429		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Router			/v1/delegations/redeem [post].
func (h *DelegationsHandler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	var req licensesdk.RedeemDelegationRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	p := principal(r)
	fallback := req.DisplayName
	if fallback == "" {
		fallback = p.Name
	}

	grant, err := h.DelegationService.Redeem(r.Context(), p, fallback, req.Code)
	if err != nil {
		writeServiceError(w, r, "redeem delegation", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, licensesdk.RedeemDelegationResponse{
		OfferID:           grant.OfferID,
		IssuerTenantID:    grant.IssuerTenantID,
		GrantedProjectIDs: grant.GrantedProjectIDs,
	})
}

// HandleListIssued handles GET /v1/delegations/issued
//
//	@Summary		List Issued Delegations
//	@Description	Lists every code the caller's license has issued, newest first.
//	@Tags			Delegations
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	licensesdk.DelegationList
//	@Failure		401	{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Router			/v1/delegations/issued [get].
func (h *DelegationsHandler) HandleListIssued(w http.ResponseWriter, r *http.Request) {
	offers, err := h.DelegationService.ListIssued(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "list issued delegations", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, delegationList(offers))
}
