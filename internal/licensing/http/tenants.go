package http

import (
	"net/http"

	"github.com/geoforest/licensing/internal/licensing/service"
	"github.com/geoforest/licensing/pkg/httpx"
	"github.com/geoforest/licensing/pkg/licensesdk"
)

type TenantsHandler struct {
	TenantService *service.TenantService
}

// HandleProvision handles POST /v1/tenants
//
//	@Summary		Provision License
//	@Description	Opens a 7-day trial license owned by the caller. The license id is the caller's actor id.
//	@Description	Fetch a fresh token afterwards to pick up the license_id and role claims.
//	@Tags			Tenants
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		licensesdk.ProvisionTenantRequest	false	"Billing email, defaults to the token email"
//	@Success		201		{object}	licensesdk.TenantResponse
//	@Failure		400		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		409		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		500		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Router			/v1/tenants [post].
func (h *TenantsHandler) HandleProvision(w http.ResponseWriter, r *http.Request) {
	var req licensesdk.ProvisionTenantRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			writeBadRequest(w, err)
			return
		}
	}

	tenant, err := h.TenantService.Provision(r.Context(), principal(r), req.Email)
	if err != nil {
		writeServiceError(w, r, "provision tenant", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, tenantResponse(tenant))
}

// HandleGet handles GET /v1/tenants/me
//
//	@Summary		Get License
//	@Description	Returns the caller's license with its members.
//	@Tags			Tenants
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	licensesdk.TenantResponse
//	@Failure		401	{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		403	{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		404	{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Router			/v1/tenants/me [get].
func (h *TenantsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	tenant, err := h.TenantService.Get(r.Context(), principal(r))
	if err != nil {
		writeServiceError(w, r, "get tenant", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tenantResponse(tenant))
}
