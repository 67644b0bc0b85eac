package http

import (
	"net/http"

	"github.com/geoforest/licensing/internal/licensing/service"
	"github.com/geoforest/licensing/pkg/httpx"
	"github.com/geoforest/licensing/pkg/licensesdk"
)

// AuthHandler serves the local password directory. It is only mounted when
// the service issues its own tokens.
type AuthHandler struct {
	AuthService *service.AuthService
}

// HandleSignUp handles POST /v1/auth/signup
//
//	@Summary		Sign Up
//	@Description	Creates a local account without a license. Provision one with POST /v1/tenants.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		licensesdk.SignUpRequest	true	"Credentials"
//	@Success		201		{object}	licensesdk.SignUpResponse
//	@Failure		400		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		409		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		429		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Router			/v1/auth/signup [post].
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req licensesdk.SignUpRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	actorID, err := h.AuthService.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeServiceError(w, r, "sign up", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, licensesdk.SignUpResponse{ActorID: actorID})
}

// HandleToken handles POST /v1/auth/token
//
//	@Summary		Issue Access Token
//	@Description	Exchanges email and password for an EdDSA signed access token carrying license_id and role.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		licensesdk.TokenRequest	true	"Credentials"
//	@Success		200		{object}	licensesdk.TokenResponse
//	@Failure		400		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		401		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Failure		429		{object}	licensesdk.ErrorResponse	"error, error_description"
//	@Router			/v1/auth/token [post].
func (h *AuthHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req licensesdk.TokenRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}

	tok, err := h.AuthService.IssueToken(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, "issue token", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, licensesdk.TokenResponse{
		AccessToken: tok.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int(tok.ExpiresIn.Seconds()),
	})
}
