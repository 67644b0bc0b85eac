package http

import (
	"net/http"

	"github.com/geoforest/licensing/pkg/httpx"
	"github.com/geoforest/licensing/pkg/jwtx"
	"github.com/geoforest/licensing/pkg/licensesdk"
)

// JWKSHandler exposes the keys that sign local access tokens.
//
//	@Summary		Get JWKS
//	@Description	Returns the JSON Web Key Set used to verify local access tokens.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	licensesdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func JWKSHandler(keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, licensesdk.JWKSResponse(keys.PublicJWKS()))
	}
}
