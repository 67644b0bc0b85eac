package http

import (
	"errors"
	"net/http"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/service"
	"github.com/geoforest/licensing/pkg/httpx"
	"github.com/geoforest/licensing/pkg/licensesdk"
	"github.com/geoforest/licensing/pkg/slogx"
)

// writeServiceError maps service error kinds onto HTTP statuses. Internal
// errors are logged and replaced with a generic description.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		status int
		code   string
	)
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		status, code = http.StatusUnauthorized, licensesdk.CodeUnauthenticated
	case errors.Is(err, service.ErrInvalidCredentials):
		status, code = http.StatusUnauthorized, licensesdk.CodeInvalidCredentials
	case errors.Is(err, service.ErrPermissionDenied):
		status, code = http.StatusForbidden, licensesdk.CodePermissionDenied
	case errors.Is(err, service.ErrInvalidArgument):
		status, code = http.StatusBadRequest, licensesdk.CodeInvalidArgument
	case errors.Is(err, service.ErrNotFound):
		status, code = http.StatusNotFound, licensesdk.CodeNotFound
	case errors.Is(err, service.ErrAlreadyExists):
		status, code = http.StatusConflict, licensesdk.CodeAlreadyExists
	default:
		slogx.FromContext(r.Context()).Error("request failed", "op", op, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, licensesdk.CodeInternal, "internal error")
		return
	}
	httpx.WriteError(w, status, code, err.Error())
}

func writeBadRequest(w http.ResponseWriter, err error) {
	httpx.WriteError(w, http.StatusBadRequest, licensesdk.CodeInvalidArgument, err.Error())
}

// principal builds the caller from the verified token. Routes without
// AuthnMiddleware get the zero principal.
func principal(r *http.Request) domain.Principal {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		return domain.Principal{}
	}
	return service.PrincipalFromClaims(claims)
}
