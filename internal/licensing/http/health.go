package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/geoforest/licensing/internal/licensing/store"
	"github.com/geoforest/licensing/pkg/httpx"
	"github.com/geoforest/licensing/pkg/jwtx"
	"github.com/geoforest/licensing/pkg/licensesdk"
)

// LivezHandler godoc
//
//	@Summary		Health Check Endpoint
//	@Description	Liveness probe returning status, uptime and version. Always 200 while the process runs.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	licensesdk.HealthResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, healthBody(startTime, version, nil))
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness Check Endpoint
//	@Description	Readiness probe checking the store and, when tokens are verified or issued locally, the key set.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	licensesdk.HealthResponse	"status, uptime, version, checks"
//	@Failure		503	{object}	licensesdk.HealthResponse	"status, uptime, version, checks - service not ready"
//	@Router			/readyz [get].
func ReadyzHandler(startTime time.Time, version string, st store.Store, keys *jwtx.KeySet) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ready := true
		check := func(err error) string {
			if err == nil {
				return "ok"
			}
			ready = false
			return "error: " + err.Error()
		}

		checks := &licensesdk.HealthChecks{Store: check(st.Ping(r.Context()))}

		// Firebase mode has no local key set.
		if keys != nil {
			var err error
			if !keys.IsReady() {
				err = errNoSigningKeys
			}
			checks.Signer = check(err)
		}

		body := healthBody(startTime, version, checks)
		code := http.StatusOK
		if !ready {
			body.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, code, body)
	}
}

var errNoSigningKeys = errors.New("no keys loaded")

func healthBody(startTime time.Time, version string, checks *licensesdk.HealthChecks) licensesdk.HealthResponse {
	return licensesdk.HealthResponse{
		Status:  "ok",
		Uptime:  time.Since(startTime).Round(time.Second).String(),
		Version: version,
		Checks:  checks,
	}
}
