package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geoforest/licensing/pkg/httpx"
	"github.com/geoforest/licensing/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		order = append(order, "handler")
	}), mw("outer"), mw("inner"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner", "handler"}, order)
}

func TestAuthnMiddleware(t *testing.T) {
	verifier := jwtx.VerifierFunc(func(_ context.Context, token string) (jwtx.Claims, error) {
		if token != "good" {
			return jwtx.Claims{}, errors.New("bad token")
		}
		c := jwtx.Claims{LicenseID: "t1", Role: "owner"}
		c.Subject = "actor-1"
		return c, nil
	})

	var seen jwtx.Claims
	h := httpx.AuthnMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = httpx.ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.True(t, strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), "Bearer"))
		require.Contains(t, rec.Body.String(), "unauthenticated")
	})

	t.Run("rejected token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.Equal(t, "actor-1", seen.Subject)
		require.Equal(t, "t1", seen.LicenseID)
	})
}

func TestRequireAnyRole(t *testing.T) {
	h := httpx.RequireAnyRole("owner", "manager")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"no claims", httptest.NewRequest(http.MethodPost, "/", nil), http.StatusForbidden},
		{"member", withClaims(httptest.NewRequest(http.MethodPost, "/", nil), "a", "t", "member"), http.StatusForbidden},
		{"manager", withClaims(httptest.NewRequest(http.MethodPost, "/", nil), "a", "t", "manager"), http.StatusNoContent},
		{"owner mixed case", withClaims(httptest.NewRequest(http.MethodPost, "/", nil), "a", "t", " Owner "), http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tc.req)
			require.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Code string `json:"code"`
	}

	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"ABC123"}`))
		var b body
		require.NoError(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &b))
		require.Equal(t, "ABC123", b.Code)
	})

	t.Run("unknown field", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"cod":"ABC123"}`))
		var b body
		require.Error(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &b))
	})

	t.Run("empty", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
		var b body
		require.ErrorContains(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &b), "empty")
	})

	t.Run("trailing object", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"code":"A"}{"code":"B"}`))
		var b body
		require.Error(t, httpx.DecodeJSON(httptest.NewRecorder(), req, &b))
	})
}
