package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"LICENSING_STORE", "LICENSING_AUTH_MODE", "LICENSING_ISSUER", "LICENSING_AUDIENCE", "PORT", "HOUSEKEEPING_INTERVAL"} {
		t.Setenv(k, "")
	}

	cfg := LoadConfig()
	require.Equal(t, StoreSQLite, cfg.StoreDriver)
	require.Equal(t, AuthLocal, cfg.AuthMode)
	require.Equal(t, "geoforest-licensing", cfg.Issuer)
	require.Empty(t, cfg.Audience)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, time.Hour, cfg.HousekeepingInterval)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("LICENSING_STORE", "Mongo")
	t.Setenv("LICENSING_MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("LICENSING_AUTH_MODE", "firebase")
	t.Setenv("LICENSING_ISSUER", "")
	t.Setenv("LICENSING_GCP_PROJECT", "geoforest-prod")
	t.Setenv("LICENSING_AUDIENCE", " geoforest-prod , ,mobile")
	t.Setenv("HOUSEKEEPING_INTERVAL", "15")
	t.Setenv("PORT", "not-a-port")

	cfg := LoadConfig()
	require.Equal(t, StoreMongo, cfg.StoreDriver)
	require.Equal(t, "https://securetoken.google.com/geoforest-prod", cfg.Issuer)
	require.Equal(t, []string{"geoforest-prod", "mobile"}, cfg.Audience)
	require.Equal(t, 15*time.Minute, cfg.HousekeepingInterval)
	require.Equal(t, 8080, cfg.Port)
	require.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"unknown store", Config{StoreDriver: "redis", AuthMode: AuthLocal}, "unknown LICENSING_STORE"},
		{"mongo without uri", Config{StoreDriver: StoreMongo, AuthMode: AuthLocal}, "LICENSING_MONGO_URI"},
		{"firestore without project", Config{StoreDriver: StoreFirestore, AuthMode: AuthLocal}, "LICENSING_GCP_PROJECT"},
		{"firebase without project", Config{StoreDriver: StoreSQLite, AuthMode: AuthFirebase}, "LICENSING_GCP_PROJECT"},
		{"jwks without url", Config{StoreDriver: StoreSQLite, AuthMode: AuthJWKS}, "LICENSING_JWKS_URL"},
		{"unknown auth", Config{StoreDriver: StoreSQLite, AuthMode: "saml"}, "unknown LICENSING_AUTH_MODE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorContains(t, tt.cfg.Validate(), tt.want)
		})
	}
}
