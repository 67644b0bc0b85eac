package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/geoforest/licensing/internal/licensing/store"
	"github.com/geoforest/licensing/internal/licensing/store/drivers/sqlite"
	"github.com/geoforest/licensing/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	Store      *sqlite.Store
	Applier    *recordingApplier
	Reconciler *ClaimsReconciler

	Delegations *DelegationService
	Tenants     *TenantService
	Team        *TeamService
	Projects    *ProjectService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(t, ":memory:")
}

// newFileTestEnv runs on a database file with the DSN the service uses in
// production, so concurrent calls get separate connections.
func newFileTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(t, sqlite.FileDSN(filepath.Join(t.TempDir(), "licensing.db")))
}

func newTestEnvOn(t *testing.T, dsn string) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	now := func() time.Time { return testNow }
	applier := &recordingApplier{}
	reconciler := &ClaimsReconciler{Applier: applier}

	return &testEnv{
		Store:       st,
		Applier:     applier,
		Reconciler:  reconciler,
		Delegations: &DelegationService{Store: st, Keys: CodeGenerator{}, Now: now},
		Tenants:     &TenantService{Store: st, Claims: reconciler, Now: now},
		Team: &TeamService{
			Store:      st,
			Identities: &LocalIdentityProvider{Store: st, Hasher: cryptox.NewPasswordHasher("test-pepper")},
			Claims:     reconciler,
			Now:        now,
		},
		Projects: &ProjectService{Store: st, Now: now},
	}
}

// provision opens a license owned by actorID and returns its owner principal.
func (e *testEnv) provision(t *testing.T, actorID string) domain.Principal {
	t.Helper()

	p := domain.Principal{ActorID: actorID, Email: actorID + "@example.com"}
	tenant, err := e.Tenants.Provision(context.Background(), p, "")
	require.NoError(t, err)

	p.TenantID = tenant.ID
	p.Role = domain.RoleOwner
	return p
}

func managerOf(tenantID, actorID string) domain.Principal {
	return domain.Principal{
		ActorID:  actorID,
		TenantID: tenantID,
		Role:     domain.RoleManager,
		Email:    actorID + "@example.com",
	}
}

// stubKeys replays codes in order, repeating the last one.
type stubKeys struct {
	mu    sync.Mutex
	codes []string
	calls int
}

func (k *stubKeys) Generate() (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	i := min(k.calls, len(k.codes)-1)
	k.calls++
	return k.codes[i], nil
}

// collidingKeys returns code for the first repeats draws, then fresh codes.
type collidingKeys struct {
	mu      sync.Mutex
	code    string
	repeats int
	calls   int
}

func (k *collidingKeys) Generate() (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.calls++
	if k.calls <= k.repeats {
		return k.code, nil
	}
	return fmt.Sprintf("Z%05d", k.calls), nil
}

type recordingApplier struct {
	mu      sync.Mutex
	granted map[string]domain.Capability
	revoked []string
	failFor string
}

func (a *recordingApplier) SetClaims(_ context.Context, actorID string, c domain.Capability) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if actorID == a.failFor {
		return store.ErrNotFound
	}
	if a.granted == nil {
		a.granted = map[string]domain.Capability{}
	}
	a.granted[actorID] = c
	return nil
}

func (a *recordingApplier) RevokeClaims(_ context.Context, actorID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if actorID == a.failFor {
		return store.ErrNotFound
	}
	delete(a.granted, actorID)
	a.revoked = append(a.revoked, actorID)
	return nil
}
