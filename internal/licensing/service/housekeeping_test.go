package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/geoforest/licensing/internal/licensing/domain"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTrialSweeperSweep(t *testing.T) {
	e := newTestEnv(t)
	owner := e.provision(t, "tenant-a")
	s := NewTrialSweeper(e.Tenants, discardLogger(), time.Hour)

	n, err := s.Sweep(t.Context())
	require.NoError(t, err)
	require.Zero(t, n, "fresh trial must survive")

	e.Tenants.Now = func() time.Time { return testNow.Add(30 * 24 * time.Hour) }

	n, err = s.Sweep(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	tenant, err := e.Tenants.Get(t.Context(), owner)
	require.NoError(t, err)
	require.Equal(t, domain.SubscriptionExpired, tenant.SubscriptionStatus)
}

func TestTrialSweeperRunSweepsOnStart(t *testing.T) {
	e := newTestEnv(t)
	owner := e.provision(t, "tenant-a")
	e.Tenants.Now = func() time.Time { return testNow.Add(30 * 24 * time.Hour) }

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		NewTrialSweeper(e.Tenants, discardLogger(), time.Hour).Run(ctx)
	}()

	require.Eventually(t, func() bool {
		tenant, err := e.Tenants.Get(t.Context(), owner)
		return err == nil && tenant.SubscriptionStatus == domain.SubscriptionExpired
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestTrialSweeperDefaultsInterval(t *testing.T) {
	require.Equal(t, time.Hour, NewTrialSweeper(nil, slog.Default(), 0).Interval)
}
