package jwtx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// RemoteKeySet keeps a KeySet in sync with a JWKS published over HTTP,
// e.g. by an external identity provider.
type RemoteKeySet struct {
	url    string
	client *http.Client
	keys   *KeySet
	logger *slog.Logger

	// minInterval rate-limits refreshes triggered by unknown kids.
	minInterval time.Duration

	mu        sync.Mutex
	lastFetch time.Time
}

func NewRemoteKeySet(url string, client *http.Client, logger *slog.Logger) *RemoteKeySet {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteKeySet{
		url:         url,
		client:      client,
		keys:        NewKeySet(),
		logger:      logger,
		minInterval: 30 * time.Second,
	}
}

// WithMinInterval overrides the minimum gap between two fetches.
func (r *RemoteKeySet) WithMinInterval(d time.Duration) *RemoteKeySet {
	r.minInterval = d
	return r
}

// Keys returns the live KeySet; its contents change on every refresh.
func (r *RemoteKeySet) Keys() *KeySet { return r.keys }

// Refresh fetches the JWKS. Calls closer together than the minimum interval
// are no-ops so a flood of forged kids cannot hammer the provider.
func (r *RemoteKeySet) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lastFetch.IsZero() && time.Since(r.lastFetch) < r.minInterval {
		return nil
	}
	r.lastFetch = time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("jwtx: fetch JWKS: unexpected status %d", resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&jwks); err != nil {
		return fmt.Errorf("jwtx: decode JWKS: %w", err)
	}
	if err := r.keys.ResetFromJWKS(jwks); err != nil {
		return err
	}

	r.logger.Debug("jwks refreshed", slog.String("url", r.url), slog.Int("keys", len(jwks.Keys)))
	return nil
}

// Run refreshes every interval until ctx is cancelled. Failures are logged
// and the previous keys stay in use.
func (r *RemoteKeySet) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Warn("jwks refresh failed", slog.String("url", r.url), slog.Any("err", err))
			}
		}
	}
}
