package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/iksnae/sahayak/internal"
	"github.com/iksnae/sahayak/internal/api"
)

// app bundles everything a command needs to talk to the backend
type app struct {
	cfg     *internal.Config
	persist *internal.SQLitePersistence
	client  *api.Client
	cache   *internal.CacheManager
	store   *internal.Store
}

// loadConfig resolves configuration from .env, the config file, the
// environment and the persistent flags
func loadConfig() (*internal.Config, error) {
	if err := internal.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := internal.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyFlags(apiURL, storagePath); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	internal.LogDebug("Using backend %s, state %s", cfg.APIURL, cfg.StateDB)
	return cfg, nil
}

// openApp wires the store to the backend and restores the saved session
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	persist, err := internal.OpenPersistence(cfg.StateDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	client := api.NewClient(cfg.APIURL, api.WithTimeout(cfg.RequestTimeout))
	cache := internal.NewCacheManager(cfg.CacheDir, cfg.APIURL)
	store := internal.NewStore(client, persist, internal.Options{
		Cache:           cache,
		DefaultLanguage: cfg.Language,
	})
	client.SetTokenSource(store)

	a := &app{cfg: cfg, persist: persist, client: client, cache: cache, store: store}
	if err := store.Hydrate(ctx); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	return a, nil
}

// Close releases the store and the state database
func (a *app) Close() {
	a.store.Close()
	if err := a.persist.Close(); err != nil {
		internal.LogWarn("Failed to close state database: %v", err)
	}
}

// requireLogin fails with a hint when no session is active
func (a *app) requireLogin() (internal.User, error) {
	st := a.store.State()
	if !st.IsAuthenticated || st.User == nil {
		return internal.User{}, fmt.Errorf("%w: run 'sahayak login' first", internal.ErrNotAuthenticated)
	}
	return *st.User, nil
}

// describeError turns backend failures into messages a citizen can act on
func describeError(err error) string {
	var apiErr *internal.APIError
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch apiErr.Kind {
	case internal.FailureInvalidCredentials:
		return "invalid email or password"
	case internal.FailureUnauthorized:
		return "your session has expired, please log in again"
	case internal.FailureNetwork:
		return "could not reach the Sahayak backend, check your connection or --api-url"
	case internal.FailureNotFound:
		return "not found"
	case internal.FailureValidation:
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return "the request was rejected"
	case internal.FailureServer:
		return "the Sahayak backend had a problem, please try again later"
	default:
		return err.Error()
	}
}
