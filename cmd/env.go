package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/recon-cli/internal/engine"
	"github.com/sells-group/recon-cli/internal/store"
)

// reconEnv holds the ledger and engine shared by the commands.
type reconEnv struct {
	Store   store.Store
	Service *engine.Service
}

// Close releases resources held by the environment.
func (e *reconEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens and migrates the configured report ledger.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEnv validates the config for mode and builds the engine. The ledger
// is opened only when withStore is set. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string, withStore bool) (*reconEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &reconEnv{}
	if withStore {
		st, err := initStore(ctx)
		if err != nil {
			return nil, err
		}
		env.Store = st
	}

	svc, err := engine.NewFromConfig(cfg, env.Store)
	if err != nil {
		env.Close()
		return nil, eris.Wrap(err, "init engine")
	}
	env.Service = svc
	return env, nil
}
