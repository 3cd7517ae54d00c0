package main

import (
	"context"
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/rotisserie/eris"

	"github.com/sells-group/medallion-cli/internal/lake"
	"github.com/sells-group/medallion-cli/internal/pipeline"
	"github.com/sells-group/medallion-cli/internal/store"
)

// defaultSQLiteFile is created under the lake root when no DSN is set.
const defaultSQLiteFile = "medallion.db"

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = filepath.Join(cfg.Lake.Root, defaultSQLiteFile)
		}
		return store.NewSQLite(dsn)
	case "postgres":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("store.database_url is required for the postgres driver")
		}
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// openStore opens and migrates the run store.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newLake() *lake.Lake {
	return lake.FromConfig(cfg.Lake)
}

// runStages runs the pipeline over the configured lake with opts.
func runStages(ctx context.Context, opts pipeline.Options) (*pipeline.Result, error) {
	l := newLake()
	if err := l.Ensure(); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	p, err := pipeline.New(cfg, l, st)
	if err != nil {
		return nil, err
	}
	return p.Run(ctx, opts)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
