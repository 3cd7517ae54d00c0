package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/medallion-cli/internal/db"
	"github.com/sells-group/medallion-cli/internal/model"
	"github.com/sells-group/medallion-cli/internal/resilience"
	"github.com/sells-group/medallion-cli/internal/store"
	"github.com/sells-group/medallion-cli/internal/warehouse"
)

var publishRunID string

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish the gold layer to the Postgres warehouse",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		runID := publishRunID
		if runID == "" {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			runID, err = latestRunID(ctx, st, cfg.Lake.Root)
			st.Close() //nolint:errcheck
			if err != nil {
				return err
			}
		}

		pool, err := db.Open(ctx, cfg.Warehouse.DatabaseURL, nil)
		if err != nil {
			return eris.Wrap(err, "publish: open warehouse")
		}
		defer pool.Close()

		pub := warehouse.New(pool, cfg.Warehouse.Schema)
		if err := pub.Migrate(ctx); err != nil {
			return err
		}

		// Publish is one transaction, so a failed attempt leaves nothing behind.
		var res *warehouse.PublishResult
		err = resilience.Do(ctx, publishRetryConfig(), func(ctx context.Context) error {
			var perr error
			res, perr = pub.PublishLake(ctx, newLake(), runID)
			return perr
		})
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, res)
	},
}

func publishRetryConfig() resilience.RetryConfig {
	rc := resilience.DefaultRetryConfig()
	if cfg.Warehouse.RetryAttempts > 0 {
		rc.MaxAttempts = cfg.Warehouse.RetryAttempts
	}
	if cfg.Warehouse.RetryBackoff > 0 {
		rc.InitialBackoff = time.Duration(cfg.Warehouse.RetryBackoff) * time.Millisecond
	}
	rc.OnRetry = resilience.RetryLogger("warehouse", "publish")
	return rc
}

// latestRunID returns the newest complete run of root, or a fresh id when
// the gold layer was built outside of a recorded run.
func latestRunID(ctx context.Context, st store.Store, root string) (string, error) {
	runs, err := st.ListRuns(ctx, store.RunFilter{Status: model.RunStatusComplete, LakeRoot: root, Limit: 1})
	if err != nil {
		return "", eris.Wrap(err, "publish: find latest run")
	}
	if len(runs) == 0 {
		return uuid.New().String(), nil
	}
	return runs[0].ID, nil
}

func init() {
	publishCmd.Flags().StringVar(&publishRunID, "run-id", "", "run id recorded with the published stats (default latest complete run)")
	rootCmd.AddCommand(publishCmd)
}
