package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/medallion-cli/internal/dashboard"
	"github.com/sells-group/medallion-cli/internal/model"
	"github.com/sells-group/medallion-cli/internal/pipeline"
)

// runOutput is what the stage commands print to stdout.
type runOutput struct {
	RunID     string              `json:"run_id"`
	Phases    []model.PhaseResult `json:"phases"`
	Products  int                 `json:"products,omitempty"`
	Stats     *model.GlobalStats  `json:"stats,omitempty"`
	Dashboard *dashboard.Summary  `json:"dashboard,omitempty"`
}

func newRunOutput(res *pipeline.Result) runOutput {
	out := runOutput{RunID: res.RunID, Phases: res.Phases, Dashboard: res.Dashboard}
	if res.Gold != nil {
		out.Products = len(res.Gold.Products)
		stats := res.Gold.Stats
		out.Stats = &stats
	}
	return out
}

// stageCommand builds a command that runs the stages from..to.
func stageCommand(use, short string, from, to pipeline.Stage) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := runStages(cmd.Context(), pipeline.Options{From: from, To: to})
			if err != nil {
				return eris.Wrap(err, use)
			}
			return printJSON(os.Stdout, newRunOutput(res))
		},
	}
}

var (
	transformCmd = stageCommand("transform", "Conform bronze files into silver tables",
		pipeline.StageIngest, pipeline.StageTransform)
	aggregateCmd = stageCommand("aggregate", "Aggregate silver tables into gold product metrics",
		pipeline.StageAggregate, pipeline.StageAggregate)
	dashboardCmd = stageCommand("dashboard", "Render the gold dashboard PNG",
		pipeline.StageVisualize, pipeline.StageVisualize)
)

var runGenerate bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every stage from bronze to dashboard",
	RunE: func(cmd *cobra.Command, _ []string) error {
		res, err := runStages(cmd.Context(), pipeline.Options{Generate: runGenerate})
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		out := newRunOutput(res)
		zap.L().Info("run complete",
			zap.String("run_id", out.RunID),
			zap.Int("products", out.Products),
		)
		return printJSON(os.Stdout, out)
	},
}

func init() {
	// An explicit dashboard request renders even when the run-time toggle is off.
	dashboardCmd.PreRun = func(*cobra.Command, []string) { cfg.Dashboard.Enabled = true }
	runCmd.Flags().BoolVar(&runGenerate, "generate", false, "write a synthetic raw drop before ingesting")
	rootCmd.AddCommand(transformCmd, aggregateCmd, dashboardCmd, runCmd)
}
