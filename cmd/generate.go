package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/medallion-cli/internal/bronze"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic raw drop into the bronze layer",
	Long:  "Clears the bronze layer and writes one sales file and one review file per day, going back from today.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		gc := cfg.Generate
		if cmd.Flags().Changed("files") {
			gc.Files, _ = cmd.Flags().GetInt("files")
		}
		if cmd.Flags().Changed("seed") {
			gc.Seed, _ = cmd.Flags().GetUint64("seed")
		}
		if cmd.Flags().Changed("mixed-schemas") {
			gc.MixedSchemas, _ = cmd.Flags().GetBool("mixed-schemas")
		}

		res, err := bronze.NewGenerator(newLake(), gc).Generate(cmd.Context())
		if err != nil {
			return err
		}

		zap.L().Info("raw drop generated",
			zap.Int("sales_files", len(res.SalesFiles)),
			zap.Int("review_files", len(res.ReviewFiles)),
			zap.Uint64("seed", res.Seed),
		)
		return printJSON(os.Stdout, res)
	},
}

func init() {
	generateCmd.Flags().Int("files", 0, "number of daily files (default random 2-15)")
	generateCmd.Flags().Uint64("seed", 0, "random seed (default time based)")
	generateCmd.Flags().Bool("mixed-schemas", false, "alternate raw schema variants between files")
	rootCmd.AddCommand(generateCmd)
}
