package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/medallion-cli/internal/config"
)

var (
	cfg      *config.Config
	rootFlag string
)

var rootCmd = &cobra.Command{
	Use:   "medallion-cli",
	Short: "Batch medallion pipeline for product sales and reviews",
	Long:  "Ingests raw sales and review drops, conforms them into silver tables, aggregates per-product gold metrics and renders a performance dashboard.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if rootFlag != "" {
			c.Lake.Root = rootFlag
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return cfg.Validate(cmd.Name())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "lake root directory (default from config)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
