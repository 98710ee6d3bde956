package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/envirowatch/envirowatch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "envirowatch",
	Short: "Environmental impact monitor for technology facilities",
	Long:  "Aggregates technology facility data from commercial POI search, federal registries, OpenStreetMap, and EPA compliance feeds, scores environmental impact, and tracks community incident reports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
