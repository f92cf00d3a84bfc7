package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"salesdash/internal/config"
	"salesdash/internal/dashboard"
	"salesdash/internal/engine"
	"salesdash/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "salesdash",
	Short: "Retail sales dashboard backend",
	Long: `salesdash loads a spreadsheet of retail transactions, detects which
columns hold sales, quantity, city, rating, product, payment and date, and
serves filterable KPIs and chart tables over HTTP or as a one-shot report.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfigAndLogger,
}

// flagKeys maps command-line flags onto config keys.
var flagKeys = map[string]string{
	"addr":      "server.addr",
	"log-level": "log.level",
	"top-n":     "engine.top_n",
}

// initConfigAndLogger loads configuration and builds the logger shared by
// every subcommand.
func initConfigAndLogger(cmd *cobra.Command, args []string) error {
	v := viper.New()
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	c, err := config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	l, err := logging.New(c.Log.Level, c.Log.Format)
	if err != nil {
		return err
	}
	cfg, logger = c, l
	return nil
}

func serviceOptions(c *config.Config) dashboard.Options {
	return dashboard.Options{
		Probe: engine.ProbeOptions{
			SampleRows:       c.Engine.SampleRows,
			CategoricalLimit: c.Engine.CategoricalLimit,
		},
		MaxCategoricalFilters: c.Engine.MaxCategoricalFilters,
		TopN:                  c.Engine.TopN,
		MaxEntries:            c.Cache.MaxEntries,
	}
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (yaml, toml or json); SALESDASH_* env vars override it")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(reportCmd)
}
