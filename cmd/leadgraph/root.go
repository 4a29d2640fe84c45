package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/smallnest/leadgraph/config"
	"github.com/smallnest/leadgraph/log"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath string
	logLevel   string
}

var rootCmd = &cobra.Command{
	Use:   "leadgraph",
	Short: "Research, score and contact sales leads",
	Long: `leadgraph walks every new lead in a contact source through a research
and outreach workflow: web research, digital presence analysis, scoring,
outreach materials for qualified leads, and a write-back to the source.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.configPath, "config", "c", "", "Path to the YAML configuration (default: built-in defaults)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Override log_level from the configuration")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(leadsCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.Version = version
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return config.Config{}, err
	}
	if rootFlags.logLevel != "" {
		cfg.LogLevel = rootFlags.logLevel
	}
	return cfg, nil
}

// newLogger builds the console logger and makes it the package default so
// library code logging through the log package ends up in the same place.
func newLogger(out io.Writer, level string) (*log.GologLogger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := log.NewConsoleLogger(out, lvl)
	log.SetDefaultLogger(logger)
	return logger, nil
}
