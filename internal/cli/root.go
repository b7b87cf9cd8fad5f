package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/existflow/oahu/internal/config"
	"github.com/existflow/oahu/internal/logger"
)

var (
	configPath string
	logLevel   string
	logFile    string
	logConsole bool

	// cfg is loaded before every command runs
	cfg *config.Config
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "oahu",
		Short: "Oahu - local cache of Oahu projects and media",
		Long: `Oahu mirrors projects, apps, publishing accounts and media resources
from the Oahu service into a local store, keeping revisions so unchanged
records are recognized across syncs.

Run 'oahu config' first to set your credentials, then 'oahu sync'.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if configPath != "" {
				cfg, err = config.LoadFrom(configPath)
			} else {
				cfg, err = config.Load()
			}
			if err != nil {
				logger.Warn("Failed to load config, using defaults", logger.F("error", err))
				cfg = config.DefaultConfig()
			}

			// Override with CLI flags if provided
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if cmd.Flags().Changed("log-file") {
				cfg.LogFile = logFile
			}
			if cmd.Flags().Changed("log-console") {
				cfg.LogConsole = logConsole
			}

			logConfig := logger.Config{
				Level:      logger.ParseLevel(cfg.LogLevel),
				FilePath:   cfg.LogFile,
				MaxSize:    10 * 1024 * 1024, // 10MB
				MaxAge:     7,
				MaxBackups: 5,
				Console:    cfg.LogConsole,
			}
			if err := logger.Init(logConfig); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			logger.Info("Oahu started", logger.F("command", cmd.Name()))
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Info("Oahu exiting", logger.F("command", cmd.Name()))
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default ~/.oahu/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Enable console logging")

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newFindCmd())
	rootCmd.AddCommand(newFindByCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newDestroyCmd())
	rootCmd.AddCommand(newClearCmd())
	rootCmd.AddCommand(newProjectCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newAccountCmd())
	return rootCmd
}

// Execute runs the root command
func Execute() error {
	defer logger.Close()
	return newRootCmd().Execute()
}
