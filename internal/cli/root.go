package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AI2HU/sqlite2pg/internal/config"
	"github.com/AI2HU/sqlite2pg/internal/logger"
)

var (
	cfgFile  string
	logLevel string
	settings *config.Settings
	app      *application
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "sqlite2pg",
	Short: "Move SQLite databases into PostgreSQL",
	Long: `sqlite2pg is a control panel around pgloader, pg_dump and psql.

It migrates uploaded or server-local SQLite files into PostgreSQL, dumps and
restores PostgreSQL databases, and keeps one saved connection record. Use
'sqlite2pg serve' for the browser panel or the other commands directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile == "" {
			cfgFile = config.GetSettingsPath()
		}

		// Skip wiring for the init command itself
		if cmd.Name() == "init" {
			logger.Configure(logger.Options{Level: logger.ParseLogLevel(logLevel), Output: os.Stderr})
			return nil
		}

		var err error
		settings, err = config.LoadSettings(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := settings.Log.Level
		if logLevel != "" {
			level = logLevel
		}
		logger.Configure(logger.Options{
			Level:  logger.ParseLogLevel(level),
			Format: settings.Log.Format,
			File:   settings.Log.File,
			Output: os.Stderr,
		})

		// config commands only touch files
		if cmd.Parent() != nil && cmd.Parent().Name() == "config" {
			return nil
		}

		app, err = newApplication(cmd.Context(), settings)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if app != nil {
			app.Close(context.Background())
			app = nil
		}
		_ = logger.Sync()
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "settings file (default is ./sqlite2pg.yaml or $SQLITE2PG_CONFIG_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warning, error)")

	// Disable completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(testConnectionCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(journalCmd)
}
