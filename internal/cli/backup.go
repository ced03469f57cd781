package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AI2HU/sqlite2pg/internal/services"
)

var (
	backupFlags  connectionFlags
	restoreFlags connectionFlags
	prune        bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Dump the PostgreSQL database with pg_dump",
	Long: `Write a plain SQL dump of the saved connection's database into the
backup directory as backup_<database>_<unix-time>.sql.`,
	Args: cobra.NoArgs,
	RunE: runBackup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <sql-file>",
	Short: "Replay a SQL dump with psql",
	Args:  cobra.ExactArgs(1),
	RunE:  runRestore,
}

func init() {
	addConnectionFlags(backupCmd, &backupFlags)
	backupCmd.Flags().BoolVar(&prune, "prune", false, "Apply backup.retain to the backup directory afterwards")
	addConnectionFlags(restoreCmd, &restoreFlags)
}

func runBackup(cmd *cobra.Command, args []string) error {
	conn, err := app.connection(backupFlags)
	if err != nil {
		return err
	}

	fmt.Printf("💾 Dumping %s...\n", FormatValue(conn.Redacted()))
	artifact, err := app.service.Backup(cmd.Context(), conn)
	if err != nil {
		var opErr *services.OperationError
		if errors.As(err, &opErr) {
			return printOutcome(opErr.Outcome)
		}
		return err
	}

	fmt.Println(FormatSuccess("✅ Backup completed successfully"))
	fmt.Println(FormatLabelValue("File:    ", artifact.Path))
	fmt.Println(FormatLabelValue("Size:    ", formatBytes(artifact.Size)))
	fmt.Println(FormatLabelValue("Checksum:", artifact.Checksum))

	if prune {
		removed, err := app.service.PruneBackups(settings.Backup.Retain)
		if err != nil {
			return fmt.Errorf("failed to prune backups: %w", err)
		}
		for _, path := range removed {
			fmt.Println(FormatDim("  removed " + path))
		}
	}
	return nil
}

func runRestore(cmd *cobra.Command, args []string) error {
	conn, err := app.connection(restoreFlags)
	if err != nil {
		return err
	}

	fmt.Printf("♻️  Restoring %s into %s...\n", FormatValue(args[0]), FormatValue(conn.Redacted()))
	return printOutcome(app.service.RestoreFile(cmd.Context(), args[0], conn))
}
