package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AI2HU/sqlite2pg/internal/tools"
)

var migrateFlags connectionFlags

var migrateCmd = &cobra.Command{
	Use:   "migrate <sqlite-file>",
	Short: "Migrate a SQLite file into PostgreSQL",
	Long: `Run pgloader against a SQLite file on this machine and the saved
PostgreSQL connection. The file must end in .db, .sqlite or .sqlite3.`,
	Args: cobra.ExactArgs(1),
	RunE: runMigrate,
}

var validateCmd = &cobra.Command{
	Use:   "validate <sqlite-file>",
	Short: "Check that a file is a readable SQLite database",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	addConnectionFlags(migrateCmd, &migrateFlags)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	conn, err := app.connection(migrateFlags)
	if err != nil {
		return err
	}

	fmt.Printf("🔄 Migrating %s into %s...\n", FormatValue(args[0]), FormatValue(conn.Redacted()))
	out, err := app.service.MigrateServerFile(cmd.Context(), args[0], conn)
	if err != nil {
		return err
	}
	return printOutcome(out)
}

func runValidate(cmd *cobra.Command, args []string) error {
	report, err := app.service.ValidateFile(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("invalid SQLite file: %w", err)
	}

	fmt.Println(FormatSuccess("✅ SQLite file validated successfully"))
	fmt.Println(FormatCountLabel("Tables:", report.TableCount))
	for i, name := range report.Tables {
		fmt.Printf("  %s%d.%s %s\n", CountStyle, i+1, Reset, name)
	}
	if report.TableCount > len(report.Tables) {
		fmt.Println(FormatDim(fmt.Sprintf("  ... and %d more", report.TableCount-len(report.Tables))))
	}
	return nil
}

// printOutcome reports a tool outcome and turns anything but success into
// a non-zero exit
func printOutcome(out *tools.Outcome) error {
	switch out.Status {
	case tools.StatusSucceeded:
		fmt.Println(FormatSuccess("✅ " + out.Message))
		fmt.Println(FormatMeta("Took " + formatDuration(out.Duration)))
		return nil
	case tools.StatusTimedOut:
		fmt.Println(FormatWarning("⏱️  " + out.Message))
	default:
		fmt.Println(FormatError("❌ " + out.Message))
	}
	return errors.New(string(out.Status))
}
