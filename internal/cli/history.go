package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AI2HU/sqlite2pg/internal/db/sqlite"
	"github.com/AI2HU/sqlite2pg/internal/tools"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent operations",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the operation journal",
	Long:  `The journal is a SQLite file whose schema is migrated automatically on startup.`,
}

var journalStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show journal location and schema version",
	RunE:  runJournalStatus,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", sqlite.DefaultListLimit, "Number of entries to show")
	journalCmd.AddCommand(journalStatusCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ops, err := app.service.History(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list operations: %w", err)
	}

	if len(ops) == 0 {
		fmt.Println(FormatInfo("No operations recorded yet"))
		return nil
	}

	fmt.Printf("%s (%s)\n", FormatHeader("📜 Recent operations"), FormatCount(len(ops)))
	for _, op := range ops {
		status := op.Status
		switch tools.Status(op.Status) {
		case tools.StatusSucceeded:
			status = FormatSuccess(status)
		case tools.StatusTimedOut:
			status = FormatWarning(status)
		default:
			status = FormatError(status)
		}

		fmt.Printf("%s  %-8s %s  %s\n",
			FormatMeta(op.StartedAt.Local().Format(time.DateTime)),
			op.Operation,
			status,
			FormatDim(formatDuration(time.Duration(op.DurationMs)*time.Millisecond)))

		detail := op.Source
		if op.Target != "" {
			if detail != "" {
				detail += " -> "
			}
			detail += op.Target
		}
		if detail != "" {
			fmt.Printf("    %s\n", detail)
		}
		if op.Artifact != "" {
			fmt.Printf("    %s %s\n", op.Artifact, FormatMeta(op.Checksum))
		}
		if op.Status != string(tools.StatusSucceeded) && op.Message != "" {
			fmt.Printf("    %s\n", FormatDim(op.Message))
		}
	}
	return nil
}

func runJournalStatus(cmd *cobra.Command, args []string) error {
	fmt.Println(FormatHeader("📊 Journal status"))
	fmt.Println(FormatLabelValue("File:", settings.Paths.Journal))

	version, err := app.journal.SchemaVersion()
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	fmt.Println(FormatLabelValue("Schema version:", fmt.Sprintf("%d", version)))
	return nil
}
