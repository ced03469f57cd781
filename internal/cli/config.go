package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AI2HU/sqlite2pg/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change the saved connection",
	Long:  `Inspect the effective settings and the saved PostgreSQL connection, or replace connection fields.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show settings and the saved connection",
	RunE:  runConfigShow,
}

var (
	configSetFlags connectionFlags
	showPassword   bool
)

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update the saved connection",
	Long: `Update fields of the saved PostgreSQL connection. Fields without a flag
keep their saved value. The record is rewritten as a whole.`,
	Example: `  sqlite2pg config set --host db.internal --password s3cret`,
	RunE:    runConfigSet,
}

func init() {
	configShowCmd.Flags().BoolVar(&showPassword, "show-password", false, "Print the password in clear text")
	addConnectionFlags(configSetCmd, &configSetFlags)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	store := config.NewConnectionStore(settings.Paths.ConnectionFile)
	conn, err := store.Load()
	if err != nil {
		return err
	}

	password := maskSensitiveData(conn.Password)
	if showPassword {
		password = conn.Password
	}

	fmt.Println(FormatHeader("🐘 Saved connection"))
	fmt.Println(FormatLabelValue("  File:    ", store.Path()))
	fmt.Println(FormatLabelValue("  Host:    ", conn.Host))
	fmt.Println(FormatLabelValue("  Port:    ", conn.Port))
	fmt.Println(FormatLabelValue("  Database:", conn.Database))
	fmt.Println(FormatLabelValue("  User:    ", conn.User))
	fmt.Println(FormatLabelValue("  Password:", password))
	fmt.Println()

	fmt.Println(FormatHeader("⚙️  Settings"))
	fmt.Println(FormatLabelValue("  File:        ", cfgFile))
	fmt.Println(FormatLabelValue("  Listen:      ", fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)))
	fmt.Println(FormatLabelValue("  Uploads:     ", settings.Paths.UploadDir))
	fmt.Println(FormatLabelValue("  Backups:     ", settings.Paths.ExportDir))
	fmt.Println(FormatLabelValue("  Journal:     ", settings.Paths.Journal))
	fmt.Println(FormatLabelValue("  Tool timeout:", settings.Tools.Timeout.String()))
	schedule := settings.Backup.Schedule
	if schedule == "" {
		schedule = "(disabled)"
	}
	fmt.Println(FormatLabelValue("  Schedule:    ", schedule))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configSetFlags.empty() {
		return fmt.Errorf("nothing to change, pass at least one of --host, --port, --database, --user, --password")
	}

	store := config.NewConnectionStore(settings.Paths.ConnectionFile)
	conn, err := store.Load()
	if err != nil {
		return err
	}

	conn = configSetFlags.apply(conn)
	if err := store.Save(conn); err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}

	fmt.Println(FormatSuccess("✅ Connection saved: " + conn.Redacted()))
	return nil
}
