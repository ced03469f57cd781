package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var testFlags connectionFlags

var testConnectionCmd = &cobra.Command{
	Use:   "test-connection",
	Short: "Connect to PostgreSQL and print its version",
	Args:  cobra.NoArgs,
	RunE:  runTestConnection,
}

func init() {
	addConnectionFlags(testConnectionCmd, &testFlags)
}

func runTestConnection(cmd *cobra.Command, args []string) error {
	conn, err := app.connection(testFlags)
	if err != nil {
		return err
	}

	fmt.Printf("🔌 Connecting to %s...\n", FormatValue(conn.Redacted()))
	version, err := app.service.TestConnection(cmd.Context(), conn)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}

	fmt.Println(FormatSuccess("✅ Connection successful"))
	fmt.Println(FormatMeta(version))
	return nil
}
