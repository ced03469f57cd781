package cli

import (
	"bufio"
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AI2HU/sqlite2pg/internal/config"
	"github.com/AI2HU/sqlite2pg/internal/postgres"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize sqlite2pg configuration",
	Long:  `Interactive wizard to write the settings file and the saved PostgreSQL connection.`,
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(cmd.InOrStdin())

	fmt.Println(FormatHeader("🚀 Welcome to sqlite2pg setup"))
	fmt.Println(FormatDim("============================="))
	fmt.Println()

	// Check if settings already exist
	if config.Exists(cfgFile) {
		fmt.Printf("Configuration file already exists at: %s\n", cfgFile)
		confirmed, err := promptYesNo(reader, "Do you want to overwrite it? (y/N): ")
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Setup cancelled.")
			return nil
		}
	}

	s := config.DefaultSettings()

	// Server
	fmt.Println("\n🌐 Server")
	fmt.Println("---------")
	port, err := promptWithRetry(reader, fmt.Sprintf("Listen port [%d]: ", s.Server.Port), validatePort(strconv.Itoa(s.Server.Port)))
	if err != nil {
		return err
	}
	s.Server.Port, _ = strconv.Atoi(port)

	if s.Paths.ExportDir, err = promptOptional(reader, fmt.Sprintf("Backup directory [%s]: ", s.Paths.ExportDir), s.Paths.ExportDir); err != nil {
		return err
	}

	// Scheduled backups
	fmt.Println("\n🗓️  Scheduled backups")
	fmt.Println("--------------------")
	if s.Backup.Schedule, err = promptWithRetry(reader, "Cron expression (e.g. '0 3 * * *', empty to disable): ", validateCronExpression); err != nil {
		return err
	}
	if s.Backup.Schedule != "" {
		retain, err := promptWithRetry(reader, "Backups to keep (0 keeps all) [0]: ", func(input string) (string, error) {
			n, err := validateNumber(input, 0, 10000)
			return strconv.Itoa(n), err
		})
		if err != nil {
			return err
		}
		s.Backup.Retain, _ = strconv.Atoi(retain)
	}

	// PostgreSQL connection
	fmt.Println("\n🐘 PostgreSQL connection")
	fmt.Println("------------------------")
	store := config.NewConnectionStore(s.Paths.ConnectionFile)
	current, err := store.Load()
	if err != nil {
		return err
	}

	var conn config.Connection
	if conn.Host, err = promptOptional(reader, fmt.Sprintf("Host [%s]: ", current.Host), current.Host); err != nil {
		return err
	}
	if conn.Port, err = promptWithRetry(reader, fmt.Sprintf("Port [%s]: ", current.Port), validatePort(current.Port)); err != nil {
		return err
	}
	if conn.Database, err = promptOptional(reader, fmt.Sprintf("Database [%s]: ", current.Database), current.Database); err != nil {
		return err
	}
	if conn.User, err = promptOptional(reader, fmt.Sprintf("User [%s]: ", current.User), current.User); err != nil {
		return err
	}
	if conn.Password, err = promptOptional(reader, fmt.Sprintf("Password [%s]: ", maskSensitiveData(current.Password)), current.Password); err != nil {
		return err
	}

	testIt, err := promptYesNo(reader, "Test the connection now? (y/N): ")
	if err != nil {
		return err
	}
	if testIt {
		fmt.Println("\n🔌 Testing PostgreSQL connection...")
		version, err := postgres.TestConnection(context.Background(), conn)
		if err != nil {
			fmt.Println(FormatError("❌ Connection failed: " + err.Error()))
			fmt.Println("The settings will still be saved; fix them later with 'sqlite2pg config set'.")
		} else {
			fmt.Println(FormatSuccess("✅ Connected: " + version))
		}
	}

	// Save
	fmt.Println("\n💾 Saving configuration...")
	if err := s.Save(cfgFile); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	if err := store.Save(conn); err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}

	fmt.Printf("✅ Settings saved to: %s\n", cfgFile)
	fmt.Printf("✅ Connection saved to: %s\n", store.Path())

	// Summary
	fmt.Println("\n📋 Configuration Summary")
	fmt.Println("========================")
	fmt.Println(FormatLabelValue("Listen:", fmt.Sprintf("%s:%d", s.Server.Host, s.Server.Port)))
	fmt.Println(FormatLabelValue("Target:", conn.Redacted()))
	fmt.Println(FormatLabelValue("Backups:", s.Paths.ExportDir))
	if s.Backup.Schedule != "" {
		fmt.Println(FormatLabelValue("Schedule:", s.Backup.Schedule))
	}
	fmt.Println()
	fmt.Println("🎉 Setup complete!")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Validate a file: sqlite2pg validate user.db")
	fmt.Println("  2. Migrate it:      sqlite2pg migrate user.db")
	fmt.Println("  3. Or open the panel: sqlite2pg serve")

	return nil
}
