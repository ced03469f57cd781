package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AI2HU/sqlite2pg/internal/config"
)

// promptWithRetry prompts the user for input and retries on invalid input
func promptWithRetry(reader *bufio.Reader, prompt string, validator func(string) (string, error)) (string, error) {
	for {
		fmt.Print(prompt)
		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			return "", fmt.Errorf("input closed: %w", err)
		}
		input = strings.TrimSpace(input)

		result, verr := validator(input)
		if verr == nil {
			return result, nil
		}

		fmt.Printf("❌ %s\n\n", verr.Error())
	}
}

// promptYesNo prompts for yes/no input with retry
func promptYesNo(reader *bufio.Reader, prompt string) (bool, error) {
	result, err := promptWithRetry(reader, prompt, func(input string) (string, error) {
		lower := strings.ToLower(input)
		if lower == "y" || lower == "yes" || lower == "n" || lower == "no" || lower == "" {
			return lower, nil
		}
		return "", fmt.Errorf("invalid input: %s (enter y/yes/n/no or press Enter for no)", input)
	})
	if err != nil {
		return false, err
	}

	return result == "y" || result == "yes", nil
}

// promptOptional prompts for optional input with default value
func promptOptional(reader *bufio.Reader, prompt string, defaultValue string) (string, error) {
	return promptWithRetry(reader, prompt, func(input string) (string, error) {
		if input == "" {
			return defaultValue, nil
		}
		return input, nil
	})
}

// connectionFlags overrides fields of the saved connection for one command
type connectionFlags struct {
	host, port, database, user, password string
}

func addConnectionFlags(cmd *cobra.Command, f *connectionFlags) {
	cmd.Flags().StringVar(&f.host, "host", "", "PostgreSQL host (default from the saved connection)")
	cmd.Flags().StringVar(&f.port, "port", "", "PostgreSQL port")
	cmd.Flags().StringVar(&f.database, "database", "", "PostgreSQL database")
	cmd.Flags().StringVar(&f.user, "user", "", "PostgreSQL user")
	cmd.Flags().StringVar(&f.password, "password", "", "PostgreSQL password")
}

// apply replaces the fields whose flag was set
func (f connectionFlags) apply(conn config.Connection) config.Connection {
	if f.host != "" {
		conn.Host = f.host
	}
	if f.port != "" {
		conn.Port = f.port
	}
	if f.database != "" {
		conn.Database = f.database
	}
	if f.user != "" {
		conn.User = f.user
	}
	if f.password != "" {
		conn.Password = f.password
	}
	return conn
}

func (f connectionFlags) empty() bool {
	return f == connectionFlags{}
}
