package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// validatePort validates a TCP port, empty keeps the default
func validatePort(defaultPort string) func(string) (string, error) {
	return func(input string) (string, error) {
		input = strings.TrimSpace(input)
		if input == "" {
			return defaultPort, nil
		}
		num, err := strconv.Atoi(input)
		if err != nil {
			return "", fmt.Errorf("invalid port: %s (enter a number)", input)
		}
		if num < 1 || num > 65535 {
			return "", fmt.Errorf("port must be between 1 and 65535, got: %d", num)
		}
		return input, nil
	}
}

// validateCronExpression validates cron expression input; empty disables
// scheduled backups
func validateCronExpression(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil
	}

	if _, err := cron.ParseStandard(input); err != nil {
		return "", fmt.Errorf("invalid cron expression: %s (%v)", input, err)
	}

	return input, nil
}

// validateNumber validates numeric input within a range
func validateNumber(input string, min, max int) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return min, nil
	}

	num, err := strconv.Atoi(input)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s (enter a positive integer)", input)
	}

	if num < min || num > max {
		return 0, fmt.Errorf("number must be between %d and %d, got: %d", min, max, num)
	}

	return num, nil
}

// maskSensitiveData masks sensitive data for display
func maskSensitiveData(data string) string {
	if data == "" {
		return "(not set)"
	}
	return strings.Repeat("*", min(len(data), 8))
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}

// formatBytes formats a file size for display
func formatBytes(n int64) string {
	switch {
	case n < 1<<10:
		return fmt.Sprintf("%d B", n)
	case n < 1<<20:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	case n < 1<<30:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	}
}
