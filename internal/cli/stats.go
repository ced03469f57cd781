package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-operation statistics from the journal",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	result, err := app.stats.GetOperationStats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	if len(result) == 0 {
		fmt.Println(FormatInfo("No operations recorded yet"))
		return nil
	}

	fmt.Println(FormatHeader("📊 Operation statistics"))
	fmt.Println(FormatDim("========================"))
	for _, st := range result {
		statuses := make([]string, 0, len(st.StatusCounts))
		for status, count := range st.StatusCounts {
			statuses = append(statuses, fmt.Sprintf("%s=%d", status, count))
		}
		sort.Strings(statuses)

		fmt.Printf("%s %s  %s\n", FormatValue(fmt.Sprintf("%-8s", st.Operation)), FormatCount(st.Total), strings.Join(statuses, " "))
		fmt.Printf("    %s", FormatMeta("avg "+formatDuration(time.Duration(st.AvgDurationMs*float64(time.Millisecond)))))
		if st.LastRun != nil {
			fmt.Printf("  %s", FormatMeta("last "+st.LastRun.StartedAt.Local().Format(time.DateTime)+" ("+st.LastRun.Status+")"))
		}
		fmt.Println()
	}
	return nil
}
