package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"ferry/internal/api"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show migration and thumbnail health aggregates",
		RunE: func(cmd *cobra.Command, args []string) error {
			health, err := ctx.client().Health(cmd.Context())
			if err != nil {
				return wrapDaemonError(err, ctx.address())
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), health)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderHealth(health, shouldColorize(os.Stdout)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func renderHealth(health *api.HealthResponse, colorize bool) string {
	out := fmt.Sprintf("Assets: %d total, success rate %s\n", health.Total, formatRate(health.SuccessRate))

	out += "Migration:\n"
	out += renderStateTable(health.Migration, colorize)
	out += "Thumbnails:\n"
	out += renderStateTable(health.Thumbnails, colorize)

	if len(health.PermanentlyFailed) > 0 {
		out += "Permanently failed:\n"
		rows := make([][]string, 0, len(health.PermanentlyFailed))
		for _, failure := range health.PermanentlyFailed {
			rows = append(rows, []string{
				failure.ID,
				fmt.Sprintf("%d", failure.Attempts),
				orDash(failure.LastAttemptAt),
				orDash(failure.LastError),
			})
		}
		out += renderTable(
			[]string{"ID", "Attempts", "Last Attempt", "Last Error"},
			rows,
			[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft},
		) + "\n"
	}
	return out
}

func renderStateTable(counts map[string]int, colorize bool) string {
	if len(counts) == 0 {
		return "  (none)\n"
	}
	states := make([]string, 0, len(counts))
	for state := range counts {
		states = append(states, state)
	}
	sort.Strings(states)

	rows := make([][]string, 0, len(states))
	for _, state := range states {
		rows = append(rows, []string{
			colorizeState(state, colorize),
			fmt.Sprintf("%d", counts[state]),
		})
	}
	return renderTable([]string{"State", "Assets"}, rows, []columnAlignment{alignLeft, alignRight}) + "\n"
}
