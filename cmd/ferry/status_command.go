package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"ferry/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon runtime status",
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := ctx.client().Status(cmd.Context())
			if err != nil {
				return wrapDaemonError(err, ctx.address())
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), status)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderStatus(status, shouldColorize(os.Stdout)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func renderStatus(status *api.DaemonStatus, colorize bool) string {
	running := "stopped"
	if status.Running {
		running = "running"
		if colorize {
			running = ansiGreen + running + ansiReset
		}
	} else if colorize {
		running = ansiRed + running + ansiReset
	}

	out := fmt.Sprintf("Daemon: %s (pid %d, uptime %ds)\n", running, status.PID, status.UptimeSeconds)
	out += fmt.Sprintf("Database: %s\n", status.DBPath)
	out += fmt.Sprintf("Lock file: %s\n", status.LockFilePath)

	if len(status.Stats) > 0 {
		states := make([]string, 0, len(status.Stats))
		for state := range status.Stats {
			states = append(states, state)
		}
		sort.Strings(states)

		rows := make([][]string, 0, len(states))
		for _, state := range states {
			rows = append(rows, []string{
				colorizeState(state, colorize),
				fmt.Sprintf("%d", status.Stats[state]),
			})
		}
		out += renderTable([]string{"State", "Assets"}, rows, []columnAlignment{alignLeft, alignRight}) + "\n"
	}
	return out
}
