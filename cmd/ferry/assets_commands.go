package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ferry/internal/api"
)

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	var stateFilters []string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "assets",
		Short: "List asset records",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := ctx.client().ListAssets(cmd.Context(), stateFilters...)
			if err != nil {
				return wrapDaemonError(err, ctx.address())
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), api.AssetListResponse{Assets: list})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderAssetList(list, shouldColorize(os.Stdout)))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&stateFilters, "state", nil, "Filter by migration state (repeatable)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <source-url>",
		Short: "Register a source video for migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := ctx.client().CreateAsset(cmd.Context(), args[0])
			if err != nil {
				return wrapDaemonError(err, ctx.address())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered asset %s\n", asset.ID)
			return nil
		},
	}
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <asset-id>",
		Short: "Show one asset record in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asset, err := ctx.client().GetAsset(cmd.Context(), args[0])
			if err != nil {
				return wrapDaemonError(err, ctx.address())
			}
			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), api.AssetResponse{Asset: *asset})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderAsset(asset, shouldColorize(os.Stdout)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}

func newRequeueCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "requeue <asset-id>",
		Short: "Force an asset back to pending, bypassing backoff and the attempt cap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := ctx.client().Requeue(cmd.Context(), args[0])
			if err != nil {
				return wrapDaemonError(err, ctx.address())
			}
			if resp.DispatchID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued asset %s (dispatch %s)\n", resp.Asset.ID, resp.DispatchID)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued asset %s; dispatch deferred to the next sweep\n", resp.Asset.ID)
			}
			return nil
		},
	}
	return cmd
}

func renderAssetList(list []api.Asset, colorize bool) string {
	if len(list) == 0 {
		return "No assets found.\n"
	}
	rows := make([][]string, 0, len(list))
	for _, asset := range list {
		rows = append(rows, []string{
			asset.ID,
			colorizeState(asset.MigrationState, colorize),
			fmt.Sprintf("%d", asset.MigrationAttempts),
			colorizeState(asset.ThumbnailState, colorize),
			orDash(asset.DurableURL),
		})
	}
	return renderTable(
		[]string{"ID", "Migration", "Attempts", "Thumbnail", "Durable URL"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	) + "\n"
}

func renderAsset(asset *api.Asset, colorize bool) string {
	out := fmt.Sprintf("Asset %s\n", asset.ID)
	out += fmt.Sprintf("  Source URL:      %s\n", asset.SourceURL)
	out += fmt.Sprintf("  Migration:       %s (attempts %d)\n", colorizeState(asset.MigrationState, colorize), asset.MigrationAttempts)
	out += fmt.Sprintf("  Durable URL:     %s\n", orDash(asset.DurableURL))
	if asset.MigrationLastAttemptAt != "" {
		out += fmt.Sprintf("  Last attempt:    %s\n", asset.MigrationLastAttemptAt)
	}
	if asset.MigrationError != "" {
		out += fmt.Sprintf("  Last error:      %s\n", asset.MigrationError)
	}
	out += fmt.Sprintf("  Thumbnail:       %s (placeholder %s)\n", colorizeState(asset.ThumbnailState, colorize), yesNo(asset.ThumbnailPlaceholder))
	out += fmt.Sprintf("  Thumbnail URL:   %s\n", orDash(asset.ThumbnailURL))
	if asset.ThumbnailError != "" {
		out += fmt.Sprintf("  Thumbnail error: %s\n", asset.ThumbnailError)
	}
	if asset.CreatedAt != "" {
		out += fmt.Sprintf("  Created:         %s\n", asset.CreatedAt)
	}
	if asset.UpdatedAt != "" {
		out += fmt.Sprintf("  Updated:         %s\n", asset.UpdatedAt)
	}
	return out
}
