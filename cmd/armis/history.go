// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List git snapshots of the data file",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().IntP("limit", "n", 20, "Maximum number of snapshots to list (0 for all)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "snapshot",
			Short: "Record a snapshot now",
			Args:  cobra.NoArgs,
			RunE:  runSnapshot,
		},
		&cobra.Command{
			Use:   "show <ref>",
			Short: "Print the items recorded at a snapshot (hash, HEAD, HEAD~N, branch or tag)",
			Args:  cobra.ExactArgs(1),
			RunE:  runHistoryShow,
		},
		&cobra.Command{
			Use:   "restore <ref>",
			Short: "Bring back items that were deleted since a snapshot",
			Args:  cobra.ExactArgs(1),
			RunE:  runHistoryRestore,
		},
	)
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")

	a, log, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	commits, err := a.Snapshots(limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HASH\tDATE\tMESSAGE")
	for _, c := range commits {
		hash := c.Hash
		if len(hash) > 8 {
			hash = hash[:8]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", hash, c.Timestamp.Local().Format("2006-01-02 15:04:05"), c.Message)
	}
	return w.Flush()
}

func runSnapshot(cmd *cobra.Command, _ []string) error {
	a, log, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	info, err := a.Snapshot("manual")
	if err != nil {
		return err
	}
	if info == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No changes since the last snapshot")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", info.Hash, info.Message)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	a, log, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	items, err := a.SnapshotItems(args[0])
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(append(data, '\n'))
	return err
}

func runHistoryRestore(cmd *cobra.Command, args []string) error {
	a, log, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a, log)

	res, err := a.Restore(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Restored %d items from %s (%d total)\n", res.Imported, args[0], res.Total)
	return nil
}
