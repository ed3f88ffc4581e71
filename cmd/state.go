/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valpere/lingopipe/internal/store"
)

var stateDBPath string

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Manage the diff-state store",
	Long: `List, inspect, and clear the SQLite store holding per-locale diff
baselines. Removing a baseline forces a full retranslation of that locale
on the next run.`,
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored baselines",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.NewSQLite(stateDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		entries, err := db.List(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No stored baselines.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tSIZE\tUPDATED\tEXPIRES")
		for _, e := range entries {
			expires := "-"
			if !e.ExpiresAt.IsZero() {
				expires = e.ExpiresAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
				e.Key, e.Size, e.UpdatedAt.Format("2006-01-02 15:04"), expires)
		}
		return w.Flush()
	},
}

var stateStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show diff-state store statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.NewSQLite(stateDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			return fmt.Errorf("failed to get stats: %w", err)
		}

		fmt.Printf("Entries:     %d\n", stats.Entries)
		fmt.Printf("Total bytes: %d\n", stats.TotalBytes)
		return nil
	},
}

var stateDeleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a stored baseline by key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.NewSQLite(stateDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.Delete(context.Background(), args[0]); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		fmt.Printf("Deleted: %s\n", args[0])
		return nil
	},
}

var stateClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored baselines",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.NewSQLite(stateDBPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := db.Clear(context.Background()); err != nil {
			return fmt.Errorf("failed to clear store: %w", err)
		}
		fmt.Println("Diff-state store cleared.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stateCmd)

	stateCmd.PersistentFlags().StringVar(&stateDBPath, "db", "./data/lingopipe.db", "Database path")

	stateCmd.AddCommand(stateListCmd)
	stateCmd.AddCommand(stateStatsCmd)
	stateCmd.AddCommand(stateDeleteCmd)
	stateCmd.AddCommand(stateClearCmd)
}
