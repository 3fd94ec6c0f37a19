// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"fmt"

	"github.com/dotandev/wasmprune/internal/db"
	"github.com/spf13/cobra"
)

var (
	historyErrorFlag string
	historyHashFlag  string
	historyLimitFlag int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Search through past dead-code-elimination runs",
	Long: `Search through the local history of wasmprune run invocations to find
past modules, how much they shrank, or which ones failed.

You can search by:
  - Module hash (exact match, as recorded at the time of the run)
  - Error message patterns (regex)

Results are ordered by timestamp (most recent first) and limited by --limit.`,
	Example: `  # Show the most recent runs
  wasmprune history

  # Find runs of a specific module
  wasmprune history --hash 3a7f...e21c

  # Find failed runs matching an error pattern
  wasmprune history --error "decoding module"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := db.InitDB()
		if err != nil {
			return fmt.Errorf("failed to open run history database: %w", err)
		}
		defer store.Close()

		params := db.SearchParams{
			ModuleHash: historyHashFlag,
			ErrorRegex: historyErrorFlag,
			Limit:      historyLimitFlag,
		}

		runs, err := store.SearchRuns(params)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}

		out := cmd.OutOrStdout()

		if len(runs) == 0 {
			fmt.Fprintln(out, "No matching runs found.")
			return nil
		}

		fmt.Fprintf(out, "Found %d matching runs:\n", len(runs))
		for _, r := range runs {
			fmt.Fprintln(out, "--------------------------------------------------")
			fmt.Fprintf(out, "ID: %d\n", r.ID)
			fmt.Fprintf(out, "Time: %s\n", r.Timestamp.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(out, "Module: %s (%s)\n", r.ModulePath, r.ModuleHash)
			fmt.Fprintf(out, "Functions: %d -> %d (removed %d)\n", r.FunctionsBefore, r.FunctionsAfter, r.FunctionsRemoved())
			fmt.Fprintf(out, "Bytes: %d -> %d (removed %d)\n", r.BytesBefore, r.BytesAfter, r.BytesRemoved())
			fmt.Fprintf(out, "Status: %s\n", r.Status)
			if r.ErrorMsg != "" {
				fmt.Fprintf(out, "Error: %s\n", r.ErrorMsg)
			}
		}
		fmt.Fprintln(out, "--------------------------------------------------")

		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyErrorFlag, "error", "", "Regex pattern to match error messages")
	historyCmd.Flags().StringVar(&historyHashFlag, "hash", "", "Module hash to search for")
	historyCmd.Flags().IntVar(&historyLimitFlag, "limit", 10, "Maximum number of results to return")

	rootCmd.AddCommand(historyCmd)
}
