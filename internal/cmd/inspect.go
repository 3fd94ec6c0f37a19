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
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/dotandev/wasmprune/internal/moduleio"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <module> <func>",
	Short: "Print a function's decoded expression tree",
	Long: `Inspect decodes a module and prints one function's expression tree in
its textual form, without running either DCE pass. Useful for checking
what a binary module actually decoded to, or for comparing a tree before
and after pruning.

Example:
  wasmprune inspect ./module.wasm add`,
	Args: cobra.ExactArgs(2),
	RunE: inspectExec,
}

func inspectExec(cmd *cobra.Command, args []string) error {
	path, funcName := args[0], args[1]

	mod, _, err := moduleio.Load(path)
	if err != nil {
		return fmt.Errorf("reading module: %w", err)
	}

	for _, fn := range mod.Functions {
		if fn.Name == funcName {
			tree := moduleio.RenderText(&moduleio.Module{Functions: []moduleio.Function{fn}})
			printTree(cmd, funcName, tree)
			return nil
		}
	}
	return fmt.Errorf("function %q not found in %s", funcName, path)
}

// printTree prints a decoded function tree, colorizing the function name
// heading when stdout is a terminal that isn't asking for plain output.
func printTree(cmd *cobra.Command, funcName, tree string) {
	if useColor() {
		heading := color.New(color.FgCyan, color.Bold).Sprintf("func %s", funcName)
		fmt.Fprintln(cmd.OutOrStdout(), heading)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "func %s\n", funcName)
	}
	fmt.Fprintln(cmd.OutOrStdout(), tree)
}

func useColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
