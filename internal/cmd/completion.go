// Copyright 2025 dotandev
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCmd represents the completion command
var completionCmd = &cobra.Command{
	Use:     "completion [bash|zsh|fish|powershell]",
	GroupID: "utility",
	Short:   "Generate completion script for your shell",
	Long: `To load completions:

Bash:

  $ source <(wasmprune completion bash)

  # To load completions for each session, add to your .bashrc:
  # (on macOS, you may need to install bash-completion)
  $ wasmprune completion bash > /usr/local/etc/bash_completion.d/wasmprune

Zsh:

  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:

  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, add to your .zshrc:
  $ source <(wasmprune completion zsh)

  # Alternatively, you can add the completion script to your fpath:
  $ wasmprune completion zsh > "${fpath[1]}/_wasmprune"

Fish:

  $ wasmprune completion fish | source

  # To load completions for each session, add to your fish configuration file:
  $ wasmprune completion fish > ~/.config/fish/completions/wasmprune.fish

PowerShell:

  PS> wasmprune completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> wasmprune completion powershell > wasmprune.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.ExactValidArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		switch args[0] {
		case "bash":
			cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
	},
}

func init() {
	rootCmd.AddGroup(&cobra.Group{ID: "utility", Title: "Utility Commands:"})
	rootCmd.AddCommand(completionCmd)
}
