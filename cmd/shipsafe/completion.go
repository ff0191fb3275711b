package shipsafe

import (
	"io"

	"github.com/spf13/cobra"
)

// completionWriters maps a shell name to its cobra script generator.
var completionWriters = map[string]func(io.Writer) error{
	"bash":       rootCmd.GenBashCompletion,
	"zsh":        rootCmd.GenZshCompletion,
	"fish":       func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
	"powershell": rootCmd.GenPowerShellCompletionWithDesc,
}

func init() {
	cmd := &cobra.Command{
		Use:       "completion <shell>",
		Short:     "Print a completion script for bash, zsh, fish or powershell",
		Long:      "Print a script that completes shipsafe commands and flags (scan targets, --fail-on levels, output formats) in your shell. Source it once or install it where your shell loads completions.",
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionWriters[args[0]](cmd.OutOrStdout())
		},
		Example: `  # current bash session only
  source <(shipsafe completion bash)

  # per-user install, no root needed
  shipsafe completion bash > ~/.local/share/bash-completion/completions/shipsafe
  shipsafe completion zsh  > ~/.zfunc/_shipsafe   # with fpath+=(~/.zfunc) in .zshrc
  shipsafe completion fish > ~/.config/fish/completions/shipsafe.fish

  # powershell: load from your profile
  shipsafe completion powershell | Out-String | Invoke-Expression`,
	}
	rootCmd.AddCommand(cmd)
}
