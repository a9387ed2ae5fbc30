package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pglocktrace/pkg/event"
)

var (
	completionShells = []string{"bash", "zsh", "fish", "powershell"}
	layoutEngines    = []string{"circo", "dot", "fdp", "neato", "osage", "sfdp", "twopi"}
)

// completionCommand prints a shell completion script. Besides commands and
// flags it completes event groups for -t, log files for -i and layout
// engines for --engine.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Print a completion script for the given shell.

  $ source <(pglocktrace completion bash)
  $ pglocktrace completion zsh > "${fpath[1]}/_pglocktrace"
  $ pglocktrace completion fish | source
  PS> pglocktrace completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             completionShells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, out := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(out)
			default:
				return root.GenBashCompletionV2(out, true)
			}
		},
	}
}

// registerLogCompletions completes the flags every log-reading command has.
func registerLogCompletions(cmd *cobra.Command) {
	_ = cmd.RegisterFlagCompletionFunc("type", completeGroups)
	_ = cmd.RegisterFlagCompletionFunc("input", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"jsonl", "json", "log"}, cobra.ShellCompDirectiveFilterFileExt
	})
}

// completeGroups offers the event groups not yet named in a -t list.
func completeGroups(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	done, last := "", toComplete
	if i := strings.LastIndex(toComplete, ","); i >= 0 {
		done, last = toComplete[:i+1], toComplete[i+1:]
	}
	var out []string
	for _, g := range event.GroupNames() {
		if strings.Contains(","+strings.ToUpper(done), ","+g+",") {
			continue
		}
		if strings.HasPrefix(g, strings.ToUpper(last)) {
			out = append(out, done+g)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
}

func completeEngines(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var out []string
	for _, e := range layoutEngines {
		if strings.HasPrefix(e, toComplete) {
			out = append(out, e)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}
