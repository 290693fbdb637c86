package main

import (
	"os"

	"github.com/brendan.keane/featcheck/internal/cli"
	"github.com/brendan.keane/featcheck/internal/config"
	"github.com/brendan.keane/featcheck/internal/errors"
	"github.com/brendan.keane/featcheck/internal/logger"
	"github.com/brendan.keane/featcheck/internal/report"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Exit codes: 1 means the IUT is not conformant, 2 means the run itself failed
const (
	exitNonConformant = 1
	exitError         = 2
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errors.PresentError(err)
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.IsType(err, errors.ErrorTypeViolation) {
		return exitNonConformant
	}
	return exitError
}

// app carries the logger configured from flags to the command handlers
type app struct {
	logger zerolog.Logger
}

// setup loads the configuration once per invocation, configures logging and
// stores the configuration on the command context for the handlers.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFlags(cmd.Flags())
	if err != nil {
		return err
	}

	a.logger = logger.SetupFromFlags(cfg.Verbose, cfg.Debug, cfg.Output)
	log.Logger = a.logger

	cmd.SetContext(config.WithConfig(cmd.Context(), cfg))
	return nil
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:   "featcheck",
		Short: "Check OGC API Features servers for core conformance",
		Long: `featcheck validates an OGC API Features implementation against the core
conformance classes. It reads the API description the server publishes, resolves
the endpoints to test and reports one outcome per check.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	config.RegisterFlags(rootCmd.PersistentFlags())

	runCmd := &cobra.Command{
		Use:   "run [iut]",
		Short: "Run every conformance check and print the report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewRunHandler(a.logger).Execute(cmd, args)
		},
	}

	pointsCmd := &cobra.Command{
		Use:   "points [iut]",
		Short: "List the endpoints a run would test for one role",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewPointsHandler(a.logger).Execute(cmd, args)
		},
	}
	cli.RegisterPointsFlags(pointsCmd.Flags())
	pointsCmd.RegisterFlagCompletionFunc("role", fixedCompletion("collections", "collection", "items"))

	mcpCmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve conformance tools over the Model Context Protocol on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.NewMCPHandler(a.logger).Execute(cmd, args)
		},
	}

	rootCmd.RegisterFlagCompletionFunc("output", fixedCompletion(report.FormatPretty, report.FormatJSON))
	rootCmd.RegisterFlagCompletionFunc("match-mode", fixedCompletion(config.DefaultMatchMode, "page-bounded"))

	rootCmd.AddCommand(runCmd, pointsCmd, mcpCmd, generateCompletionCmd())
	return rootCmd
}

func fixedCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

func generateCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate completion script",
		Long: `To load completions:

Bash:

  $ source <(featcheck completion bash)

Zsh:

  $ featcheck completion zsh > "${fpath[1]}/_featcheck"

Fish:

  $ featcheck completion fish | source

PowerShell:

  PS> featcheck completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		PersistentPreRunE:     func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}
