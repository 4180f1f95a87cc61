// Package cli is the panel's cobra command tree.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/config"
	"github.com/acidjurassic/isla-toxica-commands/pkg/log"
)

type rootOpts struct {
	configPath string
	app        *app
}

// NewRootCmd creates the root command. With no subcommand it runs the
// terminal panel.
func NewRootCmd() *cobra.Command {
	opts := &rootOpts{}

	rootCmd := &cobra.Command{
		Use:   "panel",
		Short: "Isla Toxica stream command panel",
		Long: `panel - stream command panel

Log in with your Twitch account, arm the controls, and fire stream actions.
Actions go over the realtime relay when it is reachable and through the
trigger guard otherwise.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if err := log.Init(cfg.Log); err != nil {
				return err
			}
			opts.app = newApp(cfg)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPanel(cmd, opts.app)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "directory containing panel.yaml (default: user config dir)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newRunCmd(opts),
		newLoginCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newTriggerCmd(opts),
		newCatalogCmd(),
		newRelayCmd(opts),
	)

	return rootCmd
}

// Execute runs the command tree with the given context and writers.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.ExecuteContext(ctx)
}
