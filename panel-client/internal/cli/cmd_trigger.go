package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/catalog"
	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/dispatch"
)

func newTriggerCmd(opts *rootOpts) *cobra.Command {
	var useRealtime bool

	cmd := &cobra.Command{
		Use:   "trigger <actionId>",
		Short: "Fire one action and print the resulting status",
		Long: `Fire one action with the stored credential.

Uses the trigger guard by default. With --ws the relay is resolved first and
the realtime socket is preferred when it opens.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.app
			ctx := cmd.Context()
			actionID := strings.TrimSpace(args[0])

			var ctlOpts []dispatch.Option
			if useRealtime {
				mgr := a.newTransport()
				defer mgr.Close()
				mgr.Connect(a.locator.Resolve(ctx))
				ctlOpts = append(ctlOpts, dispatch.WithRealtime(mgr, a.cfg.Relay.Secret, a.cfg.Relay.Platform))
			}
			ctl := a.newController(ctlOpts...)

			if err := ctl.Restore(ctx); err != nil {
				return fmt.Errorf("stored credential rejected, login again: %w", err)
			}
			// one-shot dispatch arms for its own duration only
			if err := ctl.SetArmed(true); err != nil && !errors.Is(err, dispatch.ErrNotAuthenticated) {
				return err
			}

			out := ctl.Dispatch(ctx, actionID)
			fmt.Fprintln(cmd.OutOrStdout(), out.Status)
			if !out.Accepted {
				return errors.New(out.Status)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&useRealtime, "ws", false, "prefer the realtime relay socket")
	return cmd
}

func newCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List the available actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range catalog.Categories() {
				fmt.Fprintf(w, "%s\n", c.Title)
				for _, it := range c.Items {
					fmt.Fprintf(w, "  %s\t%s\n", it.ID, it.Label)
				}
			}
			return w.Flush()
		},
	}
}

func newRelayCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Resolve the relay descriptor and print the endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), opts.app.locator.Resolve(cmd.Context()))
			return nil
		},
	}
}
