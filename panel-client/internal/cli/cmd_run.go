package cli

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/credential"
	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/dispatch"
	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/transport"
	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/tui"
	"github.com/acidjurassic/isla-toxica-commands/pkg/log"
)

func newRunCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Open the terminal control panel (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPanel(cmd, opts.app)
		},
	}
}

func runPanel(cmd *cobra.Command, a *app) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var obs tui.Observer
	var ctl *dispatch.Controller

	mgr := a.newTransport(transport.WithStateHandler(func(open bool) {
		ctl.SetTransportReady(open)
	}))
	ctl = a.newController(
		dispatch.WithRealtime(mgr, a.cfg.Relay.Secret, a.cfg.Relay.Platform),
		dispatch.WithObserver(obs.Observe),
	)

	if err := ctl.Restore(ctx); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("stored credential rejected")
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		mgr.Run(ctx, a.locator, a.cfg.Relay.PollInterval)
	}()

	if w, err := credential.NewWatcher(a.cfg.Credential.Path); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("credential changes from other terminals will not be noticed")
	} else {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(ctx, func() {
				if err := ctl.Reload(ctx); err != nil {
					l := log.Ctx(ctx)
					l.Warn().Err(err).Msg("reloaded credential rejected")
				}
			})
		}()
	}

	p := tea.NewProgram(tui.New(ctx, ctl),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	obs.Attach(p)

	_, err := p.Run()
	cancel()
	wg.Wait()
	return err
}
