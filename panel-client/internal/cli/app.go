package cli

import (
	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/config"
	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/credential"
	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/dispatch"
	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/locator"
	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/transport"
	"github.com/acidjurassic/isla-toxica-commands/pkg/identity"
)

// app holds the collaborators every command is built from.
type app struct {
	cfg      *config.Config
	creds    credential.Store
	verifier *identity.Verifier
	locator  *locator.Locator
	guard    dispatch.Guard
}

func newApp(cfg *config.Config) *app {
	var verifierOpts []identity.VerifierOption
	if cfg.Twitch.ClientID != "" {
		verifierOpts = append(verifierOpts, identity.WithExpectedClientID(cfg.Twitch.ClientID))
	}
	return &app{
		cfg:      cfg,
		creds:    credential.NewFileStore(cfg.Credential.Path),
		verifier: identity.NewVerifier(cfg.Twitch.ValidateURL, verifierOpts...),
		locator:  locator.New(cfg.Relay.DescriptorURL, cfg.Relay.FallbackURL),
		guard:    dispatch.NewHTTPGuard(cfg.Guard.BaseURL, cfg.Guard.Timeout),
	}
}

func (a *app) newTransport(opts ...transport.Option) *transport.Manager {
	tc := a.cfg.Transport
	opts = append([]transport.Option{
		transport.WithBackoff(transport.NewBackoff(tc.BackoffInitial, tc.BackoffMax)),
		transport.WithDialTimeout(tc.DialTimeout),
	}, opts...)
	return transport.NewManager(transport.NewWebsocketDialer(tc.DialTimeout), opts...)
}

func (a *app) newController(opts ...dispatch.Option) *dispatch.Controller {
	opts = append([]dispatch.Option{dispatch.WithDebounce(a.cfg.Dispatch.Debounce)}, opts...)
	return dispatch.NewController(a.verifier, a.creds, a.guard, opts...)
}
