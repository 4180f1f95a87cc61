// Package dispatch gates operator actions on identity and the arm toggle,
// then delivers them over the realtime relay or the HTTP guard.
package dispatch

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/catalog"
	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/clock"
	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/credential"
	"github.com/acidjurassic/isla-toxica-commands/pkg/identity"
	"github.com/acidjurassic/isla-toxica-commands/pkg/log"
)

const DefaultDebounce = 300 * time.Millisecond

// Status strings shown to the operator.
const (
	StatusOffline       = "Bot Offline"
	StatusSafeMode      = "Safe Mode"
	StatusOnline        = "Online"
	StatusOnlineHTTP    = "Online (HTTP fallback)"
	StatusLoginRequired = "Login required"
	StatusDisarmed      = "Safe Mode: controls disabled"
	StatusLoginExpired  = "Blocked: login expired — please login again"
	StatusLoginChanged  = "Blocked: login changed, try again"
	StatusCooldown      = "Blocked: Cooldown (anti-spam)"
	StatusNetworkError  = "Network error"
)

const (
	TransportRealtime = "ws"
	TransportHTTP     = "http"
)

// Phase is either LoggedOut or Authenticated.
type Phase interface {
	isPhase()
}

type LoggedOut struct{}

type Authenticated struct {
	Identity identity.Identity
	Armed    bool
}

func (LoggedOut) isPhase()     {}
func (Authenticated) isPhase() {}

// State is a point-in-time snapshot of the controller.
type State struct {
	Authenticated  bool
	Armed          bool
	TransportReady bool
	Busy           bool
	User           string
	Category       string
	Status         string
}

// Verifier checks a credential with the identity provider.
type Verifier interface {
	Verify(ctx context.Context, token string) (*identity.Identity, error)
}

// Transport is the realtime path.
type Transport interface {
	IsOpen() bool
	Send(v any) error
}

// RealtimeMessage is what the panel sends over the relay socket.
type RealtimeMessage struct {
	ActionID string `json:"actionId"`
	User     string `json:"user"`
	UserID   string `json:"userId"`
	Platform string `json:"platform"`
	Secret   string `json:"secret"`
}

// Outcome describes one Dispatch call.
type Outcome struct {
	Accepted  bool
	Ignored   bool
	Transport string
	Status    string
	Err       error
}

type Controller struct {
	verifier  Verifier
	creds     credential.Store
	transport Transport
	guard     Guard
	clock     clock.Clock
	debounce  time.Duration
	secret    string
	platform  string
	observer  func(State)

	mu             sync.Mutex
	phase          Phase
	token          string
	busy           bool
	transportReady bool
	category       string
	status         string
}

type Option func(*Controller)

func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) {
		ctl.clock = c
	}
}

func WithDebounce(d time.Duration) Option {
	return func(ctl *Controller) {
		ctl.debounce = d
	}
}

// WithRealtime enables the relay path with the shared secret and platform
// tag sent on every message.
func WithRealtime(t Transport, secret, platform string) Option {
	return func(ctl *Controller) {
		ctl.transport = t
		ctl.secret = secret
		ctl.platform = platform
	}
}

// WithObserver registers fn to receive a snapshot after every change. fn
// runs outside the controller's lock.
func WithObserver(fn func(State)) Option {
	return func(ctl *Controller) {
		ctl.observer = fn
	}
}

func NewController(verifier Verifier, creds credential.Store, guard Guard, opts ...Option) *Controller {
	ctl := &Controller{
		verifier: verifier,
		creds:    creds,
		guard:    guard,
		clock:    clock.Real{},
		debounce: DefaultDebounce,
		platform: "twitch",
		phase:    LoggedOut{},
		status:   StatusOffline,
	}
	for _, opt := range opts {
		opt(ctl)
	}
	return ctl
}

// Restore verifies the stored credential, if any.
func (c *Controller) Restore(ctx context.Context) error {
	token, err := c.creds.Load()
	if errors.Is(err, credential.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = c.Login(ctx, token)
	return err
}

// Reload re-reads the stored credential after it changed outside this
// controller. An unchanged token is a no-op.
func (c *Controller) Reload(ctx context.Context) error {
	token, err := c.creds.Load()
	if errors.Is(err, credential.ErrNotFound) {
		token = ""
	} else if err != nil {
		return err
	}

	c.mu.Lock()
	same := token == c.token
	c.mu.Unlock()
	if same {
		return nil
	}

	if token == "" {
		c.update(func() {
			c.phase = LoggedOut{}
			c.token = ""
			c.category = ""
			c.status = c.labelLocked()
		})
		return nil
	}
	_, err = c.Login(ctx, token)
	return err
}

// Login verifies token. On success the credential is persisted and the
// controller becomes Authenticated and disarmed; on failure the credential
// is discarded and the controller is LoggedOut.
func (c *Controller) Login(ctx context.Context, token string) (*identity.Identity, error) {
	id, err := c.verifier.Verify(ctx, token)
	if err != nil {
		if cerr := c.creds.Clear(); cerr != nil {
			l := log.Ctx(ctx)
			l.Error().Err(cerr).Msg("failed to clear rejected credential")
		}
		c.update(func() {
			c.phase = LoggedOut{}
			c.token = ""
			c.status = c.labelLocked()
		})
		return nil, err
	}

	c.update(func() {
		if err := c.creds.Save(token); err != nil {
			l := log.Ctx(ctx)
			l.Error().Err(err).Msg("failed to persist credential")
		}
		c.phase = Authenticated{Identity: *id}
		c.token = token
		c.status = c.labelLocked()
	})
	return id, nil
}

// Logout forgets the credential, identity, arm toggle and selected category.
func (c *Controller) Logout() error {
	err := c.creds.Clear()
	c.update(func() {
		c.phase = LoggedOut{}
		c.token = ""
		c.category = ""
		c.status = c.labelLocked()
	})
	return err
}

// SetArmed toggles the arm switch. Only an authenticated operator can arm.
func (c *Controller) SetArmed(armed bool) error {
	var err error
	c.update(func() {
		auth, ok := c.phase.(Authenticated)
		if !ok {
			err = ErrNotAuthenticated
			return
		}
		auth.Armed = armed
		c.phase = auth
		c.status = c.labelLocked()
	})
	return err
}

// SetTransportReady records a realtime open or close. It affects the status
// label only.
func (c *Controller) SetTransportReady(open bool) {
	c.update(func() {
		c.transportReady = open
		c.status = c.labelLocked()
	})
}

func (c *Controller) SelectCategory(key string) {
	c.update(func() {
		c.category = key
	})
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Dispatch runs one action through the gate and the preferred transport.
// It never returns an error; every result lands in Outcome.Status.
func (c *Controller) Dispatch(ctx context.Context, actionID string) Outcome {
	c.mu.Lock()
	auth, ok := c.phase.(Authenticated)
	switch {
	case !ok:
		c.status = StatusLoginRequired
		c.mu.Unlock()
		c.publish()
		return Outcome{Status: StatusLoginRequired, Err: ErrNotAuthenticated}
	case !auth.Armed:
		c.status = StatusDisarmed
		c.mu.Unlock()
		c.publish()
		return Outcome{Status: StatusDisarmed, Err: ErrNotArmed}
	case c.busy:
		status := c.status
		c.mu.Unlock()
		return Outcome{Ignored: true, Status: status}
	}
	c.busy = true
	token := c.token
	c.mu.Unlock()
	c.publish()

	defer c.releaseBusy()

	label := catalog.Label(actionID)
	l := log.Ctx(ctx)

	if c.transport != nil && c.transport.IsOpen() {
		err := c.transport.Send(RealtimeMessage{
			ActionID: actionID,
			User:     auth.Identity.DisplayName,
			UserID:   auth.Identity.StableID,
			Platform: c.platform,
			Secret:   c.secret,
		})
		if err == nil {
			l.Info().Str(log.FieldActionID, actionID).Str(log.FieldTransport, TransportRealtime).Msg("action dispatched")
			return c.finish(Outcome{Accepted: true, Transport: TransportRealtime, Status: "Triggered: " + label + " (via WS)"})
		}
		l.Debug().Err(&GuardError{Kind: TransportUnavailable, Err: err}).Msg("realtime send failed, using guard")
	}

	reply, err := c.guard.Trigger(ctx, token, actionID)
	if err != nil {
		return c.fail(ctx, actionID, token, err)
	}

	user := reply.User
	if user == "" {
		user = "viewer"
	}
	l.Info().Str(log.FieldActionID, actionID).Str(log.FieldTransport, TransportHTTP).Msg("action dispatched")
	return c.finish(Outcome{Accepted: true, Transport: TransportHTTP, Status: "Triggered: " + label + " (by " + user + ")"})
}

// fail maps a guard rejection to a status. A 401 only logs out when the
// rejected token is still the current one.
func (c *Controller) fail(ctx context.Context, actionID, sentToken string, err error) Outcome {
	l := log.Ctx(ctx)
	l.Warn().Err(err).Str(log.FieldActionID, actionID).Msg("action blocked")

	var ge *GuardError
	if !errors.As(err, &ge) {
		return c.finish(Outcome{Transport: TransportHTTP, Status: StatusNetworkError, Err: err})
	}

	switch ge.Kind {
	case Unauthenticated:
		c.mu.Lock()
		current := c.token == sentToken
		if current {
			if cerr := c.creds.Clear(); cerr != nil {
				l.Error().Err(cerr).Msg("failed to clear expired credential")
			}
			c.phase = LoggedOut{}
			c.token = ""
		}
		c.mu.Unlock()
		if !current {
			l.Info().Str(log.FieldActionID, actionID).Msg("rejected credential was already replaced")
			return c.finish(Outcome{Transport: TransportHTTP, Status: StatusLoginChanged, Err: err})
		}
		return c.finish(Outcome{Transport: TransportHTTP, Status: StatusLoginExpired, Err: err})
	case RateLimited:
		return c.finish(Outcome{Transport: TransportHTTP, Status: StatusCooldown, Err: err})
	case NetworkError:
		return c.finish(Outcome{Transport: TransportHTTP, Status: StatusNetworkError, Err: err})
	default:
		msg := ge.Message
		if msg == "" {
			msg = "HTTP " + strconv.Itoa(ge.StatusCode)
		}
		return c.finish(Outcome{Transport: TransportHTTP, Status: "Blocked: " + msg, Err: err})
	}
}

func (c *Controller) finish(out Outcome) Outcome {
	c.update(func() {
		c.status = out.Status
	})
	return out
}

func (c *Controller) releaseBusy() {
	c.clock.AfterFunc(c.debounce, func() {
		c.update(func() {
			c.busy = false
		})
	})
}

func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	c.mu.Unlock()
	c.publish()
}

func (c *Controller) publish() {
	if c.observer == nil {
		return
	}
	c.observer(c.State())
}

func (c *Controller) labelLocked() string {
	auth, ok := c.phase.(Authenticated)
	switch {
	case !ok:
		return StatusOffline
	case !auth.Armed:
		return StatusSafeMode
	case c.transportReady:
		return StatusOnline
	default:
		return StatusOnlineHTTP
	}
}

func (c *Controller) snapshotLocked() State {
	s := State{
		TransportReady: c.transportReady,
		Busy:           c.busy,
		Category:       c.category,
		Status:         c.status,
	}
	if auth, ok := c.phase.(Authenticated); ok {
		s.Authenticated = true
		s.Armed = auth.Armed
		s.User = auth.Identity.Label()
	}
	return s
}
