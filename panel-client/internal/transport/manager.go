// Package transport owns the panel's realtime connection to the relay:
// connecting, reconnecting with backoff, and sending action messages.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/clock"
	"github.com/acidjurassic/isla-toxica-commands/pkg/log"
)

// ErrNotOpen is returned by Send when no connection is open.
var ErrNotOpen = errors.New("realtime transport is not open")

type State int

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Resolver yields the current relay endpoint.
type Resolver interface {
	Resolve(ctx context.Context) string
}

// Manager keeps at most one connection to the current relay endpoint and
// reconnects after drops on a cancellable backoff timer.
type Manager struct {
	dialer      Dialer
	clock       clock.Clock
	backoff     *Backoff
	dialTimeout time.Duration
	onState     func(open bool)

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	endpoint string
	conn     Conn
	state    State
	timer    clock.Timer
	gen      uint64
	attempts int
	closed   bool
}

type Option func(*Manager)

func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		m.clock = c
	}
}

func WithBackoff(b *Backoff) Option {
	return func(m *Manager) {
		m.backoff = b
	}
}

func WithDialTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.dialTimeout = d
	}
}

// WithStateHandler registers fn to be told when the connection opens or
// closes. fn runs outside the manager's lock.
func WithStateHandler(fn func(open bool)) Option {
	return func(m *Manager) {
		m.onState = fn
	}
}

func NewManager(dialer Dialer, opts ...Option) *Manager {
	m := &Manager{
		dialer:      dialer,
		clock:       clock.Real{},
		backoff:     NewBackoff(DefaultBackoffInitial, DefaultBackoffMax),
		dialTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// Connect points the manager at endpoint. It is a no-op when endpoint is
// already the current one and the connection is open or being opened.
func (m *Manager) Connect(endpoint string) {
	m.mu.Lock()
	if m.closed || endpoint == "" {
		m.mu.Unlock()
		return
	}
	if endpoint == m.endpoint && (m.state == StateOpen || m.state == StateConnecting) {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.connect(endpoint)
}

func (m *Manager) connect(endpoint string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.stopTimerLocked()
	wasOpen := m.dropConnLocked()
	m.endpoint = endpoint
	m.gen++
	gen := m.gen
	m.state = StateConnecting
	m.attempts++
	m.mu.Unlock()

	if wasOpen {
		m.notify(false)
	}

	dctx, cancel := context.WithTimeout(m.ctx, m.dialTimeout)
	conn, err := m.dialer.Dial(dctx, endpoint)
	cancel()

	m.mu.Lock()
	if m.closed || gen != m.gen {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	l := log.L()
	if err != nil {
		m.state = StateClosed
		delay := m.scheduleLocked(gen)
		m.mu.Unlock()
		l.Warn().Err(err).Str(log.FieldEndpoint, endpoint).Dur("retry_in", delay).Msg("relay connect failed")
		return
	}
	m.conn = conn
	m.state = StateOpen
	m.backoff.Reset()
	m.mu.Unlock()

	l.Info().Str(log.FieldEndpoint, endpoint).Msg("relay connected")
	m.notify(true)
	go m.readLoop(gen, conn)
}

func (m *Manager) readLoop(gen uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			m.handleDrop(gen, err)
			return
		}
		logInbound(data)
	}
}

func (m *Manager) handleDrop(gen uint64, cause error) {
	m.mu.Lock()
	if m.closed || gen != m.gen || m.state != StateOpen {
		m.mu.Unlock()
		return
	}
	m.dropConnLocked()
	m.state = StateClosed
	delay := m.scheduleLocked(gen)
	endpoint := m.endpoint
	m.mu.Unlock()

	l := log.L()
	l.Warn().Err(cause).Str(log.FieldEndpoint, endpoint).Dur("retry_in", delay).Msg("relay connection closed")
	m.notify(false)
}

func (m *Manager) scheduleLocked(gen uint64) time.Duration {
	m.stopTimerLocked()
	delay := m.backoff.Next()
	m.timer = m.clock.AfterFunc(delay, func() {
		m.mu.Lock()
		if m.closed || gen != m.gen {
			m.mu.Unlock()
			return
		}
		endpoint := m.endpoint
		m.timer = nil
		m.mu.Unlock()
		m.connect(endpoint)
	})
	return delay
}

func (m *Manager) stopTimerLocked() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

// dropConnLocked closes the current connection and reports whether one
// was open.
func (m *Manager) dropConnLocked() bool {
	if m.conn == nil {
		return false
	}
	m.conn.Close()
	m.conn = nil
	open := m.state == StateOpen
	m.state = StateClosed
	return open
}

// Send writes v as one JSON message on the open connection.
func (m *Manager) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if m.state != StateOpen || m.conn == nil {
		m.mu.Unlock()
		return ErrNotOpen
	}
	conn, gen := m.conn, m.gen
	err = conn.WriteMessage(data)
	m.mu.Unlock()

	if err != nil {
		m.handleDrop(gen, err)
		return err
	}
	return nil
}

func (m *Manager) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateOpen
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) Endpoint() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.endpoint
}

// Attempts returns how many connection attempts have been made.
func (m *Manager) Attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempts
}

// Run resolves the relay endpoint now and every interval after, following
// it with Connect, until ctx is done. The manager is closed on return.
func (m *Manager) Run(ctx context.Context, r Resolver, interval time.Duration) error {
	defer m.Close()

	m.Connect(r.Resolve(ctx))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Connect(r.Resolve(ctx))
		}
	}
}

// Close cancels any pending reconnect and closes the connection.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.stopTimerLocked()
	wasOpen := m.dropConnLocked()
	m.gen++
	m.mu.Unlock()

	m.cancel()
	if wasOpen {
		m.notify(false)
	}
}

func (m *Manager) notify(open bool) {
	if m.onState != nil {
		m.onState(open)
	}
}

func logInbound(data []byte) {
	l := log.L()
	if json.Valid(data) {
		l.Debug().RawJSON("message", data).Msg("relay message")
		return
	}
	l.Debug().Str("raw", string(data)).Msg("relay message")
}
