package tui

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/credential"
	"github.com/acidjurassic/isla-toxica-commands/panel-client/internal/dispatch"
	"github.com/acidjurassic/isla-toxica-commands/pkg/identity"
	"github.com/acidjurassic/isla-toxica-commands/pkg/response"
)

type fakePanel struct {
	mu         sync.Mutex
	state      dispatch.State
	dispatched []string
}

func (p *fakePanel) State() dispatch.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *fakePanel) Dispatch(_ context.Context, actionID string) dispatch.Outcome {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dispatched = append(p.dispatched, actionID)
	p.state.Status = "Triggered: " + actionID
	return dispatch.Outcome{Accepted: true, Status: p.state.Status}
}

func (p *fakePanel) SetArmed(armed bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.state.Authenticated {
		return dispatch.ErrNotAuthenticated
	}
	p.state.Armed = armed
	return nil
}

func (p *fakePanel) Logout() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = dispatch.State{Status: dispatch.StatusOffline}
	return nil
}

func (p *fakePanel) SelectCategory(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Category = key
}

func press(t *testing.T, m Model, keys ...string) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, c := m.Update(msg)
		m = next.(Model)
		cmd = c
	}
	return m, cmd
}

// settle runs cmd and feeds its message back, the way the event loop does.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next.(Model)
}

func TestFireDispatchesSelectedItem(t *testing.T) {
	p := &fakePanel{state: dispatch.State{Authenticated: true, Armed: true, User: "alice"}}
	m := New(context.Background(), p)

	m, _ = press(t, m, "right", "down")
	m, cmd := press(t, m, "enter")
	require.NotNil(t, cmd)

	msg := cmd()
	next, _ := m.Update(msg)
	m = next.(Model)

	assert.Equal(t, []string{"SEXY_SAX"}, p.dispatched)
	assert.Equal(t, "Triggered: SEXY_SAX", m.state.Status)
	assert.Contains(t, m.View(), "Triggered: SEXY_SAX")
}

func TestArmToggle(t *testing.T) {
	p := &fakePanel{state: dispatch.State{Authenticated: true}}
	m := New(context.Background(), p)

	m, cmd := press(t, m, "a")
	assert.False(t, p.State().Armed, "arming waits for the command")
	m = settle(t, m, cmd)
	assert.True(t, m.state.Armed)
	assert.Contains(t, m.View(), "ARMED")

	m, cmd = press(t, m, "a")
	m = settle(t, m, cmd)
	assert.False(t, m.state.Armed)
	assert.Contains(t, m.View(), "SAFE")
}

func TestLogout(t *testing.T) {
	p := &fakePanel{state: dispatch.State{Authenticated: true, Armed: true, User: "alice", Category: "SOUND"}}
	m := New(context.Background(), p)
	assert.Equal(t, 1, m.tab)

	m, cmd := press(t, m, "x")
	m = settle(t, m, cmd)
	assert.False(t, m.state.Authenticated)
	assert.Contains(t, m.View(), "panel login")
}

func TestTabSelectsCategory(t *testing.T) {
	p := &fakePanel{}
	m := New(context.Background(), p)

	m, cmd := press(t, m, "right", "right")
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	m = next.(Model)

	assert.Equal(t, "DRIVEBY", p.State().Category)
	assert.Contains(t, m.View(), "Zoom Past")
}

func TestStateMsgUpdatesView(t *testing.T) {
	m := New(context.Background(), &fakePanel{})
	next, _ := m.Update(StateMsg(dispatch.State{Authenticated: true, Armed: true, Status: dispatch.StatusOnline}))
	m = next.(Model)
	assert.Contains(t, m.View(), "Online")
}

func TestQuit(t *testing.T) {
	m := New(context.Background(), &fakePanel{})
	_, cmd := press(t, m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (*identity.Identity, error) {
	if token != "good" {
		return nil, identity.ErrInvalidCredential
	}
	return &identity.Identity{DisplayName: "alice", StableID: "4242"}, nil
}

type stubGuard struct{}

func (stubGuard) Trigger(_ context.Context, _, actionID string) (*response.TriggerAccepted, error) {
	return &response.TriggerAccepted{OK: true, User: "alice", ActionID: actionID}, nil
}

// sendWithin fails the test instead of hanging when the event loop is stuck.
func sendWithin(t *testing.T, p *tea.Program, msg tea.Msg) {
	t.Helper()
	sent := make(chan struct{})
	go func() {
		p.Send(msg)
		close(sent)
	}()
	select {
	case <-sent:
	case <-time.After(2 * time.Second):
		t.Fatalf("event loop did not accept %v", msg)
	}
}

func TestControllerKeysDoNotStallProgram(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var obs Observer
	ctl := dispatch.NewController(stubVerifier{}, credential.NewMemoryStore(""), stubGuard{},
		dispatch.WithObserver(obs.Observe),
	)
	_, err := ctl.Login(ctx, "good")
	require.NoError(t, err)

	p := tea.NewProgram(New(ctx, ctl),
		tea.WithContext(ctx),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	obs.Attach(p)

	done := make(chan error, 1)
	go func() {
		_, err := p.Run()
		done <- err
	}()

	sendWithin(t, p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	assert.Eventually(t, func() bool { return ctl.State().Armed }, 2*time.Second, 10*time.Millisecond)

	sendWithin(t, p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	assert.Eventually(t, func() bool { return !ctl.State().Authenticated }, 2*time.Second, 10*time.Millisecond)

	sendWithin(t, p, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("program did not exit after quit")
	}
}
