// Package cooldown tracks the last accepted action per identity.
//
// Consistency is best-effort: two concurrent hits for the same identity may
// both pass before either is recorded, depending on the backend. Callers must
// treat the window as an anti-spam measure, not a hard guarantee.
package cooldown

import (
	"context"
	"time"
)

// DefaultWindow is the minimum spacing between accepted actions per identity.
const DefaultWindow = 1200 * time.Millisecond

// Decision is the outcome of a Hit.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Store records hits keyed by stable identity id.
type Store interface {
	// Hit checks key against the window. When the window has elapsed it
	// records now as the new last hit and allows; otherwise it rejects
	// without touching the record.
	Hit(ctx context.Context, key string, now time.Time) (Decision, error)

	// Window returns the configured cooldown window.
	Window() time.Duration

	Close() error
}
