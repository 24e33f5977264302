// Package gate decides, per launch, whether a sub-application may run, and
// keeps re-deciding for as long as it stays open. Every decision combines a
// registry lookup with a trusted network time reading; the policy is strictly
// fail-closed: when the gate cannot positively confirm permission, it denies.
package gate

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-coursebox/internal/config"
	"github.com/tartampluch/go-coursebox/internal/oracle"
	"github.com/tartampluch/go-coursebox/internal/registry"
)

// State names a position in the per-session state machine.
type State string

const (
	StateInit     State = "init"
	StateChecking State = "checking"
	StateAllowed  State = "allowed"
	StateDenied   State = "denied"
	StateErrored  State = "errored"
)

// Reason explains a denial. All reasons are user-facing and non-fatal.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonNotYetOpen      Reason = "not_yet_open"
	ReasonExpired         Reason = "expired"
	ReasonNetworkRequired Reason = "network_required"
	ReasonSuspicious      Reason = "suspicious"
	ReasonNoWindow        Reason = "no_window"
)

// Transition is one observable step of a session's state machine, delivered
// to the shell over the session's channel.
type Transition struct {
	AppID  string
	State  State
	Reason Reason
	Window registry.Window

	// Remaining is the time left inside the window when allowed; UntilOpen
	// is the wait before the window opens when denied as not-yet-open. Both
	// are display hints for the shell.
	Remaining time.Duration
	UntilOpen time.Duration

	// Terminate is set when an already-allowed session falls out of its
	// window and the supervisor must close the sub-application.
	Terminate bool
}

// TimeSource abstracts the network time oracle for testing.
type TimeSource interface {
	FetchTrustedTime(ctx context.Context) (oracle.Reading, error)
}

// Decision is the audit-facing record of one gate outcome.
type Decision struct {
	At     time.Time
	AppID  string
	State  State
	Reason Reason
	Source string
}

// Recorder persists gate decisions. Implementations must be non-blocking in
// spirit: a recorder failure never changes a gate outcome.
type Recorder interface {
	Record(ctx context.Context, d Decision)
}

// Gate validates launches against the registry and the time oracle.
// One Gate serves all sessions; sessions are independent of each other and
// share only read-only registry lookups.
type Gate struct {
	Registry *registry.Registry
	Oracle   TimeSource
	Recorder Recorder // optional

	// Epsilon tolerates jitter between consecutive oracle readings; a
	// regression beyond it is treated as clock tampering.
	Epsilon time.Duration

	// recheck holds the re-validation interval in nanoseconds. The settings
	// worker updates it while session goroutines read it, so access goes
	// through SetRecheck and RecheckInterval.
	recheck atomic.Int64
}

// New creates a Gate with the default re-check interval and tolerance.
func New(reg *registry.Registry, ts TimeSource) *Gate {
	g := &Gate{
		Registry: reg,
		Oracle:   ts,
		Epsilon:  config.GateRegressionEpsilon,
	}
	g.recheck.Store(int64(config.GateRecheckInterval))
	return g
}

// SetRecheck changes the interval between re-validations of an open session.
// Sessions started after the change pick it up; a running session keeps the
// interval it was created with. Non-positive values reset the default.
func (g *Gate) SetRecheck(d time.Duration) {
	if d <= 0 {
		d = config.GateRecheckInterval
	}
	g.recheck.Store(int64(d))
}

// RecheckInterval returns the current re-validation interval.
func (g *Gate) RecheckInterval() time.Duration {
	return time.Duration(g.recheck.Load())
}

// RequestLaunch starts a new session for appID and returns it. The only
// error is an identifier missing from a gated registry; every policy
// outcome, including denials, arrives as a Transition on the session's
// channel. An unrestricted registry accepts any identifier, a fresh teacher
// build has no windows configured yet and must still launch everything. The
// caller owns the session and must Close it when the sub-application exits.
func (g *Gate) RequestLaunch(ctx context.Context, appID string) (*Session, error) {
	if g.Registry.Mode() != registry.ModeUnrestricted && !g.Registry.Has(appID) {
		return nil, registry.ErrUnknownApp
	}

	s := newSession(ctx, g, appID)
	go s.run()
	return s, nil
}

func (g *Gate) record(ctx context.Context, d Decision) {
	if g.Recorder == nil {
		return
	}
	g.Recorder.Record(ctx, d)
}
