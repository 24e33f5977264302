package gate

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tartampluch/go-coursebox/internal/config"
	"github.com/tartampluch/go-coursebox/internal/oracle"
	"github.com/tartampluch/go-coursebox/internal/registry"
)

// Session tracks one launch of one sub-application from request to close.
// Its state machine runs on a dedicated goroutine; transitions reach the
// shell through Transitions(). Denied and errored states are terminal; a
// fresh launch request starts a fresh session.
type Session struct {
	AppID string

	gate        *Gate
	recheck     time.Duration
	window      registry.Window
	transitions chan Transition
	ctx         context.Context
	cancel      context.CancelFunc
	closeOnce   sync.Once
	log         *slog.Logger

	// lastReading anchors the clock-regression check. Only the session
	// goroutine touches it.
	lastReading oracle.Reading
	hasReading  bool
}

func newSession(parent context.Context, g *Gate, appID string) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		AppID:       appID,
		gate:        g,
		recheck:     g.RecheckInterval(),
		transitions: make(chan Transition, config.SessionChannelBuffer),
		ctx:         ctx,
		cancel:      cancel,
		log: slog.With(
			config.LogKeyComponent, config.CompGate,
			config.LogKeyAppID, appID,
		),
	}
}

// Transitions returns the channel of state changes. It is closed when the
// session reaches a terminal state or is closed by the caller.
func (s *Session) Transitions() <-chan Transition {
	return s.transitions
}

// Close ends the session, e.g. when the sub-application window closed
// normally. The re-check timer is cancelled; no further transitions arrive.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.log.Info(config.MsgSessionEnd)
		s.cancel()
	})
}

// run drives the state machine. In an unrestricted registry the gate is
// bypassed entirely: no oracle call, no window evaluation, straight to
// allowed. Otherwise the session checks once, and while allowed keeps
// re-checking on a ticker so a session straddling its window's end is
// forcibly terminated.
func (s *Session) run() {
	defer close(s.transitions)
	defer s.cancel()

	s.log.Info(config.MsgSessionStart, config.LogKeyMode, string(s.gate.Registry.Mode()))

	if s.gate.Registry.Mode() == registry.ModeUnrestricted {
		s.log.Debug(config.MsgUnrestricted)
		s.send(Transition{AppID: s.AppID, State: StateAllowed})
		<-s.ctx.Done()
		return
	}

	window, err := s.gate.Registry.Get(s.AppID)
	if err != nil {
		// Registered at RequestLaunch time; a gated registry cannot lose
		// entries, so this is unreachable in practice. Fail closed anyway.
		s.deny(ReasonNoWindow, oracle.Reading{}, false)
		return
	}
	s.window = window

	if !s.checkOnce(false) {
		return
	}

	ticker := time.NewTicker(s.recheck)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.log.Debug(config.MsgSessionCheck)
			if !s.checkOnce(true) {
				return
			}
		}
	}
}

// checkOnce performs one CheckingTime pass. It returns true when the session
// is (still) allowed, false on any terminal outcome.
func (s *Session) checkOnce(wasAllowed bool) bool {
	s.send(Transition{AppID: s.AppID, State: StateChecking, Window: s.window})

	reading, err := s.gate.Oracle.FetchTrustedTime(s.ctx)
	if err != nil {
		if s.ctx.Err() != nil {
			return false
		}
		s.deny(ReasonNetworkRequired, oracle.Reading{}, wasAllowed)
		return false
	}

	// A reading that regressed past the jitter tolerance means some clock
	// this comparison is anchored on has been interfered with.
	if s.hasReading && reading.Timestamp.Before(s.lastReading.Timestamp.Add(-s.gate.Epsilon)) {
		s.log.Error(config.ErrClockTamper,
			config.LogKeyOld, s.lastReading.Timestamp,
			config.LogKeyNew, reading.Timestamp,
			config.LogKeySource, reading.Source,
		)
		s.send(Transition{AppID: s.AppID, State: StateErrored, Window: s.window})
		s.deny(ReasonSuspicious, reading, wasAllowed)
		return false
	}

	ts := reading.Timestamp
	switch {
	case ts.Before(s.window.Start):
		s.denyWith(Transition{
			AppID:     s.AppID,
			State:     StateDenied,
			Reason:    ReasonNotYetOpen,
			Window:    s.window,
			UntilOpen: s.window.Start.Sub(ts),
			Terminate: wasAllowed,
		}, reading)
		return false

	case ts.After(s.window.End):
		s.denyWith(Transition{
			AppID:     s.AppID,
			State:     StateDenied,
			Reason:    ReasonExpired,
			Window:    s.window,
			Terminate: wasAllowed,
		}, reading)
		return false
	}

	s.lastReading = reading
	s.hasReading = true

	s.log.Info(config.MsgSessionAllowed,
		config.LogKeySource, reading.Source,
		config.LogKeyTimestamp, ts,
	)
	s.gate.record(s.ctx, Decision{
		At:     ts,
		AppID:  s.AppID,
		State:  StateAllowed,
		Source: reading.Source,
	})
	s.send(Transition{
		AppID:     s.AppID,
		State:     StateAllowed,
		Window:    s.window,
		Remaining: s.window.End.Sub(ts),
	})
	return true
}

func (s *Session) deny(reason Reason, reading oracle.Reading, wasAllowed bool) {
	s.denyWith(Transition{
		AppID:     s.AppID,
		State:     StateDenied,
		Reason:    reason,
		Window:    s.window,
		Terminate: wasAllowed,
	}, reading)
}

func (s *Session) denyWith(tr Transition, reading oracle.Reading) {
	if tr.Terminate {
		s.log.Warn(config.MsgSessionKill, config.LogKeyReason, string(tr.Reason))
	} else {
		s.log.Info(config.MsgSessionDenied, config.LogKeyReason, string(tr.Reason))
	}

	at := reading.Timestamp
	if at.IsZero() {
		// Denials without a trusted reading (network required) are stamped
		// with the local clock for the audit trail only; the decision itself
		// never consulted it.
		at = time.Now().UTC()
	}
	s.gate.record(s.ctx, Decision{
		At:     at,
		AppID:  s.AppID,
		State:  StateDenied,
		Reason: tr.Reason,
		Source: reading.Source,
	})
	s.send(tr)
}

// send delivers a transition without ever wedging the session goroutine: if
// the subscriber has gone away the context release unblocks it.
func (s *Session) send(tr Transition) {
	select {
	case s.transitions <- tr:
	case <-s.ctx.Done():
	}
}
