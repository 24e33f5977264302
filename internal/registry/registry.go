// Package registry holds the per-application time windows and the build mode.
// It is the single source of scheduling truth: mutable through the admin
// surface in an unrestricted (teacher) registry, frozen for the lifetime of
// the process in a gated (student) one.
package registry

import (
	"errors"
	"sort"
	"time"

	"github.com/tartampluch/go-coursebox/internal/config"
)

// Mode tags a registry as teacher (mutable, ungated) or student (frozen, gated).
type Mode string

const (
	ModeUnrestricted Mode = config.ModeUnrestricted
	ModeGated        Mode = config.ModeGated
)

var (
	ErrUnknownApp    = errors.New(config.ErrUnknownApp)
	ErrInvalidWindow = errors.New(config.ErrInvalidWindow)
	ErrModeViolation = errors.New(config.ErrModeViolation)
)

// Window is the inclusive interval during which an application may run.
// Both bounds are UTC and minute-granular. Start == End denotes a permanently
// closed window; there is no sentinel for "unrestricted", that is a Mode.
type Window struct {
	Start time.Time
	End   time.Time
}

// Validate checks the window invariants: Start <= End, both minute-aligned.
func (w Window) Validate() error {
	if w.Start.After(w.End) {
		return ErrInvalidWindow
	}
	if !w.Start.Equal(w.Start.Truncate(time.Minute)) || !w.End.Equal(w.End.Truncate(time.Minute)) {
		return ErrInvalidWindow
	}
	return nil
}

// Contains reports whether t falls inside the inclusive window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// normalize pins both bounds to UTC so comparisons and serialization are
// location-independent.
func (w Window) normalize() Window {
	return Window{Start: w.Start.UTC(), End: w.End.UTC()}
}

// Entry pairs an application identifier with its window, for stable listing.
type Entry struct {
	AppID  string
	Window Window
}

// Registry maps application identifiers to their allowed windows.
// Not safe for concurrent mutation; the teacher build has a single admin
// writer and student builds never mutate it at all.
type Registry struct {
	mode    Mode
	windows map[string]Window
}

// New creates an empty registry with the given mode.
func New(mode Mode) *Registry {
	return &Registry{
		mode:    mode,
		windows: make(map[string]Window),
	}
}

// Mode returns the registry's build mode.
func (r *Registry) Mode() Mode {
	return r.mode
}

// Get returns the window registered for appID.
func (r *Registry) Get(appID string) (Window, error) {
	w, ok := r.windows[appID]
	if !ok {
		return Window{}, ErrUnknownApp
	}
	return w, nil
}

// Has reports whether appID is registered.
func (r *Registry) Has(appID string) bool {
	_, ok := r.windows[appID]
	return ok
}

// Set registers or replaces the window for appID. It is rejected outright on
// a gated registry: a frozen student snapshot must stay exactly as exported.
func (r *Registry) Set(appID string, w Window) error {
	if r.mode != ModeUnrestricted {
		return ErrModeViolation
	}
	w = w.normalize()
	if err := w.Validate(); err != nil {
		return err
	}
	r.windows[appID] = w
	return nil
}

// List returns all entries ordered by application identifier.
func (r *Registry) List() []Entry {
	ids := make([]string, 0, len(r.windows))
	for id := range r.windows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, Entry{AppID: id, Window: r.windows[id]})
	}
	return entries
}

// Len returns the number of registered applications.
func (r *Registry) Len() int {
	return len(r.windows)
}

// Snapshot deep-copies the registry with the copy's mode forced to gated.
// The copy shares no state with the source: later mutation of either side
// never affects the other.
func (r *Registry) Snapshot() *Registry {
	snap := New(ModeGated)
	for id, w := range r.windows {
		snap.windows[id] = w
	}
	return snap
}

// Equal reports whether two registries hold the same mode and windows.
func (r *Registry) Equal(other *Registry) bool {
	if other == nil || r.mode != other.mode || len(r.windows) != len(other.windows) {
		return false
	}
	for id, w := range r.windows {
		ow, ok := other.windows[id]
		if !ok || !w.Start.Equal(ow.Start) || !w.End.Equal(ow.End) {
			return false
		}
	}
	return true
}
