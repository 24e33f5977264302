package ui

import (
	"context"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-coursebox/internal/apps"
	"github.com/tartampluch/go-coursebox/internal/config"
	"github.com/tartampluch/go-coursebox/internal/gate"
	"github.com/tartampluch/go-coursebox/internal/launcher"
	"github.com/tartampluch/go-coursebox/internal/registry"
)

func newTestShell(t *testing.T, reg *registry.Registry) *CourseboxApp {
	t.Helper()
	a := test.NewApp()
	g := gate.New(reg, nil)
	shell := NewCourseboxApp(a, context.Background(), g, launcher.New(t.TempDir()), nil)
	shell.SetupI18n()
	return shell
}

func testWindow() registry.Window {
	return registry.Window{
		Start: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC),
	}
}

// TestApp_StatusText verifies the localized status line for every session
// state the cards can display.
func TestApp_StatusText(t *testing.T) {
	shell := newTestShell(t, registry.New(registry.ModeUnrestricted))

	tests := []struct {
		name string
		tr   gate.Transition
		want string
	}{
		{
			name: "Checking",
			tr:   gate.Transition{State: gate.StateChecking},
			want: "Checking availability...",
		},
		{
			name: "Allowed",
			tr:   gate.Transition{State: gate.StateAllowed, Window: testWindow()},
			want: "Available until 2024-01-01 18:00 UTC",
		},
		{
			name: "NotYetOpen",
			tr:   gate.Transition{State: gate.StateDenied, Reason: gate.ReasonNotYetOpen, Window: testWindow()},
			want: "Opens at 2024-01-01 08:00 UTC",
		},
		{
			name: "Expired",
			tr:   gate.Transition{State: gate.StateDenied, Reason: gate.ReasonExpired, Window: testWindow()},
			want: "Closed since 2024-01-01 18:00 UTC",
		},
		{
			name: "NetworkRequired",
			tr:   gate.Transition{State: gate.StateDenied, Reason: gate.ReasonNetworkRequired},
			want: "Network required to verify availability",
		},
		{
			name: "NoWindow",
			tr:   gate.Transition{State: gate.StateDenied, Reason: gate.ReasonNoWindow},
			want: "No availability window set",
		},
		{
			name: "Suspicious",
			tr:   gate.Transition{State: gate.StateDenied, Reason: gate.ReasonSuspicious},
			want: "Time verification failed, access blocked",
		},
		{
			name: "Errored",
			tr:   gate.Transition{State: gate.StateErrored},
			want: "Time verification failed, access blocked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shell.statusText(tt.tr))
		})
	}
}

func TestApp_InitialStatus(t *testing.T) {
	staging := registry.New(registry.ModeUnrestricted)
	require.NoError(t, staging.Set("tray-load", testWindow()))

	d, ok := apps.ByID("tray-load")
	require.True(t, ok)
	other, ok := apps.ByID("valve-holes")
	require.True(t, ok)

	t.Run("TeacherBuild", func(t *testing.T) {
		shell := newTestShell(t, staging)
		assert.Equal(t, "Available", shell.initialStatus(d))
	})

	t.Run("StudentBuild", func(t *testing.T) {
		shell := newTestShell(t, staging.Snapshot())
		assert.True(t, shell.Gated())
		assert.Equal(t, "Available until 2024-01-01 18:00 UTC", shell.initialStatus(d))
		assert.Equal(t, "No availability window set", shell.initialStatus(other))
	})
}

func TestApp_TitleFor(t *testing.T) {
	shell := newTestShell(t, registry.New(registry.ModeUnrestricted))

	assert.Equal(t, "Tray Load Calculator", shell.TitleFor("tray-load"))
	assert.Equal(t, "unknown-id", shell.TitleFor("unknown-id"))
}

func TestApp_LocalizerSwitchesLanguage(t *testing.T) {
	shell := newTestShell(t, registry.New(registry.ModeUnrestricted))

	shell.Preferences.SetString(config.PrefLanguage, "zh")
	shell.UpdateLocalizer()

	assert.Equal(t, "塔盘负荷计算", shell.TitleFor("tray-load"))
}
