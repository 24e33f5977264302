package registry_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-coursebox/internal/registry"
)

func mustWindow(t *testing.T, start, end string) registry.Window {
	t.Helper()
	s, err := time.Parse("2006-01-02 15:04", start)
	require.NoError(t, err)
	e, err := time.Parse("2006-01-02 15:04", end)
	require.NoError(t, err)
	return registry.Window{Start: s.UTC(), End: e.UTC()}
}

func TestRegistry_GetUnknownApp(t *testing.T) {
	r := registry.New(registry.ModeUnrestricted)

	_, err := r.Get("nonexistent")
	assert.ErrorIs(t, err, registry.ErrUnknownApp)
}

func TestRegistry_SetAndGet(t *testing.T) {
	r := registry.New(registry.ModeUnrestricted)
	w := mustWindow(t, "2024-01-01 08:00", "2024-01-01 18:00")

	require.NoError(t, r.Set("theoretical-plates", w))

	got, err := r.Get("theoretical-plates")
	require.NoError(t, err)
	assert.True(t, got.Start.Equal(w.Start))
	assert.True(t, got.End.Equal(w.End))
}

func TestRegistry_SetValidation(t *testing.T) {
	r := registry.New(registry.ModeUnrestricted)

	tests := []struct {
		name   string
		window registry.Window
		wantOK bool
	}{
		{
			name:   "StartAfterEnd",
			window: mustWindow(t, "2024-01-02 08:00", "2024-01-01 18:00"),
			wantOK: false,
		},
		{
			name: "StartNotMinuteAligned",
			window: registry.Window{
				Start: time.Date(2024, 1, 1, 8, 0, 30, 0, time.UTC),
				End:   time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC),
			},
			wantOK: false,
		},
		{
			name: "EndNotMinuteAligned",
			window: registry.Window{
				Start: time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 1, 1, 18, 0, 0, 500, time.UTC),
			},
			wantOK: false,
		},
		{
			// Zero-length window is a valid, permanently closed window.
			name:   "ZeroLength",
			window: mustWindow(t, "2024-01-01 08:00", "2024-01-01 08:00"),
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Set("app", tt.window)
			if tt.wantOK {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, registry.ErrInvalidWindow)
			}
		})
	}
}

func TestRegistry_SetAgainstGatedRegistry(t *testing.T) {
	src := registry.New(registry.ModeUnrestricted)
	require.NoError(t, src.Set("tray-load", mustWindow(t, "2024-01-01 08:00", "2024-01-01 18:00")))

	gated := src.Snapshot()
	err := gated.Set("tray-load", mustWindow(t, "2024-01-01 00:00", "2030-01-01 00:00"))

	assert.ErrorIs(t, err, registry.ErrModeViolation)

	// Window unchanged after the rejected mutation.
	w, gerr := gated.Get("tray-load")
	require.NoError(t, gerr)
	assert.Equal(t, 18, w.End.Hour())
}

func TestRegistry_ListStableOrder(t *testing.T) {
	r := registry.New(registry.ModeUnrestricted)
	w := mustWindow(t, "2024-01-01 08:00", "2024-01-01 18:00")

	require.NoError(t, r.Set("tray-load", w))
	require.NoError(t, r.Set("column-schematic", w))
	require.NoError(t, r.Set("valve-holes", w))
	require.NoError(t, r.Set("theoretical-plates", w))

	entries := r.List()
	require.Len(t, entries, 4)
	assert.Equal(t, "column-schematic", entries[0].AppID)
	assert.Equal(t, "theoretical-plates", entries[1].AppID)
	assert.Equal(t, "tray-load", entries[2].AppID)
	assert.Equal(t, "valve-holes", entries[3].AppID)
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	src := registry.New(registry.ModeUnrestricted)
	require.NoError(t, src.Set("valve-holes", mustWindow(t, "2024-01-01 08:00", "2024-01-01 18:00")))

	snap := src.Snapshot()
	assert.Equal(t, registry.ModeGated, snap.Mode())

	// Mutating the source must not leak into the snapshot.
	require.NoError(t, src.Set("valve-holes", mustWindow(t, "2030-01-01 00:00", "2030-12-31 23:59")))

	w, err := snap.Get("valve-holes")
	require.NoError(t, err)
	assert.Equal(t, 2024, w.Start.Year())
}

func TestRegistry_SerializeRoundTrip(t *testing.T) {
	r := registry.New(registry.ModeUnrestricted)
	require.NoError(t, r.Set("valve-holes", mustWindow(t, "2024-01-01 08:00", "2024-01-01 18:00")))
	require.NoError(t, r.Set("tray-load", mustWindow(t, "2024-03-15 00:00", "2024-06-30 23:59")))
	require.NoError(t, r.Set("column-schematic", mustWindow(t, "2024-05-01 12:30", "2024-05-01 12:30")))

	data, err := r.Serialize()
	require.NoError(t, err)

	back, err := registry.Deserialize(data)
	require.NoError(t, err)
	assert.True(t, r.Equal(back), "deserialize(serialize(r)) must equal r")
}

func TestRegistry_SerializeDeterministic(t *testing.T) {
	// ModeGated registries cannot be built via Set; round-trip a document instead.
	doc := `mode = "gated"

[windows]
  [windows.a]
  start = "2024-01-01 08:00"
  end = "2024-01-01 18:00"
  [windows.b]
  start = "2024-02-01 08:00"
  end = "2024-02-01 18:00"
`
	parsed, err := registry.Deserialize([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, registry.ModeGated, parsed.Mode())
	assert.Equal(t, 2, parsed.Len())

	first, err := parsed.Serialize()
	require.NoError(t, err)
	second, err := parsed.Serialize()
	require.NoError(t, err)
	assert.Equal(t, first, second, "serialization must be deterministic")
}

func TestRegistry_DeserializeRejectsBadDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"UnknownMode", "mode = \"admin\"\n"},
		{"InvertedWindow", "mode = \"gated\"\n[windows.x]\nstart = \"2024-06-01 00:00\"\nend = \"2024-01-01 00:00\"\n"},
		{"MalformedTime", "mode = \"gated\"\n[windows.x]\nstart = \"yesterday\"\nend = \"2024-01-01 00:00\"\n"},
		{"NotTOML", "{\"mode\": \"gated\"}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := registry.Deserialize([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestRegistry_SaveLoad(t *testing.T) {
	r := registry.New(registry.ModeUnrestricted)
	require.NoError(t, r.Set("theoretical-plates", mustWindow(t, "2024-01-01 08:00", "2024-01-01 18:00")))

	path := filepath.Join(t.TempDir(), "registry.toml")
	require.NoError(t, registry.Save(r, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	back, err := registry.Load(path)
	require.NoError(t, err)
	assert.True(t, r.Equal(back))
}

func TestWindow_Contains(t *testing.T) {
	w := mustWindow(t, "2024-01-01 08:00", "2024-01-01 18:00")

	assert.True(t, w.Contains(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(w.Start), "window bounds are inclusive")
	assert.True(t, w.Contains(w.End), "window bounds are inclusive")
	assert.False(t, w.Contains(time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2024, 1, 1, 19, 0, 0, 0, time.UTC)))
}
