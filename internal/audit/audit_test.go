package audit_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-coursebox/internal/audit"
	"github.com/tartampluch/go-coursebox/internal/gate"
)

func openTestLog(t *testing.T) *audit.Log {
	t.Helper()
	l, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestLog_RecordAndRecent(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	l.Record(ctx, gate.Decision{
		At: base, AppID: "tray-load", State: gate.StateAllowed, Source: "taobao",
	})
	l.Record(ctx, gate.Decision{
		At: base.Add(time.Minute), AppID: "valve-holes",
		State: gate.StateDenied, Reason: gate.ReasonExpired, Source: "suning",
	})

	got, err := l.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Newest first.
	assert.Equal(t, "valve-holes", got[0].AppID)
	assert.Equal(t, gate.StateDenied, got[0].State)
	assert.Equal(t, gate.ReasonExpired, got[0].Reason)
	assert.Equal(t, "tray-load", got[1].AppID)
	assert.True(t, got[1].At.Equal(base))
}

func TestLog_RecentLimit(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		l.Record(ctx, gate.Decision{
			At: base.Add(time.Duration(i) * time.Minute),
			AppID: "tray-load", State: gate.StateAllowed, Source: "taobao",
		})
	}

	got, err := l.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.True(t, got[0].At.After(got[2].At))
}

func TestLog_ReopenKeepsRows(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.db")
	ctx := context.Background()

	l, err := audit.Open(path)
	require.NoError(t, err)
	l.Record(ctx, gate.Decision{
		At: time.Now().UTC(), AppID: "column-schematic",
		State: gate.StateDenied, Reason: gate.ReasonNetworkRequired,
	})
	require.NoError(t, l.Close())

	l2, err := audit.Open(path)
	require.NoError(t, err)
	defer func() { _ = l2.Close() }()

	got, err := l2.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "column-schematic", got[0].AppID)
}

func TestLog_ImplementsRecorder(t *testing.T) {
	var _ gate.Recorder = openTestLog(t)
}
