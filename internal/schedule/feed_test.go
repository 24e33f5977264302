package schedule

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-coursebox/internal/registry"
)

func testEntries() []registry.Entry {
	return []registry.Entry{
		{
			AppID: "tray-load",
			Window: registry.Window{
				Start: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
				End:   time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
			},
		},
		{
			AppID: "valve-holes",
			Window: registry.Window{
				Start: time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC),
				End:   time.Date(2024, 3, 2, 11, 0, 0, 0, time.UTC),
			},
		},
	}
}

func TestBuildFeed_OneEventPerWindow(t *testing.T) {
	data, err := BuildFeed(testEntries(), nil)
	require.NoError(t, err)

	feed := string(data)
	assert.Equal(t, 2, strings.Count(feed, "BEGIN:VEVENT"))
	assert.Contains(t, feed, "UID:tray-load@gocoursebox")
	assert.Contains(t, feed, "UID:valve-holes@gocoursebox")
	assert.Contains(t, feed, "SUMMARY:tray-load")
	assert.Contains(t, feed, "DTSTART:20240301T080000Z")
	assert.Contains(t, feed, "DTEND:20240301T180000Z")
}

func TestBuildFeed_LocalizedSummaries(t *testing.T) {
	titles := map[string]string{
		"tray-load":   "Tray Load Calculator",
		"valve-holes": "Valve Hole Layout",
	}

	data, err := BuildFeed(testEntries(), func(appID string) string {
		return titles[appID]
	})
	require.NoError(t, err)

	feed := string(data)
	assert.Contains(t, feed, "SUMMARY:Tray Load Calculator")
	assert.Contains(t, feed, "SUMMARY:Valve Hole Layout")
}

func TestBuildFeed_EmptyRegistryYieldsValidStub(t *testing.T) {
	data, err := BuildFeed(nil, nil)
	require.NoError(t, err)

	feed := string(data)
	assert.Contains(t, feed, "BEGIN:VCALENDAR")
	assert.Contains(t, feed, "END:VCALENDAR")
	assert.NotContains(t, feed, "BEGIN:VEVENT")
}
