package apps_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-coursebox/internal/apps"
)

func TestCatalog_Integrity(t *testing.T) {
	all := apps.All()
	require.Len(t, all, 4)

	seen := make(map[string]bool)
	for _, d := range all {
		assert.NotEmpty(t, d.ID)
		assert.NotEmpty(t, d.TitleKey)
		assert.NotEmpty(t, d.Executable)
		assert.False(t, seen[d.ID], "duplicate catalog id %q", d.ID)
		seen[d.ID] = true
	}
}

func TestCatalog_ByID(t *testing.T) {
	d, ok := apps.ByID("tray-load")
	require.True(t, ok)
	assert.Equal(t, "tray-load", d.ID)

	_, ok = apps.ByID("no-such-tool")
	assert.False(t, ok)
}

func TestCatalog_AllReturnsCopy(t *testing.T) {
	a := apps.All()
	a[0].ID = "mutated"

	b := apps.All()
	assert.NotEqual(t, "mutated", b[0].ID)
}

func TestDescriptor_Paths(t *testing.T) {
	d, ok := apps.ByID("valve-holes")
	require.True(t, ok)

	dir := d.Dir(filepath.Join("base", "resources"))
	assert.Equal(t, filepath.Join("base", "resources", "valve-holes"), dir)

	cmd := d.Command(filepath.Join("base", "resources"))
	assert.Contains(t, cmd, filepath.Join("valve-holes", "valve-holes"))
}

func TestCatalog_IDsOrder(t *testing.T) {
	assert.Equal(t, []string{
		"valve-holes",
		"theoretical-plates",
		"tray-load",
		"column-schematic",
	}, apps.IDs())
}
