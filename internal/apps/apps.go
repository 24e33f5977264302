// Package apps holds the static catalog of bundled sub-applications.
//
// The catalog is compiled in: the set of tools shipped with a build never
// changes at runtime, only each tool's availability window does. Everything
// windowy lives in the registry package; this one only knows what exists
// and how to start it.
package apps

import (
	"path/filepath"
	"runtime"

	"github.com/tartampluch/go-coursebox/internal/config"
)

// Descriptor describes one bundled calculation tool.
type Descriptor struct {
	// ID is the stable identifier used as the registry and audit key.
	ID string

	// TitleKey is the i18n key for the display name.
	TitleKey string

	// Executable is the program name relative to the resources directory.
	// The platform suffix is appended by Command.
	Executable string

	// HasFileArea reports whether the tool keeps a managed directory of
	// user-imported data files next to its executable.
	HasFileArea bool
}

// Command returns the absolute executable path for a tool installed under
// resourceDir.
func (d Descriptor) Command(resourceDir string) string {
	name := d.Executable
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(resourceDir, d.ID, name)
}

// Dir returns the tool's installation directory under resourceDir. It is
// both the working directory for the launched process and the root of the
// managed file area.
func (d Descriptor) Dir(resourceDir string) string {
	return filepath.Join(resourceDir, d.ID)
}

// catalog lists every bundled tool in display order.
var catalog = []Descriptor{
	{
		ID:          "valve-holes",
		TitleKey:    config.TKeyAppValveHoles,
		Executable:  "valve-holes",
		HasFileArea: true,
	},
	{
		ID:          "theoretical-plates",
		TitleKey:    config.TKeyAppTheoretical,
		Executable:  "theoretical-plates",
		HasFileArea: true,
	},
	{
		ID:          "tray-load",
		TitleKey:    config.TKeyAppTrayLoad,
		Executable:  "tray-load",
		HasFileArea: true,
	},
	{
		ID:          "column-schematic",
		TitleKey:    config.TKeyAppSchematic,
		Executable:  "column-schematic",
		HasFileArea: false,
	},
}

// All returns the catalog in display order. The returned slice is a copy.
func All() []Descriptor {
	out := make([]Descriptor, len(catalog))
	copy(out, catalog)
	return out
}

// ByID looks a tool up by its identifier.
func ByID(id string) (Descriptor, bool) {
	for _, d := range catalog {
		if d.ID == id {
			return d, true
		}
	}
	return Descriptor{}, false
}

// IDs returns every catalog identifier in display order.
func IDs() []string {
	out := make([]string, len(catalog))
	for i, d := range catalog {
		out[i] = d.ID
	}
	return out
}
