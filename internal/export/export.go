// Package export produces the restricted student build artifact: a frozen
// gated copy of the availability windows plus the tool resources, laid out
// in a directory ready to be bundled and handed to students.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tartampluch/go-coursebox/internal/config"
	"github.com/tartampluch/go-coursebox/internal/registry"
	"github.com/tartampluch/go-coursebox/internal/schedule"
)

// ErrInvalidSourceMode rejects exporting from anything but the teacher's
// unrestricted registry. Re-exporting a student build would otherwise let a
// student mint fresh artifacts.
var ErrInvalidSourceMode = errors.New(config.ErrInvalidSourceMode)

// Manifest is the frozen access policy shipped inside a student build. Its
// registry is always gated; the running shell detects the student build by
// the manifest's presence next to the executable.
type Manifest struct {
	Version  int
	Created  time.Time
	Apps     []string
	Registry *registry.Registry
}

// manifestWindow and manifestFile define the manifest.toml document shape.
type manifestWindow struct {
	Start string `toml:"start"`
	End   string `toml:"end"`
}

type manifestRegistry struct {
	Mode    string                    `toml:"mode"`
	Windows map[string]manifestWindow `toml:"windows"`
}

type manifestFile struct {
	Version  int              `toml:"version"`
	Created  string           `toml:"created"`
	Apps     []string         `toml:"apps"`
	Registry manifestRegistry `toml:"registry"`
}

// Exporter writes student build artifacts.
type Exporter struct {
	// ResourceDir is the teacher build's tool installation root; its
	// contents are copied into the artifact.
	ResourceDir string

	// TitleFor localizes app names in the bundled schedule feed. Optional.
	TitleFor schedule.TitleFunc

	log *slog.Logger
}

func New(resourceDir string) *Exporter {
	return &Exporter{
		ResourceDir: resourceDir,
		log:         slog.With(config.LogKeyComponent, config.CompExport),
	}
}

// Export snapshots reg and writes a complete student build under outputDir:
// manifest.toml, a schedule.ics feed, and each tool's resources under apps/.
// The snapshot is deep: mutating reg afterwards never alters the artifact.
func (e *Exporter) Export(reg *registry.Registry, outputDir string) (*Manifest, error) {
	if reg.Mode() != registry.ModeUnrestricted {
		return nil, ErrInvalidSourceMode
	}

	e.log.Info(config.MsgExportStart, config.LogKeyPath, outputDir)

	snap := reg.Snapshot()
	m := &Manifest{
		Version:  config.ManifestVersion,
		Created:  time.Now().UTC().Truncate(time.Second),
		Apps:     appIDs(snap),
		Registry: snap,
	}

	if err := os.MkdirAll(outputDir, config.DirPermUserRWX); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}

	data, err := m.encode()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(outputDir, config.ManifestFileName), data, config.FilePermUserRW); err != nil {
		return nil, err
	}

	feed, err := schedule.BuildFeed(snap.List(), e.TitleFor)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(outputDir, config.ScheduleFileName), feed, config.FilePermUserRW); err != nil {
		return nil, err
	}

	if err := e.copyResources(snap, outputDir); err != nil {
		return nil, err
	}

	e.log.Info(config.MsgExportDone,
		config.LogKeyPath, outputDir,
		config.LogKeyCount, len(m.Apps),
	)
	return m, nil
}

func appIDs(r *registry.Registry) []string {
	entries := r.List()
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.AppID
	}
	return ids
}

// copyResources copies each registered tool's installation directory into
// the artifact's apps/ tree. Tools without installed resources are skipped;
// a build machine may hold the registry only.
func (e *Exporter) copyResources(snap *registry.Registry, outputDir string) error {
	for _, id := range appIDs(snap) {
		src := filepath.Join(e.ResourceDir, id)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		dst := filepath.Join(outputDir, config.ExportAppsDir, id)
		if err := copyTree(src, dst); err != nil {
			return fmt.Errorf("%s: %s: %w", config.ErrCopyResource, id, err)
		}
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, config.DirPermUserRWX)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		return copyFile(path, target, info.Mode().Perm())
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// encode renders the manifest as TOML. Window bounds reuse the registry's
// minute-granular UTC layout.
func (m *Manifest) encode() ([]byte, error) {
	doc := manifestFile{
		Version: m.Version,
		Created: m.Created.Format(time.RFC3339),
		Apps:    m.Apps,
		Registry: manifestRegistry{
			Mode:    string(m.Registry.Mode()),
			Windows: make(map[string]manifestWindow),
		},
	}
	for _, e := range m.Registry.List() {
		doc.Registry.Windows[e.AppID] = manifestWindow{
			Start: e.Window.Start.UTC().Format(config.TimeLayoutMinute),
			End:   e.Window.End.UTC().Format(config.TimeLayoutMinute),
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrManifestEncode, err)
	}
	return buf.Bytes(), nil
}

// LoadManifest reads a manifest.toml and reconstructs the frozen gated
// registry. Student builds call this at startup; any decode or validation
// failure must abort the launch rather than fall back to unrestricted.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc manifestFile
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrManifestDecode, err)
	}
	if doc.Version != config.ManifestVersion {
		return nil, fmt.Errorf("%s: unsupported version %d", config.ErrManifestDecode, doc.Version)
	}
	if doc.Registry.Mode != string(registry.ModeGated) {
		return nil, fmt.Errorf("%s: manifest registry must be gated", config.ErrManifestDecode)
	}

	created, err := time.Parse(time.RFC3339, doc.Created)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrManifestDecode, err)
	}

	// Windows go through an unrestricted staging registry so Set applies
	// full validation, then the snapshot freezes them gated.
	staging := registry.New(registry.ModeUnrestricted)
	for id, fw := range doc.Registry.Windows {
		w, err := parseManifestWindow(fw)
		if err != nil {
			return nil, fmt.Errorf("%s: app %q: %w", config.ErrManifestDecode, id, err)
		}
		if err := staging.Set(id, w); err != nil {
			return nil, fmt.Errorf("%s: app %q: %w", config.ErrManifestDecode, id, err)
		}
	}

	return &Manifest{
		Version:  doc.Version,
		Created:  created,
		Apps:     doc.Apps,
		Registry: staging.Snapshot(),
	}, nil
}

func parseManifestWindow(fw manifestWindow) (registry.Window, error) {
	start, err := time.ParseInLocation(config.TimeLayoutMinute, fw.Start, time.UTC)
	if err != nil {
		return registry.Window{}, err
	}
	end, err := time.ParseInLocation(config.TimeLayoutMinute, fw.End, time.UTC)
	if err != nil {
		return registry.Window{}, err
	}
	return registry.Window{Start: start, End: end}, nil
}
