package registry

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tartampluch/go-coursebox/internal/config"
)

// fileWindow is the on-disk shape of one window. Bounds are minute-granular
// UTC strings so the file stays hand-editable.
type fileWindow struct {
	Start string `toml:"start"`
	End   string `toml:"end"`
}

// fileRegistry is the TOML document shape.
type fileRegistry struct {
	Mode    string                `toml:"mode"`
	Windows map[string]fileWindow `toml:"windows"`
}

// Serialize renders the registry as TOML. Map keys are emitted sorted, so the
// output is deterministic and Serialize/Deserialize round-trips to equality.
func (r *Registry) Serialize() ([]byte, error) {
	doc := fileRegistry{
		Mode:    string(r.mode),
		Windows: make(map[string]fileWindow, len(r.windows)),
	}
	for id, w := range r.windows {
		doc.Windows[id] = fileWindow{
			Start: w.Start.UTC().Format(config.TimeLayoutMinute),
			End:   w.End.UTC().Format(config.TimeLayoutMinute),
		}
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrRegistryEncode, err)
	}
	return buf.Bytes(), nil
}

// Deserialize parses a TOML registry document and validates every window.
func Deserialize(data []byte) (*Registry, error) {
	var doc fileRegistry
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrRegistryDecode, err)
	}

	mode := Mode(doc.Mode)
	if mode != ModeUnrestricted && mode != ModeGated {
		return nil, fmt.Errorf("%s: unknown mode %q", config.ErrRegistryDecode, doc.Mode)
	}

	r := New(mode)
	for id, fw := range doc.Windows {
		w, err := parseWindow(fw)
		if err != nil {
			return nil, fmt.Errorf("%s: app %q: %w", config.ErrRegistryDecode, id, err)
		}
		// Bypass Set so gated documents can be loaded; validation still applies.
		if err := w.Validate(); err != nil {
			return nil, fmt.Errorf("%s: app %q: %w", config.ErrRegistryDecode, id, err)
		}
		r.windows[id] = w
	}
	return r, nil
}

func parseWindow(fw fileWindow) (Window, error) {
	start, err := time.ParseInLocation(config.TimeLayoutMinute, fw.Start, time.UTC)
	if err != nil {
		return Window{}, err
	}
	end, err := time.ParseInLocation(config.TimeLayoutMinute, fw.End, time.UTC)
	if err != nil {
		return Window{}, err
	}
	return Window{Start: start, End: end}, nil
}

// Load reads and parses a registry file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Deserialize(data)
}

// Save writes the registry to path with owner-only permissions.
func Save(r *Registry, path string) error {
	data, err := r.Serialize()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, config.FilePermUserRW)
}
