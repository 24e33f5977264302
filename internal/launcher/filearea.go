package launcher

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tartampluch/go-coursebox/internal/apps"
	"github.com/tartampluch/go-coursebox/internal/config"
)

// ErrOutsideArea rejects names that would escape the managed directory.
var ErrOutsideArea = errors.New("file name escapes the managed area")

// FileArea manages a tool's directory of user-imported data files. Tools
// read their input from this directory, so imports land flat, no subtrees.
type FileArea struct {
	dir string
}

// AreaFor returns the managed file area of a tool, creating the directory
// on first use. Tools without a file area get an error.
func AreaFor(d apps.Descriptor, resourceDir string) (*FileArea, error) {
	if !d.HasFileArea {
		return nil, fmt.Errorf("%s: no managed file area", d.ID)
	}
	dir := filepath.Join(d.Dir(resourceDir), "data")
	if err := os.MkdirAll(dir, config.DirPermUserRWX); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrCreateDir, err)
	}
	return &FileArea{dir: dir}, nil
}

// Dir returns the managed directory's path.
func (a *FileArea) Dir() string {
	return a.dir
}

// List returns the names of the files in the area, sorted.
func (a *FileArea) List() ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Import copies the file at src into the area under its base name,
// replacing any previous file of the same name.
func (a *FileArea) Import(src string) error {
	name := filepath.Base(src)
	if err := a.check(name); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(filepath.Join(a.dir, name),
		os.O_WRONLY|os.O_CREATE|os.O_TRUNC, config.FilePermUserRW)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Remove deletes a file from the area by name.
func (a *FileArea) Remove(name string) error {
	if err := a.check(name); err != nil {
		return err
	}
	return os.Remove(filepath.Join(a.dir, name))
}

// check rejects names with path separators or traversal components.
func (a *FileArea) check(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return ErrOutsideArea
	}
	return nil
}
