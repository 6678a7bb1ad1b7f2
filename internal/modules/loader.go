// Package modules finds the source files of a build.
package modules

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/funvibe/sasquach/internal/config"
	"github.com/funvibe/sasquach/internal/session"
)

// isSourceFile reports whether name has a recognized source extension.
func isSourceFile(name string) bool {
	for _, ext := range config.SourceFileExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// Loader collects source files from files and directory trees.
type Loader struct {
	// Loaded maps absolute paths to sources already read, so a file named
	// twice (directly and through its directory) is compiled once.
	Loaded map[string]bool
	files  []string
}

func NewLoader() *Loader {
	return &Loader{Loaded: make(map[string]bool)}
}

// Add registers a file or a directory. Directories are searched
// recursively; hidden directories are skipped. A file named explicitly is
// taken whatever its extension.
func (l *Loader) Add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("source %s: %w", path, err)
	}
	if !info.IsDir() {
		return l.addFile(path)
	}
	var found []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if isSourceFile(d.Name()) {
			found = append(found, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scanning %s: %w", path, err)
	}
	if len(found) == 0 {
		return fmt.Errorf("source %s: no %s files", path, strings.Join(config.SourceFileExtensions, " or "))
	}
	sort.Strings(found)
	for _, p := range found {
		if err := l.addFile(p); err != nil {
			return err
		}
	}
	return nil
}

func (l *Loader) addFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if l.Loaded[abs] {
		return nil
	}
	l.Loaded[abs] = true
	l.files = append(l.files, path)
	return nil
}

// Sources reads every registered file, in the order they were added.
func (l *Loader) Sources() ([]session.Source, error) {
	sources := make([]session.Source, 0, len(l.files))
	for _, path := range l.files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		sources = append(sources, session.Source{Path: path, Text: string(data)})
	}
	return sources, nil
}

// Load is Add for every path followed by Sources.
func Load(paths ...string) ([]session.Source, error) {
	l := NewLoader()
	for _, p := range paths {
		if err := l.Add(p); err != nil {
			return nil, err
		}
	}
	return l.Sources()
}
