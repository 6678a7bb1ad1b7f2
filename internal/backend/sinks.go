package backend

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/funvibe/sasquach/internal/codegen"
	"github.com/funvibe/sasquach/internal/config"
)

// DirSink writes <Dir>/<class>.class files, creating package directories
// as needed.
type DirSink struct {
	Dir string
}

func NewDirSink(dir string) *DirSink {
	return &DirSink{Dir: dir}
}

func (s *DirSink) Name() string { return s.Dir }

func (s *DirSink) Write(artifacts []codegen.Artifact) error {
	for _, a := range artifacts {
		path := filepath.Join(s.Dir, filepath.FromSlash(ClassPath(a)))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, a.Bytes, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}

// JarSink writes all artifacts into one jar. Entries carry no timestamps,
// so the same classes always give the same jar.
type JarSink struct {
	Path string
	// MainClass is the internal name of the class recorded as Main-Class,
	// or "" for a library jar.
	MainClass string
}

func NewJarSink(path, mainClass string) *JarSink {
	return &JarSink{Path: path, MainClass: mainClass}
}

func (s *JarSink) Name() string { return s.Path }

func (s *JarSink) Write(artifacts []codegen.Artifact) error {
	if s.MainClass != "" && !contains(artifacts, s.MainClass) {
		return fmt.Errorf("main class %s was not generated", s.MainClass)
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	if err := writeEntry(zw, "META-INF/MANIFEST.MF", []byte(s.manifest())); err != nil {
		return err
	}
	for _, a := range artifacts {
		if err := writeEntry(zw, ClassPath(a), a.Bytes); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing jar: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(s.Path), err)
	}
	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("writing %s: %w", s.Path, err)
	}
	return nil
}

func (s *JarSink) manifest() string {
	var sb strings.Builder
	sb.WriteString("Manifest-Version: 1.0\r\n")
	sb.WriteString("Created-By: sasquach " + config.Version + "\r\n")
	if s.MainClass != "" {
		sb.WriteString("Main-Class: " + strings.ReplaceAll(s.MainClass, "/", ".") + "\r\n")
	}
	sb.WriteString("\r\n")
	return sb.String()
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("adding %s: %w", name, err)
	}
	return nil
}

func contains(artifacts []codegen.Artifact, name string) bool {
	for _, a := range artifacts {
		if a.Name == name {
			return true
		}
	}
	return false
}
