package backend_test

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/sasquach/internal/backend"
	"github.com/funvibe/sasquach/internal/codegen"
	"github.com/nalgeon/be"
)

var artifacts = []codegen.Artifact{
	{Name: "app/Main", Bytes: []byte{0xCA, 0xFE, 0xBA, 0xBE, 1}},
	{Name: "app/Main$Point", Bytes: []byte{0xCA, 0xFE, 0xBA, 0xBE, 2}},
	{Name: "sasquach/runtime/Func1", Bytes: []byte{0xCA, 0xFE, 0xBA, 0xBE, 3}},
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "classes")
	var sink backend.Sink = backend.NewDirSink(dir)
	be.Equal(t, sink.Name(), dir)
	be.Err(t, sink.Write(artifacts), nil)

	for _, a := range artifacts {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(a.Name+".class")))
		be.Err(t, err, nil)
		be.Equal(t, data, a.Bytes)
	}
}

func readJar(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	be.Err(t, err, nil)
	defer zr.Close()
	out := make(map[string]string)
	for i, f := range zr.File {
		if i == 0 {
			be.Equal(t, f.Name, "META-INF/MANIFEST.MF")
		}
		rc, err := f.Open()
		be.Err(t, err, nil)
		data, err := io.ReadAll(rc)
		rc.Close()
		be.Err(t, err, nil)
		out[f.Name] = string(data)
	}
	return out
}

func TestJarSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "app.jar")
	sink := backend.NewJarSink(path, "app/Main")
	be.Err(t, sink.Write(artifacts), nil)

	entries := readJar(t, path)
	be.Equal(t, len(entries), 4)
	be.True(t, strings.Contains(entries["META-INF/MANIFEST.MF"], "Main-Class: app.Main\r\n"))
	be.Equal(t, entries["app/Main$Point.class"], string(artifacts[1].Bytes))
	_, err := os.Stat(path + ".tmp")
	be.True(t, os.IsNotExist(err))
}

func TestJarSink_Library(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.jar")
	be.Err(t, backend.NewJarSink(path, "").Write(artifacts), nil)
	manifest := readJar(t, path)["META-INF/MANIFEST.MF"]
	be.True(t, strings.HasPrefix(manifest, "Manifest-Version: 1.0\r\n"))
	be.Equal(t, strings.Contains(manifest, "Main-Class"), false)
}

func TestJarSink_Deterministic(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.jar"), filepath.Join(dir, "b.jar")
	be.Err(t, backend.NewJarSink(a, "app/Main").Write(artifacts), nil)
	be.Err(t, backend.NewJarSink(b, "app/Main").Write(artifacts), nil)
	da, err := os.ReadFile(a)
	be.Err(t, err, nil)
	db, err := os.ReadFile(b)
	be.Err(t, err, nil)
	be.True(t, bytes.Equal(da, db))
}

func TestJarSink_MissingMain(t *testing.T) {
	err := backend.NewJarSink(filepath.Join(t.TempDir(), "x.jar"), "app/Other").Write(artifacts)
	be.True(t, err != nil)
}
