package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nalgeon/be"
)

func TestParseConfig_ValidMinimal(t *testing.T) {
	yaml := `
sources: [src]
`
	cfg, err := ParseConfig([]byte(yaml), "test.yaml")
	be.Err(t, err, nil)
	be.Equal(t, cfg.Sources, []string{"src"})
	be.Equal(t, cfg.Out, filepath.Join("build", "classes"))
	be.Equal(t, cfg.Jar, "")
}

func TestParseConfig_Full(t *testing.T) {
	yaml := `
sources: [src, lib/extra.sasq]
jar: build/app.jar
main: app/Main
foreign:
  index: [foreign.yaml, extra.toml]
  classpath: [lib/dep.jar]
cache: .sasquach/cache.db
`
	cfg, err := ParseConfig([]byte(yaml), filepath.Join("proj", "sasquach.yaml"))
	be.Err(t, err, nil)
	be.Equal(t, cfg.Out, "")
	be.Equal(t, cfg.Jar, "build/app.jar")
	be.Equal(t, cfg.Main, "app/Main")
	be.Equal(t, cfg.Foreign.Index, []string{"foreign.yaml", "extra.toml"})
	be.Equal(t, cfg.Resolve(cfg.Cache), filepath.Join("proj", ".sasquach", "cache.db"))
	be.Equal(t, cfg.ResolveAll(cfg.Sources)[0], filepath.Join("proj", "src"))
}

func TestParseConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no sources", `out: x`, "no sources defined"},
		{"empty source", `sources: [""]`, "sources[0]: empty path"},
		{"out and jar", "sources: [a]\nout: x\njar: y.jar", "mutually exclusive"},
		{"main without jar", "sources: [a]\nmain: app/Main", "only valid with jar"},
		{"bad yaml", "sources: [a", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.yaml), "test.yaml")
			be.Err(t, err, tt.want)
		})
	}
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	be.Err(t, os.MkdirAll(nested, 0o755), nil)

	found, err := FindConfig(nested)
	be.Err(t, err, nil)
	be.Equal(t, found, "")

	cfgPath := filepath.Join(root, ConfigFileName)
	be.Err(t, os.WriteFile(cfgPath, []byte("sources: [src]\n"), 0o644), nil)

	found, err = FindConfig(nested)
	be.Err(t, err, nil)
	be.Equal(t, found, cfgPath)

	cfg, err := LoadConfig(found)
	be.Err(t, err, nil)
	be.Equal(t, cfg.Resolve("src"), filepath.Join(root, "src"))
}

func TestConfig_WithSources(t *testing.T) {
	cfg, err := ParseConfig([]byte("sources: [src]\njar: app.jar\n"), filepath.Join("proj", ConfigFileName))
	be.Err(t, err, nil)
	cli := cfg.WithSources([]string{"main.sasq"})
	be.Equal(t, cfg.Sources, []string{"src"})
	be.True(t, filepath.IsAbs(cli.Sources[0]))
	be.Equal(t, cli.Resolve(cli.Sources[0]), cli.Sources[0])
	be.Equal(t, cli.Resolve(cli.Jar), filepath.Join("proj", "app.jar"))
}

func TestConfig_ValidateCommandLine(t *testing.T) {
	cfg := &Config{Sources: []string{"a.sasq"}}
	be.Err(t, cfg.Validate(), nil)
	be.Equal(t, cfg.Out, filepath.Join("build", "classes"))

	cfg = &Config{}
	be.Err(t, cfg.Validate(), "command line: no sources defined")
}
