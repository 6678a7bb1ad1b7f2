package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents a sasquach.yaml project file.
type Config struct {
	// Sources lists source files or directories, relative to the config file.
	Sources []string `yaml:"sources"`

	// Out is the class output directory. Mutually exclusive with Jar.
	Out string `yaml:"out,omitempty"`

	// Jar writes all classes into a single jar instead of a directory.
	Jar string `yaml:"jar,omitempty"`

	// Main is the internal class name recorded as the jar's Main-Class
	// (e.g. "app/Main").
	Main string `yaml:"main,omitempty"`

	// Foreign configures where host classes are looked up.
	Foreign Foreign `yaml:"foreign,omitempty"`

	// Cache is the path of the sqlite build cache. Empty disables caching.
	Cache string `yaml:"cache,omitempty"`

	// dir is the directory holding the config file; relative paths resolve against it.
	dir  string
	path string
}

// Foreign lists host class sources layered over the built-in JDK index.
type Foreign struct {
	// Index lists class index files in YAML (.yaml, .yml) or TOML (.toml).
	Index []string `yaml:"index,omitempty"`

	// Classpath lists directories and jars whose .class files are indexed.
	Classpath []string `yaml:"classpath,omitempty"`
}

// LoadConfig reads and parses a sasquach.yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses sasquach.yaml content from bytes.
// The path argument is used for error messages and to resolve relative paths.
func ParseConfig(data []byte, path string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.path = path
	cfg.dir = filepath.Dir(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FindConfig searches for sasquach.yaml starting from dir and walking up
// to parent directories. It returns "" without error when none exists.
func FindConfig(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Validate checks the settings and fills in the default output directory.
func (c *Config) Validate() error {
	path := c.path
	if path == "" {
		path = "command line"
	}
	if len(c.Sources) == 0 {
		return fmt.Errorf("%s: no sources defined", path)
	}
	for i, src := range c.Sources {
		if src == "" {
			return fmt.Errorf("%s: sources[%d]: empty path", path, i)
		}
	}
	if c.Out != "" && c.Jar != "" {
		return fmt.Errorf("%s: out and jar are mutually exclusive", path)
	}
	if c.Main != "" && c.Jar == "" {
		return fmt.Errorf("%s: main is only valid with jar", path)
	}
	c.setDefaults()
	return nil
}

// WithSources returns a copy of c that compiles files instead of the
// configured sources. files are relative to the working directory.
func (c *Config) WithSources(files []string) *Config {
	out := *c
	out.Sources = make([]string, len(files))
	for i, f := range files {
		if abs, err := filepath.Abs(f); err == nil {
			f = abs
		}
		out.Sources[i] = f
	}
	return &out
}

func (c *Config) setDefaults() {
	if c.Out == "" && c.Jar == "" {
		c.Out = filepath.Join("build", "classes")
	}
}

// Resolve returns p relative to the config file's directory.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// ResolveAll applies Resolve to every path.
func (c *Config) ResolveAll(paths []string) []string {
	out := make([]string, len(paths))
	for i, p := range paths {
		out[i] = c.Resolve(p)
	}
	return out
}
