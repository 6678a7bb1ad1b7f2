// Package cli implements the sasq command.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/funvibe/sasquach/internal/backend"
	"github.com/funvibe/sasquach/internal/buildcache"
	"github.com/funvibe/sasquach/internal/classfile"
	"github.com/funvibe/sasquach/internal/config"
	"github.com/funvibe/sasquach/internal/foreign"
	"github.com/funvibe/sasquach/internal/modules"
	"github.com/funvibe/sasquach/internal/parser"
	"github.com/funvibe/sasquach/internal/prettyprinter"
	"github.com/funvibe/sasquach/internal/session"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1 // compile errors or failed I/O
	ExitUsage = 2
)

const usage = `usage:
  sasq build [-config file] [-o dir | -jar file] [-main class] [-cache db] [-v] [sources...]
  sasq check [-config file] [-v] [sources...]
  sasq javap file.class...
  sasq print file.sasq...
  sasq version
`

var log = commonlog.GetLogger("sasquach.cli")

// errUsage marks errors that are the caller's fault; they print the usage.
var errUsage = errors.New("usage")

// Run executes the command line args (without the program name) and returns
// the exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return ExitUsage
	}
	var err error
	switch args[0] {
	case "build":
		err = handleBuild(args[1:], stdout, stderr, true)
	case "check":
		err = handleBuild(args[1:], stdout, stderr, false)
	case "javap":
		err = handleJavap(args[1:], stdout)
	case "print":
		err = handlePrint(args[1:], stdout, stderr)
	case "version", "-version", "--version":
		fmt.Fprintln(stdout, "sasq "+config.Version)
	case "help", "-help", "--help", "-h":
		fmt.Fprint(stdout, usage)
	default:
		err = fmt.Errorf("%w: unknown command %q", errUsage, args[0])
	}
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, errFailed):
		return ExitError
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "sasq: %s\n%s", strings.TrimPrefix(err.Error(), "usage: "), usage)
		return ExitUsage
	}
	fmt.Fprintf(stderr, "sasq: %s\n", err)
	return ExitError
}

// errFailed means diagnostics were already printed.
var errFailed = errors.New("compilation failed")

type buildFlags struct {
	config  string
	out     string
	jar     string
	main    string
	cache   string
	verbose bool
}

func (f *buildFlags) register(fs *flag.FlagSet, build bool) {
	fs.StringVar(&f.config, "config", "", "project file (default: nearest "+config.ConfigFileName+")")
	fs.BoolVar(&f.verbose, "v", false, "verbose logging")
	if !build {
		return
	}
	fs.StringVar(&f.out, "o", "", "class output directory")
	fs.StringVar(&f.jar, "jar", "", "write a jar instead of a class directory")
	fs.StringVar(&f.main, "main", "", "Main-Class of the jar, e.g. app/Main")
	fs.StringVar(&f.cache, "cache", "", "build cache database")
}

// project merges the config file, if any, with the command line. Flags win.
func (f *buildFlags) project(files []string) (*config.Config, error) {
	path := f.config
	if path == "" && len(files) == 0 {
		found, err := config.FindConfig(".")
		if err != nil {
			return nil, err
		}
		path = found
	}
	cfg := &config.Config{}
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		log.Infof("using %s", path)
	}
	if len(files) > 0 {
		cfg = cfg.WithSources(files)
	}
	if len(cfg.Sources) == 0 {
		return nil, fmt.Errorf("%w: no sources given and no %s found", errUsage, config.ConfigFileName)
	}
	if f.out != "" {
		cfg.Out, cfg.Jar, cfg.Main = f.out, "", ""
	}
	if f.jar != "" {
		cfg.Jar, cfg.Out = f.jar, ""
	}
	if f.main != "" {
		cfg.Main = f.main
	}
	if f.cache != "" {
		cfg.Cache = f.cache
	}
	if f.out != "" && f.jar != "" {
		return nil, fmt.Errorf("%w: -o and -jar are mutually exclusive", errUsage)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s", errUsage, err)
	}
	return cfg, nil
}

func handleBuild(args []string, stdout, stderr io.Writer, build bool) error {
	name := "check"
	if build {
		name = "build"
	}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	var flags buildFlags
	flags.register(fs, build)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("%w: %s", errUsage, err)
	}
	if flags.verbose {
		commonlog.Configure(2, nil)
	} else {
		commonlog.Configure(0, nil)
	}

	cfg, err := flags.project(fs.Args())
	if err != nil {
		return err
	}
	sources, err := modules.Load(cfg.ResolveAll(cfg.Sources)...)
	if err != nil {
		return err
	}

	foreignPaths := append(cfg.ResolveAll(cfg.Foreign.Index), cfg.ResolveAll(cfg.Foreign.Classpath)...)
	ns, err := namespace(foreignPaths)
	if err != nil {
		return err
	}
	opts := session.Options{Namespace: ns, CacheSalt: strings.Join(foreignPaths, "\x00")}
	if build && cfg.Cache != "" {
		cache, err := buildcache.Open(cfg.Resolve(cfg.Cache))
		if err != nil {
			return err
		}
		defer cache.Close()
		opts.Cache = cache
	}

	s, err := session.Open(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	res, err := s.Compile(ctx, sources)
	if err != nil {
		return err
	}

	printDiagnostics(stderr, res.Diagnostics, useColor(stderr))
	for _, m := range res.Modules {
		log.Infof("%s (%s): %s", m.Name, m.File, describeStatus(m))
	}
	if res.Diagnostics.HasErrors() {
		return errFailed
	}
	if !build {
		return nil
	}

	var sink backend.Sink
	if cfg.Jar != "" {
		sink = backend.NewJarSink(cfg.Resolve(cfg.Jar), cfg.Main)
	} else {
		sink = backend.NewDirSink(cfg.Resolve(cfg.Out))
	}
	if err := sink.Write(res.Artifacts); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %d classes to %s\n", len(res.Artifacts), sink.Name())
	return nil
}

func describeStatus(m session.ModuleResult) string {
	if m.Cached {
		return m.Status.String() + ", cached"
	}
	return m.Status.String()
}

// namespace layers the configured foreign class sources over the JDK index.
func namespace(paths []string) (foreign.Namespace, error) {
	jdk, err := foreign.LoadJDK()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return jdk, nil
	}
	return foreign.LoadAll(jdk, paths)
}

func handleJavap(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: javap needs at least one class file", errUsage)
	}
	for i, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		cf, err := classfile.Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprint(stdout, classfile.Disassemble(cf))
	}
	return nil
}

// handlePrint parses each file and prints it back in canonical form, with
// pipes desugared and comments dropped.
func handlePrint(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: print needs at least one source file", errUsage)
	}
	failed := false
	for i, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		mod, diags := parser.Parse(path, string(data))
		if len(diags) > 0 {
			printDiagnostics(stderr, diags, useColor(stderr))
			failed = true
			continue
		}
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprint(stdout, prettyprinter.Print(mod))
	}
	if failed {
		return errFailed
	}
	return nil
}
