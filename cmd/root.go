// Package cmd wires up the CLI flags and dispatches to the probe core.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"

	"zing/config"
	"zing/internal/core"
	zerr "zing/internal/errors"
	"zing/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X zing/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs a probe, writing results to stdout and
// diagnostics to stderr.
func Execute(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	inv, err := parse(args, stderr)
	if err != nil {
		return err
	}

	switch {
	case inv.showHelp:
		printUsage(stderr, inv.fs)
		return nil
	case inv.showVersion:
		fmt.Fprintf(stdout, "zing %s\n", version)
		return nil
	}

	cfg := inv.cfg
	if inv.dryRun {
		if err := cfg.Validate(); err != nil {
			return err
		}
		printConfig(stdout, cfg)
		return nil
	}

	// ── build components ─────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	logger.SetOutput(stderr)
	if cfg.ConfigFile != "" {
		logger.Info("loaded %s", cfg.ConfigFile)
	}
	logger.Debug("probing %s ports %v (%s), %d×%d, timeout %v",
		cfg.Host, cfg.Ports, cfg.Family, cfg.Cycles, cfg.Attempts, cfg.Timeout)

	mode, err := core.Build(cfg, logger, stdout)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

// ── parsing ──────────────────────────────────────────────────────────

// invocation is the parsed command line.
type invocation struct {
	fs          *flag.FlagSet
	cfg         *config.Config
	dryRun      bool
	showVersion bool
	showHelp    bool
}

// flagValues holds raw flag values.  They are applied over file and
// environment settings only when the flag was given explicitly.
type flagValues struct {
	ipv4, ipv6    bool
	cycles        int
	attempts      int
	timeoutMS     int
	ports         string
	failoverDelay time.Duration
	json          bool
	configPath    string
	verbose       int
}

// parse builds the run configuration.  Precedence (highest wins):
// flags, ZING_* environment, config file, defaults.
func parse(args []string, stderr io.Writer) (*invocation, error) {
	var fv flagValues
	inv := &invocation{}
	fs := flag.NewFlagSet("zing", flag.ContinueOnError)
	fs.SetOutput(stderr)
	inv.fs = fs

	// ── target ───────────────────────────────────────────────────
	fs.BoolVarP(&fv.ipv4, "ipv4", "4", false, "Use IPv4 addresses only")
	fs.BoolVarP(&fv.ipv6, "ipv6", "6", false, "Use IPv6 addresses only")
	fs.StringVarP(&fv.ports, "ports", "p", "", "Comma-separated port list, ranges allowed (required)")

	// ── measurement ──────────────────────────────────────────────
	fs.IntVarP(&fv.cycles, "count", "c", config.DefaultCycles, "Measurement cycles per port")
	fs.IntVarP(&fv.attempts, "ops", "o", config.DefaultAttempts, "Connection attempts per cycle (also -op)")
	fs.IntVarP(&fv.timeoutMS, "timeout", "t", int(config.DefaultTimeout/time.Millisecond), "Per-attempt timeout in milliseconds")
	fs.DurationVar(&fv.failoverDelay, "failover-delay", config.DefaultFailoverDelay, "Pause before trying the next address after a refusal")

	// ── output ───────────────────────────────────────────────────
	fs.BoolVar(&fv.json, "json", false, "Print the summary as JSON")
	fs.CountVarP(&fv.verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.StringVar(&fv.configPath, "config", "", "TOML config file (default $ZING_CONFIG)")
	fs.BoolVar(&inv.dryRun, "dry-run", false, "Validate and print the configuration without probing")
	fs.BoolVar(&inv.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&inv.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(stderr, fs) }

	if err := fs.Parse(normalizeArgs(args)); err != nil {
		return nil, err
	}
	if len(args) == 0 {
		inv.showHelp = true
	}
	if inv.showHelp || inv.showVersion {
		return inv, nil
	}

	// ── layers ───────────────────────────────────────────────────
	cfg := config.Default()
	path := fv.configPath
	if path == "" {
		path = config.ConfigPathFromEnv()
	}
	if path != "" {
		if err := config.LoadFile(path, cfg); err != nil {
			return nil, err
		}
		cfg.ConfigFile = path
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := fv.apply(fs, cfg); err != nil {
		return nil, err
	}

	// ── positional arguments ─────────────────────────────────────
	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		cfg.Host = rest[0]
	default:
		return nil, &zerr.ConfigError{
			Field:   "host",
			Value:   strings.Join(rest, " "),
			Message: "too many arguments",
			Hint:    "the host is the only positional argument; ports go in -p",
		}
	}

	inv.cfg = cfg
	return inv, nil
}

func (fv *flagValues) apply(fs *flag.FlagSet, cfg *config.Config) error {
	if fs.Changed("ipv4") || fs.Changed("ipv6") {
		fam, err := config.FamilyFromFlags(fv.ipv4, fv.ipv6)
		if err != nil {
			return err
		}
		cfg.Family = fam
	}
	if fs.Changed("ports") {
		if err := cfg.SetPorts(fv.ports); err != nil {
			return err
		}
	}
	if fs.Changed("count") {
		cfg.Cycles = fv.cycles
	}
	if fs.Changed("ops") {
		cfg.Attempts = fv.attempts
	}
	if fs.Changed("timeout") {
		cfg.Timeout = time.Duration(fv.timeoutMS) * time.Millisecond
	}
	if fs.Changed("failover-delay") {
		cfg.FailoverDelay = fv.failoverDelay
	}
	if fs.Changed("json") {
		cfg.JSON = fv.json
	}
	if fs.Changed("verbose") {
		cfg.Verbose = fv.verbose
	}
	return nil
}

// normalizeArgs rewrites the historical single-dash "-op N" spelling,
// which pflag would otherwise read as "-o p".
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		switch {
		case a == "--":
			copy(out[i:], args[i:])
			return out
		case a == "-op":
			a = "--ops"
		case strings.HasPrefix(a, "-op="):
			a = "--ops=" + strings.TrimPrefix(a, "-op=")
		}
		out[i] = a
	}
	return out
}

// ── output ───────────────────────────────────────────────────────────

func printConfig(w io.Writer, cfg *config.Config) {
	ports := make([]string, len(cfg.Ports))
	for i, p := range cfg.Ports {
		ports[i] = strconv.Itoa(p)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "host:\t%s\n", cfg.Host)
	fmt.Fprintf(tw, "ports:\t%s\n", strings.Join(ports, ","))
	fmt.Fprintf(tw, "family:\t%s\n", cfg.Family)
	fmt.Fprintf(tw, "cycles:\t%d\n", cfg.Cycles)
	fmt.Fprintf(tw, "attempts:\t%d\n", cfg.Attempts)
	fmt.Fprintf(tw, "timeout:\t%v\n", cfg.Timeout)
	fmt.Fprintf(tw, "failover-delay:\t%v\n", cfg.FailoverDelay)
	fmt.Fprintf(tw, "json:\t%v\n", cfg.JSON)
	if cfg.ConfigFile != "" {
		fmt.Fprintf(tw, "config:\t%s\n", cfg.ConfigFile)
	}
	tw.Flush()
}

func printUsage(w io.Writer, fs *flag.FlagSet) {
	fmt.Fprintf(w, `zing – zero-packet TCP latency probe v%s

Measures how long the TCP handshake to a host takes, port by port,
without sending any payload.

Usage:
  zing [-4|-6] [-c count] [-o ops] [-t timeout-ms] -p port[,port...] [host]
  zing -h | --version

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Examples:
  zing -p 80,443 1.1.1.1                     Two ports, default cycles
  zing -4 -c 6 -op 4 -t 3000 -p 80,443 example.com
  zing -p 8000-8005 --json localhost         Port range, JSON summary

Exit status: 0 success, 1 configuration or resolution error,
2 timeout or connection failure.
`)
}
