package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/atomicstack/menu-hud/internal/app"
	"github.com/atomicstack/menu-hud/internal/backend"
)

// Config captures runtime configuration for the application.
type Config struct {
	App      app.Config
	Logging  Logging
	Features Features
	Flags    map[string]string
	Args     []string
}

type Logging struct {
	FilePath string
	Trace    bool
}

type Features struct {
	Verbose bool
}

const (
	envWindow     = "MENU_HUD_WINDOW"
	envBusAddress = "MENU_HUD_BUS_ADDRESS"
	envTimeout    = "MENU_HUD_TIMEOUT"
	envInterval   = "MENU_HUD_INTERVAL"
	envWidth      = "MENU_HUD_WIDTH"
	envHeight     = "MENU_HUD_HEIGHT"
	envShowFooter = "MENU_HUD_FOOTER"
	envVerbose    = "MENU_HUD_VERBOSE"
	envTrace      = "MENU_HUD_TRACE"
	envLogFile    = "MENU_HUD_LOG_FILE"

	defaultTimeout = 2 * time.Second
)

// Load parses configuration from CLI arguments and environment variables.
func Load() (Config, error) {
	return LoadArgs(os.Args[1:], os.Environ())
}

// LoadArgs allows tests to supply specific args/environment.
func LoadArgs(args []string, environ []string) (Config, error) {
	env := parseEnv(environ)

	fs := flag.NewFlagSet("menu-hud", flag.ContinueOnError)
	fs.SetOutput(new(strings.Builder))

	windowID := fs.String("window", envOrDefault(env, envWindow, ""), "X11 window id to inspect (defaults to the active window)")
	busAddress := fs.String("bus-address", envOrDefault(env, envBusAddress, ""), "D-Bus address to connect to (defaults to the session bus)")
	timeout := fs.Duration("timeout", envOrDuration(env, envTimeout, defaultTimeout), "per-call timeout for remote menu requests")
	interval := fs.Duration("interval", envOrDuration(env, envInterval, backend.DefaultInterval), "how often the HUD checks the menu for changes")
	width := fs.Int("width", envOrInt(env, envWidth, 0), "desired viewport width in cells (0 uses terminal width)")
	height := fs.Int("height", envOrInt(env, envHeight, 0), "desired viewport height in rows (0 uses terminal height)")
	footer := fs.Bool("footer", envOrBool(env, envShowFooter, false), "enable footer hint row (disabled by default)")
	dump := fs.Bool("dump", false, "print the menu tree and exit")
	list := fs.Bool("list", false, "print the menu items as a table and exit")
	query := fs.String("query", "", "print the menu items matching a fuzzy query and exit")
	trace := fs.Bool("trace", envOrBool(env, envTrace, false), "enable verbose JSON trace logging")
	verbose := fs.Bool("verbose", envOrBool(env, envVerbose, false), "print success messages for activations")
	logFile := fs.String("log-file", envOrDefault(env, envLogFile, ""), "path to the log file")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if fs.NArg() > 0 {
		return Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg := Config{
		App: app.Config{
			BusAddress: *busAddress,
			WindowID:   *windowID,
			Timeout:    *timeout,
			Interval:   *interval,
			Width:      *width,
			Height:     *height,
			ShowFooter: *footer,
			Verbose:    *verbose,
			Dump:       *dump,
			List:       *list,
			Query:      strings.TrimSpace(*query),
		},
		Logging: Logging{
			FilePath: *logFile,
			Trace:    *trace,
		},
		Features: Features{
			Verbose: *verbose,
		},
		Flags: map[string]string{
			"window":     *windowID,
			"busAddress": *busAddress,
			"timeout":    timeout.String(),
			"interval":   interval.String(),
			"width":      strconv.Itoa(*width),
			"height":     strconv.Itoa(*height),
			"footer":     strconv.FormatBool(*footer),
			"dump":       strconv.FormatBool(*dump),
			"list":       strconv.FormatBool(*list),
			"query":      *query,
			"trace":      strconv.FormatBool(*trace),
			"verbose":    strconv.FormatBool(*verbose),
			"logFile":    *logFile,
		},
		Args: append([]string(nil), args...),
	}

	return cfg, Validate(cfg)
}

func parseEnv(environ []string) map[string]string {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			continue
		}
		values[parts[0]] = parts[1]
	}
	return values
}

func envOrDefault(env map[string]string, key, fallback string) string {
	if v, ok := env[key]; ok {
		return v
	}
	return fallback
}

func envOrInt(env map[string]string, key string, fallback int) int {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrBool(env map[string]string, key string, fallback bool) bool {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDuration(env map[string]string, key string, fallback time.Duration) time.Duration {
	v, ok := env[key]
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// MustLoad returns configuration or exits.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(2)
	}
	return cfg
}

// Validate rejects option combinations the application cannot honour.
func Validate(cfg Config) error {
	a := cfg.App
	if a.Width < 0 {
		return fmt.Errorf("width must be >= 0 (got %d)", a.Width)
	}
	if a.Height < 0 {
		return fmt.Errorf("height must be >= 0 (got %d)", a.Height)
	}
	if a.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0 (got %s)", a.Timeout)
	}
	if a.Interval < 0 {
		return fmt.Errorf("interval must be >= 0 (got %s)", a.Interval)
	}
	modes := 0
	for _, set := range []bool{a.Dump, a.List, a.Query != ""} {
		if set {
			modes++
		}
	}
	if modes > 1 {
		return fmt.Errorf("-dump, -list and -query are mutually exclusive")
	}
	return nil
}
