// Package commands provides the CLI command implementations for the shortener.
package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vsavik/url-shortener/cli/config"
	"github.com/vsavik/url-shortener/cli/styles"
	"github.com/vsavik/url-shortener/cli/ui"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// EnvPrefix prefixes environment overrides, e.g. SHORTENER_SLUG_GENERATOR.
const EnvPrefix = "SHORTENER"

// flagKeys maps persistent flags to config keys.
var flagKeys = map[string]string{
	"service-name":   "service.name",
	"slug-generator": "slug.generator",
	"slug-length":    "slug.length",
	"validator":      "validator.kind",
	"encoding":       "event_log.encoding",
	"log-level":      "logging.level",
	"log-format":     "logging.format",
	"metrics":        "telemetry.metrics",
	"trace":          "telemetry.tracing",
}

// NewRootCommand creates the root command for the shortener CLI.
func NewRootCommand() *cobra.Command {
	var (
		noColor    bool
		configPath string
	)

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:   "shortener",
		Short: "Event-sourced short links",
		Long: ui.SimpleBanner() + `

Create short links, follow them and read their statistics. Every change is
an event in an in-memory log. Statistics are a projection of that log.

` + styles.Title.Render("Quick Start:") + `

  ` + styles.Code.Render("shortener demo") + `      Run the walkthrough scenarios
  ` + styles.Code.Render("shortener shell") + `     Start an interactive session

` + styles.Title.Render("Configuration:") + `

  shortener.yaml in the working directory or a parent, --config, flags,
  and ` + EnvPrefix + `_* environment variables (e.g. ` + EnvPrefix + `_LOGGING_LEVEL).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				styles.DisableColors()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&noColor, "no-color", false, "Disable colored output")
	flags.StringVar(&configPath, "config", "", "Path to a config file (default: search for "+config.ConfigFileName+")")
	flags.String("service-name", "", "Service name used in logs, metrics and spans")
	flags.String("slug-generator", "", "Slug generator: random, uuid or timestamp")
	flags.Int("slug-length", 0, "Length of random slugs")
	flags.String("validator", "", "URL validator: basic or strict")
	flags.String("encoding", "", "Event payload encoding: json or msgpack")
	flags.String("log-level", "", "Log level: debug, info, warn or error")
	flags.String("log-format", "", "Log format: text or json")
	flags.Bool("metrics", false, "Collect Prometheus metrics")
	flags.Bool("trace", false, "Export OpenTelemetry spans to stderr")

	for flag, key := range flagKeys {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}

	loader := func() (*config.Config, error) {
		return resolveConfig(v, configPath)
	}

	rootCmd.AddCommand(NewDemoCommand(loader))
	rootCmd.AddCommand(NewShellCommand(loader))
	rootCmd.AddCommand(NewConfigCommand(loader))
	rootCmd.AddCommand(NewVersionCommand(Version, Commit, BuildDate))

	return rootCmd
}

// ConfigLoader resolves the effective configuration of a command.
type ConfigLoader func() (*config.Config, error)

// resolveConfig layers, lowest first: defaults, the config file, environment
// variables, flags.
func resolveConfig(v *viper.Viper, path string) (*config.Config, error) {
	cfg := config.DefaultConfig()

	switch {
	case path != "":
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	default:
		if wd, err := os.Getwd(); err == nil {
			_, found, err := config.FindConfig(wd)
			switch {
			case err == nil:
				cfg = found
			case !errors.Is(err, os.ErrNotExist):
				return nil, fmt.Errorf("load config: %w", err)
			}
		}
	}

	if v.IsSet("service.name") {
		cfg.Service.Name = v.GetString("service.name")
	}
	if v.IsSet("slug.generator") {
		cfg.Slug.Generator = v.GetString("slug.generator")
	}
	if v.IsSet("slug.length") {
		cfg.Slug.Length = v.GetInt("slug.length")
	}
	if v.IsSet("validator.kind") {
		cfg.Validator.Kind = v.GetString("validator.kind")
	}
	if v.IsSet("event_log.encoding") {
		cfg.EventLog.Encoding = v.GetString("event_log.encoding")
	}
	if v.IsSet("logging.level") {
		cfg.Logging.Level = v.GetString("logging.level")
	}
	if v.IsSet("logging.format") {
		cfg.Logging.Format = v.GetString("logging.format")
	}
	if v.IsSet("telemetry.metrics") {
		cfg.Telemetry.Metrics = v.GetBool("telemetry.metrics")
	}
	if v.IsSet("telemetry.tracing") {
		cfg.Telemetry.Tracing = v.GetBool("telemetry.tracing")
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// Execute runs the root command.
func Execute() error {
	return execute(NewRootCommand(), os.Stderr)
}

func execute(rootCmd *cobra.Command, errOut io.Writer) error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(errOut, styles.FormatError(err.Error()))
		return err
	}
	return nil
}
