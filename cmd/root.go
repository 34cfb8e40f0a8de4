// Package cmd implements the mainurlhunter command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/selimozcann/mainurlhunter/internal/config"
)

// ErrUnitsFailed is returned in strict mode when at least one unit failed.
var ErrUnitsFailed = errors.New("units failed")

// Execute runs the root command until it finishes or SIGINT/SIGTERM arrives.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCommand().ExecuteContext(ctx)
}

// NewRootCommand builds the command tree with its own configuration state.
func NewRootCommand() *cobra.Command {
	v := config.New()
	var cfgFile string

	root := &cobra.Command{
		Use:   "mainurlhunter",
		Short: "Follow plugin mainUrl redirects and update moved domains",
		Long: `mainurlhunter walks a directory of plugin units, probes each unit's
declared mainUrl, follows the redirect chain and, when the domain moved,
rewrites the declaration and bumps the version in build.gradle.kts.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUpdate(cmd, v, cfgFile)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ./mainurlhunter.yaml)")
	pf.Bool("debug", false, "enable debug logging")
	pf.Duration("timeout", config.DefaultTimeout, "per-request timeout")
	pf.Int("max-redirects", config.DefaultMaxRedirects, "maximum redirect hops")
	pf.Bool("follow-client-redirects", false, "also follow meta refresh and JavaScript redirects")
	pf.StringArrayP("header", "H", nil, "extra request header \"Key: Value\" (repeatable)")
	pf.String("log-format", "", "log format: console or json")

	f := root.Flags()
	f.StringP("dir", "d", ".", "directory containing the plugin units")
	f.StringSlice("exclude", nil, "unit names or glob patterns to skip (replaces the default list)")
	f.IntP("workers", "w", 1, "units processed concurrently")
	f.Float64("rate-limit", 0, "units started per second, 0 for no limit")
	f.Bool("dry-run", false, "report what would change without writing")
	f.Bool("strict", false, "exit non-zero when any unit failed")
	f.String("jsonl", "", "write a JSONL report to this path")
	f.String("html", "", "write an HTML report to this path")
	f.Bool("no-banner", false, "do not print the banner")

	bindFlags(root, v)

	root.AddCommand(newProbeCommand(v, &cfgFile))
	root.AddCommand(newVersionCommand())
	return root
}

var flagKeys = map[string]string{
	"dir":                     "base_dir",
	"exclude":                 "excluded_units",
	"workers":                 "workers",
	"rate-limit":              "rate_limit",
	"dry-run":                 "dry_run",
	"strict":                  "strict",
	"jsonl":                   "report.jsonl",
	"html":                    "report.html",
	"timeout":                 "http.timeout",
	"max-redirects":           "http.max_redirects",
	"follow-client-redirects": "http.follow_client_redirects",
	"log-format":              "log.format",
}

// bindFlags binds command-line flags to Viper keys. A flag only wins over
// file and environment values when it was set explicitly.
func bindFlags(root *cobra.Command, v *viper.Viper) {
	for name, key := range flagKeys {
		var fl *pflag.Flag
		if fl = root.Flags().Lookup(name); fl == nil {
			fl = root.PersistentFlags().Lookup(name)
		}
		if err := v.BindPFlag(key, fl); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}

// loadConfig loads the configuration and applies flags that have no direct
// Viper key.
func loadConfig(cmd *cobra.Command, v *viper.Viper, cfgFile string) (*config.Config, error) {
	cfg, err := config.Load(v, cfgFile)
	if err != nil {
		return nil, err
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Log.Level = "debug"
	}
	if noBanner, _ := cmd.Flags().GetBool("no-banner"); noBanner {
		cfg.Banner = false
	}
	headers, _ := cmd.Flags().GetStringArray("header")
	if err := mergeHeaders(cfg, headers); err != nil {
		return nil, err
	}
	return cfg, nil
}
