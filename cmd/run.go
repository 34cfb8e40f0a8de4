package cmd

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/selimozcann/mainurlhunter/internal/banner"
	"github.com/selimozcann/mainurlhunter/internal/config"
	"github.com/selimozcann/mainurlhunter/internal/declaration"
	"github.com/selimozcann/mainurlhunter/internal/discovery"
	"github.com/selimozcann/mainurlhunter/internal/httpclient"
	"github.com/selimozcann/mainurlhunter/internal/logger"
	"github.com/selimozcann/mainurlhunter/internal/output"
	"github.com/selimozcann/mainurlhunter/internal/pipeline"
	"github.com/selimozcann/mainurlhunter/internal/resolver"
	"github.com/selimozcann/mainurlhunter/internal/runner"
	"github.com/selimozcann/mainurlhunter/internal/trace"
)

func runUpdate(cmd *cobra.Command, v *viper.Viper, cfgFile string) (err error) {
	cfg, err := loadConfig(cmd, v, cfgFile)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if syncErr := log.Sync(); syncErr != nil && err == nil {
			err = fmt.Errorf("sync logger: %w", syncErr)
		}
	}()
	log = log.With(logger.String("run_id", runID))

	out := cmd.OutOrStdout()
	if cfg.Banner {
		banner.Print(out, Version, runID, cfg.BaseDir)
	}

	res, err := newResolver(cfg, log)
	if err != nil {
		return err
	}
	p := pipeline.New(log, res, declaration.NewMutator(log, cfg.DryRun), pipeline.Options{
		DryRun: cfg.DryRun,
		Runner: runner.New(runner.Config{Workers: cfg.Workers, RateLimit: cfg.RateLimit}),
	})

	units := discovery.Discover(cfg.BaseDir, cfg.ExcludedUnits, log)
	log.Info("Run started",
		logger.String("base_dir", cfg.BaseDir),
		logger.Int("units", len(units)),
		logger.Int("workers", cfg.Workers),
		logger.Bool("dry_run", cfg.DryRun))

	started := time.Now()
	outcomes := p.Run(cmd.Context(), units)

	for _, o := range outcomes {
		output.PrintOutcome(out, o)
	}
	summary := output.BuildSummary(outcomes)
	output.PrintSummary(out, summary)
	log.Info("Run finished",
		logger.Int("updated", summary.Updated),
		logger.Int("unchanged", summary.Unchanged),
		logger.Int("skipped", summary.Skipped),
		logger.Int("failed", summary.Failed),
		logger.Duration("took", time.Since(started)))

	if err := writeReports(cfg, runID, outcomes, summary, log); err != nil {
		return err
	}

	if cfg.Strict && summary.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrUnitsFailed, summary.Failed, summary.Total)
	}
	return nil
}

func newLogger(cfg *config.Config) (logger.Logger, error) {
	lc := cfg.Log
	lc.Color = lc.Color || !color.NoColor
	log, err := logger.New(lc)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log, nil
}

func newResolver(cfg *config.Config, log logger.Logger) (*resolver.Resolver, error) {
	hc, err := cfg.HTTPClientConfig()
	if err != nil {
		return nil, err
	}
	tracer := trace.New(httpclient.New(hc))
	return resolver.New(tracer, trace.Options{
		MaxChain:   cfg.HTTP.MaxRedirects,
		ClientSide: cfg.HTTP.FollowClientRedirects,
	}, log), nil
}

// mergeHeaders adds "Key: Value" pairs given on the command line to the
// configured headers.
func mergeHeaders(cfg *config.Config, raw []string) error {
	if len(raw) == 0 {
		return nil
	}
	if cfg.HTTP.Headers == nil {
		cfg.HTTP.Headers = make(map[string]string, len(raw))
	}
	for _, h := range raw {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid header %q (expected Key: Value)", h)
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			return fmt.Errorf("invalid header %q (empty key)", h)
		}
		cfg.HTTP.Headers[http.CanonicalHeaderKey(key)] = strings.TrimSpace(parts[1])
	}
	return nil
}
