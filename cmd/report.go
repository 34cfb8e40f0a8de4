package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/selimozcann/mainurlhunter/internal/config"
	"github.com/selimozcann/mainurlhunter/internal/logger"
	"github.com/selimozcann/mainurlhunter/internal/model"
	"github.com/selimozcann/mainurlhunter/internal/output"
)

func writeReports(cfg *config.Config, runID string, outcomes []model.Outcome, summary output.Summary, log logger.Logger) error {
	if cfg.Report.JSONL != "" {
		records := make([]output.Record, len(outcomes))
		for i, o := range outcomes {
			records[i] = output.BuildRecord(runID, o)
		}
		if err := writeJSONLFile(cfg.Report.JSONL, records); err != nil {
			return err
		}
		log.Info("JSONL report written", logger.String("path", cfg.Report.JSONL))
	}
	if cfg.Report.HTML != "" {
		views := make([]output.OutcomeView, len(outcomes))
		for i, o := range outcomes {
			views[i] = output.BuildOutcomeView(i, o)
		}
		page := output.PageData{
			Title:       "mainurlhunter Report",
			RunID:       runID,
			GeneratedAt: time.Now().UTC(),
			Params:      buildParamsMap(cfg),
			Summary:     summary,
			Outcomes:    views,
		}
		if err := ensureDir(cfg.Report.HTML); err != nil {
			return fmt.Errorf("create HTML directory: %w", err)
		}
		if err := output.WriteHTMLFile(cfg.Report.HTML, page); err != nil {
			return err
		}
		log.Info("HTML report written", logger.String("path", cfg.Report.HTML))
	}
	return nil
}

func writeJSONLFile(path string, records []output.Record) error {
	if err := ensureDir(path); err != nil {
		return fmt.Errorf("create JSONL directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create JSONL file: %w", err)
	}
	defer f.Close()
	if err := output.WriteJSONL(f, records); err != nil {
		return fmt.Errorf("write JSONL: %w", err)
	}
	return nil
}

func buildParamsMap(cfg *config.Config) map[string]string {
	params := map[string]string{
		"base_dir":                cfg.BaseDir,
		"excluded_units":          strings.Join(cfg.ExcludedUnits, ", "),
		"workers":                 strconv.Itoa(cfg.Workers),
		"rate_limit":              strconv.FormatFloat(cfg.RateLimit, 'f', -1, 64),
		"dry_run":                 strconv.FormatBool(cfg.DryRun),
		"timeout":                 cfg.HTTP.Timeout.String(),
		"max_redirects":           strconv.Itoa(cfg.HTTP.MaxRedirects),
		"retries":                 strconv.Itoa(cfg.HTTP.Retries),
		"follow_client_redirects": strconv.FormatBool(cfg.HTTP.FollowClientRedirects),
	}
	if cfg.HTTP.Proxy != "" {
		params["proxy"] = cfg.HTTP.Proxy
	}
	if len(cfg.HTTP.Headers) > 0 {
		keys := make([]string, 0, len(cfg.HTTP.Headers))
		for k := range cfg.HTTP.Headers {
			keys = append(keys, k)
		}
		params["headers"] = strings.Join(keys, ", ")
	}
	return params
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
