// Package pipeline drives every unit through extract, resolve, compare,
// mutate and version bump, turning each unit's fate into a model.Outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/selimozcann/mainurlhunter/internal/declaration"
	"github.com/selimozcann/mainurlhunter/internal/detect"
	"github.com/selimozcann/mainurlhunter/internal/logger"
	"github.com/selimozcann/mainurlhunter/internal/manifest"
	"github.com/selimozcann/mainurlhunter/internal/model"
	"github.com/selimozcann/mainurlhunter/internal/resolver"
	"github.com/selimozcann/mainurlhunter/internal/runner"
	"github.com/selimozcann/mainurlhunter/internal/util"
)

// Resolver finds the domain a declared domain currently redirects to.
type Resolver interface {
	Resolve(ctx context.Context, domain string) (resolver.Resolution, error)
}

// Mutator rewrites a declaration file.
type Mutator interface {
	Mutate(path, oldURL, newDomain string) (declaration.MutationResult, error)
}

// Options configure a Pipeline.
type Options struct {
	DryRun bool
	// Runner schedules units; nil processes them one after another.
	Runner *runner.Runner
}

// Pipeline processes units independently. A failure in one unit never stops
// the others.
type Pipeline struct {
	log      logger.Logger
	resolver Resolver
	mutator  Mutator
	runner   *runner.Runner
	dryRun   bool
}

// New builds a Pipeline.
func New(log logger.Logger, res Resolver, mut Mutator, opts Options) *Pipeline {
	if log == nil {
		log = logger.NewNop()
	}
	r := opts.Runner
	if r == nil {
		r = runner.New(runner.Config{Workers: 1})
	}
	return &Pipeline{log: log, resolver: res, mutator: mut, runner: r, dryRun: opts.DryRun}
}

// Run processes units and returns one Outcome per unit in input order. Units
// not started before ctx was cancelled are reported as skipped.
func (p *Pipeline) Run(ctx context.Context, units []model.Unit) []model.Outcome {
	out := make([]model.Outcome, len(units))
	started := make([]bool, len(units))

	err := p.runner.Run(ctx, len(units), func(ctx context.Context, i int) {
		started[i] = true
		out[i] = p.Process(ctx, units[i])
	})
	if err != nil {
		p.log.Warn("Run interrupted, remaining units skipped", logger.Error(err))
		for i := range out {
			if !started[i] {
				out[i] = model.Outcome{Unit: units[i], Status: model.StatusSkipped, Strategy: model.StrategyNone, Reason: "cancelled: " + err.Error(), DryRun: p.dryRun}
			}
		}
	}
	return out
}

// Process runs a single unit to a terminal state. It never panics.
func (p *Pipeline) Process(ctx context.Context, unit model.Unit) (out model.Outcome) {
	start := time.Now()
	out = model.Outcome{Unit: unit, Status: model.StatusSkipped, Strategy: model.StrategyNone, DryRun: p.dryRun, StartedAt: start}
	log := p.log.With(logger.String("unit", unit.Name), logger.String("file", unit.DeclarationPath))

	defer func() {
		if r := recover(); r != nil {
			log.Error("Unit panicked", logger.Any("panic", r), logger.String("stack", string(debug.Stack())))
			out.Status = model.StatusFailed
			out.Reason = fmt.Sprintf("panic: %v", r)
		}
		out.DurationMs = time.Since(start).Milliseconds()
	}()

	log.Info("Checking")

	oldURL, err := declaration.Extract(unit.DeclarationPath)
	if err != nil {
		log.Warn("mainUrl not found", logger.Error(err))
		return skip(out, unit, "declaration.extract", err)
	}
	out.OldURL = oldURL

	oldDomain, err := util.NormalizeDomain(oldURL)
	if err != nil {
		log.Warn("mainUrl could not be parsed", logger.String("old_url", oldURL), logger.Error(err))
		return skip(out, unit, "pipeline.normalize", &model.OpError{Op: "util.normalize", Kind: model.KindExtraction, Err: err})
	}
	out.OldDomain = oldDomain
	log = log.With(logger.String("old_domain", oldDomain))

	if err := ctx.Err(); err != nil {
		return skip(out, unit, "pipeline.process", err)
	}

	res, err := p.resolver.Resolve(ctx, oldDomain)
	out.Chain = res.Trace.Chain
	out.Findings = append(out.Findings, res.Trace.Findings...)
	if err != nil {
		log.Warn("Could not be checked", logger.Error(err))
		return skip(out, unit, "resolver.resolve", err)
	}
	log.Info("Checked", logger.String("final_url", res.FinalURL))

	out.NewDomain = res.Domain
	if res.Domain == oldDomain {
		log.Debug("No change")
		out.Status = model.StatusUnchanged
		return out
	}
	log = log.With(logger.String("new_domain", res.Domain))

	if f := detect.HostCaseOnly(oldDomain, res.Domain); f != nil {
		log.Warn("Domains differ only in letter case", logger.String("detail", f.Detail))
		out.Findings = append(out.Findings, *f)
	}
	if f := detect.RegistrableDomainChange(oldDomain, res.Domain); f != nil {
		out.Findings = append(out.Findings, *f)
	}

	mr, err := p.mutator.Mutate(unit.DeclarationPath, oldURL, res.Domain)
	out.Strategy = mr.Strategy
	if err != nil {
		if errors.Is(err, declaration.ErrEmptyArgument) {
			return skip(out, unit, "declaration.mutate", err)
		}
		log.Error("Declaration update failed", logger.Error(err))
		out.Status = model.StatusFailed
		out.Reason = withUnit(unit, "declaration.mutate", model.KindMutation, err).Error()
		return out
	}
	if !mr.Changed {
		log.Info("Declaration not updated, no change detected")
		out.Status = model.StatusUnchanged
		out.Reason = "declaration content unchanged"
		return out
	}

	out.Status = model.StatusUpdated
	if !mr.Written {
		out.Reason = "dry run"
		if current, err := manifest.ReadVersion(unit.ManifestPath); err == nil {
			out.Reason = fmt.Sprintf("dry run, version would become %d", current+1)
		}
		log.Info("Would update", logger.String("old_url", oldURL), logger.String("strategy", string(mr.Strategy)))
		return out
	}

	version, err := manifest.BumpVersion(unit.ManifestPath)
	if err != nil {
		log.Warn("Version not bumped", logger.String("manifest", unit.ManifestPath), logger.Error(err))
		out.Reason = "version not bumped: " + err.Error()
		log.Info("Updated", logger.String("old_url", oldURL), logger.String("version", "none"))
		return out
	}
	out.NewVersion = &version
	log.Info("Updated", logger.String("old_url", oldURL), logger.Int("version", version))
	return out
}

func skip(out model.Outcome, unit model.Unit, op string, err error) model.Outcome {
	out.Status = model.StatusSkipped
	out.Reason = withUnit(unit, op, kindOf(err), err).Error()
	return out
}

// withUnit attaches the unit name to err, reusing an existing OpError.
func withUnit(unit model.Unit, op string, kind model.ErrorKind, err error) error {
	var oe *model.OpError
	if errors.As(err, &oe) {
		cp := *oe
		cp.Unit = unit.Name
		return &cp
	}
	return &model.OpError{Op: op, Kind: kind, Unit: unit.Name, Err: err}
}

func kindOf(err error) model.ErrorKind {
	var oe *model.OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return model.KindResolution
}
