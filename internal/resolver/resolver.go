// Package resolver follows a domain's redirect chain and reports the
// normalized domain it finally lands on.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/selimozcann/mainurlhunter/internal/detect"
	"github.com/selimozcann/mainurlhunter/internal/logger"
	"github.com/selimozcann/mainurlhunter/internal/model"
	"github.com/selimozcann/mainurlhunter/internal/trace"
	"github.com/selimozcann/mainurlhunter/internal/util"
)

var (
	// ErrUnresolved is returned when no final domain could be determined.
	ErrUnresolved = errors.New("domain could not be resolved")
	// ErrInternalTarget is returned when the chain leaves a public host for
	// an internal one.
	ErrInternalTarget = errors.New("redirect leads to an internal host")
	// ErrUnsettled is returned when the chain loops or exceeds the hop limit
	// without reaching a final page.
	ErrUnsettled = errors.New("redirect chain did not settle")
)

// Resolution is the result of probing one domain.
type Resolution struct {
	// FinalURL is the last URL of the chain with trailing slashes removed.
	FinalURL string
	// Domain is FinalURL normalized to scheme://host[:port].
	Domain string
	Trace  model.Trace
}

// Resolver probes domains with a single GET per hop and no retries of its
// own; a failed probe leaves the unit for the next run.
type Resolver struct {
	tracer *trace.Tracer
	opts   trace.Options
	log    logger.Logger
}

// New returns a Resolver.
func New(tracer *trace.Tracer, opts trace.Options, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.NewNop()
	}
	return &Resolver{tracer: tracer, opts: opts, log: log}
}

// Resolve follows domain's redirects and normalizes the final location. The
// returned Resolution carries the trace even when an error is returned.
func (r *Resolver) Resolve(ctx context.Context, domain string) (Resolution, error) {
	tr := r.tracer.Trace(ctx, domain, r.opts)
	res := Resolution{Trace: tr}

	if tr.Error != "" {
		r.log.Error("Probe failed", logger.String("domain", domain), logger.String("error", tr.Error))
		return res, unresolved(domain, fmt.Errorf("%w: %s", ErrUnresolved, tr.Error))
	}
	if len(tr.Chain) == 0 {
		return res, unresolved(domain, ErrUnresolved)
	}
	r.log.Info("Probed", logger.String("domain", domain), logger.Int("hops", len(tr.Chain)), logger.Int("status", tr.Chain[len(tr.Chain)-1].Status))

	if f, blocked := detect.HasBlocking(tr.Findings); blocked {
		r.log.Warn("Redirect target refused", logger.String("domain", domain), logger.String("detail", f.Detail))
		return res, unresolved(domain, fmt.Errorf("%w: %s", ErrInternalTarget, f.Detail))
	}

	if f, unsettled := detect.Unsettled(tr.Findings); unsettled || !tr.Chain[len(tr.Chain)-1].Final {
		detail := f.Type + " " + f.Detail
		if !unsettled {
			detail = "last hop is not final"
		}
		r.log.Warn("Redirect chain did not settle", logger.String("domain", domain), logger.String("detail", detail))
		return res, unresolved(domain, fmt.Errorf("%w: %w: %s", ErrUnresolved, ErrUnsettled, detail))
	}

	res.FinalURL = strings.TrimRight(tr.FinalURL(), "/")
	normalized, err := util.NormalizeDomain(res.FinalURL)
	if err != nil {
		r.log.Warn("Final URL could not be normalized", logger.String("domain", domain), logger.String("final_url", res.FinalURL), logger.Error(err))
		return res, unresolved(domain, fmt.Errorf("%w: %w", ErrUnresolved, err))
	}
	res.Domain = normalized
	return res, nil
}

func unresolved(domain string, err error) error {
	return &model.OpError{Op: "resolver.resolve", Kind: model.KindResolution, Path: domain, Err: err}
}
