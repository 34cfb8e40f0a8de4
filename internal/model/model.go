package model

import "time"

// Hop represents a single step in a redirect chain.
type Hop struct {
	Index  int    `json:"index"`
	URL    string `json:"url"`
	Method string `json:"method"`
	Status int    `json:"status"`
	Via    string `json:"via"`
	TimeMs int64  `json:"time_ms"`
	Size   int64  `json:"size"`
	Final  bool   `json:"final"`
}

// Finding is an observation about a redirect chain worth surfacing to the
// operator. Severity uses an info/low/medium/high scale.
type Finding struct {
	Type     string `json:"type"`
	AtHop    int    `json:"at_hop"`
	Severity string `json:"severity"`
	Detail   string `json:"detail"`
}

// Trace is the raw result of following one target's redirect chain.
type Trace struct {
	Target     string    `json:"target"`
	Chain      []Hop     `json:"chain"`
	Findings   []Finding `json:"findings,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// FinalURL returns the URL of the last hop, or the target when no hop was
// recorded.
func (t Trace) FinalURL() string {
	if len(t.Chain) == 0 {
		return t.Target
	}
	return t.Chain[len(t.Chain)-1].URL
}

// Unit is one plugin directory processed independently by the pipeline.
type Unit struct {
	Name            string `json:"name"`
	Dir             string `json:"dir"`
	DeclarationPath string `json:"declaration_path"`
	ManifestPath    string `json:"manifest_path"`
}

// Status is the terminal state of a unit after one run.
type Status string

const (
	StatusUnchanged Status = "unchanged"
	StatusUpdated   Status = "updated"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Strategy records which substitution path rewrote a declaration.
type Strategy string

const (
	StrategyNone       Strategy = "none"
	StrategyStructural Strategy = "structural"
	StrategyFallback   Strategy = "fallback"
)

// Outcome is the per-unit result of a run.
type Outcome struct {
	Unit       Unit      `json:"unit"`
	Status     Status    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	OldURL     string    `json:"old_url,omitempty"`
	OldDomain  string    `json:"old_domain,omitempty"`
	NewDomain  string    `json:"new_domain,omitempty"`
	NewVersion *int      `json:"new_version,omitempty"`
	Strategy   Strategy  `json:"strategy,omitempty"`
	DryRun     bool      `json:"dry_run,omitempty"`
	Chain      []Hop     `json:"chain,omitempty"`
	Findings   []Finding `json:"findings,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
}
