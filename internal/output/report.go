package output

import (
	"fmt"
	"html/template"
	"io"
	"sort"
	"time"

	"github.com/selimozcann/mainurlhunter/internal/model"
)

// Record represents one line in the JSONL report.
type Record struct {
	Timestamp     string          `json:"timestamp"`
	RunID         string          `json:"run_id,omitempty"`
	Unit          string          `json:"unit"`
	Declaration   string          `json:"declaration"`
	Status        model.Status    `json:"status"`
	Reason        string          `json:"reason,omitempty"`
	OldURL        string          `json:"old_url,omitempty"`
	OldDomain     string          `json:"old_domain,omitempty"`
	NewDomain     string          `json:"new_domain,omitempty"`
	NewVersion    *int            `json:"new_version"`
	Strategy      model.Strategy  `json:"strategy"`
	DryRun        bool            `json:"dry_run"`
	RedirectChain []string        `json:"redirect_chain"`
	FinalStatus   int             `json:"final_status"`
	DurationMs    int64           `json:"duration_ms"`
	Findings      []model.Finding `json:"findings,omitempty"`
}

// Summary counts outcomes per status.
type Summary struct {
	Total        int
	Updated      int
	Unchanged    int
	Skipped      int
	Failed       int
	WithFindings int
	Fallbacks    int
}

// OutcomeView is used by the HTML template with pre-computed fields.
type OutcomeView struct {
	Index       int
	Timestamp   time.Time
	Unit        string
	Declaration string
	Status      model.Status
	Reason      string
	OldURL      string
	OldDomain   string
	NewDomain   string
	Version     string
	Strategy    model.Strategy
	DryRun      bool
	FinalURL    string
	FinalStatus int
	DurationMs  int64
	Findings    []model.Finding
	Chain       []model.Hop
}

// PageData provides the full context for the HTML report.
type PageData struct {
	Title         string
	RunID         string
	GeneratedAt   time.Time
	Params        map[string]string
	OrderedParams []Param
	Summary       Summary
	Outcomes      []OutcomeView
}

// Param represents a rendered configuration key/value pair.
type Param struct {
	Key   string
	Value string
}

// BuildRecord converts an Outcome into a Record for JSONL output.
func BuildRecord(runID string, o model.Outcome) Record {
	chain := make([]string, len(o.Chain))
	for i, hop := range o.Chain {
		chain[i] = hop.URL
	}
	return Record{
		Timestamp:     o.StartedAt.UTC().Format(time.RFC3339),
		RunID:         runID,
		Unit:          o.Unit.Name,
		Declaration:   o.Unit.DeclarationPath,
		Status:        o.Status,
		Reason:        o.Reason,
		OldURL:        o.OldURL,
		OldDomain:     o.OldDomain,
		NewDomain:     o.NewDomain,
		NewVersion:    o.NewVersion,
		Strategy:      o.Strategy,
		DryRun:        o.DryRun,
		RedirectChain: chain,
		FinalStatus:   finalStatus(o.Chain),
		DurationMs:    o.DurationMs,
		Findings:      append([]model.Finding(nil), o.Findings...),
	}
}

// BuildOutcomeView converts an Outcome for HTML rendering.
func BuildOutcomeView(idx int, o model.Outcome) OutcomeView {
	v := OutcomeView{
		Index:       idx,
		Timestamp:   o.StartedAt,
		Unit:        o.Unit.Name,
		Declaration: o.Unit.DeclarationPath,
		Status:      o.Status,
		Reason:      o.Reason,
		OldURL:      o.OldURL,
		OldDomain:   o.OldDomain,
		NewDomain:   o.NewDomain,
		Version:     VersionLabel(o.NewVersion),
		Strategy:    o.Strategy,
		DryRun:      o.DryRun,
		FinalStatus: finalStatus(o.Chain),
		DurationMs:  o.DurationMs,
		Findings:    append([]model.Finding(nil), o.Findings...),
		Chain:       append([]model.Hop(nil), o.Chain...),
	}
	if n := len(o.Chain); n > 0 {
		v.FinalURL = o.Chain[n-1].URL
	}
	return v
}

// BuildSummary derives counters from the outcomes.
func BuildSummary(outcomes []model.Outcome) Summary {
	sum := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case model.StatusUpdated:
			sum.Updated++
		case model.StatusUnchanged:
			sum.Unchanged++
		case model.StatusSkipped:
			sum.Skipped++
		case model.StatusFailed:
			sum.Failed++
		}
		if len(o.Findings) > 0 {
			sum.WithFindings++
		}
		if o.Strategy == model.StrategyFallback {
			sum.Fallbacks++
		}
	}
	return sum
}

// VersionLabel renders a bumped version, or "none" when nothing was bumped.
func VersionLabel(v *int) string {
	if v == nil {
		return "none"
	}
	return fmt.Sprint(*v)
}

func finalStatus(chain []model.Hop) int {
	if len(chain) == 0 {
		return 0
	}
	return chain[len(chain)-1].Status
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"formatTime": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
}).Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
:root { color-scheme: light dark; }
body { font-family: system-ui, -apple-system, Segoe UI, Roboto, sans-serif; margin: 24px; background:#fafafa; color:#111; }
header { margin-bottom: 24px; }
h1 { font-size: 26px; margin: 0 0 8px; }
.section { border:1px solid #e5e7eb; border-radius:16px; padding:16px 20px; margin-bottom:18px; background:#fff; box-shadow:0 1px 2px rgba(15,23,42,0.08); }
h2 { font-size:20px; margin:0 0 12px; }
h3 { font-size:16px; margin:12px 0 6px; }
dt { font-weight:600; }
dd { margin:0 0 8px 0; }
.summary-grid { display:grid; gap:12px; grid-template-columns: repeat(auto-fit,minmax(160px,1fr)); }
.summary-card { display:block; padding:12px; border-radius:12px; border:1px solid #cbd5f5; text-decoration:none; color:inherit; position:relative; background:linear-gradient(180deg,#eef2ff,#fff); }
.summary-card[data-active="true"] { border-color:#4f46e5; box-shadow:0 0 0 2px rgba(79,70,229,0.4); }
.summary-card .badge { position:absolute; top:12px; right:12px; padding:2px 10px; border-radius:999px; background:#4f46e5; color:#fff; font-size:12px; }
.meta { color:#6b7280; font-size:12px; }
.unit-row { border-top:1px solid #e5e7eb; padding-top:12px; margin-top:12px; }
.unit-row:first-of-type { border-top:none; padding-top:0; margin-top:0; }
.finding-list { list-style:disc; margin:8px 0 8px 20px; }
.status { display:inline-block; padding:2px 8px; border-radius:999px; font-size:12px; margin-left:6px; background:#e5e7eb; }
.status-updated { background:#bbf7d0; }
.status-skipped { background:#fef08a; }
.status-failed { background:#fecaca; }
.table { width:100%; border-collapse:collapse; font-size:14px; }
.table th, .table td { border-bottom:1px solid #e5e7eb; padding:6px 8px; text-align:left; }
.table th { background:#f9fafb; }
.mono { font-family: ui-monospace, SFMono-Regular, Menlo, Consolas, monospace; font-size:13px; }
.footer { text-align:center; font-size:12px; color:#6b7280; margin-top:24px; }
@media (prefers-color-scheme: dark) {
        body { background:#0f172a; color:#e2e8f0; }
        .section { background:#1e293b; border-color:#334155; box-shadow:none; }
        .summary-card { background:linear-gradient(180deg,#312e81,#1e293b); border-color:#4338ca; color:#e0e7ff; }
        .meta { color:#94a3b8; }
        .table th { background:#1e293b; }
        .status { color:#111; }
}
</style>
<script>
document.addEventListener('DOMContentLoaded', function() {
  const cards = document.querySelectorAll('[data-filter]');
  const rows = document.querySelectorAll('.unit-row');
  const notice = document.getElementById('filterNotice');
  function apply(filter) {
    cards.forEach(c => c.dataset.active = (c.dataset.filter === filter ? 'true' : 'false'));
    rows.forEach(row => {
      row.style.display = (filter === 'all' || row.dataset.status === filter) ? '' : 'none';
    });
    if (notice) {
      notice.textContent = filter === 'all' ? 'Showing all units.' : 'Filtered to ' + filter + ' units.';
    }
  }
  cards.forEach(card => {
    card.addEventListener('click', function (ev) {
      ev.preventDefault();
      apply(card.dataset.filter || 'all');
    });
  });
  apply('all');
});
</script>
</head>
<body>
<header>
  <h1>{{.Title}}</h1>
  <p class="meta">Run {{.RunID}} generated at {{formatTime .GeneratedAt}}</p>
</header>
<section id="summary" class="section">
  <h2>Summary</h2>
  <div class="summary-grid">
    <a class="summary-card" href="#units" data-filter="all"><strong>Units</strong><span class="badge">{{.Summary.Total}}</span></a>
    <a class="summary-card" href="#units" data-filter="updated"><strong>Updated</strong><span class="badge">{{.Summary.Updated}}</span></a>
    <a class="summary-card" href="#units" data-filter="unchanged"><strong>Unchanged</strong><span class="badge">{{.Summary.Unchanged}}</span></a>
    <a class="summary-card" href="#units" data-filter="skipped"><strong>Skipped</strong><span class="badge">{{.Summary.Skipped}}</span></a>
    <a class="summary-card" href="#units" data-filter="failed"><strong>Failed</strong><span class="badge">{{.Summary.Failed}}</span></a>
  </div>
  {{if .Summary.Fallbacks}}<p class="meta">{{.Summary.Fallbacks}} declaration(s) rewritten by verbatim replacement.</p>{{end}}
</section>
<section id="parameters" class="section">
  <h2>Parameters</h2>
  <dl>
  {{- range .OrderedParams }}
    <dt>{{.Key}}</dt>
    <dd><span class="mono">{{.Value}}</span></dd>
  {{- end }}
  </dl>
</section>
<section id="units" class="section">
  <h2>Units</h2>
  <p class="meta" id="filterNotice">Showing all units.</p>
  {{range .Outcomes}}
  <div class="unit-row" data-status="{{.Status}}">
    <h3>{{.Unit}}<span class="status status-{{.Status}}">{{.Status}}</span>{{if .DryRun}}<span class="status">dry run</span>{{end}}</h3>
    <p class="meta mono">{{.Declaration}}</p>
    {{if .OldDomain}}<p><span class="mono">{{.OldDomain}}</span>{{if .NewDomain}} &rarr; <span class="mono">{{.NewDomain}}</span>{{end}}</p>{{end}}
    {{if eq .Status "updated"}}<p class="meta">Strategy {{.Strategy}}, version {{.Version}}</p>{{end}}
    {{if .Reason}}<p class="meta">Reason: {{.Reason}}</p>{{end}}
    {{if .Findings}}
      <ul class="finding-list">
        {{range .Findings}}
          <li><strong>{{.Severity}}</strong>: {{.Type}} - {{.Detail}}</li>
        {{end}}
      </ul>
    {{end}}
    {{if .Chain}}
    <details>
      <summary>{{len .Chain}} hops, final status {{.FinalStatus}}</summary>
      <table class="table">
        <thead>
          <tr><th>#</th><th>URL</th><th>Status</th><th>Via</th><th>Time (ms)</th><th>Size</th></tr>
        </thead>
        <tbody>
        {{range .Chain}}
          <tr>
            <td>{{.Index}}</td>
            <td class="mono">{{.URL}}</td>
            <td>{{.Status}}</td>
            <td>{{.Via}}</td>
            <td>{{.TimeMs}}</td>
            <td>{{.Size}}</td>
          </tr>
        {{end}}
        </tbody>
      </table>
    </details>
    {{end}}
    <p class="meta">Duration {{.DurationMs}}ms, started {{formatTime .Timestamp}}</p>
  </div>
  {{end}}
</section>
<footer class="footer">
  mainurlhunter report generated at {{formatTime .GeneratedAt}}
</footer>
</body>
</html>
`))

// RenderHTML renders the HTML report using the provided data.
func RenderHTML(w io.Writer, data PageData) error {
	if data.Params != nil {
		keys := make([]string, 0, len(data.Params))
		for k := range data.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ordered := make([]Param, 0, len(keys))
		for _, k := range keys {
			ordered = append(ordered, Param{Key: k, Value: data.Params[k]})
		}
		data.OrderedParams = ordered
	}
	return htmlTemplate.Execute(w, data)
}
