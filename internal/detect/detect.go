// Package detect flags suspicious properties of a redirect chain.
package detect

import (
	"net/url"

	"github.com/selimozcann/mainurlhunter/internal/model"
	"github.com/selimozcann/mainurlhunter/internal/util"
)

// Finding types.
const (
	TypeChainLoop        = "CHAIN_LOOP"
	TypeChainTooLong     = "CHAIN_TOO_LONG"
	TypeHTTPSDowngrade   = "HTTPS_DOWNGRADE"
	TypePublicToInternal = "PUBLIC_TO_INTERNAL"
	TypeHostCaseOnly     = "HOST_CASE_ONLY"
	TypeRegistrableMove  = "REGISTRABLE_DOMAIN_CHANGE"
)

// Severities.
const (
	SeverityInfo   = "info"
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// PublicToInternal reports a hop that leaves a public host for a loopback or
// private one. Adopting such a target would point a published plugin at an
// address only reachable from the probing machine.
func PublicToInternal(prev, next *url.URL, hop int) *model.Finding {
	if util.IsInternalHost(prev.Hostname()) || !util.IsInternalHost(next.Hostname()) {
		return nil
	}
	return &model.Finding{Type: TypePublicToInternal, Severity: SeverityHigh, AtHop: hop, Detail: prev.Host + " -> " + next.Host}
}

// HTTPSDowngrade reports if the scheme changed from https to http.
func HTTPSDowngrade(prev, next *url.URL, hop int) *model.Finding {
	if prev.Scheme == "https" && next.Scheme == "http" {
		return &model.Finding{Type: TypeHTTPSDowngrade, Severity: SeverityMedium, AtHop: hop, Detail: prev.String() + " -> " + next.String()}
	}
	return nil
}

// HostCaseOnly reports two normalized domains that differ only in letter
// case. They compare unequal, so the pipeline treats them as a move.
func HostCaseOnly(oldDomain, newDomain string) *model.Finding {
	if !util.CaseOnlyDifference(oldDomain, newDomain) {
		return nil
	}
	return &model.Finding{Type: TypeHostCaseOnly, Severity: SeverityLow, AtHop: -1, Detail: oldDomain + " -> " + newDomain}
}

// RegistrableDomainChange reports a move to a different eTLD+1, as opposed
// to a move between subdomains or schemes of the same site.
func RegistrableDomainChange(oldDomain, newDomain string) *model.Finding {
	if oldDomain == newDomain || util.SameBaseDomain(oldDomain, newDomain) {
		return nil
	}
	return &model.Finding{Type: TypeRegistrableMove, Severity: SeverityInfo, AtHop: -1, Detail: oldDomain + " -> " + newDomain}
}

// HasBlocking reports whether findings contain a type that must stop the
// declaration from being rewritten.
func HasBlocking(findings []model.Finding) (model.Finding, bool) {
	for _, f := range findings {
		if f.Type == TypePublicToInternal {
			return f, true
		}
	}
	return model.Finding{}, false
}

// Unsettled reports a finding that ended the trace before it reached a final
// page. The last hop of such a chain is still a redirect.
func Unsettled(findings []model.Finding) (model.Finding, bool) {
	for _, f := range findings {
		if f.Type == TypeChainLoop || f.Type == TypeChainTooLong {
			return f, true
		}
	}
	return model.Finding{}, false
}
