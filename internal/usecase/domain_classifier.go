package usecase

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/user/prospector/internal/entity"
)

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

// absentSiteMarkers are placeholder values meaning "no site", compared
// case-insensitively.
var absentSiteMarkers = map[string]struct{}{
	"aucun": {},
	"none":  {},
}

// DomainClassifier is the cheap, network-free structural check of a
// declared site. It holds no mutable state.
type DomainClassifier struct {
	lists DomainLists
}

// NewDomainClassifier copies lists so later changes by the caller have no effect.
func NewDomainClassifier(lists DomainLists) *DomainClassifier {
	return &DomainClassifier{lists: DomainLists{
		Directory: normalizeDomains(lists.Directory),
		Platform:  normalizeDomains(lists.Platform),
		Social:    normalizeDomains(lists.Social),
	}}
}

func normalizeDomains(in []string) []string {
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

// Classify maps a raw declared site to a structural verdict. It never fails:
// malformed input degrades to CategoryNoSite.
func (c *DomainClassifier) Classify(rawURL string) entity.SiteVerdict {
	host, ok := c.hostOf(rawURL)
	if !ok {
		return noSiteVerdict(entity.ReasonNoSite)
	}
	if host == "" {
		return noSiteVerdict(entity.ReasonInvalidURL)
	}

	switch {
	case matchesAny(host, c.lists.Directory):
		return listedVerdict(entity.CategoryDirectory, entity.ReasonDirectory, host)
	case matchesAny(host, c.lists.Platform):
		return listedVerdict(entity.CategoryPlatform, entity.ReasonPlatform, host)
	case matchesAny(host, c.lists.Social):
		return listedVerdict(entity.CategorySocialOnly, entity.ReasonSocialOnly, host)
	}

	if !strings.Contains(host, ".") {
		return noSiteVerdict(entity.ReasonInvalidURL)
	}
	return entity.SiteVerdict{
		Category:   entity.CategoryValid,
		Reason:     entity.ReasonNeedsDeepCheck,
		IsAdequate: true,
	}
}

// hostOf returns ok=false when the input means "no site" and an empty host
// when it cannot be parsed.
func (c *DomainClassifier) hostOf(rawURL string) (string, bool) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return "", false
	}
	if _, placeholder := absentSiteMarkers[strings.ToLower(trimmed)]; placeholder {
		return "", false
	}
	u, err := url.Parse(NormalizeSiteURL(trimmed))
	if err != nil {
		return "", true
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return host, true
}

// NormalizeSiteURL trims rawURL and prepends https:// when it has no scheme.
func NormalizeSiteURL(rawURL string) string {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" || schemePattern.MatchString(trimmed) {
		return trimmed
	}
	return "https://" + trimmed
}

// matchesAny is a suffix match on a label boundary: d matches h when h == d
// or h ends with "."+d.
func matchesAny(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func noSiteVerdict(reason string) entity.SiteVerdict {
	return entity.SiteVerdict{Category: entity.CategoryNoSite, Reason: reason}
}

func listedVerdict(category entity.SiteCategory, reason, host string) entity.SiteVerdict {
	return entity.SiteVerdict{
		Category:        category,
		Reason:          reason,
		DetectedDomains: []string{host},
	}
}
