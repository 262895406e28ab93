package entity

// SiteCategory is the closed set of web-presence classifications.
type SiteCategory string

const (
	CategoryNoSite        SiteCategory = "no_site"
	CategoryDirectory     SiteCategory = "directory"
	CategorySocialOnly    SiteCategory = "social_only"
	CategoryPlatform      SiteCategory = "platform"
	CategoryNonResponsive SiteCategory = "non_responsive"
	CategoryOutdated      SiteCategory = "outdated"
	CategoryValid         SiteCategory = "valid"
)

// Selection reasons. They end up in prospect records and are matched by the
// query API, so changing one is a data migration.
const (
	ReasonNoSite          = "no site"
	ReasonInvalidURL      = "invalid URL"
	ReasonDirectory       = "directory listing"
	ReasonSocialOnly      = "social networks only"
	ReasonPlatform        = "service platform"
	ReasonNeedsDeepCheck  = "valid site — needs deeper validation"
	ReasonNonResponsive   = "not mobile-friendly"
	ReasonOutdated        = "outdated site"
	ReasonValidModern     = "valid and modern site"
	ReasonValidationError = "validation error"
)

// SiteVerdict is the immutable result of classifying a declared site.
type SiteVerdict struct {
	Category SiteCategory `json:"category"`
	Reason   string       `json:"reason"`
	// IsAdequate is true only for CategoryValid.
	IsAdequate bool `json:"is_adequate"`
	// DetectedDomains is set for directory, social and platform verdicts.
	DetectedDomains []string `json:"detected_domains,omitempty"`
	// Responsive and LastSignalDate are only set by deep inspection.
	Responsive     *bool  `json:"responsive,omitempty"`
	LastSignalDate string `json:"last_signal_date,omitempty"`
	// NeedsReview marks a verdict produced after deep inspection failed.
	NeedsReview bool `json:"needs_review,omitempty"`
}

// Known reports whether c is one of the declared categories.
func (c SiteCategory) Known() bool {
	switch c {
	case CategoryNoSite, CategoryDirectory, CategorySocialOnly, CategoryPlatform,
		CategoryNonResponsive, CategoryOutdated, CategoryValid:
		return true
	}
	return false
}

func (c SiteCategory) String() string { return string(c) }
