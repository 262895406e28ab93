package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CandidateRecord is one business extracted from a result item. It is built
// once with its selection reason and never modified afterwards.
type CandidateRecord struct {
	Name            string   `json:"name"`
	Phone           string   `json:"phone,omitempty"`
	DeclaredSite    string   `json:"declared_site,omitempty"`
	Address         string   `json:"address,omitempty"`
	Area            string   `json:"area"`
	RoleDescription string   `json:"role_description"`
	SelectionReason string   `json:"selection_reason"`
	Rating          *float64 `json:"rating,omitempty"`
	ReviewCount     *int     `json:"review_count,omitempty"`
}

// MatchKeys are the fields used to detect an already-known prospect.
type MatchKeys struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
	Site  string `json:"site,omitempty"`
}

// LooksLikeEmail reports whether a declared contact value is an email address
// rather than a URL.
func LooksLikeEmail(v string) bool {
	return strings.Contains(v, "@")
}

// MatchKeys derives the dedupe keys of the candidate. The declared site goes
// to Email or Site depending on its shape, never both.
func (c CandidateRecord) MatchKeys() MatchKeys {
	keys := MatchKeys{Phone: strings.TrimSpace(c.Phone)}
	site := strings.TrimSpace(c.DeclaredSite)
	if site == "" {
		return keys
	}
	if LooksLikeEmail(site) {
		keys.Email = site
	} else {
		keys.Site = site
	}
	return keys
}

// Empty reports whether no key is usable.
func (k MatchKeys) Empty() bool {
	return k.Phone == "" && k.Email == "" && k.Site == ""
}

// Sanitized drops keys that are blank or have the wrong shape for their field.
func (k MatchKeys) Sanitized() MatchKeys {
	out := MatchKeys{
		Phone: strings.TrimSpace(k.Phone),
		Email: strings.TrimSpace(k.Email),
		Site:  strings.TrimSpace(k.Site),
	}
	if out.Email != "" && !LooksLikeEmail(out.Email) {
		out.Email = ""
	}
	if out.Site != "" && LooksLikeEmail(out.Site) {
		out.Site = ""
	}
	return out
}

// ProspectStatus is the sales pipeline stage of a stored prospect.
type ProspectStatus string

const (
	StatusToContact       ProspectStatus = "to_contact"
	StatusMockupMeeting   ProspectStatus = "mockup_meeting"
	StatusQuoteSent       ProspectStatus = "quote_sent"
	StatusAwaitingDeposit ProspectStatus = "awaiting_deposit"
	StatusDepositPaid     ProspectStatus = "deposit_paid"
	StatusKickoffMeeting  ProspectStatus = "kickoff_meeting"
	StatusDeliveryMeeting ProspectStatus = "delivery_meeting"
	StatusDone            ProspectStatus = "done"
	StatusLost            ProspectStatus = "lost"
)

var prospectStatuses = []ProspectStatus{
	StatusToContact, StatusMockupMeeting, StatusQuoteSent, StatusAwaitingDeposit,
	StatusDepositPaid, StatusKickoffMeeting, StatusDeliveryMeeting, StatusDone, StatusLost,
}

// ProspectStatuses returns the pipeline stages in order.
func ProspectStatuses() []ProspectStatus {
	out := make([]ProspectStatus, len(prospectStatuses))
	copy(out, prospectStatuses)
	return out
}

// Valid reports whether s is a known pipeline stage.
func (s ProspectStatus) Valid() bool {
	for _, known := range prospectStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Prospect mirrors the `prospects` table.
type Prospect struct {
	ID              uuid.UUID      `json:"id"`
	Name            string         `json:"name"`
	Phone           string         `json:"phone,omitempty"`
	Email           string         `json:"email,omitempty"`
	Site            string         `json:"site,omitempty"`
	Address         string         `json:"address,omitempty"`
	Area            string         `json:"area"`
	PostalCode      string         `json:"postal_code,omitempty"`
	RoleDescription string         `json:"role_description"`
	SelectionReason string         `json:"selection_reason"`
	Status          ProspectStatus `json:"status"`
	Note            string         `json:"note,omitempty"`
	Rating          *float64       `json:"rating,omitempty"`
	ReviewCount     *int           `json:"review_count,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewProspect converts a harvested candidate into a record ready for storage.
func NewProspect(c CandidateRecord, now time.Time) *Prospect {
	keys := c.MatchKeys()
	return &Prospect{
		ID:              uuid.New(),
		Name:            strings.TrimSpace(c.Name),
		Phone:           keys.Phone,
		Email:           keys.Email,
		Site:            keys.Site,
		Address:         c.Address,
		Area:            c.Area,
		RoleDescription: c.RoleDescription,
		SelectionReason: c.SelectionReason,
		Status:          StatusToContact,
		Rating:          c.Rating,
		ReviewCount:     c.ReviewCount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// MatchKeys returns the stored dedupe keys of the prospect.
func (p *Prospect) MatchKeys() MatchKeys {
	return MatchKeys{Phone: p.Phone, Email: p.Email, Site: p.Site}
}

// ProspectFilters narrows a prospect query. Empty fields are ignored.
type ProspectFilters struct {
	Area   string
	Status ProspectStatus
	Reason string
	Search string
}

// PageRequest is a 1-based page selection.
type PageRequest struct {
	Page  int
	Limit int
}

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 500
)

// Normalize clamps the request to sane bounds.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

// Offset is the number of rows to skip.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ProspectPage is one page of query results.
type ProspectPage struct {
	Items      []*Prospect `json:"items"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int         `json:"total"`
	TotalPages int         `json:"total_pages"`
}

// NewProspectPage fills the pagination fields for items found with total matches.
func NewProspectPage(items []*Prospect, req PageRequest, total int) *ProspectPage {
	pages := 0
	if req.Limit > 0 {
		pages = (total + req.Limit - 1) / req.Limit
	}
	if items == nil {
		items = []*Prospect{}
	}
	return &ProspectPage{Items: items, Page: req.Page, Limit: req.Limit, Total: total, TotalPages: pages}
}
