package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/prospector/internal/repository"
)

// Result surface selectors.
const (
	resultsContainerSelector = `[role="main"]`
	resultItemSelector       = `[role="article"]`
	detailPanelSelector      = "body"
)

var (
	phoneSelectors   = []string{`button[data-item-id="phone:tel:"]`, `[data-item-id*="phone"]`, `a[href^="tel:"]`}
	addressSelectors = []string{`button[data-item-id="address"]`, `[data-item-id*="address"]`}

	frenchPhonePattern = regexp.MustCompile(`^(?:\+33|0)[1-9]\d{8}$`)
	phoneSeparators    = strings.NewReplacer(" ", "", "-", "", ".", "", "\u00a0", "", "\u202f", "")

	ratingPattern  = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(?:étoiles|étoile|stars|star)`)
	reviewsPattern = regexp.MustCompile(`(?i)(\d[\d\s\x{00a0}\x{202f}]*)\s*(?:avis|reviews|review)`)
)

// listingDetails are the optional fields of a business detail panel.
type listingDetails struct {
	Phone       string
	Site        string
	Address     string
	Rating      *float64
	ReviewCount *int
}

// extractItemName reads the business name from one result item. An item
// without a name is unusable.
func extractItemName(itemHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(itemHTML))
	if err != nil {
		return "", fmt.Errorf("%w: %v", repository.ErrExtractionFailed, err)
	}
	if label, ok := doc.Find(`[role="img"]`).First().Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
		return strings.TrimSpace(label), nil
	}
	if label, ok := doc.Find(resultItemSelector).First().Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
		return strings.TrimSpace(label), nil
	}
	return "", fmt.Errorf("%w: item has no name", repository.ErrExtractionFailed)
}

// extractListingDetails reads the detail panel. Missing fields stay empty.
func extractListingDetails(panelHTML string) (listingDetails, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(panelHTML))
	if err != nil {
		return listingDetails{}, fmt.Errorf("%w: %v", repository.ErrExtractionFailed, err)
	}

	var d listingDetails
	d.Phone = extractPhone(doc)
	d.Site = extractSite(doc)
	d.Address = firstText(doc, addressSelectors)
	d.Rating, d.ReviewCount = extractRating(doc)
	return d, nil
}

func extractPhone(doc *goquery.Document) string {
	for _, selector := range phoneSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		if phone, ok := NormalizePhone(sel.Text()); ok {
			return phone
		}
		if href, ok := sel.Attr("href"); ok {
			if phone, ok := NormalizePhone(strings.TrimPrefix(href, "tel:")); ok {
				return phone
			}
		}
	}
	return ""
}

// NormalizePhone strips separators and accepts only French numbers.
func NormalizePhone(raw string) (string, bool) {
	clean := phoneSeparators.Replace(strings.TrimSpace(raw))
	if !frenchPhonePattern.MatchString(clean) {
		return "", false
	}
	return clean, true
}

func extractSite(doc *goquery.Document) string {
	if href, ok := doc.Find(`a[data-item-id="authority"]`).First().Attr("href"); ok && strings.HasPrefix(href, "http") {
		return href
	}
	if href, ok := doc.Find(`a[href*="http"]:not([href*="google"])`).First().Attr("href"); ok && strings.HasPrefix(href, "http") {
		return href
	}
	text := strings.TrimSpace(doc.Find(`button[data-item-id="authority"]`).First().Text())
	if strings.Contains(text, "www.") {
		return text
	}
	return ""
}

func extractRating(doc *goquery.Document) (*float64, *int) {
	label, ok := doc.Find(`[role="img"][aria-label*="étoiles"], [role="img"][aria-label*="stars"]`).First().Attr("aria-label")
	if !ok {
		return nil, nil
	}
	return parseRatingLabel(label)
}

// parseRatingLabel reads labels such as "4,5 étoiles 123 avis".
func parseRatingLabel(label string) (*float64, *int) {
	var (
		rating  *float64
		reviews *int
	)
	if m := ratingPattern.FindStringSubmatch(label); m != nil {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64); err == nil {
			rating = &v
		}
	}
	if m := reviewsPattern.FindStringSubmatch(label); m != nil {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, m[1])
		if v, err := strconv.Atoi(digits); err == nil {
			reviews = &v
		}
	}
	return rating, reviews
}

func firstText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			return strings.Join(strings.Fields(text), " ")
		}
	}
	return ""
}
