package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	yearPattern      = regexp.MustCompile(`20\d{2}`)
	copyrightPattern = regexp.MustCompile(`(?i)(?:©|\(c\)|copyright)[^0-9]{0,24}(20\d{2}(?:\s*[-–]\s*20\d{2})?)`)

	modernFrameworkHints = []string{"bootstrap", "tailwind", "material"}
	legacyFontHints      = []string{"comic sans", "papyrus"}
)

const maxSignalLength = 64

// ageSignals are the staleness indicators found in a rendered document.
type ageSignals struct {
	LastSignal         string
	Year               int
	HasFlash           bool
	HasTableLayout     bool
	HasModernFramework bool
}

// extractAgeSignals reads the last-modified hints and legacy design markers
// from document markup.
func extractAgeSignals(html string) (ageSignals, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ageSignals{}, err
	}

	var s ageSignals
	s.LastSignal = lastModifiedSignal(doc)
	if year := yearPattern.FindString(s.LastSignal); year != "" {
		s.Year, _ = strconv.Atoi(year)
	}

	s.HasFlash = doc.Find(`embed[type*="flash"], object[type*="flash"], embed[src$=".swf"], object[data$=".swf"]`).Length() > 0
	s.HasTableLayout = doc.Find(`table[width], table[cellpadding]`).Length() > 2

	doc.Find(`link[rel~="stylesheet"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		href = strings.ToLower(href)
		for _, hint := range modernFrameworkHints {
			if strings.Contains(href, hint) {
				s.HasModernFramework = true
				return false
			}
		}
		return true
	})
	return s, nil
}

// lastModifiedSignal looks, in order, at meta tags, dated elements and the
// copyright notice.
func lastModifiedSignal(doc *goquery.Document) string {
	if content, ok := doc.Find(`meta[name="last-modified"], meta[property="article:modified_time"]`).First().Attr("content"); ok && strings.TrimSpace(content) != "" {
		return clip(content)
	}

	var found string
	doc.Find(`[datetime], .date, .last-updated, .modified`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		candidates := []string{strings.TrimSpace(sel.Text())}
		if v, ok := sel.Attr("datetime"); ok {
			candidates = append(candidates, v)
		}
		if v, ok := sel.Attr("content"); ok {
			candidates = append(candidates, v)
		}
		for _, c := range candidates {
			if yearPattern.MatchString(c) {
				found = clip(c)
				return false
			}
		}
		return true
	})
	if found != "" {
		return found
	}

	body := doc.Find("footer").Text()
	if !copyrightPattern.MatchString(body) {
		body = doc.Find("body").Text()
	}
	if m := copyrightPattern.FindStringSubmatch(body); m != nil {
		// A range such as "2010-2023" dates the site by its end year.
		years := yearPattern.FindAllString(m[1], -1)
		return years[len(years)-1]
	}
	return ""
}

func clip(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > maxSignalLength {
		return string(r[:maxSignalLength])
	}
	return s
}

// hasLegacyFont reports whether a computed font-family list uses a dated face.
func hasLegacyFont(fontFamily string) bool {
	f := strings.ToLower(fontFamily)
	for _, hint := range legacyFontHints {
		if strings.Contains(f, hint) {
			return true
		}
	}
	return false
}

// viewportMetaContent returns the content of the viewport meta tag.
func viewportMetaContent(html string) (string, bool, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false, err
	}
	content, ok := doc.Find(`meta[name="viewport"]`).First().Attr("content")
	return content, ok, nil
}
