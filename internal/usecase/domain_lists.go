package usecase

// DomainLists are the third-party hosts that mean a business has no site of
// its own. Matching is by label-boundary suffix, so subdomains of an entry
// match too.
type DomainLists struct {
	Directory []string
	Platform  []string
	Social    []string
}

var (
	directoryDomains = []string{
		"pagesjaunes.fr",
		"yelp.fr",
		"yelp.com",
		"google.com",
		"maps.google.com",
		"foursquare.com",
		"tripadvisor.fr",
		"tripadvisor.com",
		"118712.fr",
		"118000.fr",
		"justacoté.com",
		"justacote.com",
	}
	socialDomains = []string{
		"facebook.com",
		"instagram.com",
		"linkedin.com",
		"twitter.com",
		"x.com",
		"tiktok.com",
		"youtube.com",
	}
	platformDomains = []string{
		"travaux.com",
		"homeadvisor.fr",
		"homeadvisor.com",
		"helpy.fr",
		"starofservice.com",
		"quotatis.fr",
		"mondevis.com",
		"devis.fr",
		"prendsmaplace.fr",
	}
)

// DefaultDomainLists returns a fresh copy of the built-in lists.
func DefaultDomainLists() DomainLists {
	return DomainLists{
		Directory: append([]string(nil), directoryDomains...),
		Platform:  append([]string(nil), platformDomains...),
		Social:    append([]string(nil), socialDomains...),
	}
}
