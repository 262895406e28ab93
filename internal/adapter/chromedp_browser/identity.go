package chromedp_browser

import (
	"math/rand/v2"
)

var defaultUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// identity picks the user agent a session presents. One agent is used for a
// whole session so every tab looks like the same visitor.
type identity struct {
	userAgents []string
}

func newIdentity(userAgents []string) identity {
	if len(userAgents) == 0 {
		userAgents = defaultUserAgents
	}
	return identity{userAgents: userAgents}
}

func (i identity) userAgent() string {
	return i.userAgents[rand.IntN(len(i.userAgents))]
}
