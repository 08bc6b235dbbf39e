package util

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// feedDomains lists hosts whose permalinks NormalizeURL canonicalises.
var feedDomains = map[string]string{
	"reddit.com":     "www.reddit.com",
	"www.reddit.com": "www.reddit.com",
	"old.reddit.com": "www.reddit.com",
	"np.reddit.com":  "www.reddit.com",
	"t.me":           "t.me",
	"telegram.me":    "t.me",
}

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "share_id", "context"}

// NormalizeURL canonicalises feed permalinks: https, one host per feed, no
// trailing slash, no tracking parameters. Other URLs are returned unchanged.
func NormalizeURL(rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, err
	}

	host, ok := feedDomains[strings.ToLower(parsedURL.Hostname())]
	if !ok {
		return rawURL, nil
	}

	parsedURL.Scheme = "https"
	parsedURL.Host = host
	if len(parsedURL.Path) > 1 && strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path = strings.TrimRight(parsedURL.Path, "/")
		parsedURL.RawPath = ""
	}
	queryParams := parsedURL.Query()
	for _, param := range trackingParams {
		queryParams.Del(param)
	}
	parsedURL.RawQuery = queryParams.Encode()
	return parsedURL.String(), nil
}

// GetDomain returns the registrable domain of rawURL, e.g. "amazon.in" for
// "https://www.amazon.in/dp/X". Empty when the URL has no host. Hosts the
// public suffix list rejects fall back to KnownTwoPartTLDs.
func GetDomain(rawURL string) string {
	parsedURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsedURL.Hostname())
	if host == "" {
		return ""
	}
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	parts := strings.Split(host, ".")
	if len(parts) < 2 {
		return host
	}
	lastTwo := strings.Join(parts[len(parts)-2:], ".")
	if KnownTwoPartTLDs[lastTwo] && len(parts) >= 3 {
		return strings.Join(parts[len(parts)-3:], ".")
	}
	return lastTwo
}
