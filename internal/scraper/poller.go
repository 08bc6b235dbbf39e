package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fiercfly/proteinHunt/internal/metrics"
	"github.com/fiercfly/proteinHunt/internal/models"
	"github.com/fiercfly/proteinHunt/internal/util"
)

const (
	DefaultUserAgent    = "BestDeals/1.0 (deals aggregator; contact via github)"
	DefaultFetchTimeout = 10 * time.Second
	DefaultRawTextLimit = 600
)

// Poller fetches new posts from one external feed. Poll never fails: fetch
// problems are logged and yield an empty result.
type Poller interface {
	Name() string
	Poll(ctx context.Context) []models.RawMessage
}

// SeenSet remembers native post IDs already handed out by a poller. It lives
// for the process lifetime; persisted dedupe is the store's job.
type SeenSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewSeenSet() *SeenSet {
	return &SeenSet{ids: make(map[string]struct{})}
}

// Filter returns the messages whose IDs have not been seen and marks them.
func (s *SeenSet) Filter(msgs []models.RawMessage) []models.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var fresh []models.RawMessage
	for _, m := range msgs {
		if _, ok := s.ids[m.ID]; ok {
			continue
		}
		s.ids[m.ID] = struct{}{}
		fresh = append(fresh, m)
	}
	return fresh
}

func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

var feedNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

// validFeedNames drops names that cannot be safely placed in a feed URL path.
func validFeedNames(names []string) ([]string, []string) {
	var valid, invalid []string
	for _, n := range names {
		n = strings.TrimPrefix(strings.TrimSpace(n), "@")
		n = strings.TrimPrefix(n, "r/")
		if feedNameRegex.MatchString(n) {
			valid = append(valid, n)
		} else {
			invalid = append(invalid, n)
		}
	}
	return valid, invalid
}

// fetcher performs GETs against an allowlist of feed hosts.
type fetcher struct {
	client       *http.Client
	userAgent    string
	allowedHosts []string
	component    string
}

func newFetcher(component, baseURL, userAgent string, timeout time.Duration) *fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	var hosts []string
	if u, err := url.Parse(baseURL); err == nil {
		hosts = append(hosts, u.Hostname())
	}
	return &fetcher{
		client:       &http.Client{Timeout: timeout},
		userAgent:    userAgent,
		allowedHosts: hosts,
		component:    component,
	}
}

func (f *fetcher) get(ctx context.Context, urlStr, target string) (io.ReadCloser, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %s: %w", urlStr, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme %s: only http and https allowed", parsedURL.Scheme)
	}
	if !slices.Contains(f.allowedHosts, parsedURL.Hostname()) {
		return nil, fmt.Errorf("security violation: URL hostname %s is not in allowlist", parsedURL.Hostname())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for URL %s: %w", urlStr, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	start := time.Now()
	res, err := f.client.Do(req)
	if err != nil {
		metrics.ObserveNetworkRequest(f.component, "fetch", target, start, err)
		return nil, fmt.Errorf("failed to fetch URL %s: %w", urlStr, err)
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		err = fmt.Errorf("failed to fetch URL %s: status code %d", urlStr, res.StatusCode)
		metrics.ObserveNetworkRequest(f.component, "fetch", target, start, err)
		return nil, err
	}
	metrics.ObserveNetworkRequest(f.component, "fetch", target, start, nil)
	return res.Body, nil
}

// composeRawText clips body to limit runes, appending any links not already
// present in it so that extraction can find them verbatim.
func composeRawText(body string, links []string, limit int) string {
	body = strings.TrimSpace(body)
	if limit <= 0 {
		limit = DefaultRawTextLimit
	}

	var extra []string
	for _, l := range links {
		if l != "" && !strings.Contains(body, l) && !slices.Contains(extra, l) {
			extra = append(extra, l)
		}
	}
	suffix := ""
	if len(extra) > 0 {
		suffix = "\n" + strings.Join(extra, "\n")
	}
	room := limit - utf8.RuneCountInString(suffix)
	if room < limit/2 {
		return util.Clip(body, limit)
	}
	return strings.TrimSpace(strings.TrimSpace(util.Clip(body, room)) + suffix)
}
