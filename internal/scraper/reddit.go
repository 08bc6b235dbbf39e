package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fiercfly/proteinHunt/internal/metrics"
	"github.com/fiercfly/proteinHunt/internal/models"
	"github.com/fiercfly/proteinHunt/internal/util"
)

const (
	DefaultRedditBaseURL = "https://www.reddit.com"
	redditPageSize       = 25
	maxParallelFetches   = 4
)

type RedditOptions struct {
	BaseURL      string
	Subreddits   []string
	UserAgent    string
	Timeout      time.Duration
	RawTextLimit int
}

// RedditPoller reads the newest posts of each configured subreddit from the
// public JSON listing.
type RedditPoller struct {
	fetcher      *fetcher
	baseURL      string
	subreddits   []string
	rawTextLimit int
	seen         *SeenSet
	logger       *slog.Logger
}

func NewRedditPoller(opts RedditOptions, seen *SeenSet, logger *slog.Logger) *RedditPoller {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultRedditBaseURL
	}
	if seen == nil {
		seen = NewSeenSet()
	}
	if logger == nil {
		logger = slog.Default()
	}
	subs, invalid := validFeedNames(opts.Subreddits)
	if len(invalid) > 0 {
		logger.Warn("Ignoring invalid subreddit names", "names", invalid)
	}
	return &RedditPoller{
		fetcher:      newFetcher("reddit", opts.BaseURL, opts.UserAgent, opts.Timeout),
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		subreddits:   subs,
		rawTextLimit: opts.RawTextLimit,
		seen:         seen,
		logger:       logger,
	}
}

func (p *RedditPoller) Name() string { return string(models.SourceReddit) }

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	URL        string  `json:"url"`
	Permalink  string  `json:"permalink"`
	Score      int     `json:"score"`
	Stickied   bool    `json:"stickied"`
	Promoted   bool    `json:"promoted"`
	IsVideo    bool    `json:"is_video"`
	IsSelf     bool    `json:"is_self"`
	CreatedUTC float64 `json:"created_utc"`
}

// Poll fetches every subreddit concurrently and returns unseen posts, keeping
// the configured subreddit order.
func (p *RedditPoller) Poll(ctx context.Context) []models.RawMessage {
	results := make([][]models.RawMessage, len(p.subreddits))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelFetches)
	for i, sub := range p.subreddits {
		g.Go(func() error {
			msgs, err := p.fetchSubreddit(gctx, sub)
			if err != nil {
				p.logger.Warn("Reddit fetch failed", "subreddit", sub, "error", err)
				metrics.PollErrorsTotal.WithLabelValues(p.Name()).Inc()
				return nil
			}
			results[i] = msgs
			return nil
		})
	}
	_ = g.Wait()

	var all []models.RawMessage
	for _, r := range results {
		all = append(all, r...)
	}
	fresh := p.seen.Filter(all)
	metrics.PollPostsTotal.WithLabelValues(p.Name()).Add(float64(len(fresh)))
	p.logger.Info("Reddit poll complete", "subreddits", len(p.subreddits), "fetched", len(all), "new", len(fresh))
	return fresh
}

func (p *RedditPoller) fetchSubreddit(ctx context.Context, sub string) ([]models.RawMessage, error) {
	feedURL := fmt.Sprintf("%s/r/%s/new.json?limit=%d&sort=new", p.baseURL, sub, redditPageSize)
	body, err := p.fetcher.get(ctx, feedURL, "r/"+sub)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var listing redditListing
	if err := json.NewDecoder(body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode listing for r/%s: %w", sub, err)
	}

	var msgs []models.RawMessage
	for _, child := range listing.Data.Children {
		post := child.Data
		if post.Stickied || post.Promoted || post.IsVideo || post.ID == "" {
			continue
		}
		msgs = append(msgs, p.toRawMessage(sub, post))
	}
	return msgs, nil
}

func (p *RedditPoller) toRawMessage(sub string, post redditPost) models.RawMessage {
	id := post.Name
	if id == "" {
		id = "t3_" + post.ID
	}

	title := html.UnescapeString(strings.TrimSpace(post.Title))
	selftext := html.UnescapeString(strings.TrimSpace(post.Selftext))
	body := title
	if selftext != "" {
		body += "\n\n" + selftext
	}

	msg := models.RawMessage{
		ID:            id,
		Source:        models.SourceReddit,
		SourceChannel: "r/" + sub,
		PostScore:     post.Score,
	}
	if post.CreatedUTC > 0 {
		msg.PostTime = time.Unix(int64(post.CreatedUTC), 0).UTC()
	}
	if post.Permalink != "" {
		permalink := "https://www.reddit.com" + post.Permalink
		if normalized, err := util.NormalizeURL(permalink); err == nil {
			permalink = normalized
		}
		msg.PostURL = permalink
	}

	var links []string
	if target := html.UnescapeString(post.URL); !post.IsSelf && isExternalLink(target) {
		if isDirectImage(target) {
			msg.Image = target
		} else {
			links = append(links, target)
		}
	}
	msg.RawText = composeRawText(body, links, p.rawTextLimit)
	return msg
}

func isExternalLink(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
	return host != "reddit.com" && !strings.HasSuffix(host, ".reddit.com")
}

func isDirectImage(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	if strings.EqualFold(parsed.Hostname(), "i.redd.it") || strings.EqualFold(parsed.Hostname(), "i.imgur.com") {
		return true
	}
	path := strings.ToLower(parsed.Path)
	for _, ext := range []string{".jpg", ".jpeg", ".png", ".webp"} {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
