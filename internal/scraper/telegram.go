package scraper

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/fiercfly/proteinHunt/internal/metrics"
	"github.com/fiercfly/proteinHunt/internal/models"
)

const DefaultTelegramBaseURL = "https://t.me"

type TelegramOptions struct {
	BaseURL      string
	Channels     []string
	UserAgent    string
	Timeout      time.Duration
	RawTextLimit int
	Selectors    SelectorConfig
}

// TelegramPoller reads the public web preview of each configured channel.
type TelegramPoller struct {
	fetcher      *fetcher
	baseURL      string
	channels     []string
	rawTextLimit int
	selectors    ChannelSelectors
	policy       *bluemonday.Policy
	seen         *SeenSet
	logger       *slog.Logger
}

func NewTelegramPoller(opts TelegramOptions, seen *SeenSet, logger *slog.Logger) *TelegramPoller {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultTelegramBaseURL
	}
	if opts.Selectors.TelegramChannel.Container.Item == "" {
		opts.Selectors = DefaultSelectors()
	}
	if seen == nil {
		seen = NewSeenSet()
	}
	if logger == nil {
		logger = slog.Default()
	}
	channels, invalid := validFeedNames(opts.Channels)
	if len(invalid) > 0 {
		logger.Warn("Ignoring invalid channel names", "names", invalid)
	}
	return &TelegramPoller{
		fetcher:      newFetcher("telegram", opts.BaseURL, opts.UserAgent, opts.Timeout),
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		channels:     channels,
		rawTextLimit: opts.RawTextLimit,
		selectors:    opts.Selectors.TelegramChannel,
		policy:       bluemonday.StrictPolicy(),
		seen:         seen,
		logger:       logger,
	}
}

func (p *TelegramPoller) Name() string { return string(models.SourceTelegram) }

// Poll fetches each channel in turn and returns unseen messages in page
// order.
func (p *TelegramPoller) Poll(ctx context.Context) []models.RawMessage {
	var all []models.RawMessage
	for _, channel := range p.channels {
		msgs, err := p.fetchChannel(ctx, channel)
		if err != nil {
			p.logger.Warn("Telegram fetch failed", "channel", channel, "error", err)
			metrics.PollErrorsTotal.WithLabelValues(p.Name()).Inc()
			continue
		}
		all = append(all, msgs...)
	}

	fresh := p.seen.Filter(all)
	metrics.PollPostsTotal.WithLabelValues(p.Name()).Add(float64(len(fresh)))
	p.logger.Info("Telegram poll complete", "channels", len(p.channels), "fetched", len(all), "new", len(fresh))
	return fresh
}

func (p *TelegramPoller) fetchChannel(ctx context.Context, channel string) ([]models.RawMessage, error) {
	body, err := p.fetcher.get(ctx, fmt.Sprintf("%s/s/%s", p.baseURL, channel), channel)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse channel page %s: %w", channel, err)
	}

	items := doc.Find(p.selectors.Container.Item)
	if items.Length() == 0 {
		return nil, fmt.Errorf("no '%s' elements found for channel %s. Potential block or page structure change", p.selectors.Container.Item, channel)
	}

	var msgs []models.RawMessage
	items.Each(func(_ int, s *goquery.Selection) {
		if msg, ok := p.parseMessage(channel, s); ok {
			msgs = append(msgs, msg)
		}
	})
	return msgs, nil
}

func (p *TelegramPoller) parseMessage(channel string, s *goquery.Selection) (models.RawMessage, bool) {
	sel := p.selectors
	if sel.Container.IgnoreModifier != "" && s.Is(sel.Container.IgnoreModifier) {
		return models.RawMessage{}, false
	}
	postID, ok := s.Attr(sel.Container.IDAttr)
	if !ok || strings.TrimSpace(postID) == "" {
		return models.RawMessage{}, false
	}

	textSel := s.Find(sel.Elements.Text).First()
	text, links := p.messageText(textSel)
	if text == "" {
		// Photo-only and video-only posts carry nothing to extract.
		return models.RawMessage{}, false
	}

	msg := models.RawMessage{
		ID:            postID,
		Source:        models.SourceTelegram,
		SourceChannel: channel,
		PostURL:       DefaultTelegramBaseURL + "/" + strings.TrimPrefix(postID, "/"),
		RawText:       composeRawText(text, links, p.rawTextLimit),
	}

	if sel.Elements.Photo != "" {
		if style, ok := s.Find(sel.Elements.Photo).First().Attr("style"); ok {
			msg.Image = backgroundImageURL(style)
		}
	}

	if sel.Elements.Time != "" {
		if datetime, ok := s.Find(sel.Elements.Time).First().Attr("datetime"); ok {
			if t, err := time.Parse(time.RFC3339, datetime); err == nil {
				msg.PostTime = t.UTC()
			}
		}
	}
	return msg, true
}

var lineBreakRegex = regexp.MustCompile(`(?i)<br\s*/?>`)

// messageText renders the message body as plain text with line breaks kept,
// plus the hrefs of any links whose target is hidden behind anchor text.
func (p *TelegramPoller) messageText(s *goquery.Selection) (string, []string) {
	if s.Length() == 0 {
		return "", nil
	}
	markup, err := s.Html()
	if err != nil {
		return "", nil
	}
	markup = lineBreakRegex.ReplaceAllString(markup, "\n")
	text := html.UnescapeString(p.policy.Sanitize(markup))

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	text = strings.Join(lines, "\n")

	var links []string
	s.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
			links = append(links, href)
		}
	})
	return text, links
}

var backgroundURLRegex = regexp.MustCompile(`background-image\s*:\s*url\(\s*['"]?([^'")]+)['"]?\s*\)`)

func backgroundImageURL(style string) string {
	if m := backgroundURLRegex.FindStringSubmatch(style); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
