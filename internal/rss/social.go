package rss

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/pth-in/cprn/internal/logger"
)

// DefaultMirrors are Nitter-style mirror origins tried in order for each
// social handle. Public mirrors come and go; the list is an ordered failover
// chain, not a load balancer.
var DefaultMirrors = []string{
	"https://nitter.net",
	"https://nitter.poast.org",
	"https://nitter.privacydev.net",
	"https://xcancel.com",
}

// SocialFetcher retrieves handle timelines through mirror RSS endpoints with
// a short per-attempt timeout.
type SocialFetcher struct {
	parser  *gofeed.Parser
	mirrors []string
	timeout time.Duration
	now     func() time.Time
}

func NewSocialFetcher(client *http.Client, mirrors []string, timeout time.Duration) *SocialFetcher {
	if len(mirrors) == 0 {
		mirrors = DefaultMirrors
	}
	p := gofeed.NewParser()
	p.Client = client
	return &SocialFetcher{parser: p, mirrors: mirrors, timeout: timeout, now: time.Now}
}

// FetchHandle tries each mirror in order and stops at the first one that
// yields entries. Handles that are full URLs (RSS-Bridge style) are fetched
// directly. All mirrors failing is a warning, never an error.
func (s *SocialFetcher) FetchHandle(ctx context.Context, name, handle string) []Entry {
	if strings.HasPrefix(handle, "http://") || strings.HasPrefix(handle, "https://") {
		return s.fetchFeedURL(ctx, name, handle, originOf(handle))
	}

	for _, mirror := range s.mirrors {
		feedURL := strings.TrimRight(mirror, "/") + "/" + handle + "/rss"
		if entries := s.fetchFeedURL(ctx, name, feedURL, mirror); len(entries) > 0 {
			return entries
		}
	}

	logger.Warn("all mirrors failed for handle", "handle", handle, "source", name)
	return nil
}

func (s *SocialFetcher) fetchFeedURL(ctx context.Context, name, feedURL, origin string) []Entry {
	attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	parsed, err := s.parser.ParseURLWithContext(feedURL, attemptCtx)
	if err != nil {
		logger.Debug("mirror attempt failed", "url", feedURL, "error", err)
		return nil
	}

	fetcher := &Fetcher{parser: s.parser, now: s.now}
	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		entries = append(entries, fetcher.convert(item, name, origin))
	}
	return entries
}

// IsMirrorLink reports whether a link points at one of the known social
// mirror origins. Mirror statuses are not deep-scraped.
func IsMirrorLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, mirror := range DefaultMirrors {
		if m, err := url.Parse(mirror); err == nil && strings.EqualFold(m.Host, host) {
			return true
		}
	}
	return strings.Contains(host, "nitter")
}

// embeddedImage pulls the first <img> out of an HTML fragment, resolving
// relative paths against the mirror origin.
func embeddedImage(body, origin string) string {
	if body == "" || !strings.Contains(body, "<img") {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	src, ok := doc.Find("img").First().Attr("src")
	if !ok || src == "" {
		return ""
	}
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	if strings.HasPrefix(src, "/") && origin != "" {
		return strings.TrimRight(origin, "/") + src
	}
	return src
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
