package scraper

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pth-in/cprn/internal/cache"
	"github.com/pth-in/cprn/internal/logger"
)

// redirectorHosts are aggregator/shortener domains whose links must be
// resolved to the final article URL before dedup can work.
var redirectorHosts = map[string]bool{
	"news.google.com": true,
	"bit.ly":          true,
	"t.co":            true,
	"tinyurl.com":     true,
	"goo.gl":          true,
	"ow.ly":           true,
}

const resolveCacheTTL = 6 * time.Hour

// Resolver follows HTTP redirects for known redirector links and falls back
// to parsing a client-side meta refresh when the final page is still on the
// redirector.
type Resolver struct {
	client *http.Client
	cache  *cache.Cache
}

func NewResolver(timeout time.Duration) *Resolver {
	return &Resolver{
		client: &http.Client{Timeout: timeout},
		cache:  cache.New(),
	}
}

// Resolve returns the canonical URL for link. Non-redirector links and any
// failure return the input unchanged.
func (r *Resolver) Resolve(link string) string {
	u, err := url.Parse(link)
	if err != nil || !redirectorHosts[strings.ToLower(u.Host)] {
		return link
	}

	if cached, ok := r.cache.Get(link); ok {
		return cached
	}

	req, err := http.NewRequest(http.MethodGet, link, nil)
	if err != nil {
		return link
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		logger.Debug("redirect resolution failed", "url", link, "error", err)
		return link
	}
	defer resp.Body.Close()

	final := resp.Request.URL.String()

	// Aggregators like Google News sometimes answer with a page that jumps
	// via meta refresh instead of an HTTP redirect.
	if fu, err := url.Parse(final); err == nil && redirectorHosts[strings.ToLower(fu.Host)] {
		if target := metaRefreshTarget(resp, fu); target != "" {
			final = target
		}
	}

	r.cache.Set(link, final, resolveCacheTTL)
	return final
}

func metaRefreshTarget(resp *http.Response, base *url.URL) string {
	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	var target string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if equiv, _ := s.Attr("http-equiv"); !strings.EqualFold(equiv, "refresh") {
			return true
		}
		content, _ := s.Attr("content")
		// content looks like "0; url=https://example.com/article"
		idx := strings.Index(strings.ToLower(content), "url=")
		if idx < 0 {
			return true
		}
		target = strings.Trim(strings.TrimSpace(content[idx+4:]), `'"`)
		return false
	})

	if target == "" {
		return ""
	}
	if ref, err := url.Parse(target); err == nil {
		return base.ResolveReference(ref).String()
	}
	return target
}
