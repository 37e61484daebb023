// Package scraper extracts article body text from publisher pages and
// resolves aggregator redirect links to their final URLs.
package scraper

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pth-in/cprn/internal/logger"
	"github.com/pth-in/cprn/internal/textutil"
)

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// readabilityProxy renders a page server-side and returns plain text. Used
// when the publisher blocks direct fetches.
const readabilityProxy = "https://r.jina.ai/"

// contentSelectors are tried in order against the fetched document. The first
// selector whose paragraphs yield enough text wins.
var contentSelectors = []string{
	"article",
	".article-body",
	".entry-content",
	".post-content",
	".td-post-content",
	".story-content",
	"main",
}

const minParagraphLen = 40

// ArticleFetcher fetches an article page and extracts its main text.
type ArticleFetcher struct {
	client   *http.Client
	proxy    string
	maxChars int
}

func NewArticleFetcher(timeout time.Duration, maxChars int) *ArticleFetcher {
	return &ArticleFetcher{
		client:   &http.Client{Timeout: timeout},
		proxy:    readabilityProxy,
		maxChars: maxChars,
	}
}

// Fetch returns the extracted article text for link, capped at the configured
// length. Any failure returns an empty string; deep scraping is best effort
// and the caller keeps the feed description instead.
func (a *ArticleFetcher) Fetch(link string) string {
	body, status, err := a.get(link, browserUserAgent)
	if err != nil {
		logger.Debug("article fetch failed", "url", link, "error", err)
		return ""
	}

	// Sites that reject bot traffic outright get a second chance through the
	// readability proxy, which returns plain text.
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		text, _, err := a.get(a.proxy+link, "")
		if err != nil {
			logger.Debug("readability proxy failed", "url", link, "error", err)
			return ""
		}
		return textutil.Truncate(strings.TrimSpace(text), a.maxChars)
	}
	if status != http.StatusOK {
		logger.Debug("article fetch non-ok status", "url", link, "status", status)
		return ""
	}

	text := extractText(body)
	return textutil.Truncate(text, a.maxChars)
}

func (a *ArticleFetcher) get(url, userAgent string) (string, int, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("reading body: %w", err)
	}
	return string(body), resp.StatusCode, nil
}

// extractText pulls paragraph text out of an HTML page, trying the known
// content containers first and falling back to every <p> on the page.
func extractText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script, style, nav, footer, header, aside").Remove()

	for _, sel := range contentSelectors {
		if text := collectParagraphs(doc.Find(sel + " p")); text != "" {
			return text
		}
	}
	return collectParagraphs(doc.Find("p"))
}

func collectParagraphs(sel *goquery.Selection) string {
	var parts []string
	sel.Each(func(_ int, p *goquery.Selection) {
		t := strings.TrimSpace(p.Text())
		if len(t) > minParagraphLen {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n\n")
}
