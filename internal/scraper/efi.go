package scraper

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pth-in/cprn/internal/logger"
	"github.com/pth-in/cprn/internal/rss"
)

const (
	efiPageURL = "https://efionline.org/news-events/"

	// EFISourceName marks entries from the EFI news page. The classifier
	// treats this source as trusted.
	EFISourceName = "EFI"
)

// EFIScraper fetches the EFI news listing page, which has no feed, and turns
// its article cards into entries.
type EFIScraper struct {
	client *http.Client
	now    func() time.Time
}

func NewEFIScraper(timeout time.Duration) *EFIScraper {
	return &EFIScraper{
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

// Scrape returns the entries currently listed on the EFI news page. Failures
// are logged and yield an empty slice; one unreachable page never stops a run.
func (e *EFIScraper) Scrape(ctx context.Context) []rss.Entry {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, efiPageURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", browserUserAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		logger.Warn("efi page fetch failed", "url", efiPageURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn("efi page non-ok status", "url", efiPageURL, "status", resp.StatusCode)
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		logger.Warn("efi page parse failed", "error", err)
		return nil
	}

	var entries []rss.Entry
	doc.Find("article").Each(func(_ int, card *goquery.Selection) {
		entry, ok := e.cardToEntry(card)
		if ok {
			entries = append(entries, entry)
		}
	})

	logger.Info("efi page scraped", "entries", len(entries))
	return entries
}

func (e *EFIScraper) cardToEntry(card *goquery.Selection) (rss.Entry, bool) {
	titleSel := firstMatch(card, "h2 a", "h3 a", ".entry-title a")
	if titleSel == nil {
		return rss.Entry{}, false
	}
	title := strings.TrimSpace(titleSel.Text())
	link, _ := titleSel.Attr("href")
	if title == "" || link == "" {
		return rss.Entry{}, false
	}

	published := e.now()
	if t, ok := card.Find("time").First().Attr("datetime"); ok {
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			published = parsed
		} else if parsed, err := time.Parse("2006-01-02", t); err == nil {
			published = parsed
		}
	}

	desc := ""
	if s := firstMatch(card, ".entry-summary", "p"); s != nil {
		desc = strings.TrimSpace(s.Text())
	}

	image := ""
	if src, ok := card.Find("img").First().Attr("src"); ok {
		image = src
	}

	return rss.Entry{
		Title:       title,
		Link:        link,
		Description: desc,
		Published:   published,
		SourceName:  EFISourceName,
		ImageURL:    image,
	}, true
}

// firstMatch returns the first selection matched by any of the selectors, in
// order, or nil when none match.
func firstMatch(s *goquery.Selection, selectors ...string) *goquery.Selection {
	for _, sel := range selectors {
		if found := s.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	return nil
}
