// Package rss fetches candidate items from configured RSS feeds and social
// mirrors and converts them into Entry values at the ingestion boundary.
package rss

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"

	"github.com/pth-in/cprn/internal/logger"
)

// Entry is a freshly fetched item from any source adapter, before
// normalization and classification. Link is canonical: known shortener and
// aggregator URLs are resolved by the adapter that produced the entry.
type Entry struct {
	Title       string
	Link        string
	Description string
	Published   time.Time
	SourceName  string
	ImageURL    string
}

// Feed is one configured RSS source.
type Feed struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type feedsConfig struct {
	Feeds []Feed `yaml:"feeds"`
}

// LoadFeeds reads the built-in RSS feed seeds from a YAML file.
func LoadFeeds(path string) ([]Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg feedsConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return cfg.Feeds, nil
}

// Fetcher downloads and parses configured feeds. resolve, when set, maps
// redirector links to their final URLs.
type Fetcher struct {
	parser  *gofeed.Parser
	resolve func(string) string
	now     func() time.Time
}

func NewFetcher(client *http.Client, resolve func(string) string) *Fetcher {
	p := gofeed.NewParser()
	p.Client = client
	return &Fetcher{parser: p, resolve: resolve, now: time.Now}
}

// FetchFeeds parses every feed in order. A failing feed is logged and
// skipped; the others continue.
func (f *Fetcher) FetchFeeds(ctx context.Context, feeds []Feed) []Entry {
	var entries []Entry
	ok := 0

	for _, feed := range feeds {
		parsed, err := f.parser.ParseURLWithContext(feed.URL, ctx)
		if err != nil {
			logger.Warn("feed fetch failed", "feed", feed.Name, "url", feed.URL, "error", err)
			continue
		}
		for _, item := range parsed.Items {
			entries = append(entries, f.convert(item, feed.Name, ""))
		}
		ok++
		logger.Debug("feed loaded", "feed", feed.Name, "items", len(parsed.Items))
	}

	logger.Info("rss feeds processed", "ok", ok, "total", len(feeds), "entries", len(entries))
	return entries
}

// convert maps a gofeed item onto an Entry, preferring the full content body
// over the summary when it is longer and picking the first usable image.
func (f *Fetcher) convert(item *gofeed.Item, sourceName, imageOrigin string) Entry {
	desc := item.Description
	if len(item.Content) > len(desc) {
		desc = item.Content
	}

	published := f.now()
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	link := item.Link
	if f.resolve != nil && link != "" {
		link = f.resolve(link)
	}

	return Entry{
		Title:       item.Title,
		Link:        link,
		Description: desc,
		Published:   published,
		SourceName:  sourceName,
		ImageURL:    itemImage(item, desc, imageOrigin),
	}
}

// itemImage checks the known feed image fields in order, then falls back to
// an <img> embedded in the body.
func itemImage(item *gofeed.Item, body, origin string) string {
	if item.Image != nil && item.Image.URL != "" {
		return item.Image.URL
	}
	for _, enc := range item.Enclosures {
		if enc != nil && enc.URL != "" && isImageType(enc.Type) {
			return enc.URL
		}
	}
	if media, ok := item.Extensions["media"]; ok {
		for _, ext := range media["content"] {
			if url := ext.Attrs["url"]; url != "" {
				return url
			}
		}
		for _, ext := range media["thumbnail"] {
			if url := ext.Attrs["url"]; url != "" {
				return url
			}
		}
	}
	return embeddedImage(body, origin)
}

func isImageType(mime string) bool {
	return len(mime) >= 6 && mime[:6] == "image/"
}
