// Package pipeline orchestrates one ingestion run: fetch, classify,
// deduplicate, cluster, summarize, persist.
package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pth-in/cprn/internal/config"
	"github.com/pth-in/cprn/internal/gemini"
	"github.com/pth-in/cprn/internal/location"
	"github.com/pth-in/cprn/internal/logger"
	"github.com/pth-in/cprn/internal/metrics"
	"github.com/pth-in/cprn/internal/relevance"
	"github.com/pth-in/cprn/internal/rss"
	"github.com/pth-in/cprn/internal/scraper"
	"github.com/pth-in/cprn/internal/storage"
	"github.com/pth-in/cprn/internal/textutil"
)

// Store is the persistence surface the pipeline needs.
type Store interface {
	ActiveSources(ctx context.Context, sourceType string) ([]storage.CrawlerSource, error)
	RecentIncidents(ctx context.Context, since time.Time) ([]storage.Incident, error)
	FindBySourceURL(ctx context.Context, url string) (*storage.Incident, error)
	InsertIncidents(ctx context.Context, incidents []*storage.Incident) ([]int64, error)
	UpdateIncident(ctx context.Context, id int64, upd storage.IncidentUpdate) error
}

// Summarizer produces one summary per item, never fewer.
type Summarizer interface {
	SummarizeBatch(ctx context.Context, items []gemini.Item) []string
}

// URLCache remembers article URLs handled by earlier runs.
type URLCache interface {
	Seen(url string) bool
	Mark(url string)
}

type feedFetcher interface {
	FetchFeeds(ctx context.Context, feeds []rss.Feed) []rss.Entry
}

type socialFetcher interface {
	FetchHandle(ctx context.Context, name, handle string) []rss.Entry
}

type pageScraper interface {
	Scrape(ctx context.Context) []rss.Entry
}

type articleFetcher interface {
	Fetch(link string) string
}

type Pipeline struct {
	cfg        *config.Config
	store      Store
	summarizer Summarizer
	urls       URLCache
	feeds      feedFetcher
	social     socialFetcher
	efi        pageScraper
	articles   articleFetcher
	classifier *relevance.Classifier

	// recent is the clustering candidate set, loaded once per run. novel
	// accumulates incidents queued for insertion; later entries in the same
	// run cluster against both.
	recent []*storage.Incident
	novel  []*storage.Incident

	sleep func(time.Duration)
	now   func() time.Time
}

func New(cfg *config.Config, store Store, summarizer Summarizer, urls URLCache) *Pipeline {
	client := &http.Client{Timeout: cfg.RequestTimeout}
	resolver := scraper.NewResolver(cfg.RequestTimeout)

	return &Pipeline{
		cfg:        cfg,
		store:      store,
		summarizer: summarizer,
		urls:       urls,
		feeds:      rss.NewFetcher(client, resolver.Resolve),
		social:     rss.NewSocialFetcher(client, nil, cfg.MirrorTimeout),
		efi:        scraper.NewEFIScraper(cfg.RequestTimeout),
		articles:   scraper.NewArticleFetcher(cfg.RequestTimeout, cfg.DeepScrapeMaxChars),
		classifier: relevance.New(scraper.EFISourceName, cfg.Lookback(), cfg.FloorDate),
		sleep:      time.Sleep,
		now:        time.Now,
	}
}

// Run executes one full ingestion pass. Individual entries and sources fail
// in isolation; only a broken store aborts the run.
func (p *Pipeline) Run(ctx context.Context) error {
	start := p.now()
	p.recent = nil
	p.novel = nil

	entries := p.collect(ctx)
	metrics.Global.AddFetched(len(entries))

	recent, err := p.store.RecentIncidents(ctx, p.now().Add(-p.cfg.Window()))
	if err != nil {
		return fmt.Errorf("loading clustering window: %w", err)
	}
	for i := range recent {
		p.recent = append(p.recent, &recent[i])
	}

	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if entry.Link == "" || seen[entry.Link] {
			continue
		}
		seen[entry.Link] = true
		p.processEntry(ctx, entry)
	}

	inserted := p.flush(ctx)

	logger.Info("ingestion run complete",
		"entries", len(entries),
		"inserted", inserted,
		"duration", p.now().Sub(start).Round(time.Millisecond))
	return nil
}

// collect gathers candidate entries from every adapter: the YAML feed seeds,
// database-managed RSS sources, the EFI page and social handles.
func (p *Pipeline) collect(ctx context.Context) []rss.Entry {
	feeds, err := rss.LoadFeeds(p.cfg.FeedsConfigPath)
	if err != nil {
		logger.Warn("feed seeds unavailable", "path", p.cfg.FeedsConfigPath, "error", err)
	}

	known := make(map[string]bool, len(feeds))
	for _, f := range feeds {
		known[f.URL] = true
	}

	if dbFeeds, err := p.store.ActiveSources(ctx, "rss"); err != nil {
		logger.Warn("loading rss sources failed", "error", err)
		metrics.Global.IncrementFetchErrors()
	} else {
		for _, src := range dbFeeds {
			if !known[src.URLOrHandle] {
				feeds = append(feeds, rss.Feed{Name: src.Name, URL: src.URLOrHandle})
				known[src.URLOrHandle] = true
			}
		}
	}

	entries := p.feeds.FetchFeeds(ctx, feeds)
	entries = append(entries, p.efi.Scrape(ctx)...)

	if handles, err := p.store.ActiveSources(ctx, "social"); err != nil {
		logger.Warn("loading social sources failed", "error", err)
		metrics.Global.IncrementFetchErrors()
	} else {
		for _, src := range handles {
			entries = append(entries, p.social.FetchHandle(ctx, src.Name, src.URLOrHandle)...)
		}
	}

	return entries
}

// processEntry takes one fetched entry through normalization, classification,
// dedup and clustering. Novel incidents are queued, not inserted, so the run
// can batch summarization.
func (p *Pipeline) processEntry(ctx context.Context, entry rss.Entry) {
	title := textutil.CleanTitle(entry.Title)
	if title == "" {
		return
	}
	desc := textutil.Normalize(entry.Description)

	ok, reason := p.classifier.Classify(title, desc, entry.SourceName, entry.Published)
	if !ok {
		metrics.Global.IncrementRejected()
		logger.Debug("entry rejected", "title", title, "reason", reason)
		return
	}

	// Thin feed bodies get a deep scrape of the article page. Mirror statuses
	// are already full text.
	if len(desc) < p.cfg.DeepScrapeMinChars && !rss.IsMirrorLink(entry.Link) {
		if body := p.articles.Fetch(entry.Link); len(body) > len(desc) {
			desc = body
		}
	}

	loc := location.Tag(title + " " + desc)

	if p.urls.Seen(entry.Link) {
		metrics.Global.IncrementDuplicateURLs()
		return
	}
	if existing, err := p.store.FindBySourceURL(ctx, entry.Link); err != nil {
		logger.Error("url lookup failed", "url", entry.Link, "error", err)
		metrics.Global.IncrementStoreErrors()
		return
	} else if existing != nil {
		p.urls.Mark(entry.Link)
		metrics.Global.IncrementDuplicateURLs()
		return
	}

	// Cluster against stored incidents in the window, first match wins.
	for _, inc := range p.recent {
		if titleSimilarity(title, inc.Title) > p.cfg.SimilarityThreshold {
			p.merge(ctx, inc, entry)
			return
		}
	}

	// Same check against incidents queued earlier in this run, so two
	// outlets covering one event inside a single run still produce one
	// incident.
	for _, inc := range p.novel {
		if titleSimilarity(title, inc.Title) > p.cfg.SimilarityThreshold {
			inc.Sources = append(inc.Sources, storage.SourceRef{Name: entry.SourceName, URL: entry.Link})
			if inc.ImageURL == "" {
				inc.ImageURL = entry.ImageURL
			}
			metrics.Global.IncrementMerged()
			return
		}
	}

	p.novel = append(p.novel, &storage.Incident{
		Title:        title,
		IncidentDate: entry.Published,
		Description:  desc,
		LocationRaw:  loc,
		Sources:      []storage.SourceRef{{Name: entry.SourceName, URL: entry.Link}},
		ImageURL:     entry.ImageURL,
	})
}

// merge attaches a new source to a stored incident. Only the source list
// grows; an image is backfilled when the incident has none, never replaced.
func (p *Pipeline) merge(ctx context.Context, inc *storage.Incident, entry rss.Entry) {
	inc.Sources = append(inc.Sources, storage.SourceRef{Name: entry.SourceName, URL: entry.Link})
	upd := storage.IncidentUpdate{Sources: inc.Sources}

	if inc.ImageURL == "" && entry.ImageURL != "" {
		inc.ImageURL = entry.ImageURL
		upd.ImageURL = &entry.ImageURL
	}

	if err := p.store.UpdateIncident(ctx, inc.ID, upd); err != nil {
		logger.Error("incident merge failed", "id", inc.ID, "error", err)
		metrics.Global.IncrementStoreErrors()
		return
	}

	p.urls.Mark(entry.Link)
	metrics.Global.IncrementMerged()
	logger.Info("merged into existing incident", "id", inc.ID, "source", entry.SourceName)
}

// flush summarizes and inserts the queued novel incidents in batches,
// cooling down between batches. Returns the number inserted.
func (p *Pipeline) flush(ctx context.Context) int {
	inserted := 0

	for start := 0; start < len(p.novel); start += p.cfg.SummaryBatchSize {
		end := start + p.cfg.SummaryBatchSize
		if end > len(p.novel) {
			end = len(p.novel)
		}
		chunk := p.novel[start:end]

		items := make([]gemini.Item, len(chunk))
		for i, inc := range chunk {
			items[i] = gemini.Item{Title: inc.Title, Description: inc.Description}
		}

		summaries := p.summarizer.SummarizeBatch(ctx, items)
		for i, inc := range chunk {
			if i < len(summaries) {
				inc.Summary = summaries[i]
			}
		}

		ids, err := p.store.InsertIncidents(ctx, chunk)
		if err != nil {
			logger.Error("batch insert failed", "size", len(chunk), "error", err)
			metrics.Global.IncrementStoreErrors()
			continue
		}

		inserted += len(ids)
		metrics.Global.AddInserted(len(ids))
		for _, inc := range chunk {
			for _, src := range inc.Sources {
				p.urls.Mark(src.URL)
			}
		}

		if end < len(p.novel) {
			p.sleep(p.cfg.BatchCooldown)
		}
	}

	return inserted
}
