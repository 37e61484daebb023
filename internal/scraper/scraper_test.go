package scraper

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pth-in/cprn/internal/logger"
)

func init() {
	logger.Init()
}

const articlePage = `<html><head><script>tracking();</script></head><body>
<nav><p>Home News Events and other navigation links for the site</p></nav>
<article>
<p>A pastor and several members of his congregation were attacked during a prayer meeting on Sunday.</p>
<p>short</p>
<p>Police said an investigation has been opened into the incident and two people were detained.</p>
</article>
<footer><p>Copyright notice and a long footer paragraph that should not appear</p></footer>
</body></html>`

func TestExtractTextUsesContentContainer(t *testing.T) {
	text := extractText(articlePage)

	assert.Contains(t, text, "attacked during a prayer meeting")
	assert.Contains(t, text, "investigation has been opened")
	assert.NotContains(t, text, "short")
	assert.NotContains(t, text, "Copyright")
	assert.NotContains(t, text, "navigation links")
	assert.NotContains(t, text, "tracking")
}

func TestExtractTextFallsBackToAllParagraphs(t *testing.T) {
	page := `<html><body>
<div><p>A standalone paragraph long enough to clear the minimum length filter easily.</p></div>
</body></html>`

	assert.Contains(t, extractText(page), "standalone paragraph")
}

func TestFetchUsesProxyWhenBlocked(t *testing.T) {
	blocked := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer blocked.Close()

	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Plain text article body returned by the readability proxy."))
	}))
	defer proxy.Close()

	a := NewArticleFetcher(time.Second, 4000)
	a.proxy = proxy.URL + "/"

	assert.Equal(t, "Plain text article body returned by the readability proxy.",
		a.Fetch(blocked.URL))
}

func TestFetchExtractsArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		w.Write([]byte(articlePage))
	}))
	defer srv.Close()

	a := NewArticleFetcher(time.Second, 4000)
	text := a.Fetch(srv.URL)
	assert.Contains(t, text, "attacked during a prayer meeting")
}

func TestFetchCapsLength(t *testing.T) {
	long := "<article><p>" + strings.Repeat("word and more words in the paragraph body here. ", 200) + "</p></article>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(long))
	}))
	defer srv.Close()

	a := NewArticleFetcher(time.Second, 500)
	text := a.Fetch(srv.URL)
	assert.NotEmpty(t, text)
	assert.LessOrEqual(t, len(text), 500)
}

func TestResolvePassesThroughNormalLinks(t *testing.T) {
	r := NewResolver(time.Second)
	// Only known redirector hosts trigger network activity
	assert.Equal(t, "https://example.com/article", r.Resolve("https://example.com/article"))
	assert.Equal(t, "::bad::url", r.Resolve("::bad::url"))
}

func TestMetaRefreshTarget(t *testing.T) {
	body := `<html><head><meta http-equiv="refresh" content="0; url=https://publisher.example/story"></head></html>`
	resp := &http.Response{Body: io.NopCloser(strings.NewReader(body))}

	base, err := url.Parse("https://news.google.com/rss/articles/x")
	require.NoError(t, err)
	assert.Equal(t, "https://publisher.example/story", metaRefreshTarget(resp, base))
}

func TestMetaRefreshTargetRelative(t *testing.T) {
	body := `<meta http-equiv="REFRESH" content="2;URL='/articles/final'">`
	resp := &http.Response{Body: io.NopCloser(strings.NewReader(body))}

	base, err := url.Parse("https://news.google.com/rss/x")
	require.NoError(t, err)
	assert.Equal(t, "https://news.google.com/articles/final", metaRefreshTarget(resp, base))
}

func TestEFICardToEntry(t *testing.T) {
	card := `<article>
<h2><a href="https://efionline.org/2025/06/incident">Pastor detained in Uttar Pradesh</a></h2>
<time datetime="2025-06-10T08:00:00Z">June 10</time>
<div class="entry-summary">A pastor was detained following a complaint.</div>
<img src="https://efionline.org/img/photo.jpg">
</article>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(card))
	require.NoError(t, err)

	e := NewEFIScraper(time.Second)
	entry, ok := e.cardToEntry(doc.Find("article"))
	require.True(t, ok)

	assert.Equal(t, "Pastor detained in Uttar Pradesh", entry.Title)
	assert.Equal(t, "https://efionline.org/2025/06/incident", entry.Link)
	assert.Equal(t, EFISourceName, entry.SourceName)
	assert.Equal(t, time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC), entry.Published)
	assert.Equal(t, "A pastor was detained following a complaint.", entry.Description)
	assert.Equal(t, "https://efionline.org/img/photo.jpg", entry.ImageURL)
}

func TestEFICardToEntryRejectsIncompleteCards(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<article><p>no title link</p></article>`))
	require.NoError(t, err)

	e := NewEFIScraper(time.Second)
	_, ok := e.cardToEntry(doc.Find("article"))
	assert.False(t, ok)
}
