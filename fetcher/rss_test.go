package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>City News</title>
  <item>
    <title>Old news</title>
    <link>https://example.com/old</link>
    <description>yesterday</description>
    <pubDate>Mon, 13 Jan 2025 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Heatwave hits the city</title>
    <link>https://example.com/heat</link>
    <description>&lt;p&gt;Temperatures &lt;b&gt;soar&lt;/b&gt;.&lt;/p&gt;</description>
    <pubDate>Wed, 15 Jan 2025 09:00:00 GMT</pubDate>
  </item>
  <item>
    <title>Chess club reopens</title>
    <link>https://example.com/club</link>
    <description>Finally.</description>
    <pubDate>Tue, 14 Jan 2025 09:00:00 GMT</pubDate>
  </item>
</channel>
</rss>`

func newFeedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(feedXML))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRSSFetcherNewestFirst(t *testing.T) {
	srv := newFeedServer(t)

	topics, err := NewRSSFetcher(srv.URL, 2).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	var titles []string
	for _, tp := range topics {
		titles = append(titles, tp.Title)
	}
	want := []string{"Heatwave hits the city", "Chess club reopens"}
	if diff := cmp.Diff(want, titles); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}
	if topics[0].Summary != "Temperatures soar." {
		t.Fatalf("summary = %q, want HTML stripped", topics[0].Summary)
	}
	if topics[0].SourceURL != "https://example.com/heat" {
		t.Fatalf("SourceURL = %q", topics[0].SourceURL)
	}
}

func TestRSSFetcherNoLimit(t *testing.T) {
	srv := newFeedServer(t)

	topics, err := NewRSSFetcher(srv.URL, 0).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(topics) != 3 {
		t.Fatalf("got %d topics, want 3", len(topics))
	}
}

func TestRSSFetcherBadFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not a feed"))
	}))
	defer srv.Close()

	if _, err := NewRSSFetcher(srv.URL, 0).Fetch(context.Background()); err == nil {
		t.Fatal("expected error for invalid feed")
	}
}

func TestTruncateString(t *testing.T) {
	s := strings.Repeat("あ", 250)
	if got := []rune(truncateString(s, 200)); len(got) != 200 {
		t.Fatalf("truncated to %d runes, want 200", len(got))
	}
	if got := truncateString("short", 200); got != "short" {
		t.Fatalf("truncateString changed short input: %q", got)
	}
}
