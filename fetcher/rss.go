package fetcher

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/AnglerfishChess/chessplaza/topic"
	"github.com/mmcdole/gofeed"
)

const summaryMaxRunes = 200

// RSSFetcher は topic.Fetcher インターフェースのRSS実装です。
type RSSFetcher struct {
	url    string
	limit  int
	parser *gofeed.Parser
}

// NewRSSFetcher は新しい RSSFetcher を生成します。
// limit は取得する記事の上限数を指定します。0以下の場合は無制限。
func NewRSSFetcher(url string, limit int) *RSSFetcher {
	return &RSSFetcher{
		url:    url,
		limit:  limit,
		parser: gofeed.NewParser(),
	}
}

// Fetch は指定されたURLからフィードを取得し、新しい順に *topic.Topic のスライスに変換します。
func (f *RSSFetcher) Fetch(ctx context.Context) ([]*topic.Topic, error) {
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed from %s: %w", f.url, err)
	}

	items := feed.Items
	sort.SliceStable(items, func(i, j int) bool {
		iTime := items[i].PublishedParsed
		jTime := items[j].PublishedParsed
		if iTime == nil || jTime == nil {
			return false
		}
		return iTime.After(*jTime)
	})

	var topics []*topic.Topic
	for _, item := range items {
		if f.limit > 0 && len(topics) >= f.limit {
			break
		}
		title := strings.TrimSpace(stripHTML(item.Title))
		if title == "" {
			continue
		}
		topics = append(topics, &topic.Topic{
			Title:     title,
			Summary:   truncateString(strings.TrimSpace(stripHTML(item.Description)), summaryMaxRunes),
			SourceURL: item.Link,
		})
	}

	return topics, nil
}

var htmlRegex = regexp.MustCompile("<[^>]*>")

// stripHTML は文字列からHTMLタグを削除します。
func stripHTML(s string) string {
	return htmlRegex.ReplaceAllString(s, "")
}

// truncateString は文字列をrune単位で指定された長さに切り詰めます。
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return s
}

var _ topic.Fetcher = (*RSSFetcher)(nil)
