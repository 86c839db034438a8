package collect

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const maxPerFeed = 50

// FeedSource reads an RSS/Atom timeline, such as a Nitter user or search feed.
type FeedSource struct {
	url    string
	name   string
	parser *gofeed.Parser
}

// NewFeedSource creates a feed source. An empty name is derived from the URL.
func NewFeedSource(feedURL, name string) *FeedSource {
	if name == "" {
		name = extractSourceName(feedURL)
	}
	return &FeedSource{url: feedURL, name: name, parser: gofeed.NewParser()}
}

func (f *FeedSource) Name() string { return f.name }

// Fetch parses the feed. Items without a usable id or text are dropped.
func (f *FeedSource) Fetch(ctx context.Context) ([]Tweet, error) {
	feed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", f.url, err)
	}

	var tweets []Tweet
	for _, item := range feed.Items {
		if len(tweets) >= maxPerFeed {
			break
		}
		if t, ok := parseItem(item, f.name); ok {
			tweets = append(tweets, t)
		}
	}
	return tweets, nil
}

func parseItem(item *gofeed.Item, feedName string) (Tweet, bool) {
	id := statusID(item.Link)
	if id == "" {
		id = strings.TrimSpace(item.GUID)
	}
	if id == "" {
		return Tweet{}, false
	}

	text := ""
	if item.Description != "" {
		text = htmlToText(item.Description)
	}
	if text == "" && item.Content != "" {
		text = htmlToText(item.Content)
	}
	if text == "" {
		text = strings.TrimSpace(item.Title)
	}
	if text == "" {
		return Tweet{}, false
	}

	return Tweet{
		ID:     id,
		Text:   text,
		URL:    stripFragment(item.Link),
		Author: itemAuthor(item, feedName),
	}, true
}

// statusID returns the trailing numeric path segment of a status link.
func statusID(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Path == "" {
		return ""
	}
	last := path.Base(strings.TrimRight(u.Path, "/"))
	if last == "" || strings.Trim(last, "0123456789") != "" {
		return ""
	}
	return last
}

func itemAuthor(item *gofeed.Item, feedName string) string {
	name := ""
	if len(item.Authors) > 0 && item.Authors[0] != nil {
		name = item.Authors[0].Name
	} else if item.Author != nil {
		name = item.Author.Name
	}
	if name == "" && item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		name = item.DublinCoreExt.Creator[0]
	}
	if name == "" {
		name = feedName
	}
	return strings.TrimPrefix(strings.TrimSpace(name), "@")
}

func stripFragment(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	u.Fragment = ""
	return u.String()
}

// htmlToText flattens an HTML fragment to single-spaced text.
func htmlToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.Join(strings.Fields(html), " ")
	}
	doc.Find("br").ReplaceWithHtml(" ")
	doc.Find("img, script, style").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	// Nitter-style feeds carry the account in the first path segment.
	if seg := strings.Split(strings.Trim(u.Path, "/"), "/"); len(seg) > 0 && seg[0] != "" && seg[0] != "search" {
		return host + "/" + seg[0]
	}
	return host
}
