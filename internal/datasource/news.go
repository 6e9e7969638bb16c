package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/marketbrief/marketbrief/pkg/models"
)

// NewsFeed is one RSS source in the fixed roster.
type NewsFeed struct {
	Name string
	URL  string
}

// DefaultNewsFeeds is the fixed RSS roster, polled in order.
var DefaultNewsFeeds = []NewsFeed{
	{Name: "Reuters Business", URL: "https://feeds.reuters.com/reuters/businessNews"},
	{Name: "Bloomberg Markets", URL: "https://feeds.bloomberg.com/markets/news.rss"},
	{Name: "CNBC", URL: "https://www.cnbc.com/id/100003114/device/rss/rss.html"},
	{Name: "MarketWatch", URL: "https://feeds.marketwatch.com/marketwatch/topstories/"},
	{Name: "Yahoo Finance", URL: "https://finance.yahoo.com/news/rssindex"},
}

const (
	newsAPIBaseURL   = "https://newsapi.org/v2/everything"
	maxItemsPerFeed  = 10
	maxNewsAPIItems  = 50
	newsAPIQuery     = "stock market OR economy OR finance"
	newsAPILanguage  = "en"
	newsAPISortBy    = "relevancy"
	summaryMaxLength = 500
)

// NewsSource collects articles from the RSS roster and, when a key is
// configured, the NewsAPI keyword search. Per-feed failures are recorded
// and skipped; the collection itself never fails.
type NewsSource struct {
	feeds      []NewsFeed
	newsAPIKey string
	apiBaseURL string
	parser     *gofeed.Parser
	httpClient *http.Client
	logger     *zap.Logger
}

// NewsOption configures the news source.
type NewsOption func(*NewsSource)

// WithNewsFeeds overrides the RSS roster.
func WithNewsFeeds(feeds []NewsFeed) NewsOption {
	return func(n *NewsSource) { n.feeds = feeds }
}

// WithNewsAPIBaseURL sets a custom NewsAPI endpoint.
func WithNewsAPIBaseURL(u string) NewsOption {
	return func(n *NewsSource) { n.apiBaseURL = u }
}

// WithNewsHTTPClient sets a custom HTTP client for both RSS and NewsAPI.
func WithNewsHTTPClient(c *http.Client) NewsOption {
	return func(n *NewsSource) {
		n.httpClient = c
		n.parser.Client = c
	}
}

// NewNewsSource creates the article source. newsAPIKey may be empty, in
// which case only the RSS roster is polled.
func NewNewsSource(newsAPIKey string, timeout time.Duration, logger *zap.Logger, opts ...NewsOption) *NewsSource {
	client := &http.Client{Timeout: timeout}
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = browserUA

	n := &NewsSource{
		feeds:      DefaultNewsFeeds,
		newsAPIKey: newsAPIKey,
		apiBaseURL: newsAPIBaseURL,
		parser:     parser,
		httpClient: client,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Articles implements News. Order is fetch order: the RSS roster in
// sequence, then NewsAPI results.
func (n *NewsSource) Articles(ctx context.Context, start, end time.Time) ([]models.NewsArticle, []FetchError) {
	var articles []models.NewsArticle
	var diags []FetchError

	for _, feed := range n.feeds {
		items, err := n.fetchFeed(ctx, feed)
		if err != nil {
			n.logger.Warn("news feed failed",
				zap.String("feed", feed.Name),
				zap.Error(err))
			diags = append(diags, FetchError{Target: feed.Name, Stage: "news", Err: err})
			continue
		}
		articles = append(articles, items...)
	}

	if n.newsAPIKey != "" {
		items, err := n.fetchNewsAPI(ctx, start, end)
		if err != nil {
			n.logger.Warn("newsapi fetch failed", zap.Error(err))
			diags = append(diags, FetchError{Target: "newsapi", Stage: "news", Err: err})
		} else {
			articles = append(articles, items...)
		}
	}

	n.logger.Info("collected news", zap.Int("articles", len(articles)))
	return articles, diags
}

func (n *NewsSource) fetchFeed(ctx context.Context, feed NewsFeed) ([]models.NewsArticle, error) {
	parsed, err := n.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}

	items := parsed.Items
	if len(items) > maxItemsPerFeed {
		items = items[:maxItemsPerFeed]
	}

	articles := make([]models.NewsArticle, 0, len(items))
	for _, item := range items {
		published := "Unknown"
		if item.Published != "" {
			published = item.Published
		} else if item.PublishedParsed != nil {
			published = item.PublishedParsed.Format(time.RFC1123)
		}
		articles = append(articles, models.NewsArticle{
			Title:     strings.TrimSpace(item.Title),
			Link:      item.Link,
			Published: published,
			Summary:   cleanHTML(item.Description),
			Source:    feed.Name,
		})
	}
	return articles, nil
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Articles []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Description string `json:"description"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

func (n *NewsSource) fetchNewsAPI(ctx context.Context, start, end time.Time) ([]models.NewsArticle, error) {
	params := url.Values{}
	params.Set("q", newsAPIQuery)
	params.Set("from", start.Format("2006-01-02"))
	params.Set("to", end.Format("2006-01-02"))
	params.Set("language", newsAPILanguage)
	params.Set("sortBy", newsAPISortBy)
	params.Set("pageSize", fmt.Sprintf("%d", maxNewsAPIItems))

	headers := map[string]string{"X-Api-Key": n.newsAPIKey}
	body, err := doGet(ctx, n.httpClient, n.apiBaseURL+"?"+params.Encode(), headers)
	if err != nil {
		return nil, err
	}

	var resp newsAPIResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing newsapi response: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi error: %s", resp.Message)
	}

	if len(resp.Articles) > maxNewsAPIItems {
		resp.Articles = resp.Articles[:maxNewsAPIItems]
	}
	articles := make([]models.NewsArticle, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		published := "Unknown"
		if a.PublishedAt != "" {
			published = a.PublishedAt
		}
		articles = append(articles, models.NewsArticle{
			Title:     strings.TrimSpace(a.Title),
			Link:      a.URL,
			Published: published,
			Summary:   cleanHTML(a.Description),
			Source:    a.Source.Name,
		})
	}
	return articles, nil
}

// cleanHTML strips markup from feed descriptions and truncates the result
// to a summary-sized excerpt.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	text := s
	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(s))); err == nil {
		text = doc.Text()
	}
	text = strings.Join(strings.Fields(text), " ")
	if len(text) > summaryMaxLength {
		text = text[:summaryMaxLength] + "..."
	}
	return text
}
