package models

// NewsArticle is one headline collected from an RSS feed or a news search
// API. Published is kept as the free-form string the source supplied
// ("Unknown" when absent): feeds disagree on date formats, so articles
// carry no reliable chronological ordering and "recent" always means
// fetch order, not true recency.
type NewsArticle struct {
	Title     string `json:"title"`
	Link      string `json:"link"`
	Published string `json:"published"`
	Summary   string `json:"summary"`
	Source    string `json:"source"`
}
