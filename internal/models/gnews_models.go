package models

type GNewsSearchResponse = struct {
	TotalArticles int             `json:"totalArticles"`
	Articles      []GNewsArticles `json:"articles"`
}

type GNewsArticles = struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"source"`
}
