package models

import "time"

// Article is the canonical shape for a news article inside the pipeline.
// It is built once at the provider boundary; downstream stages treat it
// as read-only.
type Article struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt int64  `json:"publishedAt"`
}

// ArticleFromMetadata validates and defaults a raw vector-index metadata
// map into an Article. Records without a title or url are unusable and
// return ok=false.
func ArticleFromMetadata(meta map[string]any) (Article, bool) {
	title, _ := meta["title"].(string)
	url, _ := meta["url"].(string)
	if title == "" || url == "" {
		return Article{}, false
	}

	source, _ := meta["source"].(string)

	var publishedAt int64
	switch v := meta["publishedAt"].(type) {
	case float64:
		publishedAt = int64(v)
	case int64:
		publishedAt = v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			publishedAt = t.Unix()
		}
	}

	return Article{
		Title:       title,
		URL:         url,
		Source:      source,
		PublishedAt: publishedAt,
	}, true
}

// Metadata returns the flat map stored alongside the article's vector.
func (a Article) Metadata() map[string]any {
	return map[string]any{
		"title":       a.Title,
		"url":         a.URL,
		"source":      a.Source,
		"publishedAt": a.PublishedAt,
	}
}

// DedupeArticles drops articles sharing a URL, keeping first occurrence.
func DedupeArticles(articles []Article) []Article {
	seen := make(map[string]struct{}, len(articles))
	out := make([]Article, 0, len(articles))
	for _, a := range articles {
		if _, ok := seen[a.URL]; ok {
			continue
		}
		seen[a.URL] = struct{}{}
		out = append(out, a)
	}
	return out
}
