package analysis

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/kts999jjang/themeradar/internal/themes"
)

const trendingThemeLimit = 4

// TrendingTheme pairs a theme with its recent article volume.
type TrendingTheme struct {
	Name         string `json:"name"`
	ArticleCount int    `json:"articleCount"`
}

// TrendingThemes ranks the curated themes by total article count over
// the window and returns the busiest few. A theme whose count lookup
// fails is reported with zero volume rather than failing the ranking.
func TrendingThemes(ctx context.Context, source NewsSource, window time.Duration) ([]TrendingTheme, error) {
	to := time.Now()
	from := to.Add(-window)

	trending := make([]TrendingTheme, 0, len(themes.InvestmentThemes))
	for _, theme := range themes.InvestmentThemes {
		_, total, err := source.Search(ctx, theme.Query, from, to, 1)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			slog.Warn("[TrendingThemes] Count lookup failed",
				slog.String("theme", theme.Name),
				slog.String("error", err.Error()))
			total = 0
		}
		trending = append(trending, TrendingTheme{Name: theme.Name, ArticleCount: total})
	}

	sort.SliceStable(trending, func(i, j int) bool {
		return trending[i].ArticleCount > trending[j].ArticleCount
	})
	if len(trending) > trendingThemeLimit {
		trending = trending[:trendingThemeLimit]
	}
	return trending, nil
}
