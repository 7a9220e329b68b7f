package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/kts999jjang/themeradar/internal/extraction"
	"github.com/kts999jjang/themeradar/internal/models"
	"github.com/kts999jjang/themeradar/internal/themes"
)

const (
	summaryKeyPrefix = "theme_summary:"
	summaryTTL       = 12 * time.Hour
)

// cachedThemeSummary returns a one-sentence description of the theme,
// generated once per TTL and cached. The summary is the embedding
// input, so a stable sentence keeps the similarity query stable across
// runs within the cache window.
func cachedThemeSummary(ctx context.Context, store Store, generators []TextGenerator, theme themes.Theme) (string, error) {
	key := summaryKeyPrefix + theme.Name
	if cached, found, err := store.GetString(ctx, key); err == nil && found && cached != "" {
		return cached, nil
	}

	prompt := fmt.Sprintf(
		"Describe the %q stock investment theme in one English sentence, focusing on the industries and technologies it covers. Respond with the sentence only.",
		theme.Name)

	var lastErr error
	for _, generator := range generators {
		raw, err := generator.GenerateText(ctx, prompt)
		if err != nil {
			slog.Warn("[Orchestrator] Summary generation failed, trying next generator",
				slog.String("generator", generator.Name()),
				slog.String("theme", theme.Name),
				slog.String("error", err.Error()))
			lastErr = err
			continue
		}

		summary := extraction.PlainText(raw)
		if summary == "" {
			lastErr = fmt.Errorf("generator %s returned an empty summary", generator.Name())
			continue
		}

		if err := store.SetString(ctx, key, summary, summaryTTL); err != nil {
			slog.Warn("[Orchestrator] Failed to cache theme summary",
				slog.String("theme", theme.Name),
				slog.String("error", err.Error()))
		}
		return summary, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no text generators configured")
	}
	return "", lastErr
}

func encodeRecommendations(set models.RecommendationSet) (string, error) {
	blob, err := json.Marshal(set)
	if err != nil {
		return "", fmt.Errorf("[Orchestrator] failed to encode recommendations: %w", err)
	}
	return string(blob), nil
}

// DecodeRecommendations parses a persisted recommendations blob.
func DecodeRecommendations(blob string) (models.RecommendationSet, error) {
	var set models.RecommendationSet
	if err := json.Unmarshal([]byte(blob), &set); err != nil {
		return models.RecommendationSet{}, fmt.Errorf("unreadable recommendations blob: %w", err)
	}
	return set, nil
}

// RecommendationsKey returns the store key for an analysis period.
func RecommendationsKey(period string) string {
	return recommendationsKeyPrefix + period
}
