package clients

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"google.golang.org/genai"
)

const (
	geminiTextModel      = "gemini-2.0-flash"
	geminiEmbeddingModel = "text-embedding-004"
	geminiEmbeddingDim   = int32(768)
)

var (
	geminiInstance *GeminiClient
	geminiOnce     sync.Once
	geminiInitErr  error
)

// GeminiClient wraps the Gemini API for text generation and embeddings.
// It is the primary text generator; OpenAI serves as the fallback.
type GeminiClient struct {
	client *genai.Client
}

func GetGeminiClient(ctx context.Context) (*GeminiClient, error) {
	geminiOnce.Do(func() {
		apiKey := os.Getenv("GEMINI_API_KEY")
		if apiKey == "" {
			geminiInitErr = errors.New("[GeminiClient] GEMINI_API_KEY is not set")
			return
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			geminiInitErr = fmt.Errorf("[GeminiClient] failed to create client: %w", err)
			return
		}
		geminiInstance = &GeminiClient{client: client}
	})
	return geminiInstance, geminiInitErr
}

func (g *GeminiClient) Name() string { return "Gemini" }

// GenerateText sends a single-turn prompt and returns the plain-text
// response.
func (g *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{Parts: []*genai.Part{genai.NewPartFromText(prompt)}},
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(0.3)),
	}

	resp, err := g.client.Models.GenerateContent(ctx, geminiTextModel, contents, config)
	if err != nil {
		return "", fmt.Errorf("[GeminiClient] generation failed: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("[GeminiClient] empty response")
	}
	return text, nil
}

// Embed returns the embedding vector for a single text.
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	dim := geminiEmbeddingDim
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	result, err := g.client.Models.EmbedContent(ctx, geminiEmbeddingModel, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("[GeminiClient] embedding failed: %w", err)
	}
	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, errors.New("[GeminiClient] embedding response contained no values")
	}
	return result.Embeddings[0].Values, nil
}
