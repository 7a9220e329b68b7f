package clients

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	openAIRequestTimeout = 60 * time.Second // Timeout for individual OpenAI API requests
	openAIChatModel      = openai.GPT4oMini
)

var (
	openAIClientInstance *OpenAIClient
	openAIOnce           sync.Once
	openAIInitErr        error
)

// OpenAIClient is the fallback text generator and embedder used when
// Gemini is unavailable.
type OpenAIClient struct {
	Client *openai.Client
}

func GetOpenAIClient() (*OpenAIClient, error) {
	openAIOnce.Do(func() {
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			openAIInitErr = errors.New("[OpenAIClient] OPENAI_API_KEY is not set")
			return
		}
		config := openai.DefaultConfig(apiKey)
		config.HTTPClient = &http.Client{Timeout: openAIRequestTimeout}
		openAIClientInstance = &OpenAIClient{
			Client: openai.NewClientWithConfig(config),
		}
	})
	return openAIClientInstance, openAIInitErr
}

func (o *OpenAIClient) Name() string { return "OpenAI" }

// GenerateText sends a single-turn chat completion and returns the
// first choice.
func (o *OpenAIClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := o.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       openAIChatModel,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("[OpenAIClient] chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("[OpenAIClient] empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for a single text.
func (o *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.Client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.SmallEmbedding3,
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("[OpenAIClient] embedding failed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, errors.New("[OpenAIClient] embedding response contained no values")
	}
	return resp.Data[0].Embedding, nil
}
