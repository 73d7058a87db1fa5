package ai

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/config"
)

// GoogleClient is the alternative provider behind AI_PROVIDER=google. It
// replaces both transport tiers with the Gemini SDK; the SDK handles its
// own retries, so the alias/fallback machinery does not apply.
type GoogleClient struct {
	client     *genai.Client
	embedModel string
	genModel   string
	temp       float32
}

func NewGoogleClient(ctx context.Context, cfg *config.Config) (*GoogleClient, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for google provider")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, err
	}

	return &GoogleClient{
		client:     client,
		embedModel: cfg.GoogleEmbeddingsModel,
		genModel:   cfg.GoogleGenerationModel,
		temp:       float32(cfg.GenTemperature),
	}, nil
}

func (g *GoogleClient) Embed(ctx context.Context, text string) ([]float32, error) {
	model := g.client.EmbeddingModel(g.embedModel)
	resp, err := model.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if resp.Embedding == nil {
		return nil, fmt.Errorf("%w: no embedding returned", ErrEmbeddingUnavailable)
	}

	return resp.Embedding.Values, nil
}

func (g *GoogleClient) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.genModel)
	model.SetTemperature(g.temp)
	model.SetMaxOutputTokens(2048)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	text := ""
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text += string(t)
			}
		}
	}
	if text == "" {
		return "", fmt.Errorf("%w: empty response", ErrGenerationUnavailable)
	}

	return text, nil
}

func (g *GoogleClient) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
