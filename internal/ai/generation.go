package ai

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/config"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/logger"
)

type generateOptions struct {
	TopP        float64 `json:"top_p"`
	Temperature float64 `json:"temperature"`
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// GenerationClient sends a prompt to the text-generation backend. Same
// two-tier fallback shape as the EmbeddingClient but with a single fixed
// model (no alias loop) and longer timeouts, since generation is slow.
// A failure on the fallback tier is terminal for the call.
type GenerationClient struct {
	cfg      *config.Config
	primary  Transport
	fallback Transport
	limiter  *rate.Limiter
	google   *GoogleClient
}

func NewGenerationClient(cfg *config.Config, google *GoogleClient) *GenerationClient {
	return &GenerationClient{
		cfg:      cfg,
		primary:  NewHTTPTransport(cfg.OllamaBaseURL),
		fallback: NewProcessTransport(cfg.OllamaBaseURL),
		limiter:  rate.NewLimiter(rate.Limit(2), 4),
		google:   google,
	}
}

// NewGenerationClientWithTransports is used by tests to inject transports.
func NewGenerationClientWithTransports(cfg *config.Config, primary, fallback Transport) *GenerationClient {
	return &GenerationClient{
		cfg:      cfg,
		primary:  primary,
		fallback: fallback,
		limiter:  rate.NewLimiter(rate.Inf, 1),
	}
}

func (c *GenerationClient) Generate(ctx context.Context, prompt string) (string, error) {
	if c.google != nil {
		return c.google.Generate(ctx, prompt)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req := generateRequest{
		Model:  c.cfg.GenerationModel,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			TopP:        c.cfg.GenTopP,
			Temperature: c.cfg.GenTemperature,
		},
	}

	primaryCtx, cancel := context.WithTimeout(ctx, c.cfg.GenerateTimeout)
	var resp generateResponse
	err := c.primary.Post(primaryCtx, "/api/generate", req, &resp)
	cancel()
	if err == nil {
		if resp.Response != "" {
			return resp.Response, nil
		}
		err = fmt.Errorf("empty response from primary transport")
	}

	logger.Warn("Primary generation transport failed, falling back", "error", err)

	fallbackCtx, cancel := context.WithTimeout(ctx, c.cfg.GenerateFallbackTimeout)
	defer cancel()

	resp = generateResponse{}
	if err := c.fallback.Post(fallbackCtx, "/api/generate", req, &resp); err != nil {
		// No further tier: parse failures and backend errors here are
		// terminal and surface to the caller.
		return "", fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	return resp.Response, nil
}

// SelfAssess asks the model to rate its own answer against the question
// and a truncated slice of the retrieval context on a 0.0-1.0 scale.
func (c *GenerationClient) SelfAssess(ctx context.Context, question, answer, contextText string) (float64, error) {
	if len(contextText) > 500 {
		contextText = contextText[:500]
	}

	prompt := fmt.Sprintf(`You answered a question using excerpts from standard operating procedures.

Question: %s

Context excerpt: %s

Your answer: %s

Rate how well your answer is supported by the context on a scale from 0.0 to 1.0. Reply with a single number and nothing else.`,
		question, contextText, answer)

	reply, err := c.Generate(ctx, prompt)
	if err != nil {
		return 0, err
	}

	return parseScore(reply)
}

var scorePattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// parseScore extracts the first numeric token from a self-assessment
// reply. Models sometimes answer on a 0-100 scale despite instructions,
// so values above 1 are rescaled.
func parseScore(reply string) (float64, error) {
	token := scorePattern.FindString(reply)
	if token == "" {
		return 0, fmt.Errorf("no numeric score in reply %q", reply)
	}

	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, err
	}

	if value > 1 {
		value = value / 100
	}

	return math.Max(0, math.Min(1, value)), nil
}
