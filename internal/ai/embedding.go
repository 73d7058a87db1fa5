package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/config"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/logger"
)

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// EmbeddingClient turns text into a fixed-length vector. The primary HTTP
// tier is tried once per configured model alias (naming conventions drift
// between backend versions); if every alias fails, the process tier gets
// one attempt with a longer budget. Callers only ever see
// ErrEmbeddingUnavailable after both tiers are exhausted.
type EmbeddingClient struct {
	cfg      *config.Config
	primary  Transport
	fallback Transport
	google   *GoogleClient
}

func NewEmbeddingClient(cfg *config.Config, google *GoogleClient) *EmbeddingClient {
	return &EmbeddingClient{
		cfg:      cfg,
		primary:  NewHTTPTransport(cfg.OllamaBaseURL),
		fallback: NewProcessTransport(cfg.OllamaBaseURL),
		google:   google,
	}
}

// NewEmbeddingClientWithTransports is used by tests to inject transports.
func NewEmbeddingClientWithTransports(cfg *config.Config, primary, fallback Transport) *EmbeddingClient {
	return &EmbeddingClient{cfg: cfg, primary: primary, fallback: fallback}
}

func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.google != nil {
		return c.google.Embed(ctx, text)
	}

	var lastErr error

	for _, alias := range c.cfg.EmbeddingModelAliases {
		alias = strings.TrimSpace(alias)
		if alias == "" {
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.EmbedTimeout)
		var resp embedResponse
		err := c.primary.Post(attemptCtx, "/api/embeddings", embedRequest{Model: alias, Prompt: text}, &resp)
		cancel()

		if err == nil {
			if len(resp.Embedding) == 0 {
				lastErr = &ParseError{Err: errors.New("empty embedding in response")}
				continue
			}
			return resp.Embedding, nil
		}

		lastErr = err

		if errors.Is(err, context.DeadlineExceeded) {
			logger.Debug("Embedding attempt timed out, trying next alias", "model", alias)
			continue
		}

		var be *BackendError
		if errors.As(err, &be) && be.NotFound() {
			logger.Debug("Embedding model not found under alias, trying next", "model", alias)
			continue
		}

		// Any other HTTP-tier failure aborts the alias loop early.
		break
	}

	logger.Warn("Primary embedding transport exhausted, falling back", "error", lastErr)

	fallbackCtx, cancel := context.WithTimeout(ctx, c.cfg.EmbedFallbackTimeout)
	defer cancel()

	var resp embedResponse
	req := embedRequest{Model: strings.TrimSpace(c.cfg.EmbeddingModelAliases[0]), Prompt: text}
	if err := c.fallback.Post(fallbackCtx, "/api/embeddings", req, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: fallback returned empty embedding", ErrEmbeddingUnavailable)
	}

	return resp.Embedding, nil
}
