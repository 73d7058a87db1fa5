package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/sony/gobreaker"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/logger"
)

// Transport posts a JSON payload to one endpoint of the AI backend and
// decodes the JSON response into out. The clients hold an ordered list of
// transports and try them in sequence; per-attempt timeouts come from the
// caller's context.
type Transport interface {
	Post(ctx context.Context, path string, payload, out any) error
	Name() string
}

// HTTPTransport is the primary tier: plain JSON-over-HTTP with a circuit
// breaker so a flapping backend doesn't absorb every request's full
// timeout budget.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewHTTPTransport(baseURL string) *HTTPTransport {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "AIBackendHTTP",
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &HTTPTransport{
		baseURL: baseURL,
		// No client-level timeout: each attempt carries its own context
		// deadline so the embedding alias loop can budget per alias.
		client:  &http.Client{},
		breaker: breaker,
	}
}

func (t *HTTPTransport) Name() string { return "http" }

func (t *HTTPTransport) Post(ctx context.Context, path string, payload, out any) error {
	res, err := t.breaker.Execute(func() (interface{}, error) {
		callErr := t.post(ctx, path, payload, out)
		var te *TransportError
		if errors.As(callErr, &te) {
			// Only reachability failures trip the breaker. Backend errors
			// (404 on a model alias probe) are normal operation.
			return nil, callErr
		}
		return callErr, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return &TransportError{Op: "http post " + path, Err: err}
		}
		return err
	}
	if res == nil {
		return nil
	}
	if callErr, ok := res.(error); ok {
		return callErr
	}
	return nil
}

func (t *HTTPTransport) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return &TransportError{Op: "http post " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &BackendError{Status: resp.StatusCode, Message: string(msg)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ParseError{Err: err}
	}

	return nil
}

// ProcessTransport is the fallback tier: it shells out to curl with the
// payload written to a temp file. Depending on backend version and config
// the HTTP path can silently hang or 404; a fresh process with its own
// lifetime gets past both failure modes.
type ProcessTransport struct {
	baseURL string
}

func NewProcessTransport(baseURL string) *ProcessTransport {
	return &ProcessTransport{baseURL: baseURL}
}

func (t *ProcessTransport) Name() string { return "process" }

func (t *ProcessTransport) Post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "ai-payload-*.json")
	if err != nil {
		return &TransportError{Op: "create temp payload", Err: err}
	}
	// Removed on every exit path: success, process failure, parse failure.
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return &TransportError{Op: "write temp payload", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &TransportError{Op: "close temp payload", Err: err}
	}

	cmd := exec.CommandContext(ctx, "curl", "-s", "-X", "POST",
		t.baseURL+path,
		"-H", "Content-Type: application/json",
		"-d", "@"+tmp.Name())

	var stdout bytes.Buffer
	stdout.Grow(1 << 20) // generation responses can be large
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return &TransportError{Op: "process post " + path, Err: err}
	}

	raw := stdout.Bytes()

	// The backend reports its own failures as {"error": "..."} with a 200
	// exit from curl, so check for that envelope before decoding.
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &ParseError{Err: err}
	}
	if envelope.Error != "" {
		return &BackendError{Message: envelope.Error}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &ParseError{Err: err}
	}

	return nil
}
