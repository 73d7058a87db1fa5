package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/config"
)

// scriptedTransport answers each Post according to a per-model script.
type scriptedTransport struct {
	name      string
	byModel   map[string]scriptedReply
	catchAll  *scriptedReply
	models    []string
	lastPath  string
	callCount int
}

type scriptedReply struct {
	embedding []float32
	response  string
	err       error
}

func (s *scriptedTransport) Name() string { return s.name }

func (s *scriptedTransport) Post(ctx context.Context, path string, payload, out any) error {
	s.callCount++
	s.lastPath = path

	var reply scriptedReply
	switch req := payload.(type) {
	case embedRequest:
		s.models = append(s.models, req.Model)
		if r, ok := s.byModel[req.Model]; ok {
			reply = r
		} else if s.catchAll != nil {
			reply = *s.catchAll
		} else {
			return &BackendError{Status: 404, Message: "model not found"}
		}
		if reply.err != nil {
			return reply.err
		}
		*(out.(*embedResponse)) = embedResponse{Embedding: reply.embedding}
	case generateRequest:
		s.models = append(s.models, req.Model)
		if s.catchAll == nil {
			return errors.New("no reply scripted")
		}
		reply = *s.catchAll
		if reply.err != nil {
			return reply.err
		}
		*(out.(*generateResponse)) = generateResponse{Response: reply.response}
	default:
		return fmt.Errorf("unexpected payload type %T", payload)
	}
	return nil
}

func aiTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.EmbeddingModelAliases = []string{"nomic-embed-text", "nomic-embed-text:latest", "all-minilm"}
	cfg.GenerationModel = "llama3.2"
	cfg.EmbedTimeout = time.Second
	cfg.EmbedFallbackTimeout = time.Second
	cfg.GenerateTimeout = time.Second
	cfg.GenerateFallbackTimeout = time.Second
	return cfg
}

func TestEmbedFirstAliasSucceeds(t *testing.T) {
	primary := &scriptedTransport{name: "http", byModel: map[string]scriptedReply{
		"nomic-embed-text": {embedding: []float32{0.1, 0.2}},
	}}
	fallback := &scriptedTransport{name: "process"}
	c := NewEmbeddingClientWithTransports(aiTestConfig(), primary, fallback)

	vec, err := c.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
	assert.Equal(t, []string{"nomic-embed-text"}, primary.models)
	assert.Zero(t, fallback.callCount)
}

func TestEmbedMissingModelTriesNextAlias(t *testing.T) {
	primary := &scriptedTransport{name: "http", byModel: map[string]scriptedReply{
		"nomic-embed-text:latest": {embedding: []float32{0.3}},
	}}
	c := NewEmbeddingClientWithTransports(aiTestConfig(), primary, &scriptedTransport{name: "process"})

	vec, err := c.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.3}, vec)
	assert.Equal(t, []string{"nomic-embed-text", "nomic-embed-text:latest"}, primary.models)
}

func TestEmbedTimeoutTriesNextAlias(t *testing.T) {
	primary := &scriptedTransport{name: "http", byModel: map[string]scriptedReply{
		"nomic-embed-text":        {err: &TransportError{Op: "post", Err: context.DeadlineExceeded}},
		"nomic-embed-text:latest": {embedding: []float32{0.4}},
	}}
	c := NewEmbeddingClientWithTransports(aiTestConfig(), primary, &scriptedTransport{name: "process"})

	vec, err := c.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.4}, vec)
}

func TestEmbedHardErrorAbortsAliasLoop(t *testing.T) {
	primary := &scriptedTransport{name: "http", byModel: map[string]scriptedReply{
		"nomic-embed-text": {err: &BackendError{Status: 500, Message: "boom"}},
	}}
	fallback := &scriptedTransport{name: "process", catchAll: &scriptedReply{embedding: []float32{0.5}}}
	c := NewEmbeddingClientWithTransports(aiTestConfig(), primary, fallback)

	vec, err := c.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, vec)
	// A 500 must not probe further aliases the way a 404 does.
	assert.Equal(t, []string{"nomic-embed-text"}, primary.models)
	// The fallback tier always uses the first alias.
	assert.Equal(t, []string{"nomic-embed-text"}, fallback.models)
}

func TestEmbedAllAliasesExhaustedUsesFallback(t *testing.T) {
	primary := &scriptedTransport{name: "http"} // every model: 404
	fallback := &scriptedTransport{name: "process", catchAll: &scriptedReply{embedding: []float32{0.6}}}
	c := NewEmbeddingClientWithTransports(aiTestConfig(), primary, fallback)

	vec, err := c.Embed(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.6}, vec)
	assert.Len(t, primary.models, 3)
}

func TestEmbedBothTiersFail(t *testing.T) {
	primary := &scriptedTransport{name: "http"}
	fallback := &scriptedTransport{name: "process", catchAll: &scriptedReply{err: errors.New("curl failed")}}
	c := NewEmbeddingClientWithTransports(aiTestConfig(), primary, fallback)

	_, err := c.Embed(context.Background(), "hello")

	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}

func TestEmbedEmptyVectorIsRejected(t *testing.T) {
	primary := &scriptedTransport{name: "http", catchAll: &scriptedReply{embedding: nil}}
	fallback := &scriptedTransport{name: "process", catchAll: &scriptedReply{embedding: nil}}
	c := NewEmbeddingClientWithTransports(aiTestConfig(), primary, fallback)

	_, err := c.Embed(context.Background(), "hello")

	assert.ErrorIs(t, err, ErrEmbeddingUnavailable)
}
