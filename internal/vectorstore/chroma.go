package vectorstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/models"
)

// ErrIndexUnavailable means the named collection does not exist, usually
// because the index has never been built or a rebuild is in flight.
// Callers report this to the user; it is never retried here.
var ErrIndexUnavailable = errors.New("vector index collection not found")

// Client talks to a Chroma-style vector index over HTTP. Embeddings are
// always supplied explicitly by the caller; the collection has no
// embedding function of its own.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type collectionInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// QueryResult is the flattened single-query response.
type QueryResult struct {
	IDs       []string
	Documents []string
	Distances []float64
	Metadatas []models.ChunkMetadata
}

func (c *Client) getCollection(ctx context.Context, name string) (*collectionInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/collections/"+name, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vector index request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		return nil, ErrIndexUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("vector index returned status %d: %s", resp.StatusCode, string(body))
	}

	var info collectionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode collection response: %w", err)
	}

	return &info, nil
}

// EnsureCollection creates the named collection if it does not exist.
func (c *Client) EnsureCollection(ctx context.Context, name string) error {
	payload := map[string]any{
		"name":          name,
		"get_or_create": true,
	}
	return c.postJSON(ctx, "/api/v1/collections", payload, nil)
}

// DeleteCollection removes the named collection. A missing collection is
// not an error; rebuilds call this unconditionally.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	req, err := http.NewRequestWithContext(ctx, "DELETE", c.baseURL+"/api/v1/collections/"+name, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vector index request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("vector index returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// ListCollections returns the names of all collections.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/collections", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vector index request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vector index returned status %d", resp.StatusCode)
	}

	var infos []collectionInfo
	if err := json.NewDecoder(resp.Body).Decode(&infos); err != nil {
		return nil, fmt.Errorf("failed to decode collections response: %w", err)
	}

	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name
	}
	return names, nil
}

// Add inserts documents with caller-supplied embeddings and metadata.
func (c *Client) Add(ctx context.Context, collection string, ids []string, embeddings [][]float32, documents []string, metadatas []models.ChunkMetadata) error {
	info, err := c.getCollection(ctx, collection)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"ids":        ids,
		"embeddings": embeddings,
		"documents":  documents,
		"metadatas":  metadatas,
	}
	return c.postJSON(ctx, "/api/v1/collections/"+info.ID+"/add", payload, nil)
}

type queryResponse struct {
	IDs       [][]string               `json:"ids"`
	Documents [][]string               `json:"documents"`
	Distances [][]float64              `json:"distances"`
	Metadatas [][]models.ChunkMetadata `json:"metadatas"`
}

// Query returns the k nearest neighbors of one embedding. Distance
// semantics are cosine-style: lower is more similar, roughly [0,1].
func (c *Client) Query(ctx context.Context, collection string, embedding []float32, k int) (*QueryResult, error) {
	info, err := c.getCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"query_embeddings": [][]float32{embedding},
		"n_results":        k,
		"include":          []string{"documents", "distances", "metadatas"},
	}

	var resp queryResponse
	if err := c.postJSON(ctx, "/api/v1/collections/"+info.ID+"/query", payload, &resp); err != nil {
		return nil, err
	}

	result := &QueryResult{}
	if len(resp.IDs) > 0 {
		result.IDs = resp.IDs[0]
	}
	if len(resp.Documents) > 0 {
		result.Documents = resp.Documents[0]
	}
	if len(resp.Distances) > 0 {
		result.Distances = resp.Distances[0]
	}
	if len(resp.Metadatas) > 0 {
		result.Metadatas = resp.Metadatas[0]
	}

	return result, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vector index request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrIndexUnavailable
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("vector index returned status %d: %s", resp.StatusCode, string(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode vector index response: %w", err)
		}
	}

	return nil
}
