package embeddings

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Ensure LMStudioClient implements Embedder interface at compile time
var _ Embedder = (*LMStudioClient)(nil)

// LMStudioClient generates embeddings through LM Studio's OpenAI-compatible
// /v1/embeddings endpoint.
type LMStudioClient struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewLMStudioClient creates a new LM Studio embedding client.
func NewLMStudioClient(baseURL, model string) *LMStudioClient {
	return &LMStudioClient{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 3 * time.Minute, // Generous timeout for large models
		},
	}
}

// openAIEmbedRequest is the request format for OpenAI-compatible /v1/embeddings endpoint
type openAIEmbedRequest struct {
	Input any    `json:"input"` // Can be string or []string
	Model string `json:"model"`
}

// openAIEmbedResponse is the response format from OpenAI-compatible /v1/embeddings endpoint
type openAIEmbedResponse struct {
	Object string `json:"object"`
	Data   []struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
}

// Embed generates an embedding for a single text string
func (c *LMStudioClient) Embed(text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	embedResp, err := c.post(text)
	if err != nil {
		return nil, err
	}
	if len(embedResp.Data) == 0 {
		return nil, fmt.Errorf("no embeddings returned")
	}
	return embedResp.Data[0].Embedding, nil
}

// EmbedBatch generates embeddings for multiple text strings in a single request
func (c *LMStudioClient) EmbedBatch(texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}

	embedResp, err := c.post(texts)
	if err != nil {
		return nil, err
	}
	if len(embedResp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(embedResp.Data))
	}

	// Extract embeddings in order
	result := make([][]float32, len(texts))
	for _, data := range embedResp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("invalid embedding index: %d", data.Index)
		}
		result[data.Index] = data.Embedding
	}
	return result, nil
}

func (c *LMStudioClient) post(input any) (*openAIEmbedResponse, error) {
	body, err := json.Marshal(openAIEmbedRequest{Input: input, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.client.Post(c.baseURL+"/v1/embeddings", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("lmstudio error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var embedResp openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &embedResp, nil
}

// Health checks if the LM Studio service is available with a model loaded
func (c *LMStudioClient) Health() error {
	resp, err := c.client.Get(c.baseURL + "/v1/models")
	if err != nil {
		return fmt.Errorf("lmstudio not available: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lmstudio returned status %d", resp.StatusCode)
	}

	var modelsResp struct {
		Object string `json:"object"`
		Data   []struct {
			ID string `json:"id"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&modelsResp); err != nil {
		return fmt.Errorf("decode models response: %w", err)
	}

	// LM Studio may not list exact model names, so only require that some
	// model is loaded.
	if len(modelsResp.Data) == 0 {
		return fmt.Errorf("no models loaded in lmstudio")
	}
	return nil
}
