// Package llmclient wraps google.golang.org/genai as the Embedder and
// Generator external collaborators named in spec.md §6. Grounded on the
// teacher's internal/llm/llm.go (API-key resolution chain, default model
// constants, method shapes) and on kokodak-docod's GeminiEmbedder/
// GeminiSummarizer, which use the same SDK consistently.
package llmclient

import (
	"context"
	"math"
	"os"
	"time"

	"google.golang.org/genai"

	"ragsum/internal/config"
	"ragsum/internal/core"
)

const (
	// DefaultModel is the default Gemini model used for synthesis.
	DefaultModel = "gemini-flash-lite-latest"
	// DefaultEmbeddingModel is the default model used for embeddings.
	DefaultEmbeddingModel = "gemini-embedding-001"
	// DefaultEmbeddingDimensions is the output dimension (D in spec.md §2).
	DefaultEmbeddingDimensions = 384

	embedBatchMax = 32
)

// Client wraps a genai.Client and implements both core.Embedder and
// core.Generator.
type Client struct {
	gClient        *genai.Client
	modelName      string
	embeddingModel string
	dimensions     int
	maxRetries     int
}

// NewClient resolves an API key from the GEMINI_API_KEY /
// GOOGLE_GEMINI_API_KEY / GOOGLE_AI_API_KEY env vars, then from the loaded
// config's ai.gemini.api_key. A non-empty modelName overrides the
// configured generator model.
func NewClient(ctx context.Context, modelName string) (*Client, error) {
	apiKey := resolveAPIKey()
	if apiKey == "" {
		return nil, core.NewError(core.KindGeneratorUnavailable, "no Gemini API key configured", nil)
	}

	gClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, core.NewError(core.KindGeneratorUnavailable, "failed to create genai client", err)
	}

	cfg := config.GetAIGemini()
	if modelName == "" {
		modelName = cfg.Model
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	embeddingModel := cfg.EmbeddingModel
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Client{
		gClient:        gClient,
		modelName:      modelName,
		embeddingModel: embeddingModel,
		dimensions:     DefaultEmbeddingDimensions,
		maxRetries:     maxRetries,
	}, nil
}

func resolveAPIKey() string {
	for _, envKey := range []string{"GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY"} {
		if v := os.Getenv(envKey); v != "" {
			return v
		}
	}
	return config.GetAIGemini().APIKey
}

// Dimensions returns the fixed embedding dimension this client produces.
func (c *Client) Dimensions() int { return c.dimensions }

// ModelName returns the generator model in use.
func (c *Client) ModelName() string { return c.modelName }

// Embed embeds a single string. Returns an L2-normalized vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, core.NewError(core.KindEmbedderUnavailable, "no embedding returned", nil)
	}
	return vectors[0], nil
}

// EmbedBatch embeds a batch of strings through genai's EmbedContent call.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	dim := int32(c.dimensions)
	cfg := &genai.EmbedContentConfig{OutputDimensionality: &dim}

	var out [][]float32
	for i := 0; i < len(texts); i += embedBatchMax {
		end := i + embedBatchMax
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[i:end]

		contents := make([]*genai.Content, 0, len(batch))
		for _, text := range batch {
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}

		resp, err := c.embedWithRetry(ctx, contents, cfg)
		if err != nil {
			return nil, core.NewError(core.KindEmbedderUnavailable, "embedding request failed", err)
		}
		if len(resp.Embeddings) != len(batch) {
			return nil, core.NewError(core.KindEmbedderUnavailable, "embedding count mismatch", nil)
		}
		for _, emb := range resp.Embeddings {
			out = append(out, normalize(emb.Values))
		}
	}
	return out, nil
}

func (c *Client) embedWithRetry(ctx context.Context, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := c.gClient.Models.EmbedContent(ctx, c.embeddingModel, contents, cfg)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt+1) * 200 * time.Millisecond):
		}
	}
	return nil, lastErr
}

// normalize L2-normalizes a vector; genai embeddings are already
// unit-norm, but this keeps the invariant explicit and cheap to verify.
func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Generate calls the generator model with the given prompt and temperature.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	temp := float32(temperature)
	resp, err := c.gClient.Models.GenerateContent(ctx, c.modelName,
		genai.Text(prompt),
		&genai.GenerateContentConfig{Temperature: &temp},
	)
	if err != nil {
		return "", core.NewError(core.KindGeneratorUnavailable, "generation request failed", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", core.NewError(core.KindGeneratorUnavailable, "empty generation response", nil)
	}
	return resp.Text(), nil
}

// IsAvailable reports whether this client is configured and reachable. It
// does not make a network call; it only checks that a client exists.
func (c *Client) IsAvailable(ctx context.Context) bool {
	return c != nil && c.gClient != nil
}

var _ core.Embedder = (*Client)(nil)
var _ core.Generator = (*Client)(nil)
