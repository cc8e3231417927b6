package llm

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"trendscout/types"
)

// Embedder turns texts into vectors, one per input
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

// CohereEmbeddings implements Embedder using the Cohere Embed API (v2)
type CohereEmbeddings struct {
	client *cohereclient.Client
	model  string
}

// NewCohereEmbeddings creates a Cohere client. The HTTP client forces HTTP/1.1 to avoid HTTP/2 protocol errors.
func NewCohereEmbeddings(apiKey, model string) *CohereEmbeddings {
	if model == "" {
		model = "embed-english-v3.0"
	}
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereEmbeddings{client: client, model: model}
}

func (c *CohereEmbeddings) EmbedTexts(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}
	resp, err := c.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
		Texts:          texts,
		Model:          c.model,
		InputType:      cohere.EmbedInputTypeClassification,
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		return nil, &types.ProviderError{Provider: "cohere", Err: err}
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, &types.ProviderError{Provider: "cohere", Err: errors.New("no float embeddings returned")}
	}
	if len(resp.Embeddings.Float) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(resp.Embeddings.Float), len(texts))
	}
	return resp.Embeddings.Float, nil
}

// ResearchAnchors describe the kind of query the pipeline is built to answer
var ResearchAnchors = []string{
	"market trends for a product category",
	"consumer preferences and buying behaviour for products",
	"emerging design and technology trends in an industry",
	"forecast of upcoming product trends in a country",
	"comparison of competing products and brands in a market",
}

// ScopeScorer measures how research-aligned a query is. Anchor vectors are embedded once.
type ScopeScorer struct {
	embedder Embedder
	anchors  []string

	mu         sync.Mutex
	anchorVecs [][]float64
}

// NewScopeScorer returns a scorer over ResearchAnchors
func NewScopeScorer(embedder Embedder) *ScopeScorer {
	return &ScopeScorer{embedder: embedder, anchors: ResearchAnchors}
}

// Score returns the best cosine similarity between text and any anchor
func (s *ScopeScorer) Score(ctx context.Context, text string) (float64, error) {
	anchors, err := s.anchorVectors(ctx)
	if err != nil {
		return 0, fmt.Errorf("embed anchors: %w", err)
	}

	vecs, err := s.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return 0, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) != 1 {
		return 0, errors.New("embedder returned no vector for query")
	}

	best := -1.0
	for _, a := range anchors {
		if sim := Cosine(vecs[0], a); sim > best {
			best = sim
		}
	}
	return best, nil
}

func (s *ScopeScorer) anchorVectors(ctx context.Context) ([][]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.anchorVecs != nil {
		return s.anchorVecs, nil
	}
	vecs, err := s.embedder.EmbedTexts(ctx, s.anchors)
	if err != nil {
		return nil, err
	}
	s.anchorVecs = vecs
	return vecs, nil
}

// Cosine returns the cosine similarity of two vectors, 0 when either is empty or lengths differ
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
