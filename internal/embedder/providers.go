package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// Provider configuration
const (
	ProviderJina   = "jina"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"

	// Default models
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultOpenAIModel = "text-embedding-3-small"

	// Default endpoints
	DefaultJinaEndpoint   = "https://api.jina.ai/v1/embeddings"
	DefaultOpenAIEndpoint = "https://api.openai.com/v1/embeddings"

	// DefaultDimension is requested from every provider so indexes built
	// with different providers share a vector size
	DefaultDimension = 384

	// Batch limits
	DefaultBatchSize = 50
	MaxBatchSize     = 100

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0

	// Circuit breaker: consecutive failed batches before the provider is
	// short-circuited, and how long it stays open
	DefaultBreakerFailures = 5
	DefaultBreakerTimeout  = 30 * time.Second

	defaultTimeout = 30 * time.Second
)

// ProviderOption configures a remote provider
type ProviderOption func(*RemoteProvider)

// WithEndpoint overrides the embeddings API URL
func WithEndpoint(url string) ProviderOption {
	return func(p *RemoteProvider) {
		if url != "" {
			p.endpoint = url
		}
	}
}

// WithModel overrides the default model
func WithModel(model string) ProviderOption {
	return func(p *RemoteProvider) {
		if model != "" {
			p.model = model
		}
	}
}

// WithDimension sets the output dimension requested from the API
func WithDimension(dim int) ProviderOption {
	return func(p *RemoteProvider) {
		if dim > 0 {
			p.dimension = dim
		}
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *RemoteProvider) {
		if c != nil {
			p.httpClient = c
		}
	}
}

// WithRetryConfig replaces the retry policy
func WithRetryConfig(rc RetryConfig) ProviderOption {
	return func(p *RemoteProvider) {
		p.retry = rc
	}
}

// WithRateLimit caps outgoing API requests at rps with the given burst.
// Zero or negative rps disables limiting.
func WithRateLimit(rps float64, burst int) ProviderOption {
	return func(p *RemoteProvider) {
		if rps <= 0 {
			p.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithCircuitBreaker replaces the breaker thresholds. Zero failures
// disables the breaker.
func WithCircuitBreaker(failures uint32, openTimeout time.Duration) ProviderOption {
	return func(p *RemoteProvider) {
		p.breakerFailures = failures
		p.breakerTimeout = openTimeout
	}
}

// RemoteProvider implements Embedder against an OpenAI-compatible
// embeddings API. Jina and OpenAI share the same wire format.
type RemoteProvider struct {
	name       string
	apiKey     string
	endpoint   string
	model      string
	dimension  int
	httpClient *http.Client
	retry      RetryConfig
	limiter    *rate.Limiter

	breakerFailures uint32
	breakerTimeout  time.Duration
	breaker         *gobreaker.CircuitBreaker[[]*Embedding]
}

// NewJinaProvider creates a new Jina AI embedder
func NewJinaProvider(apiKey string, opts ...ProviderOption) (*RemoteProvider, error) {
	return newRemoteProvider(ProviderJina, apiKey, EnvJinaAPIKey, DefaultJinaEndpoint, DefaultJinaModel, opts)
}

// NewOpenAIProvider creates a new OpenAI embedder
func NewOpenAIProvider(apiKey string, opts ...ProviderOption) (*RemoteProvider, error) {
	return newRemoteProvider(ProviderOpenAI, apiKey, EnvOpenAIAPIKey, DefaultOpenAIEndpoint, DefaultOpenAIModel, opts)
}

func newRemoteProvider(name, apiKey, envKey, endpoint, model string, opts []ProviderOption) (*RemoteProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(envKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, envKey)
	}

	p := &RemoteProvider{
		name:      name,
		apiKey:    apiKey,
		endpoint:  endpoint,
		model:     model,
		dimension: DefaultDimension,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		retry:           DefaultRetryConfig(),
		breakerFailures: DefaultBreakerFailures,
		breakerTimeout:  DefaultBreakerTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.breakerFailures > 0 {
		p.breaker = newBreaker(name, p.breakerFailures, p.breakerTimeout)
	}
	return p, nil
}

// newBreaker opens after failures consecutive failed batches. Cancelled
// requests do not count against the provider.
func newBreaker(name string, failures uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker[[]*Embedding] {
	return gobreaker.NewCircuitBreaker[[]*Embedding](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
	})
}

func (p *RemoteProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	// Use batch API for consistency
	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrProviderFailed)
	}

	return resp.Embeddings[0], nil
}

func (p *RemoteProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	if len(req.Texts) > MaxBatchSize {
		return nil, fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	call := func() ([]*Embedding, error) {
		return retryWithBackoff(ctx, p.retry, func() ([]*Embedding, error) {
			if p.limiter != nil {
				if err := p.limiter.Wait(ctx); err != nil {
					return nil, permanent(fmt.Errorf("rate limit: %w", err))
				}
			}
			return p.callAPI(ctx, req.Texts, model)
		})
	}

	var (
		embeddings []*Embedding
		err        error
	)
	if p.breaker != nil {
		embeddings, err = p.breaker.Execute(call)
	} else {
		embeddings, err = call()
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrProviderFailed, err)
	}

	for i, emb := range embeddings {
		emb.Hash = ComputeHash(req.Texts[i])
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   p.name,
		Model:      model,
	}, nil
}

func (p *RemoteProvider) callAPI(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	reqBody := map[string]interface{}{
		"input":      texts,
		"model":      model,
		"dimensions": p.dimension,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := fmt.Errorf("api error %d: %s", resp.StatusCode, string(bodyBytes))
		// Client errors other than rate limiting will not succeed on retry
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, permanent(apiErr)
		}
		return nil, apiErr
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
		Model string `json:"model"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(apiResp.Data) != len(texts) {
		return nil, permanent(fmt.Errorf("expected %d embeddings, got %d", len(texts), len(apiResp.Data)))
	}

	embeddings := make([]*Embedding, len(texts))
	for _, data := range apiResp.Data {
		if data.Index < 0 || data.Index >= len(texts) || embeddings[data.Index] != nil {
			return nil, permanent(fmt.Errorf("invalid embedding index %d", data.Index))
		}
		if len(data.Embedding) != p.dimension {
			return nil, permanent(fmt.Errorf("embedding dimension %d, expected %d", len(data.Embedding), p.dimension))
		}
		embeddings[data.Index] = &Embedding{
			Vector:    data.Embedding,
			Dimension: len(data.Embedding),
			Provider:  p.name,
			Model:     apiResp.Model,
		}
	}

	return embeddings, nil
}

func (p *RemoteProvider) Dimension() int {
	return p.dimension
}

func (p *RemoteProvider) Provider() string {
	return p.name
}

func (p *RemoteProvider) Model() string {
	return p.model
}

func (p *RemoteProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}
