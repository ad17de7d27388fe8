package embedder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectProvider(t *testing.T) {
	tests := []struct {
		name           string
		provider       string
		jinaKey        string
		openaiKey      string
		expectedResult string
	}{
		{"explicit jina provider", "jina", "", "", ProviderJina},
		{"explicit openai provider", "OpenAI", "", "", ProviderOpenAI},
		{"explicit local provider", "local", "key", "", ProviderLocal},
		{"jina key present", "", "test-key", "", ProviderJina},
		{"openai key present", "", "", "test-key", ProviderOpenAI},
		{"both keys, jina takes precedence", "", "jina-key", "openai-key", ProviderJina},
		{"no provider, no keys - fallback to local", "", "", "", ProviderLocal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvProvider, tt.provider)
			t.Setenv(EnvJinaAPIKey, tt.jinaKey)
			t.Setenv(EnvOpenAIAPIKey, tt.openaiKey)

			assert.Equal(t, tt.expectedResult, DetectProvider())
		})
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv(EnvProvider, "")
	t.Setenv(EnvJinaAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "")

	emb, err := NewFromEnv(64)
	require.NoError(t, err)
	defer emb.Close()

	assert.Equal(t, ProviderLocal, emb.Provider())
	assert.Equal(t, 64, emb.Dimension())
}

func TestNew(t *testing.T) {
	t.Setenv(EnvJinaAPIKey, "")
	t.Setenv(EnvOpenAIAPIKey, "")

	tests := []struct {
		name         string
		cfg          Config
		wantProvider string
		wantDim      int
		wantErr      error
	}{
		{"local default", Config{Provider: "local"}, ProviderLocal, DefaultDimension, nil},
		{"empty provider is local", Config{}, ProviderLocal, DefaultDimension, nil},
		{"jina with key", Config{Provider: "jina", APIKey: "k", Dimension: 512}, ProviderJina, 512, nil},
		{"openai with key", Config{Provider: "openai", APIKey: "k", Timeout: time.Second}, ProviderOpenAI, DefaultDimension, nil},
		{"jina without key", Config{Provider: "jina"}, "", 0, ErrNoProviderEnabled},
		{"openai without key", Config{Provider: "openai"}, "", 0, ErrNoProviderEnabled},
		{"unknown", Config{Provider: "cohere"}, "", 0, ErrUnsupportedModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb, err := New(tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			defer emb.Close()
			assert.Equal(t, tt.wantProvider, emb.Provider())
			assert.Equal(t, tt.wantDim, emb.Dimension())
		})
	}
}
