package embedder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewExplicitMock(t *testing.T) {
	emb, err := New(Config{Provider: "mock"})
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	assert.Equal(t, ProviderMock, emb.Provider())
}

func TestNewExplicitOllama(t *testing.T) {
	emb, err := New(Config{Provider: "ollama", OllamaURL: "http://localhost:11434", Model: "bge-m3"})
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	assert.Equal(t, ProviderOllama, emb.Provider())
	assert.Equal(t, "bge-m3", emb.Model())
}

func TestNewLocalAlias(t *testing.T) {
	emb, err := New(Config{Provider: "local"})
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	assert.Equal(t, ProviderOllama, emb.Provider())
}

func TestNewExplicitOpenAI(t *testing.T) {
	emb, err := New(Config{Provider: "openai", APIKey: "test-key"})
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	assert.Equal(t, ProviderOpenAI, emb.Provider())
}

func TestNewOpenAIWithoutKey(t *testing.T) {
	t.Setenv(EnvOpenAIAPIKey, "")
	_, err := New(Config{Provider: "openai"})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := New(Config{Provider: "sentencepiece"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestNewAutoFallsBack(t *testing.T) {
	// No Ollama on this port, no API key: auto lands on the mock
	emb, err := New(Config{Provider: "auto", OllamaURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	assert.Equal(t, ProviderMock, emb.Provider())
}

func TestNewAutoPrefersOpenAIOverMock(t *testing.T) {
	emb, err := New(Config{Provider: "auto", OllamaURL: "http://127.0.0.1:1", APIKey: "test-key"})
	require.NoError(t, err)
	defer func() { _ = emb.Close() }()

	assert.Equal(t, ProviderOpenAI, emb.Provider())
}

func TestDetectProvider(t *testing.T) {
	t.Setenv(EnvProvider, "")
	assert.Equal(t, "auto", DetectProvider())

	t.Setenv(EnvProvider, "OLLAMA")
	assert.Equal(t, "ollama", DetectProvider())

	t.Setenv(EnvProvider, "auto")
	assert.Equal(t, "auto", DetectProvider())
}
