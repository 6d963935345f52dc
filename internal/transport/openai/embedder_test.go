package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/paperdex/paperdex/internal/domain"
	"github.com/paperdex/paperdex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

// embeddingsReply serves the OpenAI-compatible embeddings response shape.
func embeddingsReply(vec []float32, tokens int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test-model",
			"data": []map[string]any{
				{"object": "embedding", "embedding": vec, "index": 0},
			},
			"usage": map[string]int{
				"prompt_tokens": tokens,
				"total_tokens":  tokens,
			},
		})
	}
}

func newTestEmbedder(baseURL string, dimensions int) *Embedder {
	return NewEmbedder(&Config{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Model:      "test-model",
		Dimensions: dimensions,
		Provider:   "test",
		Logger:     zap.NewNop(),
	})
}

func TestEmbed(t *testing.T) {
	wantVec := []float32{0.1, 0.2, 0.3, 0.4}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		embeddingsReply(wantVec, 12)(w, r)
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL, 4)

	result, err := emb.Embed(context.Background(), "graph neural networks")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if len(result.Embedding) != len(wantVec) {
		t.Fatalf("dimensions = %d, want %d", len(result.Embedding), len(wantVec))
	}
	for i, v := range result.Embedding {
		if v != wantVec[i] {
			t.Errorf("vec[%d] = %f, want %f", i, v, wantVec[i])
		}
	}
	if result.PromptTokens != 12 || result.TotalTokens != 12 {
		t.Errorf("usage = %d/%d, want 12/12", result.PromptTokens, result.TotalTokens)
	}
}

func TestEmbedDimensionMismatch(t *testing.T) {
	// Three values against a configured width of four: the vector would fail
	// inside the pgvector scan, so the boundary must refuse it.
	server := httptest.NewServer(embeddingsReply([]float32{0.1, 0.2, 0.3}, 5))
	defer server.Close()

	emb := newTestEmbedder(server.URL, 4)

	_, err := emb.Embed(context.Background(), "anything")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestEmbedUncheckedWhenWidthUnconfigured(t *testing.T) {
	server := httptest.NewServer(embeddingsReply([]float32{0.1, 0.2}, 5))
	defer server.Close()

	emb := newTestEmbedder(server.URL, 0)

	result, err := emb.Embed(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(result.Embedding) != 2 {
		t.Errorf("dimensions = %d, want 2", len(result.Embedding))
	}
}

func TestEmbedAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit exceeded",
				"type":    "rate_limit_error",
			},
		})
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL, 0)

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestEmbedEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test-model",
			"data":   []any{},
		})
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL, 0)

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("err = %v, want ErrEmbeddingProviderError", err)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL, 0)
	if err := emb.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}

func TestHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	emb := newTestEmbedder(server.URL, 0)
	if err := emb.HealthCheck(context.Background()); err == nil {
		t.Error("expected error from failing provider")
	}
}
