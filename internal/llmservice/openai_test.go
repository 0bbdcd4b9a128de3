package llmservice

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-extractor/internal/config"
	"pdf-extractor/internal/models"
	"pdf-extractor/internal/testutil"
)

func newChatServer(t *testing.T, reply string, seen *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, _ := io.ReadAll(r.Body)
		*seen = string(body)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2},
		})
	}))
}

func TestOpenAIBackend_SendsDocumentTextInline(t *testing.T) {
	var body string
	srv := newChatServer(t, "| Total |\n| 99 |", &body)
	defer srv.Close()

	backend, err := NewOpenAIBackend(&config.LLMConfig{
		Provider: config.ProviderOpenAI,
		BaseURL:  srv.URL,
		Key:      "Bearer sk-test",
		Model:    "test-model",
	})
	require.NoError(t, err)

	doc := &models.Document{Name: "invoice.pdf", Data: testutil.NewPDF(t, "Invoice 1042", "Total 99")}
	text, err := NewClient(backend, 5*time.Second).Extract(context.Background(), doc, "Total")
	require.NoError(t, err)

	assert.Equal(t, "| Total |\n| 99 |", text)
	assert.Contains(t, body, "Invoice 1042")
	assert.Contains(t, body, "seguintes informa")
}

func TestOpenAIBackend_UploadRejectsNonPDF(t *testing.T) {
	backend := &OpenAIBackend{}
	_, err := backend.Upload(context.Background(), &models.Document{Name: "x.pdf", Data: []byte("nope")}, "x.pdf")
	assert.Error(t, err)
}

func TestNewBackend(t *testing.T) {
	_, err := NewBackend(context.Background(), &config.LLMConfig{Provider: "nope"})
	assert.Error(t, err)

	_, err = NewBackend(context.Background(), &config.LLMConfig{Provider: config.ProviderGemini})
	assert.ErrorContains(t, err, "API key is required")

	b, err := NewBackend(context.Background(), &config.LLMConfig{Provider: config.ProviderOpenAI, BaseURL: "http://localhost", Key: "k", Model: "m"})
	require.NoError(t, err)
	assert.IsType(t, &OpenAIBackend{}, b)
}
