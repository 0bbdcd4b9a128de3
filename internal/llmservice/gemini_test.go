package llmservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"pdf-extractor/internal/config"
	"pdf-extractor/internal/models"
)

type generatePart struct {
	Text     string `json:"text"`
	FileData *struct {
		FileURI  string `json:"fileUri"`
		MIMEType string `json:"mimeType"`
	} `json:"fileData"`
}

type generateRequest struct {
	Contents []struct {
		Role  string         `json:"role"`
		Parts []generatePart `json:"parts"`
	} `json:"contents"`
}

// geminiServer answers the resumable Files upload and generateContent calls.
type geminiServer struct {
	*httptest.Server

	mu        sync.Mutex
	files     []genai.File
	data      [][]byte
	generates []generateRequest
	reply     string
}

func newGeminiServer(t *testing.T, reply string) *geminiServer {
	t.Helper()
	gs := &geminiServer{reply: reply}
	gs.Server = httptest.NewServer(http.HandlerFunc(gs.handle))
	t.Cleanup(gs.Close)
	return gs
}

func (gs *geminiServer) handle(w http.ResponseWriter, r *http.Request) {
	gs.mu.Lock()
	defer gs.mu.Unlock()

	switch {
	case strings.HasPrefix(r.URL.Path, "/upload/") && r.Header.Get("X-Goog-Upload-Command") == "start":
		var body struct {
			File genai.File `json:"file"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gs.files = append(gs.files, body.File)
		w.Header().Set("X-Goog-Upload-URL", fmt.Sprintf("%s/upload-session/%d", gs.URL, len(gs.files)))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("{}"))

	case strings.HasPrefix(r.URL.Path, "/upload-session/"):
		data, _ := io.ReadAll(r.Body)
		gs.data = append(gs.data, data)
		n := len(gs.data)
		w.Header().Set("X-Goog-Upload-Status", "final")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"file": map[string]any{
				"name":     fmt.Sprintf("files/doc-%d", n),
				"uri":      fmt.Sprintf("%s/v1beta/files/doc-%d", gs.URL, n),
				"mimeType": models.PDFMimeType,
			},
		})

	case strings.HasSuffix(r.URL.Path, ":generateContent"):
		var req generateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		gs.generates = append(gs.generates, req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"role":  "model",
					"parts": []map[string]any{{"text": gs.reply}},
				},
				"finishReason": "STOP",
			}},
		})

	default:
		http.NotFound(w, r)
	}
}

func newTestGemini(t *testing.T, gs *geminiServer) *Client {
	t.Helper()
	backend, err := NewGeminiBackend(context.Background(), &config.LLMConfig{
		Provider: config.ProviderGemini,
		BaseURL:  gs.URL,
		Key:      "test-key",
		Model:    "gemini-test",
	})
	require.NoError(t, err)
	return NewClient(backend, 5*time.Second)
}

func TestGeminiBackend_Extract(t *testing.T) {
	gs := newGeminiServer(t, "| Campo | Valor |\n|---|---|\n| Total | 99 |")
	c := newTestGemini(t, gs)

	text, err := c.Extract(context.Background(), testDoc, "Nome, Data")
	require.NoError(t, err)
	assert.Equal(t, "| Campo | Valor |\n|---|---|\n| Total | 99 |", text)

	require.Len(t, gs.files, 1)
	assert.Equal(t, models.PDFMimeType, gs.files[0].MIMEType)
	assert.Equal(t, "invoice.pdf", gs.files[0].DisplayName)
	require.Len(t, gs.data, 1)
	assert.Equal(t, testDoc.Data, gs.data[0])

	require.Len(t, gs.generates, 1)
	contents := gs.generates[0].Contents
	require.Len(t, contents, 1)
	assert.Equal(t, "user", contents[0].Role)

	parts := contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].FileData)
	assert.Equal(t, gs.URL+"/v1beta/files/doc-1", parts[0].FileData.FileURI)
	assert.Equal(t, models.PDFMimeType, parts[0].FileData.MIMEType)
	assert.Equal(t, ExtractPrompt("Nome, Data"), parts[1].Text)
}

func TestGeminiBackend_AskUploadsEveryCall(t *testing.T) {
	gs := newGeminiServer(t, "O valor total é R$ 99,00.")
	c := newTestGemini(t, gs)

	for i := 0; i < 2; i++ {
		answer, err := c.Ask(context.Background(), testDoc, "Qual o valor total?")
		require.NoError(t, err)
		assert.Equal(t, "O valor total é R$ 99,00.", answer)
	}

	require.Len(t, gs.files, 2)
	for _, f := range gs.files {
		assert.Equal(t, models.AskDisplayName, f.DisplayName)
		assert.Equal(t, models.PDFMimeType, f.MIMEType)
	}

	require.Len(t, gs.generates, 2)
	second := gs.generates[1].Contents[0].Parts
	require.Len(t, second, 2)
	require.NotNil(t, second[0].FileData)
	assert.Equal(t, gs.URL+"/v1beta/files/doc-2", second[0].FileData.FileURI)
	assert.Equal(t, AskPrompt("Qual o valor total?"), second[1].Text)
}

func TestGeminiBackend_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	backend, err := NewGeminiBackend(context.Background(), &config.LLMConfig{BaseURL: srv.URL, Key: "k", Model: "m"})
	require.NoError(t, err)

	_, err = NewClient(backend, 5*time.Second).Extract(context.Background(), testDoc, "")
	assert.Equal(t, KindUpload, KindOf(err))
}
