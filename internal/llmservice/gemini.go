package llmservice

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"pdf-extractor/internal/config"
	"pdf-extractor/internal/models"
)

// GeminiBackend uploads the PDF through the Gemini Files API and references
// it by URI in the generate call.
type GeminiBackend struct {
	client *genai.Client
	model  string
}

func NewGeminiBackend(ctx context.Context, llmConfig *config.LLMConfig) (*GeminiBackend, error) {
	if llmConfig.Key == "" {
		return nil, fmt.Errorf("Gemini API key is required (set GEMINI_API_KEY or llm.key in config)")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  llmConfig.Key,
		Backend: genai.BackendGeminiAPI,
	}
	if llmConfig.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: llmConfig.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	log.Info().Str("model", llmConfig.Model).Msg("Gemini backend initialized")
	return &GeminiBackend{client: client, model: llmConfig.Model}, nil
}

func (g *GeminiBackend) Upload(ctx context.Context, doc *models.Document, displayName string) (Handle, error) {
	file, err := g.client.Files.Upload(ctx, bytes.NewReader(doc.Data), &genai.UploadFileConfig{
		MIMEType:    models.PDFMimeType,
		DisplayName: displayName,
	})
	if err != nil {
		return Handle{}, fmt.Errorf("upload %s: %w", displayName, err)
	}
	return Handle{ID: file.Name, URI: file.URI, MIMEType: models.PDFMimeType}, nil
}

func (g *GeminiBackend) Generate(ctx context.Context, h Handle, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(h.URI, h.MIMEType),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}
