package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-extractor/internal/config"
	"pdf-extractor/internal/helper"
	"pdf-extractor/internal/models"
	"pdf-extractor/internal/parser"
)

// OpenAIBackend talks to an OpenAI-compatible endpoint (OpenRouter by
// default). These endpoints do not take PDFs, so Upload extracts the text
// locally and Generate sends it inline with the prompt.
type OpenAIBackend struct {
	llm llms.Model
}

func NewOpenAIBackend(llmConfig *config.LLMConfig) (*OpenAIBackend, error) {
	log.Debug().Str("base_url", llmConfig.BaseURL).Str("model", llmConfig.Model).Msg("Initializing OpenAI-compatible backend")
	llm, err := openai.New(
		openai.WithBaseURL(llmConfig.BaseURL),
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithModel(llmConfig.Model),
	)
	if err != nil {
		return nil, err
	}
	return &OpenAIBackend{llm: llm}, nil
}

func (o *OpenAIBackend) Upload(ctx context.Context, doc *models.Document, displayName string) (Handle, error) {
	text, err := parser.ExtractText(doc.Data)
	if err != nil {
		return Handle{}, fmt.Errorf("extract text from %s: %w", displayName, err)
	}
	if strings.TrimSpace(text) == "" {
		return Handle{}, fmt.Errorf("%s has no extractable text", displayName)
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		return Handle{}, err
	}
	return Handle{ID: id, MIMEType: "text/plain", text: text}, nil
}

func (o *OpenAIBackend) Generate(ctx context.Context, h Handle, prompt string) (string, error) {
	msgContent := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextContent{Text: fmt.Sprintf(models.DocumentContextTemplate, h.text, prompt)}},
		},
	}

	res, err := o.llm.GenerateContent(ctx, msgContent)
	if err != nil {
		return "", err
	}
	if len(res.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return res.Choices[0].Content, nil
}

// NewBackend builds the backend named by the config provider.
func NewBackend(ctx context.Context, llmConfig *config.LLMConfig) (Backend, error) {
	switch llmConfig.Provider {
	case config.ProviderOpenAI:
		b, err := NewOpenAIBackend(llmConfig)
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.ProviderGemini, "":
		b, err := NewGeminiBackend(ctx, llmConfig)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", llmConfig.Provider)
	}
}
