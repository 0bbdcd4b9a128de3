package llmservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"pdf-extractor/internal/models"
)

// Handle references a document held by a backend for a single request.
type Handle struct {
	ID       string
	URI      string
	MIMEType string

	// text carries the document for backends that take it inline.
	text string
}

// Backend is the remote model: upload a document, then generate a reply to
// a prompt about it.
type Backend interface {
	Upload(ctx context.Context, doc *models.Document, displayName string) (Handle, error)
	Generate(ctx context.Context, h Handle, prompt string) (string, error)
}

type ErrorKind string

const (
	KindUpload   ErrorKind = "upload"
	KindGenerate ErrorKind = "generate"
	KindTimeout  ErrorKind = "timeout"
	KindEmpty    ErrorKind = "empty_response"
	KindInput    ErrorKind = "input"
)

// ErrEmptyResponse is returned by backends when the model sent no candidate.
var ErrEmptyResponse = errors.New("model returned no response")

type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a client error, or "" for other errors.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

type Request struct {
	Document    *models.Document
	DisplayName string
	Prompt      string
	Timeout     time.Duration
}

type Response struct {
	Text     string
	Handle   Handle
	Duration time.Duration
}

// Client runs one upload plus one generate per request. Nothing is cached:
// every request uploads the document again.
type Client struct {
	backend Backend
	timeout time.Duration
}

func NewClient(backend Backend, timeout time.Duration) *Client {
	return &Client{backend: backend, timeout: timeout}
}

// Do uploads the document, sends the prompt and returns the reply verbatim,
// blank replies included.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	if req.Document.Empty() {
		return Response{}, &Error{Kind: KindInput, Err: errors.New("no document")}
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return Response{}, &Error{Kind: KindInput, Err: errors.New("empty prompt")}
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	displayName := req.DisplayName
	if displayName == "" {
		displayName = req.Document.Name
	}

	start := time.Now()
	handle, err := c.backend.Upload(ctx, req.Document, displayName)
	if err != nil {
		return Response{}, classify(ctx, KindUpload, err)
	}
	log.Debug().Str("handle", handle.ID).Str("display_name", displayName).Msg("Uploaded document")

	text, err := c.backend.Generate(ctx, handle, req.Prompt)
	if err != nil {
		return Response{}, classify(ctx, KindGenerate, err)
	}

	resp := Response{Text: text, Handle: handle, Duration: time.Since(start)}
	log.Debug().Dur("duration", resp.Duration).Int("response_length", len(text)).Msg("Generated content")
	return resp, nil
}

func classify(ctx context.Context, kind ErrorKind, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	if errors.Is(err, ErrEmptyResponse) {
		return &Error{Kind: KindEmpty, Err: err}
	}
	return &Error{Kind: kind, Err: err}
}

// Extract asks for the document's fields as a Markdown table.
func (c *Client) Extract(ctx context.Context, doc *models.Document, fields string) (string, error) {
	resp, err := c.Do(ctx, Request{
		Document: doc,
		Prompt:   ExtractPrompt(fields),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// Ask answers a free-text question about the document.
func (c *Client) Ask(ctx context.Context, doc *models.Document, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", &Error{Kind: KindInput, Err: errors.New("empty question")}
	}
	resp, err := c.Do(ctx, Request{
		Document:    doc,
		DisplayName: models.AskDisplayName,
		Prompt:      AskPrompt(question),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// NormalizeFields trims whitespace and the table delimiter from the edges of
// a user-typed field list.
func NormalizeFields(fields string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(fields), "|"))
}

// ExtractPrompt embeds the field list literally, or falls back to the
// invoice prompt when the list is empty.
func ExtractPrompt(fields string) string {
	fields = NormalizeFields(fields)
	if fields == "" {
		return models.ExtractDefaultPrompt
	}
	return fmt.Sprintf(models.ExtractFieldsPromptTemplate, fields)
}

func AskPrompt(question string) string {
	return models.AskInstruction + question
}
