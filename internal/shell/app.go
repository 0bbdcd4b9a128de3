package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"pdf-extractor/internal/exporter"
	"pdf-extractor/internal/llmservice"
	"pdf-extractor/internal/models"
	"pdf-extractor/internal/parser"
	"pdf-extractor/internal/session"
)

type Renderer interface {
	Render(ctx context.Context, data []byte) ([]models.PageImage, error)
}

type AIClient interface {
	Extract(ctx context.Context, doc *models.Document, fields string) (string, error)
	Ask(ctx context.Context, doc *models.Document, question string) (string, error)
}

// Archive records successful extractions. Optional.
type Archive interface {
	Store(ctx context.Context, sessionID, sourceFile string, ex *models.Extraction) error
}

var ErrNoDocument = errors.New("no PDF uploaded")

type Stage string

const (
	StageExtract Stage = "extract"
	StageParse   Stage = "parse"
	StageExport  Stage = "export"
)

// ExtractError halts an extract action. Raw holds the model response when
// the failure happened after the model answered.
type ExtractError struct {
	Stage Stage
	Raw   string
	Err   error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *ExtractError) Unwrap() error {
	return e.Err
}

// App runs the user actions. Every action takes the current session state
// and returns the next one; it never mutates shared state itself.
type App struct {
	renderer  Renderer
	ai        AIClient
	archive   Archive
	sheetName string
	fileName  string
}

type Option func(*App)

func WithArchive(a Archive) Option {
	return func(app *App) { app.archive = a }
}

func WithExport(sheetName, fileName string) Option {
	return func(app *App) {
		if sheetName != "" {
			app.sheetName = sheetName
		}
		if fileName != "" {
			app.fileName = fileName
		}
	}
}

func NewApp(renderer Renderer, ai AIClient, opts ...Option) *App {
	app := &App{
		renderer:  renderer,
		ai:        ai,
		sheetName: exporter.DefaultSheetName,
		fileName:  exporter.DefaultFileName,
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Upload replaces the session document and renders its preview. A render
// failure is kept as an inline message. The previous extraction is
// discarded, the chat history is kept.
func (a *App) Upload(ctx context.Context, st session.State, doc *models.Document) session.State {
	st.Document = doc
	st.Pages = nil
	st.RenderErr = ""
	st.Extraction = nil

	pages, err := a.renderer.Render(ctx, doc.Data)
	if err != nil {
		log.Warn().Err(err).Str("file", doc.Name).Msg("Error rendering PDF")
		st.RenderErr = fmt.Sprintf(models.RenderErrorFormat, err)
		return st
	}
	st.Pages = pages
	return st
}

// Extract asks the model for a table, parses it and builds the workbook.
// Any failure is returned and the state is left as it was.
func (a *App) Extract(ctx context.Context, st session.State, fields string) (session.State, error) {
	if !st.HasDocument() {
		return st, ErrNoDocument
	}
	fields = llmservice.NormalizeFields(fields)

	raw, err := a.ai.Extract(ctx, st.Document, fields)
	if err != nil {
		return st, &ExtractError{Stage: StageExtract, Err: err}
	}

	table, err := parser.ParseMarkdownTable(raw)
	if err != nil {
		return st, &ExtractError{Stage: StageParse, Raw: raw, Err: err}
	}

	data, err := exporter.ToXLSX(table, a.sheetName)
	if err != nil {
		return st, &ExtractError{Stage: StageExport, Raw: raw, Err: err}
	}

	ex := &models.Extraction{
		Fields:   fields,
		Raw:      raw,
		Table:    table,
		XLSX:     data,
		Created:  time.Now(),
		FileName: a.fileName,
	}
	log.Info().
		Str("file", st.Document.Name).
		Int("columns", len(table.Columns)).
		Int("rows", len(table.Rows)).
		Msg("Extraction complete")

	if a.archive != nil {
		if err := a.archive.Store(ctx, st.ID, st.Document.Name, ex); err != nil {
			log.Error().Err(err).Msg("Error archiving extraction")
		}
	}

	st.Extraction = ex
	return st, nil
}

// Ask appends the question and the answer to the history. A failed call
// becomes an inline error answer, so the history always grows by two.
func (a *App) Ask(ctx context.Context, st session.State, question string) (session.State, error) {
	if !st.HasDocument() {
		return st, ErrNoDocument
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return st, nil
	}

	st = st.Append(models.ChatMessage{Role: models.RoleUser, Content: question})

	answer, err := a.ai.Ask(ctx, st.Document, question)
	if err != nil {
		log.Error().Err(err).Msg("Error asking model")
		answer = fmt.Sprintf(models.AskErrorFormat, err)
	}

	return st.Append(models.ChatMessage{Role: models.RoleAssistant, Content: answer}), nil
}
