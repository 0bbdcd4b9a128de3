package shell

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"pdf-extractor/internal/models"
	"pdf-extractor/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

const pageTitle = "Protótipo - Extração de Dados de PDFs com Generative AI"

// templates implements echo.Renderer.
type templates struct {
	t *template.Template
}

func newTemplates() (*templates, error) {
	t, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &templates{t: t}, nil
}

func (t *templates) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.t.ExecuteTemplate(w, name+".html", data)
}

type pageView struct {
	Title      string
	FileName   string
	Pages      []pageThumb
	RenderErr  string
	Extraction *extractionView
	History    []messageView
}

type pageThumb struct {
	Number int
	Alt    string
}

type extractionView struct {
	Fields   string
	Raw      string
	Columns  []string
	Rows     [][]string
	FileName string
}

type messageView struct {
	Role string
	HTML template.HTML
}

// markdown renders chat messages. Raw HTML in the input is not passed
// through.
type markdown struct {
	md goldmark.Markdown
}

func newMarkdown() *markdown {
	return &markdown{md: goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)}
}

func (m *markdown) toHTML(text string) template.HTML {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(text), &buf); err != nil {
		log.Warn().Err(err).Msg("Error rendering markdown")
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String())
}

func (m *markdown) newPageView(st session.State) pageView {
	v := pageView{
		Title:     pageTitle,
		RenderErr: st.RenderErr,
	}
	if st.HasDocument() {
		v.FileName = st.Document.Name
	}
	for _, p := range st.Pages {
		v.Pages = append(v.Pages, pageThumb{Number: p.Number, Alt: pageAlt(p)})
	}
	if ex := st.Extraction; ex != nil {
		v.Extraction = &extractionView{
			Fields:   ex.Fields,
			Raw:      ex.Raw,
			Columns:  ex.Table.Columns,
			Rows:     ex.Table.Rows,
			FileName: ex.FileName,
		}
	}
	for _, msg := range st.History {
		v.History = append(v.History, messageView{Role: string(msg.Role), HTML: m.toHTML(msg.Content)})
	}
	return v
}

func pageAlt(p models.PageImage) string {
	const maxAlt = 200
	alt := fmt.Sprintf("Página %d", p.Number)
	if p.Text == "" {
		return alt
	}
	text := []rune(p.Text)
	if len(text) > maxAlt {
		text = append(text[:maxAlt], '…')
	}
	return alt + ": " + string(text)
}
