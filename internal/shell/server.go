package shell

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"pdf-extractor/internal/models"
	"pdf-extractor/internal/session"
)

const sessionCookie = "session_id"

// Server exposes App over HTTP. Each action runs synchronously and
// redirects back to the page.
type Server struct {
	app   *App
	store *session.Store
	md    *markdown
}

type ServerConfig struct {
	BodyLimit     string
	RequestLogger bool
}

// NewServer builds the echo instance with every route registered.
func NewServer(app *App, store *session.Store, cfg ServerConfig) (*echo.Echo, error) {
	tmpl, err := newTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{app: app, store: store, md: newMarkdown()}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = tmpl
	e.HTTPErrorHandler = ErrorHandler

	if cfg.RequestLogger {
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			LogURI:      true,
			LogMethod:   true,
			LogStatus:   true,
			LogLatency:  true,
			LogError:    true,
			HandleError: true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				event := log.Info()
				if v.Error != nil {
					event = log.Warn().Err(v.Error)
				}
				event.Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Msg("Request")
				return nil
			},
		}))
	}
	e.Use(middleware.Recover())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}

	e.GET("/", s.HandleIndex)
	e.POST("/upload", s.HandleUpload)
	e.GET("/pages/:n", s.HandlePage)
	e.POST("/extract", s.HandleExtract)
	e.GET("/download", s.HandleDownload)
	e.POST("/ask", s.HandleAsk)
	e.POST("/reset", s.HandleReset)
	e.GET("/api/health", s.HandleHealth)

	return e, nil
}

// state loads the caller's session, creating one and setting the cookie
// when needed.
func (s *Server) state(c echo.Context) (session.State, error) {
	var id string
	if ck, err := c.Cookie(sessionCookie); err == nil {
		id = ck.Value
	}
	st, err := s.store.GetOrCreate(id)
	if err != nil {
		return session.State{}, NewInternalError("could not start session", err)
	}
	if st.ID != id {
		c.SetCookie(&http.Cookie{
			Name:     sessionCookie,
			Value:    st.ID,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return st, nil
}

// locked loads the session and holds its lock until the returned func runs.
func (s *Server) locked(c echo.Context) (session.State, func(), error) {
	st, err := s.state(c)
	if err != nil {
		return session.State{}, nil, err
	}
	unlock := s.store.Lock(st.ID)
	// reload under the lock so a concurrent action on the same session is seen
	fresh, err := s.store.Get(st.ID)
	if err != nil {
		unlock()
		return session.State{}, nil, NewNotFoundError("session ended")
	}
	return fresh, unlock, nil
}

func (s *Server) HandleIndex(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, "index", s.md.newPageView(st))
}

func (s *Server) HandleUpload(c echo.Context) error {
	file, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		return NewBadRequestError("only PDF files are accepted", nil)
	}

	src, err := file.Open()
	if err != nil {
		return NewBadRequestError("could not read upload", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return NewBadRequestError("could not read upload", err)
	}
	st, unlock, err := s.locked(c)
	if err != nil {
		return err
	}
	defer unlock()

	doc := &models.Document{Name: filepath.Base(file.Filename), Data: data}
	st = s.app.Upload(c.Request().Context(), st, doc)
	s.store.Save(st)

	log.Info().Str("session", st.ID).Str("file", doc.Name).Int("pages", len(st.Pages)).Msg("Document uploaded")
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) HandlePage(c echo.Context) error {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil {
		return NewBadRequestError("invalid page number", err)
	}
	st, err := s.state(c)
	if err != nil {
		return err
	}
	for _, p := range st.Pages {
		if p.Number == n {
			return c.Blob(http.StatusOK, "image/png", p.PNG)
		}
	}
	return NewNotFoundError(fmt.Sprintf("page %d not found", n))
}

func (s *Server) HandleExtract(c echo.Context) error {
	st, unlock, err := s.locked(c)
	if err != nil {
		return err
	}
	defer unlock()

	next, err := s.app.Extract(c.Request().Context(), st, c.FormValue("fields"))
	if err != nil {
		return extractAPIError(err)
	}
	s.store.Save(next)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) HandleDownload(c echo.Context) error {
	st, err := s.state(c)
	if err != nil {
		return err
	}
	ex := st.Extraction
	if ex == nil || len(ex.XLSX) == 0 {
		return NewNotFoundError("nothing extracted yet")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", ex.FileName))
	return c.Blob(http.StatusOK, models.XLSXMimeType, ex.XLSX)
}

func (s *Server) HandleAsk(c echo.Context) error {
	st, unlock, err := s.locked(c)
	if err != nil {
		return err
	}
	defer unlock()

	next, err := s.app.Ask(c.Request().Context(), st, c.FormValue("question"))
	if err != nil {
		if errors.Is(err, ErrNoDocument) {
			return NewBadRequestError("upload a PDF first", err)
		}
		return NewInternalError("could not ask the model", err)
	}
	s.store.Save(next)
	return c.Redirect(http.StatusSeeOther, "/#chat")
}

func (s *Server) HandleReset(c echo.Context) error {
	if ck, err := c.Cookie(sessionCookie); err == nil {
		unlock := s.store.Lock(ck.Value)
		s.store.End(ck.Value)
		unlock()
	}
	c.SetCookie(&http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	return c.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.store.Count(),
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
