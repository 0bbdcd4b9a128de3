package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pdf-extractor/internal/config"
	"pdf-extractor/internal/db"
	"pdf-extractor/internal/helper"
	"pdf-extractor/internal/llmservice"
	"pdf-extractor/internal/models"
	"pdf-extractor/internal/parser"
	"pdf-extractor/internal/renderer"
	"pdf-extractor/internal/session"
	"pdf-extractor/internal/shell"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	configPath := flag.String("config", configFilePath, "Path to the config file")
	filePath := flag.String("file", "", "Path to a PDF to process once, without starting the server")
	fields := flag.String("fields", "", "Comma separated fields to extract")
	query := flag.String("query", "", "Question to ask about the PDF instead of extracting")
	out := flag.String("out", "", "Where to write the spreadsheet (defaults to export.file_name)")
	recent := flag.Int("recent", 0, "Print the last N archived extractions and exit")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	if level, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}
	log.Debug().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Msg("Loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var archive *db.Archive
	if cfg.Database.URL != "" {
		archive, err = openArchive(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing database")
		}
		defer archive.Close()
	}

	if *recent > 0 {
		if archive == nil {
			log.Fatal().Msg("database.url is required for -recent")
		}
		printRecent(ctx, archive, *recent)
		return
	}

	backend, err := llmservice.NewBackend(ctx, &cfg.LLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing model backend")
	}

	opts := []shell.Option{shell.WithExport(cfg.Export.SheetName, cfg.Export.FileName)}
	if archive != nil {
		opts = append(opts, shell.WithArchive(archive))
	}
	app := shell.NewApp(
		renderer.New(cfg.Render.DPI),
		llmservice.NewClient(backend, cfg.LLM.Timeout),
		opts...,
	)

	if *filePath != "" {
		if err := runOnce(ctx, app, *filePath, *fields, *query, *out); err != nil {
			log.Fatal().Err(err).Msg("Error processing PDF")
		}
		return
	}

	serve(ctx, app, cfg)
}

func openArchive(ctx context.Context, cfg *config.Config) (*db.Archive, error) {
	dbInstance := db.NewDB(db.ConnectDB(cfg.Database.URL), cfg.Database.Debug)
	if err := db.InitDB(ctx, dbInstance); err != nil {
		dbInstance.Close()
		return nil, err
	}
	return db.NewArchive(dbInstance), nil
}

func printRecent(ctx context.Context, archive *db.Archive, limit int) {
	recs, err := archive.Recent(ctx, limit)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading archive")
	}
	log.Info().Msgf("%d archived extractions", len(recs))
	helper.PrettyPrint(recs)
}

func runOnce(ctx context.Context, app *shell.App, filePath, fields, query, out string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("read %s: %w", filePath, err)
	}
	if n, err := parser.ValidatePDF(data); err != nil {
		if errors.Is(err, parser.ErrNotPDF) {
			return err
		}
		log.Warn().Err(err).Msg("PDF structure could not be read, continuing")
	} else {
		log.Debug().Int("pages", n).Msg("Validated PDF")
	}

	id, err := helper.GenerateUUID()
	if err != nil {
		return err
	}
	doc := &models.Document{Name: filepath.Base(filePath), Data: data}
	st := app.Upload(ctx, session.State{ID: id}, doc)
	if st.RenderErr != "" {
		log.Warn().Msg(st.RenderErr)
	} else {
		log.Info().Int("pages", len(st.Pages)).Msg("Rendered PDF")
	}

	if query = strings.TrimSpace(query); query != "" {
		st, err = app.Ask(ctx, st, query)
		if err != nil {
			return err
		}
		answer, ok := lastAnswer(st)
		if !ok {
			return errors.New("no answer received")
		}
		log.Info().Msg("Query: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		fmt.Printf("%s\n\n", query)
		log.Info().Msg("Assistant: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
		fmt.Printf("%s\n\n", answer)
		return nil
	}

	st, err = app.Extract(ctx, st, fields)
	if err != nil {
		var ee *shell.ExtractError
		if errors.As(err, &ee) && ee.Raw != "" {
			fmt.Printf("%s\n\n", ee.Raw)
		}
		return err
	}

	if out == "" {
		out = st.Extraction.FileName
	}
	if err := os.WriteFile(out, st.Extraction.XLSX, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	if err := helper.PrintTable(os.Stdout, st.Extraction.Table); err != nil {
		return err
	}
	log.Info().Str("file", out).Msg("Spreadsheet written")
	return nil
}

// lastAnswer returns the newest message when it is the assistant's.
func lastAnswer(st session.State) (string, bool) {
	n := len(st.History)
	if n == 0 || st.History[n-1].Role != models.RoleAssistant {
		return "", false
	}
	return st.History[n-1].Content, true
}

func serve(ctx context.Context, app *shell.App, cfg *config.Config) {
	store := session.NewStore(cfg.Session.TTL, cfg.Session.CleanupInterval)
	e, err := shell.NewServer(app, store, shell.ServerConfig{
		BodyLimit:     cfg.Server.BodyLimit,
		RequestLogger: true,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating server")
	}

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Starting server")
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
	}
}
