package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"pdf-extractor/internal/models"
)

// Extraction is one archived extract action.
type Extraction struct {
	bun.BaseModel `bun:"table:extractions,alias:e"`
	ID            int64     `bun:"id,pk,autoincrement"`
	SessionID     string    `bun:"session_id,notnull"`
	SourceFile    string    `bun:"source_filename,notnull"`
	Fields        string    `bun:"fields"`
	Response      string    `bun:"response,notnull"`
	Columns       []string  `bun:"columns,array"`
	RowCount      int       `bun:"row_count,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(url string) *sql.DB {
	return sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(withSSLMode(url))))
}

// withSSLMode disables TLS unless the URL already chooses a mode.
func withSSLMode(dsn string) string {
	if strings.Contains(dsn, "sslmode=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&sslmode=disable"
	}
	return dsn + "?sslmode=disable"
}

func InitDB(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*Extraction)(nil)).IfNotExists().Exec(ctx)
	return err
}

// Archive stores extractions in Postgres.
type Archive struct {
	db *bun.DB
}

func NewArchive(db *bun.DB) *Archive {
	return &Archive{db: db}
}

func (a *Archive) Store(ctx context.Context, sessionID, sourceFile string, ex *models.Extraction) error {
	rec := &Extraction{
		SessionID:  sessionID,
		SourceFile: sourceFile,
		Fields:     ex.Fields,
		Response:   ex.Raw,
		CreatedAt:  ex.Created,
	}
	if ex.Table != nil {
		rec.Columns = ex.Table.Columns
		rec.RowCount = len(ex.Table.Rows)
	}
	_, err := a.db.NewInsert().Model(rec).Exec(ctx)
	return err
}

func (a *Archive) Recent(ctx context.Context, limit int) ([]Extraction, error) {
	var recs []Extraction
	err := a.db.NewSelect().
		Model(&recs).
		OrderExpr("created_at DESC").
		Limit(limit).
		Scan(ctx)
	return recs, err
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// drop table extractions
func DropExtractions(ctx context.Context, db *bun.DB) error {
	_, err := db.NewDropTable().Model((*Extraction)(nil)).IfExists().Exec(ctx)
	return err
}
