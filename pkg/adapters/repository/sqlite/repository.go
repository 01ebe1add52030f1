package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"github.com/wadjakorntonsri/go-shortlinks/pkg/adapters/repository/sqlstore"
	msqlite "modernc.org/sqlite" // Local SQLite driver
	sqlite3 "modernc.org/sqlite/lib"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS links (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		original_url TEXT NOT NULL,
		short_code TEXT NOT NULL UNIQUE,
		validity_minutes INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS clicks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		link_seq INTEGER NOT NULL,
		user_agent TEXT NOT NULL DEFAULT '',
		referrer TEXT NOT NULL DEFAULT '',
		ip_hash TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		FOREIGN KEY(link_seq) REFERENCES links(seq) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clicks_link_seq ON clicks(link_seq)`,
}

// Local connections only; remote libSQL manages its own journal. The modernc
// driver applies _pragma parameters on every new connection.
var pragmas = []string{
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"foreign_keys(1)",
}

var Dialect = sqlstore.Dialect{
	Name:              "sqlite",
	Schema:            schema,
	IsUniqueViolation: isUniqueViolation,
}

type SQLiteRepository struct {
	*sqlstore.Store
}

// NewSQLiteRepository opens a local SQLite file (or :memory: DSN) with the
// modernc driver, or a Turso database when dbURL is a libsql:// or wss:// URL.
func NewSQLiteRepository(dbURL string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if IsRemote(dbURL) {
		driverName = "libsql"
	}

	dsn := dbURL
	if driverName == "sqlite" {
		dsn = withPragmas(dbURL)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", driverName, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if driverName == "sqlite" {
		// One writer at a time.
		db.SetMaxOpenConns(1)
	}

	store, err := sqlstore.New(ctx, db, Dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteRepository{Store: store}, nil
}

// withPragmas appends the connection pragmas to a local DSN.
func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	var b strings.Builder
	b.WriteString(dsn)
	for _, p := range pragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// IsRemote reports whether dbURL points at a libSQL server.
func IsRemote(dbURL string) bool {
	return strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://")
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	// libsql reports constraint failures as plain text
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
