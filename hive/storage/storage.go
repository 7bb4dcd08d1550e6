package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/openhive/hivecore/hive/ports"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Store is the libsql-backed implementation of ports.Store. Documents are
// stored as JSON text columns; timestamps as unix milliseconds.
type Store struct {
	db *sql.DB
}

var _ ports.Store = (*Store)(nil)

// Open connects to the database at path, creating and migrating it as
// needed.
func Open(path string) (*Store, error) {
	db, err := connect(path)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run goose migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for maintenance tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

func marshalDoc(doc ports.Document) (sql.NullString, error) {
	if doc == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal document: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalDoc(raw sql.NullString) (ports.Document, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var doc ports.Document
	if err := json.Unmarshal([]byte(raw.String), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return doc, nil
}

func msToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func timeToMs(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
