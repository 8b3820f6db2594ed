// Package ledger records completed conversions in a local SQLite database so
// unchanged inputs can be skipped on later runs.
package ledger

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Entry is one recorded conversion.
type Entry struct {
	ID           uuid.UUID
	RunID        uuid.UUID
	InputPath    string
	InputSize    int64
	InputHash    string
	SourceFormat string
	TargetFormat string
	OutputPath   string
	ConvertedAt  time.Time
}

// Ledger wraps the SQLite conversion database.
type Ledger struct {
	db *sql.DB
}

// Open opens (or creates) the ledger database at path and applies pending migrations.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger dir: %w", err)
	}
	if err := RunMigrations(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger db: %w", err)
	}
	// SQLite allows a single writer; serialize access from concurrent conversions.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("opening ledger db: %w", err)
	}
	return &Ledger{db: db}, nil
}

// RunMigrations applies all pending schema migrations to the database at path.
func RunMigrations(path string) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Lookup returns the most recent conversion of inputPath with the given
// content hash to targetFormat, or nil when there is none.
func (l *Ledger) Lookup(ctx context.Context, inputPath, hash, targetFormat string) (*Entry, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM conversions
		WHERE input_path = ? AND input_hash = ? AND target_format = ?
		ORDER BY converted_at DESC, rowid DESC LIMIT 1`,
		inputPath, hash, targetFormat,
	)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", inputPath, err)
	}
	return e, nil
}

// Record stores a conversion. A zero ID or ConvertedAt is filled in.
func (l *Ledger) Record(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.ConvertedAt.IsZero() {
		e.ConvertedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO conversions (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.RunID.String(), e.InputPath, e.InputSize, e.InputHash,
		e.SourceFormat, e.TargetFormat, e.OutputPath,
		e.ConvertedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", e.InputPath, err)
	}
	return nil
}

// Recent returns up to limit conversions, newest first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM conversions ORDER BY converted_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying conversions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

// Close closes the ledger database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const entryColumns = `id, run_id, input_path, input_size, input_hash, source_format, target_format, output_path, converted_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	var id, runID, convertedAt string
	err := s.Scan(&id, &runID, &e.InputPath, &e.InputSize, &e.InputHash,
		&e.SourceFormat, &e.TargetFormat, &e.OutputPath, &convertedAt)
	if err != nil {
		return nil, err
	}
	if e.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parsing id %q: %w", id, err)
	}
	if e.RunID, err = uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("parsing run id %q: %w", runID, err)
	}
	if e.ConvertedAt, err = time.Parse(timeLayout, convertedAt); err != nil {
		return nil, fmt.Errorf("parsing converted_at %q: %w", convertedAt, err)
	}
	return &e, nil
}

// HashFile computes the SHA-256 hash and size of a file.
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
