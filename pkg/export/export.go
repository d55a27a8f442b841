// Package export writes paper lists into a SQLite database.
package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/Sumatoshi-tech/papersift/pkg/paper"
)

// DefaultTable is the table used when none is given.
const DefaultTable = "papers"

// ErrInvalidTable is returned for table names that are not plain identifiers.
var ErrInvalidTable = errors.New("invalid table name")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const createTable = `CREATE TABLE IF NOT EXISTS %s (
	position   INTEGER NOT NULL,
	source     TEXT NOT NULL,
	title      TEXT NOT NULL,
	abstract   TEXT NOT NULL,
	url        TEXT NOT NULL,
	year       TEXT NOT NULL,
	conference TEXT NOT NULL,
	category   TEXT,
	decision   TEXT,
	confidence REAL,
	raw        TEXT NOT NULL,
	PRIMARY KEY (position)
)`

// Store is an open export database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database file at path.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pingErr := db.PingContext(ctx)
	if pingErr != nil {
		db.Close()

		return nil, fmt.Errorf("open database %s: %w", path, pingErr)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Replace stores records in table, replacing its previous rows in one
// transaction. source names the file the records came from.
func (s *Store) Replace(ctx context.Context, table, source string, records []paper.Paper) (int, error) {
	if !identifier.MatchString(table) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, fmt.Sprintf(createTable, table))
	if err != nil {
		return 0, fmt.Errorf("create table %s: %w", table, err)
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table))
	if err != nil {
		return 0, fmt.Errorf("clear table %s: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s
		(position, source, title, abstract, url, year, conference, category, decision, confidence, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, p := range records {
		raw, marshalErr := json.Marshal(p)
		if marshalErr != nil {
			return 0, fmt.Errorf("encode record %d: %w", i, marshalErr)
		}

		_, err = stmt.ExecContext(ctx, i, source,
			p.Title(), p.Abstract(), p.URL(), p.Year(), p.Conference(),
			nullable(p.String("category")), nullable(p.String("_filter_decision")),
			confidence(p), string(raw))
		if err != nil {
			return 0, fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	return len(records), nil
}

// Count returns the number of rows in table.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	if !identifier.MatchString(table) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	var n int

	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}

	return n, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// confidence prefers the categorization confidence over the filter one.
func confidence(p paper.Paper) sql.NullFloat64 {
	for _, key := range []string{"confidence", "_filter_confidence"} {
		if _, ok := p[key]; ok {
			return sql.NullFloat64{Float64: p.Float(key), Valid: true}
		}
	}

	return sql.NullFloat64{}
}
