package rbm

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"gonum.org/v1/gonum/mat"
)

// SetupSchema initializes the example corpus table in the provided
// database. This function should be called once on a new database before
// any other operations are performed. It is idempotent and safe to call
// on an already-initialized database.
func SetupSchema(db *sql.DB) error {
	const schemaExamples = `
CREATE TABLE IF NOT EXISTS rbm_examples (
    example_id INTEGER PRIMARY KEY,
    line TEXT NOT NULL
);
`
	if _, err := db.Exec(schemaExamples); err != nil {
		return fmt.Errorf("could not create examples schema: %w", err)
	}
	return nil
}

// Store is a SQLite-backed corpus of training examples, usable as an
// ExampleSource. It holds the database connection and prepared SQL
// statements for efficient access.
type Store struct {
	db          *sql.DB
	codec       *Codec
	stmtInsert  *sql.Stmt
	stmtDrawRnd *sql.Stmt
	stmtCount   *sql.Stmt
	logger      *slog.Logger
}

// NewStore creates a Store over an initialized database. It pre-compiles
// the necessary SQL statements, returning an error if any preparation
// fails.
func NewStore(db *sql.DB, codec *Codec) (*Store, error) {
	stmtInsert, err := db.Prepare(`INSERT INTO rbm_examples (line) VALUES (?);`)
	if err != nil {
		return nil, err
	}

	stmtDrawRnd, err := db.Prepare(`SELECT line FROM rbm_examples ORDER BY RANDOM() LIMIT ?;`)
	if err != nil {
		return nil, err
	}

	stmtCount, err := db.Prepare(`SELECT COUNT(*) FROM rbm_examples;`)
	if err != nil {
		return nil, err
	}

	return &Store{
		db:          db,
		codec:       codec,
		stmtInsert:  stmtInsert,
		stmtDrawRnd: stmtDrawRnd,
		stmtCount:   stmtCount,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// Close releases all prepared SQL statements held by the Store.
func (s *Store) Close() {
	_ = s.stmtInsert.Close()
	_ = s.stmtDrawRnd.Close()
	_ = s.stmtCount.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are
// discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Ingest reads lines from r and stores every one the codec can encode.
// The whole operation runs inside a single transaction.
func (s *Store) Ingest(ctx context.Context, r io.Reader) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmtInsert := tx.StmtContext(ctx, s.stmtInsert)

	var stored, skipped int64
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if _, err := s.codec.Encode(line); err != nil {
			skipped++
			continue
		}
		if _, err := stmtInsert.ExecContext(ctx, line); err != nil {
			return fmt.Errorf("could not insert example %q: %w", line, err)
		}
		stored++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("could not read example input: %w", err)
	}

	s.logger.InfoContext(ctx, "Example ingest completed",
		slog.Int64("examples_stored", stored),
		slog.Int64("lines_skipped", skipped),
	)

	return tx.Commit()
}

// Count returns the number of stored examples.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.stmtCount.QueryRowContext(ctx).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Draw returns n encoded rows drawn at random from the stored corpus,
// cycling through the drawn set when the corpus holds fewer than n rows.
func (s *Store) Draw(ctx context.Context, n int, mutagen Mutagen) (*mat.Dense, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: draw count must be positive, got %d", ErrConfig, n)
	}

	rows, err := s.stmtDrawRnd.QueryContext(ctx, n)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var lines []string
	for rows.Next() {
		var line string
		if err = rows.Scan(&line); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: example store is empty", ErrConfig)
	}

	vis := mat.NewDense(n, s.codec.VisibleSize(), nil)
	for i := 0; i < n; i++ {
		row, err := s.codec.Encode(lines[i%len(lines)])
		if err != nil {
			return nil, fmt.Errorf("stored example %q no longer encodes: %w", lines[i%len(lines)], err)
		}
		if mutagen != nil {
			mutagen(row)
		}
		vis.SetRow(i, row)
	}
	return vis, nil
}
