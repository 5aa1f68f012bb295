// Package storage keeps decoded symbols in a SQLite database so a receive
// session can be inspected after the host exits.
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"acoustic_modem/package/shared"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var initSchemaSQL string

const (
	insertSessionSQL = `
INSERT INTO sessions (start_time, sample_rate)
VALUES (CURRENT_TIMESTAMP, ?)`

	selectSessionSQL = `
SELECT id, start_time, sample_rate
FROM sessions
WHERE id = ?`

	insertSymbolSQL = `
INSERT INTO symbols (session_id, sample, symbol, candidates, history, phases)
VALUES (?, ?, ?, ?, ?, ?)`

	selectSymbolsSQL = `
SELECT sample, symbol, candidates, history, phases
FROM symbols
WHERE session_id = ?
ORDER BY sample, id`
)

// Session is one receive run.
type Session struct {
	ID         int64
	StartTime  time.Time
	SampleRate int
}

// Store is a SQLite symbol log.
type Store struct {
	db *sql.DB

	closeOnce sync.Once
	closeErr  error
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?%s", path, "_journal_mode=WAL&_synchronous=NORMAL"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err = db.Exec(initSchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) CreateSession(ctx context.Context, sampleRate int) (sessionID int64, err error) {
	stmt, err := s.db.PrepareContext(ctx, insertSessionSQL)
	if err != nil {
		err = fmt.Errorf("preparing statement: %w", err)
		return
	}
	defer closeWithError(stmt, &err)

	result, err := stmt.ExecContext(ctx, sampleRate)
	if err != nil {
		err = fmt.Errorf("inserting session: %w", err)
		return
	}

	sessionID, err = result.LastInsertId()
	if err != nil {
		err = fmt.Errorf("getting session ID: %w", err)
	}
	return
}

func (s *Store) Session(ctx context.Context, id int64) (*Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, selectSessionSQL, id).Scan(&sess.ID, &sess.StartTime, &sess.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return &sess, nil
}

// InsertSymbol appends one decoded symbol to the session log.
func (s *Store) InsertSymbol(ctx context.Context, sessionID int64, sym shared.DecodedSymbol) (err error) {
	phases, err := json.Marshal(sym.Phase)
	if err != nil {
		return fmt.Errorf("marshaling phases: %w", err)
	}

	stmt, err := s.db.PrepareContext(ctx, insertSymbolSQL)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer closeWithError(stmt, &err)

	if _, err = stmt.ExecContext(ctx, sessionID, sym.Sample, int(sym.Symbol), sym.Candidates, sym.History, string(phases)); err != nil {
		return fmt.Errorf("inserting symbol: %w", err)
	}
	return nil
}

// Symbols returns the session log in receive order.
func (s *Store) Symbols(ctx context.Context, sessionID int64) (symbols []shared.DecodedSymbol, err error) {
	rows, err := s.db.QueryContext(ctx, selectSymbolsSQL, sessionID)
	if err != nil {
		err = fmt.Errorf("querying symbols: %w", err)
		return
	}
	defer closeWithError(rows, &err)

	for rows.Next() {
		var (
			sym    shared.DecodedSymbol
			value  int
			phases string
		)
		if err = rows.Scan(&sym.Sample, &value, &sym.Candidates, &sym.History, &phases); err != nil {
			err = fmt.Errorf("scanning symbol: %w", err)
			return
		}
		if err = json.Unmarshal([]byte(phases), &sym.Phase); err != nil {
			err = fmt.Errorf("unmarshaling phases: %w", err)
			return
		}
		sym.Symbol = byte(value)
		symbols = append(symbols, sym)
	}
	if err = rows.Err(); err != nil {
		err = fmt.Errorf("iterating symbols: %w", err)
	}
	return
}

// Close is safe to call more than once.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}
