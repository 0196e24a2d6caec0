// SQLite-backed alignment table: the schema is applied on open, and a
// sync.RWMutex guards every query.
package align

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/kelindar/binary"
	_ "github.com/ncruces/go-sqlite3/driver"

	"github.com/kittclouds/colibridec/pkg/pattern"
)

const schema = `
CREATE TABLE IF NOT EXISTS source_patterns (
    id INTEGER PRIMARY KEY,
    hash INTEGER NOT NULL,
    pattern BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_source_patterns_hash ON source_patterns(hash);

CREATE TABLE IF NOT EXISTS targets (
    source_id INTEGER NOT NULL REFERENCES source_patterns(id),
    target BLOB NOT NULL,
    scores BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_targets_source ON targets(source_id);
`

// SQLiteAlignmentStore is a disk-backed AlignmentTable for tables too
// large to hold comfortably in memory as a MapAlignmentTable.
type SQLiteAlignmentStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// OpenSQLiteAlignmentStore opens (creating if necessary) a SQLite
// database at dsn and ensures its schema exists.
func OpenSQLiteAlignmentStore(dsn string) (*SQLiteAlignmentStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("align: opening sqlite store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("align: applying schema: %w", err)
	}
	return &SQLiteAlignmentStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteAlignmentStore) Close() error {
	return s.db.Close()
}

// Put inserts source and its translation options. Safe for concurrent
// use; serializes writes behind the store's mutex.
func (s *SQLiteAlignmentStore) Put(source pattern.Pattern, targets []Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	srcBlob, err := binary.Marshal(patternToDTO(source))
	if err != nil {
		return fmt.Errorf("align: encoding source pattern: %w", err)
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	res, err := tx.Exec(`INSERT INTO source_patterns (hash, pattern) VALUES (?, ?)`, int64(source.Hash()), srcBlob)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("align: inserting source pattern: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return err
	}
	for _, t := range targets {
		tgtBlob, err := binary.Marshal(patternToDTO(t.Pattern))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("align: encoding target pattern: %w", err)
		}
		scoresBlob, err := binary.Marshal(t.Scores)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("align: encoding scores: %w", err)
		}
		if _, err := tx.Exec(`INSERT INTO targets (source_id, target, scores) VALUES (?, ?, ?)`, id, tgtBlob, scoresBlob); err != nil {
			tx.Rollback()
			return fmt.Errorf("align: inserting target: %w", err)
		}
	}
	return tx.Commit()
}

// Translations implements AlignmentTable.
func (s *SQLiteAlignmentStore) Translations(source pattern.Pattern) ([]Target, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, pattern FROM source_patterns WHERE hash = ?`, int64(source.Hash()))
	if err != nil {
		return nil, false
	}
	defer rows.Close()

	var matchID int64
	found := false
	for rows.Next() {
		var id int64
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, false
		}
		var dto patternDTO
		if err := binary.Unmarshal(blob, &dto); err != nil {
			continue
		}
		if dtoToPattern(dto).Equal(source) {
			matchID = id
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}

	trows, err := s.db.Query(`SELECT target, scores FROM targets WHERE source_id = ?`, matchID)
	if err != nil {
		return nil, false
	}
	defer trows.Close()

	var out []Target
	for trows.Next() {
		var tblob, sblob []byte
		if err := trows.Scan(&tblob, &sblob); err != nil {
			return nil, false
		}
		var tdto patternDTO
		if err := binary.Unmarshal(tblob, &tdto); err != nil {
			continue
		}
		var scores []float64
		if err := binary.Unmarshal(sblob, &scores); err != nil {
			continue
		}
		out = append(out, Target{Pattern: dtoToPattern(tdto), Scores: scores})
	}
	return out, true
}

// SourcePatterns implements AlignmentTable.
func (s *SQLiteAlignmentStore) SourcePatterns() []pattern.Pattern {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT pattern FROM source_patterns`)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var out []pattern.Pattern
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			continue
		}
		var dto patternDTO
		if err := binary.Unmarshal(blob, &dto); err != nil {
			continue
		}
		out = append(out, dtoToPattern(dto))
	}
	return out
}
