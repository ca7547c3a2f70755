package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// sqliteSchema creates the three relations. Candidate carries a UNIQUE
// index on its full 4-tuple so the set-semantics invariant is enforced by
// the database itself rather than by the generator.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS hashband (
	band_key  TEXT    NOT NULL,
	doc_id    INTEGER NOT NULL,
	window_id INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_hashband_band ON hashband(band_key);

CREATE TABLE IF NOT EXISTS candidate (
	doc_a INTEGER NOT NULL,
	doc_b INTEGER NOT NULL,
	win_a INTEGER NOT NULL,
	win_b INTEGER NOT NULL,
	UNIQUE(doc_a, doc_b, win_a, win_b)
);
CREATE INDEX IF NOT EXISTS idx_candidate_pair ON candidate(doc_a, doc_b);

CREATE TABLE IF NOT EXISTS match (
	doc_a INTEGER NOT NULL,
	doc_b INTEGER NOT NULL,
	win_a INTEGER NOT NULL,
	win_b INTEGER NOT NULL,
	sim   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_pair ON match(doc_a, doc_b);
`

// sqlitePragmas favor write throughput over durability: this is a batch
// job over a disposable working database, rebuilt every run.
var sqlitePragmas = []string{
	"PRAGMA synchronous = OFF",
	"PRAGMA journal_mode = MEMORY",
	"PRAGMA temp_store = MEMORY",
}

// SQLite is the embedded-SQL Store backend.
type SQLite struct {
	path string
	db   *sql.DB
}

// OpenSQLite creates (or reopens) the database at path, applies the
// write-throughput pragmas, and ensures the schema exists.
func OpenSQLite(path string) (*SQLite, error) {
	s := &SQLite{path: path}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLite) connect() error {
	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("opening sqlite database %s: %w", s.path, err)
	}
	db.SetMaxOpenConns(1) // sqlite3 driver is not safe for concurrent writers
	for _, p := range sqlitePragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return fmt.Errorf("applying pragma %q: %w", p, err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return fmt.Errorf("creating schema: %w", err)
	}
	s.db = db
	return nil
}

// repair is the single retry hook for a transient SQL error: close and
// reopen the connection, then let the caller retry once.
func (s *SQLite) repair() error {
	if s.db != nil {
		s.db.Close()
	}
	return s.connect()
}

// withRetry runs op; on failure it repairs the connection and retries op
// exactly once. A second failure is returned to the caller.
func (s *SQLite) withRetry(op func() error) error {
	err := op()
	if err == nil {
		return nil
	}
	if repairErr := s.repair(); repairErr != nil {
		return fmt.Errorf("%w: repair failed: %v (original error: %v)", ErrRetryExhausted, repairErr, err)
	}
	if err2 := op(); err2 != nil {
		return fmt.Errorf("%w: %v", ErrRetryExhausted, err2)
	}
	return nil
}

func (s *SQLite) AppendHashbands(rows []HashbandRow) error {
	return s.withRetry(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(`INSERT INTO hashband (band_key, doc_id, window_id) VALUES (?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}
		for _, r := range rows {
			if _, err := stmt.Exec(r.BandKey, r.DocID, r.WindowID); err != nil {
				stmt.Close()
				tx.Rollback()
				return err
			}
		}
		stmt.Close()
		return tx.Commit()
	})
}

func (s *SQLite) StreamBandsMultiDoc(fn func(bandKey string, postings []Posting) error) error {
	rows, err := s.db.Query(`SELECT band_key, doc_id, window_id FROM hashband ORDER BY band_key`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var curKey string
	var curPostings []Posting
	have := false

	flush := func() error {
		if !have {
			return nil
		}
		if distinctDocCount(curPostings) >= 2 {
			if err := fn(curKey, curPostings); err != nil {
				return err
			}
		}
		return nil
	}

	for rows.Next() {
		var key string
		var docID, winID int
		if err := rows.Scan(&key, &docID, &winID); err != nil {
			return err
		}
		if have && key != curKey {
			if err := flush(); err != nil {
				return err
			}
			curPostings = nil
		}
		curKey = key
		have = true
		curPostings = append(curPostings, Posting{DocID: docID, WindowID: winID})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	return flush()
}

func (s *SQLite) AppendCandidates(rows []CandidateRow) error {
	return s.withRetry(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO candidate (doc_a, doc_b, win_a, win_b) VALUES (?, ?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}
		for _, r := range rows {
			if _, err := stmt.Exec(r.DocA, r.DocB, r.WinA, r.WinB); err != nil {
				stmt.Close()
				tx.Rollback()
				return err
			}
		}
		stmt.Close()
		return tx.Commit()
	})
}

func (s *SQLite) StreamCandidatePairs(fn func(docA, docB int) error) error {
	rows, err := s.db.Query(`SELECT DISTINCT doc_a, doc_b FROM candidate ORDER BY doc_a, doc_b`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a, b int
		if err := rows.Scan(&a, &b); err != nil {
			return err
		}
		if err := fn(a, b); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLite) StreamCandidateWindows(docA, docB int, fn func(winA, winB int) error) error {
	rows, err := s.db.Query(`SELECT win_a, win_b FROM candidate WHERE doc_a = ? AND doc_b = ?`, docA, docB)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var wa, wb int
		if err := rows.Scan(&wa, &wb); err != nil {
			return err
		}
		if err := fn(wa, wb); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLite) AppendMatches(rows []MatchRow) error {
	return s.withRetry(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(`INSERT INTO match (doc_a, doc_b, win_a, win_b, sim) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}
		for _, r := range rows {
			if _, err := stmt.Exec(r.DocA, r.DocB, r.WinA, r.WinB, r.Sim); err != nil {
				stmt.Close()
				tx.Rollback()
				return err
			}
		}
		stmt.Close()
		return tx.Commit()
	})
}

func (s *SQLite) StreamMatchPairs(fn func(docA, docB int) error) error {
	rows, err := s.db.Query(`SELECT DISTINCT doc_a, doc_b FROM match ORDER BY doc_a, doc_b`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a, b int
		if err := rows.Scan(&a, &b); err != nil {
			return err
		}
		if err := fn(a, b); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLite) StreamMatchRows(docA, docB int, fn func(MatchRow) error) error {
	rows, err := s.db.Query(`SELECT doc_a, doc_b, win_a, win_b, sim FROM match WHERE doc_a = ? AND doc_b = ?`, docA, docB)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r MatchRow
		if err := rows.Scan(&r.DocA, &r.DocB, &r.WinA, &r.WinB, &r.Sim); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLite) StreamAllMatches(fn func(MatchRow) error) error {
	rows, err := s.db.Query(`SELECT doc_a, doc_b, win_a, win_b, sim FROM match`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r MatchRow
		if err := rows.Scan(&r.DocA, &r.DocB, &r.WinA, &r.WinB, &r.Sim); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLite) DeleteMatchesWithEndpoint(endpoints map[NodeID]struct{}) error {
	if len(endpoints) == 0 {
		return nil
	}
	return s.withRetry(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		rows, err := tx.Query(`SELECT rowid, doc_a, doc_b, win_a, win_b FROM match`)
		if err != nil {
			tx.Rollback()
			return err
		}
		var toDelete []int64
		for rows.Next() {
			var rowid int64
			var da, db_, wa, wb int
			if err := rows.Scan(&rowid, &da, &db_, &wa, &wb); err != nil {
				rows.Close()
				tx.Rollback()
				return err
			}
			_, aHit := endpoints[Node(da, wa)]
			_, bHit := endpoints[Node(db_, wb)]
			if aHit || bHit {
				toDelete = append(toDelete, rowid)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			tx.Rollback()
			return err
		}

		stmt, err := tx.Prepare(`DELETE FROM match WHERE rowid = ?`)
		if err != nil {
			tx.Rollback()
			return err
		}
		for _, rowid := range toDelete {
			if _, err := stmt.Exec(rowid); err != nil {
				stmt.Close()
				tx.Rollback()
				return err
			}
		}
		stmt.Close()
		return tx.Commit()
	})
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func distinctDocCount(postings []Posting) int {
	seen := make(map[int]struct{}, len(postings))
	for _, p := range postings {
		seen[p.DocID] = struct{}{}
	}
	return len(seen)
}

