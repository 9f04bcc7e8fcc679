package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/kingrea/protest-validator/internal/submission"
)

const defaultTable = "submissions"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore keeps submissions in a single table of an embedded database.
// Saves replace the table contents inside one transaction.
type SQLiteStore struct {
	path  string
	table string
}

// NewSQLite creates a store for the database at path.
func NewSQLite(path, table string) *SQLiteStore {
	table = strings.TrimSpace(table)
	if table == "" {
		table = defaultTable
	}
	return &SQLiteStore{path: path, table: table}
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string { return s.path }

type extraJSON struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// Load reads rows in their saved order.
func (s *SQLiteStore) Load() ([]submission.Submission, error) {
	if !tableNamePattern.MatchString(s.table) {
		return nil, readErr(s.path, fmt.Sprintf("invalid table name %q", s.table), nil)
	}
	if _, err := os.Stat(s.path); err != nil {
		return nil, readErr(s.path, "open database", err)
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, readErr(s.path, "open database", err)
	}
	defer db.Close()

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, s.table).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, readErr(s.path, fmt.Sprintf("missing table %q", s.table), nil)
	}
	if err != nil {
		return nil, readErr(s.path, "inspect schema", err)
	}

	rows, err := db.Query(fmt.Sprintf(`SELECT id, reported_date, reported_location, evidence_url,
		classification, status, validator_notes, extra FROM %s ORDER BY position`, s.table))
	if err != nil {
		return nil, readErr(s.path, "query submissions", err)
	}
	defer rows.Close()

	var out []submission.Submission
	for rows.Next() {
		var (
			sub                 submission.Submission
			date, class, status string
			extra               sql.NullString
		)
		if err := rows.Scan(&sub.ID, &date, &sub.ReportedLocation, &sub.EvidenceURL, &class, &status, &sub.ValidatorNotes, &extra); err != nil {
			return nil, readErr(s.path, "scan submission", err)
		}
		if sub.ReportedDate, err = submission.ParseDate(date); err != nil {
			return nil, readErr(s.path, fmt.Sprintf("submission %s", sub.ID), err)
		}
		if sub.Status, err = submission.ParseStatus(status); err != nil {
			return nil, readErr(s.path, fmt.Sprintf("submission %s", sub.ID), err)
		}
		sub.Classification = submission.Classification(class)
		if extra.Valid && extra.String != "" {
			var cells []extraJSON
			if err := json.Unmarshal([]byte(extra.String), &cells); err != nil {
				return nil, readErr(s.path, fmt.Sprintf("submission %s extra columns", sub.ID), err)
			}
			for _, c := range cells {
				sub.Extra = append(sub.Extra, submission.Cell{Column: c.Column, Value: c.Value})
			}
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(s.path, "iterate submissions", err)
	}
	return out, nil
}

// Save replaces the table contents. A failure rolls back and leaves the
// previous rows in place.
func (s *SQLiteStore) Save(subs []submission.Submission) (err error) {
	if !tableNamePattern.MatchString(s.table) {
		return writeErr(s.path, fmt.Errorf("invalid table name %q", s.table))
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return writeErr(s.path, err)
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return writeErr(s.path, err)
	}
	defer db.Close()

	tx, err := db.Begin()
	if err != nil {
		return writeErr(s.path, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL,
		reported_date TEXT NOT NULL DEFAULT '',
		reported_location TEXT NOT NULL DEFAULT '',
		evidence_url TEXT NOT NULL DEFAULT '',
		classification TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		validator_notes TEXT NOT NULL DEFAULT '',
		extra TEXT
	)`, s.table)
	if _, err = tx.Exec(schema); err != nil {
		return writeErr(s.path, fmt.Errorf("create table: %w", err))
	}
	if _, err = tx.Exec(fmt.Sprintf(`DELETE FROM %s`, s.table)); err != nil {
		return writeErr(s.path, fmt.Errorf("clear table: %w", err))
	}
	stmt, err := tx.Prepare(fmt.Sprintf(`INSERT INTO %s (id, position, reported_date, reported_location,
		evidence_url, classification, status, validator_notes, extra) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, s.table))
	if err != nil {
		return writeErr(s.path, fmt.Errorf("prepare insert: %w", err))
	}
	defer stmt.Close()

	for i, sub := range subs {
		var extra any
		if len(sub.Extra) > 0 {
			cells := make([]extraJSON, len(sub.Extra))
			for j, c := range sub.Extra {
				cells[j] = extraJSON{Column: c.Column, Value: c.Value}
			}
			encoded, mErr := json.Marshal(cells)
			if mErr != nil {
				return writeErr(s.path, fmt.Errorf("encode extra columns for %s: %w", sub.ID, mErr))
			}
			extra = string(encoded)
		}
		_, err = stmt.Exec(sub.ID, i, sub.DateString(), sub.ReportedLocation, sub.EvidenceURL,
			string(sub.Classification), string(sub.Status), sub.ValidatorNotes, extra)
		if err != nil {
			return writeErr(s.path, fmt.Errorf("insert %s: %w", sub.ID, err))
		}
	}
	if err = tx.Commit(); err != nil {
		return writeErr(s.path, fmt.Errorf("commit: %w", err))
	}
	return nil
}
