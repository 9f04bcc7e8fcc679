// Package store persists submissions to a tabular backing file. Every backend
// satisfies the same Load/Save contract so the review session never needs to
// know whether it is talking to a workbook, a CSV export or SQLite.
package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kingrea/protest-validator/internal/config"
	"github.com/kingrea/protest-validator/internal/submission"
)

// Store loads and saves the full ordered dataset.
type Store interface {
	Load() ([]submission.Submission, error)
	Save([]submission.Submission) error
}

// Backend names accepted in configuration.
const (
	BackendXLSX   = "xlsx"
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

var (
	// ErrStoreRead matches any *ReadError.
	ErrStoreRead = errors.New("store: read failed")
	// ErrStoreWrite matches any *WriteError.
	ErrStoreWrite = errors.New("store: write failed")
)

// ReadError reports a backing file that is missing, malformed or lacks a
// required column.
type ReadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *ReadError) Error() string {
	msg := fmt.Sprintf("store: read %s", e.Path)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ReadError) Unwrap() error { return e.Err }

func (e *ReadError) Is(target error) bool { return target == ErrStoreRead }

// WriteError reports a failed save. The previous file is left in place.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("store: write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

func (e *WriteError) Is(target error) bool { return target == ErrStoreWrite }

func readErr(path, reason string, err error) error {
	return &ReadError{Path: path, Reason: reason, Err: err}
}

func writeErr(path string, err error) error {
	return &WriteError{Path: path, Err: err}
}

// Options selects and tunes a backend.
type Options struct {
	Backend    string
	Sheet      string
	ValidSheet string
	Table      string
	Columns    Columns
}

// OptionsFromConfig maps the project's config.yaml onto store options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{Columns: DefaultColumns(), Sheet: config.DefaultSheet, Table: config.DefaultTable}
	if cfg == nil {
		return opts
	}
	p := cfg.Project
	opts.Backend = p.Store.Backend
	opts.Sheet = p.Store.Sheet
	opts.ValidSheet = cfg.ValidSheet()
	opts.Table = p.Store.Table
	opts.Columns = Columns{
		ID:             p.Columns.ID,
		Date:           p.Columns.Date,
		Location:       p.Columns.Location,
		URL:            p.Columns.URL,
		Status:         p.Columns.Status,
		Classification: p.Columns.Classification,
		Notes:          p.Columns.Notes,
	}.withDefaults()
	return opts
}

// Open returns the backend for path. An explicit backend wins over the file
// extension.
func Open(path string, opts Options) (Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("store: workbook path is required")
	}
	opts.Columns = opts.Columns.withDefaults()
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = backendForPath(path)
	}
	switch backend {
	case BackendXLSX:
		return NewXLSX(path, opts.Sheet, opts.ValidSheet, opts.Columns), nil
	case BackendCSV:
		return NewCSV(path, opts.Columns), nil
	case BackendSQLite:
		return NewSQLite(path, opts.Table), nil
	case "":
		return nil, fmt.Errorf("store: cannot infer backend from %q", filepath.Base(path))
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}

func backendForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return BackendXLSX
	case ".csv":
		return BackendCSV
	case ".db", ".sqlite", ".sqlite3":
		return BackendSQLite
	}
	return ""
}
