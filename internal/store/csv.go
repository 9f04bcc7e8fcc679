package store

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/kingrea/protest-validator/internal/submission"
)

// CSVStore keeps submissions in a comma-separated file with a header row.
type CSVStore struct {
	path    string
	columns Columns
	layout  layout
}

// NewCSV creates a CSV-backed store.
func NewCSV(path string, cols Columns) *CSVStore {
	return &CSVStore{path: path, columns: cols.withDefaults()}
}

// Path returns the file location.
func (s *CSVStore) Path() string { return s.path }

// Load reads every row after the header.
func (s *CSVStore) Load() ([]submission.Submission, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return nil, readErr(s.path, "open", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, readErr(s.path, "parse csv", err)
	}
	if len(records) == 0 {
		return nil, readErr(s.path, "missing header row", nil)
	}
	subs, lay, err := decodeTable(s.path, records[0], records[1:], s.columns)
	if err != nil {
		return nil, err
	}
	s.layout = lay
	return subs, nil
}

// Save atomically rewrites the file in the column order it was loaded with.
func (s *CSVStore) Save(subs []submission.Submission) error {
	header, rows := encodeTable(subs, s.columns, s.layout)
	err := writeAtomic(s.path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return err
		}
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return cw.Error()
	})
	if err != nil {
		return writeErr(s.path, err)
	}
	return nil
}
