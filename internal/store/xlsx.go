package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kingrea/protest-validator/internal/submission"
)

const (
	defaultSheetName = "Sheet1"
	stagingSheet     = "validator-staging"
)

// XLSXStore keeps submissions in one sheet of an Excel workbook. Other sheets
// in the workbook are preserved across saves.
type XLSXStore struct {
	path       string
	sheet      string
	validSheet string
	columns    Columns
	layout     layout
}

// NewXLSX creates a workbook store. When validSheet is non-empty every save
// also rewrites that sheet with only the validated rows.
func NewXLSX(path, sheet, validSheet string, cols Columns) *XLSXStore {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = "Records"
	}
	return &XLSXStore{
		path:       path,
		sheet:      sheet,
		validSheet: strings.TrimSpace(validSheet),
		columns:    cols.withDefaults(),
	}
}

// Path returns the workbook location.
func (s *XLSXStore) Path() string { return s.path }

// Load reads the records sheet in row order.
func (s *XLSXStore) Load() ([]submission.Submission, error) {
	f, err := excelize.OpenFile(s.path, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, readErr(s.path, "open workbook", err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(s.sheet); err != nil || idx < 0 {
		return nil, readErr(s.path, fmt.Sprintf("sheet %q not found", s.sheet), err)
	}
	rows, err := f.GetRows(s.sheet)
	if err != nil {
		return nil, readErr(s.path, fmt.Sprintf("read sheet %q", s.sheet), err)
	}
	if len(rows) == 0 {
		return nil, readErr(s.path, fmt.Sprintf("sheet %q is empty", s.sheet), nil)
	}
	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, readErr(s.path, "read workbook properties", err)
	}
	date1904 := props.Date1904 != nil && *props.Date1904
	if err := convertSerialDates(rows, s.columns.Date, date1904); err != nil {
		return nil, readErr(s.path, fmt.Sprintf("sheet %q", s.sheet), err)
	}
	subs, lay, err := decodeTable(s.path, rows[0], rows[1:], s.columns)
	if err != nil {
		return nil, err
	}
	s.layout = lay
	return subs, nil
}

// convertSerialDates rewrites numeric cells in the date column as civil dates.
// Raw cells hold day counts whose epoch depends on the workbook's date system.
func convertSerialDates(rows [][]string, column string, date1904 bool) error {
	idx, err := indexHeader(rows[0])
	if err != nil {
		// decodeTable reports the header problem.
		return nil
	}
	col, ok := idx.lookup(column)
	if !ok {
		return nil
	}
	for r := 1; r < len(rows); r++ {
		if col >= len(rows[r]) {
			continue
		}
		serial, err := strconv.ParseFloat(strings.TrimSpace(rows[r][col]), 64)
		if err != nil {
			continue
		}
		t, err := excelize.ExcelDateToTime(serial, date1904)
		if err != nil {
			return fmt.Errorf("row %d: %w", r+1, err)
		}
		rows[r][col] = t.Format(submission.DateLayout)
	}
	return nil
}

// Save rewrites the records sheet (and the validated-rows sheet when
// configured) and atomically replaces the workbook.
func (s *XLSXStore) Save(subs []submission.Submission) error {
	f, err := s.openForWrite()
	if err != nil {
		return writeErr(s.path, err)
	}
	defer f.Close()

	header, rows := encodeTable(subs, s.columns, s.layout)
	flagCol := s.layout.flagColumn(header, s.columns)
	if err := replaceSheet(f, s.sheet, header, rows, flagCol); err != nil {
		return writeErr(s.path, err)
	}
	if s.validSheet != "" && !strings.EqualFold(s.validSheet, s.sheet) {
		var valid [][]string
		for i, sub := range subs {
			if sub.Status == submission.StatusValidated {
				valid = append(valid, rows[i])
			}
		}
		if err := replaceSheet(f, s.validSheet, header, valid, flagCol); err != nil {
			return writeErr(s.path, err)
		}
	}
	if err := dropDefaultSheet(f, s.sheet, s.validSheet); err != nil {
		return writeErr(s.path, err)
	}
	if idx, err := f.GetSheetIndex(s.sheet); err == nil && idx >= 0 {
		f.SetActiveSheet(idx)
	}

	err = writeAtomic(s.path, func(w io.Writer) error {
		_, werr := f.WriteTo(w)
		return werr
	})
	if err != nil {
		return writeErr(s.path, err)
	}
	return nil
}

// openForWrite reuses the existing workbook so unrelated sheets survive. Only
// a missing workbook starts from a fresh file; one that cannot be opened is an
// error so Save leaves it alone.
func (s *XLSXStore) openForWrite() (*excelize.File, error) {
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return excelize.NewFile(), nil
		}
		return nil, err
	}
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open existing workbook: %w", err)
	}
	return f, nil
}

// replaceSheet writes the table to a staging sheet and swaps it in. Cells in
// numericCol are written as numbers.
func replaceSheet(f *excelize.File, name string, header []string, rows [][]string, numericCol int) error {
	if idx, _ := f.GetSheetIndex(stagingSheet); idx >= 0 {
		if err := f.DeleteSheet(stagingSheet); err != nil {
			return err
		}
	}
	if _, err := f.NewSheet(stagingSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := writeRow(f, stagingSheet, 1, header, -1); err != nil {
		return err
	}
	for i, row := range rows {
		if err := writeRow(f, stagingSheet, i+2, row, numericCol); err != nil {
			return err
		}
	}
	if idx, _ := f.GetSheetIndex(name); idx >= 0 {
		if err := f.DeleteSheet(name); err != nil {
			return fmt.Errorf("replace sheet %q: %w", name, err)
		}
	}
	if err := f.SetSheetName(stagingSheet, name); err != nil {
		return fmt.Errorf("rename sheet %q: %w", name, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []string, numericCol int) error {
	cellName, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
		if i == numericCol && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				out[i] = n
			}
		}
	}
	return f.SetSheetRow(sheet, cellName, &out)
}

// dropDefaultSheet removes the placeholder sheet excelize creates for new
// workbooks unless it is one of ours.
func dropDefaultSheet(f *excelize.File, keep ...string) error {
	for _, name := range keep {
		if strings.EqualFold(name, defaultSheetName) {
			return nil
		}
	}
	idx, _ := f.GetSheetIndex(defaultSheetName)
	if idx < 0 || len(f.GetSheetList()) < 2 {
		return nil
	}
	rows, err := f.GetRows(defaultSheetName)
	if err != nil || len(rows) > 0 {
		return nil
	}
	return f.DeleteSheet(defaultSheetName)
}
