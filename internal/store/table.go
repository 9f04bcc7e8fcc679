package store

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kingrea/protest-validator/internal/submission"
)

// Columns names the header cell for each submission field.
type Columns struct {
	ID             string
	Date           string
	Location       string
	URL            string
	Status         string
	Classification string
	Notes          string
}

// DefaultColumns matches the sheet layout activists already submit with.
func DefaultColumns() Columns {
	return Columns{
		ID:             "ID",
		Date:           "Date",
		Location:       "Location",
		URL:            "URL",
		Status:         "Status",
		Classification: "Type",
		Notes:          "Notes",
	}
}

func (c Columns) withDefaults() Columns {
	def := DefaultColumns()
	pick := func(value, fallback string) string {
		if v := strings.TrimSpace(value); v != "" {
			return v
		}
		return fallback
	}
	return Columns{
		ID:             pick(c.ID, def.ID),
		Date:           pick(c.Date, def.Date),
		Location:       pick(c.Location, def.Location),
		URL:            pick(c.URL, def.URL),
		Status:         pick(c.Status, def.Status),
		Classification: pick(c.Classification, def.Classification),
		Notes:          pick(c.Notes, def.Notes),
	}
}

// Header returns the known columns in write order.
func (c Columns) Header() []string {
	return []string{c.ID, c.Date, c.Location, c.URL, c.Status, c.Classification, c.Notes}
}

func (c Columns) required() []string {
	return []string{c.Date, c.Location, c.URL}
}

type columnIndex map[string]int

// indexHeader maps header names to positions. A repeated name is an error
// because only one of its columns could be written back.
func indexHeader(header []string) (columnIndex, error) {
	idx := columnIndex{}
	for i, name := range header {
		key := headerKey(name)
		if key == "" {
			continue
		}
		if first, dup := idx[key]; dup {
			return nil, fmt.Errorf("column %q appears more than once (columns %d and %d)", strings.TrimSpace(name), first+1, i+1)
		}
		idx[key] = i
	}
	return idx, nil
}

func (ci columnIndex) lookup(name string) (int, bool) {
	i, ok := ci[headerKey(name)]
	return i, ok
}

func headerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
}

func cell(row []string, i int, ok bool) string {
	if !ok || i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func blankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// statusEncoding is how the status column spells a decision.
type statusEncoding int

const (
	statusNames statusEncoding = iota
	// statusFlags is the legacy Valid column: 1 validated, 0 rejected and a
	// blank cell for pending.
	statusFlags
)

// layout is the shape a table had when it was loaded. Saving writes the same
// column order and status encoding back.
type layout struct {
	header []string
	status statusEncoding
}

// detectStatusEncoding picks flags when the column holds 1/0 values and names
// when it holds words. An all-blank column falls back to what its name
// suggests.
func detectStatusEncoding(column string, values []string) statusEncoding {
	enc := statusNames
	if headerKey(column) == "valid" {
		enc = statusFlags
	}
	for _, v := range values {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "":
		case "1", "0", "1.0", "0.0":
			enc = statusFlags
		default:
			return statusNames
		}
	}
	return enc
}

// encoding is the status encoding to write. A table that was never loaded
// goes by the status column's name.
func (l layout) encoding(cols Columns) statusEncoding {
	if len(l.header) == 0 {
		return detectStatusEncoding(cols.Status, nil)
	}
	return l.status
}

// flagColumn returns the position of a 1/0 status column in header, or -1.
func (l layout) flagColumn(header []string, cols Columns) int {
	if l.encoding(cols) != statusFlags {
		return -1
	}
	for i, name := range header {
		if headerKey(name) == headerKey(cols.Status) {
			return i
		}
	}
	return -1
}

func (e statusEncoding) encode(s submission.Status) string {
	if e != statusFlags {
		return string(s)
	}
	switch s {
	case submission.StatusValidated:
		return "1"
	case submission.StatusRejected:
		return "0"
	}
	return ""
}

// decodeTable turns a header plus data rows into submissions. Rows without an
// id are assigned one, which is how activist rows are ingested.
func decodeTable(path string, header []string, rows [][]string, cols Columns) ([]submission.Submission, layout, error) {
	if len(header) == 0 {
		return nil, layout{}, readErr(path, "missing header row", nil)
	}
	idx, err := indexHeader(header)
	if err != nil {
		return nil, layout{}, readErr(path, "header", err)
	}
	for _, name := range cols.required() {
		if _, ok := idx.lookup(name); !ok {
			return nil, layout{}, readErr(path, fmt.Sprintf("missing required column %q", name), nil)
		}
	}
	known := map[int]bool{}
	for _, name := range cols.Header() {
		if i, ok := idx.lookup(name); ok {
			known[i] = true
		}
	}
	var extras []int
	for i, name := range header {
		if known[i] || headerKey(name) == "" {
			continue
		}
		extras = append(extras, i)
	}

	idCol, hasID := idx.lookup(cols.ID)
	dateCol, _ := idx.lookup(cols.Date)
	locCol, _ := idx.lookup(cols.Location)
	urlCol, _ := idx.lookup(cols.URL)
	statusCol, hasStatus := idx.lookup(cols.Status)
	classCol, hasClass := idx.lookup(cols.Classification)
	notesCol, hasNotes := idx.lookup(cols.Notes)

	lay := layout{header: make([]string, len(header))}
	for i, name := range header {
		lay.header[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	}

	seen := map[string]int{}
	var statuses []string
	out := make([]submission.Submission, 0, len(rows))
	for r, row := range rows {
		line := r + 2
		if blankRow(row) {
			continue
		}
		id := cell(row, idCol, hasID)
		if id == "" {
			id = uuid.NewString()
		}
		if prev, dup := seen[id]; dup {
			return nil, layout{}, readErr(path, fmt.Sprintf("row %d: duplicate id %q (first seen on row %d)", line, id, prev), nil)
		}
		seen[id] = line

		date, err := submission.ParseDate(cell(row, dateCol, true))
		if err != nil {
			return nil, layout{}, readErr(path, fmt.Sprintf("row %d", line), err)
		}
		rawStatus := cell(row, statusCol, hasStatus)
		status, err := submission.ParseStatus(rawStatus)
		if err != nil {
			return nil, layout{}, readErr(path, fmt.Sprintf("row %d", line), err)
		}
		statuses = append(statuses, rawStatus)
		sub := submission.Submission{
			ID:               id,
			ReportedDate:     date,
			ReportedLocation: cell(row, locCol, true),
			EvidenceURL:      cell(row, urlCol, true),
			Classification:   submission.Classification(cell(row, classCol, hasClass)),
			Status:           status,
			ValidatorNotes:   cell(row, notesCol, hasNotes),
		}
		for _, i := range extras {
			sub.Extra = append(sub.Extra, submission.Cell{Column: lay.header[i], Value: cell(row, i, true)})
		}
		out = append(out, sub)
	}
	lay.status = detectStatusEncoding(cols.Status, statuses)
	return out, lay, nil
}

// encodeTable is the inverse of decodeTable. Columns keep the order they had
// at load; known columns the source lacked come next, then extra columns in
// the order they were first seen across the dataset.
func encodeTable(subs []submission.Submission, cols Columns, lay layout) ([]string, [][]string) {
	enc := lay.encoding(cols)
	header := append([]string(nil), lay.header...)
	if len(header) == 0 {
		header = cols.Header()
	}
	taken := map[string]bool{}
	for _, name := range header {
		if key := headerKey(name); key != "" {
			taken[key] = true
		}
	}
	for _, name := range cols.Header() {
		if key := headerKey(name); !taken[key] {
			taken[key] = true
			header = append(header, name)
		}
	}
	for _, s := range subs {
		for _, c := range s.Extra {
			key := headerKey(c.Column)
			if key == "" || taken[key] {
				continue
			}
			taken[key] = true
			header = append(header, c.Column)
		}
	}

	fields := map[string]func(submission.Submission) string{
		headerKey(cols.ID):             func(s submission.Submission) string { return s.ID },
		headerKey(cols.Date):           func(s submission.Submission) string { return s.DateString() },
		headerKey(cols.Location):       func(s submission.Submission) string { return s.ReportedLocation },
		headerKey(cols.URL):            func(s submission.Submission) string { return s.EvidenceURL },
		headerKey(cols.Status):         func(s submission.Submission) string { return enc.encode(s.Status) },
		headerKey(cols.Classification): func(s submission.Submission) string { return string(s.Classification) },
		headerKey(cols.Notes):          func(s submission.Submission) string { return s.ValidatorNotes },
	}

	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		row := make([]string, len(header))
		for i, name := range header {
			key := headerKey(name)
			if key == "" {
				continue
			}
			if get, ok := fields[key]; ok {
				row[i] = get(s)
				continue
			}
			row[i], _ = s.ExtraValue(name)
		}
		rows = append(rows, row)
	}
	return header, rows
}
