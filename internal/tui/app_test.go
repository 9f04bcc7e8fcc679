package tui

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/protest-validator/internal/logbook"
	"github.com/kingrea/protest-validator/internal/session"
	"github.com/kingrea/protest-validator/internal/store"
	"github.com/kingrea/protest-validator/internal/submission"
	"github.com/kingrea/protest-validator/internal/watch"
)

type memoryStore struct {
	subs    []submission.Submission
	saves   int
	saveErr error
}

func (m *memoryStore) Load() ([]submission.Submission, error) {
	out := make([]submission.Submission, len(m.subs))
	for i, s := range m.subs {
		out[i] = s.Clone()
	}
	return out, nil
}

func (m *memoryStore) Save(subs []submission.Submission) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.subs = make([]submission.Submission, len(subs))
	for i, s := range subs {
		m.subs[i] = s.Clone()
	}
	return nil
}

func day(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

func fixtureRecords() []submission.Submission {
	return []submission.Submission{
		{ID: "r1", ReportedDate: day(5), ReportedLocation: "City Hall", EvidenceURL: "http://example.com/photo.jpg", Status: submission.StatusPending},
		{ID: "r2", ReportedLocation: "Park", Status: submission.StatusPending},
		{ID: "r3", ReportedLocation: "Bridge", EvidenceURL: "https://www.news.example.org/a", Status: submission.StatusPending},
		{ID: "r4", ReportedDate: day(9), ReportedLocation: "Plaza", EvidenceURL: "http://d", Status: submission.StatusValidated, Classification: "rally"},
	}
}

func newTestApp(t *testing.T, st store.Store, sessOpts []session.Option, opts ...AppOption) *App {
	t.Helper()
	machine := submission.NewMachine(submission.NewClassificationSet("march", "rally", "Other"))
	sess := session.New(st, machine, sessOpts...)
	if err := sess.Load(); err != nil {
		t.Fatalf("load session: %v", err)
	}
	app := NewApp(sess, opts...)
	model, cmd := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return runCommands(t, model, cmd)
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func press(t *testing.T, app *App, keys ...string) *App {
	t.Helper()
	for _, key := range keys {
		model, cmd := app.Update(keyMsg(key))
		app = runCommands(t, model, cmd)
	}
	return app
}

func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			break
		}
		if _, quit := msg.(tea.QuitMsg); quit {
			break
		}
		nextModel, nextCmd := app.Update(msg)
		var ok bool
		app, ok = nextModel.(*App)
		if !ok {
			t.Fatalf("unexpected model type: %T", nextModel)
		}
		cmd = nextCmd
	}
	return app
}

func currentID(t *testing.T, app *App) string {
	t.Helper()
	cur, err := app.session.Current()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	return cur.ID
}

func TestValidateWithClassificationAdvances(t *testing.T) {
	st := &memoryStore{subs: fixtureRecords()}
	app := newTestApp(t, st, nil)
	if got := currentID(t, app); got != "r1" {
		t.Fatalf("expected to start on r1, got %s", got)
	}
	app = press(t, app, "c")
	if app.state != statePicker {
		t.Fatalf("expected classification picker, got state %d", app.state)
	}
	app = press(t, app, "down", "enter")
	if app.classification != "march" {
		t.Fatalf("classification = %q, want march", app.classification)
	}
	app = press(t, app, "v")
	if app.err != nil {
		t.Fatalf("unexpected error: %v", app.err)
	}
	if st.saves != 1 {
		t.Fatalf("expected autosave after decision, got %d saves", st.saves)
	}
	saved := st.subs[0]
	if saved.Status != submission.StatusValidated || saved.Classification != "march" {
		t.Fatalf("saved record = %+v", saved)
	}
	if got := currentID(t, app); got != "r2" {
		t.Fatalf("expected cursor on r2, got %s", got)
	}
	if !strings.Contains(app.statusMsg, "next: r2") {
		t.Fatalf("status message %q should name the next record", app.statusMsg)
	}
}

func TestValidateWithoutEvidenceShowsError(t *testing.T) {
	st := &memoryStore{subs: fixtureRecords()}
	app := newTestApp(t, st, nil)
	app = press(t, app, "n", "v")
	if app.err == nil || !errors.Is(app.err, submission.ErrIncompleteEvidence) {
		t.Fatalf("expected incomplete evidence error, got %v", app.err)
	}
	if st.saves != 0 {
		t.Fatalf("refused decision must not save")
	}
	cur, _ := app.session.Current()
	if cur.ID != "r2" || cur.Status != submission.StatusPending {
		t.Fatalf("record should stay pending on r2, got %+v", cur)
	}
	if !strings.Contains(app.View(), "evidence_url") {
		t.Fatalf("view should list the missing evidence")
	}
}

func TestEditedDateIsAppliedBeforeValidation(t *testing.T) {
	st := &memoryStore{subs: fixtureRecords()}
	app := newTestApp(t, st, nil)
	app = press(t, app, "n", "n")
	if got := currentID(t, app); got != "r3" {
		t.Fatalf("expected r3, got %s", got)
	}
	app = press(t, app, "tab")
	if app.focus != focusDate {
		t.Fatalf("tab should focus the date input")
	}
	app = press(t, app, "1/7/2025", "enter", "v")
	if app.err != nil {
		t.Fatalf("unexpected error: %v", app.err)
	}
	saved := st.subs[2]
	if saved.Status != submission.StatusValidated {
		t.Fatalf("expected r3 validated, got %s", saved.Status)
	}
	if !saved.ReportedDate.Equal(day(7)) {
		t.Fatalf("date = %v, want 2025-01-07", saved.ReportedDate)
	}
}

func TestUnparseableDateIsRefused(t *testing.T) {
	st := &memoryStore{subs: fixtureRecords()}
	app := newTestApp(t, st, nil)
	app = press(t, app, "n", "tab", "soon", "esc", "x")
	if app.err == nil || !strings.Contains(app.err.Error(), "date") {
		t.Fatalf("expected a date error, got %v", app.err)
	}
	if st.saves != 0 || st.subs[1].Status != submission.StatusPending {
		t.Fatalf("record must stay pending")
	}
}

func TestDecidedRecordIsReadOnly(t *testing.T) {
	st := &memoryStore{subs: fixtureRecords()}
	app := newTestApp(t, st, nil)
	app = press(t, app, "n", "n", "n", "x")
	if !errors.Is(app.err, submission.ErrTerminalState) {
		t.Fatalf("expected terminal state error, got %v", app.err)
	}
	if st.subs[3].Status != submission.StatusValidated {
		t.Fatalf("validated record changed")
	}
}

func TestDraftSavesWithoutDeciding(t *testing.T) {
	st := &memoryStore{subs: fixtureRecords()}
	app := newTestApp(t, st, []session.Option{session.WithAutosaveEvery(0)})
	app = press(t, app, "tab", "tab", "tab", "check date", "enter", "d")
	if app.err != nil {
		t.Fatalf("unexpected error: %v", app.err)
	}
	if st.saves != 1 {
		t.Fatalf("draft should save once, got %d", st.saves)
	}
	if st.subs[0].Status != submission.StatusPending || st.subs[0].ValidatorNotes != "check date" {
		t.Fatalf("draft record = %+v", st.subs[0])
	}
	if got := currentID(t, app); got != "r1" {
		t.Fatalf("draft should not move the cursor, got %s", got)
	}
}

func TestLocationIsSavedAsTyped(t *testing.T) {
	st := &memoryStore{subs: fixtureRecords()}
	app := newTestApp(t, st, []session.Option{session.WithAutosaveEvery(0)})
	if strings.Contains(app.locationInput.Placeholder, "State") {
		t.Fatalf("location placeholder %q suggests a state", app.locationInput.Placeholder)
	}
	keys := []string{"tab", "tab"}
	for range "City Hall" {
		keys = append(keys, "backspace")
	}
	keys = append(keys, "Boise", "enter", "d")
	app = press(t, app, keys...)
	if app.err != nil {
		t.Fatalf("unexpected error: %v", app.err)
	}
	if got := st.subs[0].ReportedLocation; got != "Boise" {
		t.Fatalf("location = %q, want Boise", got)
	}
}

func TestQuitSavesDirtySession(t *testing.T) {
	st := &memoryStore{subs: fixtureRecords()}
	app := newTestApp(t, st, []session.Option{session.WithAutosaveEvery(0)})
	app = press(t, app, "x")
	if st.saves != 0 || !app.session.Dirty() {
		t.Fatalf("expected unsaved rejection")
	}
	_, cmd := app.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	if st.saves != 1 || st.subs[0].Status != submission.StatusRejected {
		t.Fatalf("quit should save the rejection, saves=%d", st.saves)
	}
}

func TestQuitBlockedByFailedSave(t *testing.T) {
	st := &memoryStore{subs: fixtureRecords()}
	app := newTestApp(t, st, []session.Option{session.WithAutosaveEvery(0)})
	app = press(t, app, "x")
	st.saveErr = &store.WriteError{Path: "protests.xlsx", Err: os.ErrPermission}
	_, cmd := app.Update(keyMsg("q"))
	if cmd != nil {
		t.Fatalf("first q should not quit when the save fails")
	}
	if !errors.Is(app.err, store.ErrStoreWrite) {
		t.Fatalf("expected write error in footer, got %v", app.err)
	}
	_, cmd = app.Update(keyMsg("q"))
	if cmd == nil {
		t.Fatalf("second q should quit")
	}
}

func TestFailedAutosaveKeepsDecision(t *testing.T) {
	st := &memoryStore{subs: fixtureRecords(), saveErr: &store.WriteError{Path: "protests.xlsx", Err: os.ErrPermission}}
	app := newTestApp(t, st, nil)
	app = press(t, app, "x")
	if !errors.Is(app.err, store.ErrStoreWrite) {
		t.Fatalf("expected write error, got %v", app.err)
	}
	if subs := app.session.Submissions(); subs[0].Status != submission.StatusRejected {
		t.Fatalf("decision should stay applied in memory")
	}
	if !strings.Contains(app.View(), "unsaved") {
		t.Fatalf("header should flag unsaved changes")
	}
}

func TestOpenEvidenceUsesOpener(t *testing.T) {
	st := &memoryStore{subs: fixtureRecords()}
	var opened []string
	opener := func(link string) error {
		opened = append(opened, link)
		return nil
	}
	app := newTestApp(t, st, nil, WithURLOpener(opener))
	app = press(t, app, "o")
	if len(opened) != 1 || opened[0] != "http://example.com/photo.jpg" {
		t.Fatalf("opened = %v", opened)
	}
	app = press(t, app, "n", "o")
	if len(opened) != 1 || app.err == nil {
		t.Fatalf("record without a URL should not be opened")
	}
}

func TestWorkbookChangeWarnsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "protests.csv")
	csv := store.NewCSV(path, store.DefaultColumns())
	if err := csv.Save(fixtureRecords()); err != nil {
		t.Fatalf("seed csv: %v", err)
	}
	app := newTestApp(t, csv, []session.Option{session.WithWatchedPath(path)})

	app.Update(workbookChangedMsg{event: watch.Event{Path: path, Op: "modify"}})
	if app.warning != "" {
		t.Fatalf("unchanged file should not warn, got %q", app.warning)
	}

	app = press(t, app, "x")
	app.Update(workbookChangedMsg{event: watch.Event{Path: path, Op: "create"}})
	if app.warning != "" {
		t.Fatalf("our own autosave should not warn, got %q", app.warning)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("r9,2025-01-02,Elsewhere,http://z,pending,,\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	_ = f.Close()
	app.Update(workbookChangedMsg{event: watch.Event{Path: path, Op: "modify"}})
	if !strings.Contains(app.warning, "changed on disk") {
		t.Fatalf("expected external change warning, got %q", app.warning)
	}
}

func TestSummaryAndLogPanel(t *testing.T) {
	st := &memoryStore{subs: fixtureRecords()}
	book, err := logbook.New(filepath.Join(t.TempDir(), "journey.log"))
	if err != nil {
		t.Fatalf("logbook: %v", err)
	}
	t.Cleanup(func() { _ = book.Close() })
	app := newTestApp(t, st, nil, WithLogbook(book), WithWorkbookName("protests.xlsx"))
	app = press(t, app, "x")

	view := app.View()
	for _, want := range []string{"protests.xlsx", "Record 2/4 · r2", "LOG · journey.log", "Rejected r1"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}
	app = press(t, app, "?")
	if app.state != stateSummary {
		t.Fatalf("? should open the summary")
	}
	if view := app.View(); !strings.Contains(view, "By type") {
		t.Fatalf("summary should break down validated records:\n%s", view)
	}
	app = press(t, app, "esc")
	if app.state != stateReview {
		t.Fatalf("esc should return to review")
	}
}

func TestNextPendingWrapsAround(t *testing.T) {
	st := &memoryStore{subs: fixtureRecords()}
	app := newTestApp(t, st, nil)
	app = press(t, app, "n", "n", "n")
	if got := currentID(t, app); got != "r4" {
		t.Fatalf("expected r4, got %s", got)
	}
	app = press(t, app, "g")
	if got := currentID(t, app); got != "r1" {
		t.Fatalf("g should wrap to r1, got %s", got)
	}
}

func TestBrowserCommand(t *testing.T) {
	name, args := browserCommand("firefox --new-tab")
	if name != "firefox" || len(args) != 1 || args[0] != "--new-tab" {
		t.Fatalf("configured browser = %s %v", name, args)
	}
	if name, _ := browserCommand("  "); name != "" {
		t.Fatalf("blank command = %q, want the platform default", name)
	}
	if got := evidenceDomain("https://www.news.example.org/a"); got != "news.example.org" {
		t.Fatalf("domain = %q", got)
	}
}

func TestBrowserOpenerRunsConfiguredCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script")
	}
	dir := t.TempDir()
	out := filepath.Join(dir, "opened")
	script := filepath.Join(dir, "fake-browser")
	body := "#!/bin/sh\nprintf '%s' \"$1\" > " + out + "\n"
	if err := os.WriteFile(script, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	if err := BrowserOpener(script)("https://example.org/photo"); err != nil {
		t.Fatalf("open: %v", err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		got, err := os.ReadFile(out)
		if err == nil && string(got) == "https://example.org/photo" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("browser command never received the link (last read %q, %v)", got, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
