// internal/tui/app.go
//
// This is the review TUI for the protest validator.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: the App, which wraps the review session
// 2. Update: keys and watcher events turn into session calls
// 3. View: the record on screen, the form and the log panel
//
// The flow is: Key -> Message -> Update -> Session -> View -> Screen

package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/kingrea/protest-validator/internal/logbook"
	"github.com/kingrea/protest-validator/internal/session"
	"github.com/kingrea/protest-validator/internal/store"
	"github.com/kingrea/protest-validator/internal/submission"
	"github.com/kingrea/protest-validator/internal/watch"
)

// appState represents which screen we're on
type appState int

const (
	stateReview  appState = iota // One record with its form
	statePicker                  // Classification picker over the review screen
	stateSummary                 // Counts for the whole workbook
)

// formFocus tracks where key presses go on the review screen.
type formFocus int

const (
	focusCommands formFocus = iota
	focusDate
	focusLocation
	focusNotes
	focusCount
)

// workbookChangedMsg is delivered when the watcher sees the workbook change.
type workbookChangedMsg struct {
	event watch.Event
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithLogbook attaches the journal shown in the log panel.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// WithURLOpener overrides how evidence links are opened.
func WithURLOpener(opener URLOpener) AppOption {
	return func(a *App) {
		if opener != nil {
			a.openURL = opener
		}
	}
}

// WithWatchEvents subscribes the app to workbook change events.
func WithWatchEvents(events <-chan watch.Event) AppOption {
	return func(a *App) {
		a.watchEvents = events
	}
}

// WithWorkbookName sets the label shown in the header.
func WithWorkbookName(name string) AppOption {
	return func(a *App) {
		a.workbookName = strings.TrimSpace(name)
	}
}

// WithLogger routes diagnostics to logger.
func WithLogger(logger *zap.Logger) AppOption {
	return func(a *App) {
		if logger != nil {
			a.log = logger
		}
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state   appState
	session *session.Session
	logbook *logbook.Logbook
	log     *zap.Logger

	openURL     URLOpener
	watchEvents <-chan watch.Event

	// Review form for the record under the cursor
	focus          formFocus
	dateInput      textinput.Model
	locationInput  textinput.Model
	notesInput     textinput.Model
	classification submission.Classification
	picker         list.Model
	classKey       string

	statusMsg    string
	err          error
	warning      string
	quitArmed    bool
	workbookName string

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// classItem implements list.Item for the classification picker
type classItem struct {
	value submission.Classification
}

func (i classItem) Title() string {
	if i.value == "" {
		return "(none)"
	}
	return string(i.value)
}
func (i classItem) Description() string {
	if i.value == "" {
		return "Clear the classification"
	}
	return ""
}
func (i classItem) FilterValue() string { return string(i.value) }

// NewApp creates the review app over a loaded session.
func NewApp(sess *session.Session, opts ...AppOption) *App {
	classes := sess.Classifications()
	items := []list.Item{classItem{}}
	for _, c := range classes.All() {
		items = append(items, classItem{value: c})
	}
	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	picker := list.New(items, delegate, 0, 0)
	picker.Title = "Classification"
	picker.SetShowStatusBar(false)
	picker.SetFilteringEnabled(false)
	picker.SetShowHelp(false)

	app := &App{
		state:         stateReview,
		session:       sess,
		log:           zap.NewNop(),
		openURL:       BrowserOpener(""),
		dateInput:     newInput("YYYY-MM-DD", 10),
		locationInput: newInput("Where it happened", 80),
		notesInput:    newInput("Notes for the dashboard team", 200),
		picker:        picker,
		classKey:      renderClassificationKey(classes, 36),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.loadForm()
	sum := sess.Summary()
	app.logInfo("Session opened · %d record(s), %d pending", sum.Total, sum.Pending)
	if sum.Pending == 0 && sum.Total > 0 {
		app.statusMsg = "Every submission has been reviewed"
	}
	return app
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 40
	ti.Prompt = ""
	_ = ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.waitForWatch()
}

func (a *App) waitForWatch() tea.Cmd {
	if a.watchEvents == nil {
		return nil
	}
	events := a.watchEvents
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return nil
		}
		return workbookChangedMsg{event: ev}
	}
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.picker.SetSize(max(20, msg.Width/3), max(6, msg.Height-12))
		return a, nil

	case workbookChangedMsg:
		a.handleWorkbookChanged(msg.event)
		return a, a.waitForWatch()

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a.quit(true)
		}
		switch a.state {
		case statePicker:
			return a.updatePicker(msg)
		case stateSummary:
			switch msg.String() {
			case "?", "esc", "q":
				a.state = stateReview
			}
			return a, nil
		}
		if a.focus != focusCommands {
			return a.updateForm(msg)
		}
		return a.handleCommand(msg.String())
	}
	return a, nil
}

func (a *App) handleCommand(key string) (tea.Model, tea.Cmd) {
	if key != "q" {
		a.quitArmed = false
	}
	switch key {
	case "q":
		return a.quit(a.quitArmed)
	case "v":
		return a.decide(submission.StatusValidated)
	case "x":
		return a.decide(submission.StatusRejected)
	case "d":
		return a.saveDraft()
	case "s":
		return a.save()
	case "n", "right", "l":
		if a.session.Next() {
			a.loadForm()
			a.clearStatus()
		}
	case "p", "left", "h":
		if a.session.Prev() {
			a.loadForm()
			a.clearStatus()
		}
	case "g":
		if a.session.NextPending() {
			a.loadForm()
			a.clearStatus()
		} else {
			a.statusMsg = "No pending submissions left"
		}
	case "o":
		a.openEvidence()
	case "tab":
		a.setFocus(focusDate)
	case "shift+tab":
		a.setFocus(focusNotes)
	case "c":
		a.openPicker()
	case "?":
		a.state = stateSummary
	}
	return a, nil
}

func (a *App) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "tab":
		a.setFocus((a.focus + 1) % focusCount)
		return a, nil
	case "shift+tab":
		a.setFocus((a.focus + focusCount - 1) % focusCount)
		return a, nil
	case "esc", "enter":
		a.setFocus(focusCommands)
		return a, nil
	}
	var cmd tea.Cmd
	switch a.focus {
	case focusDate:
		a.dateInput, cmd = a.dateInput.Update(msg)
	case focusLocation:
		a.locationInput, cmd = a.locationInput.Update(msg)
	case focusNotes:
		a.notesInput, cmd = a.notesInput.Update(msg)
	}
	return a, cmd
}

func (a *App) setFocus(f formFocus) {
	a.focus = f
	a.dateInput.Blur()
	a.locationInput.Blur()
	a.notesInput.Blur()
	switch f {
	case focusDate:
		_ = a.dateInput.Focus()
	case focusLocation:
		_ = a.locationInput.Focus()
	case focusNotes:
		_ = a.notesInput.Focus()
	}
}

func (a *App) openPicker() {
	if _, err := a.session.Current(); err != nil {
		a.setError(err)
		return
	}
	idx := 0
	for i, item := range a.picker.Items() {
		if ci, ok := item.(classItem); ok && strings.EqualFold(string(ci.value), string(a.classification)) {
			idx = i
			break
		}
	}
	a.picker.Select(idx)
	a.state = statePicker
}

func (a *App) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "q":
		a.state = stateReview
		return a, nil
	case "enter":
		if item, ok := a.picker.SelectedItem().(classItem); ok {
			a.classification = item.value
			a.statusMsg = fmt.Sprintf("Classification set to %s", item.Title())
		}
		a.state = stateReview
		return a, nil
	}
	var cmd tea.Cmd
	a.picker, cmd = a.picker.Update(msg)
	return a, cmd
}

// decide applies a verdict to the record on screen and moves on.
func (a *App) decide(target submission.Status) (tea.Model, tea.Cmd) {
	current, err := a.session.Current()
	if err != nil {
		a.setError(err)
		return a, nil
	}
	date, location, err := a.formCorrections()
	if err != nil {
		a.setError(err)
		return a, nil
	}
	updated, err := a.session.Decide(submission.Decision{
		Target:         target,
		Classification: a.classification,
		Notes:          strings.TrimSpace(a.notesInput.Value()),
		Date:           date,
		Location:       location,
	})
	if err != nil && !errors.Is(err, store.ErrStoreWrite) {
		a.setError(err)
		a.logWarn("Refused %s for %s: %v", target.FriendlyName(), current.ID, err)
		return a, nil
	}
	a.logInfo("%s %s%s", updated.Status.FriendlyName(), updated.ID, classificationSuffix(updated.Classification))
	if err != nil {
		a.loadForm()
		a.setError(fmt.Errorf("%s recorded but not saved: %w", updated.ID, err))
		a.logError("Save failed: %v", err)
		return a, nil
	}
	a.loadForm()
	a.err = nil
	if next, cerr := a.session.Current(); cerr == nil && next.Status == submission.StatusPending {
		a.statusMsg = fmt.Sprintf("%s %s · next: %s", updated.Status.FriendlyName(), updated.ID, next.ID)
	} else {
		a.statusMsg = fmt.Sprintf("%s %s · every submission has been reviewed", updated.Status.FriendlyName(), updated.ID)
	}
	return a, nil
}

func (a *App) saveDraft() (tea.Model, tea.Cmd) {
	date, location, err := a.formCorrections()
	if err != nil {
		a.setError(err)
		return a, nil
	}
	notes := strings.TrimSpace(a.notesInput.Value())
	class := a.classification
	updated, err := a.session.SaveDraft(submission.Edit{
		Classification: &class,
		Notes:          &notes,
		Date:           date,
		Location:       location,
	})
	if err != nil {
		a.setError(err)
		return a, nil
	}
	if err := a.session.Save(); err != nil {
		a.setError(err)
		a.logError("Save failed: %v", err)
		return a, nil
	}
	a.loadForm()
	a.err = nil
	a.statusMsg = fmt.Sprintf("Draft saved for %s", updated.ID)
	a.logInfo("Draft saved for %s", updated.ID)
	return a, nil
}

func (a *App) save() (tea.Model, tea.Cmd) {
	if err := a.session.Save(); err != nil {
		a.setError(err)
		a.logError("Save failed: %v", err)
		return a, nil
	}
	a.err = nil
	a.warning = ""
	a.statusMsg = fmt.Sprintf("Saved at %s", time.Now().Format("15:04:05"))
	a.logInfo("Workbook saved")
	return a, nil
}

// quit saves pending changes first. A failed save blocks the first q so the
// validator can retry; force quits regardless.
func (a *App) quit(force bool) (tea.Model, tea.Cmd) {
	if a.session.Dirty() {
		if err := a.session.Save(); err != nil {
			a.logError("Save on exit failed: %v", err)
			if !force {
				a.setError(fmt.Errorf("%w (press q again to quit without saving)", err))
				a.quitArmed = true
				return a, nil
			}
		} else {
			a.logInfo("Workbook saved on exit")
		}
	}
	sum := a.session.Summary()
	a.logInfo("Session closed · %d decision(s) · %d pending", a.session.Decisions(), sum.Pending)
	return a, tea.Quit
}

func (a *App) openEvidence() {
	current, err := a.session.Current()
	if err != nil {
		a.setError(err)
		return
	}
	link := strings.TrimSpace(current.EvidenceURL)
	if !openableURL(link) {
		a.setError(fmt.Errorf("%s has no openable evidence URL", current.ID))
		return
	}
	if err := a.openURL(link); err != nil {
		a.setError(err)
		a.logWarn("Could not open %s: %v", link, err)
		return
	}
	a.err = nil
	a.statusMsg = fmt.Sprintf("Opened %s", evidenceDomain(link))
}

func (a *App) handleWorkbookChanged(ev watch.Event) {
	if !a.session.ExternallyModified() {
		return
	}
	a.session.AcknowledgeExternalChange()
	a.warning = "Workbook changed on disk; saving will overwrite those changes"
	a.logWarn("Workbook changed outside this session (%s: %s)", ev.Op, ev.Path)
	a.log.Warn("workbook modified externally", zap.String("path", ev.Path), zap.String("op", ev.Op))
}

// formCorrections reads the date and location inputs.
func (a *App) formCorrections() (*time.Time, *string, error) {
	raw := strings.TrimSpace(a.dateInput.Value())
	date, err := submission.ParseDate(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("date %q: %w", raw, err)
	}
	location := strings.TrimSpace(a.locationInput.Value())
	return &date, &location, nil
}

// loadForm copies the record under the cursor into the form.
func (a *App) loadForm() {
	a.setFocus(focusCommands)
	current, err := a.session.Current()
	if err != nil {
		a.dateInput.SetValue("")
		a.locationInput.SetValue("")
		a.notesInput.SetValue("")
		a.classification = ""
		return
	}
	a.dateInput.SetValue(current.DateString())
	a.locationInput.SetValue(current.ReportedLocation)
	a.notesInput.SetValue(current.ValidatorNotes)
	a.classification = current.Classification
}

func (a *App) setError(err error) {
	a.err = err
	a.statusMsg = ""
}

func (a *App) clearStatus() {
	a.err = nil
	a.statusMsg = ""
}

func classificationSuffix(c submission.Classification) string {
	if c == "" {
		return ""
	}
	return fmt.Sprintf(" as %s", c)
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}
