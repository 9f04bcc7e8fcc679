package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/protest-validator/internal/submission"
)

var (
	accentColor = lipgloss.Color("#5B8DEF")
	borderColor = lipgloss.Color("#444444")
	mutedColor  = lipgloss.Color("#888888")
	errorColor  = lipgloss.Color("#FF6B6B")
	warnColor   = lipgloss.Color("#F5A623")

	statusColors = map[submission.Status]lipgloss.Color{
		submission.StatusPending:   lipgloss.Color("#F5A623"),
		submission.StatusValidated: lipgloss.Color("#3FB950"),
		submission.StatusRejected:  lipgloss.Color("#FF6B6B"),
	}

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(mutedColor).Width(14)
)

const reviewKeys = "v validate · x reject · d draft · s save · n/p move · g next pending · o open · tab edit · c classify · ? summary · q quit"

// renderClassificationKey renders the classification list as markdown so the
// key reads the same as the dashboard legend.
func renderClassificationKey(classes submission.ClassificationSet, width int) string {
	var b strings.Builder
	b.WriteString("### Classifications\n\n")
	for _, c := range classes.All() {
		fmt.Fprintf(&b, "- **%s**\n", c)
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return b.String()
	}
	out, err := renderer.Render(b.String())
	if err != nil {
		return b.String()
	}
	return strings.TrimRight(out, "\n")
}

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	rightWidth := max(32, width/3)
	leftWidth := width - rightWidth - 4
	if leftWidth < 40 {
		leftWidth = width - 4
		rightWidth = 0
	}

	var content string
	switch a.state {
	case stateSummary:
		content = a.renderSummary()
	case statePicker:
		content = a.picker.View()
	default:
		content = a.renderRecord(leftWidth - 4)
	}

	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(errorColor).
		MarginBottom(1).
		Render(a.headerLine())
	leftBox := panelStyle.Width(max(20, leftWidth)).Render(content)
	body := leftBox
	if rightWidth > 0 {
		rightBox := panelStyle.Width(max(20, rightWidth)).Render(a.renderSidebar())
		body = lipgloss.JoinHorizontal(lipgloss.Top, leftBox, rightBox)
	}
	sections := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	sections = append(sections, a.renderFooter())
	return strings.Join(sections, "\n")
}

func (a *App) headerLine() string {
	title := "⬡ PROTEST VALIDATOR"
	if a.workbookName != "" {
		title += " · " + a.workbookName
	}
	if a.session.Dirty() {
		title += " · unsaved"
	}
	return title
}

func (a *App) renderRecord(width int) string {
	current, err := a.session.Current()
	if err != nil {
		return lipgloss.NewStyle().Foreground(mutedColor).Render("No submissions in this workbook.")
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor).
		Render(fmt.Sprintf("Record %d/%d · %s", a.session.Position()+1, a.session.Len(), current.ID))
	badge := lipgloss.NewStyle().
		Bold(true).
		Foreground(statusColors[current.Status]).
		Render(strings.ToUpper(current.Status.FriendlyName()))

	link := current.EvidenceURL
	if link == "" {
		link = lipgloss.NewStyle().Foreground(errorColor).Render("(missing)")
	} else if domain := evidenceDomain(link); domain != "" {
		link = fmt.Sprintf("%s\n%s", link, labelStyle.Render("")+lipgloss.NewStyle().Foreground(mutedColor).Render(domain))
	}
	submitted := current.DateString()
	if submitted == "" {
		submitted = lipgloss.NewStyle().Foreground(errorColor).Render("(missing)")
	}
	class := string(a.classification)
	if class == "" {
		class = lipgloss.NewStyle().Foreground(mutedColor).Render("(none)")
	}

	lines := []string{
		title + "  " + badge,
		"",
		field("Evidence", link),
		field("Submitted", submitted),
		field("Date", a.renderInput(focusDate, a.dateInput.View())),
		field("Location", a.renderInput(focusLocation, a.locationInput.View())),
		field("Type", class),
		field("Notes", a.renderInput(focusNotes, a.notesInput.View())),
	}
	for _, cell := range current.Extra {
		if strings.TrimSpace(cell.Value) == "" {
			continue
		}
		lines = append(lines, field(cell.Column, lipgloss.NewStyle().Foreground(mutedColor).Render(cell.Value)))
	}
	if current.Status.Terminal() {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(mutedColor).Render("This record has been decided and is read-only."))
	} else if missing := current.MissingEvidence(); len(missing) > 0 {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(warnColor).Render("Missing: "+strings.Join(missing, ", ")))
	}
	return lipgloss.NewStyle().Width(max(20, width)).Render(strings.Join(lines, "\n"))
}

func field(label, value string) string {
	return labelStyle.Render(label) + value
}

func (a *App) renderInput(f formFocus, view string) string {
	if a.focus == f {
		return lipgloss.NewStyle().Foreground(accentColor).Render("› ") + view
	}
	return "  " + view
}

func (a *App) renderSidebar() string {
	sum := a.session.Summary()
	progress := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Progress")
	lines := []string{
		progress,
		fmt.Sprintf("%d of %d reviewed", sum.Reviewed(), sum.Total),
		fmt.Sprintf("%d pending · %d validated · %d rejected", sum.Pending, sum.Validated, sum.Rejected),
		"",
		a.classKey,
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderSummary() string {
	sum := a.session.Summary()
	title := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Summary")
	lines := []string{
		title,
		"",
		field("Total", fmt.Sprint(sum.Total)),
		field("Pending", fmt.Sprint(sum.Pending)),
		field("Validated", fmt.Sprint(sum.Validated)),
		field("Rejected", fmt.Sprint(sum.Rejected)),
		field("This session", fmt.Sprint(a.session.Decisions())),
	}
	if classes := sum.Classifications(); len(classes) > 0 {
		lines = append(lines, "", lipgloss.NewStyle().Bold(true).Render("By type"))
		for _, c := range classes {
			lines = append(lines, field(string(c), fmt.Sprint(sum.ByClassification[c])))
		}
	}
	lines = append(lines, "", lipgloss.NewStyle().Foreground(mutedColor).Render("? or esc → back"))
	return strings.Join(lines, "\n")
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor).
		Render(fmt.Sprintf("LOG · %s (%d)", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return panelStyle.Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) renderFooter() string {
	var lines []string
	if a.warning != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(warnColor).Render("⚠ "+a.warning))
	}
	switch {
	case a.err != nil:
		lines = append(lines, lipgloss.NewStyle().Foreground(errorColor).Render("✗ "+a.err.Error()))
	case a.statusMsg != "":
		lines = append(lines, lipgloss.NewStyle().Foreground(mutedColor).Render(a.statusMsg))
	}
	hint := reviewKeys
	switch {
	case a.state == statePicker:
		hint = "↑/↓ choose · enter select · esc cancel"
	case a.focus != focusCommands:
		hint = "tab next field · enter/esc done editing"
	}
	lines = append(lines, lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1).Render(hint))
	return strings.Join(lines, "\n")
}
