package screens

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard/components"
	"github.com/mrsinham/medbrain/internal/session"
)

const (
	rowActionAdd      = "add"
	rowActionContinue = "continue"
	rowActionEdit     = "edit:"
	rowActionRemove   = "remove:"
)

var (
	rowHeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("63")).
			Bold(true)

	rowCellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	rowEmptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// RowsEditor is the part of a session the rows screen edits.
type RowsEditor interface {
	AddRow(set string) (int, error)
	RemoveRow(set string, i int) (bool, error)
	ReplaceRow(set string, i int, row session.Row) error
	Snapshot() session.Snapshot
}

// RowsScreen edits the rows of a row set: add, edit and remove entries
type RowsScreen struct {
	editor    RowsEditor
	spec      session.RowSetSpec
	prompt    string
	index     int
	total     int
	helpPanel *components.HelpPanel

	menu   *huh.Form
	action string

	// Row being edited, -1 in the menu
	editing int
	edit    *huh.Form
	cells   map[string]*string

	notes     []string
	width     int
	height    int
	done      bool
	back      bool
	cancelled bool
}

// NewRowsScreen creates the editor of the row set spec for the step at index.
func NewRowsScreen(flow string, editor RowsEditor, spec session.RowSetSpec, prompt string, index, total int, notes []string) *RowsScreen {
	s := &RowsScreen{
		editor:    editor,
		spec:      spec,
		prompt:    prompt,
		index:     index,
		total:     total,
		helpPanel: components.NewHelpPanel(flow),
		editing:   -1,
		notes:     notes,
	}
	s.buildMenu()
	return s
}

func (s *RowsScreen) rows() []session.Row {
	return s.editor.Snapshot().Rows(s.spec.Key)
}

// buildMenu rebuilds the action list from the current rows.
func (s *RowsScreen) buildMenu() {
	rows := s.rows()
	opts := []huh.Option[string]{
		huh.NewOption("Continue", rowActionContinue),
		huh.NewOption("Add a row", rowActionAdd),
	}
	for i, r := range rows {
		opts = append(opts, huh.NewOption(fmt.Sprintf("Edit row %d: %s", i+1, s.rowLabel(r)), rowActionEdit+strconv.Itoa(i)))
	}
	if len(rows) > 1 {
		for i := range rows {
			opts = append(opts, huh.NewOption(fmt.Sprintf("Remove row %d", i+1), rowActionRemove+strconv.Itoa(i)))
		}
	}

	// An untouched first row is edited before anything else
	s.action = rowActionContinue
	if len(rows) == 1 && s.rowLabel(rows[0]) == "" {
		s.action = rowActionEdit + "0"
	}

	s.menu = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("row_action").
				Title(s.spec.Label).
				Options(opts...).
				Value(&s.action),
		),
	).WithShowHelp(false)
}

func (s *RowsScreen) rowLabel(r session.Row) string {
	var parts []string
	for _, c := range s.spec.Columns {
		if v := r[c.Key].String(); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// openRow starts editing row i.
func (s *RowsScreen) openRow(i int) tea.Cmd {
	rows := s.rows()
	if i < 0 || i >= len(rows) {
		return nil
	}
	s.editing = i
	s.cells = make(map[string]*string, len(s.spec.Columns))

	fields := make([]huh.Field, 0, len(s.spec.Columns))
	for _, col := range s.spec.Columns {
		v := rows[i][col.Key].String()
		s.cells[col.Key] = &v

		title := col.Label
		if col.Required {
			title += " *"
		}
		fields = append(fields, huh.NewInput().
			Key(s.spec.Key+"."+col.Key).
			Title(title).
			Value(s.cells[col.Key]).
			Validate(ValidateField(col)))
	}
	s.helpPanel.SetField(s.spec.Key + "." + s.spec.Columns[0].Key)

	s.edit = huh.NewForm(huh.NewGroup(fields...)).
		WithShowHelp(false).
		WithShowErrors(true)
	return s.edit.Init()
}

// saveRow stores the edited cells in the session.
func (s *RowsScreen) saveRow() error {
	row := make(session.Row, len(s.spec.Columns))
	for _, col := range s.spec.Columns {
		raw := strings.TrimSpace(*s.cells[col.Key])
		if raw == "" {
			continue
		}
		v, err := session.Of(col.Kind, raw)
		if err != nil {
			return fmt.Errorf("%s: %w", col.Label, err)
		}
		row[col.Key] = v
	}
	return s.editor.ReplaceRow(s.spec.Key, s.editing, row)
}

// Init implements tea.Model
func (s *RowsScreen) Init() tea.Cmd {
	if strings.HasPrefix(s.action, rowActionEdit) {
		i, _ := strconv.Atoi(strings.TrimPrefix(s.action, rowActionEdit))
		return s.openRow(i)
	}
	return s.menu.Init()
}

// Update implements tea.Model
func (s *RowsScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			s.cancelled = true
			return s, tea.Quit
		case "esc":
			if s.editing >= 0 {
				// Leave the row unchanged
				s.editing = -1
				s.buildMenu()
				s.action = rowActionContinue
				return s, s.menu.Init()
			}
			s.back = true
			return s, nil
		}
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.helpPanel.SetSize(msg.Width/2, msg.Height/2)
	}

	if s.editing >= 0 {
		return s.updateEdit(msg)
	}
	return s.updateMenu(msg)
}

func (s *RowsScreen) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := s.edit.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.edit = f
	}
	if focused := s.edit.GetFocusedField(); focused != nil {
		s.helpPanel.SetField(focused.GetKey())
	}

	if s.edit.State != huh.StateCompleted {
		return s, cmd
	}

	s.notes = nil
	if err := s.saveRow(); err != nil {
		s.notes = []string{err.Error()}
	}
	s.editing = -1
	s.buildMenu()
	return s, s.menu.Init()
}

func (s *RowsScreen) updateMenu(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := s.menu.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.menu = f
	}

	if s.menu.State != huh.StateCompleted {
		return s, cmd
	}

	s.notes = nil
	switch {
	case s.action == rowActionContinue:
		s.done = true
		return s, nil

	case s.action == rowActionAdd:
		i, err := s.editor.AddRow(s.spec.Key)
		if err != nil {
			s.notes = []string{err.Error()}
			break
		}
		return s, s.openRow(i)

	case strings.HasPrefix(s.action, rowActionEdit):
		i, _ := strconv.Atoi(strings.TrimPrefix(s.action, rowActionEdit))
		return s, s.openRow(i)

	case strings.HasPrefix(s.action, rowActionRemove):
		i, _ := strconv.Atoi(strings.TrimPrefix(s.action, rowActionRemove))
		if _, err := s.editor.RemoveRow(s.spec.Key, i); err != nil {
			s.notes = []string{err.Error()}
		}
	}

	s.buildMenu()
	return s, s.menu.Init()
}

// View implements tea.Model
func (s *RowsScreen) View() string {
	if s.cancelled {
		return "Cancelled.\n"
	}

	parts := []string{
		components.TitleStyle.Render(s.prompt),
		components.StepCounter(s.index, s.total),
		s.renderTable(),
	}
	for _, n := range s.notes {
		parts = append(parts, components.ErrorStyle.Render("• "+n))
	}
	parts = append(parts, "")

	if s.editing >= 0 {
		parts = append(parts,
			components.SubtitleStyle.Render(fmt.Sprintf("Row %d", s.editing+1)),
			s.edit.View(),
			"",
			s.helpPanel.View(),
			"",
			components.HintStyle.Render("Tab: Next field | Enter: Save row | Esc: Discard changes"),
		)
	} else {
		parts = append(parts,
			s.menu.View(),
			"",
			components.HintStyle.Render("Enter: Select | Esc: Back | Ctrl+C: Quit"),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderTable draws the rows as aligned columns.
func (s *RowsScreen) renderTable() string {
	rows := s.rows()
	widths := make([]int, len(s.spec.Columns))
	for i, c := range s.spec.Columns {
		widths[i] = len(c.Label)
		for _, r := range rows {
			widths[i] = max(widths[i], len(r[c.Key].String()))
		}
	}

	var sb strings.Builder
	sb.WriteString("    ")
	for i, c := range s.spec.Columns {
		sb.WriteString(rowHeaderStyle.Render(fmt.Sprintf("%-*s", widths[i]+2, c.Label)))
	}
	for n, r := range rows {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%2d. ", n+1))
		if s.rowLabel(r) == "" {
			sb.WriteString(rowEmptyStyle.Render("(empty)"))
			continue
		}
		for i, c := range s.spec.Columns {
			sb.WriteString(rowCellStyle.Render(fmt.Sprintf("%-*s", widths[i]+2, r[c.Key].String())))
		}
	}
	return sb.String()
}

// SetNotes replaces the messages shown above the table.
func (s *RowsScreen) SetNotes(notes []string) {
	s.notes = notes
}

// Reset returns a completed screen to its menu.
func (s *RowsScreen) Reset() tea.Cmd {
	s.done = false
	s.back = false
	s.editing = -1
	s.buildMenu()
	return s.menu.Init()
}

// Done returns true if the user chose to continue
func (s *RowsScreen) Done() bool {
	return s.done
}

// Back returns true if the user asked for the previous step
func (s *RowsScreen) Back() bool {
	return s.back
}

// Cancelled returns true if the user cancelled
func (s *RowsScreen) Cancelled() bool {
	return s.cancelled
}
