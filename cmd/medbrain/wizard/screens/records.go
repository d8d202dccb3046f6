package screens

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mrsinham/medbrain/cmd/medbrain/wizard/components"
	"github.com/mrsinham/medbrain/internal/client"
	"github.com/mrsinham/medbrain/internal/geo"
	"github.com/mrsinham/medbrain/internal/poll"
	"github.com/mrsinham/medbrain/internal/session"
)

// RecordsMsg carries one refresh of the record list
type RecordsMsg struct {
	Update poll.Update[[]client.Record]
	At     time.Time
}

// RecordDetailMsg carries the full record fetched when one is opened
type RecordDetailMsg struct {
	ID     string
	Record client.Record
	Err    error
}

var (
	recordCursorStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("63")).
				Bold(true)

	recordDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("244"))
)

// RecordsScreen lists prescriptions in the order they are delivered and shows
// one in detail
type RecordsScreen struct {
	records []client.Record
	cursor  int
	detail  bool
	refresh func()
	load    func(id string) (client.Record, error)
	loaded  bool
	lastErr error
	seq     uint64
	updated time.Time
	done    bool
	width   int
	height  int

	// Detail of the opened record
	opened    *client.Record
	loadingID string
	detailErr error
}

// NewRecordsScreen creates a records screen. refresh is called when the user
// asks for a reload and load fetches the full record when one is opened;
// either may be nil.
func NewRecordsScreen(refresh func(), load func(id string) (client.Record, error)) *RecordsScreen {
	return &RecordsScreen{refresh: refresh, load: load}
}

// Init implements tea.Model
func (s *RecordsScreen) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (s *RecordsScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RecordsMsg:
		s.apply(msg)

	case RecordDetailMsg:
		// Only the last opened record counts
		if msg.ID != s.loadingID {
			return s, nil
		}
		s.loadingID = ""
		if msg.Err != nil {
			s.detailErr = msg.Err
			return s, nil
		}
		rec := msg.Record
		s.opened = &rec

	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			s.done = true
			return s, tea.Quit
		case "esc":
			if s.detail {
				s.closeDetail()
				return s, nil
			}
			s.done = true
			return s, tea.Quit
		case "up", "k":
			if !s.detail && s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if !s.detail && s.cursor < len(s.records)-1 {
				s.cursor++
			}
		case "enter":
			if !s.detail && len(s.records) > 0 {
				return s, s.openDetail()
			}
		case "r":
			if s.refresh != nil {
				s.refresh()
			}
		}
	}
	return s, nil
}

// openDetail shows the record under the cursor and fetches its full version.
func (s *RecordsScreen) openDetail() tea.Cmd {
	s.detail = true
	s.opened = nil
	s.detailErr = nil
	if s.load == nil {
		return nil
	}

	id := s.records[s.cursor].ID
	s.loadingID = id
	load := s.load
	return func() tea.Msg {
		rec, err := load(id)
		return RecordDetailMsg{ID: id, Record: rec, Err: err}
	}
}

func (s *RecordsScreen) closeDetail() {
	s.detail = false
	s.opened = nil
	s.loadingID = ""
	s.detailErr = nil
}

// apply takes a refresh. Refreshes older than the one shown are ignored, and a
// failed refresh keeps the list already shown.
func (s *RecordsScreen) apply(msg RecordsMsg) {
	if msg.Update.Seq != 0 && msg.Update.Seq <= s.seq {
		return
	}
	s.seq = msg.Update.Seq
	s.updated = msg.At
	if msg.Update.Err != nil {
		s.lastErr = msg.Update.Err
		return
	}
	s.lastErr = nil
	s.loaded = true

	var selected string
	if s.cursor < len(s.records) {
		selected = s.records[s.cursor].ID
	}

	recs := append([]client.Record(nil), msg.Update.Value...)
	s.records = recs

	s.cursor = 0
	for i, r := range recs {
		if r.ID == selected {
			s.cursor = i
			break
		}
	}
	if len(recs) == 0 {
		s.closeDetail()
	}
}

// View implements tea.Model
func (s *RecordsScreen) View() string {
	parts := []string{components.TitleStyle.Render("Prescriptions")}

	switch {
	case !s.loaded && s.lastErr == nil:
		parts = append(parts, recordDimStyle.Render("Loading..."))
	case s.detail:
		parts = append(parts, s.viewDetail())
	case len(s.records) == 0 && s.loaded:
		parts = append(parts, recordDimStyle.Render("No prescriptions yet."))
	default:
		parts = append(parts, s.viewList())
	}

	if s.lastErr != nil {
		parts = append(parts, "", components.ErrorStyle.Render("Refresh failed: "+s.lastErr.Error()))
	}
	if !s.updated.IsZero() {
		parts = append(parts, recordDimStyle.Render("Updated "+s.updated.Format("15:04:05")))
	}

	hint := "↑/↓: Move | Enter: Open | r: Refresh | q: Quit"
	if s.detail {
		hint = "Esc: Back to list | r: Refresh | q: Quit"
	}
	parts = append(parts, "", components.HintStyle.Render(hint))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (s *RecordsScreen) viewList() string {
	var sb strings.Builder
	for i, r := range s.records {
		line := fmt.Sprintf("%-12s %-24s %s", r.Date, r.DoctorName, r.HospitalName)
		if i == s.cursor {
			sb.WriteString(recordCursorStyle.Render("▸ " + line))
		} else {
			sb.WriteString("  " + line)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (s *RecordsScreen) viewDetail() string {
	rec := s.records[s.cursor]
	if s.opened != nil && s.opened.ID == rec.ID {
		rec = *s.opened
	}

	var sb strings.Builder
	for _, f := range RecordFields(rec) {
		sb.WriteString(components.LabelStyle.Render(f.Label + ": "))
		sb.WriteString(components.ValueStyle.Render(f.Value))
		sb.WriteString("\n")
	}
	switch {
	case s.loadingID == rec.ID:
		sb.WriteString(recordDimStyle.Render("Loading details..."))
		sb.WriteString("\n")
	case s.detailErr != nil:
		sb.WriteString(components.ErrorStyle.Render("Could not load details: " + s.detailErr.Error()))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Selected returns the record under the cursor
func (s *RecordsScreen) Selected() (client.Record, bool) {
	if s.cursor >= len(s.records) {
		return client.Record{}, false
	}
	return s.records[s.cursor], true
}

// Done returns true if the user left
func (s *RecordsScreen) Done() bool {
	return s.done
}

// RecordFields lays r out as labelled lines.
func RecordFields(r client.Record) []Field {
	fields := []Field{
		{"Doctor", r.DoctorName},
		{"Hospital", r.HospitalName},
		{"Date", r.Date},
	}
	for i, m := range r.Medicines {
		fields = append(fields, Field{
			Label: fmt.Sprintf("Medicine %d", i+1),
			Value: strings.Join(nonEmpty(m.Name, m.Dosage, m.Duration), " · "),
		})
	}

	if r.Location != nil {
		c := session.Coordinates{Lat: r.Location.Lat, Lng: r.Location.Lng}
		fields = append(fields,
			Field{"Location", fmt.Sprintf("%.5f, %.5f", c.Lat, c.Lng)},
			Field{"Map", geo.MapURL(c)},
			Field{"Google Maps", geo.GoogleMapsURL(c)},
			Field{"Tile", geo.TileAt(c, geo.DefaultZoom).URL()},
		)
	} else {
		fields = append(fields, Field{"Location", "not captured"})
	}

	doc := "none"
	if r.DocumentUpload != "" {
		doc = "attached"
	}
	fields = append(fields, Field{"Document", doc})

	if !r.CreatedAt.IsZero() {
		fields = append(fields, Field{"Created", r.CreatedAt.Local().Format(time.RFC1123)})
	}
	return append(fields, Field{"ID", r.ID})
}

func nonEmpty(vals ...string) []string {
	out := vals[:0]
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
