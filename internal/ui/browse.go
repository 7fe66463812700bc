// Package ui provides the terminal task browser.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"taskmanager/internal/models"
	"taskmanager/internal/store"
)

// TaskStore is the subset of store.TaskStore the browser uses.
type TaskStore interface {
	Filter(f store.Filter) []models.Task
	Sort(key string, descending bool) ([]models.Task, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// filterCycle is the order the priority filter steps through.
var filterCycle = append([]string{store.PriorityAll}, models.Priorities...)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	overdueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	helpStyle     = lipgloss.NewStyle().Faint(true)

	priorityStyles = map[string]lipgloss.Style{
		"high":   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		"medium": lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		"low":    lipgloss.NewStyle().Foreground(lipgloss.Color("114")),
	}
)

// Run starts the browser on the terminal.
func Run(ctx context.Context, s TaskStore) error {
	if !IsTTY(os.Stdout) {
		return errors.New("browse requires a TTY")
	}

	program := tea.NewProgram(NewModel(ctx, s), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}

// IsTTY reports whether w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Model is the bubbletea model of the browser.
type Model struct {
	ctx   context.Context
	store TaskStore
	now   func() time.Time

	tasks      []models.Task
	cursor     int
	filter     int // index into filterCycle
	sortKey    string
	descending bool
	status     string
	showHelp   bool
}

// NewModel creates a browser over s.
func NewModel(ctx context.Context, s TaskStore) *Model {
	m := &Model{
		ctx:   ctx,
		store: s,
		now:   time.Now,
	}
	m.refresh()
	return m
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.tasks)-1 {
			m.cursor++
		}
	case "n":
		m.sortBy(store.SortByName)
	case "p":
		m.sortBy(store.SortByPriority)
	case "d":
		m.sortBy(store.SortByDueDate)
	case "f":
		m.filter = (m.filter + 1) % len(filterCycle)
		m.status = ""
		m.refresh()
	case "x":
		m.deleteSelected()
	case "r":
		m.status = ""
		m.refresh()
	case "?", "h":
		m.showHelp = !m.showHelp
	}

	return m, nil
}

// sortBy sorts by key; repeating the current key flips the direction.
func (m *Model) sortBy(key string) {
	descending := false
	if key == m.sortKey {
		descending = !m.descending
	}

	if _, err := m.store.Sort(key, descending); err != nil {
		m.status = "Sort failed: " + err.Error()
		return
	}

	m.sortKey = key
	m.descending = descending
	m.status = ""
	m.refresh()
}

func (m *Model) deleteSelected() {
	task, ok := m.Selected()
	if !ok {
		return
	}

	deleted, err := m.store.DeleteByID(m.ctx, task.ID)
	switch {
	case err != nil:
		m.status = "Delete failed: " + err.Error()
	case !deleted:
		m.status = "Task no longer exists"
	default:
		m.status = fmt.Sprintf("Deleted %q", task.Name)
	}
	m.refresh()
}

// refresh reloads the visible rows and keeps the cursor in range.
func (m *Model) refresh() {
	m.tasks = m.store.Filter(store.Filter{Priority: filterCycle[m.filter]})
	if m.cursor >= len(m.tasks) {
		m.cursor = len(m.tasks) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Selected returns the task under the cursor.
func (m *Model) Selected() (models.Task, bool) {
	if len(m.tasks) == 0 {
		return models.Task{}, false
	}
	return m.tasks[m.cursor], true
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Tasks") + "\n")
	b.WriteString(fmt.Sprintf("Filter: %s  Sort: %s\n\n", filterCycle[m.filter], m.sortLabel()))

	if m.showHelp {
		writeHelp(&b)
		return b.String()
	}

	if len(m.tasks) == 0 {
		b.WriteString("  No tasks.\n")
	} else {
		b.WriteString(headerStyle.Render(formatRow("Name", "Priority", "Due", "Description")) + "\n")
		now := m.now()
		for i := range m.tasks {
			b.WriteString(m.renderRow(i, now) + "\n")
		}
	}

	b.WriteString("\n")
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	b.WriteString(helpStyle.Render("j/k move  n/p/d sort  f filter  x delete  r refresh  ? help  q quit") + "\n")
	return b.String()
}

func (m *Model) renderRow(i int, now time.Time) string {
	task := m.tasks[i]

	due := task.DueDate
	if task.IsOverdue(now) {
		due += " !"
	}
	row := formatRow(task.Name, task.Priority, due, task.Description)

	switch {
	case i == m.cursor:
		return selectedStyle.Render(row)
	case task.IsOverdue(now):
		return overdueStyle.Render(row)
	}
	if style, ok := priorityStyles[models.NormalizePriority(task.Priority)]; ok {
		return style.Render(row)
	}
	return row
}

func (m *Model) sortLabel() string {
	if m.sortKey == "" {
		return "none"
	}
	if m.descending {
		return m.sortKey + " desc"
	}
	return m.sortKey + " asc"
}

func formatRow(name, priority, due, description string) string {
	return fmt.Sprintf("%-24s %-8s %-12s %s",
		truncate(name, 24), truncate(priority, 8), truncate(due, 12), truncate(description, 40))
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

func writeHelp(b *strings.Builder) {
	b.WriteString("Keyboard shortcuts\n\n")
	b.WriteString("  up/k, down/j   move the selection\n")
	b.WriteString("  n, p, d        sort by name, priority, due date (repeat to reverse)\n")
	b.WriteString("  f              cycle the priority filter\n")
	b.WriteString("  x              delete the selected task\n")
	b.WriteString("  r              refresh\n")
	b.WriteString("  ?, h           toggle this help\n")
	b.WriteString("  q, ctrl+c      quit\n")
}
