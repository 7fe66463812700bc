package ui

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"taskmanager/internal/models"
	"taskmanager/internal/store"
)

func setupTestModel(t *testing.T, tasks ...models.Task) (*Model, *store.TaskStore) {
	t.Helper()
	backend, err := store.NewFileBackend(filepath.Join(t.TempDir(), "tasks.json"), store.KindJSON)
	if err != nil {
		t.Fatalf("failed to create test backend: %v", err)
	}
	ctx := context.Background()
	s := store.New(ctx, backend, log.New(io.Discard))
	t.Cleanup(func() { s.Close() })

	for _, task := range tasks {
		if _, err := s.Add(ctx, task.Name, task.Description, task.Priority, task.DueDate); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	m := NewModel(ctx, s)
	m.now = func() time.Time { return time.Date(2025, 4, 30, 12, 0, 0, 0, time.UTC) }
	return m, s
}

func press(m *Model, key string) {
	var msg tea.KeyMsg
	switch key {
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	m.Update(msg)
}

func visibleNames(m *Model) string {
	names := make([]string, len(m.tasks))
	for i, task := range m.tasks {
		names[i] = task.Name
	}
	return strings.Join(names, ",")
}

func sample() []models.Task {
	return []models.Task{
		{Name: "b", Priority: "low", DueDate: "2025-03-01"},
		{Name: "a", Priority: "high", DueDate: "2025-06-01"},
		{Name: "c", Priority: "medium", DueDate: "2025-05-01"},
	}
}

func TestModel_CursorStaysInRange(t *testing.T) {
	m, _ := setupTestModel(t, sample()...)

	press(m, "up")
	if m.cursor != 0 {
		t.Errorf("expected cursor 0, got %d", m.cursor)
	}

	for i := 0; i < 5; i++ {
		press(m, "j")
	}
	if m.cursor != 2 {
		t.Errorf("expected cursor 2, got %d", m.cursor)
	}

	press(m, "k")
	if task, _ := m.Selected(); task.Name != "a" {
		t.Errorf("expected a selected, got %q", task.Name)
	}
}

func TestModel_SortTogglesDirection(t *testing.T) {
	m, _ := setupTestModel(t, sample()...)

	tests := []struct {
		key  string
		want string
	}{
		{"n", "a,b,c"},
		{"n", "c,b,a"},
		{"p", "a,c,b"},
		{"p", "b,c,a"},
		{"d", "b,c,a"},
	}

	for _, tt := range tests {
		press(m, tt.key)
		if got := visibleNames(m); got != tt.want {
			t.Errorf("after %q: expected %s, got %s", tt.key, tt.want, got)
		}
	}
}

func TestModel_SortFailureShowsStatus(t *testing.T) {
	m, _ := setupTestModel(t,
		models.Task{Name: "b", Priority: "low", DueDate: "2025-03-01"},
		models.Task{Name: "a", Priority: "low", DueDate: "later"},
	)

	press(m, "d")

	if !strings.Contains(m.status, "Sort failed") {
		t.Errorf("expected sort failure status, got %q", m.status)
	}
	if got := visibleNames(m); got != "b,a" {
		t.Errorf("expected order to be unchanged, got %s", got)
	}
	if m.sortKey != "" {
		t.Errorf("expected sort key to stay unset, got %q", m.sortKey)
	}
}

func TestModel_FilterCycles(t *testing.T) {
	m, _ := setupTestModel(t, sample()...)

	tests := []struct {
		want string
	}{
		{"a"},     // high
		{"c"},     // medium
		{"b"},     // low
		{"b,a,c"}, // all
	}

	for _, tt := range tests {
		press(m, "f")
		if got := visibleNames(m); got != tt.want {
			t.Errorf("filter %s: expected %s, got %s", filterCycle[m.filter], tt.want, got)
		}
	}
}

func TestModel_DeleteSelectedByID(t *testing.T) {
	m, s := setupTestModel(t,
		models.Task{Name: "same", Priority: "low", DueDate: "2025-03-01"},
		models.Task{Name: "same", Priority: "high", DueDate: "2025-03-01"},
	)
	press(m, "down")
	press(m, "x")

	tasks := s.Tasks()
	if len(tasks) != 1 || tasks[0].Priority != "low" {
		t.Fatalf("expected only the selected task to be deleted, got %+v", tasks)
	}
	if m.cursor != 0 {
		t.Errorf("expected cursor to move back into range, got %d", m.cursor)
	}

	press(m, "x")
	press(m, "x")
	if s.Len() != 0 {
		t.Errorf("expected store to be empty, got %d", s.Len())
	}
}

func TestModel_Quit(t *testing.T) {
	m, _ := setupTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModel_View(t *testing.T) {
	m, _ := setupTestModel(t,
		models.Task{Name: "Old report", Priority: "high", DueDate: "2025-01-01"},
	)

	view := m.View()
	if !strings.Contains(view, "Old report") {
		t.Error("expected task name in view")
	}
	if !strings.Contains(view, "2025-01-01 !") {
		t.Error("expected overdue marker in view")
	}

	empty, _ := setupTestModel(t)
	if !strings.Contains(empty.View(), "No tasks.") {
		t.Error("expected empty message")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("expected short, got %q", got)
	}
	if got := truncate("abcdefghij", 5); got != "abcd…" {
		t.Errorf("expected abcd…, got %q", got)
	}
}
