package store

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"taskmanager/internal/models"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func setupTestStore(t *testing.T) (*TaskStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.json")
	return openTestStore(t, path), path
}

func openTestStore(t *testing.T, path string) *TaskStore {
	t.Helper()
	backend, err := NewFileBackend(path, KindJSON)
	if err != nil {
		t.Fatalf("failed to create backend: %v", err)
	}
	s := New(context.Background(), backend, testLogger())
	t.Cleanup(func() { s.Close() })
	return s
}

func mustAdd(t *testing.T, s *TaskStore, name, priority, due string) models.Task {
	t.Helper()
	task, err := s.Add(context.Background(), name, "", priority, due)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	return task
}

func names(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Name
	}
	return out
}

func assertNames(t *testing.T, got []models.Task, want ...string) {
	t.Helper()
	gotNames := names(got)
	if strings.Join(gotNames, ",") != strings.Join(want, ",") {
		t.Errorf("expected order %v, got %v", want, gotNames)
	}
}

func TestNew_MissingFileStartsEmpty(t *testing.T) {
	s, path := setupTestStore(t)

	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d tasks", s.Len())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected load not to create the file, stat err: %v", err)
	}
}

func TestNew_MalformedFileStartsEmpty(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", `[{"name": "a",`},
		{"empty file", ``},
		{"object instead of array", `{"name": "a", "description": "", "priority": "high", "due_date": "2025-01-01"}`},
		{"record missing field", `[{"name": "a", "description": "", "priority": "high"}]`},
		{"non string value", `[{"name": "a", "description": "", "priority": 1, "due_date": "2025-01-01"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tasks.json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}

			var logs bytes.Buffer
			backend, err := NewFileBackend(path, KindJSON)
			if err != nil {
				t.Fatal(err)
			}
			s := New(context.Background(), backend, log.New(&logs))

			if s.Len() != 0 {
				t.Errorf("expected empty store, got %d tasks", s.Len())
			}
			if !strings.Contains(logs.String(), "malformed") {
				t.Errorf("expected malformed warning, got logs: %q", logs.String())
			}
		})
	}
}

func TestScenario_AddFilterSortDelete(t *testing.T) {
	s, path := setupTestStore(t)
	ctx := context.Background()

	task, err := s.Add(ctx, "Report", "Finish Q1 report", "high", "2025-04-30")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 task, got %d", s.Len())
	}

	got := s.Filter(Filter{Priority: "high"})
	if len(got) != 1 || got[0].ID != task.ID {
		t.Fatalf("expected filter to return the added task, got %+v", got)
	}

	sorted, err := s.Sort(SortByPriority, false)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}
	assertNames(t, sorted, "Report")

	ok, err := s.Delete(ctx, 0)
	if err != nil || !ok {
		t.Fatalf("Delete failed: ok=%v err=%v", ok, err)
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty store, got %d", s.Len())
	}

	reloaded := openTestStore(t, path)
	if reloaded.Len() != 0 {
		t.Errorf("expected reloaded store to be empty, got %d", reloaded.Len())
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s, path := setupTestStore(t)
	ctx := context.Background()

	want := []models.Task{
		{Name: "Report", Description: "Finish Q1 report", Priority: "high", DueDate: "2025-04-30"},
		{Name: "Groceries", Description: "", Priority: "LOW", DueDate: "2025-05-02"},
		{Name: "Dentist", Description: "Line one\nline two", Priority: "urgent", DueDate: "2025-06-01"},
	}
	for _, task := range want {
		if _, err := s.Add(ctx, task.Name, task.Description, task.Priority, task.DueDate); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	got := openTestStore(t, path).Tasks()
	if len(got) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i].Name != want[i].Name || got[i].Description != want[i].Description ||
			got[i].Priority != want[i].Priority || got[i].DueDate != want[i].DueDate {
			t.Errorf("task %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}

func TestFilter(t *testing.T) {
	s, _ := setupTestStore(t)
	mustAdd(t, s, "Write Report", "high", "2025-04-30")
	mustAdd(t, s, "report review", "Medium", "2025-05-01")
	mustAdd(t, s, "Groceries", "low", "2025-04-30")
	mustAdd(t, s, "Call bank", "urgent", "2025-05-03")

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"Write Report", "report review", "Groceries", "Call bank"}},
		{"blank filters", Filter{Name: "  ", Priority: " ", DueDate: ""}, []string{"Write Report", "report review", "Groceries", "Call bank"}},
		{"priority all", Filter{Priority: "all"}, []string{"Write Report", "report review", "Groceries", "Call bank"}},
		{"priority ALL", Filter{Priority: "ALL"}, []string{"Write Report", "report review", "Groceries", "Call bank"}},
		{"name substring ignores case", Filter{Name: "REPORT"}, []string{"Write Report", "report review"}},
		{"priority ignores case", Filter{Priority: "medium"}, []string{"report review"}},
		{"unrecognized priority", Filter{Priority: "Urgent"}, []string{"Call bank"}},
		{"due date exact", Filter{DueDate: "2025-04-30"}, []string{"Write Report", "Groceries"}},
		{"due date is not normalized", Filter{DueDate: "2025-4-30"}, []string{}},
		{"filters combine", Filter{Name: "report", DueDate: "2025-04-30"}, []string{"Write Report"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertNames(t, s.Filter(tt.filter), tt.want...)
		})
	}

	// Filtering never reorders or shrinks the store.
	assertNames(t, s.Tasks(), "Write Report", "report review", "Groceries", "Call bank")
}

func TestSort_ByName(t *testing.T) {
	s, _ := setupTestStore(t)
	mustAdd(t, s, "banana", "low", "2025-01-01")
	mustAdd(t, s, "Apple", "low", "2025-01-01")
	mustAdd(t, s, "cherry", "low", "2025-01-01")

	got, err := s.Sort(SortByName, false)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}
	assertNames(t, got, "Apple", "banana", "cherry")

	got, err = s.Sort(SortByName, true)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}
	assertNames(t, got, "cherry", "banana", "Apple")
	assertNames(t, s.Tasks(), "cherry", "banana", "Apple")
}

func TestSort_ByPriorityIsStable(t *testing.T) {
	s, _ := setupTestStore(t)
	mustAdd(t, s, "low-1", "low", "2025-01-01")
	mustAdd(t, s, "other-1", "someday", "2025-01-01")
	mustAdd(t, s, "high-1", "high", "2025-01-01")
	mustAdd(t, s, "medium-1", "Medium", "2025-01-01")
	mustAdd(t, s, "high-2", "HIGH", "2025-01-01")
	mustAdd(t, s, "other-2", "", "2025-01-01")
	mustAdd(t, s, "low-2", "low", "2025-01-01")

	got, err := s.Sort(SortByPriority, false)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}
	assertNames(t, got, "high-1", "high-2", "medium-1", "low-1", "low-2", "other-1", "other-2")

	got, err = s.Sort(SortByPriority, true)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}
	assertNames(t, got, "other-1", "other-2", "low-1", "low-2", "medium-1", "high-1", "high-2")
}

func TestSort_Idempotent(t *testing.T) {
	for _, key := range []string{SortByName, SortByPriority, SortByDueDate} {
		for _, desc := range []bool{false, true} {
			s, _ := setupTestStore(t)
			mustAdd(t, s, "b", "low", "2025-03-01")
			mustAdd(t, s, "a", "high", "2025-01-01")
			mustAdd(t, s, "c", "low", "2025-03-01")
			mustAdd(t, s, "A", "medium", "2024-12-31")

			once, err := s.Sort(key, desc)
			if err != nil {
				t.Fatalf("Sort(%s, %v) failed: %v", key, desc, err)
			}
			twice, err := s.Sort(key, desc)
			if err != nil {
				t.Fatalf("Sort(%s, %v) failed: %v", key, desc, err)
			}
			if strings.Join(names(once), ",") != strings.Join(names(twice), ",") {
				t.Errorf("Sort(%s, %v) not idempotent: %v then %v", key, desc, names(once), names(twice))
			}
		}
	}
}

func TestSort_ByDueDate(t *testing.T) {
	s, _ := setupTestStore(t)
	mustAdd(t, s, "march", "low", "2025-03-01")
	mustAdd(t, s, "new year", "low", "2025-01-01")
	mustAdd(t, s, "old", "low", "2024-12-31")

	got, err := s.Sort(SortByDueDate, false)
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}
	assertNames(t, got, "old", "new year", "march")
}

func TestSort_ByDueDateMalformed(t *testing.T) {
	s, _ := setupTestStore(t)
	mustAdd(t, s, "b", "low", "2025-03-01")
	mustAdd(t, s, "a", "low", "tomorrow")

	_, err := s.Sort(SortByDueDate, false)
	var parseErr *models.DateParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected DateParseError, got %v", err)
	}
	if parseErr.Value != "tomorrow" {
		t.Errorf("expected offending value %q, got %q", "tomorrow", parseErr.Value)
	}
	assertNames(t, s.Tasks(), "b", "a")
}

func TestSort_UnknownKey(t *testing.T) {
	s, _ := setupTestStore(t)
	mustAdd(t, s, "a", "low", "2025-03-01")

	_, err := s.Sort("description", false)
	if !errors.Is(err, ErrUnknownSortKey) {
		t.Fatalf("expected ErrUnknownSortKey, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	s, path := setupTestStore(t)
	ctx := context.Background()
	original := mustAdd(t, s, "Report", "high", "2025-04-30")

	ok, err := s.Update(ctx, 0, "Report v2", "Now with charts", "low", "2025-05-15")
	if err != nil || !ok {
		t.Fatalf("Update failed: ok=%v err=%v", ok, err)
	}

	got, found := s.Get(original.ID)
	if !found {
		t.Fatal("expected updated task to keep its id")
	}
	if got.Name != "Report v2" || got.Description != "Now with charts" || got.Priority != "low" || got.DueDate != "2025-05-15" {
		t.Errorf("unexpected task after update: %+v", got)
	}

	reloaded := openTestStore(t, path).Tasks()
	if len(reloaded) != 1 || reloaded[0].Name != "Report v2" {
		t.Errorf("expected update to be persisted, got %+v", reloaded)
	}
}

func TestMutations_OutOfBounds(t *testing.T) {
	s, path := setupTestStore(t)
	ctx := context.Background()
	mustAdd(t, s, "only", "low", "2025-01-01")

	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	ok, err := s.Update(ctx, -1, "x", "", "high", "2025-01-01")
	if ok || err != nil {
		t.Errorf("expected Update(-1) to fail silently, got ok=%v err=%v", ok, err)
	}
	ok, err = s.Update(ctx, 1, "x", "", "high", "2025-01-01")
	if ok || err != nil {
		t.Errorf("expected Update(len) to fail silently, got ok=%v err=%v", ok, err)
	}
	ok, err = s.Delete(ctx, s.Len())
	if ok || err != nil {
		t.Errorf("expected Delete(len) to fail silently, got ok=%v err=%v", ok, err)
	}
	ok, err = s.Delete(ctx, -1)
	if ok || err != nil {
		t.Errorf("expected Delete(-1) to fail silently, got ok=%v err=%v", ok, err)
	}

	assertNames(t, s.Tasks(), "only")

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("expected backing file to be untouched")
	}
}

func TestDelete_Middle(t *testing.T) {
	s, path := setupTestStore(t)
	mustAdd(t, s, "a", "low", "2025-01-01")
	mustAdd(t, s, "b", "low", "2025-01-01")
	mustAdd(t, s, "c", "low", "2025-01-01")

	ok, err := s.Delete(context.Background(), 1)
	if err != nil || !ok {
		t.Fatalf("Delete failed: ok=%v err=%v", ok, err)
	}

	assertNames(t, s.Tasks(), "a", "c")
	assertNames(t, openTestStore(t, path).Tasks(), "a", "c")
}

func TestIndexOf_DuplicateNames(t *testing.T) {
	s, _ := setupTestStore(t)
	first := mustAdd(t, s, "Same", "low", "2025-01-01")
	second := mustAdd(t, s, "Same", "high", "2025-01-01")

	if got := s.IndexOf(first.ID); got != 0 {
		t.Errorf("expected first at 0, got %d", got)
	}
	if got := s.IndexOf(second.ID); got != 1 {
		t.Errorf("expected second at 1, got %d", got)
	}

	if _, err := s.Sort(SortByPriority, false); err != nil {
		t.Fatal(err)
	}
	if got := s.IndexOf(second.ID); got != 0 {
		t.Errorf("expected second at 0 after sort, got %d", got)
	}
	if got := s.IndexOf("missing"); got != -1 {
		t.Errorf("expected -1 for unknown id, got %d", got)
	}
}

type failingBackend struct {
	tasks []models.Task
}

func (b *failingBackend) Load(ctx context.Context) ([]models.Task, error) { return b.tasks, nil }
func (b *failingBackend) Save(ctx context.Context, tasks []models.Task) error {
	return errors.New("disk full")
}
func (b *failingBackend) Path() string { return "failing" }
func (b *failingBackend) Close() error { return nil }

func TestMutations_RollBackOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{tasks: []models.Task{models.NewTask("kept", "", "low", "2025-01-01")}}
	s := New(ctx, backend, testLogger())

	if _, err := s.Add(ctx, "new", "", "high", "2025-01-01"); err == nil {
		t.Error("expected Add to report the save failure")
	}
	if ok, err := s.Update(ctx, 0, "changed", "", "high", "2025-01-01"); ok || err == nil {
		t.Errorf("expected Update to report the save failure, got ok=%v err=%v", ok, err)
	}
	if ok, err := s.Delete(ctx, 0); ok || err == nil {
		t.Errorf("expected Delete to report the save failure, got ok=%v err=%v", ok, err)
	}

	assertNames(t, s.Tasks(), "kept")
}

func TestByID_Mutations(t *testing.T) {
	s, path := setupTestStore(t)
	ctx := context.Background()
	first := mustAdd(t, s, "Same", "low", "2025-01-01")
	second := mustAdd(t, s, "Same", "high", "2025-02-01")

	ok, err := s.UpdateByID(ctx, second.ID, "Renamed", "", "medium", "2025-03-01")
	if err != nil || !ok {
		t.Fatalf("UpdateByID failed: ok=%v err=%v", ok, err)
	}
	assertNames(t, s.Tasks(), "Same", "Renamed")

	ok, err = s.DeleteByID(ctx, first.ID)
	if err != nil || !ok {
		t.Fatalf("DeleteByID failed: ok=%v err=%v", ok, err)
	}
	assertNames(t, s.Tasks(), "Renamed")
	assertNames(t, openTestStore(t, path).Tasks(), "Renamed")

	ok, err = s.DeleteByID(ctx, first.ID)
	if ok || err != nil {
		t.Errorf("expected DeleteByID of unknown id to fail silently, got ok=%v err=%v", ok, err)
	}
	ok, err = s.UpdateByID(ctx, "missing", "x", "", "low", "2025-01-01")
	if ok || err != nil {
		t.Errorf("expected UpdateByID of unknown id to fail silently, got ok=%v err=%v", ok, err)
	}
}
