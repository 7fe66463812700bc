package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"taskmanager/internal/models"
)

// Sort keys.
const (
	SortByName     = "name"
	SortByPriority = "priority"
	SortByDueDate  = "due_date"
)

// PriorityAll disables the priority filter.
const PriorityAll = "all"

// ErrUnknownSortKey is returned by Sort for keys other than name, priority
// and due_date.
var ErrUnknownSortKey = errors.New("unknown sort key")

// Filter selects tasks. Blank fields do not constrain the result.
type Filter struct {
	Name     string // case-insensitive substring of the task name
	Priority string // case-insensitive exact priority, "all" matches any
	DueDate  string // exact due date string
}

// TaskStore owns the ordered task collection and keeps its backend in sync,
// rewriting the whole collection after every mutation.
type TaskStore struct {
	mu      sync.Mutex
	backend Backend
	logger  *log.Logger
	tasks   []models.Task
}

// New creates a store and loads it from backend. Load failures are logged
// and leave the store empty; they are never returned.
func New(ctx context.Context, backend Backend, logger *log.Logger) *TaskStore {
	if logger == nil {
		logger = log.Default()
	}

	s := &TaskStore{backend: backend, logger: logger}
	s.load(ctx)
	return s
}

func (s *TaskStore) load(ctx context.Context) {
	tasks, err := s.backend.Load(ctx)
	switch {
	case err == nil:
		s.tasks = tasks
		s.logger.Info("loaded tasks", "count", len(tasks), "path", s.backend.Path())
	case errors.Is(err, fs.ErrNotExist):
		s.tasks = nil
		s.logger.Warn("task file not found, starting empty", "path", s.backend.Path())
	default:
		s.tasks = nil
		s.logger.Warn("task file malformed, starting empty", "path", s.backend.Path(), "err", err)
	}
}

// Reload discards the in-memory collection and reads the backend again.
func (s *TaskStore) Reload(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.load(ctx)
}

// Save writes the full collection to the backend.
func (s *TaskStore) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(ctx)
}

func (s *TaskStore) save(ctx context.Context) error {
	start := time.Now()
	if err := s.backend.Save(ctx, s.tasks); err != nil {
		return fmt.Errorf("failed to save tasks: %w", err)
	}
	s.logger.Debug("saved tasks", "count", len(s.tasks), "path", s.backend.Path(), "took", time.Since(start))
	return nil
}

// Close releases the backend.
func (s *TaskStore) Close() error {
	return s.backend.Close()
}

// Path returns the location of the backing file.
func (s *TaskStore) Path() string {
	return s.backend.Path()
}

// Tasks returns a copy of the collection in its current order.
func (s *TaskStore) Tasks() []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.snapshot()
}

func (s *TaskStore) snapshot() []models.Task {
	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Len returns the number of tasks.
func (s *TaskStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.tasks)
}

// Get returns the task with the given id.
func (s *TaskStore) Get(id string) (models.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.indexOf(id); i >= 0 {
		return s.tasks[i], true
	}
	return models.Task{}, false
}

// IndexOf returns the current index of the task with the given id, or -1.
func (s *TaskStore) IndexOf(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.indexOf(id)
}

func (s *TaskStore) indexOf(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Filter returns the tasks matching every non-blank field of f, in
// collection order. The store is not modified.
func (s *TaskStore) Filter(f Filter) []models.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := strings.ToLower(f.Name)
	useName := strings.TrimSpace(f.Name) != ""
	usePriority := strings.TrimSpace(f.Priority) != "" && !strings.EqualFold(f.Priority, PriorityAll)
	useDueDate := strings.TrimSpace(f.DueDate) != ""

	out := make([]models.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		if useName && !strings.Contains(strings.ToLower(task.Name), name) {
			continue
		}
		if usePriority && !strings.EqualFold(task.Priority, f.Priority) {
			continue
		}
		if useDueDate && task.DueDate != f.DueDate {
			continue
		}
		out = append(out, task)
	}

	return out
}

// Sort reorders the collection in place by key and returns the new order.
// Equal keys keep their relative order in both directions. Sorting by
// due_date fails with a *models.DateParseError, leaving the order untouched,
// if any due date is malformed.
func (s *TaskStore) Sort(key string, descending bool) ([]models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var less func(i, j int) bool

	switch key {
	case SortByName:
		names := make([]string, len(s.tasks))
		for i := range s.tasks {
			names[i] = strings.ToLower(s.tasks[i].Name)
		}
		less = byKey(names, func(a, b string) bool { return a < b })
	case SortByPriority:
		ranks := make([]int, len(s.tasks))
		for i := range s.tasks {
			ranks[i] = s.tasks[i].PriorityOrder()
		}
		less = byKey(ranks, func(a, b int) bool { return a < b })
	case SortByDueDate:
		dates := make([]time.Time, len(s.tasks))
		for i := range s.tasks {
			due, err := models.ParseDueDate(s.tasks[i].DueDate)
			if err != nil {
				return nil, err
			}
			dates[i] = due
		}
		less = byKey(dates, func(a, b time.Time) bool { return a.Before(b) })
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSortKey, key)
	}

	order := make([]int, len(s.tasks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if descending {
			return less(order[b], order[a])
		}
		return less(order[a], order[b])
	})

	sorted := make([]models.Task, len(s.tasks))
	for i, idx := range order {
		sorted[i] = s.tasks[idx]
	}
	s.tasks = sorted

	return s.snapshot(), nil
}

// byKey compares original indexes through keys precomputed once per task.
func byKey[K any](keys []K, less func(a, b K) bool) func(i, j int) bool {
	return func(i, j int) bool {
		return less(keys[i], keys[j])
	}
}

// Add appends a task built from the raw arguments and persists the
// collection. No validation is performed.
func (s *TaskStore) Add(ctx context.Context, name, description, priority, dueDate string) (models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task := models.NewTask(name, description, priority, dueDate)
	prev := s.tasks
	s.tasks = append(s.snapshot(), task)

	if err := s.save(ctx); err != nil {
		s.tasks = prev
		return models.Task{}, err
	}

	return task, nil
}

// Update replaces the task at index with a newly constructed task that keeps
// the replaced task's ID. It returns false without error if index is out of
// range.
func (s *TaskStore) Update(ctx context.Context, index int, name, description, priority, dueDate string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(ctx, index, name, description, priority, dueDate)
}

// UpdateByID is Update for the task with the given id.
func (s *TaskStore) UpdateByID(ctx context.Context, id, name, description, priority, dueDate string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(ctx, s.indexOf(id), name, description, priority, dueDate)
}

func (s *TaskStore) update(ctx context.Context, index int, name, description, priority, dueDate string) (bool, error) {
	if index < 0 || index >= len(s.tasks) {
		return false, nil
	}

	prev := s.tasks
	s.tasks = s.snapshot()
	task := models.NewTask(name, description, priority, dueDate)
	task.ID = prev[index].ID
	s.tasks[index] = task

	if err := s.save(ctx); err != nil {
		s.tasks = prev
		return false, err
	}

	return true, nil
}

// Delete removes the task at index. It returns false without error if index
// is out of range.
func (s *TaskStore) Delete(ctx context.Context, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remove(ctx, index)
}

// DeleteByID is Delete for the task with the given id.
func (s *TaskStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remove(ctx, s.indexOf(id))
}

func (s *TaskStore) remove(ctx context.Context, index int) (bool, error) {
	if index < 0 || index >= len(s.tasks) {
		return false, nil
	}

	prev := s.tasks
	next := make([]models.Task, 0, len(s.tasks)-1)
	next = append(next, s.tasks[:index]...)
	next = append(next, s.tasks[index+1:]...)
	s.tasks = next

	if err := s.save(ctx); err != nil {
		s.tasks = prev
		return false, err
	}

	return true, nil
}
