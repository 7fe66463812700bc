package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record keys, in canonical order.
const (
	FieldName        = "name"
	FieldDescription = "description"
	FieldPriority    = "priority"
	FieldDueDate     = "due_date"
)

var recordFields = []string{FieldName, FieldDescription, FieldPriority, FieldDueDate}

// Priorities lists the recognized priority values in rank order.
var Priorities = []string{"high", "medium", "low"}

// DefaultPriority is used when a user leaves the priority blank.
const DefaultPriority = "medium"

// Task represents a single personal task.
//
// ID is assigned when the task is constructed and is never persisted; it
// identifies the task for the lifetime of the process.
type Task struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Priority    string `json:"priority"` // "high", "medium", "low"
	DueDate     string `json:"due_date"` // YYYY-MM-DD
}

// NewTask builds a task from raw field values. No validation is performed.
func NewTask(name, description, priority, dueDate string) Task {
	return Task{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Priority:    priority,
		DueDate:     dueDate,
	}
}

// MissingFieldError is returned when a serialized task lacks a required key.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("task record missing field %q", e.Field)
}

// Record returns the canonical serialized form of the task.
func (t *Task) Record() map[string]string {
	return map[string]string{
		FieldName:        t.Name,
		FieldDescription: t.Description,
		FieldPriority:    t.Priority,
		FieldDueDate:     t.DueDate,
	}
}

// TaskFromRecord rebuilds a task from its serialized form.
func TaskFromRecord(rec map[string]string) (Task, error) {
	for _, field := range recordFields {
		if _, ok := rec[field]; !ok {
			return Task{}, &MissingFieldError{Field: field}
		}
	}
	return NewTask(rec[FieldName], rec[FieldDescription], rec[FieldPriority], rec[FieldDueDate]), nil
}

// Validate checks the fields a user must supply before a task is stored.
func (t *Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return errors.New("task name cannot be empty")
	}

	if !ValidDate(t.DueDate) {
		return errors.New("invalid date format, use YYYY-MM-DD")
	}

	return nil
}

// IsOverdue returns true if the task's due date is a day before now.
// Tasks with unparseable due dates are never overdue.
func (t *Task) IsOverdue(now time.Time) bool {
	due, err := ParseDueDate(t.DueDate)
	if err != nil {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return due.Before(today)
}

// NormalizePriority trims and lower-cases a priority value, substituting
// DefaultPriority for a blank one.
func NormalizePriority(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return DefaultPriority
	}
	return p
}

// PriorityRank returns a numeric value for sorting by priority.
// Lower numbers indicate higher priority; unrecognized values rank last.
func PriorityRank(p string) int {
	switch strings.ToLower(p) {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

// PriorityOrder returns the task's priority rank.
func (t *Task) PriorityOrder() int {
	return PriorityRank(t.Priority)
}
