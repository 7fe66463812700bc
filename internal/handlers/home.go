package handlers

import (
	"net/http"
	"time"

	"taskmanager/internal/models"
	"taskmanager/internal/store"
)

// TaskRow is a task prepared for display.
type TaskRow struct {
	models.Task
	Overdue bool
}

// HomeData holds data for the home page template.
type HomeData struct {
	Title      string
	Filter     store.Filter
	Priorities []string
	Tasks      []TaskRow
	Total      int
}

// Home renders the task list, filtered by the query parameters.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	if filter.Priority == "" {
		filter.Priority = store.PriorityAll
	}

	tasks := h.store.Filter(filter)
	total := len(h.store.Filter(store.Filter{}))

	now := time.Now()
	rows := make([]TaskRow, 0, len(tasks))
	for i := range tasks {
		rows = append(rows, TaskRow{Task: tasks[i], Overdue: tasks[i].IsOverdue(now)})
	}

	data := HomeData{
		Title:      "Personal Task Manager",
		Filter:     filter,
		Priorities: append([]string{store.PriorityAll}, models.Priorities...),
		Tasks:      rows,
		Total:      total,
	}

	h.render(w, "home.html", data)
}
