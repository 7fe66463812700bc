package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"taskmanager/internal/models"
	"taskmanager/internal/store"
)

// ListTasks returns the tasks matching the query filters as JSON.
func (h *Handlers) ListTasks(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.store.Filter(filterFromQuery(r)))
}

// CreateTask validates the form and appends a new task.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	input := taskForm(r)
	if err := input.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	task, err := h.store.Add(ctx, input.Name, input.Description, input.Priority, input.DueDate)
	if err != nil {
		h.respondServerError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, task)
}

// UpdateTask replaces an existing task.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	input := taskForm(r)
	if err := input.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := h.store.UpdateByID(ctx, id, input.Name, input.Description, input.Priority, input.DueDate)
	if err != nil {
		h.respondServerError(w, err)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}

	task, _ := h.store.Get(id)
	h.respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ok, err := h.store.DeleteByID(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServerError(w, err)
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "task not found")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// SortTasks reorders the task list by the form's key and direction.
func (h *Handlers) SortTasks(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid form data")
		return
	}

	key := r.FormValue("key")
	if key == "" {
		key = store.SortByName
	}

	descending := false
	if v := r.FormValue("descending"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid descending flag")
			return
		}
		descending = b
	}

	tasks, err := h.store.Sort(key, descending)
	if err != nil {
		var parseErr *models.DateParseError
		switch {
		case errors.Is(err, store.ErrUnknownSortKey):
			respondError(w, http.StatusBadRequest, "sort key must be 'name', 'priority', or 'due_date'")
		case errors.As(err, &parseErr):
			respondError(w, http.StatusBadRequest, parseErr.Error())
		default:
			h.respondServerError(w, err)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, tasks)
}
