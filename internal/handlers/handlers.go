package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"taskmanager/internal/models"
	"taskmanager/internal/store"
)

// TaskStore is the subset of store.TaskStore the handlers use.
type TaskStore interface {
	Filter(f store.Filter) []models.Task
	Sort(key string, descending bool) ([]models.Task, error)
	Get(id string) (models.Task, bool)
	Add(ctx context.Context, name, description, priority, dueDate string) (models.Task, error)
	UpdateByID(ctx context.Context, id, name, description, priority, dueDate string) (bool, error)
	DeleteByID(ctx context.Context, id string) (bool, error)
}

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	store     TaskStore
	templates *template.Template
	logger    *log.Logger
}

// New creates a new Handlers instance.
func New(s TaskStore, tmpl *template.Template, logger *log.Logger) *Handlers {
	if logger == nil {
		logger = log.Default()
	}
	return &Handlers{
		store:     s,
		templates: tmpl,
		logger:    logger,
	}
}

// Routes registers the page and API routes on r.
func (h *Handlers) Routes(r chi.Router) {
	r.Get("/", h.Home)

	r.Route("/api/tasks", func(r chi.Router) {
		r.Get("/", h.ListTasks)
		r.Post("/", h.CreateTask)
		r.Post("/sort", h.SortTasks)
		r.Put("/{id}", h.UpdateTask)
		r.Delete("/{id}", h.DeleteTask)
	})
}

// taskForm reads the task fields from a parsed form. Priority is normalized.
func taskForm(r *http.Request) models.Task {
	return models.Task{
		Name:        strings.TrimSpace(r.FormValue("name")),
		Description: r.FormValue("description"),
		Priority:    models.NormalizePriority(r.FormValue("priority")),
		DueDate:     strings.TrimSpace(r.FormValue("due_date")),
	}
}

// filterFromQuery builds a store filter from URL query parameters.
func filterFromQuery(r *http.Request) store.Filter {
	q := r.URL.Query()
	return store.Filter{
		Name:     q.Get("name"),
		Priority: q.Get("priority"),
		DueDate:  q.Get("due_date"),
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, code int, message string) {
	w.WriteHeader(code)
	w.Write([]byte(message))
}

func (h *Handlers) respondServerError(w http.ResponseWriter, err error) {
	h.logger.Error("internal server error", "err", err)
	respondError(w, http.StatusInternalServerError, "internal server error")
}

func (h *Handlers) respondJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "err", err)
	}
}

func (h *Handlers) render(w http.ResponseWriter, name string, data interface{}) {
	if h.templates == nil {
		// For testing without templates
		w.WriteHeader(http.StatusOK)
		return
	}
	if err := h.templates.ExecuteTemplate(w, name, data); err != nil {
		h.respondServerError(w, err)
	}
}
