package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	yaml "gopkg.in/yaml.v3"

	"taskmanager/internal/models"
)

const taskFileSchemaURL = "taskfile.schema.json"

// filePerm is the mode of newly created task files.
const filePerm = 0o644

const taskFileSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["name", "description", "priority", "due_date"],
		"properties": {
			"name": {"type": "string"},
			"description": {"type": "string"},
			"priority": {"type": "string"},
			"due_date": {"type": "string"}
		}
	}
}`

// FileBackend persists tasks to a single JSON or YAML document holding an
// array of task records.
type FileBackend struct {
	path   string
	format string
	schema *jsonschema.Schema
}

// NewFileBackend creates a file backend for path in the given format
// ("json" or "yaml").
func NewFileBackend(path, format string) (*FileBackend, error) {
	if path == "" {
		return nil, fmt.Errorf("task file path is empty")
	}
	if format != KindJSON && format != KindYAML {
		return nil, fmt.Errorf("unsupported task file format: %s", format)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(taskFileSchemaURL, strings.NewReader(taskFileSchema)); err != nil {
		return nil, fmt.Errorf("failed to add task file schema: %w", err)
	}
	schema, err := compiler.Compile(taskFileSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile task file schema: %w", err)
	}

	return &FileBackend{path: path, format: format, schema: schema}, nil
}

// Path returns the task file path.
func (b *FileBackend) Path() string {
	return b.path
}

// Close is a no-op; files are opened and closed within each call.
func (b *FileBackend) Close() error {
	return nil
}

// Load reads and decodes the task file. A missing file yields an error
// wrapping fs.ErrNotExist; content that is not an array of task records
// yields an error wrapping ErrMalformed.
func (b *FileBackend) Load(ctx context.Context) ([]models.Task, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("read task file: %w", err)
	}

	var doc interface{}
	if err := b.unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrMalformed, b.format, err)
	}
	if err := b.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var records []map[string]string
	if err := b.unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: decode records: %v", ErrMalformed, err)
	}

	tasks := make([]models.Task, 0, len(records))
	for i, rec := range records {
		task, err := models.TaskFromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrMalformed, i, err)
		}
		tasks = append(tasks, task)
	}

	return tasks, nil
}

// Save writes tasks to a temporary file next to the target and renames it
// over the target, so readers never observe a partially written file.
func (b *FileBackend) Save(ctx context.Context, tasks []models.Task) error {
	records := make([]map[string]string, 0, len(tasks))
	for i := range tasks {
		records = append(records, tasks[i].Record())
	}

	data, err := b.marshal(records)
	if err != nil {
		return fmt.Errorf("marshal task file: %w", err)
	}

	return atomicWrite(b.path, data)
}

func (b *FileBackend) unmarshal(data []byte, v interface{}) error {
	if b.format == KindYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

func (b *FileBackend) marshal(records []map[string]string) ([]byte, error) {
	if b.format == KindYAML {
		return yaml.Marshal(records)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// atomicWrite writes data to path using write-then-rename. An existing
// file's permissions are kept; new files get filePerm.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	perm := os.FileMode(filePerm)
	if info, err := os.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := f.Name()

	if err := f.Chmod(perm); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to set file mode: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to sync file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}
