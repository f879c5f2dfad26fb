// Package store reads task feeds: JSON or YAML exports and directories of
// Markdown task files with YAML frontmatter. It never writes tasks back.
package store

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"github.com/amirbrooks/taskcards/internal/task"
)

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid")
	timeNow     = func() time.Time { return time.Now().UTC() }
)

// Format is the encoding of a task feed.
type Format string

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatMarkdown Format = "markdown"
)

// FormatFromPath guesses a feed format from the file extension.
func FormatFromPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, true
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".md", ".markdown":
		return FormatMarkdown, true
	default:
		return "", false
	}
}

// Load reads a feed from a file or a directory of Markdown task files.
func Load(path string) ([]task.Task, error) {
	path = expandHome(path)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return LoadFile(path)
}

func LoadFile(path string) ([]task.Task, error) {
	format, ok := FormatFromPath(path)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported feed extension %q", ErrInvalid, filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()
	tasks, err := Decode(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tasks, nil
}

// LoadDir reads every Markdown task file in dir, in file name order.
func LoadDir(dir string) ([]task.Task, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if f, ok := FormatFromPath(e.Name()); ok && f == FormatMarkdown {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	tasks := make([]task.Task, 0, len(names))
	for _, name := range names {
		t, err := readTaskFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		tasks = append(tasks, *t)
	}
	assignMissingIDs(tasks)
	return tasks, nil
}

// Decode reads a whole feed from r. JSON feeds may be a bare array or an
// object with a "tasks" array; YAML feeds likewise. Tasks without an id get
// a fresh ULID so every card has a key.
func Decode(r io.Reader, format Format) ([]task.Task, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var tasks []task.Task
	switch format {
	case FormatJSON:
		tasks, err = decodeJSON(b)
	case FormatYAML:
		tasks, err = decodeYAML(b)
	case FormatMarkdown:
		var t *task.Task
		t, err = parseTaskFile(b)
		if t != nil {
			tasks = []task.Task{*t}
		}
	default:
		return nil, fmt.Errorf("%w: unknown feed format %q", ErrInvalid, format)
	}
	if err != nil {
		return nil, err
	}
	assignMissingIDs(tasks)
	return tasks, nil
}

type envelope struct {
	Tasks []task.Task `json:"tasks" yaml:"tasks"`
}

func decodeJSON(b []byte) ([]task.Task, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return []task.Task{}, nil
	}
	var tasks []task.Task
	switch b[0] {
	case '[':
		if err := json.Unmarshal(b, &tasks); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(b, &env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		tasks = env.Tasks
	default:
		return nil, fmt.Errorf("%w: feed must be a JSON array or an object with \"tasks\"", ErrInvalid)
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

func decodeYAML(b []byte) ([]task.Task, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(b, &node); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if node.Kind == 0 || len(node.Content) == 0 {
		return []task.Task{}, nil
	}
	root := node.Content[0]
	var tasks []task.Task
	switch root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&tasks); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	case yaml.MappingNode:
		var env envelope
		if err := root.Decode(&env); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		tasks = env.Tasks
	default:
		return nil, fmt.Errorf("%w: feed must be a YAML sequence or a mapping with \"tasks\"", ErrInvalid)
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}

func readTaskFile(path string) (*task.Task, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseTaskFile(b)
}

// parseTaskFile reads a Markdown task: YAML frontmatter between "---" lines,
// then a body that becomes the description when the frontmatter has none.
func parseTaskFile(b []byte) (*task.Task, error) {
	s := strings.ReplaceAll(string(b), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	if !strings.HasPrefix(s, "---\n") {
		return nil, fmt.Errorf("%w: missing frontmatter", ErrInvalid)
	}
	rest := strings.TrimPrefix(s, "---\n")
	var yamlPart, body string
	switch {
	case strings.HasPrefix(rest, "---\n"):
		body = strings.TrimPrefix(rest, "---\n")
	case strings.HasSuffix(rest, "\n---"):
		yamlPart = strings.TrimSuffix(rest, "\n---")
	default:
		parts := strings.SplitN(rest, "\n---\n", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("%w: invalid frontmatter delimiters", ErrInvalid)
		}
		yamlPart, body = parts[0], parts[1]
	}
	var t task.Task
	if err := yaml.Unmarshal([]byte(yamlPart), &t); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if strings.TrimSpace(t.Description) == "" {
		t.Description = strings.TrimSpace(body)
	}
	return &t, nil
}

func assignMissingIDs(tasks []task.Task) {
	for i := range tasks {
		if strings.TrimSpace(tasks[i].ID) == "" {
			tasks[i].ID = newULID()
		}
	}
}

func newULID() string {
	t := ulid.Timestamp(timeNow())
	entropy := ulid.Monotonic(randReader{}, 0)
	id, err := ulid.New(t, entropy)
	if err != nil {
		// fallback
		return fmt.Sprintf("%d", timeNow().UnixNano())
	}
	return strings.ToUpper(id.String())
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) || path == "~" {
		home, _ := os.UserHomeDir()
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// WriteFileAtomic writes data next to path and renames it into place.
func WriteFileAtomic(path string, data []byte, perm fs.FileMode) error {
	path = expandHome(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".tmp-%d", timeNow().UnixNano()))
	if err := os.WriteFile(tmp, data, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Rename is atomic on same filesystem.
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// ExportPath picks a fresh timestamped file name in dir, e.g.
// tasks-20240105-101500.html, adding a counter on collisions.
func ExportPath(dir, base, ext string) (string, error) {
	if strings.TrimSpace(dir) == "" {
		return "", errors.New("export directory is empty")
	}
	dir = expandHome(dir)
	ts := timeNow().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.%s", base, ts, ext))
	for i := 1; ; i++ {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		path = filepath.Join(dir, fmt.Sprintf("%s-%s-%d.%s", base, ts, i, ext))
	}
}
