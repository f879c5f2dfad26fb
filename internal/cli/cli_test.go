package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const feed = `[
  {"id":"t1","title":"Buy milk","priority":"low","status":"pending","tags":["home"]},
  {"id":"t2","title":"Ship release","priority":"urgent","status":"in_progress","due_date":"2024-03-05","tags":"[\"work\"]"},
  {"id":"t3","title":"Old chore","status":"completed","tags":"[broken"}
]`

type harness struct {
	env    *env
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newHarness(t *testing.T, stdin string, vars map[string]string) *harness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	h := &harness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	h.env = &env{
		ctx:    context.Background(),
		stdin:  strings.NewReader(stdin),
		stdout: h.stdout,
		stderr: h.stderr,
		getenv: func(k string) string { return vars[k] },
	}
	return h
}

func (h *harness) run(args ...string) int {
	return run(h.env, append([]string{"--env-file", filepath.Join(os.TempDir(), "taskcards-missing.env")}, args...))
}

func writeFeed(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRenderJSONFromFile(t *testing.T) {
	h := newHarness(t, "", nil)
	code := h.run("render", "--format", "json", writeFeed(t, "feed.json", feed))
	require.Equal(t, ExitOK, code, h.stderr.String())

	var got struct {
		Placeholder any `json:"placeholder"`
		Cards       []struct {
			Key           string   `json:"key"`
			Struck        bool     `json:"struck"`
			StatusLabel   string   `json:"status_label"`
			PriorityLabel string   `json:"priority_label"`
			Due           string   `json:"due"`
			Tags          []string `json:"tags"`
			Actions       []struct {
				Kind  string `json:"kind"`
				Route string `json:"route"`
			} `json:"actions"`
		} `json:"cards"`
	}
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &got))
	assert.Nil(t, got.Placeholder)
	require.Len(t, got.Cards, 3)
	assert.Equal(t, "t1", got.Cards[0].Key)
	assert.Equal(t, "in progress", got.Cards[1].StatusLabel)
	assert.Equal(t, "3/5/2024", got.Cards[1].Due)
	assert.Equal(t, []string{"work"}, got.Cards[1].Tags)
	assert.Empty(t, got.Cards[2].Tags)
	assert.True(t, got.Cards[2].Struck)
	assert.Len(t, got.Cards[2].Actions, 2)
	assert.Len(t, got.Cards[0].Actions, 3)
}

func TestRenderFiltersAndPlaceholder(t *testing.T) {
	h := newHarness(t, feed, nil)
	code := h.run("render", "--format", "text", "--ascii", "--tag", "work", "-")
	require.Equal(t, ExitOK, code, h.stderr.String())
	out := h.stdout.String()
	assert.Contains(t, out, "Ship release")
	assert.NotContains(t, out, "Buy milk")

	h = newHarness(t, feed, nil)
	code = h.run("render", "--format", "text", "--search", "nothing-matches", "-")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, h.stdout.String(), "No tasks found matching your criteria.")
}

func TestRenderTermASCII(t *testing.T) {
	h := newHarness(t, feed, nil)
	code := h.run("render", "--format", "term", "--width", "70", "--ascii", "-")
	require.Equal(t, ExitOK, code, h.stderr.String())
	out := h.stdout.String()
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "+")
	assert.Contains(t, out, "IN PROGRESS")
}

func TestRenderHTMLToFile(t *testing.T) {
	h := newHarness(t, "", nil)
	out := filepath.Join(t.TempDir(), "cards.html")
	code := h.run("render", "--format", "html", "--out", out, "--title", "Sprint", writeFeed(t, "feed.json", feed))
	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "Wrote HTML to:")

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(b), "<title>Sprint</title>")
	assert.Contains(t, string(b), "/tasks/t2")
}

func TestRenderExportDirQuiet(t *testing.T) {
	h := newHarness(t, feed, nil)
	dir := t.TempDir()
	code := h.run("--quiet", "render", "--format", "json", "--export-dir", dir, "-")
	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Empty(t, h.stdout.String())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "tasks-"))
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".json"))
}

func TestRenderErrors(t *testing.T) {
	h := newHarness(t, "", nil)
	assert.Equal(t, ExitUsage, h.run("render"))

	h = newHarness(t, "", nil)
	assert.Equal(t, ExitNotFound, h.run("render", filepath.Join(t.TempDir(), "nope.json")))

	h = newHarness(t, "{not json", nil)
	assert.Equal(t, ExitUsage, h.run("render", "-"))

	h = newHarness(t, feed, nil)
	assert.Equal(t, ExitUsage, h.run("render", "--format", "pdf", "-"))

	h = newHarness(t, feed, nil)
	assert.Equal(t, ExitUsage, h.run("render", "--status", "done", "-"))

	h = newHarness(t, feed, nil)
	assert.Equal(t, ExitUsage, h.run("render", "--out", "a", "--export-dir", "b", "-"))
}

func TestRenderYAMLFromStdin(t *testing.T) {
	h := newHarness(t, "- id: y1\n  title: From YAML\n  status: paused\n", nil)
	code := h.run("render", "--format", "text", "--input-format", "yaml", "-")
	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "From YAML")
	assert.Contains(t, h.stdout.String(), "paused")
}

func TestChat(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"message":"add milk to groceries"}`, string(b))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"Done."}`))
	}))
	defer srv.Close()

	h := newHarness(t, "", map[string]string{"TASKCARDS_BASE_URL": srv.URL})
	code := h.run("chat", "add", "milk", "to", "groceries")
	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Equal(t, "Done.\n", h.stdout.String())
	assert.Equal(t, 1, hits)

	h = newHarness(t, "", nil)
	code = h.run("--base-url", srv.URL, "chat", "--raw", "add milk to groceries")
	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.JSONEq(t, `{"response":"Done."}`, h.stdout.String())
}

func TestChatUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := newHarness(t, "", nil)
	code := h.run("--base-url", srv.URL, "chat", "hello")
	assert.Equal(t, ExitUpstream, code)
	assert.Contains(t, h.stderr.String(), "500")
	assert.Empty(t, h.stdout.String())

	h = newHarness(t, "", nil)
	assert.Equal(t, ExitUsage, h.run("--base-url", srv.URL, "chat", "  "))
}

func TestConfigPrecedence(t *testing.T) {
	cfgPath := writeFeed(t, "config.yaml", "base_url: http://file.example:9000\nformat: html\nwidth: 60\n")

	h := newHarness(t, "", map[string]string{"TASKCARDS_WIDTH": "90"})
	code := h.run("--config", cfgPath, "--base-url", "http://flag.example", "config", "show", "--json")
	require.Equal(t, ExitOK, code, h.stderr.String())

	var got map[string]any
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &got))
	assert.Equal(t, "http://flag.example", got["base_url"])
	assert.Equal(t, "html", got["format"])
	assert.EqualValues(t, 90, got["width"])
	assert.Equal(t, cfgPath, got["path"])
}

func TestConfigSetAndShow(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	h := newHarness(t, "", map[string]string{"TASKCARDS_FORMAT": "json"})
	code := h.run("--config", cfgPath, "config", "set", "width", "72")
	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "Updated width")

	b, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), "width: 72")
	assert.Contains(t, string(b), "format: term")

	h = newHarness(t, "", nil)
	assert.Equal(t, ExitUsage, h.run("--config", cfgPath, "config", "set", "format", "pdf"))
	h = newHarness(t, "", nil)
	assert.Equal(t, ExitUsage, h.run("--config", cfgPath, "config", "set", "colour", "red"))

	h = newHarness(t, "", nil)
	code = h.run("--config", cfgPath, "config", "show")
	require.Equal(t, ExitOK, code, h.stderr.String())
	assert.Contains(t, h.stdout.String(), "# Config file: "+cfgPath)
	assert.Contains(t, h.stdout.String(), "width: 72")
}

func TestGlobalFlagsAndHelp(t *testing.T) {
	gf, rest, err := extractGlobalFlags([]string{"render", "--ascii", "--config", "c.yaml", "-", "--quiet"})
	require.NoError(t, err)
	assert.True(t, gf.ASCII)
	assert.True(t, gf.Quiet)
	assert.Equal(t, "c.yaml", gf.ConfigPath)
	assert.Equal(t, []string{"render", "-"}, rest)

	_, _, err = extractGlobalFlags([]string{"--config"})
	assert.Error(t, err)

	h := newHarness(t, "", nil)
	assert.Equal(t, ExitOK, h.run("help"))
	assert.Contains(t, h.stdout.String(), "Usage:")

	h = newHarness(t, "", nil)
	assert.Equal(t, ExitUsage, h.run())
	h = newHarness(t, "", nil)
	assert.Equal(t, ExitUsage, h.run("explode"))
	assert.Contains(t, h.stderr.String(), "Unknown command: explode")
}

func TestReorderFlagsKeepsStdinMarker(t *testing.T) {
	got := reorderFlags([]string{"-", "--format", "json", "--raw"}, map[string]bool{"--format": true})
	assert.Equal(t, []string{"--format", "json", "--raw", "-"}, got)
}

func TestBoardRejectsStdin(t *testing.T) {
	h := newHarness(t, feed, nil)
	assert.Equal(t, ExitUsage, h.run("board", "-"))
	h = newHarness(t, "", nil)
	assert.Equal(t, ExitNotFound, h.run("board", filepath.Join(t.TempDir(), "missing.yaml")))
}
