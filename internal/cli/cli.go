package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amirbrooks/taskcards/internal/config"
	"github.com/amirbrooks/taskcards/internal/gateway"
	"github.com/amirbrooks/taskcards/internal/logger"
	"github.com/amirbrooks/taskcards/internal/render"
	"github.com/amirbrooks/taskcards/internal/store"
	"github.com/amirbrooks/taskcards/internal/task"
	"github.com/amirbrooks/taskcards/internal/tui"
)

// Exit codes
const (
	ExitOK       = 0
	ExitUsage    = 2
	ExitNotFound = 3
	ExitUpstream = 5
	ExitInternal = 10
)

const defaultChatTimeout = 30 * time.Second

type GlobalFlags struct {
	ConfigPath string
	EnvFile    string
	BaseURL    string
	LogLevel   string
	LogJSON    bool
	ASCII      bool
	Quiet      bool
}

// env is the process surface a command may touch.
type env struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string
	log    logger.Logger
}

func reorderFlags(args []string, takesValue map[string]bool) []string {
	if len(args) == 0 {
		return args
	}
	var flags []string
	var rest []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			if i+1 < len(args) {
				rest = append(rest, args[i+1:]...)
			}
			break
		}
		if strings.HasPrefix(a, "-") && a != "-" {
			flags = append(flags, a)
			if takesValue[a] && !strings.Contains(a, "=") {
				if i+1 < len(args) {
					flags = append(flags, args[i+1])
					i++
				}
			}
			continue
		}
		rest = append(rest, a)
	}
	return append(flags, rest...)
}

func Run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(&env{
		ctx:    ctx,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		getenv: os.Getenv,
	}, args)
}

func run(e *env, args []string) int {
	gf, rest, err := extractGlobalFlags(args)
	if err != nil {
		fmt.Fprintln(e.stderr, err.Error())
		return ExitUsage
	}

	if len(rest) == 0 {
		printHelp(e.stderr)
		return ExitUsage
	}

	cmd := rest[0]
	cmdArgs := rest[1:]

	switch cmd {
	case "help", "--help", "-h":
		printHelp(e.stdout)
		return ExitOK
	case "config", "cfg":
		return cmdConfig(e, gf, cmdArgs)
	}

	cfg, err := loadConfig(e, gf)
	if err != nil {
		fmt.Fprintln(e.stderr, "taskcards:", err)
		return ExitUsage
	}
	e.log = logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Output: e.stderr,
		JSON:   cfg.LogJSON,
		Prefix: "taskcards",
	})
	e.log.Debug("config loaded", "path", cfg.Path, "base_url", cfg.BaseURL, "format", cfg.Format)

	switch cmd {
	case "render", "show":
		return cmdRender(e, gf, cfg, cmdArgs)
	case "board":
		return cmdBoard(e, gf, cfg, cmdArgs)
	case "chat":
		return cmdChat(e, gf, cfg, cmdArgs)
	default:
		fmt.Fprintf(e.stderr, "Unknown command: %s\n\n", cmd)
		printHelp(e.stderr)
		return ExitUsage
	}
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `taskcards: task cards in the terminal, in HTML, or as JSON, plus chat

Usage:
  taskcards [global flags] <command> [args]

Global flags:
  --config <path>    Config file (default: ~/.taskcards/config.yaml)
  --env-file <path>  Env file loaded before TASKCARDS_* overrides (default: .env)
  --base-url <url>   Chat gateway base URL (default: http://localhost:8000)
  --log-level <lvl>  debug|info|warn|error
  --log-json         JSON logs on stderr
  --ascii            ASCII borders and glyphs
  --quiet

Commands:
  render [--format term|html|json|text] [--out <file>|--export-dir <dir>] [--width N]
         [--status <s>] [--priority <p>] [--category <c>] [--tag <t>] [--search <q>]
         [--input-format json|yaml] <file|dir|->
  board [filter flags] [--input-format json|yaml] <file|dir|->
  chat [--timeout 30s] [--raw] "<message>"
  config show [--json]
  config set <key> <value>

Feeds:
  JSON or YAML arrays of tasks (or {"tasks": [...]}), or a directory of
  Markdown task files with YAML frontmatter. Use - to read stdin.

Priorities: low|medium|high|urgent
Statuses:   pending|in_progress|completed|cancelled|paused
`)
}

func extractGlobalFlags(args []string) (GlobalFlags, []string, error) {
	// Allow flags anywhere by scanning and stripping known globals.
	gf := GlobalFlags{EnvFile: ".env"}

	out := make([]string, 0, len(args))
	skip := 0

	value := func(i int, name string) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", name)
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); i++ {
		if skip > 0 {
			skip--
			continue
		}
		a := args[i]
		var err error
		switch a {
		case "--config":
			gf.ConfigPath, err = value(i, a)
			skip = 1
		case "--env-file":
			gf.EnvFile, err = value(i, a)
			skip = 1
		case "--base-url":
			gf.BaseURL, err = value(i, a)
			skip = 1
		case "--log-level":
			gf.LogLevel, err = value(i, a)
			skip = 1
		case "--log-json":
			gf.LogJSON = true
		case "--ascii":
			gf.ASCII = true
		case "--quiet":
			gf.Quiet = true
		default:
			out = append(out, a)
		}
		if err != nil {
			return gf, nil, err
		}
	}
	return gf, out, nil
}

// loadConfig resolves settings; global flags win over file and environment.
func loadConfig(e *env, gf GlobalFlags) (config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		Path:    gf.ConfigPath,
		EnvFile: gf.EnvFile,
		Getenv:  e.getenv,
	})
	if err != nil {
		return cfg, err
	}
	if gf.BaseURL != "" {
		cfg.BaseURL = gf.BaseURL
	}
	if gf.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(gf.LogLevel)
	}
	if gf.LogJSON {
		cfg.LogJSON = true
	}
	if gf.ASCII {
		cfg.ASCII = true
	}
	return cfg, cfg.Validate()
}

func exitCode(err error) int {
	var se *gateway.StatusError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, store.ErrInvalid):
		return ExitUsage
	case errors.As(err, &se), errors.Is(err, gateway.ErrMalformedResponse):
		return ExitUpstream
	default:
		return ExitInternal
	}
}

type feedFlags struct {
	filter      store.Filter
	inputFormat string
}

func (ff *feedFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&ff.filter.Status, "status", "", "Status (pending|in_progress|completed|cancelled|paused)")
	fs.StringVar(&ff.filter.Priority, "priority", "", "Priority (low|medium|high|urgent)")
	fs.StringVar(&ff.filter.Category, "category", "", "Category (exact)")
	fs.StringVar(&ff.filter.Tag, "tag", "", "Filter by tag (single)")
	fs.StringVar(&ff.filter.Search, "search", "", "Search query (title/description)")
	fs.StringVar(&ff.inputFormat, "input-format", "json", "Feed format when reading stdin (json|yaml)")
}

var feedValueFlags = map[string]bool{
	"--status":       true,
	"--priority":     true,
	"--category":     true,
	"--tag":          true,
	"--search":       true,
	"--input-format": true,
}

func (ff *feedFlags) load(e *env, src string) ([]task.Task, error) {
	var (
		tasks []task.Task
		err   error
	)
	if src == "-" {
		format := store.Format(strings.ToLower(strings.TrimSpace(ff.inputFormat)))
		if format != store.FormatJSON && format != store.FormatYAML {
			return nil, fmt.Errorf("%w: --input-format must be json or yaml", store.ErrInvalid)
		}
		tasks, err = store.Decode(e.stdin, format)
	} else {
		tasks, err = store.Load(src)
	}
	if err != nil {
		return nil, err
	}
	if ff.filter.Status != "" {
		if _, ok := task.ParseStatus(ff.filter.Status); !ok {
			return nil, fmt.Errorf("%w: unknown status %q", store.ErrInvalid, ff.filter.Status)
		}
	}
	if ff.filter.Priority != "" {
		if _, ok := task.ParsePriority(ff.filter.Priority); !ok {
			return nil, fmt.Errorf("%w: unknown priority %q", store.ErrInvalid, ff.filter.Priority)
		}
	}
	e.log.Debug("feed loaded", "source", src, "tasks", len(tasks))
	return ff.filter.Apply(tasks), nil
}

func feedSource(fs *flag.FlagSet, name string, w io.Writer) (string, bool) {
	if fs.NArg() != 1 {
		fmt.Fprintf(w, "Usage: taskcards %s [flags] <file|dir|->\n", name)
		return "", false
	}
	return fs.Arg(0), true
}

func cmdRender(e *env, gf GlobalFlags, cfg config.Config, args []string) int {
	valueFlags := map[string]bool{
		"--format":     true,
		"--out":        true,
		"--export-dir": true,
		"--width":      true,
		"--title":      true,
	}
	for k, v := range feedValueFlags {
		valueFlags[k] = v
	}
	args = reorderFlags(args, valueFlags)
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	format := fs.String("format", cfg.Format, "Output format (term|html|json|text)")
	out := fs.String("out", "", "Write output to this file instead of stdout")
	exportDir := fs.String("export-dir", "", "Write output to a timestamped file in this directory")
	width := fs.Int("width", cfg.Width, "Terminal width in columns")
	title := fs.String("title", "Tasks", "HTML page title")
	var ff feedFlags
	ff.register(fs)
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	src, ok := feedSource(fs, "render", e.stderr)
	if !ok {
		return ExitUsage
	}
	if *out != "" && *exportDir != "" {
		fmt.Fprintln(e.stderr, "render: --out and --export-dir are mutually exclusive")
		return ExitUsage
	}
	if *width < 0 {
		fmt.Fprintln(e.stderr, "render: --width must be >= 0")
		return ExitUsage
	}

	tasks, err := ff.load(e, src)
	if err != nil {
		fmt.Fprintln(e.stderr, "render:", err)
		return exitCode(err)
	}
	list := render.RenderListWith(tasks, render.Callbacks{}, render.Options{DateLayout: cfg.DateLayout})

	var data []byte
	ext := "txt"
	switch strings.ToLower(*format) {
	case config.FormatTerm:
		w := e.stdout
		if *out != "" || *exportDir != "" {
			w = io.Discard
		}
		term := render.NewTerminal(w, *width)
		term.ASCII = cfg.ASCII
		data = []byte(term.Render(list) + "\n")
	case config.FormatText:
		data = []byte(render.Text{ASCII: cfg.ASCII}.Render(list) + "\n")
	case config.FormatJSON:
		data, err = json.MarshalIndent(list, "", "  ")
		data = append(data, '\n')
		ext = "json"
	case config.FormatHTML:
		var h *render.HTML
		h, err = render.NewHTML()
		if err == nil {
			data, err = h.PageBytes(*title, list)
		}
		ext = "html"
	default:
		fmt.Fprintf(e.stderr, "render: unknown format %q (term|html|json|text)\n", *format)
		return ExitUsage
	}
	if err != nil {
		fmt.Fprintln(e.stderr, "render:", err)
		return ExitInternal
	}

	path := *out
	if *exportDir != "" {
		path, err = store.ExportPath(*exportDir, "tasks", ext)
		if err != nil {
			fmt.Fprintln(e.stderr, "render:", err)
			return ExitInternal
		}
	}
	if path == "" {
		if _, err := e.stdout.Write(data); err != nil {
			return ExitInternal
		}
		return ExitOK
	}
	if err := store.WriteFileAtomic(path, data, 0o644); err != nil {
		fmt.Fprintln(e.stderr, "render:", err)
		return ExitInternal
	}
	e.log.Debug("render written", "path", path, "cards", len(list.Cards))
	if !gf.Quiet {
		fmt.Fprintln(e.stdout, "Wrote", strings.ToUpper(ext), "to:", path)
	}
	return ExitOK
}

func cmdBoard(e *env, gf GlobalFlags, cfg config.Config, args []string) int {
	valueFlags := map[string]bool{"--width": true}
	for k, v := range feedValueFlags {
		valueFlags[k] = v
	}
	args = reorderFlags(args, valueFlags)
	fs := flag.NewFlagSet("board", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	width := fs.Int("width", cfg.Width, "Initial width in columns")
	var ff feedFlags
	ff.register(fs)
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	src, ok := feedSource(fs, "board", e.stderr)
	if !ok {
		return ExitUsage
	}
	if src == "-" {
		fmt.Fprintln(e.stderr, "board: reading the feed from stdin is not supported; the board needs the terminal")
		return ExitUsage
	}
	tasks, err := ff.load(e, src)
	if err != nil {
		fmt.Fprintln(e.stderr, "board:", err)
		return exitCode(err)
	}

	opts := tui.Options{
		DateLayout: cfg.DateLayout,
		Logger:     e.log,
	}
	client, err := gateway.New(cfg.BaseURL, gateway.WithLogger(e.log))
	if err != nil {
		e.log.Warn("chat disabled", "err", err)
	} else {
		opts.Client = client
	}
	term := render.NewTerminal(nil, *width)
	term.ASCII = cfg.ASCII
	opts.Terminal = term

	if err := tui.Run(e.ctx, tasks, opts); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(e.stderr, "board:", err)
		return ExitInternal
	}
	return ExitOK
}

func cmdChat(e *env, gf GlobalFlags, cfg config.Config, args []string) int {
	args = reorderFlags(args, map[string]bool{
		"--timeout": true,
		"--raw":     false,
	})
	fs := flag.NewFlagSet("chat", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	timeout := fs.Duration("timeout", defaultChatTimeout, "Request timeout")
	raw := fs.Bool("raw", false, "Print the response body as returned")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	message := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if message == "" {
		fmt.Fprintln(e.stderr, "Usage: taskcards chat \"<message>\"")
		return ExitUsage
	}

	client, err := gateway.New(cfg.BaseURL, gateway.WithLogger(e.log), gateway.WithDebug(cfg.LogLevel == "debug"))
	if err != nil {
		fmt.Fprintln(e.stderr, "chat:", err)
		return ExitUsage
	}
	ctx := e.ctx
	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}
	payload, err := client.SendChatMessage(ctx, message)
	if err != nil {
		e.log.Error("chat failed", "base_url", client.BaseURL(), "err", err)
		fmt.Fprintln(e.stderr, "chat:", err)
		return ExitUpstream
	}
	if *raw {
		fmt.Fprintln(e.stdout, string(payload.Raw))
		return ExitOK
	}
	fmt.Fprintln(e.stdout, payload.Reply())
	return ExitOK
}

func cmdConfig(e *env, gf GlobalFlags, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(e.stderr, "Usage: taskcards config <show|set> ...")
		return ExitUsage
	}
	switch args[0] {
	case "show":
		return cmdConfigShow(e, gf, args[1:])
	case "set":
		return cmdConfigSet(e, gf, args[1:])
	default:
		fmt.Fprintln(e.stderr, "Usage: taskcards config <show|set> ...")
		return ExitUsage
	}
}

func cmdConfigShow(e *env, gf GlobalFlags, args []string) int {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	fs.SetOutput(e.stderr)
	asJSON := fs.Bool("json", false, "Print as JSON")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}
	cfg, err := loadConfig(e, gf)
	if err != nil {
		fmt.Fprintln(e.stderr, "config show:", err)
		return ExitUsage
	}

	if *asJSON {
		enc := json.NewEncoder(e.stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(cfg)
		return ExitOK
	}

	if cfg.Path != "" {
		fmt.Fprintln(e.stdout, "# Config file:", cfg.Path)
	} else {
		path := gf.ConfigPath
		if path == "" {
			path = config.DefaultPath()
		}
		fmt.Fprintln(e.stdout, "# Config file:", path, "(not found; defaults shown)")
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintln(e.stderr, "config show:", err)
		return ExitInternal
	}
	_, _ = e.stdout.Write(b)
	return ExitOK
}

func cmdConfigSet(e *env, gf GlobalFlags, args []string) int {
	if len(args) < 2 {
		fmt.Fprintln(e.stderr, "Usage: taskcards config set <key> <value>")
		return ExitUsage
	}
	key := strings.ToLower(strings.TrimSpace(args[0]))
	value := strings.TrimSpace(strings.Join(args[1:], " "))

	path := gf.ConfigPath
	if path == "" {
		path = config.DefaultPath()
	}
	// Only the file's own settings are rewritten, never env overrides.
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		cfg, err = config.Load(config.LoadOptions{
			Path:   path,
			Getenv: func(string) string { return "" },
		})
		if err != nil {
			fmt.Fprintln(e.stderr, "config set:", err)
			return ExitUsage
		}
	}
	if err := cfg.Set(key, value); err != nil {
		fmt.Fprintln(e.stderr, "config set:", err)
		return ExitUsage
	}
	if err := config.Save(path, cfg); err != nil {
		fmt.Fprintln(e.stderr, "config set:", err)
		return ExitInternal
	}
	if !gf.Quiet {
		fmt.Fprintf(e.stdout, "Updated %s\n", key)
	}
	return ExitOK
}
