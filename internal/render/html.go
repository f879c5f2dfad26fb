package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"

	"github.com/Masterminds/sprig/v3"

	"github.com/amirbrooks/taskcards/internal/task"
)

// badgeClasses maps style tokens onto the utility classes of the web client.
var badgeClasses = map[task.StyleToken]string{
	task.TokenGreen:  "bg-green-100 text-green-800",
	task.TokenBlue:   "bg-blue-100 text-blue-800",
	task.TokenOrange: "bg-orange-100 text-orange-800",
	task.TokenRed:    "bg-red-100 text-red-800",
	task.TokenYellow: "bg-yellow-100 text-yellow-800",
	task.TokenPurple: "bg-purple-100 text-purple-800",
	task.TokenGray:   "bg-gray-100 text-gray-800",
}

var accentClasses = map[task.StyleToken]string{
	task.TokenRed:    "bg-red-500",
	task.TokenOrange: "bg-orange-400",
	task.TokenBlue:   "bg-blue-400",
	task.TokenGreen:  "bg-green-400",
}

func badgeClass(t task.StyleToken) string {
	if c, ok := badgeClasses[t]; ok {
		return c
	}
	return badgeClasses[task.TokenNeutral]
}

func accentClass(t task.StyleToken) string {
	if c, ok := accentClasses[t]; ok {
		return c
	}
	return accentClasses[task.TokenGreen]
}

const listTemplate = `{{- define "placeholder" -}}
<div class="text-center py-20 bg-white rounded-xl border border-dashed border-gray-300">
  <p class="text-gray-500 text-lg">{{ .Headline }}</p>
  <p class="text-gray-400 text-sm mt-2">{{ .Hint }}</p>
</div>
{{- end -}}
{{- define "card" -}}
<div class="task-card group bg-white rounded-xl border border-gray-200 shadow-sm flex flex-col overflow-hidden relative" data-key="{{ .Key }}">
  <div class="h-1 w-full {{ accentClass .Accent }}"></div>
  <div class="p-5 flex-grow">
    <div class="flex justify-between items-start mb-3">
      <span class="px-2.5 py-0.5 rounded-full text-xs font-medium uppercase tracking-wide {{ badgeClass .Priority }}">{{ .PriorityLabel }}</span>
      {{- if .Due }}
      <span class="text-xs text-gray-500 font-medium bg-gray-50 px-2 py-1 rounded">Due {{ .Due }}</span>
      {{- end }}
    </div>
    <h3 class="text-lg font-bold text-gray-900 mb-2 truncate{{ if .Struck }} line-through text-gray-500{{ end }}">{{ .Title }}</h3>
    <p class="text-gray-600 text-sm mb-4 line-clamp-3 h-14">{{ .Description }}</p>
    <div class="flex flex-wrap gap-2 mb-4">
      {{- if .Category }}
      <span class="text-xs bg-indigo-50 text-indigo-700 px-2 py-1 rounded border border-indigo-100">{{ .Category }}</span>
      {{- end }}
      {{- range .Tags }}
      <span class="text-xs bg-gray-100 text-gray-600 px-2 py-1 rounded border border-gray-200">#{{ . }}</span>
      {{- end }}
    </div>
  </div>
  <div class="px-5 py-3 border-t border-gray-100 flex justify-between items-center bg-white/50">
    <span class="px-2.5 py-0.5 rounded-full text-xs font-medium uppercase tracking-wide {{ badgeClass .Status }}">{{ .StatusLabel }}</span>
    <div class="flex gap-2">
      {{- $key := .Key }}
      {{- range .Actions }}
      {{- if eq (print .Kind) "view" }}
      <a href="{{ .Route }}" class="task-action" data-action="view" title="{{ .Label }}">{{ .Label }}</a>
      {{- else }}
      <button type="button" class="task-action" data-action="{{ .Kind }}" data-id="{{ $key }}" title="{{ .Label }}">{{ .Label }}</button>
      {{- end }}
      {{- end }}
    </div>
  </div>
</div>
{{- end -}}
{{- define "list" -}}
{{- if .Placeholder }}{{ template "placeholder" .Placeholder }}
{{- else -}}
<div class="grid grid-cols-1 md:grid-cols-2 lg:grid-cols-3 gap-6" data-count="{{ len .Cards }}">
{{- range .Cards }}
{{ template "card" . }}
{{- end }}
</div>
{{- end }}
{{- end -}}
{{- define "page" -}}
<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{ .Title | default "Tasks" }}</title>
</head>
<body>
<main class="container mx-auto p-6">
{{ template "list" .List }}
</main>
</body>
</html>
{{- end -}}`

// HTML renders cards into markup matching the web client.
type HTML struct {
	tmpl *template.Template
}

func NewHTML() (*HTML, error) {
	funcs := sprig.FuncMap()
	funcs["badgeClass"] = badgeClass
	funcs["accentClass"] = accentClass
	tmpl, err := template.New("taskcards").Funcs(funcs).Parse(listTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse card template: %w", err)
	}
	return &HTML{tmpl: tmpl}, nil
}

// Fragment writes only the list markup.
func (h *HTML) Fragment(w io.Writer, l List) error {
	return h.tmpl.ExecuteTemplate(w, "list", l)
}

// Page writes a standalone HTML document around the list.
func (h *HTML) Page(w io.Writer, title string, l List) error {
	return h.tmpl.ExecuteTemplate(w, "page", struct {
		Title string
		List  List
	}{Title: title, List: l})
}

func (h *HTML) PageBytes(title string, l List) ([]byte, error) {
	var buf bytes.Buffer
	if err := h.Page(&buf, title, l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
