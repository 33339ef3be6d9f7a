// Package templates renders the human-facing markdown documents: the
// delivery report of a run and the implementation checklist handed out
// with a build plan.
//
// Templates are embedded in the binary; Render never touches the disk.
package templates

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed files/*.md.tmpl
var files embed.FS

// Template names accepted by Render.
const (
	Report    = "report.md.tmpl"
	Checklist = "checklist.md.tmpl"
)

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses every embedded template.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(files, "files/*.md.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Render executes the named template with data.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.String(), nil
}

var funcs = template.FuncMap{
	"join": strings.Join,
	"inc":  func(i int) int { return i + 1 },
	// cell escapes a value for a markdown table cell.
	"cell": func(s string) string {
		if s == "" {
			return "-"
		}
		return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
	},
}

// --- Report ---

// ReportData is the input of the Report template.
type ReportData struct {
	RunID       string
	SpecName    string
	State       string
	Reason      string
	Approach    string
	Form        string
	Iterations  int
	GeneratedAt string
	Unresolved  []string
	Decisions   []DecisionRow
	Coverage    []CoverageRow
	Verdict     string
	Bindings    []BindingRow
	Parameters  []ParameterRow
	// Placeholders are listed on their own so they are never mistaken
	// for sourced values.
	Placeholders []ParameterRow
	Checks       []CheckRow
}

type DecisionRow struct {
	Point     string
	Selected  string
	Rejected  string
	Rationale string
	RiskNotes []string
}

type CoverageRow struct {
	Property      string
	Applicability string
	Status        string
	Method        string
	Detail        string
}

type BindingRow struct {
	Property string
	Method   string
}

type ParameterRow struct {
	Key         string
	Status      string
	Value       string
	Unit        string
	Source      string
	Confidence  string
	RetrievedOn string
}

type CheckRow struct {
	Check  string
	Status string
	Detail string
	Items  []string
}

// --- Checklist ---

// ChecklistData is the input of the Checklist template.
type ChecklistData struct {
	SpecName string
	Approach string
	Items    []string
	Files    []ChecklistFile
}

type ChecklistFile struct {
	Path     string
	Purpose  string
	Sections []string
}
