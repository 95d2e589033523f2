package report

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML, FormatHTML:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unknown format %q (want text, json, yaml or html)", s)
}

// File is the report section for one scanned document.
type File struct {
	Path        string       `json:"path" yaml:"path"`
	Language    string       `json:"language" yaml:"language"`
	Diagnostics []Diagnostic `json:"diagnostics" yaml:"diagnostics"`
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// Options tune text output.
type Options struct {
	// Color enables ANSI styling. Callers check the terminal themselves.
	Color bool
	// Grouped prints one bullet list per line instead of one row per finding.
	Grouped bool
}

// Render writes files in the given format.
func Render(w io.Writer, format Format, files []File, opts Options) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(document{Summary: summaryOf(files), Files: files})
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(document{Summary: summaryOf(files), Files: files}); err != nil {
			return err
		}
		return enc.Close()
	case FormatHTML:
		return htmlReport.Execute(w, document{Summary: summaryOf(files), Files: files})
	case FormatText, "":
		return renderText(w, files, opts)
	}
	return fmt.Errorf("unknown format %q", format)
}

type document struct {
	Summary string `json:"summary" yaml:"summary"`
	Files   []File `json:"files" yaml:"files"`
}

func summaryOf(files []File) string {
	var fs []baseline.Finding
	for _, f := range files {
		for _, d := range f.Diagnostics {
			fs = append(fs, baseline.Finding{Status: d.Status})
		}
	}
	return Summary(fs)
}

var (
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	styleInfo    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	styleHint    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	stylePath    = lipgloss.NewStyle().Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

func paint(on bool, st lipgloss.Style, s string) string {
	if !on {
		return s
	}
	return st.Render(s)
}

func severityStyle(s Severity) lipgloss.Style {
	switch s {
	case SeverityWarning:
		return styleWarning
	case SeverityInformation:
		return styleInfo
	}
	return styleHint
}

// renderText prints positions one-based, the way compilers and editors
// expect them.
func renderText(w io.Writer, files []File, opts Options) error {
	for _, f := range files {
		if f.Error != "" {
			if _, err := fmt.Fprintf(w, "%s: %s\n", paint(opts.Color, stylePath, f.Path), paint(opts.Color, styleError, f.Error)); err != nil {
				return err
			}
			continue
		}
		if opts.Grouped {
			if err := renderGrouped(w, f, opts); err != nil {
				return err
			}
			continue
		}
		for _, d := range f.Diagnostics {
			_, err := fmt.Fprintf(w, "%s:%d:%d: %s: %s [%s]\n",
				paint(opts.Color, stylePath, f.Path),
				d.Range.Start.Line+1, d.Range.Start.Char+1,
				paint(opts.Color, severityStyle(d.Severity), string(d.Severity)),
				d.Message, d.Key)
			if err != nil {
				return err
			}
		}
	}
	_, err := fmt.Fprintln(w, summaryOf(files))
	return err
}

func renderGrouped(w io.Writer, f File, opts Options) error {
	fs := make([]baseline.Finding, 0, len(f.Diagnostics))
	for _, d := range f.Diagnostics {
		fs = append(fs, baseline.Finding{Range: d.Range, Status: d.Status, Label: d.Label, Key: d.Key})
	}
	for _, g := range GroupByLine(fs) {
		if _, err := fmt.Fprintf(w, "%s:%d\n", paint(opts.Color, stylePath, f.Path), g.Line+1); err != nil {
			return err
		}
		for _, b := range g.Bullets {
			if _, err := fmt.Fprintf(w, "  %s\n", b); err != nil {
				return err
			}
		}
	}
	return nil
}

var htmlReport = template.Must(template.New("report").Funcs(template.FuncMap{
	"inc":   func(i int) int { return i + 1 },
	"label": baseline.Label,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Baseline report</title>
<style>
body { font-family: system-ui, sans-serif; margin: 2rem; }
table { border-collapse: collapse; width: 100%; margin-bottom: 2rem; }
td, th { border-bottom: 1px solid #ddd; padding: .3rem .6rem; text-align: left; }
.warning { color: #b35c00; }
.information { color: #0b63c5; }
.hint { color: #666; }
</style>
</head>
<body>
<h1 id="summary">{{.Summary}}</h1>
{{range .Files}}
<section class="file" data-path="{{.Path}}">
<h2>{{.Path}}</h2>
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
{{if .Diagnostics}}
<table>
<thead><tr><th>Line</th><th>Column</th><th>Severity</th><th>Feature</th><th>Status</th><th>Key</th></tr></thead>
<tbody>
{{range .Diagnostics}}<tr class="diagnostic {{.Severity}}">
<td class="line">{{inc .Range.Start.Line}}</td>
<td class="col">{{inc .Range.Start.Char}}</td>
<td class="severity">{{.Severity}}</td>
<td class="label">{{.Label}}</td>
<td class="status">{{label .Status}}</td>
<td class="key"><code>{{.Key}}</code></td>
</tr>
{{end}}</tbody>
</table>
{{end}}
</section>
{{end}}
</body>
</html>
`))
