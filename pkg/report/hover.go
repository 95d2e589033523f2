package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sw33tLie/baseline-lite/pkg/baseline"
)

// Hover renders the Markdown shown for a looked up token.
func Hover(e *baseline.Entry, word string) string {
	if e == nil {
		return ""
	}
	name := e.FeatureName
	if name == "" {
		name = word
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "**%s** — *Baseline: %s*", name, baseline.Label(e.Status))
	switch {
	case e.Status == baseline.NewlyAvailable && e.LowDate != "":
		fmt.Fprintf(&sb, " (added to Baseline on %s)", e.LowDate)
	case e.Status == baseline.WidelyAvailable && e.HighDate != "":
		fmt.Fprintf(&sb, " (widely supported since %s)", e.HighDate)
	}
	sb.WriteString("\n\n")
	if e.Description != "" {
		sb.WriteString(e.Description)
		sb.WriteString("\n\n")
	}
	if e.MDNURL != "" {
		fmt.Fprintf(&sb, "[MDN Reference](%s)\n", e.MDNURL)
	}
	return sb.String()
}

// Summary is the one-line status text for a set of findings.
func Summary(fs []baseline.Finding) string {
	var limited, newly int
	for _, f := range fs {
		switch f.Status {
		case baseline.Limited:
			limited++
		case baseline.NewlyAvailable:
			newly++
		}
	}
	var parts []string
	if limited > 0 {
		parts = append(parts, fmt.Sprintf("%d limited", limited))
	}
	if newly > 0 {
		parts = append(parts, fmt.Sprintf("%d newly", newly))
	}
	if len(parts) == 0 {
		return "Baseline: OK"
	}
	return "Baseline Lite: " + strings.Join(parts, ", ")
}

// LineGroup collects the findings of one status on one line.
type LineGroup struct {
	Line    int             `json:"line" yaml:"line"`
	Status  baseline.Status `json:"status" yaml:"status"`
	Bullets []string        `json:"bullets" yaml:"bullets"`
}

// Text joins the bullets, one per line.
func (g LineGroup) Text() string { return strings.Join(g.Bullets, "\n") }

// GroupByLine groups findings per line and status. Groups are ordered by
// line, limited availability before newly available on the same line.
func GroupByLine(fs []baseline.Finding) []LineGroup {
	type groupKey struct {
		line   int
		status baseline.Status
	}
	groups := map[groupKey]*LineGroup{}
	for _, f := range fs {
		if f.Status != baseline.Limited && f.Status != baseline.NewlyAvailable {
			continue
		}
		k := groupKey{f.Range.Start.Line, f.Status}
		g, ok := groups[k]
		if !ok {
			g = &LineGroup{Line: k.line, Status: k.status}
			groups[k] = g
		}
		g.Bullets = append(g.Bullets, fmt.Sprintf("• %s — %s", f.Label, baseline.Label(f.Status)))
	}

	out := make([]LineGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Status < out[j].Status
	})
	return out
}
