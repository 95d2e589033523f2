// Package scanner recovers web-platform constructs from CSS, HTML and
// script documents and resolves them against an index.Index. The scanners
// are deliberately surface-level: CSS is scanned line by line with regular
// expressions, HTML tag by tag, and scripts through a tree-sitter AST.
package scanner

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"github.com/sw33tLie/baseline-lite/pkg/index"
)

// ErrUnsupportedLanguage is returned by New for languages without a scanner.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Language is the declared language of a document.
type Language string

const (
	LangCSS             Language = "css"
	LangHTML            Language = "html"
	LangJavaScript      Language = "javascript"
	LangJavaScriptReact Language = "javascriptreact"
	LangTypeScript      Language = "typescript"
	LangTypeScriptReact Language = "typescriptreact"
)

var extLanguages = map[string]Language{
	".css":  LangCSS,
	".html": LangHTML,
	".htm":  LangHTML,
	".js":   LangJavaScript,
	".mjs":  LangJavaScript,
	".cjs":  LangJavaScript,
	".jsx":  LangJavaScriptReact,
	".ts":   LangTypeScript,
	".mts":  LangTypeScript,
	".cts":  LangTypeScript,
	".tsx":  LangTypeScriptReact,
}

// LanguageFromPath maps a file name to its language by extension.
func LanguageFromPath(path string) (Language, bool) {
	lang, ok := extLanguages[strings.ToLower(filepath.Ext(path))]
	return lang, ok
}

// IsScript reports whether lang is handled by the AST scanner.
func (l Language) IsScript() bool {
	switch l {
	case LangJavaScript, LangJavaScriptReact, LangTypeScript, LangTypeScriptReact:
		return true
	}
	return false
}

// Valid reports whether lang has a scanner.
func (l Language) Valid() bool {
	return l == LangCSS || l == LangHTML || l.IsScript()
}

// Scanner turns one document into findings. Implementations read the index
// they were built with and never modify it.
type Scanner interface {
	Scan(text string) []baseline.Finding
}

// New returns the scanner for lang.
func New(idx *index.Index, lang Language) (Scanner, error) {
	if idx == nil {
		idx = index.Empty()
	}
	switch {
	case lang == LangCSS:
		return &CSSScanner{idx: idx}, nil
	case lang == LangHTML:
		return &HTMLScanner{idx: idx}, nil
	case lang.IsScript():
		return &ScriptScanner{idx: idx, lang: lang}, nil
	}
	return nil, ErrUnsupportedLanguage
}

// Scan dispatches on lang. Unsupported languages yield no findings.
func Scan(idx *index.Index, text string, lang Language) []baseline.Finding {
	s, err := New(idx, lang)
	if err != nil {
		return nil
	}
	return s.Scan(text)
}

// finding builds a Finding for a resolved key, or reports false when the
// entry is widely available.
func finding(e *baseline.Entry, key, fallbackLabel string, r baseline.Range) (baseline.Finding, bool) {
	if e == nil || e.Status == baseline.WidelyAvailable {
		return baseline.Finding{}, false
	}
	label := e.FeatureName
	if label == "" {
		label = fallbackLabel
	}
	return baseline.Finding{Range: r, Status: e.Status, Label: label, Key: key}, true
}

func lineRange(line, start, end int) baseline.Range {
	return baseline.Range{
		Start: baseline.Position{Line: line, Char: start},
		End:   baseline.Position{Line: line, Char: end},
	}
}

func sortFindings(fs []baseline.Finding) {
	sort.SliceStable(fs, func(i, j int) bool {
		a, b := fs[i].Range.Start, fs[j].Range.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Char < b.Char
	})
}

// lineIndex converts byte offsets in a document into positions.
type lineIndex []int

func newLineIndex(text string) lineIndex {
	starts := lineIndex{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (li lineIndex) position(offset int) baseline.Position {
	line := sort.Search(len(li), func(i int) bool { return li[i] > offset }) - 1
	if line < 0 {
		line = 0
	}
	return baseline.Position{Line: line, Char: offset - li[line]}
}

func (li lineIndex) span(start, end int) baseline.Range {
	return baseline.Range{Start: li.position(start), End: li.position(end)}
}

// shift moves findings of an embedded region that starts at origin into the
// coordinates of the enclosing document.
func shift(fs []baseline.Finding, origin baseline.Position) []baseline.Finding {
	move := func(p baseline.Position) baseline.Position {
		if p.Line == 0 {
			p.Char += origin.Char
		}
		p.Line += origin.Line
		return p
	}
	for i := range fs {
		fs[i].Range.Start = move(fs[i].Range.Start)
		fs[i].Range.End = move(fs[i].Range.End)
	}
	return fs
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}
