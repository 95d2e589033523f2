package scanner

import (
	"regexp"
	"strings"

	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"github.com/sw33tLie/baseline-lite/pkg/index"
	"github.com/sw33tLie/baseline-lite/pkg/keys"
)

var (
	atRuleRe      = regexp.MustCompile(`(?i)^@([-a-z0-9]+)`)
	pseudoRe      = regexp.MustCompile(`(::?)([A-Za-z0-9_-]+)`)
	declarationRe = regexp.MustCompile(`^\s*([-\w]+)\s*:\s*(.*?)\s*$`)
	valueSplitRe  = regexp.MustCompile(`[\s,()]+`)
)

// CSSScanner scans stylesheets line by line. It tracks whether it is inside
// a block comment and the current brace depth; everything else is decided
// per segment of a line.
type CSSScanner struct {
	idx *index.Index
}

func (s *CSSScanner) Scan(text string) []baseline.Finding {
	return scanCSS(s.idx, text, 0)
}

// scanCSS scans text starting at the given brace depth. Depth 1 is used for
// the body of style="" attributes.
func scanCSS(idx *index.Index, text string, depth int) []baseline.Finding {
	st := &cssState{idx: idx, depth: depth}
	for n, line := range splitLines(text) {
		line = st.maskComments(line)
		if strings.TrimSpace(line) == "" {
			continue
		}
		st.scanLine(n, line)
	}
	return st.out
}

type cssState struct {
	idx       *index.Index
	inComment bool
	depth     int
	out       []baseline.Finding
}

// maskComments blanks out comment text, keeping byte columns intact. A
// comment left open makes every following line blank until the line holding
// the closing marker.
func (st *cssState) maskComments(line string) string {
	if !st.inComment && !strings.Contains(line, "/*") {
		return line
	}
	b := []byte(line)
	for i := 0; i < len(b); {
		if st.inComment {
			end := strings.Index(line[i:], "*/")
			if end < 0 {
				blank(b[i:])
				return string(b)
			}
			blank(b[i : i+end+2])
			i += end + 2
			st.inComment = false
			continue
		}
		start := strings.Index(line[i:], "/*")
		if start < 0 {
			break
		}
		i += start
		blank(b[i : i+2])
		i += 2
		st.inComment = true
	}
	return string(b)
}

func blank(b []byte) {
	for i := range b {
		b[i] = ' '
	}
}

// scanLine splits the line on braces and semicolons. A segment closed by
// "{" is a selector or at-rule prelude whatever the depth; other segments are
// selectors at depth 0 and declarations inside blocks.
func (st *cssState) scanLine(n int, line string) {
	segStart := 0
	for i := 0; i <= len(line); i++ {
		var term byte
		if i < len(line) {
			term = line[i]
			if term != '{' && term != '}' && term != ';' {
				continue
			}
		}
		st.scanSegment(n, line, segStart, i, term)
		switch term {
		case '{':
			st.depth++
		case '}':
			st.depth--
			if st.depth < 0 {
				st.depth = 0
			}
		}
		segStart = i + 1
	}
}

func (st *cssState) scanSegment(n int, line string, start, end int, term byte) {
	seg := line[start:end]
	trimmed := strings.TrimSpace(seg)
	if trimmed == "" {
		return
	}

	if strings.HasPrefix(trimmed, "@") {
		st.atRule(n, start+strings.Index(seg, "@"), trimmed)
		return
	}
	// A trailing comma continues a selector list onto the next line.
	if st.depth == 0 || term == '{' || (term == 0 && strings.HasSuffix(trimmed, ",")) {
		if strings.Contains(seg, ":") {
			st.pseudos(n, start, seg)
		}
		return
	}
	st.declaration(n, line, start, seg)
}

func (st *cssState) atRule(n, col int, trimmed string) {
	m := atRuleRe.FindStringSubmatch(trimmed)
	if m == nil {
		return
	}
	key := keys.AtRuleKey(m[1])
	e, _ := st.idx.Markup(key)
	if f, ok := finding(e, key, key, lineRange(n, col, col+len(m[1])+1)); ok {
		st.out = append(st.out, f)
	}
}

func (st *cssState) pseudos(n, start int, seg string) {
	for _, m := range pseudoRe.FindAllStringSubmatchIndex(seg, -1) {
		colons := seg[m[2]:m[3]]
		name := seg[m[4]:m[5]]
		key := keys.Pseudo(colons, name)
		e, _ := st.idx.Markup(key)
		if f, ok := finding(e, key, seg[m[0]:m[1]], lineRange(n, start+m[0], start+m[1])); ok {
			st.out = append(st.out, f)
		}
	}
}

func (st *cssState) declaration(n int, line string, start int, seg string) {
	m := declarationRe.FindStringSubmatchIndex(seg)
	if m == nil {
		return
	}
	prop := seg[m[2]:m[3]]
	value := seg[m[4]:m[5]]

	propKey := keys.Property(prop)
	e, _ := st.idx.Markup(propKey)
	if f, ok := finding(e, propKey, prop, lineRange(n, start+m[2], start+m[3])); ok {
		st.out = append(st.out, f)
	}

	colon := start + m[3] + strings.Index(seg[m[3]:], ":")
	for _, tok := range ValueTokens(value) {
		key := keys.PropertyValue(prop, tok)
		e, _ := st.idx.Markup(key)
		if e == nil || e.Status == baseline.WidelyAvailable {
			continue
		}
		// First occurrence after the colon: a repeated token is attributed
		// to its first appearance.
		at := strings.Index(line[colon:], tok)
		if at < 0 {
			continue
		}
		at += colon
		if f, ok := finding(e, key, prop+": "+tok, lineRange(n, at, at+len(tok))); ok {
			st.out = append(st.out, f)
		}
	}
}

// ValueTokens splits a declaration value on whitespace, commas and
// parentheses.
func ValueTokens(value string) []string {
	var out []string
	for _, t := range valueSplitRe.Split(value, -1) {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// ParseDeclaration matches a single "name: value" declaration.
func ParseDeclaration(s string) (prop, value string, ok bool) {
	m := declarationRe.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}
