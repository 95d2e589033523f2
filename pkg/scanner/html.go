package scanner

import (
	"regexp"
	"strings"

	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"github.com/sw33tLie/baseline-lite/pkg/index"
	"github.com/sw33tLie/baseline-lite/pkg/keys"
	"golang.org/x/net/html"
)

var (
	tagRe  = regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9-]*)(\s(?:"[^"]*"|'[^']*'|[^<>"'])*)?/?>`)
	attrRe = regexp.MustCompile(`([^\s"'<>/=]+)(?:\s*=\s*(?:"([^"]*)"|'([^']*)'|([^\s"'=<>` + "`" + `]+)))?`)
)

// noisyAttributes are never looked up as global attributes: they appear on
// almost every element and would drown real findings.
var noisyAttributes = map[string]bool{
	"class": true, "id": true, "style": true, "href": true, "src": true,
	"alt": true, "title": true, "name": true, "type": true, "value": true,
	"rel": true, "lang": true, "dir": true, "width": true, "height": true,
	"for": true, "content": true, "charset": true, "action": true,
	"method": true, "target": true, "role": true, "tabindex": true,
}

func isNoisy(attr string) bool {
	return noisyAttributes[attr] || strings.HasPrefix(attr, "data-") || strings.HasPrefix(attr, "aria-")
}

// HTMLScanner finds element and attribute constructs with regular
// expressions. Inline <style> and <script> bodies and style="" attributes
// are handed to the CSS and script scanners.
type HTMLScanner struct {
	idx *index.Index
}

type span struct{ start, end int }

type region struct {
	offset int
	text   string
	lang   Language
}

func (s *HTMLScanner) Scan(text string) []baseline.Finding {
	lines := newLineIndex(text)
	skip, regions := rawRegions(text)

	var out []baseline.Finding
	for _, m := range tagRe.FindAllStringSubmatchIndex(text, -1) {
		if inSpans(skip, m[0]) {
			continue
		}
		out = append(out, s.scanTag(text, lines, m)...)
	}

	for _, r := range regions {
		var sub []baseline.Finding
		if r.lang == LangCSS {
			sub = scanCSS(s.idx, r.text, 0)
		} else {
			sub = (&ScriptScanner{idx: s.idx, lang: r.lang}).Scan(r.text)
		}
		out = append(out, shift(sub, lines.position(r.offset))...)
	}

	sortFindings(out)
	return out
}

func (s *HTMLScanner) scanTag(text string, lines lineIndex, m []int) []baseline.Finding {
	var out []baseline.Finding
	tag := strings.ToLower(text[m[2]:m[3]])

	key := keys.Element(tag)
	e, _ := s.idx.Markup(key)
	if f, ok := finding(e, key, "<"+tag+">", lines.span(m[2], m[3])); ok {
		out = append(out, f)
	}

	if m[4] < 0 {
		return out
	}
	chunk := text[m[4]:m[5]]
	for _, am := range attrRe.FindAllStringSubmatchIndex(chunk, -1) {
		nameStart, nameEnd := m[4]+am[2], m[4]+am[3]
		name := strings.ToLower(text[nameStart:nameEnd])

		value, valStart, valEnd, hasValue := attrValue(chunk, am)
		valStart += m[4]
		valEnd += m[4]

		if name == "style" && hasValue && strings.TrimSpace(value) != "" {
			sub := scanCSS(s.idx, value, 1)
			out = append(out, shift(sub, lines.position(valStart))...)
		}

		if f, ok := s.resolveAttr(tag, name, value, hasValue, lines.span(nameStart, nameEnd), lines.span(valStart, valEnd)); ok {
			out = append(out, f)
		}
	}
	return out
}

// resolveAttr tries tag@attr::value, then tag@attr, then the bare global
// attribute. The first key present decides; a widely available hit ends the
// search without a finding.
func (s *HTMLScanner) resolveAttr(tag, name, value string, hasValue bool, nameRange, valueRange baseline.Range) (baseline.Finding, bool) {
	if hasValue && value != "" {
		key := keys.AttributeValue(tag, name, value)
		if e, ok := s.idx.Markup(key); ok {
			return finding(e, key, tag+" "+name+"="+value, valueRange)
		}
	}
	key := keys.Attribute(tag, name)
	if e, ok := s.idx.Markup(key); ok {
		return finding(e, key, tag+" "+name, nameRange)
	}
	if isNoisy(name) {
		return baseline.Finding{}, false
	}
	key = keys.GlobalAttribute(name)
	if e, ok := s.idx.Markup(key); ok {
		return finding(e, key, name, nameRange)
	}
	return baseline.Finding{}, false
}

// attrValue returns the value of an attribute match and its offsets within
// the chunk. Quoted values exclude the quotes.
func attrValue(chunk string, am []int) (value string, start, end int, ok bool) {
	for g := 2; g <= 4; g++ {
		if am[2*g] >= 0 {
			return chunk[am[2*g]:am[2*g+1]], am[2*g], am[2*g+1], true
		}
	}
	return "", am[3], am[3], false
}

// rawRegions tokenizes the document once to find the spans the tag regex
// must ignore (comments and the raw text of script, style, textarea and
// title elements), and the embedded style and script bodies worth scanning.
func rawRegions(text string) ([]span, []region) {
	var (
		skip    []span
		regions []region
		rawTag  string
		rawLang Language
		offset  int
	)
	z := html.NewTokenizer(strings.NewReader(text))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		start := offset
		offset += len(z.Raw())

		switch tt {
		case html.CommentToken:
			skip = append(skip, span{start, offset})
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			rawTag = ""
			switch string(name) {
			case "style":
				rawTag, rawLang = "style", LangCSS
			case "script":
				if scriptIsJS(z, hasAttr) {
					rawTag, rawLang = "script", LangJavaScript
				} else {
					rawTag, rawLang = "script", ""
				}
			case "textarea", "title":
				rawTag, rawLang = string(name), ""
			}
		case html.TextToken:
			if rawTag != "" {
				skip = append(skip, span{start, offset})
				if rawLang != "" && strings.TrimSpace(text[start:offset]) != "" {
					regions = append(regions, region{offset: start, text: text[start:offset], lang: rawLang})
				}
			}
		case html.EndTagToken:
			rawTag = ""
		}
	}
	return skip, regions
}

func scriptIsJS(z *html.Tokenizer, hasAttr bool) bool {
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if string(key) != "type" {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(string(val))) {
		case "", "module", "text/javascript", "application/javascript", "text/ecmascript":
			return true
		}
		return false
	}
	return true
}

func inSpans(spans []span, off int) bool {
	for _, s := range spans {
		if off >= s.start && off < s.end {
			return true
		}
	}
	return false
}
