// Package keys derives scanner-facing lookup keys from dotted compat keys.
//
// Two disjoint namespaces exist. The markup namespace (CSS and HTML) is
// lowercase and uses sigils to keep unrelated constructs apart:
//
//	gap            css.properties.gap
//	display::grid  css.properties.display.grid
//	:has ::has     css.selectors.has
//	@container     css.at-rules.container
//	dialog         html.elements.dialog
//	input@type     html.elements.input.type
//	input@type::color
//	popover        html.global_attributes.popover
//
// The script namespace keeps case, since capitalization separates
// interface and constructor names from runtime member paths:
//
//	navigator.clipboard.readText  api.Navigator.clipboard.readText
//	Navigator.clipboard.readText  api.Navigator.clipboard.readText
//	Blob                          api.Blob
package keys

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sw33tLie/baseline-lite/pkg/baseline"
)

const (
	PseudoClass   = ":"
	PseudoElement = "::"
	AtRule        = "@"
	AttrSep       = "@"
	ValueSep      = "::"
)

const cssPagePrefix = "/docs/Web/CSS/"

// IsScript reports whether the compat key belongs to the script namespace.
func IsScript(compatKey string) bool {
	return strings.HasPrefix(compatKey, "api.")
}

// Markup returns the markup-namespace keys for a css.* or html.* compat key.
func Markup(compatKey string) []string {
	parts := strings.Split(compatKey, ".")
	if len(parts) < 3 {
		return nil
	}
	for _, p := range parts {
		if p == "" {
			return nil
		}
	}
	switch parts[0] {
	case "css":
		return cssKeys(parts)
	case "html":
		return htmlKeys(parts)
	}
	return nil
}

func cssKeys(parts []string) []string {
	name := strings.ToLower(parts[2])
	switch parts[1] {
	case "properties":
		switch len(parts) {
		case 3:
			return []string{name}
		case 4:
			return []string{name + ValueSep + strings.ToLower(parts[3])}
		}
	case "selectors":
		if len(parts) == 3 {
			// Upstream does not tell pseudo-classes from pseudo-elements.
			return []string{PseudoClass + name, PseudoElement + name}
		}
	case "at-rules":
		if len(parts) == 3 {
			return []string{AtRule + name}
		}
	}
	return nil
}

func htmlKeys(parts []string) []string {
	switch parts[1] {
	case "elements":
		tag := strings.ToLower(parts[2])
		switch len(parts) {
		case 3:
			return []string{tag}
		case 4:
			return []string{tag + AttrSep + strings.ToLower(parts[3])}
		case 5:
			return []string{tag + AttrSep + strings.ToLower(parts[3]) + ValueSep + strings.ToLower(parts[4])}
		}
	case "global_attributes":
		if len(parts) == 3 {
			return []string{strings.ToLower(parts[2])}
		}
	}
	return nil
}

// Fallback returns the weak key registered for a CSS compat key whose entry
// points at a single-segment MDN CSS page, or "". Weak keys never replace an
// existing key. Only compat keys that derive a markup key of their own seed
// a slug; css.types.* and similar categories never reach a scanner.
func Fallback(compatKey string, e *baseline.Entry) string {
	if e == nil || !strings.HasPrefix(compatKey, "css.") || len(Markup(compatKey)) == 0 {
		return ""
	}
	return SlugKey(e.MDNURL)
}

// SlugKey returns the bare key for a single-segment MDN CSS page URL such as
// .../docs/Web/CSS/text-wrap, or "" for anything else (compound pages like
// CSS_grid_layout/Subgrid included).
func SlugKey(mdnURL string) string {
	i := strings.Index(mdnURL, cssPagePrefix)
	if i < 0 {
		return ""
	}
	slug := mdnURL[i+len(cssPagePrefix):]
	if j := strings.IndexAny(slug, "?#"); j >= 0 {
		slug = slug[:j]
	}
	if slug == "" || strings.Contains(slug, "/") {
		return ""
	}
	return strings.ToLower(slug)
}

// Script returns the script-namespace keys for an api.* compat key.
func Script(compatKey string) []string {
	if !IsScript(compatKey) {
		return nil
	}
	segs := strings.Split(strings.TrimPrefix(compatKey, "api."), ".")
	for _, s := range segs {
		if s == "" {
			return nil
		}
	}
	if len(segs) == 1 {
		// Only bare roots are treated as constructor names.
		return []string{segs[0]}
	}
	rest := strings.Join(segs[1:], ".")
	return []string{LowerCamel(segs[0]) + "." + rest, segs[0] + "." + rest}
}

// LowerCamel lowercases the first rune: Navigator -> navigator.
func LowerCamel(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[n:]
}

// UpperCamel uppercases the first rune: navigator -> Navigator.
func UpperCamel(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// The helpers below build the keys scanners look up from source tokens.

func Property(name string) string { return strings.ToLower(name) }

func PropertyValue(prop, value string) string {
	return strings.ToLower(prop) + ValueSep + strings.ToLower(value)
}

// Pseudo keeps the colon form the source used.
func Pseudo(colons, name string) string { return colons + strings.ToLower(name) }

func AtRuleKey(name string) string { return AtRule + strings.ToLower(name) }

func Element(tag string) string { return strings.ToLower(tag) }

func Attribute(tag, attr string) string {
	return strings.ToLower(tag) + AttrSep + strings.ToLower(attr)
}

func AttributeValue(tag, attr, value string) string {
	return Attribute(tag, attr) + ValueSep + strings.ToLower(value)
}

func GlobalAttribute(attr string) string { return strings.ToLower(attr) }
