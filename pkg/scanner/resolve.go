package scanner

import (
	"strings"

	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"github.com/sw33tLie/baseline-lite/pkg/index"
	"github.com/sw33tLie/baseline-lite/pkg/keys"
)

// Resolve finds the entry for a token under the cursor in a markup
// document. line is the full text of the line holding the token and is used
// to qualify value tokens by their property. It tries, in order: the token
// as-is, property::token for declarations on the line, then the
// pseudo-class, pseudo-element and at-rule forms.
func Resolve(idx *index.Index, token, line string) (*baseline.Entry, string, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, "", false
	}
	if e, ok := idx.Markup(token); ok {
		return e, strings.ToLower(token), true
	}

	for _, seg := range strings.FieldsFunc(line, func(r rune) bool { return r == '{' || r == '}' || r == ';' }) {
		prop, value, ok := ParseDeclaration(seg)
		if !ok {
			continue
		}
		for _, tok := range ValueTokens(value) {
			if !strings.EqualFold(tok, token) {
				continue
			}
			key := keys.PropertyValue(prop, tok)
			if e, ok := idx.Markup(key); ok {
				return e, key, true
			}
		}
	}

	bare := strings.TrimLeft(token, ":@")
	for _, key := range []string{keys.Pseudo(keys.PseudoClass, bare), keys.Pseudo(keys.PseudoElement, bare), keys.AtRuleKey(bare)} {
		if e, ok := idx.Markup(key); ok {
			return e, key, true
		}
	}
	return nil, "", false
}

// ResolveScript looks up a dotted script path as written, then with its
// root capitalized.
func ResolveScript(idx *index.Index, path string) (*baseline.Entry, string, bool) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, "", false
	}
	if e, ok := idx.Script(path); ok {
		return e, path, true
	}
	root, rest, found := strings.Cut(path, ".")
	key := keys.UpperCamel(root)
	if found {
		key += "." + rest
	}
	if e, ok := idx.Script(key); ok {
		return e, key, true
	}
	return nil, "", false
}
