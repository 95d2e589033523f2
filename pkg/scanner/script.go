package scanner

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"github.com/sw33tLie/baseline-lite/pkg/index"
	"github.com/sw33tLie/baseline-lite/pkg/keys"
)

// globalRoots are the only identifiers member chains may start from.
var globalRoots = map[string]bool{
	"window":      true,
	"document":    true,
	"navigator":   true,
	"location":    true,
	"history":     true,
	"screen":      true,
	"performance": true,
}

// maxDepth bounds the AST walk on pathological input.
const maxDepth = 2000

// ScriptScanner parses JavaScript and TypeScript with tree-sitter and
// reports member chains on well-known globals and constructor calls.
type ScriptScanner struct {
	idx  *index.Index
	lang Language
}

func grammar(lang Language) *sitter.Language {
	switch lang {
	case LangTypeScript:
		return typescript.GetLanguage()
	case LangTypeScriptReact:
		return tsx.GetLanguage()
	default:
		// The JavaScript grammar accepts JSX.
		return javascript.GetLanguage()
	}
}

// Scan returns no findings when the source does not parse cleanly.
func (s *ScriptScanner) Scan(text string) []baseline.Finding {
	return s.ScanContext(context.Background(), text)
}

func (s *ScriptScanner) ScanContext(ctx context.Context, text string) []baseline.Finding {
	src := []byte(text)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(grammar(s.lang))

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil || tree == nil {
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil || root.HasError() {
		return nil
	}

	w := &scriptWalker{idx: s.idx, src: src}
	w.walk(root, 0, false)
	sortFindings(w.out)
	return w.out
}

type scriptWalker struct {
	idx *index.Index
	src []byte
	out []baseline.Finding
}

// walk visits the tree. inChain marks a node that is the object of an
// enclosing chain already looked up, so sub-chains are not reported again.
func (w *scriptWalker) walk(n *sitter.Node, depth int, inChain bool) {
	if depth > maxDepth {
		return
	}
	var object *sitter.Node
	switch n.Type() {
	case "member_expression", "subscript_expression":
		if inChain || w.member(n) {
			object = n.ChildByFieldName("object")
		}
	case "parenthesized_expression":
		if inChain && n.NamedChildCount() == 1 {
			object = n.NamedChild(0)
		}
	case "new_expression":
		w.construct(n)
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		w.walk(c, depth+1, object != nil && sameNode(c, object))
	}
}

func sameNode(a, b *sitter.Node) bool {
	return a.Type() == b.Type() && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// member looks a chain up by its full dotted path, then by shorter prefixes,
// and reports at most one finding spanning the whole chain. It returns false
// when n does not form a chain on a global root.
func (w *scriptWalker) member(n *sitter.Node) bool {
	segs, ok := w.memberPath(n)
	if !ok || len(segs) < 2 || !globalRoots[segs[0]] {
		return false
	}
	for end := len(segs); end >= 2; end-- {
		rest := strings.Join(segs[1:end], ".")
		runtime := segs[0] + "." + rest
		key := runtime
		e, ok := w.idx.Script(runtime)
		if !ok {
			key = keys.UpperCamel(segs[0]) + "." + rest
			e, ok = w.idx.Script(key)
		}
		if !ok {
			continue
		}
		if f, ok := finding(e, key, runtime, nodeRange(n)); ok {
			w.out = append(w.out, f)
		}
		break
	}
	return true
}

// memberPath flattens a chain of property and literal subscript accesses.
// Computed accesses with non-literal indexes end the chain.
func (w *scriptWalker) memberPath(n *sitter.Node) ([]string, bool) {
	switch n.Type() {
	case "identifier":
		return []string{n.Content(w.src)}, true
	case "member_expression":
		obj := n.ChildByFieldName("object")
		prop := n.ChildByFieldName("property")
		if obj == nil || prop == nil {
			return nil, false
		}
		segs, ok := w.memberPath(obj)
		if !ok {
			return nil, false
		}
		switch prop.Type() {
		case "property_identifier", "identifier":
			return append(segs, prop.Content(w.src)), true
		}
		return nil, false
	case "subscript_expression":
		obj := n.ChildByFieldName("object")
		idx := n.ChildByFieldName("index")
		if obj == nil || idx == nil {
			return nil, false
		}
		segs, ok := w.memberPath(obj)
		if !ok {
			return nil, false
		}
		switch idx.Type() {
		case "string":
			return append(segs, strings.Trim(idx.Content(w.src), `"'`)), true
		case "number":
			return append(segs, idx.Content(w.src)), true
		}
		return nil, false
	case "parenthesized_expression":
		if n.NamedChildCount() == 1 {
			return w.memberPath(n.NamedChild(0))
		}
	}
	return nil, false
}

func (w *scriptWalker) construct(n *sitter.Node) {
	c := n.ChildByFieldName("constructor")
	if c == nil || c.Type() != "identifier" {
		return
	}
	name := c.Content(w.src)
	r, _ := utf8.DecodeRuneInString(name)
	if !unicode.IsUpper(r) {
		return
	}
	e, ok := w.idx.Script(name)
	if !ok {
		return
	}
	if f, ok := finding(e, name, "new "+name, nodeRange(n)); ok {
		w.out = append(w.out, f)
	}
}

func nodeRange(n *sitter.Node) baseline.Range {
	s, e := n.StartPoint(), n.EndPoint()
	return baseline.Range{
		Start: baseline.Position{Line: int(s.Row), Char: int(s.Column)},
		End:   baseline.Position{Line: int(e.Row), Char: int(e.Column)},
	}
}
