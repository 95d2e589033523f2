package scanner

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"github.com/sw33tLie/baseline-lite/pkg/index"
)

func testIndex() *index.Index {
	return index.Build([]baseline.FeatureRecord{
		{ID: "gap", Name: "Gap", Status: baseline.NewlyAvailable, CompatKeys: []string{"css.properties.gap"}},
		{ID: "color", Name: "color", Status: baseline.WidelyAvailable, CompatKeys: []string{"css.properties.color"}},
		{ID: "has", Name: ":has()", Status: baseline.Limited, CompatKeys: []string{"css.selectors.has"}},
		{ID: "hover", Name: ":hover", Status: baseline.WidelyAvailable, CompatKeys: []string{"css.selectors.hover"}},
		{ID: "container", Name: "Container queries", Status: baseline.NewlyAvailable,
			CompatKeys: []string{"css.at-rules.container", "css.properties.container-type"}},
		{ID: "text-wrap", Name: "text-wrap", Status: baseline.NewlyAvailable,
			MDNURL:     "https://developer.mozilla.org/docs/Web/CSS/text-wrap",
			CompatKeys: []string{"css.properties.text-wrap.balance"}},
		{ID: "input-color", Name: "<input type=color>", Status: baseline.Limited,
			CompatKeys: []string{"html.elements.input.type.color"}},
		{ID: "popover", Name: "Popover", Status: baseline.NewlyAvailable,
			CompatKeys: []string{"html.global_attributes.popover", "html.elements.dialog"}},
		{ID: "loading-lazy", Name: "Lazy loading", Status: baseline.WidelyAvailable,
			CompatKeys: []string{"html.elements.img.loading"}},
		{ID: "async-clipboard", Name: "Async clipboard", Status: baseline.Limited,
			CompatKeys: []string{"api.Navigator.clipboard.readText", "api.ClipboardItem"}},
		{ID: "fetch", Name: "Fetch", Status: baseline.WidelyAvailable,
			CompatKeys: []string{"api.Request", "api.Window.fetch"}},
	}, nil)
}

func TestNew(t *testing.T) {
	idx := testIndex()
	for _, lang := range []Language{LangCSS, LangHTML, LangJavaScript, LangJavaScriptReact, LangTypeScript, LangTypeScriptReact} {
		if _, err := New(idx, lang); err != nil {
			t.Fatalf("New(%s): %v", lang, err)
		}
	}
	if _, err := New(idx, "markdown"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Fatalf("expected ErrUnsupportedLanguage, got %v", err)
	}
	if fs := Scan(idx, "gap: 1px", "markdown"); fs != nil {
		t.Fatalf("unsupported language must yield no findings, got %v", fs)
	}
}

func TestLanguageFromPath(t *testing.T) {
	tests := map[string]Language{
		"a/b/site.CSS":   LangCSS,
		"index.html":     LangHTML,
		"app.mjs":        LangJavaScript,
		"view.jsx":       LangJavaScriptReact,
		"main.ts":        LangTypeScript,
		"component.tsx":  LangTypeScriptReact,
		"legacy.htm":     LangHTML,
		"worker.cjs":     LangJavaScript,
		"config.mts":     LangTypeScript,
		"types.cts":      LangTypeScript,
		"page/index.htm": LangHTML,
	}
	for path, want := range tests {
		got, ok := LanguageFromPath(path)
		if !ok || got != want {
			t.Fatalf("LanguageFromPath(%q) = %q, %v; want %q", path, got, ok, want)
		}
	}
	if _, ok := LanguageFromPath("README.md"); ok {
		t.Fatalf("markdown must not map to a language")
	}
	if Language("markdown").Valid() || !LangTypeScriptReact.Valid() {
		t.Fatalf("Valid mismatch")
	}
}

func TestEmptyIndexYieldsNothing(t *testing.T) {
	docs := map[Language]string{
		LangCSS:        "a { gap: 1px; }",
		LangHTML:       `<dialog popover><input type="color"></dialog>`,
		LangJavaScript: "navigator.clipboard.readText()",
	}
	for lang, text := range docs {
		assert.Empty(t, Scan(nil, text, lang), lang)
		assert.Empty(t, Scan(index.Empty(), text, lang), lang)
	}
}

func TestNeverReportsWidelyAvailable(t *testing.T) {
	idx := testIndex()
	docs := map[Language]string{
		LangCSS:        "a:hover { color: red; }\n",
		LangHTML:       `<img loading="lazy" src="x.png">`,
		LangJavaScript: "const r = new Request('/x');\nwindow.fetch('/y');\n",
	}
	for lang, text := range docs {
		for _, f := range Scan(idx, text, lang) {
			t.Fatalf("%s: unexpected finding %+v", lang, f)
		}
	}
}

func TestLineIndex(t *testing.T) {
	li := newLineIndex("ab\ncd\n\nef")
	cases := []struct {
		off  int
		want baseline.Position
	}{
		{0, baseline.Position{Line: 0, Char: 0}},
		{2, baseline.Position{Line: 0, Char: 2}},
		{3, baseline.Position{Line: 1, Char: 0}},
		{6, baseline.Position{Line: 2, Char: 0}},
		{8, baseline.Position{Line: 3, Char: 1}},
	}
	for _, c := range cases {
		if got := li.position(c.off); got != c.want {
			t.Fatalf("position(%d) = %+v, want %+v", c.off, got, c.want)
		}
	}
}

func TestShift(t *testing.T) {
	fs := []baseline.Finding{
		{Range: lineRange(0, 1, 4)},
		{Range: lineRange(2, 1, 4)},
	}
	shift(fs, baseline.Position{Line: 5, Char: 10})
	assert.Equal(t, lineRange(5, 11, 14), fs[0].Range)
	assert.Equal(t, lineRange(7, 1, 4), fs[1].Range)
}

// Every CSS finding must be recoverable from the text it points at.
func TestCSSFindingsResolveBack(t *testing.T) {
	idx := testIndex()
	css := strings.Join([]string{
		"@container (min-width: 400px) {",
		"  .card:has(> img) { container-type: inline-size; gap: 1rem; }",
		"}",
		"h1 { text-wrap: balance; }",
	}, "\n")
	lines := strings.Split(css, "\n")

	got := Scan(idx, css, LangCSS)
	require.NotEmpty(t, got)
	for _, f := range got {
		require.Equal(t, f.Range.Start.Line, f.Range.End.Line)
		line := lines[f.Range.Start.Line]
		token := line[f.Range.Start.Char:f.Range.End.Char]

		want, _ := idx.Markup(f.Key)
		e, _, ok := Resolve(idx, token, line)
		if !ok || e != want {
			t.Fatalf("token %q at %+v does not resolve back to %q", token, f.Range, f.Key)
		}
	}
}

// markupSnippets returns sources that should each surface the markup key.
func markupSnippets(key string) []struct {
	lang Language
	src  string
} {
	type snip = struct {
		lang Language
		src  string
	}
	switch {
	case strings.HasPrefix(key, "@"):
		return []snip{{LangCSS, key + " (a) {}"}}
	case strings.HasPrefix(key, ":"):
		return []snip{{LangCSS, "a" + key + " {}"}}
	case strings.Contains(key, "@"):
		tag, attr, _ := strings.Cut(key, "@")
		if name, value, ok := strings.Cut(attr, "::"); ok {
			return []snip{{LangHTML, "<" + tag + " " + name + `="` + value + `">`}}
		}
		return []snip{{LangHTML, "<" + tag + " " + attr + ">"}}
	case strings.Contains(key, "::"):
		prop, value, _ := strings.Cut(key, "::")
		return []snip{{LangCSS, "a {\n  " + prop + ": " + value + ";\n}"}}
	}
	return []snip{
		{LangCSS, "a {\n  " + key + ": 1;\n}"},
		{LangHTML, "<" + key + ">"},
		{LangHTML, "<div " + key + ">"},
	}
}

// scriptSnippet returns a source for the script key, or "" when the key has
// no form the scanner looks for.
func scriptSnippet(key string) string {
	root, rest, dotted := strings.Cut(key, ".")
	if !dotted {
		return "new " + key + "();"
	}
	if lower := strings.ToLower(root[:1]) + root[1:]; globalRoots[lower] {
		return lower + "." + rest + ";"
	}
	return ""
}

// Every indexed key that is not widely available must be found by the
// scanner for its language.
func TestIndexedKeysAreLocatable(t *testing.T) {
	extra := index.Build([]baseline.FeatureRecord{
		{ID: "display-grid", Status: baseline.NewlyAvailable, CompatKeys: []string{"css.properties.display.grid"}},
		{ID: "fetchpriority", Status: baseline.Limited, CompatKeys: []string{"html.elements.img.fetchpriority"}},
		{ID: "view-transitions", Status: baseline.NewlyAvailable,
			CompatKeys: []string{"api.Document.startViewTransition", "css.selectors.view-transition"}},
		{ID: "calc", Status: baseline.Limited,
			MDNURL:     "https://developer.mozilla.org/docs/Web/CSS/calc",
			CompatKeys: []string{"css.types.calc"}},
	}, nil)

	for _, idx := range []*index.Index{testIndex(), extra} {
		for _, key := range idx.MarkupKeys() {
			want, _ := idx.Markup(key)
			if want.Status == baseline.WidelyAvailable {
				continue
			}
			found := false
			for _, s := range markupSnippets(key) {
				for _, f := range Scan(idx, s.src, s.lang) {
					if e, _ := idx.Markup(f.Key); e == want {
						found = true
					}
				}
			}
			assert.True(t, found, "markup key %q is never reported", key)
		}

		for _, key := range idx.ScriptKeys() {
			want, _ := idx.Script(key)
			src := scriptSnippet(key)
			if want.Status == baseline.WidelyAvailable || src == "" {
				continue
			}
			found := false
			for _, f := range Scan(idx, src, LangJavaScript) {
				if e, _ := idx.Script(f.Key); e == want {
					found = true
				}
			}
			assert.True(t, found, "script key %q is never reported by %q", key, src)
		}
	}
}
