package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"gopkg.in/yaml.v3"
)

func at(line, from, to int) baseline.Range {
	return baseline.Range{
		Start: baseline.Position{Line: line, Char: from},
		End:   baseline.Position{Line: line, Char: to},
	}
}

func sampleFindings() []baseline.Finding {
	return []baseline.Finding{
		{Range: at(0, 16, 19), Status: baseline.NewlyAvailable, Label: "Gap", Key: "gap"},
		{Range: at(2, 3, 7), Status: baseline.Limited, Label: ":has()", Key: ":has"},
		{Range: at(2, 10, 14), Status: baseline.NewlyAvailable, Label: "Container queries", Key: "container-type"},
		{Range: at(2, 20, 24), Status: baseline.Limited, Label: "Popover", Key: "popover"},
	}
}

func TestParseSeverity(t *testing.T) {
	for in, want := range map[string]Severity{
		"warning": SeverityWarning, "Information": SeverityInformation, "info": SeverityInformation,
		"hint": SeverityHint, " none ": SeverityNone, "": SeverityInformation,
	} {
		got, err := ParseSeverity(in)
		if err != nil || got != want {
			t.Fatalf("ParseSeverity(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseSeverity("error"); err == nil {
		t.Fatalf("expected an error for an unknown severity")
	}
}

func TestPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, SeverityWarning, p.For(baseline.NewlyAvailable))
	assert.Equal(t, SeverityInformation, p.For(baseline.Limited))
	assert.Equal(t, SeverityNone, p.For(baseline.WidelyAvailable))

	assert.Equal(t, SeverityInformation, Policy{}.For(baseline.Limited))

	ds := Policy{Limited: SeverityNone}.Diagnostics(sampleFindings())
	require.Len(t, ds, 2)
	for _, d := range ds {
		assert.Equal(t, baseline.NewlyAvailable, d.Status)
		assert.Equal(t, SeverityWarning, d.Severity)
	}

	ds = Policy{Limited: SeverityHint}.Diagnostics(sampleFindings())
	require.Len(t, ds, 4)
	assert.Equal(t, SeverityHint, ds[1].Severity)
	assert.Equal(t, ":has(): Limited availability – not fully supported across all major browsers", ds[1].Message)

	worst, ok := Worst(ds)
	assert.True(t, ok)
	assert.Equal(t, baseline.Limited, worst)
	_, ok = Worst(nil)
	assert.False(t, ok)
}

func TestMessageFallsBackToKey(t *testing.T) {
	got := Message(baseline.Finding{Status: baseline.NewlyAvailable, Key: "@container"})
	if got != "@container: Newly available – not fully supported across all major browsers" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestHover(t *testing.T) {
	e := &baseline.Entry{
		FeatureID:   "gap",
		FeatureName: "Gap",
		Status:      baseline.NewlyAvailable,
		Description: "Spacing between grid and flex items.",
		MDNURL:      "https://developer.mozilla.org/docs/Web/CSS/gap",
		LowDate:     "2021-04-26",
	}
	want := "**Gap** — *Baseline: Newly available* (added to Baseline on 2021-04-26)\n\n" +
		"Spacing between grid and flex items.\n\n" +
		"[MDN Reference](https://developer.mozilla.org/docs/Web/CSS/gap)\n"
	assert.Equal(t, want, Hover(e, "gap"))

	widely := &baseline.Entry{Status: baseline.WidelyAvailable, HighDate: "2020-01-01"}
	assert.Equal(t, "**color** — *Baseline: Widely available* (widely supported since 2020-01-01)\n\n", Hover(widely, "color"))

	assert.Empty(t, Hover(nil, "x"))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Baseline: OK", Summary(nil))
	assert.Equal(t, "Baseline Lite: 2 limited, 2 newly", Summary(sampleFindings()))
	assert.Equal(t, "Baseline Lite: 1 newly", Summary(sampleFindings()[:1]))
}

func TestGroupByLine(t *testing.T) {
	groups := GroupByLine(sampleFindings())
	require.Len(t, groups, 3)

	assert.Equal(t, 0, groups[0].Line)
	assert.Equal(t, baseline.NewlyAvailable, groups[0].Status)

	assert.Equal(t, 2, groups[1].Line)
	assert.Equal(t, baseline.Limited, groups[1].Status)
	assert.Equal(t, "• :has() — Limited availability\n• Popover — Limited availability", groups[1].Text())

	assert.Equal(t, baseline.NewlyAvailable, groups[2].Status)
	assert.Equal(t, []string{"• Container queries — Newly available"}, groups[2].Bullets)
}

func sampleFiles() []File {
	return []File{
		{Path: "site.css", Language: "css", Diagnostics: DefaultPolicy().Diagnostics(sampleFindings())},
		{Path: "broken.js", Language: "javascript", Error: "read failed"},
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatText, sampleFiles(), Options{}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "site.css:1:17: warning: Gap: Newly available – not fully supported across all major browsers [gap]", lines[0])
	assert.Equal(t, "site.css:3:4: information: :has(): Limited availability – not fully supported across all major browsers [:has]", lines[1])
	assert.Equal(t, "broken.js: read failed", lines[4])
	assert.Equal(t, "Baseline Lite: 2 limited, 2 newly", lines[5])
}

func TestRenderGrouped(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatText, sampleFiles()[:1], Options{Grouped: true}))
	want := "site.css:1\n" +
		"  • Gap — Newly available\n" +
		"site.css:3\n" +
		"  • :has() — Limited availability\n" +
		"  • Popover — Limited availability\n" +
		"site.css:3\n" +
		"  • Container queries — Newly available\n" +
		"Baseline Lite: 2 limited, 2 newly\n"
	assert.Equal(t, want, buf.String())
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, sampleFiles(), Options{}))

	var doc struct {
		Summary string `json:"summary"`
		Files   []struct {
			Path        string `json:"path"`
			Diagnostics []struct {
				Status   interface{} `json:"status"`
				Severity string      `json:"severity"`
				Range    struct {
					Start struct {
						Line int `json:"line"`
						Char int `json:"character"`
					} `json:"start"`
				} `json:"range"`
			} `json:"diagnostics"`
			Error string `json:"error"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "Baseline Lite: 2 limited, 2 newly", doc.Summary)
	require.Len(t, doc.Files, 2)
	require.Len(t, doc.Files[0].Diagnostics, 4)
	assert.Equal(t, "low", doc.Files[0].Diagnostics[0].Status)
	assert.Equal(t, false, doc.Files[0].Diagnostics[1].Status)
	assert.Equal(t, 16, doc.Files[0].Diagnostics[0].Range.Start.Char)
	assert.Equal(t, "read failed", doc.Files[1].Error)
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatYAML, sampleFiles()[:1], Options{}))

	var doc map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "Baseline Lite: 2 limited, 2 newly", doc["summary"])
	files := doc["files"].([]interface{})
	diags := files[0].(map[string]interface{})["diagnostics"].([]interface{})
	first := diags[0].(map[string]interface{})
	assert.Equal(t, "low", first["status"])
	assert.Equal(t, "gap", first["key"])
}

func TestRenderHTML(t *testing.T) {
	files := sampleFiles()
	files[0].Diagnostics[0].Label = "<script>alert(1)</script>"

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatHTML, files, Options{}))

	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)

	assert.Equal(t, "Baseline Lite: 2 limited, 2 newly", doc.Find("#summary").Text())
	assert.Equal(t, 2, doc.Find("section.file").Length())
	assert.Equal(t, 4, doc.Find("tr.diagnostic").Length())
	assert.Equal(t, 2, doc.Find("tr.diagnostic.warning").Length())
	assert.Equal(t, "site.css", doc.Find("section.file").First().AttrOr("data-path", ""))

	first := doc.Find("tr.diagnostic").First()
	assert.Equal(t, "1", first.Find("td.line").Text())
	assert.Equal(t, "17", first.Find("td.col").Text())
	assert.Equal(t, "Newly available", first.Find("td.status").Text())
	assert.Equal(t, "<script>alert(1)</script>", first.Find("td.label").Text(), "labels are escaped, not injected")
	assert.Equal(t, 0, doc.Find("td.label script").Length())

	assert.Equal(t, "read failed", doc.Find("p.error").Text())
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("JSON")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
}
