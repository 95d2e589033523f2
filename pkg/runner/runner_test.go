package runner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"github.com/sw33tLie/baseline-lite/pkg/index"
	"github.com/sw33tLie/baseline-lite/pkg/scanner"
	"github.com/sw33tLie/baseline-lite/pkg/storage"
)

func testStore() *index.Store {
	return index.NewStore(index.Build([]baseline.FeatureRecord{
		{ID: "gap", Name: "Gap", Status: baseline.NewlyAvailable, CompatKeys: []string{"css.properties.gap"}},
		{ID: "popover", Name: "Popover", Status: baseline.Limited, CompatKeys: []string{"html.global_attributes.popover"}},
	}, nil))
}

func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"a.css":                  "a { gap: 1px; }\n",
		"pages/index.html":       "<div popover></div>\n",
		"pages/notes.md":         "gap: 1px",
		"node_modules/lib/x.css": "a { gap: 1px; }\n",
		".git/hooks/y.css":       "a { gap: 1px; }\n",
	}
	for name, body := range files {
		p := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
	return root
}

func TestCollect(t *testing.T) {
	root := writeTree(t)

	jobs, err := Collect([]string{root}, "")
	require.NoError(t, err)
	var got []string
	for _, j := range jobs {
		rel, _ := filepath.Rel(root, j.Path)
		got = append(got, rel)
	}
	sort.Strings(got)
	assert.Equal(t, []string{"a.css", filepath.Join("pages", "index.html")}, got)

	jobs, err = Collect([]string{filepath.Join(root, "pages", "notes.md")}, scanner.LangCSS)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, scanner.LangCSS, jobs[0].Language)

	_, err = Collect([]string{filepath.Join(root, "missing.css")}, "")
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	root := writeTree(t)
	jobs, err := Collect([]string{root, filepath.Join(root, "pages", "notes.md")}, "")
	require.NoError(t, err)
	stdin := "a { gap: 0 }"
	jobs = append(jobs, Job{Path: "-", Language: scanner.LangCSS, Text: &stdin})

	var mu sync.Mutex
	done := 0
	out, err := Run(context.Background(), Config{
		Store:       testStore(),
		Concurrency: 2,
		OnFileDone: func(Result) {
			mu.Lock()
			done++
			mu.Unlock()
		},
	}, jobs)
	require.NoError(t, err)

	require.Len(t, out.Results, len(jobs))
	assert.Equal(t, len(jobs), done)
	for i, r := range out.Results {
		assert.Equal(t, jobs[i].Path, r.Path, "results keep job order")
	}
	require.Len(t, out.Errors, 1, "the markdown file has no scanner")
	assert.True(t, errors.Is(out.Errors[0], scanner.ErrUnsupportedLanguage))
	assert.Equal(t, 3, out.Total())
}

func TestRunRecordsHistory(t *testing.T) {
	root := writeTree(t)
	db, err := storage.Open(filepath.Join(t.TempDir(), "history.sqlite"))
	require.NoError(t, err)
	defer db.Close()

	jobs, err := Collect([]string{root}, "")
	require.NoError(t, err)
	cfg := Config{Store: testStore(), DB: db}

	out, err := Run(context.Background(), cfg, jobs)
	require.NoError(t, err)
	assert.True(t, out.IsFirstRun)
	assert.NotEmpty(t, out.Run.ID)
	added := 0
	for _, r := range out.Results {
		added += len(r.Changes)
	}
	assert.Equal(t, 2, added)

	// Fix the stylesheet and scan again.
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.css"), []byte("a { margin: 0; }\n"), 0o644))
	out, err = Run(context.Background(), cfg, jobs)
	require.NoError(t, err)
	assert.False(t, out.IsFirstRun)
	var removed []storage.Change
	for _, r := range out.Results {
		removed = append(removed, r.Changes...)
	}
	require.Len(t, removed, 1)
	assert.Equal(t, "removed", removed[0].ChangeType)
	assert.Equal(t, "gap", removed[0].Key)

	runs, err := db.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, 1, runs[0].Findings, "one finding left after the fix")
	assert.Equal(t, 2, runs[1].Findings)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	text := "a { gap: 1px }"
	_, err := Run(ctx, Config{Store: testStore()}, []Job{{Path: "-", Language: scanner.LangCSS, Text: &text}})
	assert.ErrorIs(t, err, context.Canceled)
}
