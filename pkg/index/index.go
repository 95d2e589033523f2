// Package index compiles feature records into the two lookup tables the
// scanners query, and publishes finished tables atomically.
package index

import (
	"sort"
	"strings"

	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"github.com/sw33tLie/baseline-lite/pkg/dataset"
	"github.com/sw33tLie/baseline-lite/pkg/keys"
)

// CoreFeaturePrefix marks entries created by the override pass.
const CoreFeaturePrefix = "core:"

// Index holds the markup and script lookup tables. An Index is never
// modified after Build returns it.
type Index struct {
	markup map[string]*baseline.Entry
	script map[string]*baseline.Entry
	stats  Stats
}

// Stats summarizes a build.
type Stats struct {
	Features   int `json:"features"`
	Skipped    int `json:"skipped"`
	MarkupKeys int `json:"markupKeys"`
	ScriptKeys int `json:"scriptKeys"`
	Overrides  int `json:"overrides"`
}

// Empty returns an index with no keys.
func Empty() *Index {
	return &Index{
		markup: map[string]*baseline.Entry{},
		script: map[string]*baseline.Entry{},
	}
}

// Build compiles records into a fresh Index. For every compat key of every
// record the derived keys are set, the last compat key winning on collision.
// Core properties are then forced to WidelyAvailable. Malformed records are
// skipped.
func Build(records []baseline.FeatureRecord, coreProperties []string) *Index {
	idx := Empty()

	for _, rec := range records {
		if rec.ID == "" || !rec.Status.Valid() {
			idx.stats.Skipped++
			continue
		}
		idx.stats.Features++
		entry := baseline.NewEntry(rec)

		for _, ck := range rec.CompatKeys {
			if keys.IsScript(ck) {
				for _, k := range keys.Script(ck) {
					idx.script[k] = entry
				}
				continue
			}
			for _, k := range keys.Markup(ck) {
				idx.markup[k] = entry
			}
			if k := keys.Fallback(ck, entry); k != "" {
				if _, exists := idx.markup[k]; !exists {
					idx.markup[k] = entry
				}
			}
		}
	}

	for _, p := range coreProperties {
		name := keys.Property(strings.TrimSpace(p))
		if name == "" {
			continue
		}
		if e, ok := idx.markup[name]; ok && e.Status == baseline.WidelyAvailable {
			continue
		}
		idx.markup[name] = &baseline.Entry{
			FeatureID:   CoreFeaturePrefix + name,
			FeatureName: name,
			Status:      baseline.WidelyAvailable,
			MDNURL:      dataset.HeuristicURL("css.properties." + name),
		}
		idx.stats.Overrides++
	}

	idx.stats.MarkupKeys = len(idx.markup)
	idx.stats.ScriptKeys = len(idx.script)
	return idx
}

// Markup looks up a markup-namespace key. Keys are case-folded.
func (i *Index) Markup(key string) (*baseline.Entry, bool) {
	e, ok := i.markup[strings.ToLower(key)]
	return e, ok
}

// Script looks up a script-namespace key. Keys are case-sensitive.
func (i *Index) Script(key string) (*baseline.Entry, bool) {
	e, ok := i.script[key]
	return e, ok
}

// MarkupKeys returns the sorted markup keys.
func (i *Index) MarkupKeys() []string { return sortedKeys(i.markup) }

// ScriptKeys returns the sorted script keys.
func (i *Index) ScriptKeys() []string { return sortedKeys(i.script) }

func (i *Index) Stats() Stats { return i.stats }

// Len returns the total number of keys in both tables.
func (i *Index) Len() int { return len(i.markup) + len(i.script) }

func sortedKeys(m map[string]*baseline.Entry) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
