// Package dataset narrows the upstream web-features collection to a uniform
// slice of baseline.FeatureRecord. Records come in several shapes (real
// features, "moved"/"split" markers, older files with a top-level baseline
// field); anything that cannot be converted is skipped, never fatal.
package dataset

import (
	"errors"
	"strings"

	"github.com/sw33tLie/baseline-lite/pkg/baseline"
	"github.com/tidwall/gjson"
)

// ErrInvalidDataset is returned when the feature document is not a JSON object.
var ErrInvalidDataset = errors.New("feature dataset is not a JSON object")

// Stats counts what the adapter did with the upstream records.
type Stats struct {
	Total     int
	Accepted  int
	Markers   int // moved/split and other non-feature kinds
	Malformed int // missing id or unrecognised baseline field
}

// Parse converts the raw feature document into records, in document order.
// compat is the companion compatibility table used to resolve MDN URLs; it
// may be nil.
func Parse(features, compat []byte) ([]baseline.FeatureRecord, Stats, error) {
	return ParseWithTable(features, NewCompatTable(compat))
}

// ParseWithTable is Parse with an already built compatibility table.
func ParseWithTable(features []byte, table CompatTable) ([]baseline.FeatureRecord, Stats, error) {
	var stats Stats
	if !gjson.ValidBytes(features) {
		return nil, stats, ErrInvalidDataset
	}
	doc := gjson.ParseBytes(features)
	if !doc.IsObject() {
		return nil, stats, ErrInvalidDataset
	}

	// Newer releases nest the map under "features" next to "groups" and
	// "snapshots"; older ones are the bare id -> record map.
	if nested := doc.Get("features"); nested.IsObject() && !looksLikeRecord(nested) {
		doc = nested
	}

	var records []baseline.FeatureRecord
	doc.ForEach(func(key, value gjson.Result) bool {
		stats.Total++
		rec, ok, marker := convert(key.String(), value, table)
		switch {
		case ok:
			stats.Accepted++
			records = append(records, rec)
		case marker:
			stats.Markers++
		default:
			stats.Malformed++
		}
		return true
	})
	return records, stats, nil
}

// looksLikeRecord guards against a feature literally called "features".
func looksLikeRecord(v gjson.Result) bool {
	return v.Get("kind").Type == gjson.String || v.Get("status").IsObject()
}

func convert(id string, entry gjson.Result, table CompatTable) (rec baseline.FeatureRecord, ok, marker bool) {
	if !entry.IsObject() {
		return rec, false, false
	}
	if kind := entry.Get("kind"); kind.Exists() && kind.String() != "feature" {
		return rec, false, true
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return rec, false, false
	}

	raw := entry.Get("status.baseline")
	if !raw.Exists() {
		raw = entry.Get("baseline")
	}
	status, valid := StatusFromJSON(raw)
	if !valid {
		return rec, false, false
	}

	rec = baseline.FeatureRecord{
		ID:          id,
		Name:        entry.Get("name").String(),
		Status:      status,
		Description: entry.Get("description").String(),
		LowDate:     firstString(entry, "status.baseline_low_date", "baseline_low_date"),
		HighDate:    firstString(entry, "status.baseline_high_date", "baseline_high_date"),
	}
	if rec.Name == "" {
		rec.Name = id
	}
	if keys := entry.Get("compat_features"); keys.IsArray() {
		for _, k := range keys.Array() {
			if k.Type == gjson.String && k.String() != "" {
				rec.CompatKeys = append(rec.CompatKeys, k.String())
			}
		}
	}
	rec.MDNURL = ResolveMDNURL(entry, rec.CompatKeys, table)
	return rec, true, false
}

// StatusFromJSON decodes the upstream baseline encoding: "high", "low" or false.
func StatusFromJSON(v gjson.Result) (baseline.Status, bool) {
	switch v.Type {
	case gjson.False:
		return baseline.Limited, true
	case gjson.String:
		switch v.String() {
		case "high":
			return baseline.WidelyAvailable, true
		case "low":
			return baseline.NewlyAvailable, true
		}
	}
	return 0, false
}

func firstString(v gjson.Result, paths ...string) string {
	for _, p := range paths {
		if s := v.Get(p); s.Type == gjson.String && s.String() != "" {
			return s.String()
		}
	}
	return ""
}
