package dataset

import (
	"strings"

	"github.com/tidwall/gjson"
)

// MDNDocsRoot is prefixed to slugs and heuristic paths.
const MDNDocsRoot = "https://developer.mozilla.org/en-US/docs/"

// compatRoots are the top-level namespaces of the compatibility table that
// can carry a lookup key.
var compatRoots = []string{"css", "html", "api"}

// CompatInfo is the part of a compatibility record the adapter needs.
type CompatInfo struct {
	MDNURL string
	Slug   string
}

// CompatTable maps a dotted compat key (css.properties.gap) to its record.
type CompatTable map[string]CompatInfo

// NewCompatTable walks the compatibility document once and flattens every
// __compat block below the css, html and api roots. Empty or invalid input
// yields an empty table.
func NewCompatTable(raw []byte) CompatTable {
	table := make(CompatTable)
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return table
	}
	doc := gjson.ParseBytes(raw)
	for _, root := range compatRoots {
		if node := doc.Get(root); node.IsObject() {
			walkCompat(root, node, table)
		}
	}
	return table
}

func walkCompat(prefix string, node gjson.Result, table CompatTable) {
	node.ForEach(func(k, v gjson.Result) bool {
		name := k.String()
		if name == "__compat" {
			info := CompatInfo{MDNURL: v.Get("mdn_url").String(), Slug: v.Get("mdn_slug").String()}
			if info.MDNURL != "" || info.Slug != "" {
				table[prefix] = info
			}
			return true
		}
		if strings.HasPrefix(name, "__") || !v.IsObject() {
			return true
		}
		walkCompat(prefix+"."+name, v, table)
		return true
	})
}

// ResolveMDNURL applies the fallback chain for one record: explicit URL,
// then slug, then a URL guessed from the compat key path. The first
// non-empty candidate wins.
func ResolveMDNURL(entry gjson.Result, compatKeys []string, table CompatTable) string {
	if u := entry.Get("mdn_url").String(); u != "" {
		return u
	}
	for _, k := range compatKeys {
		if info, ok := table[k]; ok && info.MDNURL != "" {
			return info.MDNURL
		}
	}

	if slug := entry.Get("mdn_slug").String(); slug != "" {
		return SlugURL(slug)
	}
	for _, k := range compatKeys {
		if info, ok := table[k]; ok && info.Slug != "" {
			return SlugURL(info.Slug)
		}
	}

	for _, k := range compatKeys {
		if u := HeuristicURL(k); u != "" {
			return u
		}
	}
	return ""
}

// SlugURL joins an MDN slug such as "Web/CSS/gap" to the docs root.
func SlugURL(slug string) string {
	return MDNDocsRoot + strings.TrimPrefix(slug, "/")
}

// HeuristicURL guesses the MDN page for a compat key from its path.
func HeuristicURL(compatKey string) string {
	parts := strings.Split(compatKey, ".")
	if len(parts) < 2 {
		return ""
	}
	switch parts[0] {
	case "css":
		if len(parts) < 3 {
			return ""
		}
		switch parts[1] {
		case "properties":
			return MDNDocsRoot + "Web/CSS/" + parts[2]
		case "selectors":
			return MDNDocsRoot + "Web/CSS/:" + parts[2]
		case "at-rules":
			return MDNDocsRoot + "Web/CSS/@" + parts[2]
		}
	case "html":
		if len(parts) < 3 {
			return ""
		}
		switch parts[1] {
		case "elements":
			return MDNDocsRoot + "Web/HTML/Element/" + parts[2]
		case "global_attributes":
			return MDNDocsRoot + "Web/HTML/Global_attributes/" + parts[2]
		}
	case "api":
		return MDNDocsRoot + "Web/API/" + strings.Join(parts[1:min(len(parts), 3)], "/")
	}
	return ""
}
