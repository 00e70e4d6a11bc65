// Package searchdoc defines the search index document built for one RDF subject.
package searchdoc

import (
	"encoding/json"
	"net/url"
	"sort"
	"strings"
)

// Kind distinguishes the indexed PCDM classes.
type Kind string

// Indexed kinds.
const (
	KindCollection Kind = "Collection"
	KindObject     Kind = "Object"
)

// Document is rebuilt in full on every indexing pass.
type Document struct {
	URI       string
	Kind      Kind
	Fields    map[string][]string
	Fulltext  string
	Path      string
	PathFacet []string
	Depth     int
	Thumbnail string
}

var reserved = map[string]struct{}{
	"uri": {}, "type": {}, "fulltext": {}, "path": {}, "pathFacet": {}, "depth": {}, "thumbnail": {},
}

// AddField appends a value to the named array field.
func (d *Document) AddField(name, value string) {
	if d.Fields == nil {
		d.Fields = make(map[string][]string)
	}
	d.Fields[name] = append(d.Fields[name], value)
}

// SetPath sets path and derives the facet and depth from it.
func (d *Document) SetPath(p string) {
	d.Path = p
	d.PathFacet = Facets(p)
	d.Depth = Depth(p)
}

// MarshalJSON flattens Fields into the top-level object. Keys are emitted in
// sorted order so equal documents serialize to equal bytes.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+7)
	for k, v := range d.Fields {
		if _, clash := reserved[k]; clash {
			continue
		}
		out[k] = v
	}
	out["uri"] = d.URI
	if d.Kind != "" {
		out["type"] = d.Kind
	}
	if d.Fulltext != "" {
		out["fulltext"] = d.Fulltext
	}
	if d.Path != "" {
		out["path"] = d.Path
		out["pathFacet"] = d.PathFacet
		out["depth"] = d.Depth
	}
	if d.Thumbnail != "" {
		out["thumbnail"] = d.Thumbnail
	}
	return json.Marshal(out)
}

// Slug returns the document id for uri: its path with every "/" replaced by "-".
func Slug(uri string) string {
	p := uri
	if u, err := url.Parse(uri); err == nil && u.Path != "" {
		p = u.Path
	}
	return strings.ReplaceAll(p, "/", "-")
}

// Facets returns every ancestor prefix of a slash separated path, including
// the path itself: "/A/B" gives ["/A", "/A/B"].
func Facets(p string) []string {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	var out []string
	prefix := ""
	for _, s := range segs {
		if s == "" {
			continue
		}
		prefix += "/" + s
		out = append(out, prefix)
	}
	return out
}

// Depth is the slash segment count of p minus two, never negative.
func Depth(p string) int {
	n := len(strings.Split(p, "/")) - 2
	if n < 0 {
		return 0
	}
	return n
}

// SortedFieldNames returns the field names in lexical order.
func (d Document) SortedFieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Authority is a SKOS concept document for the authority index.
type Authority struct {
	ID        string   `json:"id"`
	Types     []string `json:"types"`
	PrefLabel string   `json:"prefLabel,omitempty"`
	AltLabels []string `json:"altLabels,omitempty"`
}
