// Package pagedoc assembles the ordered page structure of a scanned document
// and renders it as a PCDM object with an ORE proxy chain.
package pagedoc

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/domain/filename"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/graph"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/vocab"
)

// Slot is one position in a paged document. A slot with an empty File stands
// for a page that was expected but not found.
type Slot struct {
	Number    int
	File      string
	Access    string
	Thumbnail string
}

// Missing reports whether the slot is a gap placeholder.
func (s Slot) Missing() bool { return s.File == "" }

// Document is one assembled paged document.
type Document struct {
	IRI    string
	DocID  string
	Path   string
	Folder string
	Slots  []Slot
}

// Group is the run of page files sharing one document id.
type Group struct {
	DocID string
	Pages []filename.Page
}

// GroupPages sorts page files lexicographically and groups consecutive files
// by document id. Files outside the naming convention are returned separately.
func GroupPages(files []string) (groups []Group, rejected []string) {
	sorted := append([]string(nil), files...)
	sort.Strings(sorted)

	for _, f := range sorted {
		p, err := filename.ParsePage(f)
		if err != nil {
			rejected = append(rejected, f)
			continue
		}
		if n := len(groups); n > 0 && groups[n-1].DocID == p.DocID {
			groups[n-1].Pages = append(groups[n-1].Pages, p)
			continue
		}
		groups = append(groups, Group{DocID: p.DocID, Pages: []filename.Page{p}})
	}
	return groups, rejected
}

// Slots orders pages by number and inserts one missing slot for every number
// skipped between two consecutive observed pages. Derivatives are attached
// when present in the access or thumbnail sets.
func Slots(pages []filename.Page, access, thumbnails map[string]struct{}) []Slot {
	ordered := append([]filename.Page(nil), pages...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Number < ordered[j].Number })

	var slots []Slot
	for i, p := range ordered {
		if i > 0 {
			for n := ordered[i-1].Number + 1; n < p.Number; n++ {
				slots = append(slots, Slot{Number: n})
			}
		}
		s := Slot{Number: p.Number, File: p.IRI}
		if u, err := filename.AccessURL(p.IRI); err == nil {
			if _, ok := access[u]; ok {
				s.Access = u
			}
		}
		if u, err := filename.ThumbnailURL(p.IRI); err == nil {
			if _, ok := thumbnails[u]; ok {
				s.Thumbnail = u
			}
		}
		slots = append(slots, s)
	}
	return slots
}

// New builds the document for one group under submission.
func New(submission string, g Group, access, thumbnails map[string]struct{}) (Document, error) {
	docPath, err := filename.DocumentPath(g.DocID)
	if err != nil {
		return Document{}, err
	}
	folderPath, err := filename.FolderPath(g.DocID)
	if err != nil {
		return Document{}, err
	}

	iri := strings.TrimRight(submission, "/") + "/" + g.DocID
	base, err := url.Parse(iri)
	if err != nil {
		return Document{}, fmt.Errorf("document iri %q: %w", iri, err)
	}
	folder := base.ResolveReference(&url.URL{Path: "/description/" + folderPath})

	return Document{
		IRI:    iri,
		DocID:  g.DocID,
		Path:   "/" + docPath,
		Folder: folder.String(),
		Slots:  Slots(g.Pages, access, thumbnails),
	}, nil
}

// Triples renders the document graph. Blank node labels are derived from slot
// positions so identical inputs produce identical output.
func (d Document) Triples() ([]graph.Triple, error) {
	b := graph.NewBuilder()
	doc := b.IRI(d.IRI)

	b.Add(doc, vocab.RDFType, b.IRI(vocab.PCDMObject))
	b.Add(doc, vocab.NPSPath, b.Literal(d.Path))
	b.Add(b.IRI(d.Folder), vocab.PCDMHasMember, doc)

	n := len(d.Slots)
	for i, s := range d.Slots {
		page := b.Blank("page" + strconv.Itoa(i+1))
		b.Add(doc, vocab.PCDMHasMember, page)
		b.Add(page, vocab.RDFType, b.IRI(vocab.PCDMObject))
		if s.Missing() {
			b.Add(page, vocab.PCDMHasFile, b.IRI(vocab.NPSMissingPageFile))
		} else {
			b.Add(page, vocab.PCDMHasFile, b.IRI(s.File))
		}
		if s.Access != "" {
			b.Add(page, vocab.NPSHasAccess, b.IRI(s.Access))
		}
		if s.Thumbnail != "" {
			b.Add(page, vocab.NPSHasThumbnail, b.IRI(s.Thumbnail))
		}

		proxy := b.Blank(proxyLabel(i))
		b.Add(proxy, vocab.RDFType, b.IRI(vocab.OREProxy))
		b.Add(proxy, vocab.OREProxyIn, doc)
		b.Add(proxy, vocab.OREProxyFor, page)
		if i > 0 {
			b.Add(proxy, vocab.IANAPrev, b.Blank(proxyLabel(i-1)))
		}
		if i < n-1 {
			b.Add(proxy, vocab.IANANext, b.Blank(proxyLabel(i+1)))
		}
	}
	if n > 0 {
		b.Add(doc, vocab.IANAFirst, b.Blank(proxyLabel(0)))
		b.Add(doc, vocab.IANALast, b.Blank(proxyLabel(n-1)))
	}
	return b.Triples()
}

func proxyLabel(i int) string { return "proxy" + strconv.Itoa(i+1) }
