// Package graph is a small RDF helper layer over knakk/rdf used by every
// stage that reads or writes resource statements.
package graph

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/knakk/rdf"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/vocab"
)

// ErrSyntax signals an N-Triples document that does not parse. Callers decide
// whether that is a bad request or a bad remote response.
var ErrSyntax = errors.New("n-triples syntax error")

// Triple is an RDF statement.
type Triple = rdf.Triple

// ParseNTriples decodes an N-Triples document.
func ParseNTriples(r io.Reader) ([]Triple, error) {
	dec := rdf.NewTripleDecoder(r, rdf.NTriples)
	var out []Triple
	for {
		t, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decode n-triples: %w: %w", ErrSyntax, err)
		}
		out = append(out, t)
	}
}

// Serialize renders triples as N-Triples, one statement per line.
// The output is also valid Turtle.
func Serialize(triples []Triple) string {
	var sb strings.Builder
	for _, t := range triples {
		sb.WriteString(strings.TrimRight(t.Serialize(rdf.NTriples), "\n"))
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Partition splits triples into those with the given predicate and the rest,
// preserving order within each side.
func Partition(triples []Triple, predicate string) (matched, rest []Triple) {
	for _, t := range triples {
		if t.Pred.String() == predicate {
			matched = append(matched, t)
		} else {
			rest = append(rest, t)
		}
	}
	return matched, rest
}

// ObjectIRIs returns the IRI objects of statements with the given predicate.
// An empty subject matches any subject.
func ObjectIRIs(triples []Triple, subject, predicate string) []string {
	var out []string
	for _, t := range triples {
		if t.Pred.String() != predicate {
			continue
		}
		if subject != "" && t.Subj.String() != subject {
			continue
		}
		if t.Obj.Type() == rdf.TermIRI {
			out = append(out, t.Obj.String())
		}
	}
	return out
}

// SubjectsOfType returns the IRI subjects typed with class, in first-seen order.
func SubjectsOfType(triples []Triple, class string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range triples {
		if t.Pred.String() != vocab.RDFType || t.Obj.String() != class {
			continue
		}
		if t.Subj.Type() != rdf.TermIRI || seen[t.Subj.String()] {
			continue
		}
		seen[t.Subj.String()] = true
		out = append(out, t.Subj.String())
	}
	return out
}

// Values returns the lexical values of the objects of (subject, predicate).
// Subject is matched against the serialized term so blank nodes work too.
func Values(triples []Triple, subject rdf.Term, predicate string) []rdf.Term {
	var out []rdf.Term
	for _, t := range triples {
		if t.Pred.String() == predicate && sameTerm(t.Subj, subject) {
			out = append(out, t.Obj)
		}
	}
	return out
}

// Sort orders triples by their N-Triples serialization.
func Sort(triples []Triple) {
	sort.SliceStable(triples, func(i, j int) bool {
		return triples[i].Serialize(rdf.NTriples) < triples[j].Serialize(rdf.NTriples)
	})
}

func sameTerm(a, b rdf.Term) bool {
	return a.Type() == b.Type() && a.String() == b.String()
}
