package graph

import (
	"fmt"

	"github.com/knakk/rdf"
)

// Builder accumulates triples. Construction errors are sticky: the first one
// is kept and returned by Triples.
type Builder struct {
	triples []Triple
	err     error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// IRI makes an IRI term, recording an error if iri is invalid.
func (b *Builder) IRI(iri string) rdf.IRI {
	t, err := rdf.NewIRI(iri)
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("iri %q: %w", iri, err)
	}
	return t
}

// Blank makes a blank node with a caller-chosen label.
func (b *Builder) Blank(label string) rdf.Blank {
	t, err := rdf.NewBlank(label)
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("blank node %q: %w", label, err)
	}
	return t
}

// Literal makes a plain string literal.
func (b *Builder) Literal(v string) rdf.Literal {
	t, err := rdf.NewLiteral(v)
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("literal %q: %w", v, err)
	}
	return t
}

// Add appends a statement.
func (b *Builder) Add(s rdf.Subject, p string, o rdf.Object) {
	b.triples = append(b.triples, Triple{Subj: s, Pred: b.IRI(p), Obj: o})
}

// Triples returns the accumulated statements or the first construction error.
func (b *Builder) Triples() ([]Triple, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.triples, nil
}
