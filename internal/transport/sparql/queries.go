package sparql

import (
	"fmt"
	"strings"

	"github.com/knakk/rdf"

	"github.com/UMD-DRASTIC/drastic-trellis/internal/graph"
	"github.com/UMD-DRASTIC/drastic-trellis/internal/vocab"
)

// Ref renders iri as a SPARQL IRI reference, rejecting values that could
// escape the angle brackets.
func Ref(iri string) (string, error) {
	if iri == "" || strings.ContainsAny(iri, "<>\"{}|^`\\ \t\n\r") {
		return "", fmt.Errorf("invalid iri %q", iri)
	}
	t, err := rdf.NewIRI(iri)
	if err != nil {
		return "", fmt.Errorf("invalid iri %q: %w", iri, err)
	}
	return t.Serialize(rdf.NTriples), nil
}

func refs(iris ...string) ([]any, error) {
	out := make([]any, len(iris))
	for i, s := range iris {
		r, err := Ref(s)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func render(format string, iris ...string) (string, error) {
	args, err := refs(iris...)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(format, args...), nil
}

// InsertData adds triples to a named graph.
func InsertData(graphIRI string, triples []graph.Triple) (string, error) {
	g, err := Ref(graphIRI)
	if err != nil {
		return "", err
	}
	return "INSERT DATA { GRAPH " + g + " {\n" + graph.Serialize(triples) + "} }", nil
}

// ClearGraph removes every triple from a named graph.
func ClearGraph(graphIRI string) (string, error) {
	return render("DELETE WHERE { GRAPH %s { ?s ?p ?o } }", graphIRI)
}

// DeleteContainment removes the contains edges of subject from the containment graph.
func DeleteContainment(containmentGraph, subject string) (string, error) {
	return render("DELETE WHERE { GRAPH %s { %s %s ?o } }", containmentGraph, subject, vocab.LDPContains)
}

// ContainmentClosure selects every resource reachable from root by one or
// more contains hops in the containment graph.
func ContainmentClosure(containmentGraph, root string) (string, error) {
	return render("SELECT ?o FROM %s WHERE { %s %s*/%s ?o . }",
		containmentGraph, root, vocab.LDPContains, vocab.LDPContains)
}

// SubjectsIn selects the distinct subjects of a named graph.
func SubjectsIn(graphIRI string) (string, error) {
	return render("SELECT DISTINCT ?s FROM %s WHERE { ?s ?p ?o . }", graphIRI)
}

// SubjectStatements selects the statements about subject across all named graphs.
func SubjectStatements(subject string) (string, error) {
	return render("SELECT ?p ?o WHERE { GRAPH ?g { %s ?p ?o . } }", subject)
}

// ObjectThumbnail follows first, proxyFor and hasThumbnail from a paged object.
func ObjectThumbnail(subject string) (string, error) {
	return render("SELECT ?t WHERE { GRAPH ?g { %s %s ?proxy . ?proxy %s ?page . ?page %s ?t . } } LIMIT 1",
		subject, vocab.IANAFirst, vocab.OREProxyFor, vocab.NPSHasThumbnail)
}
