// Package vocab holds the RDF vocabulary tables used across the pipeline.
//
// All tables are built once at package initialisation and never mutated.
package vocab

import "strings"

// Namespaces.
const (
	RDFNS     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	LDPNS     = "http://www.w3.org/ns/ldp#"
	PCDMNS    = "http://pcdm.org/models#"
	ORENS     = "http://www.openarchives.org/ore/terms/"
	IANANS    = "http://www.iana.org/assignments/relation/"
	NPSNS     = "https://example.nps.gov/2021/nps-workflow#"
	DCTermsNS = "http://purl.org/dc/terms/"
	ICMSNS    = "https://rediscoverysoftware.com/schema/icms_ns/"
	SKOSNS    = "http://www.w3.org/2004/02/skos/core#"
	SKOSXLNS  = "http://www.w3.org/2008/05/skos-xl#"
	PROVNS    = "http://www.w3.org/ns/prov#"
	ASNS      = "https://www.w3.org/ns/activitystreams#"
	ASContext = "https://www.w3.org/ns/activitystreams"
	AgentsNS  = "https://example.nps.gov/2021/drastic-agents#"
	XSDString = "http://www.w3.org/2001/XMLSchema#string"
)

// RDF terms.
var (
	RDFType = RDFNS + "type"
)

// LDP terms.
var (
	LDPContains          = LDPNS + "contains"
	LDPContainer         = LDPNS + "Container"
	LDPBasicContainer    = LDPNS + "BasicContainer"
	LDPDirectContainer   = LDPNS + "DirectContainer"
	LDPIndirectContainer = LDPNS + "IndirectContainer"
	LDPRDFSource         = LDPNS + "RDFSource"
	LDPNonRDFSource      = LDPNS + "NonRDFSource"
)

// PCDM terms.
var (
	PCDMCollection = PCDMNS + "Collection"
	PCDMObject     = PCDMNS + "Object"
	PCDMHasMember  = PCDMNS + "hasMember"
	PCDMHasFile    = PCDMNS + "hasFile"
)

// ORE terms.
var (
	OREProxy    = ORENS + "Proxy"
	OREProxyIn  = ORENS + "proxyIn"
	OREProxyFor = ORENS + "proxyFor"
)

// IANA link relations.
var (
	IANAFirst = IANANS + "first"
	IANALast  = IANANS + "last"
	IANANext  = IANANS + "next"
	IANAPrev  = IANANS + "prev"
)

// NPS workflow terms.
var (
	NPSContainsGraph   = NPSNS + "containsGraph"
	NPSMissingPageFile = NPSNS + "MissingPageFile"
	NPSPath            = NPSNS + "path"
	NPSHasAccess       = NPSNS + "hasAccess"
	NPSHasThumbnail    = NPSNS + "hasThumbnail"
)

// SKOS terms.
var (
	SKOSConcept       = SKOSNS + "Concept"
	SKOSPrefLabel     = SKOSNS + "prefLabel"
	SKOSAltLabel      = SKOSNS + "altLabel"
	SKOSXLAltLabel    = SKOSXLNS + "altLabel"
	SKOSXLLiteralForm = SKOSXLNS + "literalForm"
)

// Provenance and activity stream terms.
var (
	PROVActivity = PROVNS + "Activity"
	ASCreate     = ASNS + "Create"
	ASUpdate     = ASNS + "Update"
	ASDelete     = ASNS + "Delete"
	CrawlerAgent = AgentsNS + "crawler"
)

// DCTerms lists the Dublin Core terms the ingest pipeline produces, by local name.
var DCTerms = map[string]string{
	"identifier":          DCTermsNS + "identifier",
	"title":               DCTermsNS + "title",
	"creator":             DCTermsNS + "creator",
	"subject":             DCTermsNS + "subject",
	"description":         DCTermsNS + "description",
	"date":                DCTermsNS + "date",
	"rights":              DCTermsNS + "rights",
	"type":                DCTermsNS + "type",
	"language":            DCTermsNS + "language",
	"ProvenanceStatement": DCTermsNS + "ProvenanceStatement",
	"format":              DCTermsNS + "format",
}

// ICMS terms referenced directly by the indexer.
var (
	ICMSID       = ICMSNS + "id"
	ICMSLevel    = ICMSNS + "level"
	ICMSNotes    = ICMSNS + "Notes"
	ICMSLocation = ICMSNS + "Location"
	ICMSAddlAcc  = ICMSNS + "Addl_x0020_Acc_x0023_"
)

// ICMSFulltextExclusions are ICMS predicates never copied into full text.
var ICMSFulltextExclusions = map[string]struct{}{
	ICMSNotes:    {},
	ICMSLocation: {},
	ICMSAddlAcc:  {},
}

var containerTypes = map[string]struct{}{
	LDPContainer:         {},
	LDPBasicContainer:    {},
	LDPDirectContainer:   {},
	LDPIndirectContainer: {},
}

// IsContainerType reports whether iri names one of the LDP container interaction models.
func IsContainerType(iri string) bool {
	_, ok := containerTypes[iri]
	return ok
}

// InNamespace reports whether iri lives directly under ns.
func InNamespace(iri, ns string) bool {
	return len(iri) > len(ns) && strings.HasPrefix(iri, ns)
}

// LocalName returns the part of iri after the last '#' or '/'.
func LocalName(iri string) string {
	if i := strings.LastIndexAny(iri, "#/"); i >= 0 {
		return iri[i+1:]
	}
	return iri
}
