// Package skos builds the SKOS/registry statements that describe one
// taxonomy node, serializes them to Turtle, and compares documents as
// statement sets.
package skos

// Namespaces used by generated documents.
const (
	NSRDF  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NSRDFS = "http://www.w3.org/2000/01/rdf-schema#"
	NSSKOS = "http://www.w3.org/2004/02/skos/core#"
	NSDCT  = "http://purl.org/dc/terms/"
	NSLDP  = "http://www.w3.org/ns/ldp#"
	NSReg  = "http://purl.org/linked-data/registry#"
	NSXSD  = "http://www.w3.org/2001/XMLSchema#"
)

// Terms.
const (
	RDFType = NSRDF + "type"

	RDFSLabel       = NSRDFS + "label"
	RDFSIsDefinedBy = NSRDFS + "isDefinedBy"
	RDFSMember      = NSRDFS + "member"

	SKOSConcept    = NSSKOS + "Concept"
	SKOSCollection = NSSKOS + "Collection"
	SKOSMember     = NSSKOS + "member"
	SKOSNotation   = NSSKOS + "notation"

	DCTDescription = NSDCT + "description"

	LDPContainer         = NSLDP + "Container"
	LDPHasMemberRelation = NSLDP + "hasMemberRelation"

	RegRegister    = NSReg + "Register"
	RegSubregister = NSReg + "subregister"
)

// prefixes maps namespace IRIs to the prefix written in Turtle output.
var prefixes = map[string]string{
	NSRDFS: "rdfs",
	NSSKOS: "skos",
	NSDCT:  "dct",
	NSLDP:  "ldp",
	NSReg:  "reg",
}
