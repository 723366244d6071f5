package skos

// TermKind distinguishes IRIs from literals.
type TermKind int

const (
	KindIRI TermKind = iota
	KindLiteral
)

// Term is the object of a statement.
type Term struct {
	Kind  TermKind
	Value string
	Lang  string
}

// IRI returns an IRI term. Relative IRIs are resolved by the registry
// against the address the document is posted to.
func IRI(v string) Term { return Term{Kind: KindIRI, Value: v} }

// Literal returns a plain string literal.
func Literal(v string) Term { return Term{Kind: KindLiteral, Value: v} }

// LangLiteral returns a language-tagged literal.
func LangLiteral(v, lang string) Term { return Term{Kind: KindLiteral, Value: v, Lang: lang} }

// Statement is a predicate/object pair about a document's subject.
type Statement struct {
	Predicate string
	Object    Term
}

// Document is the statement list describing one taxonomy node. Subject is
// the node name, written as a relative IRI.
type Document struct {
	Subject    string
	Statements []Statement
}

func (d *Document) add(predicate string, object Term) {
	d.Statements = append(d.Statements, Statement{Predicate: predicate, Object: object})
}

// addSource appends the provenance statement only when a source is known.
func (d *Document) addSource(source string) {
	if source == "" {
		return
	}
	d.add(RDFSIsDefinedBy, Literal(source))
}
