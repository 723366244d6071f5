package skos

// BuildCollection describes an internal node of the taxonomy.
func BuildCollection(name, description, source string) *Document {
	d := &Document{Subject: name}
	d.add(RDFType, IRI(RegRegister))
	d.add(RDFType, IRI(SKOSCollection))
	d.add(RDFType, IRI(LDPContainer))
	d.add(LDPHasMemberRelation, IRI(SKOSMember))
	d.add(RDFSLabel, Literal(name))
	d.add(DCTDescription, Literal(description))
	d.addSource(source)
	return d
}

// BuildConcept describes a leaf of the taxonomy.
func BuildConcept(name, description, source string) *Document {
	d := &Document{Subject: name}
	d.add(RDFType, IRI(SKOSConcept))
	d.add(RDFSLabel, Literal(name))
	d.add(SKOSNotation, Literal(name))
	d.add(DCTDescription, LangLiteral(description, "en"))
	d.addSource(source)
	return d
}

// BuildRegister describes the root register. subregisters are the relative
// IRIs of its direct children, in source order.
func BuildRegister(name, description string, subregisters []string) *Document {
	d := BuildCollection(name, description, "")
	for _, s := range subregisters {
		d.add(RegSubregister, IRI(s))
	}
	return d
}
