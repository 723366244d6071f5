package mcpserver

// DocumentFormat describes the CSV source layout and the documents the
// compiler produces from it.
const DocumentFormat = `# Taxonomy Source and Document Format

## Sources

The source tree is a directory of CSV tables (UTF-8, optional byte order mark).

- A directory holding ` + "`" + `index.csv` + "`" + ` lists its members in columns
  ` + "`" + `Name` + "`" + `, ` + "`" + `Description` + "`" + ` and an optional ` + "`" + `Source` + "`" + `.
  A member with a sub-directory of the same name is a collection; any other
  member is a concept.
- A directory holding ` + "`" + `index-flat.csv` + "`" + ` describes a whole subtree in one table.
  Every level has a name column and a ` + "`" + `<name>-description` + "`" + ` column.
  Rows must be sorted left-to-right; repeated leading values share a node.

## Output

One Turtle document per node at ` + "`" + `<parent path>/<name>.ttl` + "`" + `.

- The root is a ` + "`" + `reg:Register` + "`" + ` listing its collections as ` + "`" + `reg:subregister` + "`" + `.
- Collections are ` + "`" + `reg:Register` + "`" + `, ` + "`" + `skos:Collection` + "`" + ` and ` + "`" + `ldp:Container` + "`" + `
  with ` + "`" + `ldp:hasMemberRelation skos:member` + "`" + `.
- Concepts are ` + "`" + `skos:Concept` + "`" + ` with ` + "`" + `skos:notation` + "`" + ` and an English ` + "`" + `dct:description` + "`" + `.
- A non-empty source becomes ` + "`" + `rdfs:isDefinedBy` + "`" + `.

Subjects are relative IRIs; the registry resolves them against the address a
document is published to.
`
