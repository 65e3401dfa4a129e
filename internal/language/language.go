package language

import (
	"fmt"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
)

// Error is the wire-level GraphQL error shape (message, locations, path).
type Error = gqlerror.Error

func ParseQuery(source string) (*QueryDocument, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// SelectionKey derives a comparable identity for a selection set from its
// AST node pointers. Merged sets built at interface positions can share a
// leading node while differing after it, so every element participates.
func SelectionKey(sel SelectionSet) string {
	var b strings.Builder
	for _, s := range sel {
		fmt.Fprintf(&b, "%p;", s)
	}
	return b.String()
}

func ParseSchema(name, source string) (*SchemaDocument, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, err
	}
	return doc, nil
}
