package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Render produces SDL from the Schema, including the generated API surface.
// Type names are sorted lexicographically so output is deterministic.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	var b strings.Builder

	typeNames := make([]string, 0, len(s.Types))
	for name, typ := range s.Types {
		switch typ {
		case stringType, intType, floatType, booleanType, idType:
			continue
		default:
			typeNames = append(typeNames, name)
		}
	}
	sort.Strings(typeNames)

	for _, name := range typeNames {
		typ := s.Types[name]
		switch typ.Kind {
		case TypeKindScalar:
			renderDescription(&b, typ.Description)
			fmt.Fprintf(&b, "scalar %s\n\n", typ.Name)
		case TypeKindEnum:
			renderEnum(&b, typ)
		case TypeKindInputObject:
			renderInputObject(&b, typ)
		case TypeKindObject:
			renderComposite(&b, "type", typ)
		case TypeKindInterface:
			renderComposite(&b, "interface", typ)
		case TypeKindUnion:
			renderDescription(&b, typ.Description)
			fmt.Fprintf(&b, "union %s = %s\n\n", typ.Name, strings.Join(typ.PossibleTypes, " | "))
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func renderDescription(b *strings.Builder, desc string) {
	if desc == "" {
		return
	}
	b.WriteString("\"\"\"\n")
	b.WriteString(strings.ReplaceAll(desc, "\"", "\\\""))
	b.WriteString("\n\"\"\"\n")
}

func renderEnum(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description)
	fmt.Fprintf(b, "enum %s {\n", typ.Name)
	for _, val := range typ.EnumValues {
		fmt.Fprintf(b, "  %s\n", val.Name)
	}
	b.WriteString("}\n\n")
}

func renderInputObject(b *strings.Builder, typ *Type) {
	renderDescription(b, typ.Description)
	fmt.Fprintf(b, "input %s {\n", typ.Name)
	for _, field := range typ.InputFields {
		fmt.Fprintf(b, "  %s: %s", field.Name, renderTypeRef(field.Type))
		if field.DefaultValue != nil {
			fmt.Fprintf(b, " = %s", RenderValue(field.DefaultValue))
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n\n")
}

func renderComposite(b *strings.Builder, keyword string, typ *Type) {
	renderDescription(b, typ.Description)
	fmt.Fprintf(b, "%s %s", keyword, typ.Name)
	if len(typ.Interfaces) > 0 {
		fmt.Fprintf(b, " implements %s", strings.Join(typ.Interfaces, " & "))
	}
	if typ.IsEntity {
		b.WriteString(" @entity")
	}
	b.WriteString(" {\n")
	for _, field := range typ.Fields {
		renderField(b, field)
	}
	b.WriteString("}\n\n")
}

func renderField(b *strings.Builder, field *Field) {
	b.WriteString("  ")
	b.WriteString(field.Name)
	if len(field.Arguments) > 0 {
		b.WriteString("(")
		for i, arg := range field.Arguments {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(b, "%s: %s", arg.Name, renderTypeRef(arg.Type))
			if arg.DefaultValue != nil {
				fmt.Fprintf(b, " = %s", RenderValue(arg.DefaultValue))
			}
		}
		b.WriteString(")")
	}
	fmt.Fprintf(b, ": %s", renderTypeRef(field.Type))
	if field.DerivedFrom != "" {
		fmt.Fprintf(b, " @derivedFrom(field: %q)", field.DerivedFrom)
	}
	b.WriteString("\n")
}

func renderTypeRef(t *TypeRef) string {
	switch t.Kind {
	case TypeRefKindNonNull:
		return renderTypeRef(t.OfType) + "!"
	case TypeRefKindList:
		return "[" + renderTypeRef(t.OfType) + "]"
	default:
		return t.Named
	}
}

// RenderValue prints a coerced input value as a GraphQL literal.
func RenderValue(v any) string {
	switch val := v.(type) {
	case string:
		// Enum defaults (asc, desc) render bare; everything else quoted.
		if isEnumLike(val) {
			return val
		}
		return strconv.Quote(val)
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%v", val)
	}
}

func isEnumLike(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return s != "" && s != "true" && s != "false" && s != "null"
}
