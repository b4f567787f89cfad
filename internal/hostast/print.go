package hostast

import (
	"fmt"
	"strings"

	"github.com/biyu6/swift/internal/names"
)

// Print renders d, and its members, as host interface text.
func Print(d *Decl) string {
	var sb strings.Builder
	printDecl(&sb, d, "")
	return sb.String()
}

func printDecl(sb *strings.Builder, d *Decl, indent string) {
	for _, a := range d.Attrs {
		sb.WriteString(indent + attrString(a) + "\n")
	}
	sb.WriteString(indent)
	switch d.Kind {
	case KindClass, KindStruct, KindProtocol, KindEnum, KindExtension:
		printNominal(sb, d, indent)
		return
	case KindTypeAlias:
		fmt.Fprintf(sb, "typealias %s = %s\n", ident(d.Name.Base), d.Type)
	case KindEnumElement:
		sb.WriteString("case " + ident(d.Name.Base))
		if d.RawValue != "" {
			sb.WriteString(" = " + d.RawValue)
		}
		sb.WriteByte('\n')
	case KindVar:
		sb.WriteString(staticPrefix(d))
		if d.IsLet {
			fmt.Fprintf(sb, "let %s: %s", ident(d.Name.Base), d.Type)
		} else {
			fmt.Fprintf(sb, "var %s: %s", ident(d.Name.Base), d.Type)
			if d.Context != nil {
				sb.WriteString(accessors(d.Settable))
			}
		}
		if d.RawValue != "" && d.IsLet {
			sb.WriteString(" = " + d.RawValue)
		}
		sb.WriteByte('\n')
	case KindFunc:
		if d.Optional {
			sb.WriteString("optional ")
		}
		sb.WriteString(staticPrefix(d))
		fmt.Fprintf(sb, "func %s(%s)", ident(d.Name.Base), params(d))
		writeResult(sb, d)
		sb.WriteByte('\n')
	case KindConstructor:
		if d.Optional {
			sb.WriteString("optional ")
		}
		if d.Required {
			sb.WriteString("required ")
		}
		if d.InitKind == InitConvenience || d.InitKind == InitConvenienceFactory {
			sb.WriteString("convenience ")
		}
		sb.WriteString("init")
		switch d.Failable {
		case Optional:
			sb.WriteByte('?')
		case ImplicitlyUnwrapped:
			sb.WriteByte('!')
		}
		fmt.Fprintf(sb, "(%s)", params(d))
		if d.Throws {
			sb.WriteString(" throws")
		}
		sb.WriteByte('\n')
	case KindSubscript:
		fmt.Fprintf(sb, "subscript(%s) -> %s%s\n", params(d), d.Type, accessors(d.Setter != nil))
	}
}

func printNominal(sb *strings.Builder, d *Decl, indent string) {
	name := ident(d.Name.Base)
	if d.Kind == KindExtension && d.Type != nil {
		name = d.Type.String()
	}
	sb.WriteString(d.Kind.String() + " " + name)
	var inherits []string
	if d.Kind == KindEnum && d.Type != nil {
		inherits = append(inherits, d.Type.String())
	}
	if d.Superclass != nil {
		inherits = append(inherits, d.Superclass.QualifiedName())
	}
	for _, p := range d.Inherited {
		inherits = append(inherits, p.QualifiedName())
	}
	if len(inherits) > 0 {
		sb.WriteString(" : " + strings.Join(inherits, ", "))
	}
	members := d.Members()
	if len(members) == 0 {
		sb.WriteString(" {\n" + indent + "}\n")
		return
	}
	sb.WriteString(" {\n")
	for _, m := range members {
		printDecl(sb, m, indent+"  ")
	}
	sb.WriteString(indent + "}\n")
}

func writeResult(sb *strings.Builder, d *Decl) {
	if d.Throws {
		sb.WriteString(" throws")
	}
	if d.Result != nil && !d.Result.IsVoid() {
		sb.WriteString(" -> " + d.Result.String())
	}
}

func params(d *Decl) string {
	parts := make([]string, len(d.Params))
	for i, p := range d.Params {
		var s string
		switch {
		case p.Label == "":
			s = "_ " + p.Name
		case p.Label == p.Name:
			s = ident(p.Name)
		default:
			s = ident(p.Label) + " " + p.Name
		}
		s += ": " + p.Type.String()
		if p.Default != "" {
			s += " = " + p.Default
		}
		parts[i] = s
	}
	return strings.Join(parts, ", ")
}

func staticPrefix(d *Decl) string {
	if !d.IsStatic {
		return ""
	}
	if c := d.NominalContext(); c != nil && c.Kind == KindClass {
		return "class "
	}
	return "static "
}

func accessors(settable bool) string {
	if settable {
		return " { get set }"
	}
	return " { get }"
}

func attrString(a Attribute) string {
	platform := a.Platform
	if platform == "" {
		platform = "*"
	}
	switch a.Kind {
	case AttrUnavailable:
		s := "@available(" + platform + ", unavailable"
		if a.Renamed != "" {
			s += fmt.Sprintf(", renamed: %q", a.Renamed)
		}
		if a.Message != "" {
			s += fmt.Sprintf(", message: %q", a.Message)
		}
		return s + ")"
	case AttrDeprecated:
		s := "@available(" + platform + ", deprecated"
		if a.Version != "" {
			s += ": " + a.Version
		}
		if a.Message != "" {
			s += fmt.Sprintf(", message: %q", a.Message)
		}
		return s + ")"
	case AttrObsoleted:
		return fmt.Sprintf("@available(%s, obsoleted: %s)", platform, a.Version)
	default:
		return fmt.Sprintf("@available(%s %s, *)", platform, a.Introduced)
	}
}

func ident(s string) string {
	if names.IsReservedName(s) {
		return "`" + s + "`"
	}
	return s
}
