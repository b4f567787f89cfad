package names

import (
	"strings"
)

// Selector is a foreign message selector. A nullary selector has one piece and
// no arguments; a keyword selector has one piece per argument.
type Selector struct {
	pieces  []string
	numArgs int
}

// NewSelector builds a selector from its pieces. numArgs == 0 requires exactly
// one piece.
func NewSelector(numArgs int, pieces ...string) Selector {
	p := make([]string, len(pieces))
	copy(p, pieces)
	return Selector{pieces: p, numArgs: numArgs}
}

// ParseSelector parses the textual form ("description", "initWithFrame:style:",
// "foo::"). Malformed input yields the null selector.
func ParseSelector(s string) Selector {
	s = strings.TrimSpace(s)
	if s == "" {
		return Selector{}
	}
	if !strings.Contains(s, ":") {
		if !isIdentifier(s) {
			return Selector{}
		}
		return Selector{pieces: []string{s}, numArgs: 0}
	}
	if !strings.HasSuffix(s, ":") {
		return Selector{}
	}
	pieces := strings.Split(strings.TrimSuffix(s, ":"), ":")
	for i, p := range pieces {
		if p == "" && i == 0 {
			continue
		}
		if p != "" && !isIdentifier(p) {
			return Selector{}
		}
	}
	return Selector{pieces: pieces, numArgs: len(pieces)}
}

// NumArgs returns the number of arguments the selector takes.
func (s Selector) NumArgs() int { return s.numArgs }

// IsNull reports whether this is the null selector.
func (s Selector) IsNull() bool { return len(s.pieces) == 0 }

// Piece returns the i-th identifier piece, or "" when out of range.
func (s Selector) Piece(i int) string {
	if i < 0 || i >= len(s.pieces) {
		return ""
	}
	return s.pieces[i]
}

// Pieces returns a copy of the selector pieces.
func (s Selector) Pieces() []string {
	out := make([]string, len(s.pieces))
	copy(out, s.pieces)
	return out
}

// Equal reports structural equality.
func (s Selector) Equal(o Selector) bool {
	if s.numArgs != o.numArgs || len(s.pieces) != len(o.pieces) {
		return false
	}
	for i := range s.pieces {
		if s.pieces[i] != o.pieces[i] {
			return false
		}
	}
	return true
}

func (s Selector) String() string {
	if s.IsNull() {
		return ""
	}
	if s.numArgs == 0 {
		return s.pieces[0]
	}
	var sb strings.Builder
	for _, p := range s.pieces {
		sb.WriteString(p)
		sb.WriteByte(':')
	}
	return sb.String()
}

// DeclName is a structured host name: a base name plus one label per
// argument. The empty label stands for an unlabeled argument.
type DeclName struct {
	Base   string
	Labels []string
}

// SimpleName returns a name without an argument list.
func SimpleName(base string) DeclName {
	return DeclName{Base: base}
}

// CompoundName returns a name with the given argument labels.
func CompoundName(base string, labels ...string) DeclName {
	l := make([]string, len(labels))
	copy(l, labels)
	return DeclName{Base: base, Labels: l}
}

// IsEmpty reports whether the name is unset.
func (n DeclName) IsEmpty() bool { return n.Base == "" }

// IsSimple reports whether the name has no argument labels.
func (n DeclName) IsSimple() bool { return len(n.Labels) == 0 }

// Equal reports whether two names have the same base and labels.
func (n DeclName) Equal(o DeclName) bool {
	if n.Base != o.Base || len(n.Labels) != len(o.Labels) {
		return false
	}
	for i := range n.Labels {
		if n.Labels[i] != o.Labels[i] {
			return false
		}
	}
	return true
}

// WithLabels returns a copy of n carrying the given labels.
func (n DeclName) WithLabels(labels []string) DeclName {
	return CompoundName(n.Base, labels...)
}

func (n DeclName) String() string {
	if n.IsSimple() {
		return n.Base
	}
	var sb strings.Builder
	sb.WriteString(n.Base)
	sb.WriteByte('(')
	for _, l := range n.Labels {
		if l == "" {
			sb.WriteByte('_')
		} else {
			sb.WriteString(l)
		}
		sb.WriteByte(':')
	}
	sb.WriteByte(')')
	return sb.String()
}

// ParseDeclName parses "foo", "foo()", "init(frame:)" or "foo(_:bar:)".
// Member-qualified names ("Type.member") are not accepted.
func ParseDeclName(s string) (DeclName, bool) {
	s = strings.TrimSpace(s)
	open := strings.IndexByte(s, '(')
	if open < 0 {
		if !isIdentifier(s) {
			return DeclName{}, false
		}
		return SimpleName(s), true
	}
	base := s[:open]
	if !isIdentifier(base) || !strings.HasSuffix(s, ")") {
		return DeclName{}, false
	}
	inner := s[open+1 : len(s)-1]
	if inner == "" {
		return DeclName{Base: base, Labels: []string{}}, true
	}
	if !strings.HasSuffix(inner, ":") {
		return DeclName{}, false
	}
	parts := strings.Split(strings.TrimSuffix(inner, ":"), ":")
	labels := make([]string, len(parts))
	for i, p := range parts {
		switch {
		case p == "_":
			labels[i] = ""
		case isIdentifier(p):
			labels[i] = p
		default:
			return DeclName{}, false
		}
	}
	return DeclName{Base: base, Labels: labels}, true
}

// ImportSelector maps a foreign selector onto a host name. The first piece
// becomes the base name; the first argument is unlabeled and every
// subsequent piece labels its argument. A nullary selector has no labels.
func ImportSelector(sel Selector) DeclName {
	if sel.IsNull() {
		return DeclName{}
	}
	base := sel.pieces[0]
	if sel.numArgs == 0 {
		return SimpleName(base)
	}
	labels := make([]string, sel.numArgs)
	for i := 1; i < sel.numArgs; i++ {
		labels[i] = sel.pieces[i]
	}
	return DeclName{Base: base, Labels: labels}
}

// ExportSelector is the inverse of ImportSelector. A name without labels maps
// onto the nullary selector built from its base; when allowSimpleName is false
// such a name is still exported as that zero-argument piece, provided the base
// is a valid selector piece. A name whose first label is non-empty has no
// selector form.
func ExportSelector(name DeclName, allowSimpleName bool) (Selector, bool) {
	if name.Base == "" {
		return Selector{}, false
	}
	if name.IsSimple() {
		return NewSelector(0, name.Base), allowSimpleName || isIdentifier(name.Base)
	}
	if name.Labels[0] != "" {
		return Selector{}, false
	}
	pieces := make([]string, 0, len(name.Labels))
	pieces = append(pieces, name.Base)
	pieces = append(pieces, name.Labels[1:]...)
	return NewSelector(len(pieces), pieces...), true
}

// Interner canonicalizes identifiers produced during import so repeated
// names share storage.
type Interner struct {
	strs map[string]string
}

// NewInterner creates an empty interner.
func NewInterner() *Interner {
	return &Interner{strs: make(map[string]string)}
}

// Intern returns the canonical copy of s.
func (in *Interner) Intern(s string) string {
	if s == "" {
		return ""
	}
	if c, ok := in.strs[s]; ok {
		return c
	}
	c := strings.Clone(s)
	in.strs[c] = c
	return c
}

// InternName interns the base and every label of n.
func (in *Interner) InternName(n DeclName) DeclName {
	out := DeclName{Base: in.Intern(n.Base)}
	if n.Labels != nil {
		out.Labels = make([]string, len(n.Labels))
		for i, l := range n.Labels {
			out.Labels[i] = in.Intern(l)
		}
	}
	return out
}

// Len returns the number of distinct identifiers interned.
func (in *Interner) Len() int { return len(in.strs) }

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
