// Package enums decides how a foreign enumeration is represented in the host
// language and which common prefix its constants lose on import.
package enums

import (
	"math/bits"
	"strings"

	"github.com/biyu6/swift/internal/apinotes"
	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/hostast"
	"github.com/biyu6/swift/internal/names"
)

// Kind is the host representation chosen for a foreign enum.
type Kind int

const (
	// CasesEnum imports as a host enumeration with one case per constant.
	CasesEnum Kind = iota
	// OptionsSet imports as a bit-set type with one static member per flag.
	OptionsSet
	// OpaqueConstants imports as a distinct type whose constants are
	// global values of that type.
	OpaqueConstants
	// RawConstants imports the constants as plain integers.
	RawConstants
)

func (k Kind) String() string {
	switch k {
	case CasesEnum:
		return "enum"
	case OptionsSet:
		return "options"
	case OpaqueConstants:
		return "opaque-constants"
	default:
		return "raw-constants"
	}
}

// MinOptionBits is the number of distinct single-bit constants an enum
// without any annotation needs before it is treated as a bit set.
const MinOptionBits = 3

var optionSuffixes = []string{"Options", "Mask", "Flags"}

// Classifier caches the classification and common prefix of each enum.
type Classifier struct {
	notes    *apinotes.Store
	kinds    map[*foreign.Decl]Kind
	prefixes map[*foreign.Decl]string
}

// NewClassifier creates a classifier. notes may be nil.
func NewClassifier(notes *apinotes.Store) *Classifier {
	return &Classifier{
		notes:    notes,
		kinds:    make(map[*foreign.Decl]Kind),
		prefixes: make(map[*foreign.Decl]string),
	}
}

// Name returns the name an enum is known by: its tag, or the typedef naming
// it when it is anonymous.
func Name(e *foreign.Decl) string {
	if e.Name == "" && e.TypedefName != nil {
		return e.TypedefName.Name
	}
	return e.Name
}

// Classify returns the representation for e. Explicit signals win over
// heuristics, and an enum without any signal imports as raw constants.
func (c *Classifier) Classify(e *foreign.Decl) Kind {
	if k, ok := c.kinds[e]; ok {
		return k
	}
	k := c.classify(e)
	c.kinds[e] = k
	return k
}

func (c *Classifier) classify(e *foreign.Decl) Kind {
	if k, ok := c.noteKind(e); ok {
		return k
	}
	switch {
	case e.Attrs.FlagEnum, e.Attrs.EnumMacro == foreign.MacroNSOptions, e.Attrs.EnumMacro == foreign.MacroCFOptions:
		return OptionsSet
	case e.Attrs.Extensibility == foreign.ExtensibilityClosed,
		e.Attrs.EnumMacro == foreign.MacroNSEnum, e.Attrs.EnumMacro == foreign.MacroNSClosedEnum:
		return CasesEnum
	}
	name := Name(e)
	for _, suffix := range optionSuffixes {
		if name != "" && strings.HasSuffix(name, suffix) && names.IsWordBoundary(name, len(name)-len(suffix)) {
			return OptionsSet
		}
	}
	if looksLikeBitSet(constants(e)) {
		return OptionsSet
	}
	if e.Attrs.Extensibility == foreign.ExtensibilityOpen || e.Attrs.EnumMacro == foreign.MacroCFEnum {
		return OpaqueConstants
	}
	return RawConstants
}

func (c *Classifier) noteKind(e *foreign.Decl) (Kind, bool) {
	if c.notes == nil || e.Module == nil {
		return 0, false
	}
	tag := c.notes.Tag(e.Module.Name, Name(e))
	if tag == nil || tag.EnumKind == "" {
		return 0, false
	}
	switch strings.ToLower(tag.EnumKind) {
	case "nsoptions", "cfoptions":
		return OptionsSet, true
	case "nsenum", "nsclosedenum", "cfclosedenum":
		return CasesEnum, true
	case "cfenum":
		return OpaqueConstants, true
	case "none":
		return RawConstants, true
	}
	return 0, false
}

// looksLikeBitSet reports whether every non-zero value is a single bit or a
// combination of the single bits present, with at least MinOptionBits
// distinct bits.
func looksLikeBitSet(consts []*foreign.Decl) bool {
	var single uint64
	var combos []uint64
	for _, k := range consts {
		if k.Value < 0 {
			return false
		}
		v := uint64(k.Value)
		switch bits.OnesCount64(v) {
		case 0:
		case 1:
			single |= v
		default:
			combos = append(combos, v)
		}
	}
	if bits.OnesCount64(single) < MinOptionBits {
		return false
	}
	for _, v := range combos {
		if v&^single != 0 {
			return false
		}
	}
	return true
}

func constants(e *foreign.Decl) []*foreign.Decl {
	var out []*foreign.Decl
	for _, m := range e.Members {
		if m.Kind == foreign.KindEnumConstant {
			out = append(out, m)
		}
	}
	return out
}

// Prefix returns the common word prefix stripped from e's constants. It is
// shortened until no stripped name would be empty or start with a digit.
func (c *Classifier) Prefix(e *foreign.Decl) string {
	if p, ok := c.prefixes[e]; ok {
		return p
	}
	p := computePrefix(e)
	c.prefixes[e] = p
	return p
}

func computePrefix(e *foreign.Decl) string {
	consts := constants(e)
	if len(consts) == 0 {
		return ""
	}
	var prefix string
	if len(consts) == 1 {
		prefix = names.CommonWordPrefix(consts[0].Name, Name(e))
	} else {
		prefix = consts[0].Name
		for _, k := range consts[1:] {
			prefix = names.CommonWordPrefix(prefix, k.Name)
		}
	}
	first := consts[0].Name
	for prefix != "" && !strippable(prefix, consts) {
		i := len(prefix) - 1
		for i > 0 && !names.IsWordBoundary(first, i) {
			i--
		}
		prefix = prefix[:i]
	}
	return prefix
}

func strippable(prefix string, consts []*foreign.Decl) bool {
	for _, k := range consts {
		rest := strings.TrimLeft(k.Name[len(prefix):], "_")
		if rest == "" || (rest[0] >= '0' && rest[0] <= '9') {
			return false
		}
	}
	return true
}

// StripPrefix returns the constant's name without its enum's common prefix.
func (c *Classifier) StripPrefix(constant *foreign.Decl) string {
	if constant.Parent == nil {
		return constant.Name
	}
	p := c.Prefix(constant.Parent)
	if !strings.HasPrefix(constant.Name, p) {
		return constant.Name
	}
	return strings.TrimLeft(constant.Name[len(p):], "_")
}

type constKey struct {
	enum  *foreign.Decl
	value int64
}

// ConstantTable maps (enum, value) to the host case that first claimed the
// value. Later constants with the same value become aliases of it.
type ConstantTable struct {
	m map[constKey]*hostast.Decl
}

// NewConstantTable creates an empty table.
func NewConstantTable() *ConstantTable {
	return &ConstantTable{m: make(map[constKey]*hostast.Decl)}
}

// Canonical returns the host case recorded for value, or nil.
func (t *ConstantTable) Canonical(enum *foreign.Decl, value int64) *hostast.Decl {
	return t.m[constKey{enum, value}]
}

// Record claims value for d unless another case already did. It returns
// the canonical case and whether d became it.
func (t *ConstantTable) Record(enum *foreign.Decl, value int64, d *hostast.Decl) (*hostast.Decl, bool) {
	k := constKey{enum, value}
	if prev, ok := t.m[k]; ok {
		return prev, false
	}
	t.m[k] = d
	return d, true
}

// Len returns the number of recorded values.
func (t *ConstantTable) Len() int { return len(t.m) }
