package names

import "strings"

// OmissionParam describes one argument for OmitNeedlessWords.
type OmissionParam struct {
	// Label is the current argument label; "" for an unlabeled argument.
	Label string
	// TypeName is the argument's type name with framework prefixes removed,
	// or "" when the type carries no useful name (blocks, void pointers).
	TypeName string
}

// Omission is the outcome of OmitNeedlessWords.
type Omission struct {
	Base    string
	Labels  []string
	Changed bool
}

var prepositions = map[string]bool{
	"above": true, "after": true, "along": true, "alongside": true, "as": true, "at": true,
	"before": true, "below": true, "by": true, "for": true, "from": true, "given": true,
	"in": true, "into": true, "like": true, "of": true, "on": true, "onto": true,
	"over": true, "since": true, "to": true, "toward": true, "under": true,
	"until": true, "using": true, "via": true, "with": true, "within": true,
}

// typeWordAliases lists label words that restate a type without spelling its
// name.
var typeWordAliases = map[string]string{
	"index":   "int",
	"integer": "int",
	"count":   "int",
}

// OmitNeedlessWords trims words that merely restate argument types. Trailing
// words of the base name matching the first argument's type are dropped, a
// trailing preposition left on the base name moves into the first label, and
// each later label loses trailing words matching its own type. Neither the
// base nor a label is ever trimmed to nothing, and a transformed label that
// would collide with another label in the same list keeps its original
// spelling.
func OmitNeedlessWords(base string, params []OmissionParam) Omission {
	out := Omission{Base: base, Labels: make([]string, len(params))}
	for i, p := range params {
		out.Labels[i] = p.Label
	}
	if len(params) == 0 {
		return out
	}
	var unsplit string

	if params[0].Label == "" && params[0].TypeName != "" {
		if trimmed, ok := trimTypeSuffix(base, params[0].TypeName); ok {
			out.Base = trimmed
		}
		words := SplitWords(out.Base)
		if n := len(words); n >= 2 && prepositions[strings.ToLower(words[n-1])] {
			unsplit = out.Base
			out.Base = strings.TrimSuffix(out.Base, words[n-1])
			out.Labels[0] = strings.ToLower(words[n-1])
		}
	}

	for i := 1; i < len(params); i++ {
		if params[i].Label == "" || params[i].TypeName == "" {
			continue
		}
		if trimmed, ok := trimTypeSuffix(params[i].Label, params[i].TypeName); ok {
			out.Labels[i] = trimmed
		}
	}

	for reverted := true; reverted; {
		reverted = false
		for i, l := range out.Labels {
			if l == "" || l == params[i].Label {
				continue
			}
			for j, other := range out.Labels {
				if j != i && other == l {
					out.Labels[i] = params[i].Label
					reverted = true
					break
				}
			}
		}
	}

	if unsplit != "" && out.Labels[0] == params[0].Label {
		out.Base = unsplit
	}

	out.Changed = out.Base != base
	for i := range params {
		if out.Labels[i] != params[i].Label {
			out.Changed = true
		}
	}
	return out
}

// trimTypeSuffix removes the longest run of trailing words of s that matches
// the trailing words of typeName. It refuses to empty s.
func trimTypeSuffix(s, typeName string) (string, bool) {
	sw := SplitWords(s)
	tw := SplitWords(typeName)
	if len(sw) < 2 || len(tw) == 0 {
		return s, false
	}
	best := 0
	for k := 1; k <= len(tw) && k < len(sw); k++ {
		if wordsMatch(sw[len(sw)-k:], tw[len(tw)-k:]) {
			best = k
		}
	}
	if best == 0 {
		return s, false
	}
	cut := 0
	for _, w := range sw[len(sw)-best:] {
		cut += len(w)
	}
	trimmed := strings.TrimRight(s[:len(s)-cut], "_")
	if trimmed == "" {
		return s, false
	}
	return trimmed, true
}

func wordsMatch(name, typ []string) bool {
	for i := range name {
		n := strings.ToLower(name[i])
		t := strings.ToLower(typ[i])
		if n == t {
			continue
		}
		if i == len(name)-1 && typeWordAliases[n] == t {
			continue
		}
		return false
	}
	return true
}
