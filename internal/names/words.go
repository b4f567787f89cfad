package names

import (
	"strings"
	"unicode"
)

// SplitWords splits an identifier into camel-case words. Underscores separate
// words and are dropped; runs of capitals form one acronym word, and digits
// stay attached to the word they follow.
func SplitWords(s string) []string {
	var words []string
	for _, part := range strings.Split(s, "_") {
		if part == "" {
			continue
		}
		rs := []rune(part)
		start := 0
		for i := 1; i < len(rs); i++ {
			if camelBoundary(rs, i) {
				words = append(words, string(rs[start:i]))
				start = i
			}
		}
		words = append(words, string(rs[start:]))
	}
	return words
}

func camelBoundary(rs []rune, i int) bool {
	prev, cur := rs[i-1], rs[i]
	if unicode.IsUpper(cur) && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
		return true
	}
	if unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(rs) && unicode.IsLower(rs[i+1]) {
		return true
	}
	return false
}

// IsWordBoundary reports whether byte offset i of s falls between two words.
func IsWordBoundary(s string, i int) bool {
	if i <= 0 || i >= len(s) {
		return true
	}
	if s[i] == '_' || s[i-1] == '_' {
		return true
	}
	rs := []rune(s[:i])
	next := []rune(s[i:])
	all := append(rs, next...)
	return camelBoundary(all, len(rs))
}

// CommonWordPrefix returns the longest common prefix of a and b that ends on
// a word boundary in both strings.
func CommonWordPrefix(a, b string) string {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	for n > 0 && !(IsWordBoundary(a, n) && IsWordBoundary(b, n)) {
		n--
	}
	return a[:n]
}

// LowerFirstWord lowercases the leading word: "Frame" becomes "frame" and
// "URLString" becomes "urlString".
func LowerFirstWord(s string) string {
	words := SplitWords(s)
	if len(words) == 0 || strings.HasPrefix(s, "_") {
		return s
	}
	first := words[0]
	if isAllUpper(first) {
		return strings.ToLower(first) + s[len(first):]
	}
	rs := []rune(s)
	rs[0] = unicode.ToLower(rs[0])
	return string(rs)
}

// UpperFirst capitalizes the first letter of s.
func UpperFirst(s string) string {
	if s == "" {
		return s
	}
	rs := []rune(s)
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}

// StripTypePrefix drops a short all-capitals framework prefix: "NSString"
// becomes "String", "UIColor" becomes "Color". Single-word names such as
// "NSURL" are left alone.
func StripTypePrefix(name string) string {
	words := SplitWords(name)
	if len(words) < 2 {
		return name
	}
	first := words[0]
	if len(first) < 2 || len(first) > 3 || !isAllUpper(first) {
		return name
	}
	return strings.TrimPrefix(strings.TrimPrefix(name, first), "_")
}

// HasWordPrefix reports whether s starts with prefix followed by a word
// boundary.
func HasWordPrefix(s, prefix string) bool {
	if !strings.HasPrefix(s, prefix) {
		return false
	}
	return IsWordBoundary(s, len(prefix))
}

func isAllUpper(s string) bool {
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
	}
	return true
}

var reservedNames = map[string]bool{
	"associatedtype": true, "class": true, "deinit": true, "enum": true, "extension": true,
	"fileprivate": true, "func": true, "import": true, "init": true, "inout": true,
	"internal": true, "let": true, "open": true, "operator": true, "private": true,
	"protocol": true, "public": true, "static": true, "struct": true, "subscript": true,
	"typealias": true, "var": true, "break": true, "case": true, "continue": true,
	"default": true, "defer": true, "do": true, "else": true, "fallthrough": true,
	"for": true, "guard": true, "if": true, "in": true, "repeat": true, "return": true,
	"switch": true, "where": true, "while": true, "as": true, "catch": true,
	"false": true, "is": true, "nil": true, "rethrows": true, "super": true,
	"self": true, "Self": true, "throw": true, "throws": true, "true": true, "try": true,
}

// IsReservedName reports whether s is a host keyword that printers must
// escape.
func IsReservedName(s string) bool {
	return reservedNames[s]
}
