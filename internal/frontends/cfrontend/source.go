package cfrontend

import (
	"regexp"
	"strings"

	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/frontends"
)

// source holds three views of one header, all the same length so that byte
// offsets from the syntax tree index every view:
//
//	orig  - the header as written, read for attributes and macro values
//	types - attribute macros blanked, read for type spellings
//	tree  - what tree-sitter parses: Objective-C, nullability and
//	        generics blanked as well
type source struct {
	orig  []byte
	types []byte
	tree  []byte

	enums   map[string]enumMacro
	nonnull []span
	audited []span
	imports []string
}

type span struct{ start, end int }

type enumMacro struct {
	macro      foreign.EnumMacro
	underlying string
}

var enumMacroRe = regexp.MustCompile(`(?:typedef\s+)?\b(NS_ENUM|NS_OPTIONS|NS_CLOSED_ENUM|NS_ERROR_ENUM|CF_ENUM|CF_OPTIONS|CF_CLOSED_ENUM)\s*\(\s*([^,()]+?)\s*(?:,\s*(\w+)\s*)?\)`)

var enumMacroKinds = map[string]foreign.EnumMacro{
	"NS_ENUM":        foreign.MacroNSEnum,
	"NS_ERROR_ENUM":  foreign.MacroNSEnum,
	"NS_CLOSED_ENUM": foreign.MacroNSClosedEnum,
	"NS_OPTIONS":     foreign.MacroNSOptions,
	"CF_ENUM":        foreign.MacroCFEnum,
	"CF_CLOSED_ENUM": foreign.MacroNSClosedEnum,
	"CF_OPTIONS":     foreign.MacroCFOptions,
}

var (
	objcBlockRe   = regexp.MustCompile(`@(interface|implementation|protocol)\b`)
	objcForwardRe = regexp.MustCompile(`^@protocol\s+[\w\s,]+;`)
	objcStmtRe    = regexp.MustCompile(`@(class|import)\b[^;]*;`)
	treeOnlyRe    = regexp.MustCompile(`\b(_Nonnull|_Nullable|_Null_unspecified|__nonnull|__nullable|__null_unspecified|__kindof|__strong|__weak|__unsafe_unretained|__autoreleasing)\b`)
	importRe      = regexp.MustCompile(`(?m)^\s*#\s*(?:import|include)\s*<(\w+)/|@import\s+(\w+)`)
)

func prepare(src []byte) *source {
	s := &source{
		orig:  src,
		types: append([]byte(nil), src...),
		tree:  append([]byte(nil), src...),
		enums: make(map[string]enumMacro),
	}
	text := string(src)

	for _, m := range enumMacroRe.FindAllStringSubmatchIndex(text, -1) {
		macro := text[m[2]:m[3]]
		underlying := text[m[4]:m[5]]
		name := ""
		if m[6] >= 0 {
			name = text[m[6]:m[7]]
		}
		if macro == "NS_ERROR_ENUM" {
			underlying = "NSInteger"
		}
		replacement := "enum " + name
		s.rewrite(m[0], m[1], replacement)
		if name != "" {
			s.enums[name] = enumMacro{macro: enumMacroKinds[macro], underlying: underlying}
		}
	}

	var nonnullStart, auditedStart = -1, -1
	for _, m := range frontends.ScanMacros(text) {
		blank(s.types, m.Start, m.End)
		blank(s.tree, m.Start, m.End)
		switch m.Name {
		case "NS_ASSUME_NONNULL_BEGIN", "CF_ASSUME_NONNULL_BEGIN":
			nonnullStart = m.End
		case "NS_ASSUME_NONNULL_END", "CF_ASSUME_NONNULL_END":
			if nonnullStart >= 0 {
				s.nonnull = append(s.nonnull, span{nonnullStart, m.Start})
				nonnullStart = -1
			}
		case "CF_IMPLICIT_BRIDGING_ENABLED":
			auditedStart = m.End
		case "CF_IMPLICIT_BRIDGING_DISABLED":
			if auditedStart >= 0 {
				s.audited = append(s.audited, span{auditedStart, m.Start})
				auditedStart = -1
			}
		}
	}
	if nonnullStart >= 0 {
		s.nonnull = append(s.nonnull, span{nonnullStart, len(src)})
	}
	if auditedStart >= 0 {
		s.audited = append(s.audited, span{auditedStart, len(src)})
	}

	s.blankObjC(text)
	for _, m := range treeOnlyRe.FindAllStringIndex(text, -1) {
		blank(s.tree, m[0], m[1])
	}
	for i, c := range s.tree {
		if c == '^' {
			s.tree[i] = '*'
		}
	}
	blankGenerics(s.tree)

	seen := make(map[string]bool)
	for _, m := range importRe.FindAllStringSubmatch(text, -1) {
		name := m[1]
		if name == "" {
			name = m[2]
		}
		if name != "" && !seen[name] {
			seen[name] = true
			s.imports = append(s.imports, name)
		}
	}
	return s
}

// rewrite replaces orig[start:end] with text padded to the same length in
// the types and tree views.
func (s *source) rewrite(start, end int, text string) {
	blank(s.types, start, end)
	blank(s.tree, start, end)
	copy(s.types[start:end], text)
	copy(s.tree[start:end], text)
}

// blankObjC removes Objective-C containers and statements from the tree
// view; the objc frontend reads them.
func (s *source) blankObjC(text string) {
	for _, m := range objcStmtRe.FindAllStringIndex(text, -1) {
		blank(s.tree, m[0], m[1])
	}
	for pos := 0; pos < len(text); {
		loc := objcBlockRe.FindStringIndex(text[pos:])
		if loc == nil {
			return
		}
		start := pos + loc[0]
		if fwd := objcForwardRe.FindStringIndex(text[start:]); fwd != nil {
			blank(s.tree, start, start+fwd[1])
			pos = start + fwd[1]
			continue
		}
		end := strings.Index(text[start:], "@end")
		if end < 0 {
			blank(s.tree, start, len(text))
			return
		}
		stop := start + end + len("@end")
		blank(s.tree, start, stop)
		pos = stop
	}
}

func (s *source) inNonnull(pos int) bool { return inSpans(s.nonnull, pos) }

func (s *source) inAudited(pos int) bool { return inSpans(s.audited, pos) }

func inSpans(spans []span, pos int) bool {
	for _, sp := range spans {
		if pos >= sp.start && pos < sp.end {
			return true
		}
	}
	return false
}

// blank overwrites b[start:end] with spaces, keeping newlines so that row
// numbers survive.
func blank(b []byte, start, end int) {
	for i := start; i < end && i < len(b); i++ {
		if b[i] != '\n' {
			b[i] = ' '
		}
	}
}

// blankGenerics removes Objective-C type arguments and protocol lists
// ("NSArray<NSString *>", "id<NSCopying>") outside preprocessor lines.
func blankGenerics(b []byte) {
	lineStart := true
	directive := false
	for i := 0; i < len(b); i++ {
		c := b[i]
		if c == '\n' {
			lineStart, directive = true, false
			continue
		}
		if lineStart && c != ' ' && c != '\t' {
			directive = c == '#'
			lineStart = false
		}
		if c != '<' || directive {
			continue
		}
		if i+1 < len(b) && b[i+1] == '<' {
			i++
			continue
		}
		j := i - 1
		for j >= 0 && (b[j] == ' ' || b[j] == '\t') {
			j--
		}
		if j < 0 || !isLetterOrUnderscore(b[j]) && !isIdentTail(b, j) {
			continue
		}
		depth := 0
		for k := i; k < len(b) && b[k] != ';' && b[k] != '{'; k++ {
			if b[k] == '<' {
				depth++
			} else if b[k] == '>' {
				depth--
				if depth == 0 {
					blank(b, i, k+1)
					i = k
					break
				}
			}
		}
	}
}

func isLetterOrUnderscore(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// isIdentTail reports whether b[j] ends an identifier that starts with a
// letter, as opposed to a number literal.
func isIdentTail(b []byte, j int) bool {
	k := j
	for k >= 0 && (isLetterOrUnderscore(b[k]) || b[k] >= '0' && b[k] <= '9') {
		k--
	}
	return k+1 <= j && isLetterOrUnderscore(b[k+1])
}
