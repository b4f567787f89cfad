package objcfrontend

import (
	"github.com/biyu6/swift/internal/frontends"
)

// cursor walks a string one token at a time.
type cursor struct {
	text string
	pos  int
}

func (c *cursor) peek() byte {
	if c.pos < len(c.text) {
		return c.text[c.pos]
	}
	return 0
}

func (c *cursor) next() byte {
	b := c.peek()
	if c.pos < len(c.text) {
		c.pos++
	}
	return b
}

func (c *cursor) skipSpace() {
	c.pos = skipSpace(c.text, c.pos, len(c.text))
}

// ident reads an identifier after optional whitespace, or returns "".
func (c *cursor) ident() string {
	c.skipSpace()
	start := c.pos
	for c.pos < len(c.text) && isIdentByte(c.text[c.pos]) {
		c.pos++
	}
	if start < c.pos && c.text[start] >= '0' && c.text[start] <= '9' {
		c.pos = start
		return ""
	}
	return c.text[start:c.pos]
}

// balanced consumes a bracketed group starting at the cursor and returns
// its contents without the outer brackets.
func (c *cursor) balanced(open, close byte) string {
	if c.peek() != open {
		return ""
	}
	start := c.pos + 1
	depth := 0
	for ; c.pos < len(c.text); c.pos++ {
		switch c.text[c.pos] {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				c.pos++
				return c.text[start : c.pos-1]
			}
		}
	}
	return c.text[start:]
}

func isIdentByte(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// stripComments blanks comments, keeping newlines and string literals so
// offsets and line numbers match the source.
func stripComments(src []byte) []byte {
	out := append([]byte(nil), src...)
	for i := 0; i < len(out); i++ {
		switch {
		case out[i] == '"':
			for i++; i < len(out) && out[i] != '"' && out[i] != '\n'; i++ {
				if out[i] == '\\' {
					i++
				}
			}
		case out[i] == '/' && i+1 < len(out) && out[i+1] == '/':
			for ; i < len(out) && out[i] != '\n'; i++ {
				out[i] = ' '
			}
		case out[i] == '/' && i+1 < len(out) && out[i+1] == '*':
			out[i], out[i+1] = ' ', ' '
			for i += 2; i < len(out); i++ {
				if out[i] == '*' && i+1 < len(out) && out[i+1] == '/' {
					out[i], out[i+1] = ' ', ' '
					i++
					break
				}
				if out[i] != '\n' {
					out[i] = ' '
				}
			}
		}
	}
	return out
}

// stripDirectives blanks preprocessor lines, including continuations.
func stripDirectives(src []byte) []byte {
	lineStart := true
	for i := 0; i < len(src); i++ {
		c := src[i]
		if c == '\n' {
			lineStart = true
			continue
		}
		if !lineStart || c == ' ' || c == '\t' {
			continue
		}
		lineStart = false
		if c != '#' {
			continue
		}
		escaped := false
		for ; i < len(src); i++ {
			if src[i] == '\n' {
				if escaped {
					escaped = false
					continue
				}
				lineStart = true
				break
			}
			escaped = src[i] == '\\'
			src[i] = ' '
		}
	}
	return src
}

// nonnullRegions returns the spans between NS_ASSUME_NONNULL_BEGIN and END.
func nonnullRegions(text string) [][2]int {
	var out [][2]int
	start := -1
	for _, m := range frontends.ScanMacros(text) {
		switch m.Name {
		case "NS_ASSUME_NONNULL_BEGIN", "CF_ASSUME_NONNULL_BEGIN":
			start = m.End
		case "NS_ASSUME_NONNULL_END", "CF_ASSUME_NONNULL_END":
			if start >= 0 {
				out = append(out, [2]int{start, m.Start})
				start = -1
			}
		}
	}
	if start >= 0 {
		out = append(out, [2]int{start, len(text)})
	}
	return out
}

func inRegions(regions [][2]int, pos int) bool {
	for _, r := range regions {
		if pos >= r[0] && pos < r[1] {
			return true
		}
	}
	return false
}

// lineStarts returns the offset of the first byte of every line.
func lineStarts(text string) []int {
	out := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			out = append(out, i+1)
		}
	}
	return out
}
