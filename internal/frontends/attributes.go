package frontends

import (
	"strconv"
	"strings"

	"github.com/biyu6/swift/internal/foreign"
)

// Macro is one attribute-like macro invocation found in header text.
// Args is the text between the parentheses; Start and End are byte offsets
// of the whole invocation.
type Macro struct {
	Name  string
	Args  string
	Start int
	End   int
}

// declMacros introduce declarations rather than annotate them.
var declMacros = map[string]bool{
	"NS_ENUM":        true,
	"NS_OPTIONS":     true,
	"NS_CLOSED_ENUM": true,
	"NS_ERROR_ENUM":  true,
	"CF_ENUM":        true,
	"CF_OPTIONS":     true,
	"CF_CLOSED_ENUM": true,
}

var macroPrefixes = []string{"NS_", "CF_", "API_", "__API_", "UI_", "UIKIT_", "OBJC_", "FOUNDATION_", "__OSX_", "__IOS_", "__TVOS_", "__WATCHOS_"}

var bareMacros = map[string]bool{
	"__attribute__":         true,
	"DEPRECATED_ATTRIBUTE":  true,
	"UNAVAILABLE_ATTRIBUTE": true,
	"_Noreturn":             true,
	"__stdcall":             true,
	"__fastcall":            true,
	"__cdecl":               true,
	"__vectorcall":          true,
}

// IsAttributeMacro reports whether name is an annotation macro that a
// frontend should strip before parsing.
func IsAttributeMacro(name string) bool {
	if declMacros[name] {
		return false
	}
	if bareMacros[name] {
		return true
	}
	for _, p := range macroPrefixes {
		if strings.HasPrefix(name, p) && strings.ToUpper(name) == name {
			return true
		}
	}
	return false
}

// ScanMacros finds every attribute macro in text, with its parenthesized
// arguments when present.
func ScanMacros(text string) []Macro {
	var out []Macro
	for i := 0; i < len(text); {
		c := text[i]
		if !isIdentByte(c) || (c >= '0' && c <= '9') || (i > 0 && isIdentByte(text[i-1])) {
			i++
			continue
		}
		j := i + 1
		for j < len(text) && isIdentByte(text[j]) {
			j++
		}
		name := text[i:j]
		if !IsAttributeMacro(name) {
			i = j
			continue
		}
		m := Macro{Name: name, Start: i, End: j}
		k := j
		for k < len(text) && (text[k] == ' ' || text[k] == '\t') {
			k++
		}
		if k < len(text) && text[k] == '(' {
			if end := matchParen(text, k); end > 0 {
				m.Args = text[k+1 : end]
				m.End = end + 1
			}
		}
		out = append(out, m)
		i = m.End
	}
	return out
}

// matchParen returns the index of the parenthesis closing the one at open,
// or -1.
func matchParen(text string, open int) int {
	depth := 0
	inString := false
	for i := open; i < len(text); i++ {
		c := text[i]
		switch {
		case inString:
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// ApplyAttributes records the attributes spelled in text on attrs and
// returns the calling convention named there, if any.
func ApplyAttributes(attrs *foreign.Attrs, text string) string {
	conv := ""
	for _, m := range ScanMacros(text) {
		if c := applyMacro(attrs, m.Name, m.Args); c != "" {
			conv = c
		}
	}
	return conv
}

func applyMacro(a *foreign.Attrs, name, args string) string {
	switch name {
	case "__attribute__":
		conv := ""
		for _, item := range SplitTopLevel(trimOuterParens(args)) {
			if c := applyGNU(a, item); c != "" {
				conv = c
			}
		}
		return conv
	case "__stdcall", "__fastcall", "__vectorcall":
		return strings.TrimPrefix(name, "__")
	case "NS_SWIFT_NAME", "CF_SWIFT_NAME":
		a.SwiftName = strings.TrimSpace(args)
	case "NS_SWIFT_UNAVAILABLE", "CF_SWIFT_UNAVAILABLE":
		a.Unavailable = true
		a.UnavailableMsg = unquote(args)
	case "NS_UNAVAILABLE", "UNAVAILABLE_ATTRIBUTE", "NS_AUTOMATED_REFCOUNT_UNAVAILABLE":
		a.Unavailable = true
	case "NS_DESIGNATED_INITIALIZER":
		a.DesignatedInit = true
	case "CF_RETURNS_RETAINED", "NS_RETURNS_RETAINED":
		a.ReturnsRetained = true
	case "CF_RETURNS_NOT_RETAINED", "NS_RETURNS_NOT_RETAINED":
		a.ReturnsNotRetained = true
	case "CF_CONSUMED", "NS_RELEASES_ARGUMENT":
		a.Consumed = true
	case "NS_NORETURN", "CF_NORETURN", "_Noreturn":
		a.NoReturn = true
	case "CF_BRIDGED_TYPE", "CF_BRIDGED_MUTABLE_TYPE", "NS_BRIDGED_TYPE":
		a.ObjCBridge = strings.TrimSpace(args)
	case "DEPRECATED_ATTRIBUTE":
		a.Availability = append(a.Availability, foreign.Availability{Platform: "*", Deprecated: "0"})
	case "API_AVAILABLE":
		for _, p := range platformVersions(args) {
			a.Availability = append(a.Availability, foreign.Availability{Platform: p.platform, Introduced: p.version(0)})
		}
	case "API_UNAVAILABLE":
		for _, p := range SplitTopLevel(args) {
			a.Availability = append(a.Availability, foreign.Availability{Platform: strings.TrimSpace(p), Unavailable: true})
		}
	case "API_DEPRECATED", "API_DEPRECATED_WITH_REPLACEMENT":
		parts := SplitTopLevel(args)
		if len(parts) == 0 {
			return ""
		}
		text := unquote(parts[0])
		for _, p := range platformVersions(strings.Join(parts[1:], ",")) {
			av := foreign.Availability{Platform: p.platform, Introduced: p.version(0), Deprecated: p.version(1)}
			if name == "API_DEPRECATED" {
				av.Message = text
			} else {
				av.Renamed = text
			}
			a.Availability = append(a.Availability, av)
		}
	case "NS_AVAILABLE", "CF_AVAILABLE":
		parts := SplitTopLevel(args)
		for i, platform := range []string{"macos", "ios"} {
			if i < len(parts) {
				a.Availability = append(a.Availability, legacyAvailability(platform, parts[i], ""))
			}
		}
	case "NS_AVAILABLE_MAC", "CF_AVAILABLE_MAC":
		a.Availability = append(a.Availability, legacyAvailability("macos", args, ""))
	case "NS_AVAILABLE_IOS", "CF_AVAILABLE_IOS":
		a.Availability = append(a.Availability, legacyAvailability("ios", args, ""))
	case "NS_DEPRECATED", "CF_DEPRECATED":
		parts := SplitTopLevel(args)
		if len(parts) >= 4 {
			a.Availability = append(a.Availability,
				legacyAvailability("macos", parts[0], parts[1]),
				legacyAvailability("ios", parts[2], parts[3]))
		}
	case "NS_DEPRECATED_MAC", "NS_DEPRECATED_IOS":
		parts := SplitTopLevel(args)
		platform := "macos"
		if name == "NS_DEPRECATED_IOS" {
			platform = "ios"
		}
		if len(parts) >= 2 {
			a.Availability = append(a.Availability, legacyAvailability(platform, parts[0], parts[1]))
		}
	}
	return ""
}

func applyGNU(a *foreign.Attrs, item string) string {
	item = strings.TrimSpace(item)
	name, args := item, ""
	if i := strings.IndexByte(item, '('); i > 0 && strings.HasSuffix(item, ")") {
		name, args = strings.TrimSpace(item[:i]), item[i+1:len(item)-1]
	}
	name = strings.Trim(name, "_")
	switch name {
	case "swift_name":
		a.SwiftName = unquote(args)
	case "unavailable":
		a.Unavailable = true
		a.UnavailableMsg = unquote(args)
	case "deprecated":
		a.Availability = append(a.Availability, foreign.Availability{Platform: "*", Deprecated: "0", Message: unquote(args)})
	case "objc_designated_initializer":
		a.DesignatedInit = true
	case "cf_returns_retained", "ns_returns_retained":
		a.ReturnsRetained = true
	case "cf_returns_not_retained", "ns_returns_not_retained":
		a.ReturnsNotRetained = true
	case "cf_audited_transfer":
		a.CFAudited = true
	case "cf_consumed", "ns_consumed":
		a.Consumed = true
	case "noreturn":
		a.NoReturn = true
	case "flag_enum":
		a.FlagEnum = true
	case "enum_extensibility":
		switch strings.TrimSpace(args) {
		case "open":
			a.Extensibility = foreign.ExtensibilityOpen
		case "closed":
			a.Extensibility = foreign.ExtensibilityClosed
		}
	case "objc_bridge", "objc_bridge_mutable":
		a.ObjCBridge = strings.TrimSpace(args)
	case "nonnull":
		for _, idx := range SplitTopLevel(args) {
			if n, err := strconv.Atoi(strings.TrimSpace(idx)); err == nil && n > 0 {
				a.NonNullParams = append(a.NonNullParams, n-1)
			}
		}
	case "availability":
		a.Availability = append(a.Availability, gnuAvailability(args))
	case "stdcall", "fastcall", "vectorcall", "regcall", "ms_abi", "preserve_all", "swiftcall":
		return name
	}
	return ""
}

// gnuAvailability parses availability(macos,introduced=10.15,deprecated=11,
// message="...").
func gnuAvailability(args string) foreign.Availability {
	parts := SplitTopLevel(args)
	var av foreign.Availability
	if len(parts) == 0 {
		return av
	}
	av.Platform = strings.TrimSpace(parts[0])
	for _, p := range parts[1:] {
		key, value, _ := strings.Cut(strings.TrimSpace(p), "=")
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "introduced":
			av.Introduced = normalizeVersion(value)
		case "deprecated":
			av.Deprecated = normalizeVersion(value)
		case "obsoleted":
			av.Obsoleted = normalizeVersion(value)
		case "unavailable":
			av.Unavailable = true
		case "message":
			av.Message = unquote(value)
		case "replacement", "renamed":
			av.Renamed = unquote(value)
		}
	}
	return av
}

type platformVersion struct {
	platform string
	versions []string
}

func (p platformVersion) version(i int) string {
	if i < len(p.versions) {
		return p.versions[i]
	}
	return ""
}

// platformVersions parses "macos(10.15), ios(13.0, 14.0)".
func platformVersions(args string) []platformVersion {
	var out []platformVersion
	for _, item := range SplitTopLevel(args) {
		item = strings.TrimSpace(item)
		open := strings.IndexByte(item, '(')
		if open <= 0 || !strings.HasSuffix(item, ")") {
			continue
		}
		pv := platformVersion{platform: strings.TrimSpace(item[:open])}
		for _, v := range SplitTopLevel(item[open+1 : len(item)-1]) {
			pv.versions = append(pv.versions, normalizeVersion(strings.TrimSpace(v)))
		}
		out = append(out, pv)
	}
	return out
}

// legacyAvailability handles the NS_AVAILABLE family, whose versions are
// spelled 10_10 and NA for "not available".
func legacyAvailability(platform, introduced, deprecated string) foreign.Availability {
	introduced = strings.TrimSpace(introduced)
	if introduced == "NA" {
		return foreign.Availability{Platform: platform, Unavailable: true}
	}
	av := foreign.Availability{Platform: platform, Introduced: normalizeVersion(introduced)}
	if d := strings.TrimSpace(deprecated); d != "" && d != "NA" {
		av.Deprecated = normalizeVersion(d)
	}
	return av
}

func normalizeVersion(v string) string {
	v = strings.TrimPrefix(strings.TrimSpace(v), "__MAC_")
	v = strings.TrimPrefix(v, "__IPHONE_")
	return strings.ReplaceAll(v, "_", ".")
}

// SplitTopLevel splits s at commas outside parentheses, brackets and string
// literals.
func SplitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	inString := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inString:
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
		case c == '"':
			inString = true
		case c == '(' || c == '<' || c == '[' || c == '{':
			depth++
		case c == ')' || c == '>' || c == ']' || c == '}':
			depth--
		case c == ',' && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	if rest := strings.TrimSpace(s[start:]); rest != "" || len(out) > 0 {
		out = append(out, s[start:])
	}
	return out
}

func trimOuterParens(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		return s[1 : len(s)-1]
	}
	return s
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if u, err := strconv.Unquote(s); err == nil {
		return u
	}
	return s
}
