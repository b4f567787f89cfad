package importer

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/biyu6/swift/internal/foreign"
	"github.com/biyu6/swift/internal/hostast"
)

// platformAliases folds the spellings used by foreign availability
// attributes onto the names the host uses.
var platformAliases = map[string]string{
	"macosx":              "macos",
	"macos":               "macos",
	"ios":                 "ios",
	"tvos":                "tvos",
	"watchos":             "watchos",
	"maccatalyst":         "maccatalyst",
	"macos_app_extension": "macos",
	"ios_app_extension":   "ios",
}

func normalizePlatform(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if v, ok := platformAliases[p]; ok {
		return v
	}
	return p
}

// importAttributes attaches availability to hd: explicit unavailability,
// API notes that hide the declaration, and per-platform availability for
// the configured platform.
func (s *Session) importAttributes(d *foreign.Decl, hd *hostast.Decl) {
	if d.Attrs.Unavailable {
		hd.AddAttr(hostast.Attribute{Kind: hostast.AttrUnavailable, Platform: "*", Message: d.Attrs.UnavailableMsg})
	}
	if c := s.noteCommon(d); c != nil && c.Unavailable() {
		hd.AddAttr(hostast.Attribute{Kind: hostast.AttrUnavailable, Platform: "*", Message: c.AvailabilityMsg})
	}
	platform := normalizePlatform(s.opts.Platform)
	for _, a := range d.Attrs.Availability {
		p := normalizePlatform(a.Platform)
		switch p {
		case "*", "swift":
			p = "*"
		case platform:
		default:
			continue
		}
		s.importAvailability(hd, p, a)
	}
}

func (s *Session) importAvailability(hd *hostast.Decl, platform string, a foreign.Availability) {
	if a.Unavailable {
		hd.AddAttr(hostast.Attribute{Kind: hostast.AttrUnavailable, Platform: platform, Message: a.Message, Renamed: a.Renamed})
		return
	}
	if a.Obsoleted != "" {
		if versionAtOrBefore(a.Obsoleted, s.opts.DeploymentTarget) {
			msg := a.Message
			if msg == "" {
				msg = fmt.Sprintf("obsoleted in %s %s", platform, a.Obsoleted)
			}
			hd.AddAttr(hostast.Attribute{Kind: hostast.AttrUnavailable, Platform: platform, Message: msg, Renamed: a.Renamed})
			return
		}
		hd.AddAttr(hostast.Attribute{Kind: hostast.AttrObsoleted, Platform: platform, Version: a.Obsoleted})
	}
	if a.Deprecated != "" {
		if versionAtOrBefore(a.Deprecated, s.opts.DeprecatedAsUnavailable) {
			msg := a.Message
			if msg == "" {
				msg = fmt.Sprintf("deprecated in %s %s", platform, a.Deprecated)
			}
			hd.AddAttr(hostast.Attribute{Kind: hostast.AttrUnavailable, Platform: platform, Message: msg, Renamed: a.Renamed})
			return
		}
		hd.AddAttr(hostast.Attribute{Kind: hostast.AttrDeprecated, Platform: platform, Version: a.Deprecated, Message: a.Message, Renamed: a.Renamed})
	}
	if a.Introduced != "" && platform != "*" {
		hd.AddAttr(hostast.Attribute{Kind: hostast.AttrAvailable, Platform: platform, Introduced: a.Introduced})
	}
}

// versionAtOrBefore reports whether v <= limit. An empty or malformed
// version never compares.
func versionAtOrBefore(v, limit string) bool {
	if v == "" || limit == "" {
		return false
	}
	a, err := semver.NewVersion(v)
	if err != nil {
		return false
	}
	b, err := semver.NewVersion(limit)
	if err != nil {
		return false
	}
	return !a.GreaterThan(b)
}
