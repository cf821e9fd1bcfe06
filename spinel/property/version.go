package property

import (
	"fmt"
	"regexp"

	"github.com/blang/semver"
)

// ncpVersionPattern pulls a dotted major.minor[.patch] version out of an
// NCP_VERSION string, which in practice looks like
// "OPENTHREAD/1.2.0; RAFAEL_MICRO; Jul 29 2026 12:00:00" rather than a bare
// semver string.
var ncpVersionPattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseNCPVersion extracts a comparable semver.Version out of a decoded
// PROP_NCP_VERSION string, for callers that want to gate behavior on NCP
// firmware version the way the reference driver's consumers do, without
// the registry inventing a new wire type for it (SPEC_FULL.md §4.8).
func ParseNCPVersion(raw string) (semver.Version, error) {
	m := ncpVersionPattern.FindStringSubmatch(raw)
	if m == nil {
		return semver.Version{}, fmt.Errorf("property: no version found in %q", raw)
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	return semver.Parse(fmt.Sprintf("%s.%s.%s", m[1], m[2], patch))
}
