package wsl2

import (
	"regexp"
	"strings"

	"github.com/blang/semver/v4"
)

// minVHDVersion is the first Store release of WSL able to mount VHD files.
// Inbox WSL (no --version flag) never supports them.
var minVHDVersion = semver.MustParse("0.58.0")

var versionTokenRE = regexp.MustCompile(`\d+(\.\d+)+`)

// ParseWSLVersion extracts the WSL release number from the first line of
// `wsl --version` output ("WSL version: 2.0.9.0"). Returns false when the
// output carries no version, which is what invoking the flag on inbox WSL
// produces.
func ParseWSLVersion(output string) (semver.Version, bool) {
	line, _, _ := strings.Cut(output, "\n")
	tok := versionTokenRE.FindString(line)
	if tok == "" {
		return semver.Version{}, false
	}
	// Release numbers have four components; semver takes three.
	parts := strings.Split(tok, ".")
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	v, err := semver.Parse(strings.Join(parts[:3], "."))
	if err != nil {
		return semver.Version{}, false
	}
	return v, true
}
