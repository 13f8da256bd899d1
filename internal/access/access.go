// Package access manages the host-side access surface of a mounted disk:
// the way a filesystem sitting inside the WSL2 VM is reached from Windows.
//
// Two surfaces exist. A network location is a shortcut folder Explorer
// renders under "This PC", pointing at the mount's \\wsl$ UNC path. A
// mapped drive letter is the legacy surface, kept for programs that insist
// on a real letter. Like package wsl2, failures reported by the underlying
// helpers are data on the result structs, not Go errors.
package access

import (
	"fmt"

	"github.com/pkg/errors"
)

// Mode selects the access surface created for a mount. The string values
// are stable: they appear in the state file and on the CLI.
type Mode string

const (
	// ModeNone mounts without exposing the filesystem back to the host.
	ModeNone Mode = "none"
	// ModeNetworkLocation adds an Explorer network location pointing at
	// the mount's UNC path. The default surface.
	ModeNetworkLocation Mode = "network-location"
	// ModeDriveLetter maps a drive letter to the UNC path.
	ModeDriveLetter Mode = "drive-letter-legacy"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeNone, ModeNetworkLocation, ModeDriveLetter:
		return true
	}
	return false
}

// NeedsDriveLetter reports whether mounts in this mode must carry a drive
// letter.
func (m Mode) NeedsDriveLetter() bool {
	return m == ModeDriveLetter
}

// ParseMode maps user-facing spellings onto a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "none", "":
		return ModeNone, nil
	case "network-location", "network", "location":
		return ModeNetworkLocation, nil
	case "drive-letter-legacy", "drive-letter", "letter":
		return ModeDriveLetter, nil
	}
	return "", errors.Errorf("unknown access mode %q", s)
}

// NormalizeLetter validates a drive letter and returns its canonical
// single-character upper-case form. Trailing ":" and ":\" are tolerated.
func NormalizeLetter(s string) (string, error) {
	switch len(s) {
	case 3:
		if s[1] != ':' || (s[2] != '\\' && s[2] != '/') {
			return "", errors.Errorf("invalid drive letter %q", s)
		}
	case 2:
		if s[1] != ':' {
			return "", errors.Errorf("invalid drive letter %q", s)
		}
	case 1:
	default:
		return "", errors.Errorf("invalid drive letter %q", s)
	}
	c := s[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'Z' {
		return "", errors.Errorf("invalid drive letter %q", s)
	}
	return string(c), nil
}

// DefaultLocationName is the Explorer display name used for a mount's
// network location when the caller does not pick one.
func DefaultLocationName(diskIndex, partition int) string {
	if partition > 0 {
		return fmt.Sprintf("WSL Disk %d Partition %d", diskIndex, partition)
	}
	return fmt.Sprintf("WSL Disk %d", diskIndex)
}

// CreateRequest describes the access surface to create for a mounted
// filesystem.
type CreateRequest struct {
	Mode Mode
	// HostPath is the UNC path of the guest mount point.
	HostPath string
	// DriveLetter is required for ModeDriveLetter, normalized form.
	DriveLetter string
	// LocationName names the network location; empty picks
	// DefaultLocationName.
	LocationName string
	DiskIndex    int
	Partition    int
}

// Info identifies a created access surface. It is persisted with the mount
// record and handed back verbatim for removal.
type Info struct {
	Mode         Mode   `json:"mode"`
	DriveLetter  string `json:"driveLetter,omitempty"`
	LocationName string `json:"locationName,omitempty"`
	HostPath     string `json:"hostPath,omitempty"`
	DiskIndex    int    `json:"diskIndex"`
	Partition    int    `json:"partition"`
}

// Display returns the user-facing name of the surface: "X:" for a letter,
// the location name otherwise.
func (i Info) Display() string {
	switch i.Mode {
	case ModeDriveLetter:
		return i.DriveLetter + ":"
	case ModeNetworkLocation:
		return i.LocationName
	}
	return ""
}

// CreateResult is the typed outcome of creating an access surface.
type CreateResult struct {
	Success bool
	// Info identifies the created surface. Implementations must populate
	// it whenever Success is set; it is nil on failure.
	Info         *Info
	ErrorMessage string
	FailedHint   string
}

// RemoveResult is the typed outcome of removing an access surface.
type RemoveResult struct {
	Success      bool
	ErrorMessage string
	FailedHint   string
	// ExitCode is the helper's exit code, zero when no helper ran.
	ExitCode int
}

// SucceededSilently detects removals that claim failure while carrying no
// error text and a zero exit code. net.exe produces this shape when its
// localized success message is not recognized; callers count it as success.
func (r *RemoveResult) SucceededSilently() bool {
	return !r.Success && r.ErrorMessage == "" && r.ExitCode == 0
}
