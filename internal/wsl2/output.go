package wsl2

import (
	"bytes"
	"regexp"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// wsl.exe writes its own messages as UTF-16LE, while programs executed inside
// the guest write UTF-8. DecodeOutput normalizes either to a plain string
// with Unix line endings.
func DecodeOutput(b []byte) string {
	if looksUTF16LE(b) {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
		if out, _, err := transform.Bytes(dec, b); err == nil {
			b = out
		} else {
			// Lossy fallback: drop the interleaved zero bytes.
			b = bytes.ReplaceAll(b, []byte{0}, nil)
		}
	}
	s := strings.ReplaceAll(string(b), "\r\n", "\n")
	return strings.TrimRight(s, "\n")
}

func looksUTF16LE(b []byte) bool {
	if len(b) >= 2 && b[0] == 0xff && b[1] == 0xfe {
		return true
	}
	// UTF-16LE text over the ASCII range has a zero high byte in every
	// code unit; UTF-8 console output never contains NUL.
	return bytes.IndexByte(b, 0) >= 0
}

var errorCodeRE = regexp.MustCompile(`(?i)error code:\s*([\w./-]+)`)

// ExtractErrorCode pulls the symbolic code out of a wsl.exe failure message,
// e.g. "Error code: Wsl/Service/AttachDisk/WSL_E_DISK_ALREADY_ATTACHED".
// Returns "" when the output carries none.
func ExtractErrorCode(output string) string {
	m := errorCodeRE.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	return m[1]
}

// baseCode strips the Wsl/Service/... prefix so markers can be compared by
// their final component.
func baseCode(code string) string {
	if i := strings.LastIndexByte(code, '/'); i >= 0 {
		return code[i+1:]
	}
	return code
}

// IsAlreadyAttached reports whether a failed attach actually means the disk
// was attached before the call. Older builds phrase this in prose instead of
// a symbolic code.
func IsAlreadyAttached(output string) bool {
	if baseCode(ExtractErrorCode(output)) == "WSL_E_DISK_ALREADY_ATTACHED" {
		return true
	}
	return containsFold(output, "is already attached")
}

// IsNotAttached reports whether a failed detach means there was nothing to
// detach. "element not found" is what the service returns for unknown disks
// on builds that predate the symbolic code.
func IsNotAttached(output string) bool {
	switch baseCode(ExtractErrorCode(output)) {
	case "WSL_E_DISK_NOT_ATTACHED", "ERROR_NOT_FOUND":
		return true
	}
	return containsFold(output, "is not attached") ||
		containsFold(output, "element not found")
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// HintFor maps a symbolic failure code to a short remediation hint shown
// alongside the raw message. Empty when no useful hint exists.
func HintFor(code string) string {
	switch baseCode(code) {
	case "E_ACCESSDENIED", "WSL_E_ELEVATION_REQUIRED":
		return "run from an elevated (administrator) prompt"
	case "WSL_E_WSL2_NEEDED":
		return "disk mounting requires WSL2; convert the distribution with wsl --set-version"
	case "WSL_E_DISTRO_NOT_FOUND":
		return "no such distribution; check wsl --list"
	case "WSL_E_DEFAULT_DISTRO_NOT_FOUND":
		return "no default distribution; install one or set it with wsl --set-default"
	case "ERROR_FILE_NOT_FOUND", "ERROR_PATH_NOT_FOUND":
		return "no disk with that index exists; check 'wmic diskdrive list brief'"
	case "ERROR_SHARING_VIOLATION", "WSL_E_DISK_ALREADY_MOUNTED":
		return "the disk is in use by Windows; offline it in Disk Management first"
	case "WSL_E_USER_VHD_ALREADY_ATTACHED":
		return "the VHD is attached elsewhere; detach it first"
	case "ERROR_BAD_ARGUMENTS", "E_INVALIDARG":
		return "the mount arguments were rejected; check partition index and filesystem type"
	}
	return ""
}

// FirstLine returns the first non-empty line of helper output, which is
// where wsl.exe puts its human-readable message.
func FirstLine(output string) string {
	for _, l := range strings.Split(output, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return ""
}

// Excerpt condenses raw helper output into a short diagnostic: the first few
// non-empty lines, truncated.
func Excerpt(output string, max int) string {
	var lines []string
	for _, l := range strings.Split(output, "\n") {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		lines = append(lines, l)
		if len(lines) == 3 {
			break
		}
	}
	s := strings.Join(lines, " / ")
	if max > 0 && len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
