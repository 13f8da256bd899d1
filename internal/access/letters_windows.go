//go:build windows

package access

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/yusufpapurcu/wmi"
	"golang.org/x/sys/windows"
)

// Letters answers drive-letter queries from the live system: the kernel's
// drive bitmask for raw presence, WMI for what network letters point at.
type Letters struct{}

// InUse reports whether any volume, mapping or subst currently occupies the
// letter. The letter must be in normalized form.
func (Letters) InUse(ctx context.Context, letter string) (bool, error) {
	if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'Z' {
		return false, errors.Errorf("invalid drive letter %q", letter)
	}
	mask, err := windows.GetLogicalDrives()
	if err != nil {
		return false, errors.Wrap(err, "reading drive bitmask")
	}
	return mask&(1<<(letter[0]-'A')) != 0, nil
}

// Win32_LogicalDisk is the WMI row for a logical drive. The name is fixed
// by the WMI class.
type Win32_LogicalDisk struct { //nolint:stylecheck
	DeviceID     string
	DriveType    uint32
	ProviderName *string
}

// Assignments maps each network-mapped letter (normalized, no colon) to its
// UNC target.
func (Letters) Assignments(ctx context.Context) (map[string]string, error) {
	var disks []Win32_LogicalDisk
	err := wmi.Query("SELECT DeviceID, DriveType, ProviderName FROM Win32_LogicalDisk WHERE DriveType = 4", &disks)
	if err != nil {
		return nil, errors.Wrap(err, "querying logical disks")
	}
	out := make(map[string]string, len(disks))
	for _, d := range disks {
		letter := strings.ToUpper(strings.TrimSuffix(d.DeviceID, ":"))
		if len(letter) != 1 || d.ProviderName == nil {
			continue
		}
		out[letter] = *d.ProviderName
	}
	return out, nil
}
