package wsl2

import (
	"fmt"
	"strings"
)

const (
	physicalDrivePrefix = `\\.\PHYSICALDRIVE`

	// guestMountRoot is where the platform places mount points for
	// attached disks inside every distribution.
	guestMountRoot = "/mnt/wsl"

	hostShareRoot = `\\wsl$`
)

// DiskPath returns the Windows device path for a physical drive number.
func DiskPath(diskIndex int) string {
	return fmt.Sprintf("%s%d", physicalDrivePrefix, diskIndex)
}

// ParseDiskPath extracts the drive number from a \\.\PHYSICALDRIVE<n> path.
func ParseDiskPath(p string) (int, bool) {
	rest, ok := cutPrefixFold(p, physicalDrivePrefix)
	if !ok || rest == "" {
		return 0, false
	}
	n := 0
	for _, c := range rest {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return s, false
	}
	return s[len(prefix):], true
}

// MountNameFor returns the directory name the platform gives a mount under
// /mnt/wsl: the final path component of the disk target, with a p<p> suffix
// when a specific partition was mounted.
func MountNameFor(target string, partition int) string {
	name := target[strings.LastIndexAny(target, `\/`)+1:]
	if partition > 0 {
		name = fmt.Sprintf("%sp%d", name, partition)
	}
	return name
}

// GuestMountName is MountNameFor applied to a physical drive:
// PHYSICALDRIVE<n>, or PHYSICALDRIVE<n>p<p> for a partition mount.
func GuestMountName(diskIndex, partition int) string {
	return MountNameFor(DiskPath(diskIndex), partition)
}

// GuestMountPath returns the mount point inside the guest for a disk and
// partition.
func GuestMountPath(diskIndex, partition int) string {
	return guestMountRoot + "/" + GuestMountName(diskIndex, partition)
}

// HostPath translates a guest path into the UNC path the host reaches it by,
// through the given distribution's \\wsl$ share.
func HostPath(distro, guestPath string) string {
	return hostShareRoot + `\` + distro + strings.ReplaceAll(guestPath, "/", `\`)
}

// HostMountPath returns the host-visible UNC path of a mounted disk.
func HostMountPath(distro string, diskIndex, partition int) string {
	return HostPath(distro, GuestMountPath(diskIndex, partition))
}
