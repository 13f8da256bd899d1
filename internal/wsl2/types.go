// Package wsl2 talks to the WSL2 utility VM: attaching and detaching disks
// through wsl.exe, and inspecting block devices and mounts inside the guest.
//
// All operations report through typed results rather than errors: wsl.exe is
// an external helper whose failures are data (message, code, hint) that the
// caller surfaces to the user verbatim. The error return on gateway methods
// is reserved for transport problems, such as failing to launch the helper
// or context cancellation.
package wsl2

// AttachRequest describes a disk attach operation.
type AttachRequest struct {
	// DiskIndex is the physical drive number (\\.\PHYSICALDRIVE<n>).
	// Ignored when VHDPath is set.
	DiskIndex int
	// Partition is the 1-based partition to mount. Zero mounts the whole
	// disk, or nothing at all when Bare is set.
	Partition int
	// Filesystem is the type passed to the guest mount (--type). Empty
	// lets the platform pick its default.
	Filesystem string
	// Distro selects the distribution whose view of /mnt/wsl is used for
	// host paths. Empty means the default distribution.
	Distro string
	// Bare attaches the disk to the VM without mounting a filesystem.
	// Used for inspection only.
	Bare bool
	// VHDPath attaches a virtual disk file instead of a physical drive.
	VHDPath string
	// Options are fstab-style mount options passed through to the guest
	// mount (--options).
	Options []string
}

// TargetPath returns the disk path handed to the attach primitive.
func (r AttachRequest) TargetPath() string {
	if r.VHDPath != "" {
		return r.VHDPath
	}
	return DiskPath(r.DiskIndex)
}

// AttachResult is the typed outcome of one attach call. It is produced once
// and consumed once; nothing retains it.
type AttachResult struct {
	Success bool `json:"success"`
	// Distro is the distribution the mount is visible through.
	Distro string `json:"distro,omitempty"`
	// GuestPath is the mount point inside the guest, empty for bare
	// attaches.
	GuestPath string `json:"guestPath,omitempty"`
	// HostPath is the host-visible UNC path of the guest mount point,
	// empty for bare attaches.
	HostPath string `json:"hostPath,omitempty"`
	// AlreadyAttached reports that the platform said the disk was attached
	// before this call. The call is still counted as a success.
	AlreadyAttached bool `json:"alreadyAttached,omitempty"`
	// HostPathVerified reports a single non-blocking existence check of
	// HostPath made right after the attach. The platform may report
	// success before the path is enumerable, so false is not failure.
	HostPathVerified bool `json:"hostPathVerified,omitempty"`

	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	ErrorHint    string `json:"errorHint,omitempty"`
	// Diagnostic carries an excerpt of the raw helper output for failure
	// reports.
	Diagnostic string `json:"diagnostic,omitempty"`
}

// DetachResult is the typed outcome of one detach call.
type DetachResult struct {
	Success   bool `json:"success"`
	DiskIndex int  `json:"diskIndex"`
	// NotAttached reports that the platform said there was nothing to
	// detach. Callers normalize this to success for idempotent unmounts.
	NotAttached bool `json:"notAttached,omitempty"`

	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// BlockDevice is one row of the guest's block-device tree. Entries only live
// for the duration of a single inspection.
type BlockDevice struct {
	// Name is the kernel device name, e.g. "sdb" or "sdb1".
	Name string
	// Parent is the name of the parent device, empty for top-level disks.
	Parent string
	// FSType is the filesystem reported on the device, empty when none
	// was recognized.
	FSType string
}
