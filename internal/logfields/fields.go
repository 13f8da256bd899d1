package logfields

const (
	// Identifiers

	MountID   = "mount-id"
	Operation = "operation"

	// Disk and partition identity

	DiskIndex   = "disk-index"
	DiskPath    = "disk-path"
	Partition   = "partition"
	Filesystem  = "filesystem"
	DriveLetter = "drive-letter"
	Location    = "network-location"
	AccessMode  = "access-mode"
	Distro      = "distro"

	// Paths

	Path      = "path"
	GuestPath = "guest-path"
	HostPath  = "host-path"

	// Process plumbing

	Command  = "command"
	ExitCode = "exitCode"
	Attempt  = "attemptNo"

	// Status

	Step      = "step"
	ErrorCode = "error-code"

	// Time

	Duration  = "duration"
	Timeout   = "timeout"
	StartTime = "startTime"
	EndTime   = "endTime"

	// Keys/Values

	Key   = "key"
	Value = "value"
	JSON  = "json"
)
