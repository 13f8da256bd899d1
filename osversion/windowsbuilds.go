package osversion

const (
	// V21H2Server corresponds to Windows Server 2022.
	V21H2Server = 20348

	// V21H2Win11 corresponds to Windows 11 (original release).
	V21H2Win11 = 22000

	// MinDiskMountBuild is the first build whose inbox WSL can attach
	// physical disks to the utility VM (wsl --mount). Older Windows 10
	// builds need the Store release of WSL, which reports its own
	// version and is gated separately.
	MinDiskMountBuild = V21H2Server
)
