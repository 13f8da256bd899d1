package wsl2

import (
	"strconv"
	"strings"
)

// attachArgs builds the wsl.exe argument list for an attach. extra is
// appended verbatim after the request's own flags so operator-supplied
// passthrough arguments win.
func attachArgs(req AttachRequest, extra []string) []string {
	args := []string{"--mount", req.TargetPath()}
	if req.VHDPath != "" {
		args = append(args, "--vhd")
	}
	if req.Bare {
		args = append(args, "--bare")
	} else {
		if req.Partition > 0 {
			args = append(args, "--partition", strconv.Itoa(req.Partition))
		}
		if req.Filesystem != "" {
			args = append(args, "--type", req.Filesystem)
		}
		if len(req.Options) > 0 {
			args = append(args, "--options", strings.Join(req.Options, ","))
		}
	}
	return append(args, extra...)
}

func detachArgs(diskIndex int) []string {
	return []string{"--unmount", DiskPath(diskIndex)}
}

// elevatedAttachArgs builds the command line for the hidden elevated-attach
// command the unelevated parent launches through UAC. Everything that
// influences the attach must be carried here, including the operator's
// extra passthrough arguments: the elevated child starts from a bare
// environment and replays exactly what it is handed.
func elevatedAttachArgs(req AttachRequest, resultPath string, extra []string) []string {
	args := []string{"elevated-attach", "--result", resultPath}
	if req.VHDPath != "" {
		args = append(args, "--vhd", req.VHDPath)
	} else {
		args = append(args, "--disk", strconv.Itoa(req.DiskIndex))
	}
	if req.Bare {
		args = append(args, "--bare")
	}
	if req.Partition > 0 {
		args = append(args, "--partition", strconv.Itoa(req.Partition))
	}
	if req.Filesystem != "" {
		args = append(args, "--type", req.Filesystem)
	}
	if len(req.Options) > 0 {
		args = append(args, "--options", strings.Join(req.Options, ","))
	}
	if req.Distro != "" {
		args = append(args, "--distro", req.Distro)
	}
	for _, a := range extra {
		args = append(args, "--extra", a)
	}
	return args
}

func elevatedDetachArgs(diskIndex int, resultPath string) []string {
	return []string{"elevated-detach", "--result", resultPath, "--disk", strconv.Itoa(diskIndex)}
}
