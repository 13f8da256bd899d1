//go:build windows

package wsl2

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Guest inspection runs commands inside the distribution through
// `wsl.exe -e`, bypassing the shell. Elevation is never needed for these.

func (s *Service) guestArgs(args ...string) []string {
	out := make([]string, 0, len(args)+3)
	if s.distro != "" {
		out = append(out, "-d", s.distro)
	}
	out = append(out, "-e")
	return append(out, args...)
}

// BlockDevices snapshots the guest's block-device tree.
func (s *Service) BlockDevices(ctx context.Context) ([]BlockDevice, error) {
	out, exit, err := s.runWSL(ctx, s.guestArgs("lsblk", "-J", "-o", "NAME,PKNAME,FSTYPE")...)
	if err != nil {
		return nil, err
	}
	if exit != 0 {
		return nil, errors.Errorf("lsblk failed (exit %d): %s", exit, Excerpt(out, 160))
	}
	return ParseLsblk([]byte(out))
}

// MountSource returns the source device of the filesystem mounted at the
// given guest path, or "" when nothing is mounted there.
func (s *Service) MountSource(ctx context.Context, guestPath string) (string, error) {
	out, exit, err := s.runWSL(ctx, s.guestArgs("findmnt", "-no", "SOURCE", guestPath)...)
	if err != nil {
		return "", err
	}
	// findmnt exits 1 for an unknown mount point.
	if exit != 0 {
		return "", nil
	}
	return strings.TrimSpace(out), nil
}

// DeviceFilesystem returns the filesystem type lsblk reports for a single
// guest device, or "" when none is recognized.
func (s *Service) DeviceFilesystem(ctx context.Context, device string) (string, error) {
	if !strings.HasPrefix(device, "/dev/") {
		device = "/dev/" + device
	}
	out, exit, err := s.runWSL(ctx, s.guestArgs("lsblk", "-no", "FSTYPE", device)...)
	if err != nil {
		return "", err
	}
	if exit != 0 {
		return "", errors.Errorf("lsblk %s failed (exit %d): %s", device, exit, Excerpt(out, 160))
	}
	return strings.TrimSpace(FirstLine(out)), nil
}
