//go:build windows

package diskinfo

import (
	"context"

	"github.com/pkg/errors"
	"github.com/yusufpapurcu/wmi"

	"github.com/becksclair/limount-sub001/internal/wsl2"
)

// Win32_DiskDrive is the WMI row for a physical drive. The name is fixed by
// the WMI class.
type Win32_DiskDrive struct { //nolint:stylecheck
	Index         uint32
	DeviceID      string
	Model         string
	InterfaceType string
	Size          uint64
	Partitions    uint32
}

// List returns all physical drives, ordered by index.
func List(ctx context.Context) ([]Disk, error) {
	var drives []Win32_DiskDrive
	err := wmi.Query("SELECT Index, DeviceID, Model, InterfaceType, Size, Partitions FROM Win32_DiskDrive", &drives)
	if err != nil {
		return nil, errors.Wrap(err, "querying physical drives")
	}
	disks := make([]Disk, 0, len(drives))
	for _, d := range drives {
		path := d.DeviceID
		if path == "" {
			path = wsl2.DiskPath(int(d.Index))
		}
		disks = append(disks, Disk{
			Index:      int(d.Index),
			Path:       path,
			Model:      d.Model,
			Interface:  d.InterfaceType,
			SizeBytes:  d.Size,
			Partitions: int(d.Partitions),
		})
	}
	sortByIndex(disks)
	return disks, nil
}
