package wsl2

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// lsblk -J output. Depending on the version, partitions appear either
// nested under their disk's "children" or as flat rows with a "pkname".
type lsblkDevice struct {
	Name     string        `json:"name"`
	PKName   string        `json:"pkname"`
	FSType   string        `json:"fstype"`
	Children []lsblkDevice `json:"children,omitempty"`
}

type lsblkReport struct {
	BlockDevices []lsblkDevice `json:"blockdevices"`
}

// ParseLsblk flattens the JSON report of `lsblk -J -o NAME,PKNAME,FSTYPE`
// into BlockDevice rows, resolving each row's parent from either the pkname
// column or the enclosing device.
func ParseLsblk(data []byte) ([]BlockDevice, error) {
	var report lsblkReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrap(err, "parsing lsblk output")
	}
	var devices []BlockDevice
	for _, d := range report.BlockDevices {
		devices = appendDevice(devices, d, "")
	}
	return devices, nil
}

func appendDevice(devices []BlockDevice, d lsblkDevice, parent string) []BlockDevice {
	if d.PKName != "" {
		parent = d.PKName
	}
	devices = append(devices, BlockDevice{
		Name:   d.Name,
		Parent: parent,
		FSType: d.FSType,
	})
	for _, c := range d.Children {
		devices = appendDevice(devices, c, d.Name)
	}
	return devices
}
