// Package diskinfo enumerates the host's physical drives so users can find
// the disk index to mount.
package diskinfo

import (
	"fmt"
	"sort"
)

// Disk describes one physical drive.
type Disk struct {
	Index      int
	Path       string
	Model      string
	Interface  string
	SizeBytes  uint64
	Partitions int
}

func sortByIndex(disks []Disk) {
	sort.Slice(disks, func(i, j int) bool { return disks[i].Index < disks[j].Index })
}

// HumanSize renders a byte count the way disk sizes are usually read, in
// binary units with one decimal.
func HumanSize(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
