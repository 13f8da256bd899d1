// Package state keeps the durable record of active mounts. The record is
// what survives process restarts: every successful mount registers here and
// every successful unmount removes its entry, so the store is the single
// source of truth for "what do we believe is mounted".
//
// Beliefs drift when disks are unplugged or the VM restarts behind our
// back; Reconcile walks the records and compares them against observable
// host state.
package state

import (
	"time"

	"github.com/pkg/errors"

	"github.com/becksclair/limount-sub001/internal/access"
)

// ActiveMount is one mounted (disk, partition) and the access surface
// created for it. Exactly one record exists per (DiskIndex, Partition).
type ActiveMount struct {
	ID           string      `json:"id"`
	DiskIndex    int         `json:"diskIndex"`
	Partition    int         `json:"partition"`
	Mode         access.Mode `json:"mode"`
	DriveLetter  string      `json:"driveLetter,omitempty"`
	LocationName string      `json:"locationName,omitempty"`
	Distro       string      `json:"distro,omitempty"`
	GuestPath    string      `json:"guestPath,omitempty"`
	HostPath     string      `json:"hostPath,omitempty"`
	// Verified reports whether the last reconciliation saw the host path.
	Verified     bool      `json:"verified"`
	LastVerified time.Time `json:"lastVerified,omitempty"`
	MountedAt    time.Time `json:"mountedAt"`
}

func (m *ActiveMount) validate() error {
	if m.DiskIndex < 0 {
		return errors.Errorf("invalid disk index %d", m.DiskIndex)
	}
	if m.Partition < 1 {
		return errors.Errorf("invalid partition %d", m.Partition)
	}
	if !m.Mode.Valid() {
		return errors.Errorf("invalid access mode %q", m.Mode)
	}
	if m.Mode.NeedsDriveLetter() {
		letter, err := access.NormalizeLetter(m.DriveLetter)
		if err != nil {
			return err
		}
		m.DriveLetter = letter
	}
	return nil
}

// AccessInfo rebuilds the access surface identity from the record, used to
// remove the surface during unmount.
func (m *ActiveMount) AccessInfo() access.Info {
	return access.Info{
		Mode:         m.Mode,
		DriveLetter:  m.DriveLetter,
		LocationName: m.LocationName,
		HostPath:     m.HostPath,
		DiskIndex:    m.DiskIndex,
		Partition:    m.Partition,
	}
}
