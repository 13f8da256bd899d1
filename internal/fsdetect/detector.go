// Package fsdetect infers the filesystem type of a partition that is not
// mounted anywhere, so the right --type can be offered before mounting.
//
// Windows cannot read the partition itself, but the WSL2 guest can: the
// disk is attached bare (no mount), the guest's block-device tree is
// snapshotted before and after, and the device that appeared is the disk.
// lsblk then reports the filesystem on its partitions. The attach is
// transient and always rolled back.
package fsdetect

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/becksclair/limount-sub001/internal/log"
	"github.com/becksclair/limount-sub001/internal/logfields"
	"github.com/becksclair/limount-sub001/internal/otelutil"
	"github.com/becksclair/limount-sub001/internal/wsl2"
)

// Unknown is returned when no filesystem type could be established.
// Detection is advisory: callers degrade to asking the user, so there is no
// error return to handle.
const Unknown = "unknown"

// Attacher performs bare attaches and rollback detaches.
type Attacher interface {
	Attach(ctx context.Context, req wsl2.AttachRequest) (*wsl2.AttachResult, error)
	Detach(ctx context.Context, diskIndex int) (*wsl2.DetachResult, error)
}

// GuestInspector reads block-device and mount state inside the guest.
type GuestInspector interface {
	BlockDevices(ctx context.Context) ([]wsl2.BlockDevice, error)
	MountSource(ctx context.Context, guestPath string) (string, error)
	DeviceFilesystem(ctx context.Context, device string) (string, error)
}

// PathProber answers whether a host path currently exists.
type PathProber interface {
	Exists(ctx context.Context, hostPath string) (bool, error)
}

// Detector infers filesystem types through a transient bare attach.
type Detector struct {
	attach Attacher
	guest  GuestInspector
	prober PathProber
	distro string
}

// New builds a Detector. prober and distro may be empty, which only
// disables the already-mounted shortcut.
func New(attach Attacher, guest GuestInspector, prober PathProber, distro string) *Detector {
	return &Detector{
		attach: attach,
		guest:  guest,
		prober: prober,
		distro: distro,
	}
}

// Detect returns the filesystem type of (diskIndex, partition), or Unknown.
func (d *Detector) Detect(ctx context.Context, diskIndex, partition int) string {
	ctx, span := otelutil.StartSpan(ctx, "fsdetect::Detect")
	defer span.End()

	entry := log.G(ctx).WithFields(logrus.Fields{
		logfields.DiskIndex: diskIndex,
		logfields.Partition: partition,
	})
	guestPath := wsl2.GuestMountPath(diskIndex, partition)

	// If the partition is mounted already, the live mount table knows the
	// type without touching the disk.
	if d.distro != "" && d.prober != nil {
		hostPath := wsl2.HostPath(d.distro, guestPath)
		if ok, err := d.prober.Exists(ctx, hostPath); err == nil && ok {
			if fs := d.fromMountTable(ctx, guestPath); fs != Unknown {
				return fs
			}
		}
	}

	before, err := d.guest.BlockDevices(ctx)
	if err != nil {
		entry.WithError(err).Warn("could not snapshot block devices")
		return Unknown
	}

	att, err := d.attach.Attach(ctx, wsl2.AttachRequest{DiskIndex: diskIndex, Bare: true})
	if err != nil {
		entry.WithError(err).Warn("bare attach failed")
		return Unknown
	}
	if !att.Success {
		entry.WithFields(logrus.Fields{
			logfields.ErrorCode: att.ErrorCode,
			"message":           att.ErrorMessage,
		}).Warn("bare attach failed")
		return Unknown
	}
	if !att.AlreadyAttached {
		// Roll the attach back whatever happens, including when ctx is
		// cancelled mid-detection. An attachment that predates us stays:
		// someone else owns it.
		defer func() {
			dctx := context.WithoutCancel(ctx)
			res, derr := d.attach.Detach(dctx, diskIndex)
			if derr != nil {
				entry.WithError(derr).Warn("bare attach cleanup failed")
			} else if !res.Success {
				entry.WithField(logfields.ErrorCode, res.ErrorCode).
					Warn("bare attach cleanup failed")
			}
		}()
	}

	after, err := d.guest.BlockDevices(ctx)
	if err != nil {
		entry.WithError(err).Warn("could not snapshot block devices")
		return Unknown
	}

	if fs, ok := diffFilesystem(before, after, partition); ok {
		entry.WithField(logfields.Filesystem, fs).Debug("detected filesystem from snapshot diff")
		return fs
	}
	// Zero or several candidates: the diff proves nothing, but a mount
	// that existed before (AlreadyAttached) may still answer.
	entry.Debug("snapshot diff ambiguous, consulting mount table")
	return d.fromMountTable(ctx, guestPath)
}

func (d *Detector) fromMountTable(ctx context.Context, guestPath string) string {
	src, err := d.guest.MountSource(ctx, guestPath)
	if err != nil {
		log.G(ctx).WithError(err).Debug("mount source lookup failed")
		return Unknown
	}
	if src == "" {
		return Unknown
	}
	fs, err := d.guest.DeviceFilesystem(ctx, src)
	if err != nil {
		log.G(ctx).WithError(err).Debug("device filesystem lookup failed")
		return Unknown
	}
	if fs == "" {
		return Unknown
	}
	return fs
}

// diffFilesystem identifies the disk the bare attach introduced, as the
// single parentless device present after but not before, then reads the
// wanted partition's filesystem off its children. Any ambiguity means no
// answer: hotplug noise during the window can add devices that are not
// ours.
func diffFilesystem(before, after []wsl2.BlockDevice, partition int) (string, bool) {
	known := make(map[string]struct{}, len(before))
	for _, dev := range before {
		if dev.Parent == "" {
			known[dev.Name] = struct{}{}
		}
	}
	var newTops []string
	for _, dev := range after {
		if dev.Parent != "" {
			continue
		}
		if _, ok := known[dev.Name]; !ok {
			newTops = append(newTops, dev.Name)
		}
	}
	if len(newTops) != 1 {
		return "", false
	}
	top := newTops[0]

	var types []string
	for _, dev := range after {
		if dev.Parent == top && matchesPartition(dev.Name, top, partition) && dev.FSType != "" {
			types = append(types, dev.FSType)
		}
	}
	if len(types) != 1 {
		return "", false
	}
	return types[0], true
}

// matchesPartition reports whether a child device name addresses the
// 1-based partition: sdb1 for sdb, nvme0n1p1 for nvme0n1.
func matchesPartition(name, parent string, partition int) bool {
	suffix := strings.TrimPrefix(name, parent)
	n := strconv.Itoa(partition)
	return suffix == n || suffix == "p"+n
}
