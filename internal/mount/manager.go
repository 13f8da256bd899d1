// Package mount composes the attach gateway, the access gateway, the state
// store and the history log into the two end-to-end workflows users invoke:
// mount-and-map and unmount-and-unmap.
//
// The orchestration here is the part that reasons about partial failure. A
// mount that attached but could not be mapped is rolled back; an unmount
// whose unmap failed still detaches, because a disk left attached is worse
// than a stale access surface; bookkeeping failures never fail an operation
// that succeeded on the real system. Callers racing on the same disk are
// not serialized here; the state store serializes its own mutations and the
// caller keeps concurrent operations on one target apart.
package mount

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/becksclair/limount-sub001/internal/access"
	"github.com/becksclair/limount-sub001/internal/history"
	"github.com/becksclair/limount-sub001/internal/log"
	"github.com/becksclair/limount-sub001/internal/logfields"
	"github.com/becksclair/limount-sub001/internal/otelutil"
	"github.com/becksclair/limount-sub001/internal/state"
	"github.com/becksclair/limount-sub001/internal/wsl2"
)

// AttachGateway attaches and detaches disks.
type AttachGateway interface {
	Attach(ctx context.Context, req wsl2.AttachRequest) (*wsl2.AttachResult, error)
	Detach(ctx context.Context, diskIndex int) (*wsl2.DetachResult, error)
}

// AccessGateway creates and removes host access surfaces.
type AccessGateway interface {
	Create(ctx context.Context, req access.CreateRequest) (*access.CreateResult, error)
	Remove(ctx context.Context, info access.Info) (*access.RemoveResult, error)
}

// Registry is the slice of the state store the orchestrator needs.
type Registry interface {
	Register(ctx context.Context, m *state.ActiveMount) error
	UnregisterDisk(ctx context.Context, diskIndex int) error
	ForDisk(ctx context.Context, diskIndex int) ([]*state.ActiveMount, error)
	ForDriveLetter(ctx context.Context, letter string) (*state.ActiveMount, error)
}

// Recorder appends history entries.
type Recorder interface {
	Append(ctx context.Context, e *history.Entry) error
}

// PathWaiter polls for a host path to become visible.
type PathWaiter interface {
	WaitAvailable(ctx context.Context, hostPath string, attempts int, delay time.Duration) (bool, error)
}

const (
	defaultPathWaitAttempts = 10
	defaultPathWaitDelay    = 500 * time.Millisecond
)

// Options tunes a Manager.
type Options struct {
	// PathWaitAttempts bounds the host path availability poll after a
	// successful attach. Zero means ten.
	PathWaitAttempts int
	// PathWaitDelay is the fixed delay between poll attempts. Zero means
	// half a second.
	PathWaitDelay time.Duration
	// Progress, when set, is invoked as the orchestrator enters each
	// externally visible phase. Rollback after a failed map is reported
	// as StepUnmount.
	Progress func(Step)
}

// Manager runs the combined workflows. The store, the history log and the
// waiter may each be nil, which disables tracking, logging of outcomes and
// path polling respectively; the gateways are required.
type Manager struct {
	attach   AttachGateway
	access   AccessGateway
	store    Registry
	history  Recorder
	waiter   PathWaiter
	attempts int
	delay    time.Duration
	progress func(Step)
}

func NewManager(attach AttachGateway, acc AccessGateway, store Registry, rec Recorder, waiter PathWaiter, opts *Options) *Manager {
	m := &Manager{
		attach:   attach,
		access:   acc,
		store:    store,
		history:  rec,
		waiter:   waiter,
		attempts: defaultPathWaitAttempts,
		delay:    defaultPathWaitDelay,
	}
	if opts != nil {
		if opts.PathWaitAttempts > 0 {
			m.attempts = opts.PathWaitAttempts
		}
		if opts.PathWaitDelay > 0 {
			m.delay = opts.PathWaitDelay
		}
		m.progress = opts.Progress
	}
	return m
}

func (m *Manager) step(s Step) {
	if m.progress != nil {
		m.progress(s)
	}
}

// MountRequest describes one mount-and-map operation.
type MountRequest struct {
	DiskIndex int
	// Partition is the 1-based partition to mount.
	Partition int
	Mode      access.Mode
	// DriveLetter is required for access.ModeDriveLetter. Any spelling
	// NormalizeLetter accepts is fine.
	DriveLetter string
	// LocationName names the network location; empty picks a default.
	LocationName string
	// Filesystem is the type mounted in the guest, empty for the
	// platform default.
	Filesystem string
	Distro     string
	// Options are extra fstab-style mount options.
	Options []string
}

func (r *MountRequest) validate() error {
	if r.DiskIndex < 0 {
		return errors.Errorf("invalid disk index %d", r.DiskIndex)
	}
	if r.Partition < 1 {
		return errors.Errorf("invalid partition %d", r.Partition)
	}
	if !r.Mode.Valid() {
		return errors.Errorf("unknown access mode %q", r.Mode)
	}
	if r.Mode.NeedsDriveLetter() {
		letter, err := access.NormalizeLetter(r.DriveLetter)
		if err != nil {
			return err
		}
		r.DriveLetter = letter
	}
	return nil
}

// MountAndMap attaches a partition to the guest, waits for its host path,
// creates the requested access surface, records the mount and logs the
// outcome. Failures always come back as a Result with a step tag; the
// gateway's own message, code and hint are carried verbatim.
func (m *Manager) MountAndMap(ctx context.Context, req MountRequest) *Result {
	ctx, span := otelutil.StartSpan(ctx, "mount::MountAndMap")
	defer span.End()
	ctx = log.S(ctx, logrus.Fields{
		logfields.DiskIndex:  req.DiskIndex,
		logfields.Partition:  req.Partition,
		logfields.AccessMode: string(req.Mode),
	})

	res := &Result{Mode: req.Mode, Distro: req.Distro, When: time.Now().UTC()}
	defer m.record(ctx, history.OpMount, req.DiskIndex, req.Partition, req.Filesystem, res)

	if err := req.validate(); err != nil {
		return res.fail(StepValidation, err.Error())
	}
	res.DriveLetter = req.DriveLetter

	m.step(StepMount)
	att, err := m.attach.Attach(ctx, wsl2.AttachRequest{
		DiskIndex:  req.DiskIndex,
		Partition:  req.Partition,
		Filesystem: req.Filesystem,
		Distro:     req.Distro,
		Options:    req.Options,
	})
	if err != nil {
		return res.fail(StepMount, err.Error())
	}
	if !att.Success {
		res.fail(StepMount, att.ErrorMessage)
		res.ErrorCode = att.ErrorCode
		res.ErrorHint = att.ErrorHint
		res.Diagnostic = att.Diagnostic
		return res
	}
	res.Distro = att.Distro
	res.GuestPath = att.GuestPath
	res.HostPath = att.HostPath
	res.AlreadyAttached = att.AlreadyAttached

	// The platform reports success before \\wsl$ exposes the mount point.
	// When the wait runs out we proceed anyway: an access surface that
	// starts working a moment later beats a failed mount.
	if m.waiter != nil && res.HostPath != "" && !att.HostPathVerified {
		ok, werr := m.waiter.WaitAvailable(ctx, res.HostPath, m.attempts, m.delay)
		if werr != nil {
			m.rollback(ctx, req.DiskIndex)
			return res.fail(StepMount, werr.Error())
		}
		if !ok {
			log.G(ctx).WithField(logfields.HostPath, res.HostPath).
				Warn("host path did not become visible in time")
			res.warn("the mount's host path was not visible yet; it may take a moment to appear")
		}
	}

	m.step(StepMap)
	acc, err := m.access.Create(ctx, access.CreateRequest{
		Mode:         req.Mode,
		HostPath:     res.HostPath,
		DriveLetter:  req.DriveLetter,
		LocationName: req.LocationName,
		DiskIndex:    req.DiskIndex,
		Partition:    req.Partition,
	})
	if err != nil {
		m.rollback(ctx, req.DiskIndex)
		return res.fail(StepMap, err.Error())
	}
	if !acc.Success {
		m.rollback(ctx, req.DiskIndex)
		res.fail(StepMap, acc.ErrorMessage)
		res.ErrorHint = acc.FailedHint
		return res
	}
	info := acc.Info
	if info == nil {
		// The gateway contract says Info accompanies Success; fall back
		// to the request's view rather than trusting it blindly.
		log.G(ctx).Warn("access gateway reported success without surface info")
		info = &access.Info{
			Mode:         req.Mode,
			DriveLetter:  req.DriveLetter,
			LocationName: req.LocationName,
			HostPath:     res.HostPath,
			DiskIndex:    req.DiskIndex,
			Partition:    req.Partition,
		}
	}
	res.DriveLetter = info.DriveLetter
	res.LocationName = info.LocationName

	if m.store != nil {
		record := &state.ActiveMount{
			DiskIndex:    req.DiskIndex,
			Partition:    req.Partition,
			Mode:         req.Mode,
			DriveLetter:  info.DriveLetter,
			LocationName: info.LocationName,
			Distro:       res.Distro,
			GuestPath:    res.GuestPath,
			HostPath:     res.HostPath,
		}
		if err := m.store.Register(ctx, record); err != nil {
			log.G(ctx).WithError(err).Warn("could not record the mount")
			res.warn("the mount succeeded but could not be recorded: " + err.Error())
		}
	}
	res.Success = true
	return res
}

// rollback detaches a disk after a failed map so it is not left attached
// with no access surface and no record. Best effort: its own failure is
// logged, never surfaced.
func (m *Manager) rollback(ctx context.Context, diskIndex int) {
	m.step(StepUnmount)
	log.G(ctx).Info("rolling back attach after failed map")
	dctx := context.WithoutCancel(ctx)
	det, err := m.attach.Detach(dctx, diskIndex)
	if err != nil {
		log.G(ctx).WithError(err).Warn("rollback detach failed")
	} else if !det.Success {
		log.G(ctx).WithField(logfields.ErrorCode, det.ErrorCode).
			Warn("rollback detach failed")
	}
}

// UnmountRequest describes one unmount-and-unmap operation.
type UnmountRequest struct {
	DiskIndex int
	Mode      access.Mode
	// DriveLetter is required for access.ModeDriveLetter.
	DriveLetter string
}

func (r *UnmountRequest) validate() error {
	if r.DiskIndex < 0 {
		return errors.Errorf("invalid disk index %d", r.DiskIndex)
	}
	if !r.Mode.Valid() {
		return errors.Errorf("unknown access mode %q", r.Mode)
	}
	if r.Mode.NeedsDriveLetter() {
		letter, err := access.NormalizeLetter(r.DriveLetter)
		if err != nil {
			return err
		}
		r.DriveLetter = letter
	}
	return nil
}

// UnmountAndUnmap removes the access surface of a mounted disk and detaches
// it. The unmap runs first but a failed unmap does not stop the detach:
// leaving the disk attached is the worse outcome. A detach of a disk the
// platform no longer considers attached counts as success, so unmounts are
// idempotent.
func (m *Manager) UnmountAndUnmap(ctx context.Context, req UnmountRequest) *Result {
	ctx, span := otelutil.StartSpan(ctx, "mount::UnmountAndUnmap")
	defer span.End()
	ctx = log.S(ctx, logrus.Fields{
		logfields.DiskIndex:  req.DiskIndex,
		logfields.AccessMode: string(req.Mode),
	})

	res := &Result{Mode: req.Mode, When: time.Now().UTC()}
	defer m.record(ctx, history.OpUnmount, req.DiskIndex, 0, "", res)

	if err := req.validate(); err != nil {
		return res.fail(StepValidation, err.Error())
	}
	res.DriveLetter = req.DriveLetter

	info := m.accessInfo(ctx, req)
	res.Mode = info.Mode
	res.DriveLetter = info.DriveLetter
	res.LocationName = info.LocationName

	m.step(StepUnmap)
	rm, rmErr := m.access.Remove(ctx, info)
	unmapOK := rmErr == nil && rm.Success
	if rmErr != nil {
		log.G(ctx).WithError(rmErr).Warn("access surface removal failed")
	} else if !rm.Success && rm.SucceededSilently() {
		// The helper claimed failure with no error text and exit code
		// zero. Treated as success, but visibly: the surface should be
		// checked if it lingers.
		log.G(ctx).Warn("unmap reported failure with no error and exit code 0; counting it as success")
		res.warn("the access surface removal gave no result; verify it is gone")
		unmapOK = true
	}

	m.step(StepUnmount)
	det, detErr := m.attach.Detach(ctx, req.DiskIndex)
	detachOK := detErr == nil && (det.Success || det.NotAttached)

	switch {
	case detachOK && unmapOK:
		if m.store != nil {
			if err := m.store.UnregisterDisk(ctx, req.DiskIndex); err != nil {
				log.G(ctx).WithError(err).Warn("could not remove the mount record")
				res.warn("the unmount succeeded but its record could not be removed: " + err.Error())
			}
		}
		res.Success = true
	case !detachOK:
		// The disk is still attached; that trumps whatever the unmap did.
		if detErr != nil {
			res.fail(StepUnmount, detErr.Error())
		} else {
			res.fail(StepUnmount, det.ErrorMessage)
			res.ErrorCode = det.ErrorCode
		}
	default:
		// Unmap failed, detach worked: the disk is safely out, only the
		// surface may need manual cleanup.
		if rmErr != nil {
			res.fail(StepUnmap, rmErr.Error())
		} else {
			res.fail(StepUnmap, rm.ErrorMessage)
			res.ErrorHint = rm.FailedHint
		}
	}
	return res
}

// accessInfo rebuilds the surface identity for removal, preferring what the
// state store remembers over what the caller passed: the store knows the
// location name and host path the surface was created with.
func (m *Manager) accessInfo(ctx context.Context, req UnmountRequest) access.Info {
	info := access.Info{
		Mode:        req.Mode,
		DriveLetter: req.DriveLetter,
		DiskIndex:   req.DiskIndex,
	}
	if m.store == nil {
		return info
	}
	if req.Mode == access.ModeDriveLetter && req.DriveLetter != "" {
		if rec, err := m.store.ForDriveLetter(ctx, req.DriveLetter); err == nil && rec.DiskIndex == req.DiskIndex {
			return rec.AccessInfo()
		}
		return info
	}
	if recs, err := m.store.ForDisk(ctx, req.DiskIndex); err == nil && len(recs) > 0 {
		return recs[0].AccessInfo()
	}
	return info
}

// record appends the history entry every invocation leaves behind. It runs
// on a non-cancellable context so cancelled operations still get logged;
// history failures are logged and swallowed.
func (m *Manager) record(ctx context.Context, op string, diskIndex, partition int, fstype string, res *Result) {
	if m.history == nil {
		return
	}
	e := &history.Entry{
		When:         res.When,
		Op:           op,
		DiskIndex:    diskIndex,
		Partition:    partition,
		Mode:         res.Mode,
		DriveLetter:  res.DriveLetter,
		LocationName: res.LocationName,
		Distro:       res.Distro,
		Filesystem:   fstype,
		Success:      res.Success,
		FailedStep:   string(res.FailedStep),
		ErrorCode:    res.ErrorCode,
		ErrorMessage: res.ErrorMessage,
		ErrorHint:    res.ErrorHint,
		Diagnostic:   res.Diagnostic,
	}
	if err := m.history.Append(context.WithoutCancel(ctx), e); err != nil {
		log.G(ctx).WithError(err).WithField(logfields.Operation, op).
			Warn("could not append history entry")
	}
}
