package state

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Microsoft/go-winio/pkg/guid"
	"github.com/containerd/errdefs"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/becksclair/limount-sub001/internal/access"
	"github.com/becksclair/limount-sub001/internal/log"
	"github.com/becksclair/limount-sub001/internal/logfields"
	"github.com/becksclair/limount-sub001/internal/otelutil"
)

// ErrStoreClosed is returned by every operation after Close.
var ErrStoreClosed = errors.New("mount state store is closed")

// currentVersion is the schema version written to the state file. Newer
// majors refuse nothing: unknown versions are logged and treated as empty.
const currentVersion = 1

type stateFile struct {
	Version int            `json:"version"`
	Mounts  []*ActiveMount `json:"mounts"`
}

// PathProber answers whether a host path currently exists.
type PathProber interface {
	Exists(ctx context.Context, hostPath string) (bool, error)
}

// LetterTable answers whether a drive letter is currently assigned to
// anything on the host.
type LetterTable interface {
	InUse(ctx context.Context, letter string) (bool, error)
}

// Options tunes a Store.
type Options struct {
	// ProbeTimeout bounds each per-entry host path probe during
	// Reconcile. Zero means five seconds.
	ProbeTimeout time.Duration
}

// Store owns the mount-state file. Mutations serialize under one mutex and
// rewrite the whole file through a rename, so readers of the file never see
// a torn write. Read failures are treated as an empty store: a machine
// whose state file is lost has, at worst, stale access surfaces that
// Reconcile or manual unmounts clean up.
type Store struct {
	path         string
	prober       PathProber
	letters      LetterTable
	probeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

func NewStore(path string, prober PathProber, letters LetterTable, opts *Options) *Store {
	s := &Store{
		path:         path,
		prober:       prober,
		letters:      letters,
		probeTimeout: 5 * time.Second,
	}
	if opts != nil && opts.ProbeTimeout > 0 {
		s.probeTimeout = opts.ProbeTimeout
	}
	return s
}

// Close marks the store closed. Subsequent operations fail with
// ErrStoreClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Register records a mount, replacing any existing record for the same
// (disk, partition). A missing ID is assigned and MountedAt is stamped.
func (s *Store) Register(ctx context.Context, m *ActiveMount) (err error) {
	_, span := otelutil.StartSpan(ctx, "state::Register")
	defer span.End()
	defer func() { otelutil.SetSpanStatus(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if err := m.validate(); err != nil {
		return err
	}
	if m.ID == "" {
		g, err := guid.NewV4()
		if err != nil {
			return errors.Wrap(err, "generating mount id")
		}
		m.ID = g.String()
	}
	if m.MountedAt.IsZero() {
		m.MountedAt = time.Now().UTC()
	}

	mounts := s.loadLocked(ctx)
	mounts = lo.Reject(mounts, func(e *ActiveMount, _ int) bool {
		return e.DiskIndex == m.DiskIndex && e.Partition == m.Partition
	})
	mounts = append(mounts, m)
	return s.saveLocked(mounts)
}

// UnregisterPartition removes the record for one (disk, partition).
// Removing an absent record is a no-op: teardown paths call this without
// knowing whether the mount ever registered.
func (s *Store) UnregisterPartition(ctx context.Context, diskIndex, partition int) (err error) {
	_, span := otelutil.StartSpan(ctx, "state::UnregisterPartition")
	defer span.End()
	defer func() { otelutil.SetSpanStatus(span, err) }()

	return s.unregister(ctx, func(e *ActiveMount) bool {
		return e.DiskIndex == diskIndex && e.Partition == partition
	})
}

// UnregisterDisk removes the records of every partition of a disk. Detach
// operates on whole disks, so unmount flows clear the disk's records in one
// go.
func (s *Store) UnregisterDisk(ctx context.Context, diskIndex int) (err error) {
	_, span := otelutil.StartSpan(ctx, "state::UnregisterDisk")
	defer span.End()
	defer func() { otelutil.SetSpanStatus(span, err) }()

	return s.unregister(ctx, func(e *ActiveMount) bool {
		return e.DiskIndex == diskIndex
	})
}

func (s *Store) unregister(ctx context.Context, match func(*ActiveMount) bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	mounts := s.loadLocked(ctx)
	remaining := lo.Reject(mounts, func(e *ActiveMount, _ int) bool { return match(e) })
	if len(remaining) == len(mounts) {
		return nil
	}
	return s.saveLocked(remaining)
}

// All returns every record.
func (s *Store) All(ctx context.Context) ([]*ActiveMount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return s.loadLocked(ctx), nil
}

// ForDisk returns the records of every partition of a disk.
func (s *Store) ForDisk(ctx context.Context, diskIndex int) ([]*ActiveMount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	return lo.Filter(s.loadLocked(ctx), func(e *ActiveMount, _ int) bool {
		return e.DiskIndex == diskIndex
	}), nil
}

// ForDiskPartition returns the record for one (disk, partition).
func (s *Store) ForDiskPartition(ctx context.Context, diskIndex, partition int) (*ActiveMount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	m, ok := lo.Find(s.loadLocked(ctx), func(e *ActiveMount) bool {
		return e.DiskIndex == diskIndex && e.Partition == partition
	})
	if !ok {
		return nil, errors.Wrapf(errdefs.ErrNotFound, "mount for disk %d partition %d", diskIndex, partition)
	}
	return m, nil
}

// ForDriveLetter returns the record claiming a drive letter.
func (s *Store) ForDriveLetter(ctx context.Context, letter string) (*ActiveMount, error) {
	normalized, err := access.NormalizeLetter(letter)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	m, ok := lo.Find(s.loadLocked(ctx), func(e *ActiveMount) bool {
		return e.Mode == access.ModeDriveLetter && e.DriveLetter == normalized
	})
	if !ok {
		return nil, errors.Wrapf(errdefs.ErrNotFound, "mount for drive letter %s", normalized)
	}
	return m, nil
}

// IsDiskMounted reports whether any partition of the disk has a record.
func (s *Store) IsDiskMounted(ctx context.Context, diskIndex int) (bool, error) {
	mounts, err := s.ForDisk(ctx, diskIndex)
	if err != nil {
		return false, err
	}
	return len(mounts) > 0, nil
}

// IsDriveLetterInUse reports whether any record claims the letter.
func (s *Store) IsDriveLetterInUse(ctx context.Context, letter string) (bool, error) {
	_, err := s.ForDriveLetter(ctx, letter)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ClearAll drops every record.
func (s *Store) ClearAll(ctx context.Context) (err error) {
	_, span := otelutil.StartSpan(ctx, "state::ClearAll")
	defer span.End()
	defer func() { otelutil.SetSpanStatus(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.saveLocked(nil)
}

// loadLocked reads the state file under s.mu. Any failure reading or
// decoding it is logged and yields an empty state.
func (s *Store) loadLocked(ctx context.Context) []*ActiveMount {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.G(ctx).WithError(err).WithField(logfields.Path, s.path).
				Warn("could not read mount state, treating as empty")
		}
		return nil
	}
	var f stateFile
	if err := json.Unmarshal(data, &f); err != nil {
		log.G(ctx).WithError(err).WithField(logfields.Path, s.path).
			Warn("mount state is corrupt, treating as empty")
		return nil
	}
	if f.Version > currentVersion {
		log.G(ctx).WithField("version", f.Version).
			Warn("mount state written by a newer version, treating as empty")
		return nil
	}
	return f.Mounts
}

func (s *Store) saveLocked(mounts []*ActiveMount) error {
	data, err := json.MarshalIndent(&stateFile{Version: currentVersion, Mounts: mounts}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding mount state")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Wrap(err, "creating state directory")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errors.Wrap(err, "writing mount state")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "committing mount state")
	}
	return nil
}
