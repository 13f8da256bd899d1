package state

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/becksclair/limount-sub001/internal/access"
	"github.com/becksclair/limount-sub001/internal/log"
	"github.com/becksclair/limount-sub001/internal/logfields"
	"github.com/becksclair/limount-sub001/internal/otelutil"
)

type verdict int

const (
	// verdictUnverified keeps the record but clears its Verified flag:
	// the probe could not establish either presence or definite absence.
	verdictUnverified verdict = iota
	verdictVerified
	verdictOrphaned
)

// Reconcile compares every record against observable host state and updates
// the store in place. A record whose host path exists is marked verified. A
// record whose host path is definitively gone is dropped only when its
// drive letter is also free, which rules out a sick \\wsl$ share hiding a
// live mount; everything else is kept with Verified cleared. Dropped
// records are returned so callers can report them.
//
// The asymmetry is deliberate: dropping a live mount's record strands its
// access surface forever, while keeping a dead one only costs a stale
// status line.
func (s *Store) Reconcile(ctx context.Context) (_ []*ActiveMount, err error) {
	ctx, span := otelutil.StartSpan(ctx, "state::Reconcile")
	defer span.End()
	defer func() { otelutil.SetSpanStatus(span, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	mounts := s.loadLocked(ctx)
	if len(mounts) == 0 {
		return nil, nil
	}

	// Probes are independent and \\wsl$ stats can each take their full
	// timeout, so run them together.
	verdicts := make([]verdict, len(mounts))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range mounts {
		i, m := i, m
		g.Go(func() error {
			verdicts[i] = s.probeMount(gctx, m)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var kept, orphans []*ActiveMount
	for i, m := range mounts {
		switch verdicts[i] {
		case verdictVerified:
			m.Verified = true
			m.LastVerified = now
			kept = append(kept, m)
		case verdictOrphaned:
			log.G(ctx).WithFields(logrus.Fields{
				logfields.DiskIndex:   m.DiskIndex,
				logfields.Partition:   m.Partition,
				logfields.DriveLetter: m.DriveLetter,
			}).Info("dropping orphaned mount record")
			orphans = append(orphans, m)
		default:
			m.Verified = false
			kept = append(kept, m)
		}
	}
	if err := s.saveLocked(kept); err != nil {
		log.G(ctx).WithError(err).Warn("could not persist reconciled mount state")
	}
	return orphans, nil
}

func (s *Store) probeMount(ctx context.Context, m *ActiveMount) verdict {
	if s.prober == nil || m.HostPath == "" {
		return verdictUnverified
	}
	ctx, cancel := context.WithTimeout(ctx, s.probeTimeout)
	defer cancel()

	exists, err := s.prober.Exists(ctx, m.HostPath)
	if err != nil {
		log.G(ctx).WithError(err).WithField(logfields.HostPath, m.HostPath).
			Debug("host path probe inconclusive")
		return verdictUnverified
	}
	if exists {
		return verdictVerified
	}
	// The path is gone. Only a drive-letter record whose letter is also
	// unassigned is provably dead.
	if m.Mode != access.ModeDriveLetter || m.DriveLetter == "" || s.letters == nil {
		return verdictUnverified
	}
	inUse, err := s.letters.InUse(ctx, m.DriveLetter)
	if err != nil {
		log.G(ctx).WithError(err).WithField(logfields.DriveLetter, m.DriveLetter).
			Debug("drive letter check inconclusive")
		return verdictUnverified
	}
	if inUse {
		return verdictUnverified
	}
	return verdictOrphaned
}
