// Package hostpath probes host-visible paths of guest mounts. Stat calls
// against \\wsl$ shares can block for a long time when the share is sick,
// so every probe runs with a bound.
package hostpath

import (
	"context"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/becksclair/limount-sub001/internal/log"
	"github.com/becksclair/limount-sub001/internal/logfields"
)

const defaultProbeTimeout = 2 * time.Second

// Prober answers bounded existence checks.
type Prober struct {
	// Timeout bounds a single probe. Zero means two seconds.
	Timeout time.Duration
}

// Exists reports whether hostPath exists, giving up at the sooner of ctx's
// deadline and the per-probe timeout. Share-level failures (unreachable
// \\wsl$, timeouts) come back as errors, not as non-existence.
func (p *Prober) Exists(ctx context.Context, hostPath string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type statResult struct {
		exists bool
		err    error
	}
	// Buffered so an abandoned stat can still finish in its own time.
	ch := make(chan statResult, 1)
	go func() {
		_, err := os.Stat(hostPath)
		switch {
		case err == nil:
			ch <- statResult{exists: true}
		case os.IsNotExist(err):
			ch <- statResult{}
		default:
			ch <- statResult{err: err}
		}
	}()
	select {
	case r := <-ch:
		return r.exists, r.err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// WaitAvailable polls for hostPath with a fixed delay between probes; the
// platform needs a beat after attach before \\wsl$ exposes the mount point.
// Probe failures count as not-yet. A false return means the attempts were
// exhausted, not that the mount failed; the error return is reserved for
// cancellation.
func (p *Prober) WaitAvailable(ctx context.Context, hostPath string, attempts int, delay time.Duration) (bool, error) {
	if attempts < 1 {
		attempts = 1
	}
	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1))
	for {
		ok, err := p.Exists(ctx, hostPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		if ok {
			return true, nil
		}
		if err != nil {
			log.G(ctx).WithError(err).WithField(logfields.HostPath, hostPath).
				Debug("host path probe failed")
		}
		wait := bo.NextBackOff()
		if wait == backoff.Stop {
			return false, nil
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
}
