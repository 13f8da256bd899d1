package state

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"

	"github.com/becksclair/limount-sub001/internal/access"
)

type fakeProber struct {
	exists map[string]bool
	err    error
}

func (f *fakeProber) Exists(ctx context.Context, hostPath string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.exists[hostPath], nil
}

type fakeLetters struct {
	inUse map[string]bool
	err   error
}

func (f *fakeLetters) InUse(ctx context.Context, letter string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.inUse[letter], nil
}

func letterMount(disk int, letter, hostPath string) *ActiveMount {
	return &ActiveMount{
		DiskIndex:   disk,
		Partition:   1,
		Mode:        access.ModeDriveLetter,
		DriveLetter: letter,
		HostPath:    hostPath,
	}
}

func TestReconcileSplitsVerdicts(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mounts.json")

	alive := letterMount(1, "E", `\\wsl$\Ubuntu\mnt\wsl\PHYSICALDRIVE1p1`)
	orphan := letterMount(2, "F", `\\wsl$\Ubuntu\mnt\wsl\PHYSICALDRIVE2p1`)
	held := letterMount(3, "G", `\\wsl$\Ubuntu\mnt\wsl\PHYSICALDRIVE3p1`)
	location := testMount(4, 1)
	location.HostPath = `\\wsl$\Ubuntu\mnt\wsl\PHYSICALDRIVE4p1`

	prober := &fakeProber{exists: map[string]bool{alive.HostPath: true}}
	// F is free, G is still assigned to something.
	letters := &fakeLetters{inUse: map[string]bool{"G": true}}

	s := NewStore(path, prober, letters, nil)
	for _, m := range []*ActiveMount{alive, orphan, held, location} {
		if err := s.Register(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	orphans, err := s.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 1 || orphans[0].DiskIndex != 2 {
		t.Fatalf("orphans = %+v, want just disk 2", orphans)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 surviving records, got %d", len(all))
	}
	for _, m := range all {
		switch m.DiskIndex {
		case 1:
			if !m.Verified || m.LastVerified.IsZero() {
				t.Errorf("alive mount not marked verified: %+v", m)
			}
		case 3, 4:
			if m.Verified {
				t.Errorf("unverifiable mount %d should not be verified", m.DiskIndex)
			}
		default:
			t.Errorf("unexpected surviving record %+v", m)
		}
	}
}

func TestReconcileKeepsOnLetterCheckFailure(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mounts.json")

	m := letterMount(2, "F", `\\wsl$\Ubuntu\mnt\wsl\PHYSICALDRIVE2p1`)
	prober := &fakeProber{exists: map[string]bool{}}
	letters := &fakeLetters{err: errors.New("wmi unavailable")}

	s := NewStore(path, prober, letters, nil)
	if err := s.Register(ctx, m); err != nil {
		t.Fatal(err)
	}

	orphans, err := s.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 0 {
		t.Fatalf("inconclusive letter check must not drop records, got %+v", orphans)
	}
	all, err := s.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].Verified {
		t.Errorf("record should be kept unverified, got %+v", all)
	}
}

func TestReconcileKeepsOnProbeFailure(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mounts.json")

	m := letterMount(2, "F", `\\wsl$\Ubuntu\mnt\wsl\PHYSICALDRIVE2p1`)
	prober := &fakeProber{err: errors.New("share unreachable")}
	letters := &fakeLetters{inUse: map[string]bool{}}

	s := NewStore(path, prober, letters, nil)
	if err := s.Register(ctx, m); err != nil {
		t.Fatal(err)
	}

	orphans, err := s.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 0 {
		t.Fatalf("probe failure must not drop records, got %+v", orphans)
	}
}

func TestReconcileEmptyStore(t *testing.T) {
	ctx := context.Background()
	s := testStore(t)
	orphans, err := s.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(orphans) != 0 {
		t.Errorf("empty store produced orphans: %+v", orphans)
	}
}
