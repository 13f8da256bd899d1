package fsdetect

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/becksclair/limount-sub001/internal/wsl2"
)

type fakeAttacher struct {
	attaches []wsl2.AttachRequest
	detaches []int

	attachResult *wsl2.AttachResult
	attachErr    error
}

func (f *fakeAttacher) Attach(ctx context.Context, req wsl2.AttachRequest) (*wsl2.AttachResult, error) {
	f.attaches = append(f.attaches, req)
	if f.attachErr != nil {
		return nil, f.attachErr
	}
	if f.attachResult != nil {
		return f.attachResult, nil
	}
	return &wsl2.AttachResult{Success: true}, nil
}

func (f *fakeAttacher) Detach(ctx context.Context, diskIndex int) (*wsl2.DetachResult, error) {
	f.detaches = append(f.detaches, diskIndex)
	return &wsl2.DetachResult{Success: true, DiskIndex: diskIndex}, nil
}

type fakeInspector struct {
	snapshots [][]wsl2.BlockDevice
	sources   map[string]string
	devices   map[string]string
}

func (f *fakeInspector) BlockDevices(ctx context.Context) ([]wsl2.BlockDevice, error) {
	if len(f.snapshots) == 0 {
		return nil, errors.New("no snapshot scripted")
	}
	snap := f.snapshots[0]
	f.snapshots = f.snapshots[1:]
	return snap, nil
}

func (f *fakeInspector) MountSource(ctx context.Context, guestPath string) (string, error) {
	return f.sources[guestPath], nil
}

func (f *fakeInspector) DeviceFilesystem(ctx context.Context, device string) (string, error) {
	return f.devices[device], nil
}

type fakeExists bool

func (f fakeExists) Exists(ctx context.Context, hostPath string) (bool, error) {
	return bool(f), nil
}

func baseDevices() []wsl2.BlockDevice {
	return []wsl2.BlockDevice{
		{Name: "sda"},
		{Name: "sda1", Parent: "sda", FSType: "ext4"},
	}
}

func TestDetectFromSnapshotDiff(t *testing.T) {
	ctx := context.Background()
	attacher := &fakeAttacher{}
	inspector := &fakeInspector{
		snapshots: [][]wsl2.BlockDevice{
			baseDevices(),
			append(baseDevices(),
				wsl2.BlockDevice{Name: "sdb"},
				wsl2.BlockDevice{Name: "sdb1", Parent: "sdb", FSType: "btrfs"},
				wsl2.BlockDevice{Name: "sdb2", Parent: "sdb", FSType: "swap"},
			),
		},
	}

	d := New(attacher, inspector, nil, "")
	if fs := d.Detect(ctx, 3, 1); fs != "btrfs" {
		t.Errorf("Detect = %q, want btrfs", fs)
	}

	if len(attacher.attaches) != 1 {
		t.Fatalf("expected one attach, got %d", len(attacher.attaches))
	}
	if req := attacher.attaches[0]; !req.Bare || req.DiskIndex != 3 {
		t.Errorf("attach request was %+v, want bare disk 3", req)
	}
	if len(attacher.detaches) != 1 || attacher.detaches[0] != 3 {
		t.Errorf("expected one rollback detach of disk 3, got %v", attacher.detaches)
	}
}

func TestDetectSecondPartition(t *testing.T) {
	ctx := context.Background()
	attacher := &fakeAttacher{}
	inspector := &fakeInspector{
		snapshots: [][]wsl2.BlockDevice{
			baseDevices(),
			append(baseDevices(),
				wsl2.BlockDevice{Name: "nvme1n1"},
				wsl2.BlockDevice{Name: "nvme1n1p1", Parent: "nvme1n1", FSType: "vfat"},
				wsl2.BlockDevice{Name: "nvme1n1p2", Parent: "nvme1n1", FSType: "xfs"},
			),
		},
	}

	d := New(attacher, inspector, nil, "")
	if fs := d.Detect(ctx, 1, 2); fs != "xfs" {
		t.Errorf("Detect = %q, want xfs", fs)
	}
}

func TestDetectAmbiguousDiffFallsBack(t *testing.T) {
	ctx := context.Background()
	attacher := &fakeAttacher{}
	// Two new top-level devices: the diff proves nothing.
	inspector := &fakeInspector{
		snapshots: [][]wsl2.BlockDevice{
			baseDevices(),
			append(baseDevices(),
				wsl2.BlockDevice{Name: "sdb"},
				wsl2.BlockDevice{Name: "sdb1", Parent: "sdb", FSType: "ext4"},
				wsl2.BlockDevice{Name: "sdc"},
				wsl2.BlockDevice{Name: "sdc1", Parent: "sdc", FSType: "ext4"},
			),
		},
		sources: map[string]string{},
	}

	d := New(attacher, inspector, nil, "")
	if fs := d.Detect(ctx, 2, 1); fs != Unknown {
		t.Errorf("Detect = %q, want %q", fs, Unknown)
	}
	if len(attacher.detaches) != 1 {
		t.Errorf("rollback detach must still happen, got %v", attacher.detaches)
	}
}

func TestDetectNoMatchingChild(t *testing.T) {
	ctx := context.Background()
	attacher := &fakeAttacher{}
	// The new disk appears but partition 2's fstype is empty.
	inspector := &fakeInspector{
		snapshots: [][]wsl2.BlockDevice{
			baseDevices(),
			append(baseDevices(),
				wsl2.BlockDevice{Name: "sdb"},
				wsl2.BlockDevice{Name: "sdb2", Parent: "sdb"},
			),
		},
		sources: map[string]string{},
	}

	d := New(attacher, inspector, nil, "")
	if fs := d.Detect(ctx, 2, 2); fs != Unknown {
		t.Errorf("Detect = %q, want %q", fs, Unknown)
	}
}

func TestDetectAlreadyAttachedUsesMountTable(t *testing.T) {
	ctx := context.Background()
	attacher := &fakeAttacher{
		attachResult: &wsl2.AttachResult{Success: true, AlreadyAttached: true},
	}
	// No new devices appear; the existing mount answers instead.
	inspector := &fakeInspector{
		snapshots: [][]wsl2.BlockDevice{baseDevices(), baseDevices()},
		sources:   map[string]string{"/mnt/wsl/PHYSICALDRIVE2p1": "/dev/sdb1"},
		devices:   map[string]string{"/dev/sdb1": "ext4"},
	}

	d := New(attacher, inspector, nil, "")
	if fs := d.Detect(ctx, 2, 1); fs != "ext4" {
		t.Errorf("Detect = %q, want ext4", fs)
	}
	if len(attacher.detaches) != 0 {
		t.Errorf("an attachment we did not create must not be detached, got %v", attacher.detaches)
	}
}

func TestDetectMountedShortcut(t *testing.T) {
	ctx := context.Background()
	attacher := &fakeAttacher{}
	inspector := &fakeInspector{
		sources: map[string]string{"/mnt/wsl/PHYSICALDRIVE2p1": "/dev/sdb1"},
		devices: map[string]string{"/dev/sdb1": "ntfs"},
	}

	d := New(attacher, inspector, fakeExists(true), "Ubuntu")
	if fs := d.Detect(ctx, 2, 1); fs != "ntfs" {
		t.Errorf("Detect = %q, want ntfs", fs)
	}
	if len(attacher.attaches) != 0 {
		t.Errorf("mounted partition must not be re-attached, got %v", attacher.attaches)
	}
}

func TestDetectAttachFailure(t *testing.T) {
	ctx := context.Background()
	attacher := &fakeAttacher{
		attachResult: &wsl2.AttachResult{ErrorCode: "E_ACCESSDENIED", ErrorMessage: "denied"},
	}
	inspector := &fakeInspector{
		snapshots: [][]wsl2.BlockDevice{baseDevices()},
	}

	d := New(attacher, inspector, nil, "")
	if fs := d.Detect(ctx, 2, 1); fs != Unknown {
		t.Errorf("Detect = %q, want %q", fs, Unknown)
	}
	if len(attacher.detaches) != 0 {
		t.Errorf("nothing to roll back after a failed attach, got %v", attacher.detaches)
	}
}

func TestDetectSecondSnapshotFailure(t *testing.T) {
	ctx := context.Background()
	attacher := &fakeAttacher{}
	// Only one snapshot scripted: the post-attach one fails.
	inspector := &fakeInspector{
		snapshots: [][]wsl2.BlockDevice{baseDevices()},
	}

	d := New(attacher, inspector, nil, "")
	if fs := d.Detect(ctx, 2, 1); fs != Unknown {
		t.Errorf("Detect = %q, want %q", fs, Unknown)
	}
	if len(attacher.detaches) != 1 {
		t.Errorf("rollback detach must run when the diff cannot complete, got %v", attacher.detaches)
	}
}

func TestMatchesPartition(t *testing.T) {
	tests := []struct {
		name, parent string
		partition    int
		want         bool
	}{
		{"sdb1", "sdb", 1, true},
		{"sdb2", "sdb", 1, false},
		{"nvme0n1p3", "nvme0n1", 3, true},
		{"nvme0n1p3", "nvme0n1", 1, false},
		{"sdb", "sdb", 1, false},
		{"sdb12", "sdb", 1, false},
	}
	for _, tt := range tests {
		if got := matchesPartition(tt.name, tt.parent, tt.partition); got != tt.want {
			t.Errorf("matchesPartition(%q, %q, %d) = %v, want %v", tt.name, tt.parent, tt.partition, got, tt.want)
		}
	}
}
