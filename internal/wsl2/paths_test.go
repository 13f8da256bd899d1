package wsl2

import "testing"

func TestDiskPath(t *testing.T) {
	if p := DiskPath(0); p != `\\.\PHYSICALDRIVE0` {
		t.Errorf("DiskPath(0) = %q", p)
	}
	if p := DiskPath(12); p != `\\.\PHYSICALDRIVE12` {
		t.Errorf("DiskPath(12) = %q", p)
	}
}

func TestParseDiskPath(t *testing.T) {
	tests := []struct {
		path string
		n    int
		ok   bool
	}{
		{`\\.\PHYSICALDRIVE0`, 0, true},
		{`\\.\PHYSICALDRIVE17`, 17, true},
		{`\\.\physicaldrive2`, 2, true},
		{`\\.\PHYSICALDRIVE`, 0, false},
		{`\\.\PHYSICALDRIVE2x`, 0, false},
		{`C:\disks\data.vhdx`, 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		n, ok := ParseDiskPath(tt.path)
		if n != tt.n || ok != tt.ok {
			t.Errorf("ParseDiskPath(%q) = %d, %v; want %d, %v", tt.path, n, ok, tt.n, tt.ok)
		}
	}
}

func TestGuestMountPath(t *testing.T) {
	tests := []struct {
		disk, partition int
		want            string
	}{
		{3, 1, "/mnt/wsl/PHYSICALDRIVE3p1"},
		{0, 2, "/mnt/wsl/PHYSICALDRIVE0p2"},
		{1, 0, "/mnt/wsl/PHYSICALDRIVE1"},
	}
	for _, tt := range tests {
		if got := GuestMountPath(tt.disk, tt.partition); got != tt.want {
			t.Errorf("GuestMountPath(%d, %d) = %q, want %q", tt.disk, tt.partition, got, tt.want)
		}
	}
}

func TestHostMountPath(t *testing.T) {
	got := HostMountPath("Ubuntu", 2, 1)
	want := `\\wsl$\Ubuntu\mnt\wsl\PHYSICALDRIVE2p1`
	if got != want {
		t.Errorf("HostMountPath = %q, want %q", got, want)
	}
}

func TestAttachRequestTargetPath(t *testing.T) {
	r := &AttachRequest{DiskIndex: 4}
	if got := r.TargetPath(); got != `\\.\PHYSICALDRIVE4` {
		t.Errorf("TargetPath = %q", got)
	}
	r = &AttachRequest{DiskIndex: 4, VHDPath: `C:\disks\data.vhdx`}
	if got := r.TargetPath(); got != `C:\disks\data.vhdx` {
		t.Errorf("TargetPath with VHD = %q", got)
	}
}
