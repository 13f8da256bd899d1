package wsl2

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAttachArgs(t *testing.T) {
	tests := []struct {
		name  string
		req   AttachRequest
		extra []string
		want  []string
	}{
		{
			name: "partition mount",
			req:  AttachRequest{DiskIndex: 2, Partition: 1, Filesystem: "ext4"},
			want: []string{"--mount", `\\.\PHYSICALDRIVE2`, "--partition", "1", "--type", "ext4"},
		},
		{
			name: "whole disk default type",
			req:  AttachRequest{DiskIndex: 0},
			want: []string{"--mount", `\\.\PHYSICALDRIVE0`},
		},
		{
			name: "bare ignores mount flags",
			req:  AttachRequest{DiskIndex: 3, Partition: 2, Filesystem: "ext4", Bare: true},
			want: []string{"--mount", `\\.\PHYSICALDRIVE3`, "--bare"},
		},
		{
			name: "options joined",
			req:  AttachRequest{DiskIndex: 1, Partition: 1, Filesystem: "ntfs", Options: []string{"ro", "noatime"}},
			want: []string{"--mount", `\\.\PHYSICALDRIVE1`, "--partition", "1", "--type", "ntfs", "--options", "ro,noatime"},
		},
		{
			name: "vhd",
			req:  AttachRequest{VHDPath: `C:\disks\data.vhdx`, Partition: 1, Filesystem: "ext4"},
			want: []string{"--mount", `C:\disks\data.vhdx`, "--vhd", "--partition", "1", "--type", "ext4"},
		},
		{
			name:  "extra args appended last",
			req:   AttachRequest{DiskIndex: 5, Partition: 1},
			extra: []string{"--name", "scratch"},
			want:  []string{"--mount", `\\.\PHYSICALDRIVE5`, "--partition", "1", "--name", "scratch"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := attachArgs(tt.req, tt.extra)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("attachArgs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestElevatedAttachArgs(t *testing.T) {
	tests := []struct {
		name  string
		req   AttachRequest
		extra []string
		want  []string
	}{
		{
			name: "partition mount",
			req:  AttachRequest{DiskIndex: 2, Partition: 1, Filesystem: "ext4", Distro: "Ubuntu"},
			want: []string{
				"elevated-attach", "--result", `C:\tmp\attach.json`,
				"--disk", "2", "--partition", "1", "--type", "ext4", "--distro", "Ubuntu",
			},
		},
		{
			name: "bare vhd",
			req:  AttachRequest{VHDPath: `C:\disks\data.vhdx`, Bare: true},
			want: []string{
				"elevated-attach", "--result", `C:\tmp\attach.json`,
				"--vhd", `C:\disks\data.vhdx`, "--bare",
			},
		},
		{
			// Operator passthrough args must survive the re-exec: the
			// elevated child runs from a bare environment and only sees
			// what the command line carries.
			name:  "extra args forwarded",
			req:   AttachRequest{DiskIndex: 5, Partition: 1, Options: []string{"ro", "noatime"}},
			extra: []string{"--name", "scratch"},
			want: []string{
				"elevated-attach", "--result", `C:\tmp\attach.json`,
				"--disk", "5", "--partition", "1", "--options", "ro,noatime",
				"--extra", "--name", "--extra", "scratch",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := elevatedAttachArgs(tt.req, `C:\tmp\attach.json`, tt.extra)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("elevatedAttachArgs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestElevatedDetachArgs(t *testing.T) {
	got := elevatedDetachArgs(7, `C:\tmp\detach.json`)
	want := []string{"elevated-detach", "--result", `C:\tmp\detach.json`, "--disk", "7"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("elevatedDetachArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestDetachArgs(t *testing.T) {
	got := detachArgs(7)
	want := []string{"--unmount", `\\.\PHYSICALDRIVE7`}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("detachArgs mismatch (-want +got):\n%s", diff)
	}
}

func TestMountNameFor(t *testing.T) {
	tests := []struct {
		target    string
		partition int
		want      string
	}{
		{`\\.\PHYSICALDRIVE2`, 1, "PHYSICALDRIVE2p1"},
		{`\\.\PHYSICALDRIVE2`, 0, "PHYSICALDRIVE2"},
		{`C:\disks\data.vhdx`, 1, "data.vhdxp1"},
		{`C:\disks\data.vhdx`, 0, "data.vhdx"},
	}
	for _, tt := range tests {
		if got := MountNameFor(tt.target, tt.partition); got != tt.want {
			t.Errorf("MountNameFor(%q, %d) = %q, want %q", tt.target, tt.partition, got, tt.want)
		}
	}
}
