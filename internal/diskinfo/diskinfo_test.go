package diskinfo

import "testing"

func TestHumanSize(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{500107862016, "465.8 GiB"},
		{2000398934016, "1.8 TiB"},
	}
	for _, tt := range tests {
		if got := HumanSize(tt.in); got != tt.want {
			t.Errorf("HumanSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSortByIndex(t *testing.T) {
	disks := []Disk{{Index: 2}, {Index: 0}, {Index: 1}}
	sortByIndex(disks)
	for i, d := range disks {
		if d.Index != i {
			t.Fatalf("disks out of order: %v", disks)
		}
	}
}
