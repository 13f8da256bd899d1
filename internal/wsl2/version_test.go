package wsl2

import "testing"

func TestParseWSLVersion(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
		ok     bool
	}{
		{
			name:   "store release",
			output: "WSL version: 2.0.9.0\nKernel version: 5.15.133.1-1\nWindows version: 10.0.22631.2715",
			want:   "2.0.9",
			ok:     true,
		},
		{
			name:   "three components",
			output: "WSL version: 1.0.3",
			want:   "1.0.3",
			ok:     true,
		},
		{
			name:   "two components padded",
			output: "WSL version: 0.58",
			want:   "0.58.0",
			ok:     true,
		},
		{
			name:   "inbox wsl rejects the flag",
			output: "Invalid command line option: --version",
			ok:     false,
		},
		{
			name:   "empty",
			output: "",
			ok:     false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, ok := ParseWSLVersion(tt.output)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && v.String() != tt.want {
				t.Errorf("version = %s, want %s", v, tt.want)
			}
		})
	}
}
