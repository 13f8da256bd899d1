package access

import "testing"

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"none", ModeNone, false},
		{"", ModeNone, false},
		{"network-location", ModeNetworkLocation, false},
		{"network", ModeNetworkLocation, false},
		{"location", ModeNetworkLocation, false},
		{"drive-letter-legacy", ModeDriveLetter, false},
		{"drive-letter", ModeDriveLetter, false},
		{"letter", ModeDriveLetter, false},
		{"subst", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestModeValid(t *testing.T) {
	for _, m := range []Mode{ModeNone, ModeNetworkLocation, ModeDriveLetter} {
		if !m.Valid() {
			t.Errorf("%q should be valid", m)
		}
	}
	if Mode("symlink").Valid() {
		t.Error("unknown mode should be invalid")
	}
	if !ModeDriveLetter.NeedsDriveLetter() {
		t.Error("drive-letter mode needs a letter")
	}
	if ModeNetworkLocation.NeedsDriveLetter() || ModeNone.NeedsDriveLetter() {
		t.Error("only drive-letter mode needs a letter")
	}
}

func TestNormalizeLetter(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"e", "E", false},
		{"E", "E", false},
		{"e:", "E", false},
		{"E:\\", "E", false},
		{"e:/", "E", false},
		{"", "", true},
		{"ee", "", true},
		{"4", "", true},
		{"e;", "", true},
		{"e:x", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeLetter(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("NormalizeLetter(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("NormalizeLetter(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultLocationName(t *testing.T) {
	if got := DefaultLocationName(2, 1); got != "WSL Disk 2 Partition 1" {
		t.Errorf("DefaultLocationName = %q", got)
	}
	if got := DefaultLocationName(0, 0); got != "WSL Disk 0" {
		t.Errorf("whole-disk DefaultLocationName = %q", got)
	}
}

func TestInfoDisplay(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Mode: ModeDriveLetter, DriveLetter: "E"}, "E:"},
		{Info{Mode: ModeNetworkLocation, LocationName: "WSL Disk 2 Partition 1"}, "WSL Disk 2 Partition 1"},
		{Info{Mode: ModeNone}, ""},
	}
	for _, tt := range tests {
		if got := tt.info.Display(); got != tt.want {
			t.Errorf("Display() = %q, want %q", got, tt.want)
		}
	}
}

func TestSucceededSilently(t *testing.T) {
	tests := []struct {
		name string
		res  RemoveResult
		want bool
	}{
		{"quirk shape", RemoveResult{}, true},
		{"real failure", RemoveResult{ErrorMessage: "access denied", ExitCode: 2}, false},
		{"failure with exit 0", RemoveResult{ErrorMessage: "boom"}, false},
		{"silent nonzero exit", RemoveResult{ExitCode: 1}, false},
		{"plain success", RemoveResult{Success: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.SucceededSilently(); got != tt.want {
				t.Errorf("SucceededSilently = %v, want %v", got, tt.want)
			}
		})
	}
}
