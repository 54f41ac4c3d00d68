package units

import (
	"errors"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		n    uint64
		mode Mode
		want string
	}{
		{"zero", 0, ModeSI, "0B"},
		{"below kilo", 999, ModeSI, "999B"},
		{"one kilo", 1000, ModeSI, "1.0K"},
		{"decimal", 1500, ModeSI, "1.5K"},
		{"integer above ten", 35000, ModeSI, "35K"},
		{"truncated", 99999, ModeSI, "99K"},
		{"mega", 5_000_000, ModeSI, "5.0M"},
		{"peta", 2_000_000_000_000_000, ModeSI, "2.0P"},
		{"binary below", 1023, ModeBinary, "1023B"},
		{"binary kilo", 1024, ModeBinary, "1.0K"},
		{"binary mega", 10 * 1024 * 1024, ModeBinary, "10M"},
		{"raw bytes", 123456, ModeBytes, "123456B"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.n, tt.mode); got != tt.want {
				t.Errorf("Format(%d, %s) = %q, want %q", tt.n, tt.mode, got, tt.want)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeSI, false},
		{"si", ModeSI, false},
		{"Binary", ModeBinary, false},
		{"bytes", ModeBytes, false},
		{"furlongs", ModeSI, true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v", tt.in, err)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrUnknownUnits) {
			t.Errorf("expected ErrUnknownUnits, got %v", err)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
