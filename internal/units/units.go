// Package units formats byte counts for display.
package units

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Mode selects the unit base
type Mode int

const (
	// ModeSI scales by 1000
	ModeSI Mode = iota
	// ModeBinary scales by 1024
	ModeBinary
	// ModeBytes prints the raw count
	ModeBytes
)

// ErrUnknownUnits is returned by ParseMode for unrecognized names
var ErrUnknownUnits = errors.New("unknown units")

var suffixes = []string{"P", "T", "G", "M", "K"}

// String returns the mode name accepted by ParseMode
func (m Mode) String() string {
	switch m {
	case ModeSI:
		return "si"
	case ModeBinary:
		return "binary"
	case ModeBytes:
		return "bytes"
	default:
		return "unknown"
	}
}

// ParseMode parses a unit mode name
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "si":
		return ModeSI, nil
	case "binary", "iec":
		return ModeBinary, nil
	case "bytes", "b":
		return ModeBytes, nil
	}
	return ModeSI, fmt.Errorf("%w: %q", ErrUnknownUnits, name)
}

// Format renders n using the largest unit whose scaled value is at least 1.
// Values whose whole part is below 10 keep one decimal place, larger ones are
// truncated to whole units. Counts below the smallest unit print as bytes.
func Format(n uint64, mode Mode) string {
	var base uint64
	switch mode {
	case ModeSI:
		base = 1000
	case ModeBinary:
		base = 1024
	default:
		return strconv.FormatUint(n, 10) + "B"
	}

	for i, suffix := range suffixes {
		div := pow(base, len(suffixes)-i)
		if n < div {
			continue
		}
		if n/div < 10 {
			return strconv.FormatFloat(float64(n)/float64(div), 'f', 1, 64) + suffix
		}
		return strconv.FormatUint(n/div, 10) + suffix
	}
	return strconv.FormatUint(n, 10) + "B"
}

func pow(base uint64, exp int) uint64 {
	r := uint64(1)
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}
