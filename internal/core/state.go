package core

import (
	"time"

	"github.com/lumipallolabs/shr/internal/scanner"
)

// ScanPhase represents the current phase of scanning
type ScanPhase int

const (
	PhaseIdle ScanPhase = iota
	PhaseScanning
	PhaseComplete
)

// String returns a human-readable phase name
func (p ScanPhase) String() string {
	switch p {
	case PhaseIdle:
		return ""
	case PhaseScanning:
		return "Scanning"
	case PhaseComplete:
		return "Complete"
	default:
		return ""
	}
}

// ScanState holds the current scan state
type ScanState struct {
	Phase     ScanPhase
	Root      string
	StartTime time.Time
	EndTime   time.Time

	Progress scanner.Progress
	Totals   scanner.Totals
	Err      error

	EventsApplied  int
	TotalEntries   int
	InProgressDirs int
}

// IsScanning returns true while events are still arriving
func (s ScanState) IsScanning() bool {
	return s.Phase == PhaseScanning
}

// Elapsed returns time since scan started, frozen once it completes
func (s ScanState) Elapsed() time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	end := s.EndTime
	if end.IsZero() {
		end = time.Now()
	}
	return end.Sub(s.StartTime).Truncate(time.Millisecond)
}

// Rate returns applied events per second
func (s ScanState) Rate() float64 {
	secs := s.Elapsed().Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.EventsApplied) / secs
}
