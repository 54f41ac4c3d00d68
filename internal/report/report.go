// Package report renders scan events as text lines.
package report

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/lumipallolabs/shr/internal/event"
	"github.com/lumipallolabs/shr/internal/units"
)

// Format selects the output style
type Format int

const (
	// FormatDU prints one line per completed entry
	FormatDU Format = iota
	// FormatJSON prints every event as one JSON object per line
	FormatJSON
)

// ErrUnknownFormat is returned by ParseFormat for unrecognized names
var ErrUnknownFormat = errors.New("unknown output format")

// String returns the format name accepted by ParseFormat
func (f Format) String() string {
	switch f {
	case FormatDU:
		return "du"
	case FormatJSON:
		return "json"
	default:
		return "unknown"
	}
}

// ParseFormat parses an output format name
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "du":
		return FormatDU, nil
	case "json":
		return FormatJSON, nil
	}
	return FormatDU, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Writer renders events
type Writer interface {
	Write(ev event.Event) error
	Flush() error
}

// New returns the writer for format
func New(format Format, w io.Writer, r event.Resolver, mode units.Mode) Writer {
	if format == FormatJSON {
		return NewJSON(w, r)
	}
	return NewDU(w, r, mode)
}

// DU prints completion events as "<path> <size>[, <N> file(s)]"
type DU struct {
	w    *bufio.Writer
	r    event.Resolver
	mode units.Mode
}

// NewDU creates a du style writer
func NewDU(w io.Writer, r event.Resolver, mode units.Mode) *DU {
	return &DU{w: bufio.NewWriter(w), r: r, mode: mode}
}

// Write prints ev if it completes an entry with a known path
func (d *DU) Write(ev event.Event) error {
	if !ev.IsCompletion() {
		return nil
	}
	path, ok := d.r.Resolve(ev.Path)
	if !ok {
		return nil
	}

	size := units.Format(ev.Size, d.mode)
	var err error
	if ev.Kind == event.DirCompleted && ev.NumFiles > 0 {
		_, err = fmt.Fprintf(d.w, "%s %s, %d file(s)\n", path, size, ev.NumFiles)
	} else {
		_, err = fmt.Fprintf(d.w, "%s %s\n", path, size)
	}
	return err
}

// Flush writes buffered lines
func (d *DU) Flush() error {
	return d.w.Flush()
}

// JSON prints every event as one JSON object per line
type JSON struct {
	w   *bufio.Writer
	enc *json.Encoder
	r   event.Resolver
}

// NewJSON creates a JSON lines writer
func NewJSON(w io.Writer, r event.Resolver) *JSON {
	bw := bufio.NewWriter(w)
	return &JSON{w: bw, enc: json.NewEncoder(bw), r: r}
}

// Write encodes ev with its paths resolved
func (j *JSON) Write(ev event.Event) error {
	if err := j.enc.Encode(event.Resolve(ev, j.r)); err != nil {
		return fmt.Errorf("failed to serialize event: %w", err)
	}
	return nil
}

// Flush writes buffered lines
func (j *JSON) Flush() error {
	return j.w.Flush()
}

// Copy writes every event of s until the stream ends. On a write error the
// stream is dropped so producers stop queueing.
func Copy(ctx context.Context, w Writer, s *event.Stream) error {
	buf := make([]event.Event, 0, 256)
	for {
		batch, ok := s.RecvBatch(ctx, buf[:0], cap(buf))
		for _, ev := range batch {
			if err := w.Write(ev); err != nil {
				s.Drop()
				return err
			}
		}
		if !ok {
			break
		}
		// Keep output live while the scan runs
		if s.Len() == 0 {
			if err := w.Flush(); err != nil {
				s.Drop()
				return err
			}
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return ctx.Err()
}
