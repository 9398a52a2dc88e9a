package station

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
)

// Wire delimiters used by LSST/Vaisala AWS310 messages.
const (
	FrameStart      byte = '('
	FrameEnd        byte = ')'
	RecordSeparator byte = ';'
)

// Framer extracts one delimited frame from a byte stream.
//
// Bytes before Start are discarded. Inside the frame literal newlines are
// dropped and a newline is synthesized after every Terminator, so each
// output line holds exactly one record.
//
// Partial is safe to call from another goroutine while ReadFrame runs.
type Framer struct {
	Start      byte
	End        byte
	Terminator byte

	mu      sync.Mutex
	partial string
}

// NewFramer returns a Framer using the standard station delimiters.
func NewFramer() *Framer {
	return &Framer{Start: FrameStart, End: FrameEnd, Terminator: RecordSeparator}
}

// ReadFrame reads from r until the end marker and returns the frame text.
//
// The read is bounded by ctx: the context is checked before every byte, and
// a read error that reports Timeout() is treated as a poll tick rather than
// a failure. When ctx is done ReadFrame returns ErrTransportTimeout and no
// frame; the text read so far stays available through Partial.
//
// End of stream inside a frame returns the truncated text without error so
// the parser can reject it. End of stream before a frame starts returns
// ErrConnectionClosed.
func (f *Framer) ReadFrame(ctx context.Context, r io.ByteReader) (string, error) {
	var b strings.Builder
	started := false
	f.setPartial("")

	for {
		if err := ctx.Err(); err != nil {
			f.setPartial(b.String())
			return "", fmt.Errorf("%w: %w", ErrTransportTimeout, err)
		}

		c, err := r.ReadByte()
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				f.setPartial(b.String())
				if !started {
					return "", ErrConnectionClosed
				}
				return b.String(), nil
			case isTimeout(err):
				continue
			default:
				f.setPartial(b.String())
				return "", fmt.Errorf("reading frame: %w", err)
			}
		}

		switch {
		case c == f.Start:
			started = true
			continue
		case c == f.End && started:
			f.setPartial(b.String())
			return b.String(), nil
		case !started, c == '\n':
			continue
		}

		b.WriteByte(c)
		if c == f.Terminator {
			b.WriteByte('\n')
			f.setPartial(b.String())
		}
	}
}

// Partial returns the text of the most recent frame read, complete or not.
func (f *Framer) Partial() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.partial
}

func (f *Framer) setPartial(s string) {
	f.mu.Lock()
	f.partial = s
	f.mu.Unlock()
}

// isTimeout reports whether err is a read deadline expiry.
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
