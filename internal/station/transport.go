package station

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"
	"time"

	"go.bug.st/serial"
)

// serialPollInterval bounds a single blocking serial read so deadline
// changes are noticed promptly.
const serialPollInterval = 100 * time.Millisecond

// Conn is a station byte stream with read deadlines. A Read past the
// deadline returns an error whose Timeout method reports true.
type Conn interface {
	io.Reader
	io.Closer
	SetReadDeadline(t time.Time) error
}

// Transport acquires the connection a station pushes frames over.
type Transport interface {
	// Open blocks until the station is connected or ctx is done.
	Open(ctx context.Context) (Conn, error)
	// Close releases anything Open left behind besides the Conn itself.
	Close() error
}

// NewTransport returns the transport named by s.Transport.
func NewTransport(s Settings) (Transport, error) {
	switch s.Transport {
	case TransportTCP, "":
		return &listenTransport{addr: net.JoinHostPort(s.Host, strconv.Itoa(s.Port))}, nil
	case TransportSerial:
		return &serialTransport{device: s.SerialDevice, baud: s.BaudRate}, nil
	default:
		return nil, fmt.Errorf("%w: unknown transport %q", ErrInvalidSettings, s.Transport)
	}
}

// listenTransport listens on a TCP address and accepts a single connection;
// the station dials in and pushes data without being asked.
type listenTransport struct {
	addr string

	mu sync.Mutex
	ln net.Listener
}

func (t *listenTransport) Open(ctx context.Context) (Conn, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", t.addr, err)
	}
	t.mu.Lock()
	t.ln = ln
	t.mu.Unlock()

	type accepted struct {
		conn net.Conn
		err  error
	}
	ch := make(chan accepted, 1)
	go func() {
		conn, err := ln.Accept()
		ch <- accepted{conn, err}
	}()

	select {
	case a := <-ch:
		if a.err != nil {
			return nil, fmt.Errorf("accepting station connection: %w", a.err)
		}
		return a.conn, nil
	case <-ctx.Done():
		ln.Close() //nolint:errcheck // unblocks Accept
		if a := <-ch; a.conn != nil {
			a.conn.Close() //nolint:errcheck // raced with cancellation
		}
		return nil, fmt.Errorf("accepting station connection: %w", ctx.Err())
	}
}

// Addr returns the listening address, or nil before Open has listened.
func (t *listenTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ln == nil {
		return nil
	}
	return t.ln.Addr()
}

func (t *listenTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ln == nil {
		return nil
	}
	err := t.ln.Close()
	t.ln = nil
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("closing listener: %w", err)
	}
	return nil
}

// serialTransport reads from a directly wired serial port.
type serialTransport struct {
	device string
	baud   int
}

func (t *serialTransport) Open(ctx context.Context) (Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	port, err := serial.Open(t.device, &serial.Mode{BaudRate: t.baud})
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", t.device, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		port.Close() //nolint:errcheck // best effort on error path
		return nil, fmt.Errorf("resetting serial input %s: %w", t.device, err)
	}
	return &serialConn{port: port}, nil
}

func (t *serialTransport) Close() error { return nil }

// serialConn adapts a serial.Port to Conn. Serial reads report a timeout
// as zero bytes and no error; serialConn turns that into
// os.ErrDeadlineExceeded once the deadline has passed, and into the same
// error for each empty poll so callers can re-check their context.
type serialConn struct {
	port serial.Port

	mu       sync.Mutex
	deadline time.Time
}

func (c *serialConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.deadline = t
	c.mu.Unlock()
	return nil
}

func (c *serialConn) Read(p []byte) (int, error) {
	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()

	wait := serialPollInterval
	if !deadline.IsZero() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return 0, os.ErrDeadlineExceeded
		}
		wait = min(wait, remaining)
	}
	if err := c.port.SetReadTimeout(wait); err != nil {
		return 0, fmt.Errorf("setting serial read timeout: %w", err)
	}

	n, err := c.port.Read(p)
	if n == 0 && err == nil {
		return 0, os.ErrDeadlineExceeded
	}
	return n, err
}

func (c *serialConn) Close() error { return c.port.Close() }
