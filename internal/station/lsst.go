package station

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LSST is the controller for the Vaisala AWS310 station at the LSST site.
//
// In live mode the station connects to a listening TCP port (or is read
// from a serial line) and pushes one frame per reporting interval. In
// simulation mode every cycle decodes SimulationFrame instead.
type LSST struct {
	logger Logger
	schema *Schema
	topics *TopicMap
	framer *Framer

	newTransport func(Settings) (Transport, error)

	mu          sync.Mutex
	settings    Settings
	simulation  bool
	configured  bool
	started     bool
	cancelStart context.CancelFunc
	transport   Transport
	conn        Conn
	reader      *bufio.Reader

	cycling atomic.Bool

	diagMu    sync.Mutex
	lastError string
	lastCycle CycleInfo
}

// Ensure LSST implements Controller and CycleReporter.
var (
	_ Controller    = (*LSST)(nil)
	_ CycleReporter = (*LSST)(nil)
)

// LSSTOption customises an LSST controller.
type LSSTOption func(*LSST)

// WithTables replaces the default schema and topic map.
func WithTables(schema *Schema, topics *TopicMap) LSSTOption {
	return func(s *LSST) {
		s.schema = schema
		s.topics = topics
	}
}

// WithTransport replaces the transport constructor, mainly for tests.
func WithTransport(fn func(Settings) (Transport, error)) LSSTOption {
	return func(s *LSST) { s.newTransport = fn }
}

// NewLSST returns an unconfigured LSST controller.
func NewLSST(logger Logger, opts ...LSSTOption) *LSST {
	if logger == nil {
		logger = nopLogger{}
	}
	s := &LSST{
		logger:       logger,
		schema:       DefaultSchema(),
		topics:       DefaultTopicMap(),
		framer:       NewFramer(),
		newTransport: NewTransport,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Setup stores the connection settings.
//
// Parameters:
//   - settings: Host, port, transport and read timeout
//   - simulation: Decode SimulationFrame each cycle instead of reading
//
// Returns:
//   - error: ErrInvalidSettings on bad values or while started, or a
//     *ConsistencyError if the topic map does not fit the schema
func (s *LSST) Setup(settings Settings, simulation bool) error {
	settings, err := settings.validate(simulation)
	if err != nil {
		return err
	}
	if err := s.topics.Check(s.schema); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.cancelStart != nil {
		return fmt.Errorf("%w: cannot reconfigure a started controller", ErrInvalidSettings)
	}
	s.settings = settings
	s.simulation = simulation
	s.configured = true
	return nil
}

// Unset forgets the settings. A started controller keeps its connection
// until Stop.
func (s *LSST) Unset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = Settings{}
	s.simulation = false
	s.configured = false
}

// Start acquires the station connection. In live tcp mode it blocks until
// the station connects or ctx is done; Stop from another goroutine aborts
// the wait. Calling Start on a started controller does nothing.
func (s *LSST) Start(ctx context.Context) error {
	s.mu.Lock()
	if !s.configured {
		s.mu.Unlock()
		return fmt.Errorf("%w: Setup has not been called", ErrInvalidSettings)
	}
	if s.started || s.cancelStart != nil {
		s.mu.Unlock()
		return nil
	}
	if s.simulation {
		s.started = true
		s.mu.Unlock()
		s.logger.Info("station started in simulation mode")
		return nil
	}

	settings := s.settings
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancelStart = cancel
	s.mu.Unlock()

	transport, conn, err := s.open(ctx, settings)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelStart = nil
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		// Stop ran while the connection was being established.
		conn.Close()      //nolint:errcheck // discarded connection
		transport.Close() //nolint:errcheck // discarded listener
		return fmt.Errorf("starting %s transport: %w", settings.Transport, ctx.Err())
	}
	s.transport = transport
	s.conn = conn
	s.reader = bufio.NewReaderSize(conn, settings.BufferSize)
	s.started = true

	s.logger.Info("station connected", "transport", settings.Transport, "host", settings.Host, "port", settings.Port)
	return nil
}

func (s *LSST) open(ctx context.Context, settings Settings) (Transport, Conn, error) {
	transport, err := s.newTransport(settings)
	if err != nil {
		return nil, nil, err
	}
	conn, err := transport.Open(ctx)
	if err != nil {
		transport.Close() //nolint:errcheck // already failing
		return nil, nil, fmt.Errorf("starting %s transport: %w", settings.Transport, err)
	}
	return transport, conn, nil
}

// Stop releases the connection. Calling Stop on a stopped controller does
// nothing. A Start blocked waiting for the station is cancelled.
func (s *LSST) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelStart != nil {
		s.cancelStart()
	}
	if !s.started {
		return nil
	}

	var errs []error
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing station connection: %w", err))
		}
	}
	if s.transport != nil {
		if err := s.transport.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	s.conn = nil
	s.transport = nil
	s.reader = nil
	s.started = false

	s.logger.Info("station stopped")
	return errors.Join(errs...)
}

// GetData runs one cycle and returns the reduced topics. On failure it
// returns a nil map and an error matching one of ErrTransportTimeout,
// ErrFrameParse, ErrSchemaCardinality or ErrInternalConsistency (or
// ErrNotStarted / ErrConnectionClosed), and ErrorReport describes it.
func (s *LSST) GetData(ctx context.Context) (TopicData, error) {
	if !s.cycling.CompareAndSwap(false, true) {
		return nil, ErrCycleInProgress
	}
	defer s.cycling.Store(false)

	begin := time.Now()
	text, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}

	frame, err := ParseFrame(text)
	if err != nil {
		s.setError(parseReport(text))
		return nil, err
	}

	store, warnings, err := BuildStore(ctx, s.schema, frame.Records)
	if err != nil {
		if errors.Is(err, ErrSchemaCardinality) {
			s.setError(parseReport(text))
			return nil, err
		}
		s.setError(fmt.Sprintf("Cycle cancelled while building store: %v", err))
		return nil, fmt.Errorf("%w: %w", ErrTransportTimeout, err)
	}
	for _, w := range warnings {
		s.logger.Warn("surplus records for schema leaf",
			"leaf", w.Leaf.String(), "matched", w.Matched, "expected", w.Expected)
	}

	data, err := Reduce(store, s.topics)
	if err != nil {
		s.setError(err.Error())
		s.logger.Error("topic map does not match store", "error", err)
		return nil, err
	}

	s.diagMu.Lock()
	s.lastError = ""
	s.lastCycle = CycleInfo{
		Header:     frame.Header,
		FrameBytes: len(text),
		Warnings:   warnings,
		Duration:   time.Since(begin),
	}
	s.diagMu.Unlock()
	return data, nil
}

// acquire returns the text of the next frame.
func (s *LSST) acquire(ctx context.Context) (string, error) {
	s.mu.Lock()
	simulation, started := s.simulation, s.started
	conn, reader, timeout := s.conn, s.reader, s.settings.Timeout
	s.mu.Unlock()

	if simulation {
		text, err := s.framer.ReadFrame(ctx, strings.NewReader(SimulationFrame))
		if err != nil {
			s.setError(fmt.Sprintf("Simulated frame not decoded: %v", err))
		}
		return text, err
	}
	if !started || conn == nil {
		s.setError("Controller not started.")
		return "", ErrNotStarted
	}

	readCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Clear any deadline left by the previous cycle, then interrupt the
	// blocked read as soon as readCtx ends.
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		// A pipe refuses deadlines once the station has hung up.
		if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
			s.setError(closedReport)
			return "", fmt.Errorf("resetting read deadline: %w: %w", ErrConnectionClosed, err)
		}
		s.setError(err.Error())
		return "", fmt.Errorf("resetting read deadline: %w", err)
	}
	fired := make(chan struct{})
	stop := context.AfterFunc(readCtx, func() {
		defer close(fired)
		conn.SetReadDeadline(time.Now()) //nolint:errcheck // conn may already be closed
	})
	defer func() {
		if !stop() {
			<-fired
		}
	}()

	text, err := s.framer.ReadFrame(readCtx, reader)
	switch {
	case err == nil:
		return text, nil
	case errors.Is(err, ErrTransportTimeout):
		s.setError(fmt.Sprintf("Timed out after %s waiting for frame: [START]\n%s\n[END]", timeout, s.framer.Partial()))
	case errors.Is(err, ErrConnectionClosed):
		s.setError(closedReport)
	default:
		s.setError(fmt.Sprintf("Reading frame failed: %v: [START]\n%s\n[END]", err, s.framer.Partial()))
	}
	return "", err
}

const closedReport = "Station closed the connection before sending a frame."

func parseReport(text string) string {
	return fmt.Sprintf("Could not parse data string: [START]\n%s\n[END]", text)
}

// ErrorReport returns the diagnostic left by the last failed cycle.
func (s *LSST) ErrorReport() string {
	s.diagMu.Lock()
	defer s.diagMu.Unlock()
	return s.lastError
}

// ResetError clears the diagnostic.
func (s *LSST) ResetError() {
	s.setError("")
}

// LastCycle returns details of the most recent successful cycle.
func (s *LSST) LastCycle() CycleInfo {
	s.diagMu.Lock()
	defer s.diagMu.Unlock()
	info := s.lastCycle
	info.Warnings = append([]CardinalityWarning(nil), info.Warnings...)
	return info
}

func (s *LSST) setError(msg string) {
	s.diagMu.Lock()
	s.lastError = msg
	s.diagMu.Unlock()
}
