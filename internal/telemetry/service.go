package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/weatherstation-core/internal/history"
	"github.com/nerrad567/weatherstation-core/internal/infrastructure/metrics"
	"github.com/nerrad567/weatherstation-core/internal/station"
)

const (
	defaultLoopDieTimeout = 5 * time.Second
	recordTimeout         = 5 * time.Second
	pruneInterval         = time.Hour
)

// Options configures a Service. Everything except the controller is optional.
type Options struct {
	Sinks   []Sink
	History HistoryStore
	Metrics *metrics.Metrics
	Logger  Logger

	// LoopDieTimeout bounds how long Disable waits for the loop to exit.
	LoopDieTimeout time.Duration

	// Interval is a pause between cycles. Live stations pace the loop
	// themselves, so this is only set for simulation.
	Interval time.Duration

	// Retention prunes history older than this. Zero keeps everything.
	Retention time.Duration
}

// Service drives a station controller through the enable/disable/fault
// lifecycle and runs the telemetry loop while enabled.
type Service struct {
	controller station.Controller
	sinks      []Sink
	history    HistoryStore
	metrics    *metrics.Metrics
	logger     Logger

	loopDieTimeout time.Duration
	interval       time.Duration
	retention      time.Duration

	// lifecycle serialises Enable, Disable and ClearFault. The loop never
	// takes it.
	lifecycle sync.Mutex

	mu        sync.RWMutex
	state     State
	cancel    context.CancelFunc
	done      chan struct{}
	latest    *Snapshot
	lastFault *Event
	stats     Stats
}

// New creates a disabled service for controller.
//
// Parameters:
//   - controller: Station controller driven by the telemetry loop
//   - opts: Sinks, history, metrics, logger and loop timings; zero values
//     fall back to defaults
//
// Returns:
//   - *Service: Service in the disabled state
func New(controller station.Controller, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	if opts.LoopDieTimeout <= 0 {
		opts.LoopDieTimeout = defaultLoopDieTimeout
	}
	return &Service{
		controller:     controller,
		sinks:          opts.Sinks,
		history:        opts.History,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		loopDieTimeout: opts.LoopDieTimeout,
		interval:       opts.Interval,
		retention:      opts.Retention,
		state:          StateDisabled,
	}
}

// Enable starts the controller and the telemetry loop.
//
// It is a no-op while enabled and fails with ErrFaulted while faulted. A
// controller start failure faults the service with CodeControllerStart
// unless ctx itself was cancelled.
//
// Parameters:
//   - ctx: Bounds the controller start
//
// Returns:
//   - error: ErrFaulted, or the wrapped controller start failure
func (s *Service) Enable(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	switch s.State() {
	case StateEnabled:
		return nil
	case StateFault:
		return ErrFaulted
	}

	if err := s.controller.Start(ctx); err != nil {
		if ctx.Err() == nil {
			s.fault(CodeControllerStart, "Error starting controller.", err, "")
		}
		return fmt.Errorf("starting controller: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.mu.Lock()
	s.state = StateEnabled
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go s.loop(loopCtx, done)
	s.logger.Info("telemetry enabled")
	return nil
}

// Disable stops the loop and the controller. It is a no-op unless enabled.
// A controller stop failure faults the service with CodeControllerStop.
func (s *Service) Disable() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.RLock()
	state, cancel, done := s.state, s.cancel, s.done
	s.mu.RUnlock()
	if state != StateEnabled {
		return nil
	}

	cancel()
	var stopErr error
	if err := s.controller.Stop(); err != nil {
		stopErr = fmt.Errorf("stopping controller: %w", err)
		s.fault(CodeControllerStop, "Error stopping controller.", err, "")
	}
	s.waitLoop(done)

	s.mu.Lock()
	s.cancel = nil
	s.done = nil
	if s.state == StateEnabled {
		s.state = StateDisabled
	}
	s.mu.Unlock()

	if stopErr == nil {
		s.logger.Info("telemetry disabled")
	}
	return stopErr
}

// ClearFault returns a faulted service to disabled.
func (s *Service) ClearFault() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.RLock()
	state, cancel, done := s.state, s.cancel, s.done
	s.mu.RUnlock()
	if state != StateFault {
		return ErrNotFaulted
	}

	if cancel != nil {
		cancel()
		s.waitLoop(done)
	}

	s.mu.Lock()
	s.state = StateDisabled
	s.cancel = nil
	s.done = nil
	s.lastFault = nil
	s.mu.Unlock()

	s.logger.Info("telemetry fault cleared")
	return nil
}

// Run enables the service if autoEnable is set, prunes history while ctx
// is live and disables the service when ctx ends.
//
// Parameters:
//   - ctx: Service lifetime
//   - autoEnable: Enable immediately instead of waiting for a command
//
// Returns:
//   - error: The auto-enable failure, or nil after a clean shutdown
func (s *Service) Run(ctx context.Context, autoEnable bool) error {
	if autoEnable {
		if err := s.Enable(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("auto-enable failed", "error", err)
		}
	}

	var prune <-chan time.Time
	if s.history != nil && s.retention > 0 {
		ticker := time.NewTicker(pruneInterval)
		defer ticker.Stop()
		prune = ticker.C
		s.prune(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			if err := s.Disable(); err != nil {
				s.logger.Error("disable on shutdown failed", "error", err)
			}
			return nil
		case <-prune:
			s.prune(ctx)
		}
	}
}

// State returns the lifecycle state.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Latest returns the last published snapshot.
func (s *Service) Latest() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return Snapshot{}, false
	}
	return *s.latest, true
}

// LastFault returns the event that put the service in the fault state.
func (s *Service) LastFault() (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastFault == nil {
		return Event{}, false
	}
	return *s.lastFault, true
}

// Stats returns the cycle counters.
func (s *Service) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// ErrorReport returns the controller's diagnostic.
func (s *Service) ErrorReport() string { return s.controller.ErrorReport() }

// ResetError clears the controller's diagnostic.
func (s *Service) ResetError() { s.controller.ResetError() }

func (s *Service) loop(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		if !s.cycle(ctx) {
			return
		}
		if s.interval > 0 {
			timer := time.NewTimer(s.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}
}

// cycle runs one GetData and reports whether the loop should continue.
func (s *Service) cycle(ctx context.Context) bool {
	res := CycleResult{ID: uuid.NewString(), Started: time.Now()}
	s.logger.Debug("getting data", "cycle_id", res.ID)

	data, err := s.controller.GetData(ctx)
	res.Duration = time.Since(res.Started)
	res.Err = err

	switch {
	case err == nil:
		res.Outcome = metrics.OutcomeOK
		snap := s.snapshot(&res, data)
		s.publish(ctx, snap)
		s.record(ctx, res)
		return true

	case ctx.Err() != nil:
		res.Outcome = metrics.OutcomeInterrupted
		s.record(ctx, res)
		return false

	case errors.Is(err, station.ErrFrameParse), errors.Is(err, station.ErrSchemaCardinality):
		res.Outcome = metrics.OutcomeNoData
		s.logger.Warn("No data from controller",
			"cycle_id", res.ID, "error", err, "report", s.controller.ErrorReport())
		s.record(ctx, res)
		return true

	default:
		res.Outcome = metrics.OutcomeFault
		if errors.Is(err, station.ErrTransportTimeout) {
			res.Outcome = metrics.OutcomeTimeout
		}
		s.record(ctx, res)
		s.fault(CodeTelemetryLoop, "Error in the telemetry loop.", err, res.ID)
		return false
	}
}

// snapshot wraps data with the header details of the cycle that produced it.
func (s *Service) snapshot(res *CycleResult, data station.TopicData) Snapshot {
	snap := Snapshot{CycleID: res.ID, Time: res.Started, Data: data}

	reporter, ok := s.controller.(station.CycleReporter)
	if !ok {
		return snap
	}
	info := reporter.LastCycle()
	if t, ok := info.Header.Time(); ok {
		snap.Time = t
	}
	snap.StationID = info.Header.StationID()
	snap.MessageID = info.Header.MessageID()

	res.StationID = snap.StationID
	res.MessageID = snap.MessageID
	res.FrameBytes = info.FrameBytes
	res.Warnings = len(info.Warnings)
	if s.metrics != nil {
		for _, w := range info.Warnings {
			s.metrics.Surplus(w.Leaf.String())
		}
	}
	return snap
}

// publish hands snap to every sink. Sink errors are logged and counted.
func (s *Service) publish(ctx context.Context, snap Snapshot) {
	s.mu.Lock()
	s.latest = &snap
	s.mu.Unlock()

	if s.metrics != nil {
		for topic, fields := range snap.Data {
			s.metrics.SetTopic(topic, NumericFields(fields))
		}
	}

	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, snap); err != nil {
			s.logger.Warn("sink publish failed", "sink", sink.Name(), "cycle_id", snap.CycleID, "error", err)
			if s.metrics != nil {
				s.metrics.SinkError(sink.Name())
			}
		}
	}
}

// record updates counters, metrics, cycle sinks and history.
func (s *Service) record(ctx context.Context, res CycleResult) {
	s.mu.Lock()
	s.stats.Cycles++
	switch res.Outcome {
	case metrics.OutcomeOK:
		s.stats.Successes++
		s.stats.LastSuccess = res.Started.Add(res.Duration)
	case metrics.OutcomeNoData:
		s.stats.NoData++
	case metrics.OutcomeTimeout, metrics.OutcomeFault:
		s.stats.Failures++
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ObserveCycle(res.Outcome, res.Duration, res.FrameBytes)
	}
	for _, sink := range s.sinks {
		if cs, ok := sink.(CycleSink); ok {
			cs.RecordCycle(res)
		}
	}

	if s.history == nil {
		return
	}
	c := history.Cycle{
		ID:         res.ID,
		StartedAt:  res.Started,
		Duration:   res.Duration,
		Outcome:    res.Outcome,
		StationID:  res.StationID,
		MessageID:  res.MessageID,
		FrameBytes: res.FrameBytes,
		Warnings:   res.Warnings,
	}
	if res.Err != nil {
		c.Error = res.Err.Error()
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.history.RecordCycle(rctx, c); err != nil {
		s.logger.Error("recording cycle failed", "cycle_id", res.ID, "error", err)
	}
}

// fault stops the controller, logs and clears its error report, persists
// and publishes the fault, and leaves the service in the fault state.
func (s *Service) fault(code int, report string, cause error, cycleID string) {
	if err := s.controller.Stop(); err != nil {
		s.logger.Error("stopping controller after fault failed", "error", err)
	}

	diagnostic := s.controller.ErrorReport()
	s.logger.Error("Error report from controller",
		"code", code, "report", fmt.Sprintf("[START]\n%s\n[END]", diagnostic))
	s.controller.ResetError()

	ev := Event{Code: code, Report: report, CycleID: cycleID, Time: time.Now()}
	if cause != nil {
		ev.Traceback = cause.Error()
	}

	if s.metrics != nil {
		s.metrics.Fault(code)
	}

	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	if s.history != nil {
		_, err := s.history.RecordFault(ctx, history.Fault{
			OccurredAt: ev.Time,
			Code:       code,
			Report:     report,
			Diagnostic: diagnostic,
			CycleID:    cycleID,
		})
		if err != nil {
			s.logger.Error("recording fault failed", "code", code, "error", err)
		}
	}

	for _, sink := range s.sinks {
		es, ok := sink.(EventSink)
		if !ok {
			continue
		}
		if err := es.PublishEvent(ctx, ev); err != nil {
			s.logger.Warn("errorCode publish failed", "sink", sink.Name(), "error", err)
			if s.metrics != nil {
				s.metrics.SinkError(sink.Name())
			}
		}
	}

	s.mu.Lock()
	s.state = StateFault
	s.lastFault = &ev
	s.mu.Unlock()
}

func (s *Service) waitLoop(done <-chan struct{}) {
	if done == nil {
		return
	}
	select {
	case <-done:
	case <-time.After(s.loopDieTimeout):
		s.logger.Warn("telemetry loop did not stop in time", "timeout", s.loopDieTimeout)
	}
}

func (s *Service) prune(ctx context.Context) {
	n, err := s.history.Prune(ctx, s.retention)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("pruning history failed", "error", err)
		}
		return
	}
	if n > 0 {
		s.logger.Info("pruned history", "rows", n, "older_than", s.retention)
	}
}
