package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/weatherstation-core/internal/history"
	"github.com/nerrad567/weatherstation-core/internal/station"
)

type result struct {
	data station.TopicData
	err  error
}

// fakeController serves queued GetData results and blocks on ctx when the
// queue is empty.
type fakeController struct {
	mu       sync.Mutex
	startErr error
	stopErr  error
	starts   int
	stops    int
	resets   int
	report   string
	info     station.CycleInfo

	results chan result
}

func newFakeController() *fakeController {
	return &fakeController{results: make(chan result, 16)}
}

func (f *fakeController) push(data station.TopicData, err error) {
	f.results <- result{data: data, err: err}
}

func (f *fakeController) Setup(station.Settings, bool) error { return nil }
func (f *fakeController) Unset()                             {}

func (f *fakeController) Start(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return f.startErr
}

func (f *fakeController) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return f.stopErr
}

func (f *fakeController) GetData(ctx context.Context) (station.TopicData, error) {
	select {
	case r := <-f.results:
		if r.err != nil {
			f.mu.Lock()
			f.report = "report: " + r.err.Error()
			f.mu.Unlock()
		}
		return r.data, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", station.ErrTransportTimeout, ctx.Err())
	}
}

func (f *fakeController) ErrorReport() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.report
}

func (f *fakeController) ResetError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.report = ""
	f.resets++
}

func (f *fakeController) LastCycle() station.CycleInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.info
}

func (f *fakeController) counts() (starts, stops, resets int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts, f.stops, f.resets
}

// recordingSink captures snapshots and events.
type recordingSink struct {
	name string
	err  error

	mu     sync.Mutex
	snaps  []Snapshot
	events []Event
	cycles []CycleResult
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	return s.err
}

func (s *recordingSink) PublishEvent(_ context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) RecordCycle(res CycleResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles = append(s.cycles, res)
}

func (s *recordingSink) snapshotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

func (s *recordingSink) eventList() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func (s *recordingSink) cycleList() []CycleResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]CycleResult(nil), s.cycles...)
}

// memoryHistory is an in-memory HistoryStore.
type memoryHistory struct {
	mu     sync.Mutex
	cycles []history.Cycle
	faults []history.Fault
	pruned int
}

func (m *memoryHistory) RecordCycle(_ context.Context, c history.Cycle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cycles = append(m.cycles, c)
	return nil
}

func (m *memoryHistory) RecordFault(_ context.Context, f history.Fault) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults = append(m.faults, f)
	return int64(len(m.faults)), nil
}

func (m *memoryHistory) Prune(context.Context, time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruned++
	return 0, nil
}

func (m *memoryHistory) snapshot() ([]history.Cycle, []history.Fault) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]history.Cycle(nil), m.cycles...), append([]history.Fault(nil), m.faults...)
}

var errBoom = errors.New("boom")

// waitFor polls cond until it holds or the deadline passes.
func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}
