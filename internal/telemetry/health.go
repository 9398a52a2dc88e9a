package telemetry

import (
	"context"
	"sync"
	"time"
)

// HealthStatus is the overall status carried by a health message.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
	HealthStopping  HealthStatus = "stopping"
)

const defaultHealthInterval = 30 * time.Second

// HealthMessage is published retained on the site health topic.
type HealthMessage struct {
	Status        HealthStatus `json:"status"`
	Reason        string       `json:"reason,omitempty"`
	State         State        `json:"state"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Stats         Stats        `json:"stats"`
	Timestamp     time.Time    `json:"timestamp"`
}

// HealthPublisher is the subset of *mqtt.Client used by HealthReporter.
type HealthPublisher interface {
	PublishJSON(topic string, v any, retained bool) error
	IsConnected() bool
}

// StatusSource reports the service state and counters.
type StatusSource interface {
	State() State
	Stats() Stats
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	Topic     string
	Version   string
	Interval  time.Duration // default 30s
	Publisher HealthPublisher
	Source    StatusSource
	Logger    Logger
}

// HealthReporter publishes the service health at a fixed interval.
type HealthReporter struct {
	topic     string
	version   string
	interval  time.Duration
	startTime time.Time
	publisher HealthPublisher
	source    StatusSource
	logger    Logger

	// stopOnce prevents double-close panics
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewHealthReporter creates a reporter. Call Start to begin reporting.
//
// Parameters:
//   - cfg: Publisher, service and interval; a zero interval uses the default
//
// Returns:
//   - *HealthReporter: Stopped reporter
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultHealthInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	return &HealthReporter{
		topic:     cfg.Topic,
		version:   cfg.Version,
		interval:  cfg.Interval,
		startTime: time.Now(),
		publisher: cfg.Publisher,
		source:    cfg.Source,
		logger:    cfg.Logger,
		done:      make(chan struct{}),
	}
}

// Start begins periodic reporting until ctx ends or Stop is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop ends reporting and publishes a final stopping status. Safe to call
// more than once.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // best-effort during shutdown
		h.publish(HealthStopping, "shutting down")
	})
}

// PublishNow publishes the current health immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publish(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logger.Error("failed to publish initial health", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logger.Error("failed to publish health", "error", err)
			}
		}
	}
}

func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	switch h.source.State() {
	case StateFault:
		return HealthUnhealthy, "telemetry faulted"
	case StateDisabled:
		return HealthDegraded, "telemetry disabled"
	}
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) message(status HealthStatus, reason string) HealthMessage {
	return HealthMessage{
		Status:        status,
		Reason:        reason,
		State:         h.source.State(),
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Stats:         h.source.Stats(),
		Timestamp:     time.Now().UTC(),
	}
}

func (h *HealthReporter) publish(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}
	return h.publisher.PublishJSON(h.topic, h.message(status, reason), true)
}
