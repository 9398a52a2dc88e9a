package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/nerrad567/weatherstation-core/internal/infrastructure/config"
)

const (
	subjectPrefix = "weatherstation"

	defaultConnectTimeout = 5 * time.Second
	defaultDrainTimeout   = 10 * time.Second
)

// Logger is the subset of logging.Logger the client needs.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Subjects builds the subject tree for one site.
type Subjects struct {
	Site string
}

// Telemetry returns the subject for a decoded topic.
//
// Example: weatherstation.lsst.telemetry.windSpeed
func (s Subjects) Telemetry(topic string) string {
	return strings.Join([]string{subjectPrefix, s.Site, "telemetry", topic}, ".")
}

// Event returns the subject for a named event.
func (s Subjects) Event(name string) string {
	return strings.Join([]string{subjectPrefix, s.Site, "event", name}, ".")
}

// AllTelemetry matches every telemetry subject of the site.
func (s Subjects) AllTelemetry() string { return s.Telemetry("*") }

// Client is a thin wrapper over a NATS connection.
type Client struct {
	subjects Subjects
	logger   Logger

	mu   sync.RWMutex
	conn *natsgo.Conn
}

// Connect dials the configured server. The connection reconnects on its
// own; disconnects and reconnects are logged.
//
// Parameters:
//   - ctx: Abandons the dial when done
//   - cfg: NATS configuration
//   - site: Site identifier used in every subject
//   - logger: Receives connection state changes
//
// Returns:
//   - *Client: Connected client
//   - error: ErrDisabled or ErrConnectionFailed
func Connect(ctx context.Context, cfg config.NATSConfig, site string, logger Logger) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	c := &Client{subjects: Subjects{Site: site}, logger: logger}
	opts := c.buildOptions(cfg)

	type result struct {
		conn *natsgo.Conn
		err  error
	}
	done := make(chan result, 1)
	go func() {
		conn, err := natsgo.Connect(cfg.URL, opts...)
		done <- result{conn, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, r.err)
		}
		c.conn = r.conn
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				r.conn.Close()
			}
		}()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, ctx.Err())
	}
	return c, nil
}

func (c *Client) buildOptions(cfg config.NATSConfig) []natsgo.Option {
	opts := []natsgo.Option{
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(time.Duration(cfg.ReconnectWait) * time.Second),
		natsgo.Timeout(defaultConnectTimeout),
		natsgo.DrainTimeout(defaultDrainTimeout),
		natsgo.DisconnectErrHandler(c.handleDisconnect),
		natsgo.ReconnectHandler(c.handleReconnect),
	}
	if cfg.Name != "" {
		opts = append(opts, natsgo.Name(cfg.Name))
	}
	if cfg.Token != "" {
		opts = append(opts, natsgo.Token(cfg.Token))
	}
	return opts
}

func (c *Client) handleDisconnect(_ *natsgo.Conn, err error) {
	if c.logger != nil && err != nil {
		c.logger.Warn("NATS disconnected", "error", err)
	}
}

func (c *Client) handleReconnect(conn *natsgo.Conn) {
	if c.logger != nil {
		c.logger.Info("NATS reconnected", "url", conn.ConnectedUrl())
	}
}

// Subjects returns the subject builder for the client's site.
func (c *Client) Subjects() Subjects { return c.subjects }

// Publish sends data on subject.
func (c *Client) Publish(subject string, data []byte) error {
	if subject == "" {
		return ErrInvalidSubject
	}
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return ErrNotConnected
	}
	if err := conn.Publish(subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// PublishJSON marshals v and publishes it on subject.
func (c *Client) PublishJSON(subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("nats publish %s: encoding payload: %w", subject, err)
	}
	return c.Publish(subject, data)
}

// HealthCheck reports ErrNotConnected while the server is unreachable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("nats health check: %w", err)
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.conn == nil || !c.conn.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close drains pending messages and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	if err := conn.Drain(); err != nil {
		conn.Close()
		return fmt.Errorf("draining nats connection: %w", err)
	}
	return nil
}
