package telemetry

import (
	"context"
	"fmt"
	"path"
	"sync"
)

// Command names, the last segment of the site command topics.
const (
	CommandEnable     = "enable"
	CommandDisable    = "disable"
	CommandClearFault = "clear-fault"
	CommandResetError = "reset-error"
)

// Lifecycle is the part of Service a Commander drives.
type Lifecycle interface {
	Enable(ctx context.Context) error
	Disable() error
	ClearFault() error
	ResetError()
}

// Commander maps MQTT command topics onto lifecycle calls. Commands run on
// their own goroutine because Enable can block until the station connects
// and message handlers must return promptly.
type Commander struct {
	ctx    context.Context
	svc    Lifecycle
	logger Logger
	wg     sync.WaitGroup
}

// NewCommander returns a Commander. ctx bounds every Enable it issues.
func NewCommander(ctx context.Context, svc Lifecycle, logger Logger) *Commander {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Commander{ctx: ctx, svc: svc, logger: logger}
}

// Handle accepts a message on .../command/<name>. The payload is ignored.
func (c *Commander) Handle(topic string, _ []byte) error {
	name := path.Base(topic)

	var run func() error
	switch name {
	case CommandEnable:
		run = func() error { return c.svc.Enable(c.ctx) }
	case CommandDisable:
		run = c.svc.Disable
	case CommandClearFault:
		run = c.svc.ClearFault
	case CommandResetError:
		run = func() error {
			c.svc.ResetError()
			return nil
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}

	c.logger.Info("received command", "command", name)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := run(); err != nil {
			c.logger.Error("command failed", "command", name, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every running command has returned.
func (c *Commander) Wait() {
	c.wg.Wait()
}
