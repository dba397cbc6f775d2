package actuator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Miquel-TA/cat-feeder/internal/domain"
)

var errNotConnected = errors.New("serial port not connected")

// Settings configures the serial link to the feeder board.
type Settings struct {
	Port              string
	BaudRate          int
	ReconnectInterval time.Duration
	CommandTimeout    time.Duration
}

// Opener opens the serial device.
type Opener func(name string, baud int) (io.WriteCloser, error)

// Option customizes a Controller.
type Option func(*Controller)

// WithOpener replaces the platform serial opener.
func WithOpener(open Opener) Option {
	return func(c *Controller) { c.open = open }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// Controller sends line commands to the feeder board. Commands are serialized;
// a failed write closes the port and the next command reopens it, at most once
// per ReconnectInterval.
type Controller struct {
	settings Settings
	open     Opener
	now      func() time.Time
	logger   zerolog.Logger

	mu          sync.Mutex
	port        io.WriteCloser
	lastAttempt time.Time
}

func NewController(settings Settings, logger zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		settings: settings,
		open:     OpenSerial,
		now:      time.Now,
		logger:   logger.With().Str("component", "actuator").Str("port", settings.Port).Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens the port. A failure is logged and returned; later commands retry.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureLocked(true)
}

// TriggerMotor asks the board to run motor.
func (c *Controller) TriggerMotor(ctx context.Context, motor int) error {
	return c.send(ctx, fmt.Sprintf("MOTOR:%d\n", motor))
}

// Ping checks that the board accepts writes.
func (c *Controller) Ping(ctx context.Context) error {
	return c.send(ctx, "PING\n")
}

// Connected reports whether the port is currently open.
func (c *Controller) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port != nil
}

// Close releases the port.
func (c *Controller) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}

func (c *Controller) send(ctx context.Context, command string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureLocked(false); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrActuatorUnavailable, err)
	}
	if err := c.writeLocked(ctx, command); err != nil {
		c.logger.Error().Err(err).Str("command", command[:len(command)-1]).Msg("actuator: write failed, closing port")
		c.dropLocked()
		return fmt.Errorf("%w: %v", domain.ErrActuatorUnavailable, err)
	}
	c.logger.Debug().Str("command", command[:len(command)-1]).Msg("actuator: command sent")
	return nil
}

// ensureLocked opens the port unless it is open already or the last attempt
// was less than ReconnectInterval ago. force skips the interval.
func (c *Controller) ensureLocked(force bool) error {
	if c.port != nil {
		return nil
	}
	now := c.now()
	if !force && !c.lastAttempt.IsZero() && now.Sub(c.lastAttempt) < c.settings.ReconnectInterval {
		return errNotConnected
	}
	c.lastAttempt = now

	port, err := c.open(c.settings.Port, c.settings.BaudRate)
	if err != nil {
		c.logger.Error().Err(err).Msg("actuator: open failed")
		return fmt.Errorf("open %s: %w", c.settings.Port, err)
	}
	c.port = port
	c.logger.Info().Int("baud_rate", c.settings.BaudRate).Msg("actuator: port opened")
	return nil
}

// dropLocked closes the port and forgets it. It is a no-op once the port is gone.
func (c *Controller) dropLocked() {
	if c.port == nil {
		return
	}
	if err := c.port.Close(); err != nil {
		c.logger.Warn().Err(err).Msg("actuator: close failed")
	}
	c.port = nil
}

// writeLocked bounds the write by CommandTimeout and ctx. On timeout the port
// is dropped to unblock the pending write.
func (c *Controller) writeLocked(ctx context.Context, command string) error {
	port := c.port
	done := make(chan error, 1)
	go func() {
		_, err := io.WriteString(port, command)
		done <- err
	}()

	var timeout <-chan time.Time
	if c.settings.CommandTimeout > 0 {
		timer := time.NewTimer(c.settings.CommandTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case err := <-done:
		return err
	case <-timeout:
		c.dropLocked()
		<-done
		return fmt.Errorf("write timed out after %s", c.settings.CommandTimeout)
	case <-ctx.Done():
		c.dropLocked()
		<-done
		return ctx.Err()
	}
}
