// Package poller drives periodic telemetry acquisition across all configured
// PSU modules. It is the sole writer to the telemetry cache; transient bus
// errors are retried within the cycle and a persistently failing metric is
// recorded without disturbing the others.
package poller

import (
	"context"
	"errors"
	"log"
	"time"

	"pmbus-exporter/internal/telemetry"
	"pmbus-exporter/pkg/pmbus"
)

// Device abstracts the PMBus client operations the poller needs, so tests
// can inject a fake instead of a live bus.
type Device interface {
	ReadWord(cmd pmbus.Command) (uint16, error)
	ReadByte(cmd pmbus.Command) (byte, error)
}

// Module is one polled PSU module.
type Module struct {
	Name   string
	Device Device

	// VOutExponent fixes the linear16 exponent for READ_VOUT. When nil the
	// exponent is queried from VOUT_MODE once per cycle.
	VOutExponent *int
}

// Config is the poller's immutable runtime configuration.
type Config struct {
	Interval time.Duration
	// Retries is the number of extra attempts per metric within one cycle
	// after the first failure.
	Retries int
	// RetryBackoff is the base delay between attempts; it grows linearly
	// with the attempt number.
	RetryBackoff time.Duration
}

// taskState is the per-metric acquisition state within one cycle.
type taskState uint8

const (
	statePending taskState = iota
	statePolling
	stateSuccess
	stateFailed
)

// Poller owns cycle timing and the retry state machine.
type Poller struct {
	cfg     Config
	modules []Module
	cache   *telemetry.Cache
}

// New validates the configuration and builds a poller.
func New(cfg Config, modules []Module, cache *telemetry.Cache) (*Poller, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("poller: interval must be > 0")
	}
	if cfg.Retries < 0 {
		return nil, errors.New("poller: retries must be >= 0")
	}
	if len(modules) == 0 {
		return nil, errors.New("poller: at least one module required")
	}
	for _, m := range modules {
		if m.Name == "" {
			return nil, errors.New("poller: module name required")
		}
		if m.Device == nil {
			return nil, errors.New("poller: module device required")
		}
	}
	if cache == nil {
		return nil, errors.New("poller: cache required")
	}
	return &Poller{cfg: cfg, modules: modules, cache: cache}, nil
}

// Run polls immediately, then on every tick until the context is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.PollOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce runs one full acquisition cycle across all modules and commands.
// Each metric fails or succeeds on its own; the cycle itself never aborts.
func (p *Poller) PollOnce(ctx context.Context) {
	for _, m := range p.modules {
		// Resolve the linear16 exponent once per module per cycle. A
		// resolution failure is charged to the metrics that need it, not to
		// the whole module.
		voutExp, voutErr := p.voutExponent(m)

		for _, cmd := range pmbus.TelemetryCommands() {
			select {
			case <-ctx.Done():
				return
			default:
			}
			p.runTask(ctx, m, cmd, voutExp, voutErr)
		}
	}
}

// runTask drives one metric through Pending -> Polling -> Success/Failed,
// retrying with backoff inside the cycle so a single transient NACK never
// surfaces as a metric outage.
func (p *Poller) runTask(ctx context.Context, m Module, cmd pmbus.Command, voutExp int, voutErr error) {
	key := readingKey(m.Name, cmd)

	state := statePending
	attempt := 0
	var lastErr error

	for {
		switch state {
		case statePending:
			state = statePolling

		case statePolling:
			value, flags, err := p.read(m, cmd, voutExp, voutErr)
			if err == nil {
				now := time.Now()
				if flags != nil {
					p.cache.SetFlags(key, flags, now)
				} else {
					p.cache.SetValue(key, value, now)
				}
				state = stateSuccess
				continue
			}

			lastErr = err
			attempt++
			if attempt > p.cfg.Retries {
				state = stateFailed
				continue
			}
			if !sleep(ctx, time.Duration(attempt)*p.cfg.RetryBackoff) {
				state = stateFailed
				continue
			}

		case stateSuccess:
			return

		case stateFailed:
			p.cache.SetError(key, lastErr, time.Now())
			log.Printf("poll %s: %v", key, lastErr)
			return
		}
	}
}

// read performs a single attempt for one command and decodes the reply.
func (p *Poller) read(m Module, cmd pmbus.Command, voutExp int, voutErr error) (float64, pmbus.StatusFlags, error) {
	switch cmd.Format {
	case pmbus.FormatLinear11:
		word, err := m.Device.ReadWord(cmd)
		if err != nil {
			return 0, nil, err
		}
		return pmbus.DecodeLinear11(word), nil, nil

	case pmbus.FormatLinear16:
		if voutErr != nil {
			return 0, nil, voutErr
		}
		word, err := m.Device.ReadWord(cmd)
		if err != nil {
			return 0, nil, err
		}
		return pmbus.DecodeLinear16(word, voutExp), nil, nil

	case pmbus.FormatStatus:
		if cmd.Reply == 1 {
			b, err := m.Device.ReadByte(cmd)
			if err != nil {
				return 0, nil, err
			}
			return 0, pmbus.DecodeStatusByte(b), nil
		}
		word, err := m.Device.ReadWord(cmd)
		if err != nil {
			return 0, nil, err
		}
		return 0, pmbus.DecodeStatusWord(word), nil

	default:
		return 0, nil, &pmbus.ProtocolError{Command: cmd.Name, Code: cmd.Code, Err: pmbus.ErrReplyLength}
	}
}

// voutExponent resolves the linear16 exponent for the module, either from
// configuration or by querying VOUT_MODE.
func (p *Poller) voutExponent(m Module) (int, error) {
	if m.VOutExponent != nil {
		return *m.VOutExponent, nil
	}
	b, err := m.Device.ReadByte(pmbus.VOUTMode)
	if err != nil {
		return 0, err
	}
	return pmbus.ParseVOUTMode(b)
}

// sleep waits for d unless the context is cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
