package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nestwire/nestwire-core/internal/bridge"
	"github.com/nestwire/nestwire-core/internal/codec"
	"github.com/nestwire/nestwire-core/internal/device"
)

// DefaultInterval is the tick period used when none is configured.
const DefaultInterval = 10 * time.Second

// Measurement names written to the Metrics sink.
const (
	measurementAutoOff  = "automation_auto_off"
	measurementSchedule = "automation_schedule"
)

// Devices is the part of the device registry the engine needs.
type Devices interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	UpdateEndpointValue(ctx context.Context, scope device.Scope, endpointID int, v device.Value, at time.Time) (device.MergeResult, error)
}

// Sender publishes a composite command for one endpoint.
type Sender interface {
	Send(ctx context.Context, dev *device.Device, endpointID, value int) (string, []byte, error)
}

// Metrics receives one point per firing. May be nil.
type Metrics interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{})
}

// Logger is the logging interface used by the automation package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// EngineConfig holds engine dependencies.
type EngineConfig struct {
	Repo     Repository
	Devices  Devices
	Sender   Sender
	Metrics  Metrics
	Interval time.Duration
	Logger   Logger
}

// TickResult summarises one tick.
type TickResult struct {
	AutoOffFired   int
	AutoOffFailed  int
	SchedulesFired int
	ScheduleFailed int
}

// Engine runs auto-off rules and due schedules on a fixed interval.
//
// Ticks never overlap: a tick that starts while the previous one is still
// running is skipped.
type Engine struct {
	repo     Repository
	devices  Devices
	sender   Sender
	metrics  Metrics
	interval time.Duration
	logger   Logger
	now      func() time.Time

	tickMu  sync.Mutex
	skipped atomic.Int64
}

// NewEngine creates an automation engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Repo == nil || cfg.Devices == nil || cfg.Sender == nil {
		return nil, errors.New("automation: repository, devices and sender are required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	return &Engine{
		repo:     cfg.Repo,
		devices:  cfg.Devices,
		sender:   cfg.Sender,
		metrics:  cfg.Metrics,
		interval: cfg.Interval,
		logger:   cfg.Logger,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run ticks immediately and then every interval until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("automation engine started", "interval", e.interval.String())
	defer e.logger.Info("automation engine stopped")

	e.tryTick(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.tryTick(ctx)
		}
	}
}

func (e *Engine) tryTick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if !e.tickMu.TryLock() {
		n := e.skipped.Add(1)
		e.logger.Warn("automation tick skipped, previous tick still running", "skipped", n)
		return
	}
	defer e.tickMu.Unlock()

	res := e.tick(ctx, e.now())
	if res.AutoOffFired+res.SchedulesFired+res.AutoOffFailed+res.ScheduleFailed > 0 {
		e.logger.Info("automation tick",
			"auto_off_fired", res.AutoOffFired,
			"auto_off_failed", res.AutoOffFailed,
			"schedules_fired", res.SchedulesFired,
			"schedules_failed", res.ScheduleFailed,
		)
	}
}

// Tick runs both passes once at now. It blocks while another tick runs.
func (e *Engine) Tick(ctx context.Context, now time.Time) TickResult {
	e.tickMu.Lock()
	defer e.tickMu.Unlock()
	return e.tick(ctx, now.UTC())
}

func (e *Engine) tick(ctx context.Context, now time.Time) TickResult {
	var res TickResult
	e.isolate("auto-off", func() { e.autoOffPass(ctx, now, &res) })
	e.isolate("schedule", func() { e.schedulePass(ctx, now, &res) })
	return res
}

// isolate keeps a panic in one pass from stopping the other.
func (e *Engine) isolate(pass string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("automation pass panicked", "pass", pass, "panic", r)
		}
	}()
	fn()
}

func (e *Engine) autoOffPass(ctx context.Context, now time.Time, res *TickResult) {
	rules, err := e.repo.ListEnabledRules(ctx)
	if err != nil {
		e.logger.Error("loading auto-off rules", "error", err)
		return
	}

	for _, rule := range rules {
		if ctx.Err() != nil {
			return
		}
		fired, err := e.applyRule(ctx, rule, now)
		if err != nil {
			res.AutoOffFailed++
			e.logger.Error("auto-off failed",
				"device", rule.DeviceID, "endpoint", rule.EndpointID, "error", err)
			continue
		}
		if fired {
			res.AutoOffFired++
		}
	}
}

func (e *Engine) applyRule(ctx context.Context, rule AutoOffRule, now time.Time) (bool, error) {
	if rule.DurationSec <= 0 {
		return false, nil
	}
	dev, err := e.devices.GetDevice(ctx, rule.DeviceID)
	if err != nil {
		return false, err
	}
	ep, ok := dev.Endpoint(rule.EndpointID)
	if !ok {
		return false, fmt.Errorf("%w: %d", device.ErrEndpointNotFound, rule.EndpointID)
	}
	if ep.Value.IsOff() || now.Sub(ep.LastUpdated) < rule.Duration() {
		return false, nil
	}

	topic, _, sendErr := e.sender.Send(ctx, dev, rule.EndpointID, 0)
	switch {
	case sendErr == nil:
	case errors.Is(sendErr, bridge.ErrNoRoute):
		// Nothing to publish to; the stored state is still turned off.
		e.logger.Warn("auto-off has no control topic, updating state only",
			"device", dev.ID, "endpoint", rule.EndpointID)
	default:
		return false, sendErr
	}

	if _, err := e.devices.UpdateEndpointValue(ctx, device.ByDevice(dev.ID), rule.EndpointID, device.Off(), now); err != nil {
		return false, fmt.Errorf("storing off state: %w", err)
	}

	e.logger.Info("auto-off fired",
		"device", dev.ID, "endpoint", rule.EndpointID, "topic", topic,
		"on_for", now.Sub(ep.LastUpdated).Truncate(time.Second).String())
	e.record(measurementAutoOff, dev, rule.EndpointID, map[string]interface{}{
		"duration_sec": rule.DurationSec,
	})
	return true, nil
}

func (e *Engine) schedulePass(ctx context.Context, now time.Time, res *TickResult) {
	due, err := e.repo.DueSchedules(ctx, now)
	if err != nil {
		e.logger.Error("loading due schedules", "error", err)
		return
	}

	for i := range due {
		if ctx.Err() != nil {
			return
		}
		s := &due[i]
		if err := e.fire(ctx, s, now); err != nil {
			res.ScheduleFailed++
			e.logger.Error("schedule failed",
				"schedule", s.ID, "device", s.DeviceID, "endpoint", s.EndpointID, "error", err)
			if recErr := e.repo.RecordFailure(ctx, s.ID, err.Error()); recErr != nil {
				e.logger.Error("recording schedule failure", "schedule", s.ID, "error", recErr)
			}
			continue
		}
		res.SchedulesFired++
	}
}

func (e *Engine) fire(ctx context.Context, s *Schedule, now time.Time) error {
	action, err := DecodeAction(s.Action)
	if err != nil {
		return err
	}
	target, err := action.TargetValue()
	if err != nil {
		return err
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalidSchedule, s.Timezone)
	}

	dev, err := e.devices.GetDevice(ctx, s.DeviceID)
	if err != nil {
		return err
	}
	topic, _, err := e.sender.Send(ctx, dev, s.EndpointID, target)
	switch {
	case err == nil:
	case errors.Is(err, bridge.ErrNoRoute):
		// Unroutable devices still consume the run so it never piles up.
		e.logger.Warn("schedule has no control topic, updating state only",
			"schedule", s.ID, "device", dev.ID, "endpoint", s.EndpointID)
	default:
		return err
	}

	if _, ok := dev.Endpoint(s.EndpointID); ok {
		v := codec.StoredValue(action.Command, target)
		if _, err := e.devices.UpdateEndpointValue(ctx, device.ByDevice(dev.ID), s.EndpointID, v, now); err != nil {
			e.logger.Warn("storing scheduled state", "schedule", s.ID, "error", err)
		}
	}

	// A zero next disables ONCE schedules.
	next, _ := Next(s.Type, s.NextRunAt, loc)
	if err := e.repo.AdvanceSchedule(ctx, s.ID, next); err != nil {
		return fmt.Errorf("advancing schedule: %w", err)
	}

	e.logger.Info("schedule fired",
		"schedule", s.ID, "name", s.Name, "command", string(action.Command),
		"device", dev.ID, "endpoint", s.EndpointID, "topic", topic, "next_run_at", next)
	e.record(measurementSchedule, dev, s.EndpointID, map[string]interface{}{
		"value": target,
	})
	return nil
}

func (e *Engine) record(measurement string, dev *device.Device, endpointID int, fields map[string]interface{}) {
	if e.metrics == nil {
		return
	}
	e.metrics.WritePoint(measurement, map[string]string{
		"house_id":    dev.HouseID,
		"device_id":   dev.ID,
		"endpoint_id": fmt.Sprintf("%d", endpointID),
	}, fields)
}

// Skipped returns how many ticks were skipped because one was in progress.
func (e *Engine) Skipped() int64 {
	return e.skipped.Load()
}
