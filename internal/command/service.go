package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nestwire/nestwire-core/internal/apperr"
	"github.com/nestwire/nestwire-core/internal/auth"
	"github.com/nestwire/nestwire-core/internal/codec"
	"github.com/nestwire/nestwire-core/internal/device"
)

const (
	// DefaultHistoryLimit is the number of commands kept per device when
	// no limit is configured.
	DefaultHistoryLimit = 500

	defaultPageSize = 50
	maxPageSize     = 500

	measurementDispatch = "command_dispatch"
)

// Devices is the part of the device registry the service needs.
type Devices interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	UpdateEndpointValue(ctx context.Context, scope device.Scope, endpointID int, v device.Value, at time.Time) (device.MergeResult, error)
}

// Sender publishes a composite command for one endpoint.
type Sender interface {
	Send(ctx context.Context, dev *device.Device, endpointID, value int) (string, []byte, error)
}

// Authorizer is the access check the command service needs.
type Authorizer interface {
	Authorize(ctx context.Context, houseID, userID string, action auth.Action) error
}

// Metrics receives one point per dispatch. May be nil.
type Metrics interface {
	WritePoint(measurement string, tags map[string]string, fields map[string]interface{})
}

// Logger is the logging interface used by the command package.
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

// Config holds Service dependencies.
type Config struct {
	Repo    Repository
	Devices Devices
	Sender  Sender
	Authz   Authorizer
	Metrics Metrics
	Logger  Logger

	// HistoryLimit is the number of commands kept per device. 0 keeps all.
	HistoryLimit int
}

// Service dispatches user commands and serves the command log.
type Service struct {
	repo         Repository
	devices      Devices
	sender       Sender
	authz        Authorizer
	metrics      Metrics
	logger       Logger
	historyLimit int
	now          func() time.Time
}

// NewService creates a command Service.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	return &Service{
		repo:         cfg.Repo,
		devices:      cfg.Devices,
		sender:       cfg.Sender,
		authz:        cfg.Authz,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		historyLimit: cfg.HistoryLimit,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch logs and publishes one command. A publish failure leaves the
// log entry FAILED and returns a transient error.
func (s *Service) Dispatch(ctx context.Context, req DispatchRequest) (DispatchResult, error) {
	dev, err := s.devices.GetDevice(ctx, req.DeviceID)
	if err != nil {
		return DispatchResult{}, err
	}
	if err := s.authz.Authorize(ctx, dev.HouseID, req.CallerID, auth.ActionOperate); err != nil {
		return DispatchResult{}, err
	}
	if _, ok := dev.Endpoint(req.EndpointID); !ok {
		return DispatchResult{}, fmt.Errorf("%w: %d", device.ErrEndpointNotFound, req.EndpointID)
	}
	target, err := codec.TargetValue(req.Verb, req.Payload)
	if err != nil {
		return DispatchResult{}, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	cmd := &Command{
		ID:         GenerateID(),
		DeviceID:   dev.ID,
		EndpointID: req.EndpointID,
		Verb:       req.Verb,
		Payload:    req.Payload,
		Status:     StatusPending,
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, cmd); err != nil {
		return DispatchResult{}, err
	}

	topic, payload, sendErr := s.sender.Send(ctx, dev, req.EndpointID, target)
	if sendErr != nil {
		if err := s.repo.UpdateStatus(ctx, cmd.ID, StatusFailed); err != nil {
			s.logger.Error("marking command failed", "command", cmd.ID, "error", err)
		}
		s.logger.Warn("command dispatch failed",
			"command", cmd.ID, "device", dev.ID, "endpoint", req.EndpointID,
			"kind", apperr.Code(sendErr), "error", sendErr)
		s.record(dev, req, StatusFailed)
		if !errors.Is(sendErr, apperr.ErrValidation) && !apperr.Retryable(sendErr) {
			sendErr = apperr.Transient(sendErr)
		}
		return DispatchResult{CommandID: cmd.ID, Topic: topic}, sendErr
	}

	if err := s.repo.UpdateStatus(ctx, cmd.ID, StatusSent); err != nil {
		return DispatchResult{CommandID: cmd.ID, Topic: topic}, err
	}
	v := codec.StoredValue(req.Verb, target)
	if _, err := s.devices.UpdateEndpointValue(ctx, device.ByDevice(dev.ID), req.EndpointID, v, s.now()); err != nil {
		s.logger.Warn("storing commanded state", "command", cmd.ID, "error", err)
	}

	s.prune(ctx, dev.ID)
	s.record(dev, req, StatusSent)
	s.logger.Info("command sent",
		"command", cmd.ID, "verb", string(req.Verb), "device", dev.ID,
		"endpoint", req.EndpointID, "topic", topic, "payload", string(payload))
	return DispatchResult{CommandID: cmd.ID, Topic: topic}, nil
}

// History returns a page of a device's command log, newest first. A
// non-positive limit selects the default page size.
func (s *Service) History(ctx context.Context, deviceID, callerID string, limit, offset int) ([]HistoryEntry, error) {
	dev, err := s.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, dev.HouseID, callerID, auth.ActionRead); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	cmds, err := s.repo.ListByDevice(ctx, deviceID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]HistoryEntry, len(cmds))
	for i, c := range cmds {
		out[i] = HistoryEntry{Command: c}
		if ep, ok := dev.Endpoint(c.EndpointID); ok {
			out[i].EndpointName = ep.Name
		}
	}
	return out, nil
}

func (s *Service) prune(ctx context.Context, deviceID string) {
	if s.historyLimit <= 0 {
		return
	}
	n, err := s.repo.Prune(ctx, deviceID, s.historyLimit)
	if err != nil {
		s.logger.Warn("pruning command log", "device", deviceID, "error", err)
		return
	}
	if n > 0 {
		s.logger.Debug("command log pruned", "device", deviceID, "deleted", n)
	}
}

func (s *Service) record(dev *device.Device, req DispatchRequest, status Status) {
	if s.metrics == nil {
		return
	}
	s.metrics.WritePoint(measurementDispatch, map[string]string{
		"house_id":  dev.HouseID,
		"device_id": dev.ID,
		"verb":      string(req.Verb),
		"status":    string(status),
	}, map[string]interface{}{
		"endpoint_id": req.EndpointID,
	})
}
