package location

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nestwire/nestwire-core/internal/auth"
)

// Authorizer is the access check the location service needs.
type Authorizer interface {
	Authorize(ctx context.Context, houseID, userID string, action auth.Action) error
}

// Logger is the logging interface used by the service.
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

// Service applies access control to house and room operations.
type Service struct {
	repo   Repository
	authz  Authorizer
	logger Logger
	now    func() time.Time
}

// NewService creates a location Service.
func NewService(repo Repository, authz Authorizer) *Service {
	return &Service{
		repo:   repo,
		authz:  authz,
		logger: noopLogger{},
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetLogger sets the logger used for cascade reports.
func (s *Service) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// CreateHouse creates a house owned by callerID.
func (s *Service) CreateHouse(ctx context.Context, callerID string, h House) (*House, error) {
	if strings.TrimSpace(callerID) == "" {
		return nil, fmt.Errorf("%w: owner id is required", ErrInvalidName)
	}
	h.Name = strings.TrimSpace(h.Name)
	if err := ValidateHouse(&h); err != nil {
		return nil, err
	}
	h.ID = GenerateID()
	h.OwnerID = callerID
	h.CreatedAt = s.now()

	if err := s.repo.CreateHouse(ctx, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// GetHouse returns a house the caller can read.
func (s *Service) GetHouse(ctx context.Context, houseID, callerID string) (*House, error) {
	if err := s.authz.Authorize(ctx, houseID, callerID, auth.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.GetHouse(ctx, houseID)
}

// CreateRoom adds a room to a house. Requires ADMIN.
func (s *Service) CreateRoom(ctx context.Context, callerID string, room Room) (*Room, error) {
	room.Name = strings.TrimSpace(room.Name)
	if err := ValidateName(room.Name); err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, room.HouseID, callerID, auth.ActionConfigure); err != nil {
		return nil, err
	}
	room.ID = GenerateID()
	room.CreatedAt = s.now()

	if err := s.repo.CreateRoom(ctx, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// GetRoom returns a room the caller can read.
func (s *Service) GetRoom(ctx context.Context, roomID, callerID string) (*Room, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(ctx, room.HouseID, callerID, auth.ActionRead); err != nil {
		return nil, err
	}
	return room, nil
}

// ListRooms returns the rooms of a house.
func (s *Service) ListRooms(ctx context.Context, houseID, callerID string) ([]Room, error) {
	if err := s.authz.Authorize(ctx, houseID, callerID, auth.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.ListRooms(ctx, houseID)
}

// DeleteRoom removes a room with its devices. Requires ADMIN.
func (s *Service) DeleteRoom(ctx context.Context, roomID, callerID string) (DeleteResult, error) {
	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return DeleteResult{}, err
	}
	if err := s.authz.Authorize(ctx, room.HouseID, callerID, auth.ActionConfigure); err != nil {
		return DeleteResult{}, err
	}

	res, err := s.repo.DeleteRoom(ctx, roomID)
	if err != nil {
		return DeleteResult{}, err
	}
	s.logger.Info("room deleted", "room_id", roomID, "house_id", room.HouseID,
		"devices", res.Devices, "schedules", res.Schedules)
	return res, nil
}

// DeleteHouse removes a house and everything under it. Owner only.
func (s *Service) DeleteHouse(ctx context.Context, houseID, callerID string) (DeleteResult, error) {
	if err := s.authz.Authorize(ctx, houseID, callerID, auth.ActionDeleteHouse); err != nil {
		return DeleteResult{}, err
	}

	res, err := s.repo.DeleteHouse(ctx, houseID)
	if err != nil {
		return DeleteResult{}, err
	}
	s.logger.Info("house deleted", "house_id", houseID,
		"rooms", res.Rooms, "devices", res.Devices, "members", res.Members)
	return res, nil
}
