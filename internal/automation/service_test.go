package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nestwire/nestwire-core/internal/apperr"
	"github.com/nestwire/nestwire-core/internal/auth"
	"github.com/nestwire/nestwire-core/internal/device"
	"github.com/nestwire/nestwire-core/internal/infrastructure/database/dbtest"
)

func setupService(t *testing.T) (*Service, *fixture) {
	t.Helper()
	f := setupEngine(t)
	dbtest.SeedMember(t, f.db, "h1", "admin", "ADMIN", "ACCEPTED")
	dbtest.SeedMember(t, f.db, "h1", "member", "MEMBER", "ACCEPTED")
	svc := NewService(f.repo, f.devices, auth.NewChecker(auth.NewSQLiteRepository(f.db)), "Asia/Ho_Chi_Minh")
	svc.now = func() time.Time { return dbtest.Epoch }
	return svc, f
}

func TestService_AutoOff(t *testing.T) {
	svc, f := setupService(t)
	ctx := context.Background()

	got, err := svc.GetAutoOff(ctx, f.dev.ID, 1, "member")
	if err != nil {
		t.Fatalf("GetAutoOff() error = %v", err)
	}
	if got.Enabled || got.DurationSec != 0 {
		t.Errorf("default rule = %+v, want disabled with zero duration", got)
	}

	if _, err := svc.SetAutoOff(ctx, f.dev.ID, 1, true, 300, "member"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("SetAutoOff(member) error = %v, want forbidden", err)
	}
	if _, err := svc.SetAutoOff(ctx, f.dev.ID, 1, true, 0, "admin"); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("SetAutoOff(zero duration) error = %v, want ErrInvalidRule", err)
	}
	if _, err := svc.SetAutoOff(ctx, f.dev.ID, 9, true, 300, "admin"); !errors.Is(err, device.ErrEndpointNotFound) {
		t.Errorf("SetAutoOff(missing endpoint) error = %v, want ErrEndpointNotFound", err)
	}
	if _, err := svc.SetAutoOff(ctx, "nope", 1, true, 300, "admin"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("SetAutoOff(missing device) error = %v, want not found", err)
	}

	if _, err := svc.SetAutoOff(ctx, f.dev.ID, 1, true, 300, "admin"); err != nil {
		t.Fatalf("SetAutoOff() error = %v", err)
	}
	if _, err := svc.SetAutoOff(ctx, f.dev.ID, 1, true, 120, "owner"); err != nil {
		t.Fatalf("SetAutoOff(update) error = %v", err)
	}
	got, err = svc.GetAutoOff(ctx, f.dev.ID, 1, "member")
	if err != nil {
		t.Fatalf("GetAutoOff() error = %v", err)
	}
	if !got.Enabled || got.DurationSec != 120 {
		t.Errorf("rule = %+v, want enabled 120s", got)
	}
	if n := dbtest.Count(t, f.db, "auto_off_rules", ""); n != 1 {
		t.Errorf("auto_off_rules rows = %d, want 1", n)
	}

	if _, err := svc.GetAutoOff(ctx, f.dev.ID, 1, "stranger"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("GetAutoOff(stranger) error = %v, want forbidden", err)
	}
}

func TestService_Schedules(t *testing.T) {
	svc, f := setupService(t)
	ctx := context.Background()

	newSchedule := func() *Schedule {
		return &Schedule{
			DeviceID: f.dev.ID, EndpointID: 1, Name: "Wake", Enabled: true,
			Action: `{"command":"TURN_ON"}`, Type: ScheduleDaily,
			NextRunAt: dbtest.Epoch.Add(time.Hour),
		}
	}

	if err := svc.CreateSchedule(ctx, newSchedule(), "member"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("CreateSchedule(member) error = %v, want forbidden", err)
	}
	bad := newSchedule()
	bad.Action = `{"command":"SET_VALUE","payload":"high"}`
	if err := svc.CreateSchedule(ctx, bad, "admin"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("CreateSchedule(bad payload) error = %v, want validation", err)
	}

	s := newSchedule()
	if err := svc.CreateSchedule(ctx, s, "admin"); err != nil {
		t.Fatalf("CreateSchedule() error = %v", err)
	}
	if s.ID == "" || s.Timezone != "Asia/Ho_Chi_Minh" || !s.CreatedAt.Equal(dbtest.Epoch) {
		t.Errorf("created schedule = %+v", s)
	}

	list, err := svc.ListSchedules(ctx, f.dev.ID, "member")
	if err != nil {
		t.Fatalf("ListSchedules() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != s.ID || list[0].Timezone != "Asia/Ho_Chi_Minh" {
		t.Errorf("ListSchedules() = %+v", list)
	}

	if err := svc.DeleteSchedule(ctx, s.ID, "member"); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("DeleteSchedule(member) error = %v, want forbidden", err)
	}
	if err := svc.DeleteSchedule(ctx, s.ID, "admin"); err != nil {
		t.Fatalf("DeleteSchedule() error = %v", err)
	}
	if err := svc.DeleteSchedule(ctx, s.ID, "admin"); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("DeleteSchedule(again) error = %v, want ErrScheduleNotFound", err)
	}
}

// Deleting the device removes its rules and schedules.
func TestRepository_CascadeWithDevice(t *testing.T) {
	f := setupEngine(t)
	f.addRule(t, 1, 60)
	f.addSchedule(t, "Wake", ScheduleDaily, `{"command":"TURN_ON"}`, dbtest.Epoch)

	if err := f.devices.DeleteDevice(context.Background(), f.dev.ID); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if n := dbtest.Count(t, f.db, "auto_off_rules", ""); n != 0 {
		t.Errorf("auto_off_rules rows = %d, want 0", n)
	}
	if n := dbtest.Count(t, f.db, "schedules", ""); n != 0 {
		t.Errorf("schedules rows = %d, want 0", n)
	}
}
