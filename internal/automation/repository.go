package automation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nestwire/nestwire-core/internal/infrastructure/database"
)

// Repository defines auto-off rule and schedule persistence.
type Repository interface {
	// Auto-off rules
	ListEnabledRules(ctx context.Context) ([]AutoOffRule, error)
	GetRule(ctx context.Context, deviceID string, endpointID int) (*AutoOffRule, error)
	UpsertRule(ctx context.Context, rule *AutoOffRule) error
	DeleteRule(ctx context.Context, deviceID string, endpointID int) error

	// Schedules
	DueSchedules(ctx context.Context, now time.Time) ([]Schedule, error)
	GetSchedule(ctx context.Context, id string) (*Schedule, error)
	ListSchedules(ctx context.Context, deviceID string) ([]Schedule, error)
	CreateSchedule(ctx context.Context, s *Schedule) error
	DeleteSchedule(ctx context.Context, id string) error

	// AdvanceSchedule records a successful firing. A zero next disables
	// the schedule.
	AdvanceSchedule(ctx context.Context, id string, next time.Time) error

	// RecordFailure increments failure_count and stores msg, leaving
	// next_run_at and enabled unchanged.
	RecordFailure(ctx context.Context, id, msg string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const ruleColumns = `device_id, endpoint_id, enabled, duration_sec, updated_at`

const scheduleColumns = `id, device_id, endpoint_id, name, enabled, action, schedule_type,
			next_run_at, timezone, failure_count, last_error, created_at`

// ListEnabledRules returns every enabled rule.
func (r *SQLiteRepository) ListEnabledRules(ctx context.Context) ([]AutoOffRule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM auto_off_rules WHERE enabled = 1 ORDER BY device_id, endpoint_id`)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	var rules []AutoOffRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rules: %w", err)
	}
	return rules, nil
}

// GetRule returns ErrRuleNotFound when the endpoint has no rule.
func (r *SQLiteRepository) GetRule(ctx context.Context, deviceID string, endpointID int) (*AutoOffRule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM auto_off_rules WHERE device_id = ? AND endpoint_id = ?`,
		deviceID, endpointID)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying rule: %w", err)
	}
	return rule, nil
}

// UpsertRule inserts or replaces the rule for (DeviceID, EndpointID).
func (r *SQLiteRepository) UpsertRule(ctx context.Context, rule *AutoOffRule) error {
	if rule.UpdatedAt.IsZero() {
		rule.UpdatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO auto_off_rules (`+ruleColumns+`) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (device_id, endpoint_id) DO UPDATE SET
			enabled = excluded.enabled,
			duration_sec = excluded.duration_sec,
			updated_at = excluded.updated_at`,
		rule.DeviceID, rule.EndpointID, boolToInt(rule.Enabled), rule.DurationSec,
		database.FormatTime(rule.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upserting rule %s/%d: %w", rule.DeviceID, rule.EndpointID, err)
	}
	return nil
}

// DeleteRule removes the rule for an endpoint.
func (r *SQLiteRepository) DeleteRule(ctx context.Context, deviceID string, endpointID int) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM auto_off_rules WHERE device_id = ? AND endpoint_id = ?`, deviceID, endpointID)
	if err != nil {
		return fmt.Errorf("deleting rule: %w", err)
	}
	return requireRow(res, ErrRuleNotFound)
}

// DueSchedules returns enabled schedules with next_run_at <= now, oldest
// first.
func (r *SQLiteRepository) DueSchedules(ctx context.Context, now time.Time) ([]Schedule, error) {
	return r.listSchedules(ctx,
		`SELECT `+scheduleColumns+` FROM schedules
		 WHERE enabled = 1 AND next_run_at <= ? ORDER BY next_run_at, id`,
		database.FormatTime(now))
}

// ListSchedules returns all schedules of a device ordered by next run.
func (r *SQLiteRepository) ListSchedules(ctx context.Context, deviceID string) ([]Schedule, error) {
	return r.listSchedules(ctx,
		`SELECT `+scheduleColumns+` FROM schedules WHERE device_id = ? ORDER BY next_run_at, id`,
		deviceID)
}

func (r *SQLiteRepository) listSchedules(ctx context.Context, query string, args ...any) ([]Schedule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying schedules: %w", err)
	}
	defer rows.Close()

	var out []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning schedule: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schedules: %w", err)
	}
	return out, nil
}

// GetSchedule returns ErrScheduleNotFound when id does not exist.
func (r *SQLiteRepository) GetSchedule(ctx context.Context, id string) (*Schedule, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = ?`, id)
	s, err := scanSchedule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying schedule %s: %w", id, err)
	}
	return s, nil
}

// CreateSchedule inserts s.
func (r *SQLiteRepository) CreateSchedule(ctx context.Context, s *Schedule) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO schedules (`+scheduleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.DeviceID, s.EndpointID, s.Name, boolToInt(s.Enabled), s.Action, string(s.Type),
		database.FormatTime(s.NextRunAt), s.Timezone, s.FailureCount, s.LastError,
		database.FormatTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting schedule %s: %w", s.ID, err)
	}
	return nil
}

// DeleteSchedule removes a schedule.
func (r *SQLiteRepository) DeleteSchedule(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting schedule %s: %w", id, err)
	}
	return requireRow(res, ErrScheduleNotFound)
}

// AdvanceSchedule moves next_run_at forward and clears last_error, or
// disables the schedule when next is zero.
func (r *SQLiteRepository) AdvanceSchedule(ctx context.Context, id string, next time.Time) error {
	var (
		res sql.Result
		err error
	)
	if next.IsZero() {
		res, err = r.db.ExecContext(ctx,
			`UPDATE schedules SET enabled = 0, last_error = '' WHERE id = ?`, id)
	} else {
		res, err = r.db.ExecContext(ctx,
			`UPDATE schedules SET next_run_at = ?, last_error = '' WHERE id = ?`,
			database.FormatTime(next), id)
	}
	if err != nil {
		return fmt.Errorf("advancing schedule %s: %w", id, err)
	}
	return requireRow(res, ErrScheduleNotFound)
}

// RecordFailure notes a failed firing.
func (r *SQLiteRepository) RecordFailure(ctx context.Context, id, msg string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE schedules SET failure_count = failure_count + 1, last_error = ? WHERE id = ?`, msg, id)
	if err != nil {
		return fmt.Errorf("recording failure for %s: %w", id, err)
	}
	return requireRow(res, ErrScheduleNotFound)
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*AutoOffRule, error) {
	var (
		rule      AutoOffRule
		enabled   int
		updatedAt string
	)
	if err := row.Scan(&rule.DeviceID, &rule.EndpointID, &enabled, &rule.DurationSec, &updatedAt); err != nil {
		return nil, err
	}
	rule.Enabled = enabled == 1
	var err error
	if rule.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rule, nil
}

func scanSchedule(row rowScanner) (*Schedule, error) {
	var (
		s                    Schedule
		enabled              int
		typ                  string
		nextRunAt, createdAt string
	)
	if err := row.Scan(&s.ID, &s.DeviceID, &s.EndpointID, &s.Name, &enabled, &s.Action, &typ,
		&nextRunAt, &s.Timezone, &s.FailureCount, &s.LastError, &createdAt); err != nil {
		return nil, err
	}
	s.Enabled = enabled == 1
	s.Type = ScheduleType(typ)

	var err error
	if s.NextRunAt, err = database.ParseTime(nextRunAt); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &s, nil
}
