package main

import (
	"database/sql"

	"github.com/nestwire/nestwire-core/internal/auth"
	"github.com/nestwire/nestwire-core/internal/automation"
	"github.com/nestwire/nestwire-core/internal/command"
	"github.com/nestwire/nestwire-core/internal/device"
	"github.com/nestwire/nestwire-core/internal/infrastructure/config"
	"github.com/nestwire/nestwire-core/internal/infrastructure/logging"
	"github.com/nestwire/nestwire-core/internal/location"
)

// services is the access-checked surface for a caller-facing transport.
// The daemon itself only drives the bridge and the automation engine, so
// run does not build it.
type services struct {
	Locations  *location.Service
	Members    *auth.MembershipService
	Devices    *device.Service
	Commands   *command.Service
	Automation *automation.Service
}

// newServices builds the user-facing services over db. metrics may be nil.
func newServices(cfg *config.Config, db *sql.DB, registry *device.Registry, sender command.Sender, metrics command.Metrics, log *logging.Logger) *services {
	members := auth.NewSQLiteRepository(db)
	checker := auth.NewChecker(members)

	locations := location.NewService(location.NewSQLiteRepository(db), checker)
	locations.SetLogger(log.Component("locations"))

	return &services{
		Locations: locations,
		Members:   auth.NewMembershipService(members, checker),
		Devices:   device.NewService(registry, checker),
		Commands: command.NewService(command.Config{
			Repo:         command.NewSQLiteRepository(db),
			Devices:      registry,
			Sender:       sender,
			Authz:        checker,
			Metrics:      metrics,
			Logger:       log.Component("commands"),
			HistoryLimit: cfg.Commands.HistoryLimit,
		}),
		Automation: automation.NewService(
			automation.NewSQLiteRepository(db), registry, checker, cfg.Automation.DefaultTimezone),
	}
}
