// Package automation provides the polling engine that enforces auto-off
// rules and fires schedules for nestwire-core.
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────┐
//	│                  Engine (engine.go)                    │
//	│  Ticker loop, one tick at a time                       │
//	│  ┌──────────────┐    ┌──────────────┐                 │
//	│  │ auto-off pass│    │ schedule pass│                 │
//	│  └──────┬───────┘    └──────┬───────┘                 │
//	│         └────────┬──────────┘                         │
//	│                  ▼                                    │
//	│    Devices (registry) ── Sender (bridge) ── Metrics   │
//	└───────────────────────────────────────────────────────┘
//
// # Auto-off
//
// A rule turns an endpoint off once it has held a non-off value for at
// least DurationSec, measured from the endpoint's last_updated timestamp.
// A duration change therefore applies to the timestamp already stored.
//
// # Schedules
//
// A due schedule sends its action and advances from its previous
// next_run_at (never from now): ONCE disables, DAILY adds one calendar day
// and WEEKLY seven, both in the schedule's timezone. A schedule that cannot
// be executed keeps its next_run_at, gains a failure count and is retried
// on the next tick.
//
// # Thread Safety
//
// Engine ticks never overlap; a tick that would start while another runs is
// skipped. Service is safe for concurrent use.
package automation
