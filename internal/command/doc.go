// Package command dispatches user commands to devices and keeps the
// per-device command log.
//
// A dispatch checks that the caller is at least a MEMBER of the device's
// house, writes a PENDING log entry, publishes the composite payload through
// the bridge and then marks the entry SENT or FAILED. There is no device
// acknowledgement protocol, so entries never reach ACKED here.
//
// The log is append-only apart from status transitions and is pruned to a
// configurable number of entries per device.
package command
