// Package location stores houses and rooms and performs their cascading
// deletes.
//
// Only the house and room operations the rest of the core depends on are
// exposed: creation, lookup, listing and deletion. Deleting a room removes
// its devices together with their commands, auto-off rules and schedules.
// Deleting a house removes everything beneath it, memberships included.
package location
