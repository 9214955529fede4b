// Package auth decides what a user may do inside a house.
//
// The model has three totally ordered roles, MEMBER < ADMIN < OWNER. A
// house's owner is implicitly OWNER and never has a home_members row; every
// other user needs an ACCEPTED membership. Checker.CheckAccess is the only
// gate and has no side effects. Callers pick the threshold through the
// Action policy table rather than naming roles directly.
//
// Identity is out of scope: callers arrive as an already-authenticated user
// id string.
package auth
