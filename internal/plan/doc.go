// Package plan computes the reconciliation plan between two store
// snapshots.
//
// Planning is pure: given the same snapshots and settings it produces
// the same plan, and nothing is read or written while it runs. Copies
// come first, then deletes, then skips, each group sorted by destination
// key, so plans diff cleanly across runs.
package plan
