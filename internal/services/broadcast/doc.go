// Package broadcast forwards one reference message to every known user and
// group.
//
// A run walks a fresh read of the user set and then of the group set,
// forwarding the reference message to each member in turn. Deliveries are
// sequential and paced. Members the platform reports as permanently
// unreachable are forgotten as the run goes; for groups any final failure
// removes the group.
//
// # Rate limits
//
// When the platform mandates a wait, the controller sleeps for it and retries
// that member exactly once. A failed retry is classified again but never
// retried.
//
// # Concurrency
//
// A Controller runs at most one broadcast at a time. Run returns ErrBusy
// while another run is in progress. There is no checkpointing: a new run
// starts from the current membership set.
package broadcast
