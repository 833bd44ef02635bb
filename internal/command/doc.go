// Package command implements the actuator command queue for AgroLink Core.
//
// Commands move through a small state machine:
//
//	pending ───▶ dispatched ───▶ acknowledged
//	   │              └────────▶ expired
//	   └────▶ superseded
//
// Devices cannot accept inbound connections, so delivery is pull-based:
// an operator enqueues a command, the device picks it up on its next
// poll, and optionally acknowledges execution. The guarantee is
// at-least-once-dispatched, best-effort-acknowledged.
//
// Every transition is a conditional UPDATE on the current status. That
// single idea carries all the concurrency invariants: concurrent polls
// dispatch each command exactly once, duplicate acks are no-ops, a
// supersession and a poll racing for the same pending command resolve to
// exactly one winner, and the expiry sweep can run at any time without
// clobbering a fresh ack. No process-wide locks are involved.
//
// Each enqueue also writes an immutable ActuatorLog entry. Logging is
// optimistic (at issue time, before confirmed execution) because
// device-side confirmation is not guaranteed; the audit trail records
// intent, and command status records outcome.
package command
