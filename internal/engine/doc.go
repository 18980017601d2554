// Package engine implements the recurring-notification core: a job
// registry with daily and interval triggers, a single-goroutine dispatch
// loop, the per-day prompt tracker and the reminder escalator.
//
// Timing enters only through the Clock interface, so trigger evaluation
// and reminder thresholds are deterministic under test. All shared state
// is owned by one Engine instance; there are no package-level globals.
package engine
