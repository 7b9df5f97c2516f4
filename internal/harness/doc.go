// Package harness runs YAML-defined simulation scenarios for
// conformance testing.
//
// A scenario names an estimate file, pins the seed and iteration
// count, and lists assertions over the simulation result (base cost,
// percentile ranges, sensitivity ordering). Golden files pin the
// canonical input encoding so any drift in the hashed byte form is a
// reviewable diff rather than a silently changed hash.
package harness
