// Package warroom assembles and runs complete simulation scenarios. It turns a
// Config into a roster with roles, a topology, one behavior per node and a
// loaded scheduler, then runs the lot and packages the outcome as a Result.
//
// The package is the programmatic entry point; the warroom command is a thin
// wrapper around it.
package warroom
