// Package config defines the configuration for a simulation run.
//
// Regardless of how a run is started, directly from Go code or from the
// command line, it uses the Config object defined in this package to store
// and forward configuration options: the algorithm variant, the size and
// composition of the roster, the fault schedule, and the round budget. The
// options of one variant are ignored by the others, so a single object
// covers them all.
package config
