// Package sim implements the round-synchronous simulation core on which the
// agreement and commit scenarios run.
//
// The model is deliberately simple so that every run is reproducible. Time
// advances in integer rounds, owned by a single Scheduler. At the start of a
// round, the Scheduler takes every message addressed to that round out of its
// queue, sorts them into per-node inboxes, and steps each node exactly once,
// in the order the nodes were added. A step hands the node's Behavior its
// inbox and collects the messages it wants to send; those are stamped for the
// next round and queued. A message sent in round r is therefore delivered at
// the start of round r+1, never within the same round.
//
// Nodes are state machines wrapped around a Behavior, which is where the
// algorithm lives. A Behavior eventually returns a Decision, a terminal
// verdict such as ATTACK or GLOBAL_COMMIT. The first Decision a node reports
// is final; the Scheduler ignores and logs any attempt to change it. A run
// converges when every node that has not crashed holds a Decision. If the
// round budget runs out first, the run is reported as not converged, with the
// partial trace intact; it is never treated as a crash of the simulation
// itself.
//
// Everything the Scheduler does is recorded in a Trace: sends, deliveries,
// decisions, crashes, and dropped messages. Traces marshal to canonical JSON,
// so two runs of the same scenario with the same seed produce byte-identical
// traces. That property is what the determinism tests pin down.
//
// There is no concurrency in this package. The Scheduler is the only writer
// to the clock, the queue, and the node states, and it steps nodes one at a
// time. Behaviors get interleaving for free and never need locks.
package sim
