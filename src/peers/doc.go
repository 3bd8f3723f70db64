// Package peers defines the roster of a simulated network and the
// communication graph laid over it.
//
// A peer is a named entity taking part in a simulation run. Peers are
// identified by small sequential integer IDs chosen by whoever assembles the
// scenario; the IDs double as message addresses. A peer also carries a Role
// tag, telling the algorithm layer whether it acts as a commander, lieutenant,
// coordinator, or participant, and an optional Faulty mark for traitors. When
// a scenario authenticates messages, the peer additionally records the
// hexadecimal form of its public key.
//
// A PeerSet is an ordered collection of peers. The insertion order is
// significant: the scheduler steps nodes in that order, so preserving it is
// what makes runs reproducible. A Topology restricts which pairs of peers can
// exchange messages; edges are bidirectional and fixed before the run starts.
package peers
