// Package generals implements the Byzantine Generals agreement scenarios on
// top of the sim package.
//
// The oral-messages variant, OM(m), follows the classical recursive protocol:
// the commander sends its order to every lieutenant, and lieutenants relay
// what they heard to everyone not already on the message's path, m levels
// deep. Each lieutenant files every report under the path it arrived by, and
// at round m+1 resolves the tree bottom-up with majority votes, falling back
// to the default order for missing reports and ties. With n generals the
// protocol withstands m traitors as long as n > 3m.
//
// The signed-messages variant, SM(m), has every general counter-sign the
// orders it relays. A traitor can drop or tamper with a relay, but tampering
// breaks the signature chain and the receiver discards the message, so
// traitors cannot attribute invented orders to loyal generals. Agreement then
// holds for any number of traitors below n-1.
//
// Traitor behavior is pluggable through the Policy interface; the bundled
// policies lie systematically, lie to half the recipients, keep silent, or
// flip coins from a seeded source.
package generals
