// Package keys implements the public key cryptography used by the
// authenticated agreement scenario.
//
// In the signed-messages variant of the generals problem, every peer owns a
// key-pair and counter-signs the orders it relays, so a traitor cannot forge
// what a loyal general said. The private key is secret but the public key is
// shared through the roster so that other nodes can verify signatures.
//
// We use elliptic curve cryptography (ECDSA) with the secp256k1 curve, the
// curve used by Bitcoin and Ethereum. Simulation runs normally derive keys
// from the run's seed so that traces are reproducible.
package keys
