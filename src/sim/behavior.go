package sim

// Decision is the terminal verdict reached by a node. The empty string means
// the node has not decided yet. Algorithm packages define their own values,
// like ATTACK or GLOBAL_COMMIT.
type Decision string

// None is the zero Decision.
const None Decision = ""

// Behavior is the algorithm loaded onto a node. The scheduler calls Step
// exactly once per round, with the messages delivered to the node at the
// start of that round.
//
// Step returns the messages to send, which will be delivered next round, and
// a Decision once the behavior has reached its verdict. Decisions are final;
// the scheduler keeps the first non-empty one and ignores the rest, so
// behaviors may keep returning their verdict on subsequent rounds.
//
// A Step must be deterministic given the behavior's state and its inbox.
// Behaviors modeling randomized faults draw from a seeded source so the
// property still holds for a fixed seed. Returning an error aborts the whole
// run; it is reserved for malformed payloads and broken invariants, not for
// protocol outcomes.
type Behavior interface {
	Step(round int, inbox []*Message) ([]*Message, Decision, error)
}
