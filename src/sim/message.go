package sim

import "fmt"

// Broadcast is the reserved destination id that expands to all the sender's
// neighbors when the message is queued. Real peer ids start at 1.
const Broadcast uint32 = 0

// Payload is the algorithm-defined content of a Message. Payloads are opaque
// to the scheduler; it only asks them to describe themselves for the trace.
type Payload interface {
	// Kind names the payload type, like ORDER or PREPARE.
	Kind() string

	// Summary renders the payload in one short line for traces and logs.
	Summary() string
}

// Message is the unit of communication between nodes. Behaviors create
// messages during a step and hand them to the scheduler, which stamps the
// delivery round when it queues them. A queued message is never mutated.
type Message struct {
	From    uint32
	To      uint32
	Round   int
	Payload Payload
}

// NewMessage ...
func NewMessage(from, to uint32, payload Payload) *Message {
	return &Message{
		From:    from,
		To:      to,
		Payload: payload,
	}
}

// String ...
func (m *Message) String() string {
	return fmt.Sprintf("%d->%d %s", m.From, m.To, m.Payload.Summary())
}
