package sim

import (
	"strconv"

	"github.com/mosaicnetworks/warroom/src/common"
)

// roundQueue buffers undelivered messages, bucketed by delivery round. It
// replaces the network in the round-synchronous model: messages stamped for
// round r sit in the bucket for r until the scheduler pops the whole bucket
// at the start of that round. Within a bucket, insertion order is preserved,
// which delivery depends on for reproducibility.
type roundQueue struct {
	name    string
	next    int
	buckets [][]*Message
}

func newRoundQueue(name string) *roundQueue {
	return &roundQueue{
		name:    name,
		buckets: [][]*Message{},
	}
}

// Push adds a message to the bucket for the given round. Pushing behind the
// cursor means the message was stamped for a round that was already
// delivered, which only a broken caller can produce.
func (q *roundQueue) Push(round int, msg *Message) error {
	if round < q.next {
		return common.NewSimErr(q.name, common.InvalidMessage, strconv.Itoa(round))
	}

	for len(q.buckets) <= round-q.next {
		q.buckets = append(q.buckets, []*Message{})
	}

	pos := round - q.next
	q.buckets[pos] = append(q.buckets[pos], msg)

	return nil
}

// Pop returns the bucket for the given round and advances the cursor past it.
// Rounds must be popped in order, without gaps.
func (q *roundQueue) Pop(round int) ([]*Message, error) {
	if round != q.next {
		return nil, common.NewSimErr(q.name, common.InvalidMessage, strconv.Itoa(round))
	}

	res := []*Message{}
	if len(q.buckets) > 0 {
		res = q.buckets[0]
		q.buckets = q.buckets[1:]
	}

	q.next++

	return res, nil
}

// Pending returns the number of buffered messages.
func (q *roundQueue) Pending() int {
	n := 0
	for _, bucket := range q.buckets {
		n += len(bucket)
	}
	return n
}
