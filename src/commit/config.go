package commit

const (
	// DefaultTxn names the transaction when the caller does not.
	DefaultTxn = "tx1"

	// DefaultVoteTimeout is the number of extra rounds the coordinator
	// keeps its collection window open past the earliest round an answer
	// could arrive, for votes and for acks alike.
	DefaultVoteTimeout = 2

	// DefaultDecisionTimeout is the number of rounds without protocol
	// progress after which a participant gives up waiting.
	DefaultDecisionTimeout = 4
)

// CoordinatorConfig parametrizes a coordinator of either variant.
type CoordinatorConfig struct {
	// Txn names the transaction being committed. Empty means DefaultTxn.
	Txn string

	// VoteTimeout is the collection window, in rounds. Zero or negative
	// means DefaultVoteTimeout.
	VoteTimeout int
}

// ParticipantConfig parametrizes a participant of either variant.
type ParticipantConfig struct {
	// VoteAbort makes the participant vote against the transaction.
	VoteAbort bool

	// Delay is the number of rounds the participant sits on the prepare
	// before voting.
	Delay int

	// Timeout is the number of rounds without progress before the
	// participant gives up waiting. Zero or negative means
	// DefaultDecisionTimeout. What giving up means depends on the variant.
	Timeout int
}
