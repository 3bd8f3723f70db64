package commit

import (
	"fmt"

	"github.com/mosaicnetworks/warroom/src/sim"
)

// Verdicts reached by the commit protocols.
const (
	DecideCommit sim.Decision = "COMMIT"
	DecideAbort  sim.Decision = "ABORT"
)

func verdict(commit bool) sim.Decision {
	if commit {
		return DecideCommit
	}
	return DecideAbort
}

// PrepareMsg opens the protocol: the coordinator asks every participant to
// vote on the transaction.
type PrepareMsg struct {
	Txn string `json:"txn"`
}

// Kind implements sim.Payload
func (m *PrepareMsg) Kind() string {
	return "PREPARE"
}

// Summary implements sim.Payload
func (m *PrepareMsg) Summary() string {
	return fmt.Sprintf("PREPARE %s", m.Txn)
}

// VoteMsg is a participant's answer to a prepare.
type VoteMsg struct {
	Txn    string `json:"txn"`
	Commit bool   `json:"commit"`
}

// Kind implements sim.Payload
func (m *VoteMsg) Kind() string {
	return "VOTE"
}

// Summary implements sim.Payload
func (m *VoteMsg) Summary() string {
	if m.Commit {
		return fmt.Sprintf("VOTE_COMMIT %s", m.Txn)
	}
	return fmt.Sprintf("VOTE_ABORT %s", m.Txn)
}

// PreCommitMsg announces the tentative commit in the three-phase variant.
type PreCommitMsg struct {
	Txn string `json:"txn"`
}

// Kind implements sim.Payload
func (m *PreCommitMsg) Kind() string {
	return "PRE_COMMIT"
}

// Summary implements sim.Payload
func (m *PreCommitMsg) Summary() string {
	return fmt.Sprintf("PRE_COMMIT %s", m.Txn)
}

// AckMsg acknowledges a precommit.
type AckMsg struct {
	Txn string `json:"txn"`
}

// Kind implements sim.Payload
func (m *AckMsg) Kind() string {
	return "ACK"
}

// Summary implements sim.Payload
func (m *AckMsg) Summary() string {
	return fmt.Sprintf("ACK %s", m.Txn)
}

// DecisionMsg carries the coordinator's global verdict.
type DecisionMsg struct {
	Txn    string `json:"txn"`
	Commit bool   `json:"commit"`
}

// Kind implements sim.Payload
func (m *DecisionMsg) Kind() string {
	if m.Commit {
		return "GLOBAL_COMMIT"
	}
	return "GLOBAL_ABORT"
}

// Summary implements sim.Payload
func (m *DecisionMsg) Summary() string {
	return fmt.Sprintf("%s %s", m.Kind(), m.Txn)
}

// DoneMsg acknowledges the global verdict.
type DoneMsg struct {
	Txn string `json:"txn"`
}

// Kind implements sim.Payload
func (m *DoneMsg) Kind() string {
	return "DONE"
}

// Summary implements sim.Payload
func (m *DoneMsg) Summary() string {
	return fmt.Sprintf("DONE %s", m.Txn)
}
