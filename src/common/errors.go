package common

import "fmt"

// SimErrType ...
type SimErrType uint32

const (
	// InvalidMessage signals a message that cannot be queued: nil payload,
	// missing sender, or a delivery round behind the clock.
	InvalidMessage SimErrType = iota
	// UnknownNode signals a node id that is not part of the roster.
	UnknownNode
	// InsufficientNodes signals a roster too small for the requested
	// algorithm, like n <= 3m for oral-message agreement.
	InsufficientNodes
	// Timeout signals that the round budget ran out before every live node
	// reached a decision. It is reported, not fatal.
	Timeout
	// Disconnected ...
	Disconnected
)

// SimErr ...
type SimErr struct {
	component string
	errType   SimErrType
	info      string
}

// NewSimErr ...
func NewSimErr(component string, errType SimErrType, info string) SimErr {
	return SimErr{
		component: component,
		errType:   errType,
		info:      info,
	}
}

// Error ...
func (e SimErr) Error() string {
	m := ""
	switch e.errType {
	case InvalidMessage:
		m = "Invalid Message"
	case UnknownNode:
		m = "Unknown Node"
	case InsufficientNodes:
		m = "Insufficient Nodes"
	case Timeout:
		m = "Timeout"
	case Disconnected:
		m = "Disconnected"
	}

	return fmt.Sprintf("%s, %s, %s", e.component, e.info, m)
}

// IsSim checks that an error is of type SimErr and that it's code matches the
// provided SimErr code.
func IsSim(err error, t SimErrType) bool {
	simErr, ok := err.(SimErr)
	return ok && simErr.errType == t
}
