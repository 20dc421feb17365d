package models

// Status is the lifecycle state of a policy request.
type Status string

const (
	StatusReceived  Status = "RECEIVED"
	StatusValidated Status = "VALIDATED"
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// statusTransitions is the full legality table of the lifecycle state machine.
// A status maps to the set of statuses it may move to; terminal statuses map
// to nothing.
var statusTransitions = map[Status]map[Status]bool{
	StatusReceived: {
		StatusValidated: true,
		StatusRejected:  true,
		StatusCancelled: true,
	},
	StatusValidated: {
		StatusPending:   true,
		StatusRejected:  true,
		StatusCancelled: true,
	},
	StatusPending: {
		StatusApproved:  true,
		StatusRejected:  true,
		StatusCancelled: true,
	},
	StatusApproved:  {},
	StatusRejected:  {},
	StatusCancelled: {},
}

// CanTransitionTo reports whether the state machine permits moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	return statusTransitions[s][next]
}

// IsTerminal reports whether s admits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// ParseStatus validates a wire-format status string.
func ParseStatus(raw string) (Status, bool) {
	s := Status(raw)
	_, ok := statusTransitions[s]
	return s, ok
}
