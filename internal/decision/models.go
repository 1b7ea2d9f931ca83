// Package decision owns the low-sensitivity side of the data model: the
// eligibility decision record and the validator that fulfills it. Nothing in
// this package ever persists plaintext personal data; decrypted fields live
// only for the duration of a single handler invocation.
package decision

import "time"

// Status tracks the decision record lifecycle. A record is visible as PENDING
// before it is fulfilled and never reverts except by full deletion.
type Status int

const (
	StatusPending   Status = 0
	StatusFulfilled Status = 1
)

// String returns the wire representation used by the status endpoint.
func (s Status) String() string {
	if s == StatusFulfilled {
		return "FULFILLED"
	}
	return "PENDING"
}

// Outcome is the eligibility decision, stored as 0/1 once fulfilled. The value
// is meaningless while the record is PENDING.
type Outcome int

const (
	OutcomeIneligible Outcome = 0
	OutcomeEligible   Outcome = 1
)

// Record is the decision store entry for one submission.
type Record struct {
	ID       string    `json:"id"`
	Status   Status    `json:"status"`
	Decision Outcome   `json:"decision"`
	Created  time.Time `json:"created"`
	Updated  time.Time `json:"updated"`
}
