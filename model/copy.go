// model/copy.go
package model

import (
	"errors"
	"fmt"
	"time"
)

type CopyStatus string

const (
	CopyAvailable   CopyStatus = "AVAILABLE"
	CopyRent        CopyStatus = "RENT"
	CopyBooked      CopyStatus = "BOOKED"
	CopyMaintenance CopyStatus = "MAINTENANCE"
	CopyRetired     CopyStatus = "RETIRED"
)

type RetirementCause string

const (
	CauseWorn          RetirementCause = "WORN"
	CauseStolen        RetirementCause = "STOLEN"
	CauseNeverReturned RetirementCause = "NEVER_RETURNED"
)

// ErrInvalidCopyState flags a copy whose retirement fields disagree with its
// status. The state machine is the only mutation path, so hitting this outside
// of it means the record is corrupt.
var ErrInvalidCopyState = errors.New("copy retirement fields inconsistent with status")

// Copy is one physical instance of a Title. A copy enters the library in
// MAINTENANCE and must be activated before it can circulate. RETIRED is
// terminal and requires both a leave date and a cause.
type Copy struct {
	ID        int64            `json:"id"`
	TitleID   int64            `json:"title_id"`
	Status    CopyStatus       `json:"status"`
	JoinedOn  time.Time        `json:"joined_on"`
	LeftOn    *time.Time       `json:"left_on,omitempty"`
	LeftCause *RetirementCause `json:"left_cause,omitempty"`
}

var copyTransitions = map[CopyStatus][]CopyStatus{
	CopyMaintenance: {CopyAvailable},
	CopyAvailable:   {CopyRent, CopyBooked},
	CopyRent:        {CopyAvailable},
	CopyBooked:      {CopyRent, CopyAvailable},
	CopyRetired:     {},
}

// CanTransitionTo reports whether next is a legal status after s. Retirement
// is reachable from every non-retired status but only through Retire, which
// also fills the leave fields.
func (s CopyStatus) CanTransitionTo(next CopyStatus) bool {
	if next == CopyRetired {
		return s != CopyRetired
	}
	for _, t := range copyTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Validate enforces the retirement invariant: LeftOn and LeftCause are both
// set iff the copy is RETIRED. Repositories call this before every write.
func (c *Copy) Validate() error {
	if c.Status == CopyRetired {
		if c.LeftOn == nil || c.LeftCause == nil {
			return ErrInvalidCopyState
		}
		return nil
	}
	if c.LeftOn != nil || c.LeftCause != nil {
		return ErrInvalidCopyState
	}
	return nil
}

// TransitionTo moves the copy to next if the transition is legal.
func (c *Copy) TransitionTo(next CopyStatus) error {
	if next == CopyRetired {
		return fmt.Errorf("retire a copy through Retire, not TransitionTo")
	}
	if !c.Status.CanTransitionTo(next) {
		return fmt.Errorf("illegal copy transition %s -> %s", c.Status, next)
	}
	c.Status = next
	return c.Validate()
}

// Retire marks the copy as permanently out of the library.
func (c *Copy) Retire(on time.Time, cause RetirementCause) error {
	if !c.Status.CanTransitionTo(CopyRetired) {
		return fmt.Errorf("illegal copy transition %s -> %s", c.Status, CopyRetired)
	}
	d := Date(on)
	c.Status = CopyRetired
	c.LeftOn = &d
	c.LeftCause = &cause
	return c.Validate()
}
