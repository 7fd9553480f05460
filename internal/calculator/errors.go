package calculator

import (
	"errors"
	"fmt"

	"github.com/mmynk/receiptsplit/internal/money"
)

// Precondition violations. Callers get these wrapped with the offending
// item or participant; test with errors.Is.
var (
	ErrInvalidPartyCount  = errors.New("party count must be positive")
	ErrNegativeAmount     = errors.New("amount must not be negative")
	ErrNoParticipants     = errors.New("must have at least one participant")
	ErrInvalidParticipant = errors.New("invalid participant")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrMissingAssignment  = errors.New("item has no assignment")
	ErrAssignmentCount    = errors.New("assignment count does not match item count")
	ErrInvalidAssignment  = errors.New("invalid assignment")
	ErrInvalidItem        = errors.New("invalid item")
)

// ShareMismatchError reports a shared item whose custom amounts do not add
// up to the item's line total. It is the one input error expected to come
// from a user, so it carries enough detail to prompt for a correction.
type ShareMismatchError struct {
	Item     int
	Name     string
	Expected money.Money
	Got      money.Money
}

// Discrepancy is Expected minus Got: positive when shares fall short.
func (e *ShareMismatchError) Discrepancy() money.Money {
	return e.Expected - e.Got
}

func (e *ShareMismatchError) Error() string {
	d := e.Discrepancy()
	direction := "short"
	if d < 0 {
		direction = "over"
	}
	return fmt.Sprintf("item %d (%s): shares add up to %s but line total is %s (%s by %s)",
		e.Item, e.Name, e.Got, e.Expected, direction, d.Abs())
}

// ReconciliationError means the computed totals do not add up to the grand
// total. It indicates a bug in the allocator and is raised with panic.
type ReconciliationError struct {
	GrandTotal money.Money
	Allocated  money.Money
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("reconciliation failed: allocated %s, grand total %s", e.Allocated, e.GrandTotal)
}
