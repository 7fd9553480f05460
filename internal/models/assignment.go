package models

import "github.com/mmynk/receiptsplit/internal/money"

// Assignment says who pays for one line item. It is a closed union of
// Single, Shared and Even; no other type can satisfy it.
type Assignment interface {
	isAssignment()
}

// Single assigns the whole line item to one participant.
type Single struct {
	ParticipantID string
}

// Share is one participant's portion of a shared line item.
type Share struct {
	ParticipantID string
	Amount        money.Money
}

// Shared splits a line item into explicit amounts. The amounts must add up
// to the item's line total (within one minor unit) before allocation.
type Shared struct {
	Shares []Share
}

// Even marks a line item for equal division among the listed participants.
// The calculator turns it into a Shared with the fair divider, so earlier
// participants in the list absorb any leftover cents.
type Even struct {
	ParticipantIDs []string
}

func (Single) isAssignment() {}
func (Shared) isAssignment() {}
func (Even) isAssignment()   {}

// ParticipantIDs lists the participants referenced by an assignment, in order.
func ParticipantIDs(a Assignment) []string {
	switch a := a.(type) {
	case Single:
		return []string{a.ParticipantID}
	case Shared:
		ids := make([]string, len(a.Shares))
		for i, s := range a.Shares {
			ids[i] = s.ParticipantID
		}
		return ids
	case Even:
		return append([]string(nil), a.ParticipantIDs...)
	default:
		return nil
	}
}
