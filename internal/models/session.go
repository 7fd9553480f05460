package models

// Session is an in-progress split: the inputs a user is still editing.
// Results are never stored; they are recomputed from these inputs.
type Session struct {
	// ID is the unique identifier for the session (UUID format).
	ID string

	// Title is the human-readable name, auto-generated from participants when empty.
	Title string

	// CurrentStep is the wizard step the client last reported (1-based).
	CurrentStep int

	// Receipt is nil until the user has supplied one.
	Receipt *Receipt

	// Participants in display order.
	Participants []Participant

	// Assignments holds one entry per receipt item; nil entries are unassigned.
	Assignments []Assignment

	// CreatedAt and ExpiresAt are Unix timestamps.
	CreatedAt int64
	ExpiresAt int64
}
