// Package api defines the JSON messages of the receiptsplit.v1.SplitService
// Connect API and their conversion to the domain models.
//
// Money fields are encoded as JSON numbers with two decimals and accept
// either numbers or strings on input.
package api

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/money"
)

// Item is a receipt line item.
type Item struct {
	Name string `json:"name" validate:"required"`
	// Quantity defaults to 1 when omitted.
	Quantity  int         `json:"quantity,omitempty" validate:"gte=0"`
	UnitPrice money.Money `json:"unit_price,omitempty"`
	LineTotal money.Money `json:"line_total" validate:"gte=0"`
}

// Charge is a tax, fee or discount line. Discounts have negative amounts.
type Charge struct {
	Name    string           `json:"name" validate:"required"`
	Amount  money.Money      `json:"amount"`
	Percent *decimal.Decimal `json:"percent,omitempty"`
}

// Receipt is a parsed receipt.
type Receipt struct {
	Items      []Item      `json:"items" validate:"dive"`
	Charges    []Charge    `json:"charges,omitempty" validate:"dive"`
	Subtotal   money.Money `json:"subtotal,omitempty" validate:"gte=0"`
	GrandTotal money.Money `json:"grand_total" validate:"gte=0"`
}

// Participant is a person in the split. ID is generated when omitted.
type Participant struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name" validate:"required"`
}

// Share is an explicit amount of a shared item.
type Share struct {
	ParticipantID string      `json:"participant_id" validate:"required"`
	Amount        money.Money `json:"amount" validate:"gte=0"`
}

// Assignment says who pays for receipt item Item. Exactly one of Assignee,
// Shares or SplitEvenly must be set.
type Assignment struct {
	Item        int      `json:"item" validate:"gte=0"`
	Assignee    string   `json:"assignee,omitempty"`
	Shares      []Share  `json:"shares,omitempty" validate:"dive"`
	SplitEvenly []string `json:"split_evenly,omitempty" validate:"dive,required"`
}

// PersonItem is one item on a person's breakdown.
type PersonItem struct {
	Item         int             `json:"item"`
	Name         string          `json:"name"`
	Amount       money.Money     `json:"amount"`
	Shared       bool            `json:"shared,omitempty"`
	SharePercent decimal.Decimal `json:"share_percent"`
}

// PersonSplit is what one participant owes.
type PersonSplit struct {
	ParticipantID string       `json:"participant_id"`
	Name          string       `json:"name"`
	Items         []PersonItem `json:"items"`
	Subtotal      money.Money  `json:"subtotal"`
	Tax           money.Money  `json:"tax"`
	Service       money.Money  `json:"service"`
	Discount      money.Money  `json:"discount"`
	Total         money.Money  `json:"total"`
}

// ChargeTotals are the receipt-level charge buckets.
type ChargeTotals struct {
	Tax      money.Money `json:"tax"`
	Service  money.Money `json:"service"`
	Discount money.Money `json:"discount"`
	Other    money.Money `json:"other"`
}

// ItemDiscrepancy is a line whose quantity × unit price differs from its total.
type ItemDiscrepancy struct {
	Item       int         `json:"item"`
	Name       string      `json:"name"`
	Computed   money.Money `json:"computed"`
	LineTotal  money.Money `json:"line_total"`
	Difference money.Money `json:"difference"`
}

// ChargeRate is a charge as a percentage of the taxable base.
type ChargeRate struct {
	Name    string          `json:"name"`
	Amount  money.Money     `json:"amount"`
	Percent decimal.Decimal `json:"percent"`
}

// Report explains how the receipt's numbers fit together.
type Report struct {
	Scenario          string            `json:"scenario"`
	Reconciled        bool              `json:"reconciled"`
	ItemsTotal        money.Money       `json:"items_total"`
	ChargesTotal      money.Money       `json:"charges_total"`
	GrandTotal        money.Money       `json:"grand_total"`
	TaxableBase       money.Money       `json:"taxable_base"`
	Drift             money.Money       `json:"drift"`
	ItemDiscrepancies []ItemDiscrepancy `json:"item_discrepancies,omitempty"`
	Rates             []ChargeRate      `json:"rates,omitempty"`
	Problems          []string          `json:"problems,omitempty"`
}

// CalculateRequest asks for a stateless split.
type CalculateRequest struct {
	Receipt      Receipt       `json:"receipt"`
	Participants []Participant `json:"participants" validate:"required,min=1,dive"`
	Assignments  []Assignment  `json:"assignments" validate:"dive"`
	// Currency is an ISO 4217 code used for the text summary (default USD).
	Currency string `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	// WithSummary adds a plain-text breakdown to the response.
	WithSummary bool `json:"with_summary,omitempty"`
}

// CalculateResponse is the result of a split.
type CalculateResponse struct {
	Splits       []PersonSplit `json:"splits"`
	ChargeTotals ChargeTotals  `json:"charge_totals"`
	GrandTotal   money.Money   `json:"grand_total"`
	Report       Report        `json:"report"`
	Summary      string        `json:"summary,omitempty"`
}

// CheckReceiptRequest asks for a reconciliation report only.
type CheckReceiptRequest struct {
	Receipt Receipt `json:"receipt"`
}

// CheckReceiptResponse carries the report.
type CheckReceiptResponse struct {
	Report Report `json:"report"`
}

// Session is an in-progress split.
type Session struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	CurrentStep  int           `json:"current_step"`
	Receipt      *Receipt      `json:"receipt,omitempty"`
	Participants []Participant `json:"participants"`
	Assignments  []Assignment  `json:"assignments"`
	CreatedAt    int64         `json:"created_at"`
	ExpiresAt    int64         `json:"expires_at"`
}

// CreateSessionRequest starts a session.
type CreateSessionRequest struct {
	Title string `json:"title,omitempty" validate:"max=200"`
}

// CreateSessionResponse returns the new session and the bearer token that
// grants access to it.
type CreateSessionResponse struct {
	Session Session `json:"session"`
	Token   string  `json:"token"`
}

// GetSessionRequest reads the session bound to the request token.
type GetSessionRequest struct{}

// GetSessionResponse carries the session.
type GetSessionResponse struct {
	Session Session `json:"session"`
}

// UpdateSessionRequest replaces the editable state of the session.
type UpdateSessionRequest struct {
	Title        string        `json:"title,omitempty" validate:"max=200"`
	CurrentStep  int           `json:"current_step" validate:"gte=0"`
	Receipt      *Receipt      `json:"receipt,omitempty"`
	Participants []Participant `json:"participants" validate:"dive"`
	Assignments  []Assignment  `json:"assignments" validate:"dive"`
}

// UpdateSessionResponse carries the stored session.
type UpdateSessionResponse struct {
	Session Session `json:"session"`
}

// CalculateSessionRequest splits the stored session state.
type CalculateSessionRequest struct {
	Currency    string `json:"currency,omitempty" validate:"omitempty,len=3,alpha"`
	WithSummary bool   `json:"with_summary,omitempty"`
}

// DeleteSessionRequest removes the session bound to the request token.
type DeleteSessionRequest struct{}

// DeleteSessionResponse is empty.
type DeleteSessionResponse struct{}
