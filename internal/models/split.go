package models

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/money"
)

// PersonItem is one line item as attributed to one person.
type PersonItem struct {
	// Index is the position of the item on the receipt.
	Index int

	// Name is the item description.
	Name string

	// Amount is this person's part of the line total.
	Amount money.Money

	// Shared is true when the item is split with anyone else.
	Shared bool

	// SharePercent is Amount as a percentage of the line total (display only).
	SharePercent decimal.Decimal
}

// PersonSplit is one person's share of a receipt.
// This is the output of the allocation algorithm.
type PersonSplit struct {
	// ParticipantID identifies the person.
	ParticipantID string

	// DisplayName is copied from the participant for convenience.
	DisplayName string

	// Items are the line items attributed to this person with their amounts.
	Items []PersonItem

	// Subtotal is the sum of Items amounts.
	Subtotal money.Money

	// TaxShare, ServiceShare and DiscountShare break down the charges for
	// display. They do not feed into Total.
	TaxShare      money.Money
	ServiceShare  money.Money
	DiscountShare money.Money

	// Total is what this person pays. Totals of all people add up to the
	// receipt's grand total exactly.
	Total money.Money
}

// ChargeTotals are receipt-level charge buckets used for the breakdown.
type ChargeTotals struct {
	Tax      money.Money
	Service  money.Money
	Discount money.Money
	Other    money.Money
}
