package models

import (
	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/money"
)

// LineItem is a single line on the receipt.
type LineItem struct {
	// Name is the item description as printed (e.g., "Margherita Pizza").
	Name string

	// Quantity is the number of units; always positive.
	Quantity int

	// UnitPrice is the price of one unit.
	UnitPrice money.Money

	// LineTotal is the amount charged for the line. It is authoritative even
	// when it differs from Quantity × UnitPrice.
	LineTotal money.Money
}

// Charge is a named tax, fee or discount line. Positive amounts are charges,
// negative amounts are discounts.
type Charge struct {
	Name   string
	Amount money.Money

	// Percent is informational only; Amount is what gets allocated.
	Percent *decimal.Decimal
}

// Receipt is a parsed receipt handed over by the extraction pipeline.
type Receipt struct {
	Items   []LineItem
	Charges []Charge

	// Subtotal is the printed subtotal, if any. It is never trusted blindly;
	// see ItemsTotal.
	Subtotal money.Money

	// GrandTotal is the final payable amount and the sole reconciliation target.
	GrandTotal money.Money
}

// ItemsTotal sums the line totals.
func (r Receipt) ItemsTotal() money.Money {
	var total money.Money
	for _, item := range r.Items {
		total += item.LineTotal
	}
	return total
}

// ChargesTotal sums all charge and discount amounts.
func (r Receipt) ChargesTotal() money.Money {
	var total money.Money
	for _, c := range r.Charges {
		total += c.Amount
	}
	return total
}

// Participant is a person taking part in the split.
type Participant struct {
	// ID is an opaque identifier, unique within a split.
	ID string

	// DisplayName is shown in breakdowns and summaries.
	DisplayName string
}
