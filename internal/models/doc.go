// Package models defines the core domain models for receiptsplit.
//
// # Inputs
//
// The calculator consumes three things, all supplied fresh on every call:
//   - Receipt: line items, named charges/discounts and the authoritative grand total
//   - Participant: the people splitting the receipt, in display order
//   - Assignment: exactly one per line item, saying who pays for it
//
// # Outputs
//
//   - PersonSplit: one record per participant, in participant order
//
// # Sessions
//
// Session holds the same inputs while a bill is being edited. It lives in an
// external store (see internal/storage); the calculator never reads or writes it.
//
// All monetary fields are money.Money (integer minor units).
package models
