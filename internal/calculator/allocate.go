package calculator

import (
	"fmt"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/money"
)

// shareTolerance is how far custom shares may drift from the line total.
const shareTolerance money.Money = 1

// Allocate computes what each participant pays for a receipt.
//
// assignments[i] is the assignment for receipt.Items[i]. The result has one
// PersonSplit per participant, in the same order as participants.
//
// Algorithm:
//   - Each participant's item subtotal is the sum of what they were assigned
//     (whole line totals for Single, their share for Shared/Even).
//   - Totals are the grand total prorated by item subtotal, so tax, fees,
//     discounts and any upstream rounding drift are absorbed in one division:
//     person_total = grand_total × person_subtotal / Σ subtotals.
//   - The cents lost to flooring go one each to the earliest participants
//     with a non-zero subtotal. If nobody has a subtotal, the grand total is
//     split evenly.
//   - Tax/service/discount shares are prorated the same way for display.
//
// Any malformed input fails the whole call; no partial result is returned.
func Allocate(receipt models.Receipt, participants []models.Participant, assignments []models.Assignment) ([]models.PersonSplit, error) {
	index, err := indexParticipants(participants)
	if err != nil {
		return nil, err
	}
	if receipt.GrandTotal < 0 {
		return nil, fmt.Errorf("%w: grand total %s", ErrNegativeAmount, receipt.GrandTotal)
	}
	if len(assignments) != len(receipt.Items) {
		return nil, fmt.Errorf("%w: %d items, %d assignments", ErrAssignmentCount, len(receipt.Items), len(assignments))
	}

	splits := make([]models.PersonSplit, len(participants))
	subtotals := make([]money.Money, len(participants))
	for i, p := range participants {
		splits[i] = models.PersonSplit{ParticipantID: p.ID, DisplayName: p.DisplayName}
	}

	// Step 1: item subtotals
	for i, item := range receipt.Items {
		shares, err := resolveAssignment(i, item, assignments[i], index)
		if err != nil {
			return nil, err
		}
		shared := len(shares) > 1
		for _, s := range shares {
			p := index[s.ParticipantID]
			subtotals[p] += s.Amount
			if shared && s.Amount == 0 {
				continue
			}
			splits[p].Items = append(splits[p].Items, models.PersonItem{
				Index:        i,
				Name:         item.Name,
				Amount:       s.Amount,
				Shared:       shared,
				SharePercent: money.Percent(s.Amount, item.LineTotal),
			})
		}
	}

	// Step 3: prorate the grand total
	totals, err := Prorate(receipt.GrandTotal, subtotals)
	if err != nil {
		return nil, err
	}

	// Step 4: the remainder pass guarantees this; anything else is a bug
	mustReconcile(receipt.GrandTotal, totals)

	// Step 2: display-only charge breakdown
	buckets := SumCharges(receipt.Charges)
	taxShares, err := prorateSigned(buckets.Tax, subtotals)
	if err != nil {
		return nil, err
	}
	serviceShares, err := prorateSigned(buckets.Service, subtotals)
	if err != nil {
		return nil, err
	}
	discountShares, err := prorateSigned(buckets.Discount, subtotals)
	if err != nil {
		return nil, err
	}

	// Step 5: assemble
	for i := range splits {
		splits[i].Subtotal = subtotals[i]
		splits[i].TaxShare = taxShares[i]
		splits[i].ServiceShare = serviceShares[i]
		splits[i].DiscountShare = discountShares[i]
		splits[i].Total = totals[i]
	}
	return splits, nil
}

// indexParticipants maps participant IDs to their positions and rejects
// empty or duplicate IDs.
func indexParticipants(participants []models.Participant) (map[string]int, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	index := make(map[string]int, len(participants))
	for i, p := range participants {
		if p.ID == "" {
			return nil, fmt.Errorf("%w: participant %d has no id", ErrInvalidParticipant, i)
		}
		if _, dup := index[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidParticipant, p.ID)
		}
		index[p.ID] = i
	}
	return index, nil
}

// resolveAssignment validates one item's assignment and expands it into
// explicit shares.
func resolveAssignment(i int, item models.LineItem, a models.Assignment, index map[string]int) ([]models.Share, error) {
	if item.Quantity <= 0 {
		return nil, fmt.Errorf("%w: item %d (%s) has quantity %d", ErrInvalidItem, i, item.Name, item.Quantity)
	}
	if item.LineTotal < 0 {
		return nil, fmt.Errorf("%w: item %d (%s) has line total %s", ErrNegativeAmount, i, item.Name, item.LineTotal)
	}
	if err := checkParticipants(i, item, a, index); err != nil {
		return nil, err
	}

	switch a := a.(type) {
	case models.Single:
		return []models.Share{{ParticipantID: a.ParticipantID, Amount: item.LineTotal}}, nil

	case models.Even:
		amounts, err := DivideMoney(item.LineTotal, len(a.ParticipantIDs))
		if err != nil {
			return nil, fmt.Errorf("item %d (%s): %w", i, item.Name, err)
		}
		shares := make([]models.Share, len(amounts))
		for j, id := range a.ParticipantIDs {
			shares[j] = models.Share{ParticipantID: id, Amount: amounts[j]}
		}
		return shares, nil

	case models.Shared:
		var sum money.Money
		for _, s := range a.Shares {
			if s.Amount < 0 {
				return nil, fmt.Errorf("%w: item %d (%s) share for %q is %s",
					ErrNegativeAmount, i, item.Name, s.ParticipantID, s.Amount)
			}
			sum += s.Amount
		}
		if diff := (item.LineTotal - sum).Abs(); diff > shareTolerance {
			return nil, &ShareMismatchError{Item: i, Name: item.Name, Expected: item.LineTotal, Got: sum}
		}
		return a.Shares, nil

	default:
		// checkParticipants has already rejected nil and foreign variants.
		panic(fmt.Sprintf("unhandled assignment type %T", a))
	}
}

// checkParticipants verifies the assignment variant and that every
// participant it references exists and appears only once.
func checkParticipants(i int, item models.LineItem, a models.Assignment, index map[string]int) error {
	switch a.(type) {
	case nil:
		return fmt.Errorf("%w: item %d (%s)", ErrMissingAssignment, i, item.Name)
	case models.Single, models.Shared, models.Even:
	default:
		return fmt.Errorf("%w: item %d (%s) has assignment type %T", ErrInvalidAssignment, i, item.Name, a)
	}

	ids := models.ParticipantIDs(a)
	if len(ids) == 0 {
		return fmt.Errorf("%w: item %d (%s) is assigned to nobody", ErrInvalidAssignment, i, item.Name)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := index[id]; !ok {
			return fmt.Errorf("%w: item %d (%s) references %q", ErrUnknownParticipant, i, item.Name, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: item %d (%s) lists %q twice", ErrInvalidAssignment, i, item.Name, id)
		}
		seen[id] = true
	}
	return nil
}

func mustReconcile(grandTotal money.Money, totals []money.Money) {
	if allocated := money.Sum(totals...); allocated != grandTotal {
		panic(&ReconciliationError{GrandTotal: grandTotal, Allocated: allocated})
	}
}
