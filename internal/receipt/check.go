// Package receipt inspects parsed receipts before they are split.
//
// Check explains how a receipt's numbers fit together (tax-inclusive or
// tax-exclusive pricing, per-line mismatches, implied charge rates). It never
// blocks a split: the calculator always reconciles to the grand total.
package receipt

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/money"
)

// tolerance absorbs one cent of upstream rounding.
const tolerance money.Money = 1

// Scenario describes how item prices relate to the grand total.
type Scenario string

const (
	// ScenarioTaxExclusive: items + charges = grand total.
	ScenarioTaxExclusive Scenario = "tax_exclusive"
	// ScenarioTaxInclusive: items already include the charges.
	ScenarioTaxInclusive Scenario = "tax_inclusive"
	// ScenarioNoTaxes: no charges and items = grand total.
	ScenarioNoTaxes Scenario = "no_taxes"
	// ScenarioUnreconciled: the numbers fit neither pricing model.
	ScenarioUnreconciled Scenario = "unreconciled"
)

// ItemDiscrepancy is a line whose quantity × unit price differs from its line total.
type ItemDiscrepancy struct {
	Index      int
	Name       string
	Computed   money.Money
	LineTotal  money.Money
	Difference money.Money
}

// ChargeRate is a charge expressed as a percentage of the taxable base.
type ChargeRate struct {
	Name    string
	Amount  money.Money
	Percent decimal.Decimal
}

// Report is the result of Check.
type Report struct {
	Scenario     Scenario
	ItemsTotal   money.Money
	ChargesTotal money.Money
	GrandTotal   money.Money

	// TaxableBase is the amount charges are levied on, when known.
	TaxableBase money.Money

	// Drift is GrandTotal − (ItemsTotal + ChargesTotal).
	Drift money.Money

	ItemDiscrepancies []ItemDiscrepancy
	Rates             []ChargeRate

	// Problems are human-readable explanations for an unreconciled receipt.
	Problems []string
}

// Reconciled reports whether the receipt fits a known pricing model.
func (r Report) Reconciled() bool {
	return r.Scenario != ScenarioUnreconciled
}

// Check works out the pricing scenario of r.
func Check(r models.Receipt) Report {
	rep := Report{
		ItemsTotal:   r.ItemsTotal(),
		ChargesTotal: r.ChargesTotal(),
		GrandTotal:   r.GrandTotal,
	}
	rep.Drift = rep.GrandTotal - rep.ItemsTotal - rep.ChargesTotal
	rep.ItemDiscrepancies = itemDiscrepancies(r.Items)

	if r.GrandTotal <= 0 {
		rep.Scenario = ScenarioUnreconciled
		rep.Problems = append(rep.Problems, "grand total is missing; it is the final amount payable and is required")
		return rep
	}

	rep.Scenario, rep.TaxableBase, rep.Problems = scenario(r.Subtotal, rep.ItemsTotal, rep.ChargesTotal, rep.GrandTotal)
	if len(rep.ItemDiscrepancies) > 0 && !rep.Reconciled() {
		rep.Problems = append(rep.Problems,
			fmt.Sprintf("%d item(s) have quantity × unit price different from their line total", len(rep.ItemDiscrepancies)))
	}
	rep.Rates = rates(r.Charges, rep.Scenario, rep.TaxableBase, rep.ChargesTotal)
	return rep
}

func scenario(subtotal, items, charges, grand money.Money) (Scenario, money.Money, []string) {
	if subtotal > 0 {
		var problems []string
		if diff := (items - subtotal).Abs(); diff > tolerance {
			problems = append(problems, fmt.Sprintf(
				"items total (%s) does not match printed subtotal (%s); difference %s", items, subtotal, diff))
		}
		if diff := (subtotal + charges - grand).Abs(); diff > tolerance {
			problems = append(problems, fmt.Sprintf(
				"subtotal %s + charges %s = %s but grand total is %s; difference %s",
				subtotal, charges, subtotal+charges, grand, diff))
		}
		if len(problems) > 0 {
			return ScenarioUnreconciled, subtotal, problems
		}
		return ScenarioTaxExclusive, subtotal, nil
	}

	if charges == 0 {
		if diff := (items - grand).Abs(); diff > tolerance {
			return ScenarioUnreconciled, 0, []string{fmt.Sprintf(
				"items total (%s) does not match grand total (%s) and there are no charges; difference %s", items, grand, diff)}
		}
		return ScenarioNoTaxes, grand, nil
	}

	inclusiveDiff := (items - grand).Abs()
	base := grand - charges
	exclusiveDiff := (items - base).Abs()
	switch {
	case inclusiveDiff <= tolerance:
		return ScenarioTaxInclusive, grand, nil
	case exclusiveDiff <= tolerance && base >= 0:
		return ScenarioTaxExclusive, base, nil
	default:
		return ScenarioUnreconciled, 0, []string{
			fmt.Sprintf("tax-inclusive: items (%s) should equal grand total (%s); difference %s", items, grand, inclusiveDiff),
			fmt.Sprintf("tax-exclusive: items (%s) should equal grand total minus charges (%s); difference %s", items, base, exclusiveDiff),
		}
	}
}

func itemDiscrepancies(items []models.LineItem) []ItemDiscrepancy {
	var out []ItemDiscrepancy
	for i, item := range items {
		computed := item.UnitPrice * money.Money(item.Quantity)
		if diff := item.LineTotal - computed; diff.Abs() > tolerance {
			out = append(out, ItemDiscrepancy{
				Index:      i,
				Name:       item.Name,
				Computed:   computed,
				LineTotal:  item.LineTotal,
				Difference: diff,
			})
		}
	}
	return out
}

// rates expresses each charge as a percentage of the pre-charge amount.
// For tax-inclusive receipts that amount is the base minus the charges.
func rates(charges []models.Charge, sc Scenario, base, chargesTotal money.Money) []ChargeRate {
	if chargesTotal == 0 || base <= 0 || sc == ScenarioUnreconciled {
		return nil
	}
	if sc == ScenarioTaxInclusive {
		base -= chargesTotal
	}
	out := make([]ChargeRate, len(charges))
	for i, c := range charges {
		out[i] = ChargeRate{Name: c.Name, Amount: c.Amount}
		if base > 0 {
			out[i].Percent = money.Percent(c.Amount, base)
		}
	}
	return out
}
