package calculator

import (
	"strings"

	"github.com/mmynk/receiptsplit/internal/models"
)

// ChargeKind is the display bucket a receipt charge falls into.
type ChargeKind int

const (
	ChargeOther ChargeKind = iota
	ChargeTax
	ChargeService
	ChargeDiscount
)

func (k ChargeKind) String() string {
	switch k {
	case ChargeTax:
		return "tax"
	case ChargeService:
		return "service"
	case ChargeDiscount:
		return "discount"
	default:
		return "other"
	}
}

var (
	taxKeywords      = []string{"tax", "gst", "vat"}
	serviceKeywords  = []string{"service", "charge"}
	discountKeywords = []string{"discount", "promo", "coupon"}
)

// ClassifyCharge buckets a charge by case-insensitive keyword match on its
// name. Negative amounts that match nothing else count as discounts.
// The bucket only affects the breakdown, never what anyone pays.
func ClassifyCharge(c models.Charge) ChargeKind {
	name := strings.ToLower(c.Name)
	switch {
	case containsAny(name, taxKeywords):
		return ChargeTax
	case containsAny(name, serviceKeywords):
		return ChargeService
	case containsAny(name, discountKeywords), c.Amount < 0:
		return ChargeDiscount
	default:
		return ChargeOther
	}
}

// SumCharges totals the receipt's charges per bucket.
func SumCharges(charges []models.Charge) models.ChargeTotals {
	var totals models.ChargeTotals
	for _, c := range charges {
		switch ClassifyCharge(c) {
		case ChargeTax:
			totals.Tax += c.Amount
		case ChargeService:
			totals.Service += c.Amount
		case ChargeDiscount:
			totals.Discount += c.Amount
		default:
			totals.Other += c.Amount
		}
	}
	return totals
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
