package calculator

import (
	"fmt"
	"math/bits"

	"github.com/mmynk/receiptsplit/internal/money"
)

// Prorate distributes total across weights proportionally, in minor units,
// so that the shares add up to total exactly.
//
// Each share starts at floor(total × weight / Σweights), computed with a
// single 128-bit multiply and divide. The units lost to flooring are then
// handed out one each to the first participants, in order, whose weight is
// non-zero. A zero weight therefore always yields a zero share, unless every
// weight is zero, in which case total is split with Divide.
func Prorate(total money.Money, weights []money.Money) ([]money.Money, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: no weights", ErrInvalidPartyCount)
	}
	if total < 0 {
		return nil, fmt.Errorf("%w: total %s", ErrNegativeAmount, total)
	}

	var sum uint64
	for i, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("%w: weight %d is %s", ErrNegativeAmount, i, w)
		}
		sum += uint64(w)
	}
	if sum == 0 {
		return DivideMoney(total, len(weights))
	}

	shares := make([]money.Money, len(weights))
	var allocated money.Money
	for i, w := range weights {
		hi, lo := bits.Mul64(uint64(total), uint64(w))
		// w <= sum, so the quotient is at most total and fits in 64 bits.
		q, _ := bits.Div64(hi, lo, sum)
		shares[i] = money.Money(q)
		allocated += shares[i]
	}

	remainder := total - allocated
	for i := 0; remainder > 0 && i < len(weights); i++ {
		if weights[i] == 0 {
			continue
		}
		shares[i]++
		remainder--
	}
	return shares, nil
}

// prorateSigned prorates a possibly negative amount by its magnitude and
// restores the sign on every share.
func prorateSigned(amount money.Money, weights []money.Money) ([]money.Money, error) {
	shares, err := Prorate(amount.Abs(), weights)
	if err != nil {
		return nil, err
	}
	if amount < 0 {
		for i := range shares {
			shares[i] = -shares[i]
		}
	}
	return shares, nil
}
