package calculator

import (
	"fmt"

	"github.com/mmynk/receiptsplit/internal/money"
)

// Divide splits total minor units into parties shares that add up to total
// exactly. Every party gets total/parties; the first total%parties parties,
// in the order given, get one extra unit.
//
// Divide(100, 3) == [34 33 33].
func Divide(total int64, parties int) ([]int64, error) {
	if parties <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPartyCount, parties)
	}
	if total < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeAmount, total)
	}

	n := int64(parties)
	base := total / n
	remainder := total % n

	shares := make([]int64, parties)
	for i := range shares {
		shares[i] = base
		if int64(i) < remainder {
			shares[i]++
		}
	}
	return shares, nil
}

// DivideMoney is Divide for money amounts.
func DivideMoney(total money.Money, parties int) ([]money.Money, error) {
	raw, err := Divide(total.Cents(), parties)
	if err != nil {
		return nil, err
	}
	shares := make([]money.Money, len(raw))
	for i, v := range raw {
		shares[i] = money.Money(v)
	}
	return shares, nil
}
