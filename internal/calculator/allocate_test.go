package calculator

import (
	"errors"
	"math/rand"
	"reflect"
	"strconv"
	"sync"
	"testing"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/money"
)

func people(names ...string) []models.Participant {
	out := make([]models.Participant, len(names))
	for i, n := range names {
		out[i] = models.Participant{ID: n, DisplayName: n}
	}
	return out
}

func item(name string, total money.Money) models.LineItem {
	return models.LineItem{Name: name, Quantity: 1, UnitPrice: total, LineTotal: total}
}

func totalsOf(splits []models.PersonSplit) []money.Money {
	out := make([]money.Money, len(splits))
	for i, s := range splits {
		out[i] = s.Total
	}
	return out
}

func TestAllocate(t *testing.T) {
	tests := []struct {
		name         string
		receipt      models.Receipt
		participants []models.Participant
		assignments  []models.Assignment
		wantTotals   []money.Money
		validate     func(t *testing.T, splits []models.PersonSplit)
	}{
		{
			name: "proportional tax divides evenly",
			receipt: models.Receipt{
				Items:      []models.LineItem{item("Steak", 3000), item("Salad", 1000)},
				Charges:    []models.Charge{{Name: "Tax", Amount: 400}},
				Subtotal:   4000,
				GrandTotal: 4400,
			},
			participants: people("Alice", "Bob"),
			assignments:  []models.Assignment{models.Single{ParticipantID: "Alice"}, models.Single{ParticipantID: "Bob"}},
			wantTotals:   []money.Money{3300, 1100},
			validate: func(t *testing.T, splits []models.PersonSplit) {
				if splits[0].TaxShare != 300 || splits[1].TaxShare != 100 {
					t.Errorf("tax shares = %s, %s; want 3.00, 1.00", splits[0].TaxShare, splits[1].TaxShare)
				}
				if splits[0].Subtotal != 3000 || splits[1].Subtotal != 1000 {
					t.Errorf("subtotals = %s, %s; want 30.00, 10.00", splits[0].Subtotal, splits[1].Subtotal)
				}
			},
		},
		{
			name: "no charges, totals equal subtotals",
			receipt: models.Receipt{
				Items:      []models.LineItem{item("Coffee", 1001), item("Tea", 1002)},
				GrandTotal: 2003,
			},
			participants: people("Alice", "Bob"),
			assignments:  []models.Assignment{models.Single{ParticipantID: "Alice"}, models.Single{ParticipantID: "Bob"}},
			wantTotals:   []money.Money{1001, 1002},
		},
		{
			name: "flat fee leaves a cent for the first participant",
			receipt: models.Receipt{
				Items:      []models.LineItem{item("A", 1000), item("B", 1000), item("C", 1000)},
				Charges:    []models.Charge{{Name: "Booking fee", Amount: 100}},
				GrandTotal: 3100,
			},
			participants: people("Alice", "Bob", "Charlie"),
			assignments: []models.Assignment{
				models.Single{ParticipantID: "Alice"},
				models.Single{ParticipantID: "Bob"},
				models.Single{ParticipantID: "Charlie"},
			},
			wantTotals: []money.Money{1034, 1033, 1033},
			validate: func(t *testing.T, splits []models.PersonSplit) {
				for _, s := range splits {
					if s.TaxShare != 0 || s.ServiceShare != 0 {
						t.Errorf("%s: unclassified fee showed up as tax/service", s.ParticipantID)
					}
				}
			},
		},
		{
			name: "even split of a shared item",
			receipt: models.Receipt{
				Items:      []models.LineItem{item("Nachos", 100)},
				GrandTotal: 100,
			},
			participants: people("Alice", "Bob", "Charlie"),
			assignments:  []models.Assignment{models.Even{ParticipantIDs: []string{"Alice", "Bob", "Charlie"}}},
			wantTotals:   []money.Money{34, 33, 33},
			validate: func(t *testing.T, splits []models.PersonSplit) {
				first := splits[0].Items[0]
				if !first.Shared || first.Amount != 34 || first.SharePercent.String() != "34" {
					t.Errorf("Alice item = %+v, want shared 0.34 at 34%%", first)
				}
			},
		},
		{
			name: "custom shares with tax",
			receipt: models.Receipt{
				Items:      []models.LineItem{item("Pizza", 2000), item("Wine", 3000)},
				Charges:    []models.Charge{{Name: "GST", Amount: 450}, {Name: "Service charge", Amount: 500}},
				GrandTotal: 5950,
			},
			participants: people("Alice", "Bob"),
			assignments: []models.Assignment{
				models.Shared{Shares: []models.Share{{ParticipantID: "Alice", Amount: 1500}, {ParticipantID: "Bob", Amount: 500}}},
				models.Single{ParticipantID: "Bob"},
			},
			// Alice 15/50, Bob 35/50 of 59.50
			wantTotals: []money.Money{1785, 4165},
			validate: func(t *testing.T, splits []models.PersonSplit) {
				if splits[0].TaxShare+splits[1].TaxShare != 450 {
					t.Errorf("tax shares do not add up to 4.50")
				}
				if splits[0].ServiceShare+splits[1].ServiceShare != 500 {
					t.Errorf("service shares do not add up to 5.00")
				}
				if len(splits[1].Items) != 2 {
					t.Fatalf("Bob items = %d, want 2", len(splits[1].Items))
				}
				if splits[1].Items[0].SharePercent.String() != "25" {
					t.Errorf("Bob pizza percent = %s, want 25", splits[1].Items[0].SharePercent)
				}
			},
		},
		{
			name: "discount lowers totals below subtotals",
			receipt: models.Receipt{
				Items:      []models.LineItem{item("Burger", 1500), item("Fries", 500)},
				Charges:    []models.Charge{{Name: "Lunch discount", Amount: -400}},
				GrandTotal: 1600,
			},
			participants: people("Alice", "Bob"),
			assignments:  []models.Assignment{models.Single{ParticipantID: "Alice"}, models.Single{ParticipantID: "Bob"}},
			wantTotals:   []money.Money{1200, 400},
			validate: func(t *testing.T, splits []models.PersonSplit) {
				if splits[0].DiscountShare != -300 || splits[1].DiscountShare != -100 {
					t.Errorf("discount shares = %s, %s; want -3.00, -1.00", splits[0].DiscountShare, splits[1].DiscountShare)
				}
			},
		},
		{
			name: "grand total drifts from items plus charges",
			receipt: models.Receipt{
				Items:      []models.LineItem{item("A", 1000), item("B", 2000)},
				Charges:    []models.Charge{{Name: "Tax", Amount: 300}},
				GrandTotal: 3301,
			},
			participants: people("Alice", "Bob"),
			assignments:  []models.Assignment{models.Single{ParticipantID: "Alice"}, models.Single{ParticipantID: "Bob"}},
			wantTotals:   []money.Money{1101, 2200},
		},
		{
			name: "participant without items pays nothing",
			receipt: models.Receipt{
				Items:      []models.LineItem{item("A", 999)},
				Charges:    []models.Charge{{Name: "Tax", Amount: 1}},
				GrandTotal: 1000,
			},
			participants: people("Zed", "Alice"),
			assignments:  []models.Assignment{models.Single{ParticipantID: "Alice"}},
			wantTotals:   []money.Money{0, 1000},
			validate: func(t *testing.T, splits []models.PersonSplit) {
				if len(splits[0].Items) != 0 {
					t.Errorf("Zed has items: %+v", splits[0].Items)
				}
			},
		},
		{
			name: "zero-value items fall back to even split",
			receipt: models.Receipt{
				Items:      []models.LineItem{item("Water", 0)},
				Charges:    []models.Charge{{Name: "Cover charge", Amount: 500}},
				GrandTotal: 500,
			},
			participants: people("Alice", "Bob", "Charlie"),
			assignments:  []models.Assignment{models.Single{ParticipantID: "Bob"}},
			wantTotals:   []money.Money{167, 167, 166},
		},
		{
			name: "share within one cent tolerance",
			receipt: models.Receipt{
				Items:      []models.LineItem{item("Cake", 1000)},
				GrandTotal: 1000,
			},
			participants: people("Alice", "Bob"),
			assignments: []models.Assignment{
				models.Shared{Shares: []models.Share{{ParticipantID: "Alice", Amount: 333}, {ParticipantID: "Bob", Amount: 666}}},
			},
			wantTotals: []money.Money{334, 666},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			splits, err := Allocate(tt.receipt, tt.participants, tt.assignments)
			if err != nil {
				t.Fatalf("Allocate() error = %v", err)
			}
			if len(splits) != len(tt.participants) {
				t.Fatalf("got %d splits, want %d", len(splits), len(tt.participants))
			}
			for i, s := range splits {
				if s.ParticipantID != tt.participants[i].ID {
					t.Errorf("split %d is for %q, want %q", i, s.ParticipantID, tt.participants[i].ID)
				}
			}
			if got := totalsOf(splits); !reflect.DeepEqual(got, tt.wantTotals) {
				t.Errorf("totals = %v, want %v", got, tt.wantTotals)
			}
			if sum := money.Sum(totalsOf(splits)...); sum != tt.receipt.GrandTotal {
				t.Errorf("totals sum to %s, grand total %s", sum, tt.receipt.GrandTotal)
			}
			if tt.validate != nil {
				tt.validate(t, splits)
			}
		})
	}
}

func TestAllocateErrors(t *testing.T) {
	receipt := models.Receipt{
		Items:      []models.LineItem{item("Pizza", 2000), item("Beer", 800)},
		GrandTotal: 3000,
	}
	alice := models.Single{ParticipantID: "Alice"}

	tests := []struct {
		name         string
		receipt      models.Receipt
		participants []models.Participant
		assignments  []models.Assignment
		wantErr      error
	}{
		{"no participants", receipt, nil, []models.Assignment{alice, alice}, ErrNoParticipants},
		{"empty participant id", receipt, []models.Participant{{DisplayName: "Nobody"}}, []models.Assignment{alice, alice}, ErrInvalidParticipant},
		{"duplicate participant", receipt, people("Alice", "Alice"), []models.Assignment{alice, alice}, ErrInvalidParticipant},
		{"missing assignment", receipt, people("Alice"), []models.Assignment{alice, nil}, ErrMissingAssignment},
		{"too few assignments", receipt, people("Alice"), []models.Assignment{alice}, ErrAssignmentCount},
		{"unknown participant", receipt, people("Alice"), []models.Assignment{alice, models.Single{ParticipantID: "Mallory"}}, ErrUnknownParticipant},
		{"unknown in even split", receipt, people("Alice"), []models.Assignment{alice, models.Even{ParticipantIDs: []string{"Alice", "Bob"}}}, ErrUnknownParticipant},
		{"empty even split", receipt, people("Alice"), []models.Assignment{alice, models.Even{}}, ErrInvalidAssignment},
		{"empty shares", receipt, people("Alice"), []models.Assignment{alice, models.Shared{}}, ErrInvalidAssignment},
		{"duplicate in shares", receipt, people("Alice"), []models.Assignment{alice, models.Shared{Shares: []models.Share{{ParticipantID: "Alice", Amount: 400}, {ParticipantID: "Alice", Amount: 400}}}}, ErrInvalidAssignment},
		{"negative share", receipt, people("Alice", "Bob"), []models.Assignment{alice, models.Shared{Shares: []models.Share{{ParticipantID: "Alice", Amount: 900}, {ParticipantID: "Bob", Amount: -100}}}}, ErrNegativeAmount},
		{"pointer variant", receipt, people("Alice"), []models.Assignment{alice, &models.Single{ParticipantID: "Alice"}}, ErrInvalidAssignment},
		{"negative grand total", models.Receipt{Items: receipt.Items, GrandTotal: -1}, people("Alice"), []models.Assignment{alice, alice}, ErrNegativeAmount},
		{"zero quantity", models.Receipt{Items: []models.LineItem{{Name: "Ghost", Quantity: 0, LineTotal: 100}}, GrandTotal: 100}, people("Alice"), []models.Assignment{alice}, ErrInvalidItem},
		{"negative line total", models.Receipt{Items: []models.LineItem{{Name: "Refund", Quantity: 1, LineTotal: -100}}, GrandTotal: 0}, people("Alice"), []models.Assignment{alice}, ErrNegativeAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			splits, err := Allocate(tt.receipt, tt.participants, tt.assignments)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Allocate() error = %v, want %v", err, tt.wantErr)
			}
			if splits != nil {
				t.Errorf("Allocate() returned partial result on error: %+v", splits)
			}
		})
	}
}

func TestAllocateShareMismatch(t *testing.T) {
	receipt := models.Receipt{
		Items:      []models.LineItem{item("Pizza", 2000)},
		GrandTotal: 2000,
	}
	assignments := []models.Assignment{
		models.Shared{Shares: []models.Share{{ParticipantID: "Alice", Amount: 1000}, {ParticipantID: "Bob", Amount: 950}}},
	}

	_, err := Allocate(receipt, people("Alice", "Bob"), assignments)
	var mismatch *ShareMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Allocate() error = %v, want ShareMismatchError", err)
	}
	if mismatch.Item != 0 || mismatch.Expected != 2000 || mismatch.Got != 1950 {
		t.Errorf("mismatch = %+v", mismatch)
	}
	if mismatch.Discrepancy() != 50 {
		t.Errorf("Discrepancy() = %s, want 0.50", mismatch.Discrepancy())
	}
	want := "item 0 (Pizza): shares add up to 19.50 but line total is 20.00 (short by 0.50)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestAllocateSingleAssignee(t *testing.T) {
	receipt := models.Receipt{
		Items:      []models.LineItem{item("A", 1234), item("B", 5678), item("C", 1)},
		Charges:    []models.Charge{{Name: "Tax", Amount: 777}, {Name: "Tip", Amount: 1000}},
		GrandTotal: 8690,
	}
	bob := models.Single{ParticipantID: "Bob"}
	splits, err := Allocate(receipt, people("Alice", "Bob", "Charlie"), []models.Assignment{bob, bob, bob})
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if got := totalsOf(splits); !reflect.DeepEqual(got, []money.Money{0, 8690, 0}) {
		t.Errorf("totals = %v, want [0 86.90 0]", got)
	}
	if splits[1].TaxShare != 777 {
		t.Errorf("Bob tax share = %s, want 7.77", splits[1].TaxShare)
	}
}

func TestAllocateRemainderSkipsZeroSubtotal(t *testing.T) {
	// 2¢ split evenly over Bob, Charlie, Alice gives Bob and Charlie 1¢ each
	// and Alice nothing; the extra cent of the 3¢ total goes to Bob, the first
	// participant with a subtotal, not to Alice.
	receipt := models.Receipt{
		Items:      []models.LineItem{item("Mint", 2)},
		Charges:    []models.Charge{{Name: "Fee", Amount: 1}},
		GrandTotal: 3,
	}
	even := models.Even{ParticipantIDs: []string{"Bob", "Charlie", "Alice"}}
	splits, err := Allocate(receipt, people("Alice", "Bob", "Charlie"), []models.Assignment{even})
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if got := totalsOf(splits); !reflect.DeepEqual(got, []money.Money{0, 2, 1}) {
		t.Errorf("totals = %v, want [0.00 0.02 0.01]", got)
	}
}

// randomBill builds a valid bill from rng for property tests.
func randomBill(rng *rand.Rand) (models.Receipt, []models.Participant, []models.Assignment) {
	n := 1 + rng.Intn(6)
	ids := make([]string, n)
	for i := range ids {
		ids[i] = "p" + strconv.Itoa(i)
	}
	participants := people(ids...)

	var receipt models.Receipt
	var assignments []models.Assignment
	for i := 0; i < 1+rng.Intn(10); i++ {
		total := money.Money(rng.Intn(10_000))
		receipt.Items = append(receipt.Items, item("item"+strconv.Itoa(i), total))
		switch rng.Intn(3) {
		case 0:
			assignments = append(assignments, models.Single{ParticipantID: ids[rng.Intn(n)]})
		case 1:
			perm := rng.Perm(n)[:1+rng.Intn(n)]
			even := models.Even{}
			for _, p := range perm {
				even.ParticipantIDs = append(even.ParticipantIDs, ids[p])
			}
			assignments = append(assignments, even)
		default:
			perm := rng.Perm(n)[:1+rng.Intn(n)]
			amounts, _ := DivideMoney(total, len(perm))
			shared := models.Shared{}
			for j, p := range perm {
				shared.Shares = append(shared.Shares, models.Share{ParticipantID: ids[p], Amount: amounts[len(amounts)-1-j]})
			}
			assignments = append(assignments, shared)
		}
	}
	receipt.Charges = []models.Charge{
		{Name: "Tax", Amount: money.Money(rng.Intn(1_000))},
		{Name: "Discount", Amount: -money.Money(rng.Intn(500))},
	}
	receipt.GrandTotal = receipt.ItemsTotal() + receipt.ChargesTotal() + money.Money(rng.Intn(5)-2)
	if receipt.GrandTotal < 0 {
		receipt.GrandTotal = 0
	}
	return receipt, participants, assignments
}

func TestAllocateConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(2024))
	for run := 0; run < 1000; run++ {
		receipt, participants, assignments := randomBill(rng)
		splits, err := Allocate(receipt, participants, assignments)
		if err != nil {
			t.Fatalf("run %d: Allocate() error = %v", run, err)
		}
		if sum := money.Sum(totalsOf(splits)...); sum != receipt.GrandTotal {
			t.Fatalf("run %d: totals %v sum to %s, grand total %s", run, totalsOf(splits), sum, receipt.GrandTotal)
		}
		for _, s := range splits {
			var items money.Money
			for _, it := range s.Items {
				items += it.Amount
			}
			if items != s.Subtotal {
				t.Fatalf("run %d: %s items add to %s, subtotal %s", run, s.ParticipantID, items, s.Subtotal)
			}
		}
	}
}

func TestAllocateMonotonic(t *testing.T) {
	participants := people("Alice", "Bob", "Charlie")
	prev := money.Money(-1)
	for bob := money.Money(0); bob <= 5000; bob += 37 {
		// The grand total stays fixed so only Bob's proportion changes.
		receipt := models.Receipt{
			Items:      []models.LineItem{item("A", 1000), item("B", bob), item("C", 2000)},
			Charges:    []models.Charge{{Name: "Tax", Amount: 333}},
			GrandTotal: 9999,
		}
		splits, err := Allocate(receipt, participants, []models.Assignment{
			models.Single{ParticipantID: "Alice"},
			models.Single{ParticipantID: "Bob"},
			models.Single{ParticipantID: "Charlie"},
		})
		if err != nil {
			t.Fatalf("Allocate() error = %v", err)
		}
		if splits[1].Total < prev {
			t.Fatalf("Bob's total dropped from %s to %s at subtotal %s", prev, splits[1].Total, bob)
		}
		prev = splits[1].Total
	}
}

func TestAllocateDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	receipt, participants, assignments := randomBill(rng)

	want, err := Allocate(receipt, participants, assignments)
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}

	var wg sync.WaitGroup
	results := make([][]models.PersonSplit, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Allocate(receipt, participants, assignments)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if !reflect.DeepEqual(got, want) {
			t.Errorf("run %d differs from first run", i)
		}
	}
}

func TestMustReconcilePanics(t *testing.T) {
	defer func() {
		r := recover()
		rerr, ok := r.(*ReconciliationError)
		if !ok {
			t.Fatalf("recover() = %v, want *ReconciliationError", r)
		}
		if rerr.Allocated != 999 || rerr.GrandTotal != 1000 {
			t.Errorf("ReconciliationError = %+v", rerr)
		}
	}()
	mustReconcile(1000, []money.Money{500, 499})
}
