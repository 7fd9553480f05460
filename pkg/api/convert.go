package api

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/receipt"
)

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrItemOutOfRange      = errors.New("assignment refers to an item not on the receipt")
	ErrDuplicateAssignment = errors.New("item assigned more than once")
	ErrAssignmentForm      = errors.New("assignment must set exactly one of assignee, shares or split_evenly")
)

var validate = sync.OnceValue(func() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
})

// Validate checks the struct tags of a request message. Field errors are
// flattened into a single ErrInvalidRequest.
func Validate(msg any) error {
	err := validate().Struct(msg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	msgs := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		msgs[i] = fieldMessage(fe)
	}
	return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// ToReceipt converts an API receipt to the domain model.
func ToReceipt(r Receipt) models.Receipt {
	out := models.Receipt{
		Items:      make([]models.LineItem, len(r.Items)),
		Subtotal:   r.Subtotal,
		GrandTotal: r.GrandTotal,
	}
	for i, item := range r.Items {
		qty := item.Quantity
		if qty == 0 {
			qty = 1
		}
		unit := item.UnitPrice
		if unit == 0 && qty == 1 {
			unit = item.LineTotal
		}
		out.Items[i] = models.LineItem{Name: item.Name, Quantity: qty, UnitPrice: unit, LineTotal: item.LineTotal}
	}
	if len(r.Charges) > 0 {
		out.Charges = make([]models.Charge, len(r.Charges))
		for i, c := range r.Charges {
			out.Charges[i] = models.Charge{Name: c.Name, Amount: c.Amount, Percent: c.Percent}
		}
	}
	return out
}

// FromReceipt converts a domain receipt to its API form.
func FromReceipt(r models.Receipt) Receipt {
	out := Receipt{
		Items:      make([]Item, len(r.Items)),
		Subtotal:   r.Subtotal,
		GrandTotal: r.GrandTotal,
	}
	for i, item := range r.Items {
		out.Items[i] = Item{Name: item.Name, Quantity: item.Quantity, UnitPrice: item.UnitPrice, LineTotal: item.LineTotal}
	}
	for _, c := range r.Charges {
		out.Charges = append(out.Charges, Charge{Name: c.Name, Amount: c.Amount, Percent: c.Percent})
	}
	return out
}

// ToParticipants converts participants, generating an id for any that lack one.
func ToParticipants(ps []Participant) []models.Participant {
	out := make([]models.Participant, len(ps))
	for i, p := range ps {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			id = uuid.NewString()
		}
		out[i] = models.Participant{ID: id, DisplayName: strings.TrimSpace(p.Name)}
	}
	return out
}

// FromParticipants converts domain participants to their API form.
func FromParticipants(ps []models.Participant) []Participant {
	out := make([]Participant, len(ps))
	for i, p := range ps {
		out[i] = Participant{ID: p.ID, Name: p.DisplayName}
	}
	return out
}

// ToAssignments lays the API assignments out parallel to the receipt items.
// Items nobody assigned stay nil; the calculator reports them as missing.
func ToAssignments(as []Assignment, items int) ([]models.Assignment, error) {
	out := make([]models.Assignment, items)
	for _, a := range as {
		if a.Item < 0 || a.Item >= items {
			return nil, fmt.Errorf("%w: item %d (receipt has %d)", ErrItemOutOfRange, a.Item, items)
		}
		if out[a.Item] != nil {
			return nil, fmt.Errorf("%w: item %d", ErrDuplicateAssignment, a.Item)
		}
		m, err := toAssignment(a)
		if err != nil {
			return nil, err
		}
		out[a.Item] = m
	}
	return out, nil
}

func toAssignment(a Assignment) (models.Assignment, error) {
	forms := 0
	if a.Assignee != "" {
		forms++
	}
	if len(a.Shares) > 0 {
		forms++
	}
	if len(a.SplitEvenly) > 0 {
		forms++
	}
	if forms != 1 {
		return nil, fmt.Errorf("%w: item %d", ErrAssignmentForm, a.Item)
	}

	switch {
	case a.Assignee != "":
		return models.Single{ParticipantID: a.Assignee}, nil
	case len(a.Shares) > 0:
		shares := make([]models.Share, len(a.Shares))
		for i, s := range a.Shares {
			shares[i] = models.Share{ParticipantID: s.ParticipantID, Amount: s.Amount}
		}
		return models.Shared{Shares: shares}, nil
	default:
		return models.Even{ParticipantIDs: append([]string(nil), a.SplitEvenly...)}, nil
	}
}

// FromAssignments converts the parallel domain slice back to API form,
// skipping unassigned items.
func FromAssignments(as []models.Assignment) []Assignment {
	out := make([]Assignment, 0, len(as))
	for i, a := range as {
		switch a := a.(type) {
		case models.Single:
			out = append(out, Assignment{Item: i, Assignee: a.ParticipantID})
		case models.Shared:
			shares := make([]Share, len(a.Shares))
			for j, s := range a.Shares {
				shares[j] = Share{ParticipantID: s.ParticipantID, Amount: s.Amount}
			}
			out = append(out, Assignment{Item: i, Shares: shares})
		case models.Even:
			out = append(out, Assignment{Item: i, SplitEvenly: append([]string(nil), a.ParticipantIDs...)})
		}
	}
	return out
}

// FromSplits converts allocator output.
func FromSplits(splits []models.PersonSplit) []PersonSplit {
	out := make([]PersonSplit, len(splits))
	for i, s := range splits {
		items := make([]PersonItem, len(s.Items))
		for j, it := range s.Items {
			items[j] = PersonItem{
				Item:         it.Index,
				Name:         it.Name,
				Amount:       it.Amount,
				Shared:       it.Shared,
				SharePercent: it.SharePercent,
			}
		}
		out[i] = PersonSplit{
			ParticipantID: s.ParticipantID,
			Name:          s.DisplayName,
			Items:         items,
			Subtotal:      s.Subtotal,
			Tax:           s.TaxShare,
			Service:       s.ServiceShare,
			Discount:      s.DiscountShare,
			Total:         s.Total,
		}
	}
	return out
}

// FromChargeTotals converts the receipt-level buckets.
func FromChargeTotals(t models.ChargeTotals) ChargeTotals {
	return ChargeTotals{Tax: t.Tax, Service: t.Service, Discount: t.Discount, Other: t.Other}
}

// FromReport converts a reconciliation report.
func FromReport(r receipt.Report) Report {
	out := Report{
		Scenario:     string(r.Scenario),
		Reconciled:   r.Reconciled(),
		ItemsTotal:   r.ItemsTotal,
		ChargesTotal: r.ChargesTotal,
		GrandTotal:   r.GrandTotal,
		TaxableBase:  r.TaxableBase,
		Drift:        r.Drift,
		Problems:     r.Problems,
	}
	for _, d := range r.ItemDiscrepancies {
		out.ItemDiscrepancies = append(out.ItemDiscrepancies, ItemDiscrepancy{
			Item:       d.Index,
			Name:       d.Name,
			Computed:   d.Computed,
			LineTotal:  d.LineTotal,
			Difference: d.Difference,
		})
	}
	for _, rate := range r.Rates {
		out.Rates = append(out.Rates, ChargeRate{Name: rate.Name, Amount: rate.Amount, Percent: rate.Percent})
	}
	return out
}

// FromSession converts a stored session.
func FromSession(s *models.Session) Session {
	out := Session{
		ID:           s.ID,
		Title:        s.Title,
		CurrentStep:  s.CurrentStep,
		Participants: FromParticipants(s.Participants),
		Assignments:  FromAssignments(s.Assignments),
		CreatedAt:    s.CreatedAt,
		ExpiresAt:    s.ExpiresAt,
	}
	if s.Receipt != nil {
		r := FromReceipt(*s.Receipt)
		out.Receipt = &r
	}
	return out
}
