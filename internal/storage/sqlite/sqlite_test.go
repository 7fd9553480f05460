package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func dinnerSession() *models.Session {
	pct := decimal.RequireFromString("8.875")
	return &models.Session{
		CurrentStep: 3,
		Receipt: &models.Receipt{
			Items: []models.LineItem{
				{Name: "Steak", Quantity: 1, UnitPrice: 3000, LineTotal: 3000},
				{Name: "Wine", Quantity: 2, UnitPrice: 1200, LineTotal: 2400},
				{Name: "Dessert", Quantity: 1, UnitPrice: 900, LineTotal: 900},
				{Name: "Bread", Quantity: 1, UnitPrice: 0, LineTotal: 0},
			},
			Charges: []models.Charge{
				{Name: "Sales Tax", Amount: 559, Percent: &pct},
				{Name: "Coupon", Amount: -500},
			},
			Subtotal:   6300,
			GrandTotal: 6359,
		},
		Participants: []models.Participant{
			{ID: "c", DisplayName: "Charlie"},
			{ID: "d", DisplayName: "Diana"},
		},
		Assignments: []models.Assignment{
			models.Single{ParticipantID: "c"},
			models.Shared{Shares: []models.Share{{ParticipantID: "c", Amount: 1000}, {ParticipantID: "d", Amount: 1400}}},
			models.Even{ParticipantIDs: []string{"d", "c"}},
			nil,
		},
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	}
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateSession generates ID and title", func(t *testing.T) {
		sess := &models.Session{
			Participants: []models.Participant{{ID: "a", DisplayName: "Alice"}, {ID: "b", DisplayName: "Bob"}},
		}
		if err := store.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if sess.ID == "" {
			t.Error("Expected session ID to be generated")
		}
		if sess.Title != "Split with Alice, Bob" {
			t.Errorf("Title = %q, want %q", sess.Title, "Split with Alice, Bob")
		}
		if sess.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}

		got, err := store.GetSession(ctx, sess.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got.Receipt != nil || got.Assignments != nil {
			t.Errorf("expected no receipt or assignments, got %+v", got)
		}
	})

	t.Run("GetSession round-trips the full state", func(t *testing.T) {
		original := dinnerSession()
		original.Title = "Anniversary"
		if err := store.CreateSession(ctx, original); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}

		got, err := store.GetSession(ctx, original.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got.Title != "Anniversary" || got.CurrentStep != 3 {
			t.Errorf("header = %q step %d", got.Title, got.CurrentStep)
		}
		if !reflect.DeepEqual(got.Participants, original.Participants) {
			t.Errorf("Participants = %+v, want %+v", got.Participants, original.Participants)
		}
		if !reflect.DeepEqual(got.Receipt.Items, original.Receipt.Items) {
			t.Errorf("Items = %+v, want %+v", got.Receipt.Items, original.Receipt.Items)
		}
		if got.Receipt.GrandTotal != 6359 || got.Receipt.Subtotal != 6300 {
			t.Errorf("totals = %s / %s", got.Receipt.Subtotal, got.Receipt.GrandTotal)
		}
		if len(got.Receipt.Charges) != 2 || got.Receipt.Charges[1].Amount != -500 || got.Receipt.Charges[1].Percent != nil {
			t.Errorf("Charges = %+v", got.Receipt.Charges)
		}
		if p := got.Receipt.Charges[0].Percent; p == nil || p.String() != "8.875" {
			t.Errorf("tax percent = %v, want 8.875", p)
		}
		if !reflect.DeepEqual(got.Assignments, original.Assignments) {
			t.Errorf("Assignments = %#v, want %#v", got.Assignments, original.Assignments)
		}
	})

	t.Run("UpdateSession replaces state", func(t *testing.T) {
		sess := dinnerSession()
		if err := store.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}

		sess.Title = ""
		sess.CurrentStep = 4
		sess.Participants = append(sess.Participants,
			models.Participant{ID: "e", DisplayName: "Eve"},
			models.Participant{ID: "f", DisplayName: "Frank"})
		sess.Receipt.Items = sess.Receipt.Items[:2]
		sess.Receipt.Charges = nil
		sess.Assignments = []models.Assignment{nil, models.Even{ParticipantIDs: []string{"c", "d", "e", "f"}}}
		if err := store.UpdateSession(ctx, sess); err != nil {
			t.Fatalf("UpdateSession failed: %v", err)
		}

		got, err := store.GetSession(ctx, sess.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got.Title != "Split with Charlie, Diana and 2 others" {
			t.Errorf("Title = %q", got.Title)
		}
		if got.CurrentStep != 4 || len(got.Participants) != 4 || len(got.Receipt.Items) != 2 || len(got.Receipt.Charges) != 0 {
			t.Errorf("updated session = %+v", got)
		}
		if !reflect.DeepEqual(got.Assignments, sess.Assignments) {
			t.Errorf("Assignments = %#v, want %#v", got.Assignments, sess.Assignments)
		}
	})

	t.Run("UpdateSession unknown session", func(t *testing.T) {
		err := store.UpdateSession(ctx, &models.Session{ID: "missing"})
		if !errors.Is(err, storage.ErrSessionNotFound) {
			t.Errorf("UpdateSession error = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("DeleteSession", func(t *testing.T) {
		sess := dinnerSession()
		if err := store.CreateSession(ctx, sess); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if err := store.DeleteSession(ctx, sess.ID); err != nil {
			t.Fatalf("DeleteSession failed: %v", err)
		}
		if _, err := store.GetSession(ctx, sess.ID); !errors.Is(err, storage.ErrSessionNotFound) {
			t.Errorf("GetSession after delete error = %v, want ErrSessionNotFound", err)
		}
		if err := store.DeleteSession(ctx, sess.ID); !errors.Is(err, storage.ErrSessionNotFound) {
			t.Errorf("second DeleteSession error = %v, want ErrSessionNotFound", err)
		}

		var orphans int
		if err := store.db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM assignment_members WHERE session_id = ?", sess.ID).Scan(&orphans); err != nil {
			t.Fatalf("count orphans: %v", err)
		}
		if orphans != 0 {
			t.Errorf("%d assignment rows left after delete", orphans)
		}
	})
}

func TestSessionExpiry(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base }

	short := &models.Session{Title: "short", ExpiresAt: base.Add(10 * time.Minute).Unix()}
	long := &models.Session{Title: "long", ExpiresAt: base.Add(time.Hour).Unix()}
	forever := &models.Session{Title: "forever"}
	for _, s := range []*models.Session{short, long, forever} {
		if err := store.CreateSession(ctx, s); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
	}

	store.now = func() time.Time { return base.Add(30 * time.Minute) }
	if _, err := store.GetSession(ctx, short.ID); !errors.Is(err, storage.ErrSessionExpired) {
		t.Errorf("GetSession(short) error = %v, want ErrSessionExpired", err)
	}
	if _, err := store.GetSession(ctx, long.ID); err != nil {
		t.Errorf("GetSession(long) error = %v", err)
	}

	n, err := store.DeleteExpiredSessions(ctx, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("DeleteExpiredSessions failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d sessions, want 1", n)
	}
	if _, err := store.GetSession(ctx, short.ID); !errors.Is(err, storage.ErrSessionNotFound) {
		t.Errorf("GetSession(short) after purge error = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.GetSession(ctx, forever.ID); err != nil {
		t.Errorf("GetSession(forever) error = %v", err)
	}
}

func TestGenerateTitle(t *testing.T) {
	now := time.Date(2026, 2, 14, 20, 0, 0, 0, time.UTC)
	people := func(names ...string) []models.Participant {
		out := make([]models.Participant, len(names))
		for i, n := range names {
			out[i] = models.Participant{ID: strings.ToLower(n), DisplayName: n}
		}
		return out
	}

	tests := []struct {
		name string
		in   []models.Participant
		want string
	}{
		{"no participants", nil, "Split - Feb 14, 2026"},
		{"one", people("Alice"), "Split with Alice"},
		{"three", people("Alice", "Bob", "Carol"), "Split with Alice, Bob, Carol"},
		{"five", people("Alice", "Bob", "Carol", "Dan", "Erin"), "Split with Alice, Bob and 3 others"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := generateTitle(tt.in, now); got != tt.want {
				t.Errorf("generateTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}
