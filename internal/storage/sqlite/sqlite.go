// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/money"
	"github.com/mmynk/receiptsplit/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

const (
	kindSingle = "single"
	kindShared = "shared"
	kindEven   = "even"
)

// SQLiteStore implements storage.Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas in the DSN apply to every pooled connection
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession persists a new session to the database.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *models.Session) error {
	if sess.ID == "" {
		sess.ID = uuid.New().String()
	}
	if sess.CreatedAt == 0 {
		sess.CreatedAt = s.now().Unix()
	}
	if sess.Title == "" {
		sess.Title = generateTitle(sess.Participants, s.now())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	hasReceipt, subtotal, grandTotal := receiptColumns(sess.Receipt)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, title, current_step, has_receipt, subtotal, grand_total, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Title, sess.CurrentStep, hasReceipt, subtotal, grandTotal, sess.CreatedAt, sess.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	if err := insertChildren(ctx, tx, sess); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID, including its receipt, participants
// and assignments.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	sess := &models.Session{}
	var (
		hasReceipt           bool
		subtotal, grandTotal int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, current_step, has_receipt, subtotal, grand_total, created_at, expires_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.Title, &sess.CurrentStep, &hasReceipt, &subtotal, &grandTotal, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", storage.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if sess.ExpiresAt > 0 && s.now().Unix() >= sess.ExpiresAt {
		return nil, fmt.Errorf("%w: %s", storage.ErrSessionExpired, id)
	}

	if sess.Participants, err = s.getParticipants(ctx, id); err != nil {
		return nil, err
	}
	if !hasReceipt {
		return sess, nil
	}

	r := &models.Receipt{Subtotal: money.Money(subtotal), GrandTotal: money.Money(grandTotal)}
	if r.Items, err = s.getItems(ctx, id); err != nil {
		return nil, err
	}
	if r.Charges, err = s.getCharges(ctx, id); err != nil {
		return nil, err
	}
	sess.Receipt = r
	if sess.Assignments, err = s.getAssignments(ctx, id, len(r.Items)); err != nil {
		return nil, err
	}
	return sess, nil
}

// UpdateSession replaces the editable state of a session.
func (s *SQLiteStore) UpdateSession(ctx context.Context, sess *models.Session) error {
	if sess.Title == "" {
		sess.Title = generateTitle(sess.Participants, s.now())
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	hasReceipt, subtotal, grandTotal := receiptColumns(sess.Receipt)
	result, err := tx.ExecContext(ctx,
		`UPDATE sessions SET title = ?, current_step = ?, has_receipt = ?, subtotal = ?, grand_total = ?, expires_at = ?
		 WHERE id = ?`,
		sess.Title, sess.CurrentStep, hasReceipt, subtotal, grandTotal, sess.ExpiresAt, sess.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", storage.ErrSessionNotFound, sess.ID)
	}

	// Replace children wholesale; assignments cascade from items
	for _, table := range []string{"participants", "items", "charges"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE session_id = ?", sess.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := insertChildren(ctx, tx, sess); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteSession removes a session; child rows go with it.
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", storage.ErrSessionNotFound, id)
	}
	return nil
}

// DeleteExpiredSessions removes every session whose expiry is at or before now.
func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at > 0 AND expires_at <= ?",
		now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return n, nil
}

func receiptColumns(r *models.Receipt) (has bool, subtotal, grandTotal int64) {
	if r == nil {
		return false, 0, 0
	}
	return true, r.Subtotal.Cents(), r.GrandTotal.Cents()
}

func insertChildren(ctx context.Context, tx *sql.Tx, sess *models.Session) error {
	for i, p := range sess.Participants {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO participants (session_id, position, id, display_name) VALUES (?, ?, ?, ?)",
			sess.ID, i, p.ID, p.DisplayName,
		)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	if sess.Receipt == nil {
		return nil
	}
	for i, item := range sess.Receipt.Items {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO items (session_id, position, name, quantity, unit_price, line_total) VALUES (?, ?, ?, ?, ?, ?)",
			sess.ID, i, item.Name, item.Quantity, item.UnitPrice.Cents(), item.LineTotal.Cents(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
	}
	for i, c := range sess.Receipt.Charges {
		var percent sql.NullString
		if c.Percent != nil {
			percent = sql.NullString{String: c.Percent.String(), Valid: true}
		}
		_, err := tx.ExecContext(ctx,
			"INSERT INTO charges (session_id, position, name, amount, percent) VALUES (?, ?, ?, ?, ?)",
			sess.ID, i, c.Name, c.Amount.Cents(), percent,
		)
		if err != nil {
			return fmt.Errorf("failed to insert charge: %w", err)
		}
	}

	for i, a := range sess.Assignments {
		if a == nil {
			continue
		}
		if i >= len(sess.Receipt.Items) {
			return fmt.Errorf("assignment for item %d but receipt has %d items", i, len(sess.Receipt.Items))
		}
		if err := insertAssignment(ctx, tx, sess.ID, i, a); err != nil {
			return err
		}
	}
	return nil
}

type member struct {
	participantID string
	amount        sql.NullInt64
}

func insertAssignment(ctx context.Context, tx *sql.Tx, sessionID string, item int, a models.Assignment) error {
	var (
		kind    string
		members []member
	)
	switch a := a.(type) {
	case models.Single:
		kind = kindSingle
		members = []member{{participantID: a.ParticipantID}}
	case models.Shared:
		kind = kindShared
		for _, sh := range a.Shares {
			members = append(members, member{
				participantID: sh.ParticipantID,
				amount:        sql.NullInt64{Int64: sh.Amount.Cents(), Valid: true},
			})
		}
	case models.Even:
		kind = kindEven
		for _, id := range a.ParticipantIDs {
			members = append(members, member{participantID: id})
		}
	default:
		return fmt.Errorf("unsupported assignment type %T for item %d", a, item)
	}

	_, err := tx.ExecContext(ctx,
		"INSERT INTO assignments (session_id, item_position, kind) VALUES (?, ?, ?)",
		sessionID, item, kind,
	)
	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	for j, m := range members {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO assignment_members (session_id, item_position, position, participant_id, amount) VALUES (?, ?, ?, ?, ?)",
			sessionID, item, j, m.participantID, m.amount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert assignment member: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) getParticipants(ctx context.Context, sessionID string) ([]models.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, display_name FROM participants WHERE session_id = ? ORDER BY position",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}
	defer rows.Close()

	var out []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) getItems(ctx context.Context, sessionID string) ([]models.LineItem, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, quantity, unit_price, line_total FROM items WHERE session_id = ? ORDER BY position",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	var out []models.LineItem
	for rows.Next() {
		var (
			item             models.LineItem
			unitPrice, total int64
		)
		if err := rows.Scan(&item.Name, &item.Quantity, &unitPrice, &total); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.UnitPrice = money.Money(unitPrice)
		item.LineTotal = money.Money(total)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) getCharges(ctx context.Context, sessionID string) ([]models.Charge, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, amount, percent FROM charges WHERE session_id = ? ORDER BY position",
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get charges: %w", err)
	}
	defer rows.Close()

	var out []models.Charge
	for rows.Next() {
		var (
			c       models.Charge
			amount  int64
			percent sql.NullString
		)
		if err := rows.Scan(&c.Name, &amount, &percent); err != nil {
			return nil, fmt.Errorf("failed to scan charge: %w", err)
		}
		c.Amount = money.Money(amount)
		if percent.Valid {
			d, err := decimal.NewFromString(percent.String)
			if err != nil {
				return nil, fmt.Errorf("failed to parse charge percent %q: %w", percent.String, err)
			}
			c.Percent = &d
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate charges: %w", err)
	}
	return out, nil
}

// getAssignments returns a slice parallel to the items; unassigned items are nil.
func (s *SQLiteStore) getAssignments(ctx context.Context, sessionID string, items int) ([]models.Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.item_position, a.kind, m.participant_id, m.amount
		 FROM assignments a
		 JOIN assignment_members m ON m.session_id = a.session_id AND m.item_position = a.item_position
		 WHERE a.session_id = ?
		 ORDER BY a.item_position, m.position`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get assignments: %w", err)
	}
	defer rows.Close()

	out := make([]models.Assignment, items)
	for rows.Next() {
		var (
			pos           int
			kind          string
			participantID string
			amount        sql.NullInt64
		)
		if err := rows.Scan(&pos, &kind, &participantID, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		if pos < 0 || pos >= items {
			return nil, fmt.Errorf("assignment for item %d but receipt has %d items", pos, items)
		}
		switch kind {
		case kindSingle:
			out[pos] = models.Single{ParticipantID: participantID}
		case kindShared:
			sh, _ := out[pos].(models.Shared)
			sh.Shares = append(sh.Shares, models.Share{ParticipantID: participantID, Amount: money.Money(amount.Int64)})
			out[pos] = sh
		case kindEven:
			ev, _ := out[pos].(models.Even)
			ev.ParticipantIDs = append(ev.ParticipantIDs, participantID)
			out[pos] = ev
		default:
			return nil, fmt.Errorf("unknown assignment kind %q for item %d", kind, pos)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}
	return out, nil
}

// generateTitle creates an auto-generated title from participants.
func generateTitle(participants []models.Participant, now time.Time) string {
	names := make([]string, len(participants))
	for i, p := range participants {
		names[i] = p.DisplayName
	}
	if len(names) == 0 {
		return fmt.Sprintf("Split - %s", now.Format("Jan 2, 2006"))
	}
	if len(names) <= 3 {
		return fmt.Sprintf("Split with %s", strings.Join(names, ", "))
	}
	return fmt.Sprintf("Split with %s and %d others",
		strings.Join(names[:2], ", "),
		len(names)-2,
	)
}
