package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/receiptsplit/internal/calculator"
	"github.com/mmynk/receiptsplit/internal/format"
	"github.com/mmynk/receiptsplit/internal/middleware"
	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/money"
	"github.com/mmynk/receiptsplit/internal/receipt"
	"github.com/mmynk/receiptsplit/internal/session"
	"github.com/mmynk/receiptsplit/internal/storage"
	"github.com/mmynk/receiptsplit/pkg/api"
	"github.com/mmynk/receiptsplit/pkg/api/apiconnect"
)

var errNoReceipt = errors.New("session has no receipt yet")

// SplitService implements the Connect SplitService
type SplitService struct {
	apiconnect.UnimplementedSplitServiceHandler
	store    storage.Store
	tokens   *session.TokenManager
	currency string
	now      func() time.Time
}

// NewSplitService creates a new SplitService with the given storage backend.
// currency is the default for text summaries when a request names none.
func NewSplitService(store storage.Store, tokens *session.TokenManager, currency string) *SplitService {
	return &SplitService{
		store:    store,
		tokens:   tokens,
		currency: currency,
		now:      time.Now,
	}
}

// Calculate splits a receipt without storing anything.
func (s *SplitService) Calculate(ctx context.Context, req *connect.Request[api.CalculateRequest]) (*connect.Response[api.CalculateResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	currency, err := s.pickCurrency(req.Msg.Currency)
	if err != nil {
		return nil, err
	}

	r := api.ToReceipt(req.Msg.Receipt)
	participants := api.ToParticipants(req.Msg.Participants)
	assignments, err := api.ToAssignments(req.Msg.Assignments, len(r.Items))
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	resp, err := s.calculate(r, participants, assignments, currency, req.Msg.WithSummary)
	if err != nil {
		slog.Error("Calculate failed", "error", err)
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// CheckReceipt explains how a receipt's numbers reconcile.
func (s *SplitService) CheckReceipt(ctx context.Context, req *connect.Request[api.CheckReceiptRequest]) (*connect.Response[api.CheckReceiptResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	rep := receipt.Check(api.ToReceipt(req.Msg.Receipt))
	if !rep.Reconciled() {
		slog.Debug("Receipt does not reconcile", "problems", rep.Problems)
	}
	return connect.NewResponse(&api.CheckReceiptResponse{Report: api.FromReport(rep)}), nil
}

// CreateSession starts an empty session and returns the token that unlocks it.
func (s *SplitService) CreateSession(ctx context.Context, req *connect.Request[api.CreateSessionRequest]) (*connect.Response[api.CreateSessionResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	now := s.now()
	expires := now.Add(s.tokens.TTL())
	sess := &models.Session{
		Title:       req.Msg.Title,
		CurrentStep: 1,
		CreatedAt:   now.Unix(),
		ExpiresAt:   expires.Unix(),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		slog.Error("CreateSession failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	token, err := s.tokens.Generate(sess.ID, expires)
	if err != nil {
		slog.Error("CreateSession token failed", "session_id", sess.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Session created", "session_id", sess.ID, "expires_at", sess.ExpiresAt)
	return connect.NewResponse(&api.CreateSessionResponse{
		Session: api.FromSession(sess),
		Token:   token,
	}), nil
}

// GetSession returns the session bound to the request token.
func (s *SplitService) GetSession(ctx context.Context, req *connect.Request[api.GetSessionRequest]) (*connect.Response[api.GetSessionResponse], error) {
	sess, err := s.loadSession(ctx)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.GetSessionResponse{Session: api.FromSession(sess)}), nil
}

// UpdateSession replaces the receipt, participants, assignments and step of
// the session. Incomplete state is fine; it is only checked when calculated.
func (s *SplitService) UpdateSession(ctx context.Context, req *connect.Request[api.UpdateSessionRequest]) (*connect.Response[api.UpdateSessionResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	sess, err := s.loadSession(ctx)
	if err != nil {
		return nil, err
	}

	participants := api.ToParticipants(req.Msg.Participants)
	if err := checkParticipantIDs(participants); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	var (
		r     *models.Receipt
		items int
	)
	if req.Msg.Receipt != nil {
		converted := api.ToReceipt(*req.Msg.Receipt)
		r = &converted
		items = len(converted.Items)
	}
	assignments, err := api.ToAssignments(req.Msg.Assignments, items)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if r == nil {
		assignments = nil
	}

	sess.Title = req.Msg.Title
	sess.CurrentStep = req.Msg.CurrentStep
	sess.Receipt = r
	sess.Participants = participants
	sess.Assignments = assignments
	if err := s.store.UpdateSession(ctx, sess); err != nil {
		slog.Error("UpdateSession failed", "session_id", sess.ID, "error", err)
		return nil, toConnectError(err)
	}

	slog.Debug("Session updated",
		"session_id", sess.ID,
		"step", sess.CurrentStep,
		"participants", len(sess.Participants),
		"items", items,
	)
	return connect.NewResponse(&api.UpdateSessionResponse{Session: api.FromSession(sess)}), nil
}

// CalculateSession splits the stored session state. Results are recomputed
// on every call and never stored.
func (s *SplitService) CalculateSession(ctx context.Context, req *connect.Request[api.CalculateSessionRequest]) (*connect.Response[api.CalculateResponse], error) {
	if err := api.Validate(req.Msg); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	currency, err := s.pickCurrency(req.Msg.Currency)
	if err != nil {
		return nil, err
	}
	sess, err := s.loadSession(ctx)
	if err != nil {
		return nil, err
	}
	if sess.Receipt == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errNoReceipt)
	}

	resp, err := s.calculate(*sess.Receipt, sess.Participants, sess.Assignments, currency, req.Msg.WithSummary)
	if err != nil {
		slog.Warn("CalculateSession failed", "session_id", sess.ID, "error", err)
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// DeleteSession removes the session bound to the request token.
func (s *SplitService) DeleteSession(ctx context.Context, req *connect.Request[api.DeleteSessionRequest]) (*connect.Response[api.DeleteSessionResponse], error) {
	id := middleware.GetSessionID(ctx)
	if id == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, session.ErrMissingToken)
	}
	if err := s.store.DeleteSession(ctx, id); err != nil {
		slog.Error("DeleteSession failed", "session_id", id, "error", err)
		return nil, toConnectError(err)
	}
	slog.Info("Session deleted", "session_id", id)
	return connect.NewResponse(&api.DeleteSessionResponse{}), nil
}

func (s *SplitService) loadSession(ctx context.Context) (*models.Session, error) {
	id := middleware.GetSessionID(ctx)
	if id == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, session.ErrMissingToken)
	}
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		slog.Warn("GetSession failed", "session_id", id, "error", err)
		return nil, toConnectError(err)
	}
	return sess, nil
}

func (s *SplitService) pickCurrency(requested string) (string, error) {
	currency := s.currency
	if requested != "" {
		currency = requested
	}
	if err := money.CheckCurrency(currency); err != nil {
		return "", connect.NewError(connect.CodeInvalidArgument, err)
	}
	return currency, nil
}

// calculate runs the allocator and assembles the response.
func (s *SplitService) calculate(r models.Receipt, participants []models.Participant, assignments []models.Assignment, currency string, withSummary bool) (*api.CalculateResponse, error) {
	splits, err := calculator.Allocate(r, participants, assignments)
	if err != nil {
		return nil, toConnectError(err)
	}

	for _, split := range splits {
		slog.Debug("Person split",
			"participant_id", split.ParticipantID,
			"subtotal", split.Subtotal,
			"tax", split.TaxShare,
			"total", split.Total,
			"items_count", len(split.Items),
		)
	}

	resp := &api.CalculateResponse{
		Splits:       api.FromSplits(splits),
		ChargeTotals: api.FromChargeTotals(calculator.SumCharges(r.Charges)),
		GrandTotal:   r.GrandTotal,
		Report:       api.FromReport(receipt.Check(r)),
	}
	if withSummary {
		resp.Summary = format.Summary(splits, format.Options{Currency: currency})
	}
	return resp, nil
}

func checkParticipantIDs(participants []models.Participant) error {
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		if seen[p.ID] {
			return fmt.Errorf("%w: duplicate participant id %q", calculator.ErrInvalidParticipant, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}

// toConnectError maps domain and storage errors to Connect codes.
func toConnectError(err error) error {
	var (
		mismatch   *calculator.ShareMismatchError
		connectErr *connect.Error
	)
	switch {
	case errors.As(err, &connectErr):
		return err
	case errors.As(err, &mismatch):
		cerr := connect.NewError(connect.CodeInvalidArgument, err)
		cerr.Meta().Set("Split-Share-Item", fmt.Sprint(mismatch.Item))
		cerr.Meta().Set("Split-Share-Discrepancy", mismatch.Discrepancy().String())
		return cerr
	case errors.Is(err, storage.ErrSessionNotFound), errors.Is(err, storage.ErrSessionExpired):
		return connect.NewError(connect.CodeNotFound, err)
	case isInputError(err):
		return connect.NewError(connect.CodeInvalidArgument, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

func isInputError(err error) bool {
	for _, target := range []error{
		calculator.ErrInvalidPartyCount,
		calculator.ErrNegativeAmount,
		calculator.ErrNoParticipants,
		calculator.ErrInvalidParticipant,
		calculator.ErrUnknownParticipant,
		calculator.ErrMissingAssignment,
		calculator.ErrAssignmentCount,
		calculator.ErrInvalidAssignment,
		calculator.ErrInvalidItem,
		api.ErrInvalidRequest,
		api.ErrItemOutOfRange,
		api.ErrDuplicateAssignment,
		api.ErrAssignmentForm,
		money.ErrTooPrecise,
		money.ErrUnsupportedCurrency,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
