package negotiation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campusconnect/internal/app/outbox"
	"campusconnect/internal/app/saga"
	"campusconnect/internal/app/schedule"
	"campusconnect/internal/app/uow"
	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/shared/errs"
)

const saleConfirmedEvent = "sale.confirmed"

// SettlementSaga resumes competing-conversation rejection from published
// sale.confirmed events.
type SettlementSaga struct {
	Rejecter *Rejecter
}

func (s *SettlementSaga) Name() string { return "settlement" }

func (s *SettlementSaga) Handles(eventName string) bool { return eventName == saleConfirmedEvent }

func (s *SettlementSaga) OnEvent(ctx context.Context, ev outbox.EventRecord) error {
	if !s.Handles(ev.Name) {
		return nil
	}
	fact, err := outbox.Decode[conversations.SaleConfirmedEvent](ev)
	if err != nil {
		return fmt.Errorf("settlement: decode %s: %w", ev.ID, err)
	}
	n, err := s.Rejecter.Reject(ctx, fact.Listing, fact.ConversationID)
	if err != nil {
		// A sale that no longer holds cannot be settled by retrying.
		if errors.Is(err, conversations.ErrSaleNotConfirmed) || errs.Kind(err) == "not_found" {
			s.Rejecter.logger().WarnContext(ctx, "settlement skipped", "event_id", ev.ID, "error", err)
			return nil
		}
		return err
	}
	if n > 0 {
		s.Rejecter.logger().InfoContext(ctx, "settlement resumed", "event_id", ev.ID, "listing_id", fact.Listing, "rejected", n)
	}
	return nil
}

// Sweeper periodically re-runs rejection for recently confirmed sales, which
// covers crashes between the sale commit and the fan-out when no broker is
// configured.
type Sweeper struct {
	Rejecter *Rejecter
	Lookback time.Duration
}

func (s *Sweeper) Name() string { return "settlement-sweep" }

func (s *Sweeper) Run(ctx context.Context) error {
	lookback := s.Lookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	since := s.Rejecter.now().Add(-lookback)

	var confirmed []*conversations.Conversation
	err := uow.RunWith(ctx, s.Rejecter.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		confirmed, err = unit.Conversations().ConfirmedSince(ctx, since)
		return err
	})
	if err != nil {
		return err
	}

	total := 0
	var failures []error
	for _, c := range confirmed {
		n, err := s.Rejecter.Reject(ctx, c.Listing, c.ID)
		total += n
		if err != nil {
			failures = append(failures, err)
		}
	}
	if total > 0 {
		s.Rejecter.logger().InfoContext(ctx, "settlement sweep rejected stragglers", "rejected", total, "sales", len(confirmed))
	}
	return errors.Join(failures...)
}

var (
	_ saga.Saga    = (*SettlementSaga)(nil)
	_ schedule.Job = (*Sweeper)(nil)
)
