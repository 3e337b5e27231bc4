// Package negotiation runs the conversation and sale state machine between a
// listing's seller and prospective buyers.
package negotiation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/outbox"
	"campusconnect/internal/app/policies"
	"campusconnect/internal/app/uow"
	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	"campusconnect/internal/domain/shared/errs"
	domainuser "campusconnect/internal/domain/user"
)

var (
	ErrReceiverOrConversationRequired = errs.New(errs.ErrValidation, "negotiation: receiver or conversationId required")
	ErrCounterpartRequired            = errs.New(errs.ErrValidation, "negotiation: userId is required")
	ErrReceiverMismatch               = errs.New(errs.ErrValidation, "negotiation: receiver is not part of this conversation")
	ErrBuyerNotFound                  = errs.New(errs.ErrValidation, "negotiation: buyer not found")
	ErrConversationUnavailable        = errs.New(errs.ErrForbidden, "negotiation: conversation not found")
	ErrOnlySellerCanInitiate          = errs.New(errs.ErrForbidden, "negotiation: only the seller can initiate sale")
	ErrSellerCannotConfirm            = errs.New(errs.ErrForbidden, "negotiation: seller cannot confirm their own sale")
	ErrOnlyBuyerCanRate               = errs.New(errs.ErrForbidden, "negotiation: only buyer can rate")
	ErrListingNotSold                 = errs.New(errs.ErrConflict, "negotiation: listing is not sold")
)

const fallbackInitiatorName = "A student"

// Deps are the collaborators shared by every negotiation handler.
type Deps struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Notifier   policies.Notifier
	Clock      policies.Clock
	Logger     *slog.Logger
	NewID      func() string
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock.Now().UTC()
	}
	return time.Now().UTC()
}

func (d Deps) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.NewString()
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d Deps) record(ctx context.Context, sources ...outbox.Source) error {
	return outbox.RecordDomainEvents(ctx, d.Outbox, d.Encoder, sources...)
}

// notify runs a best-effort notification. Errors and panics are logged and
// never reach the caller.
func (d Deps) notify(ctx context.Context, kind string, send func(ctx context.Context, n policies.Notifier) error, attrs ...any) {
	if d.Notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			d.logger().ErrorContext(ctx, "notifier panicked", append([]any{"kind", kind, "panic", fmt.Sprint(r)}, attrs...)...)
		}
	}()
	if err := send(ctx, d.Notifier); err != nil {
		d.logger().WarnContext(ctx, "notification failed", append([]any{"kind", kind, "error", err}, attrs...)...)
	}
}

// postMessage builds a message, attaches it to c and stores both.
func (d Deps) postMessage(ctx context.Context, unit uow.UnitOfWork, c *conversations.Conversation, params conversations.MessageParams) (*conversations.Message, error) {
	params.ID = conversations.MessageID(d.newID())
	if params.Now.IsZero() {
		params.Now = d.now()
	}
	msg, err := conversations.NewMessage(params)
	if err != nil {
		return nil, err
	}
	c.Post(msg)
	if err := unit.Conversations().Save(ctx, c); err != nil {
		return nil, err
	}
	if err := unit.Messages().Save(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// render maps c with participant names resolved in one batched read.
func render(ctx context.Context, unit uow.UnitOfWork, c *conversations.Conversation, listing *listings.Listing) (dto.Conversation, error) {
	users, err := unit.Users().ByIDs(ctx, c.Participants)
	if err != nil {
		return dto.Conversation{}, err
	}
	return dto.MapConversation(c, users, listing), nil
}

func displayName(ctx context.Context, unit uow.UnitOfWork, id domainuser.ID, fallback string) string {
	u, err := unit.Users().ByID(ctx, id)
	if err != nil {
		return fallback
	}
	return domainuser.DisplayName(u, fallback)
}
