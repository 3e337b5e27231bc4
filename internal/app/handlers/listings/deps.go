// Package listings serves the marketplace catalog: seller-owned listings,
// search and buyer reviews.
package listings

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/outbox"
	"campusconnect/internal/app/policies"
	"campusconnect/internal/app/uow"
	domainlistings "campusconnect/internal/domain/listings"
)

type Deps struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
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

func (d Deps) write(ctx context.Context, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	return uow.Within(ctx, d.UoWFactory, uow.TxOptions{}, fn)
}

func (d Deps) read(ctx context.Context, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	return uow.Within(ctx, d.UoWFactory, uow.TxOptions{ReadOnly: true}, fn)
}

// save stores l and queues its pending events in the same unit.
func (d Deps) save(ctx context.Context, unit uow.UnitOfWork, l *domainlistings.Listing) error {
	if err := unit.Listings().Save(ctx, l); err != nil {
		return err
	}
	return outbox.RecordDomainEvents(ctx, d.Outbox, d.Encoder, l)
}

// render maps listings with sellers, buyers and reviewers resolved in one read.
func render(ctx context.Context, unit uow.UnitOfWork, ls ...*domainlistings.Listing) ([]dto.Listing, error) {
	users, err := unit.Users().ByIDs(ctx, dto.ListingUserIDs(ls...))
	if err != nil {
		return nil, err
	}
	out := make([]dto.Listing, 0, len(ls))
	for _, l := range ls {
		out = append(out, dto.MapListing(l, users))
	}
	return out, nil
}

func renderOne(ctx context.Context, unit uow.UnitOfWork, l *domainlistings.Listing) (dto.Listing, error) {
	items, err := render(ctx, unit, l)
	if err != nil {
		return dto.Listing{}, err
	}
	return items[0], nil
}
