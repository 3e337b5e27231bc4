package listings

import (
	"time"

	"campusconnect/internal/domain/user"
)

type ListingCreated struct {
	ListingID ListingID
	Seller    user.ID
	At        time.Time
}

func (e ListingCreated) EventName() string     { return "listing.created" }
func (e ListingCreated) AggregateID() string   { return string(e.ListingID) }
func (e ListingCreated) OccurredAt() time.Time { return e.At }

type ListingUpdated struct {
	ListingID ListingID
	At        time.Time
}

func (e ListingUpdated) EventName() string     { return "listing.updated" }
func (e ListingUpdated) AggregateID() string   { return string(e.ListingID) }
func (e ListingUpdated) OccurredAt() time.Time { return e.At }

type ListingSold struct {
	ListingID ListingID
	Seller    user.ID
	Buyer     user.ID
	At        time.Time
}

func (e ListingSold) EventName() string     { return "listing.sold" }
func (e ListingSold) AggregateID() string   { return string(e.ListingID) }
func (e ListingSold) OccurredAt() time.Time { return e.At }
