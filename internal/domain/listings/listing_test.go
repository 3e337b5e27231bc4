package listings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestListing(t *testing.T) *Listing {
	t.Helper()
	l, err := NewListing(CreateListingParams{
		ID:          "l-1",
		Seller:      "seller",
		Title:       " Calculus textbook ",
		Description: "Barely used",
		Category:    "Books",
		Department:  "Math",
		PriceCents:  2500,
		Images:      []string{"a.jpg", " ", "b.jpg"},
		Now:         time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	return l
}

func TestNewListing(t *testing.T) {
	l := newTestListing(t)
	assert.Equal(t, "Calculus textbook", l.Title)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, l.Images)
	assert.False(t, l.IsSold)
	require.Len(t, l.PendingEvents(), 1)
	assert.Equal(t, "listing.created", l.PendingEvents()[0].EventName())
}

func TestNewListingValidation(t *testing.T) {
	base := CreateListingParams{ID: "l", Seller: "s", Title: "t", Description: "d", Category: "c"}

	p := base
	p.Title = ""
	_, err := NewListing(p)
	assert.ErrorIs(t, err, ErrTitleRequired)

	p = base
	p.PriceCents = -1
	_, err = NewListing(p)
	assert.ErrorIs(t, err, ErrNegativePrice)

	p = base
	p.Images = []string{"1", "2", "3", "4", "5"}
	_, err = NewListing(p)
	assert.ErrorIs(t, err, ErrTooManyImages)
}

func TestMarkSoldOnce(t *testing.T) {
	l := newTestListing(t)
	require.NoError(t, l.MarkSold("buyer", time.Now()))
	assert.True(t, l.IsSold)
	assert.EqualValues(t, "buyer", l.Buyer)
	assert.ErrorIs(t, l.MarkSold("other", time.Now()), ErrAlreadySold)
	assert.EqualValues(t, "buyer", l.Buyer)
}

func TestUpdateRequiresSellerAndUnsold(t *testing.T) {
	l := newTestListing(t)
	d := Details{Title: "New", Description: "d", Category: "c", PriceCents: 10}
	assert.ErrorIs(t, l.Update("intruder", d, time.Now()), ErrNotSeller)
	require.NoError(t, l.Update("seller", d, time.Now()))
	assert.Equal(t, "New", l.Title)

	require.NoError(t, l.MarkSold("", time.Now()))
	assert.ErrorIs(t, l.Update("seller", d, time.Now()), ErrAlreadySold)
	assert.ErrorIs(t, l.EnsureDeletable("seller"), ErrAlreadySold)
}

func TestAddReviewOncePerReviewer(t *testing.T) {
	l := newTestListing(t)
	_, err := l.AddReview("r", 4, " nice ", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "nice", l.Reviews[0].Comment)
	_, err = l.AddReview("r", 5, "", time.Now())
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
	_, err = l.AddReview("x", 6, "", time.Now())
	assert.ErrorIs(t, err, ErrInvalidRating)
}

func TestSearchMatches(t *testing.T) {
	l := newTestListing(t)
	assert.True(t, SearchParams{Text: "CALCULUS"}.Normalized().Matches(l))
	assert.True(t, SearchParams{Category: "books"}.Matches(l))
	assert.False(t, SearchParams{Department: "Physics"}.Matches(l))

	require.NoError(t, l.MarkSold("b", time.Now()))
	assert.False(t, SearchParams{}.Matches(l))
	assert.True(t, SearchParams{IncludeSold: true}.Matches(l))
	assert.True(t, SearchParams{Buyer: "b", OnlySold: true}.Matches(l))
}
