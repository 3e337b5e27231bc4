package listings

import (
	"context"
	"strings"
	"time"

	"campusconnect/internal/domain/shared/errs"
	"campusconnect/internal/domain/shared/events"
	"campusconnect/internal/domain/user"
)

// MaxImages caps the image URLs a listing can carry.
const MaxImages = 4

var (
	ErrIDRequired          = errs.New(errs.ErrValidation, "listings: id is required")
	ErrSellerRequired      = errs.New(errs.ErrValidation, "listings: seller is required")
	ErrTitleRequired       = errs.New(errs.ErrValidation, "listings: title is required")
	ErrDescriptionRequired = errs.New(errs.ErrValidation, "listings: description is required")
	ErrCategoryRequired    = errs.New(errs.ErrValidation, "listings: category is required")
	ErrNegativePrice       = errs.New(errs.ErrValidation, "listings: price must be non-negative")
	ErrTooManyImages       = errs.New(errs.ErrValidation, "listings: you can upload up to 4 images")
	ErrInvalidRating       = errs.New(errs.ErrValidation, "listings: rating must be between 1 and 5")
	ErrNotFound            = errs.New(errs.ErrNotFound, "listings: listing not found")
	ErrAlreadySold         = errs.New(errs.ErrConflict, "listings: item is already sold")
	ErrAlreadyReviewed     = errs.New(errs.ErrConflict, "listings: you have already reviewed this listing")
	ErrNotSeller           = errs.New(errs.ErrForbidden, "listings: only the seller can change this listing")
	ErrConcurrentUpdate    = errs.New(errs.ErrConflict, "listings: concurrent update")
)

type ListingID string

type Review struct {
	Reviewer  user.ID
	Rating    int
	Comment   string
	CreatedAt time.Time
}

type Listing struct {
	ID          ListingID
	Seller      user.ID
	Title       string
	Description string
	Category    string
	Department  string
	PriceCents  int64
	Images      []string
	IsSold      bool
	Buyer       user.ID
	Reviews     []Review
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	events.EventRecorder
}

type ListingRepository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	ByIDs(ctx context.Context, ids []ListingID) (map[ListingID]*Listing, error)
	// Save inserts or updates with an optimistic version check.
	Save(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id ListingID) error
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
	Distinct(ctx context.Context, field DistinctField) ([]string, error)
}

type CreateListingParams struct {
	ID          ListingID
	Seller      user.ID
	Title       string
	Description string
	Category    string
	Department  string
	PriceCents  int64
	Images      []string
	Now         time.Time
}

func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Seller)) == "" {
		return nil, ErrSellerRequired
	}
	details := Details{
		Title:       params.Title,
		Description: params.Description,
		Category:    params.Category,
		Department:  params.Department,
		PriceCents:  params.PriceCents,
		Images:      params.Images,
	}
	if err := details.validate(); err != nil {
		return nil, err
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	listing := &Listing{
		ID:        params.ID,
		Seller:    params.Seller,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	listing.apply(details)
	listing.Record(ListingCreated{ListingID: listing.ID, Seller: listing.Seller, At: listing.CreatedAt})
	return listing, nil
}

// Details are the seller-editable attributes of a listing.
type Details struct {
	Title       string
	Description string
	Category    string
	Department  string
	PriceCents  int64
	Images      []string
}

func (d Details) validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(d.Description) == "" {
		return ErrDescriptionRequired
	}
	if strings.TrimSpace(d.Category) == "" {
		return ErrCategoryRequired
	}
	if d.PriceCents < 0 {
		return ErrNegativePrice
	}
	if len(cleanImages(d.Images)) > MaxImages {
		return ErrTooManyImages
	}
	return nil
}

func (l *Listing) apply(d Details) {
	l.Title = strings.TrimSpace(d.Title)
	l.Description = strings.TrimSpace(d.Description)
	l.Category = strings.TrimSpace(d.Category)
	l.Department = strings.TrimSpace(d.Department)
	l.PriceCents = d.PriceCents
	l.Images = cleanImages(d.Images)
}

// IsSeller reports whether actor owns the listing.
func (l *Listing) IsSeller(actor user.ID) bool {
	return actor != "" && l.Seller == actor
}

// Update replaces seller-editable details. Sold listings are frozen.
func (l *Listing) Update(actor user.ID, d Details, now time.Time) error {
	if !l.IsSeller(actor) {
		return ErrNotSeller
	}
	if l.IsSold {
		return ErrAlreadySold
	}
	if err := d.validate(); err != nil {
		return err
	}
	l.apply(d)
	l.touch(now)
	l.Record(ListingUpdated{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}

// EnsureDeletable checks that actor may remove the listing.
func (l *Listing) EnsureDeletable(actor user.ID) error {
	if !l.IsSeller(actor) {
		return ErrNotSeller
	}
	if l.IsSold {
		return ErrAlreadySold
	}
	return nil
}

// MarkSold flips the listing to sold exactly once. buyer may be empty when a
// seller closes a listing sold outside the platform.
func (l *Listing) MarkSold(buyer user.ID, now time.Time) error {
	if l.IsSold {
		return ErrAlreadySold
	}
	l.IsSold = true
	l.Buyer = buyer
	l.touch(now)
	l.Record(ListingSold{ListingID: l.ID, Seller: l.Seller, Buyer: buyer, At: l.UpdatedAt})
	return nil
}

func (l *Listing) AddReview(reviewer user.ID, rating int, comment string, now time.Time) (Review, error) {
	if rating < 1 || rating > 5 {
		return Review{}, ErrInvalidRating
	}
	for _, existing := range l.Reviews {
		if existing.Reviewer == reviewer {
			return Review{}, ErrAlreadyReviewed
		}
	}
	review := Review{
		Reviewer:  reviewer,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: now.UTC(),
	}
	l.Reviews = append(l.Reviews, review)
	l.touch(now)
	return review, nil
}

func (l *Listing) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	l.UpdatedAt = now.UTC()
}

func cleanImages(images []string) []string {
	out := make([]string, 0, len(images))
	for _, img := range images {
		img = strings.TrimSpace(img)
		if img == "" {
			continue
		}
		out = append(out, img)
	}
	return out
}
