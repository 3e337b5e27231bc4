package dto

import (
	"math"
	"time"

	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

// UserSummary is the public snippet of a seller or buyer.
type UserSummary struct {
	ID            string  `json:"id"`
	Name          string  `json:"name,omitempty"`
	Email         string  `json:"email,omitempty"`
	College       string  `json:"college,omitempty"`
	AverageRating float64 `json:"average_rating"`
	NumReviews    int     `json:"num_reviews"`
}

type Review struct {
	ReviewerID   string    `json:"reviewer_id"`
	ReviewerName string    `json:"reviewer_name,omitempty"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Listing struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Category    string       `json:"category"`
	Department  string       `json:"department,omitempty"`
	Price       float64      `json:"price"`
	PriceCents  int64        `json:"price_cents"`
	Images      []string     `json:"images"`
	IsSold      bool         `json:"is_sold"`
	Seller      UserSummary  `json:"seller"`
	Buyer       *UserSummary `json:"buyer,omitempty"`
	Reviews     []Review     `json:"reviews"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type ListingPage struct {
	Items  []Listing `json:"items"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit,omitempty"`
	Offset int       `json:"offset"`
	Page   int       `json:"page,omitempty"`
}

type ReviewList struct {
	Items []Review `json:"items"`
}

type ValueList struct {
	Items []string `json:"items"`
}

// CentsToPrice converts stored cents to the decimal price shown to clients.
func CentsToPrice(cents int64) float64 {
	return float64(cents) / 100
}

// PriceToCents rounds a client decimal price to whole cents.
func PriceToCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

func MapUserSummary(id domainuser.ID, users map[domainuser.ID]*domainuser.User) UserSummary {
	out := UserSummary{ID: string(id)}
	if u, ok := users[id]; ok && u != nil {
		out.Name = u.Name
		out.Email = u.Email
		out.College = u.College
		out.AverageRating = u.AverageRating
		out.NumReviews = u.NumReviews
	}
	return out
}

func MapListing(l *listings.Listing, users map[domainuser.ID]*domainuser.User) Listing {
	if l == nil {
		return Listing{}
	}
	out := Listing{
		ID:          string(l.ID),
		Title:       l.Title,
		Description: l.Description,
		Category:    l.Category,
		Department:  l.Department,
		Price:       CentsToPrice(l.PriceCents),
		PriceCents:  l.PriceCents,
		Images:      append([]string{}, l.Images...),
		IsSold:      l.IsSold,
		Seller:      MapUserSummary(l.Seller, users),
		Reviews:     MapReviews(l.Reviews, users).Items,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
	if l.Buyer != "" {
		buyer := MapUserSummary(l.Buyer, users)
		out.Buyer = &buyer
	}
	return out
}

func MapReviews(reviews []listings.Review, users map[domainuser.ID]*domainuser.User) ReviewList {
	items := make([]Review, 0, len(reviews))
	for _, r := range reviews {
		item := Review{
			ReviewerID: string(r.Reviewer),
			Rating:     r.Rating,
			Comment:    r.Comment,
			CreatedAt:  r.CreatedAt,
		}
		if u, ok := users[r.Reviewer]; ok && u != nil {
			item.ReviewerName = u.Name
		}
		items = append(items, item)
	}
	return ReviewList{Items: items}
}

// ListingUserIDs collects every user referenced by the listings, for one
// batched lookup.
func ListingUserIDs(ls ...*listings.Listing) []domainuser.ID {
	seen := make(map[domainuser.ID]struct{})
	var ids []domainuser.ID
	add := func(id domainuser.ID) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, l := range ls {
		if l == nil {
			continue
		}
		add(l.Seller)
		add(l.Buyer)
		for _, r := range l.Reviews {
			add(r.Reviewer)
		}
	}
	return ids
}
