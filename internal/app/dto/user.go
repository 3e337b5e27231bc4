package dto

import (
	"time"

	domainuser "campusconnect/internal/domain/user"
)

type UserProfile struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	College       string    `json:"college,omitempty"`
	Roles         []string  `json:"roles"`
	AverageRating float64   `json:"average_rating"`
	NumReviews    int       `json:"num_reviews"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SellerRating is the aggregate returned after a rating.
type SellerRating struct {
	AverageRating float64 `json:"average_rating"`
	NumReviews    int     `json:"num_reviews"`
}

type UserList struct {
	Items []UserProfile `json:"items"`
	Total int           `json:"total"`
}

func MapUserProfile(user *domainuser.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, string(role))
	}
	return UserProfile{
		ID:            string(user.ID),
		Email:         user.Email,
		Name:          user.Name,
		College:       user.College,
		Roles:         roles,
		AverageRating: user.AverageRating,
		NumReviews:    user.NumReviews,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

func MapUserList(users []*domainuser.User, total int) UserList {
	items := make([]UserProfile, 0, len(users))
	for _, u := range users {
		items = append(items, MapUserProfile(u))
	}
	return UserList{Items: items, Total: total}
}

func MapSellerRating(agg domainuser.RatingAggregate) SellerRating {
	return SellerRating{AverageRating: agg.AverageRating, NumReviews: agg.NumReviews}
}
