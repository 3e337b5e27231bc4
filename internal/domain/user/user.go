package user

import (
	"context"
	"strings"
	"time"

	"campusconnect/internal/domain/shared/errs"
)

var (
	ErrIDRequired       = errs.New(errs.ErrValidation, "user: id is required")
	ErrEmailRequired    = errs.New(errs.ErrValidation, "user: email is required")
	ErrNameRequired     = errs.New(errs.ErrValidation, "user: name is required")
	ErrInvalidRole      = errs.New(errs.ErrValidation, "user: invalid role")
	ErrInvalidRating    = errs.New(errs.ErrValidation, "user: rating must be between 1 and 5")
	ErrEmailAlreadyUsed = errs.New(errs.ErrConflict, "user: email already used")
	ErrNotFound         = errs.New(errs.ErrNotFound, "user: not found")
)

type ID string

type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

type User struct {
	ID            ID
	Email         string
	Name          string
	College       string
	Roles         []Role
	AverageRating float64
	NumReviews    int
	RatingTotal   int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RatingAggregate is the seller score shown next to listings.
type RatingAggregate struct {
	AverageRating float64
	NumReviews    int
}

type ListParams struct {
	Query   string
	Exclude ID
	Limit   int
	Offset  int
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByIDs(ctx context.Context, ids []ID) (map[ID]*User, error)
	List(ctx context.Context, params ListParams) ([]*User, int, error)
	Save(ctx context.Context, user *User) error
	// ApplyRating atomically adds one rating to the user's aggregate and
	// returns the result.
	ApplyRating(ctx context.Context, id ID, rating int) (RatingAggregate, error)
}

type CreateParams struct {
	ID        ID
	Email     string
	Name      string
	College   string
	Roles     []Role
	CreatedAt time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := normalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	roles, err := normalizeRoles(params.Roles)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		roles = []Role{RoleStudent}
	}

	return &User{
		ID:        ID(id),
		Email:     email,
		Name:      name,
		College:   strings.TrimSpace(params.College),
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateProfile changes the editable profile fields; nil leaves a field as is.
func (u *User) UpdateProfile(name, college *string, now time.Time) error {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return ErrNameRequired
		}
		u.Name = trimmed
	}
	if college != nil {
		u.College = strings.TrimSpace(*college)
	}
	u.touch(now)
	return nil
}

// AddRating folds one rating into the aggregate. Stores use it under their
// own atomicity guarantee.
func (u *User) AddRating(rating int, now time.Time) error {
	if rating < 1 || rating > 5 {
		return ErrInvalidRating
	}
	u.RatingTotal += rating
	u.NumReviews++
	u.AverageRating = Average(u.RatingTotal, u.NumReviews)
	u.touch(now)
	return nil
}

func (u *User) Rating() RatingAggregate {
	return RatingAggregate{AverageRating: u.AverageRating, NumReviews: u.NumReviews}
}

// Average derives the mean rating from the stored sum and count.
func Average(total, count int) float64 {
	if count <= 0 {
		return 0
	}
	return float64(total) / float64(count)
}

func (u *User) IsAdmin() bool {
	return u.HasRole(RoleAdmin)
}

func (u *User) HasRole(role Role) bool {
	role = normalizeRole(role)
	if role == "" {
		return false
	}
	for _, current := range u.Roles {
		if normalizeRole(current) == role {
			return true
		}
	}
	return false
}

// DisplayName falls back to a neutral label when the name is unknown.
func DisplayName(u *User, fallback string) string {
	if u == nil || strings.TrimSpace(u.Name) == "" {
		return fallback
	}
	return u.Name
}

func (u *User) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.UpdatedAt = now.UTC()
}

func normalizeRoles(roles []Role) ([]Role, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	seen := make(map[Role]struct{}, len(roles))
	normalized := make([]Role, 0, len(roles))
	for _, role := range roles {
		r := normalizeRole(role)
		if r != RoleStudent && r != RoleAdmin {
			return nil, ErrInvalidRole
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		normalized = append(normalized, r)
	}
	return normalized, nil
}

func normalizeRole(role Role) Role {
	return Role(strings.ToLower(strings.TrimSpace(string(role))))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
