package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"campusconnect/internal/app/dto"
	"campusconnect/internal/app/services/auth"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

//go:embed demo.json
var defaultDemoFixtures []byte

type demoFixtures struct {
	Users    []userFixture    `json:"users"`
	Listings []listingFixture `json:"listings"`
}

type userFixture struct {
	ID      string   `json:"id"`
	Email   string   `json:"email"`
	Name    string   `json:"name"`
	College string   `json:"college"`
	Roles   []string `json:"roles"`
}

type listingFixture struct {
	ID          string   `json:"id"`
	Seller      string   `json:"seller"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Department  string   `json:"department"`
	Price       float64  `json:"price"`
	Images      []string `json:"images"`
}

// seedDemoData imports fixture users and listings that do not exist yet and
// issues a session per user, logged so the API can be tried locally.
func seedDemoData(ctx context.Context, b *backend, authSvc *auth.Service, path string, logger *slog.Logger) error {
	data := defaultDemoFixtures
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read fixtures: %w", err)
		}
		data = raw
	}
	var fixtures demoFixtures
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	for _, fx := range fixtures.Users {
		id := domainuser.ID(fx.ID)
		if _, err := b.users.ByID(ctx, id); err == nil {
			continue
		} else if !errors.Is(err, domainuser.ErrNotFound) {
			return err
		}
		roles := make([]domainuser.Role, 0, len(fx.Roles))
		for _, r := range fx.Roles {
			roles = append(roles, domainuser.Role(r))
		}
		user, err := domainuser.NewUser(domainuser.CreateParams{
			ID: id, Email: fx.Email, Name: fx.Name, College: fx.College, Roles: roles, CreatedAt: now,
		})
		if err != nil {
			logger.Error("fixture user invalid", "user_id", fx.ID, "error", err)
			continue
		}
		if err := b.users.Save(ctx, user); err != nil {
			logger.Error("cannot store fixture user", "user_id", fx.ID, "error", err)
			continue
		}
	}

	for _, fx := range fixtures.Listings {
		id := listings.ListingID(fx.ID)
		if _, err := b.listings.ByID(ctx, id); err == nil {
			continue
		} else if !errors.Is(err, listings.ErrNotFound) {
			return err
		}
		listing, err := listings.NewListing(listings.CreateListingParams{
			ID:          id,
			Seller:      domainuser.ID(fx.Seller),
			Title:       fx.Title,
			Description: fx.Description,
			Category:    fx.Category,
			Department:  fx.Department,
			PriceCents:  dto.PriceToCents(fx.Price),
			Images:      fx.Images,
			Now:         now,
		})
		if err != nil {
			logger.Error("fixture listing invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := b.listings.Save(ctx, listing); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", listing.ID)
	}

	for _, fx := range fixtures.Users {
		token, err := authSvc.IssueSession(ctx, domainuser.ID(fx.ID))
		if err != nil {
			logger.Warn("demo session not issued", "user_id", fx.ID, "error", err)
			continue
		}
		logger.Info("demo session issued", "user_id", fx.ID, "token", token)
	}
	return nil
}
