package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"campusconnect/internal/domain/listings"
	"campusconnect/internal/domain/shared/events"
)

// ListingRepository stores copies of listings and enforces the version check
// the Mongo repository performs.
type ListingRepository struct {
	mu    sync.RWMutex
	items map[listings.ListingID]*listings.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{items: make(map[listings.ListingID]*listings.Listing)}
}

func (r *ListingRepository) ByID(ctx context.Context, id listings.ListingID) (*listings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, listings.ErrNotFound
	}
	return cloneListing(listing), nil
}

func (r *ListingRepository) ByIDs(ctx context.Context, ids []listings.ListingID) (map[listings.ListingID]*listings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[listings.ListingID]*listings.Listing, len(ids))
	for _, id := range ids {
		if l, ok := r.items[id]; ok {
			out[id] = cloneListing(l)
		}
	}
	return out, nil
}

func (r *ListingRepository) Save(ctx context.Context, listing *listings.Listing) error {
	if listing == nil || listing.ID == "" {
		return listings.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, exists := r.items[listing.ID]
	switch {
	case exists && current.Version != listing.Version:
		return listings.ErrConcurrentUpdate
	case !exists && listing.Version != 0:
		return listings.ErrConcurrentUpdate
	}
	listing.Version++
	r.items[listing.ID] = cloneListing(listing)
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id listings.ListingID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return listings.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, params listings.SearchParams) (listings.SearchResult, error) {
	opts := params.Normalized()
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := make([]*listings.Listing, 0, len(r.items))
	for _, l := range r.items {
		if err := ctx.Err(); err != nil {
			return listings.SearchResult{}, err
		}
		if opts.Matches(l) {
			matches = append(matches, l)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if opts.OnlySold && !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	page := paginate(matches, opts.Offset, opts.Limit)
	items := make([]*listings.Listing, 0, len(page))
	for _, l := range page {
		items = append(items, cloneListing(l))
	}
	return listings.SearchResult{Items: items, Total: len(matches)}, nil
}

func (r *ListingRepository) Distinct(ctx context.Context, field listings.DistinctField) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, l := range r.items {
		var v string
		switch field {
		case listings.FieldCategory:
			v = l.Category
		case listings.FieldDepartment:
			v = l.Department
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

// revertListing puts prev back (or drops the listing when prev is nil) if
// the stored version is still the one written. written is 0 for a delete.
func (r *ListingRepository) revertListing(id listings.ListingID, prev *listings.Listing, written int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, exists := r.items[id]
	switch {
	case exists && current.Version != written:
		return
	case !exists && written != 0:
		return
	}
	if prev == nil {
		delete(r.items, id)
		return
	}
	r.items[id] = cloneListing(prev)
}

func cloneListing(l *listings.Listing) *listings.Listing {
	if l == nil {
		return nil
	}
	c := *l
	c.Images = append([]string(nil), l.Images...)
	c.Reviews = append([]listings.Review(nil), l.Reviews...)
	c.EventRecorder = events.EventRecorder{}
	return &c
}

var _ listings.ListingRepository = (*ListingRepository)(nil)
