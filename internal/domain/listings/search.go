package listings

import (
	"strings"

	"campusconnect/internal/domain/user"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
)

type SearchParams struct {
	Category    string
	Department  string
	Seller      user.ID
	Buyer       user.ID
	Text        string
	IncludeSold bool
	OnlySold    bool
	Limit       int
	Offset      int
}

type SearchResult struct {
	Items []*Listing
	Total int
}

type DistinctField string

const (
	FieldCategory   DistinctField = "category"
	FieldDepartment DistinctField = "department"
)

func (p SearchParams) Normalized() SearchParams {
	p.Category = strings.TrimSpace(p.Category)
	p.Department = strings.TrimSpace(p.Department)
	p.Text = strings.TrimSpace(p.Text)
	if p.Limit <= 0 {
		p.Limit = DefaultSearchLimit
	}
	if p.Limit > MaxSearchLimit {
		p.Limit = MaxSearchLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Matches applies the search filters in memory. Text matching is a
// case-insensitive substring match over title and description.
func (p SearchParams) Matches(l *Listing) bool {
	if l == nil {
		return false
	}
	if p.OnlySold && !l.IsSold {
		return false
	}
	if !p.IncludeSold && !p.OnlySold && l.IsSold {
		return false
	}
	if p.Category != "" && !strings.EqualFold(l.Category, p.Category) {
		return false
	}
	if p.Department != "" && !strings.EqualFold(l.Department, p.Department) {
		return false
	}
	if p.Seller != "" && l.Seller != p.Seller {
		return false
	}
	if p.Buyer != "" && l.Buyer != p.Buyer {
		return false
	}
	if p.Text != "" {
		needle := strings.ToLower(p.Text)
		if !strings.Contains(strings.ToLower(l.Title), needle) &&
			!strings.Contains(strings.ToLower(l.Description), needle) {
			return false
		}
	}
	return true
}
