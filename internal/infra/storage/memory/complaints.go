package memory

import (
	"context"
	"sort"
	"sync"

	"campusconnect/internal/domain/complaints"
	"campusconnect/internal/domain/shared/events"
)

type ComplaintRepository struct {
	mu    sync.RWMutex
	items map[complaints.ComplaintID]*complaints.Complaint
}

func NewComplaintRepository() *ComplaintRepository {
	return &ComplaintRepository{items: make(map[complaints.ComplaintID]*complaints.Complaint)}
}

func (r *ComplaintRepository) ByID(ctx context.Context, id complaints.ComplaintID) (*complaints.Complaint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok {
		return nil, complaints.ErrNotFound
	}
	return cloneComplaint(c), nil
}

func (r *ComplaintRepository) Save(ctx context.Context, c *complaints.Complaint) error {
	if c == nil || c.ID == "" {
		return complaints.ErrIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = cloneComplaint(c)
	return nil
}

func (r *ComplaintRepository) List(ctx context.Context, params complaints.ListParams) ([]*complaints.Complaint, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*complaints.Complaint
	for _, c := range r.items {
		if params.Status != "" && c.Status != params.Status {
			continue
		}
		matched = append(matched, c)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	page := paginate(matched, params.Offset, params.Limit)
	out := make([]*complaints.Complaint, 0, len(page))
	for _, c := range page {
		out = append(out, cloneComplaint(c))
	}
	return out, len(matched), nil
}

func (r *ComplaintRepository) revertComplaint(id complaints.ComplaintID, prev *complaints.Complaint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev == nil {
		delete(r.items, id)
		return
	}
	r.items[id] = cloneComplaint(prev)
}

func cloneComplaint(c *complaints.Complaint) *complaints.Complaint {
	out := *c
	out.EventRecorder = events.EventRecorder{}
	return &out
}

var _ complaints.Repository = (*ComplaintRepository)(nil)
