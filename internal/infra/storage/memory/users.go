package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	domainauth "campusconnect/internal/domain/auth"
	domainuser "campusconnect/internal/domain/user"
)

// UserRepository keeps users in a map guarded by one lock. ApplyRating holds
// the write lock for the whole read-modify-write.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[domainuser.ID]*domainuser.User
	byEmail map[string]domainuser.ID
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[domainuser.ID]*domainuser.User),
		byEmail: make(map[string]domainuser.ID),
	}
}

func (r *UserRepository) ByID(ctx context.Context, id domainuser.ID) (*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if user, ok := r.byID[id]; ok {
		return cloneUser(user), nil
	}
	return nil, domainuser.ErrNotFound
}

func (r *UserRepository) ByIDs(ctx context.Context, ids []domainuser.ID) (map[domainuser.ID]*domainuser.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[domainuser.ID]*domainuser.User, len(ids))
	for _, id := range ids {
		if user, ok := r.byID[id]; ok {
			out[id] = cloneUser(user)
		}
	}
	return out, nil
}

func (r *UserRepository) List(ctx context.Context, params domainuser.ListParams) ([]*domainuser.User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	needle := strings.ToLower(strings.TrimSpace(params.Query))
	var matched []*domainuser.User
	for _, u := range r.byID {
		if params.Exclude != "" && u.ID == params.Exclude {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(u.Name), needle) && !strings.Contains(u.Email, needle) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name == matched[j].Name {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].Name < matched[j].Name
	})
	total := len(matched)
	page := paginate(matched, params.Offset, params.Limit)
	out := make([]*domainuser.User, 0, len(page))
	for _, u := range page {
		out = append(out, cloneUser(u))
	}
	return out, total, nil
}

func (r *UserRepository) Save(ctx context.Context, user *domainuser.User) error {
	if user == nil || strings.TrimSpace(string(user.ID)) == "" {
		return domainuser.ErrIDRequired
	}
	emailKey := strings.ToLower(strings.TrimSpace(user.Email))
	if emailKey == "" {
		return domainuser.ErrEmailRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existingID, ok := r.byEmail[emailKey]; ok && existingID != user.ID {
		return domainuser.ErrEmailAlreadyUsed
	}
	if prev, ok := r.byID[user.ID]; ok {
		delete(r.byEmail, strings.ToLower(prev.Email))
	}
	r.byEmail[emailKey] = user.ID
	r.byID[user.ID] = cloneUser(user)
	return nil
}

func (r *UserRepository) ApplyRating(ctx context.Context, id domainuser.ID, rating int) (domainuser.RatingAggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok {
		return domainuser.RatingAggregate{}, domainuser.ErrNotFound
	}
	if err := user.AddRating(rating, time.Now()); err != nil {
		return domainuser.RatingAggregate{}, err
	}
	return user.Rating(), nil
}

func (r *UserRepository) revertUser(id domainuser.ID, prev *domainuser.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.byID[id]; ok {
		delete(r.byEmail, strings.ToLower(current.Email))
	}
	if prev == nil {
		delete(r.byID, id)
		return
	}
	r.byEmail[strings.ToLower(prev.Email)] = id
	r.byID[id] = cloneUser(prev)
}

// retractRating removes one rating from the aggregate. Aggregates are sums,
// so this is safe whatever else was applied since.
func (r *UserRepository) retractRating(id domainuser.ID, rating int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.byID[id]
	if !ok || user.NumReviews == 0 {
		return
	}
	user.RatingTotal -= rating
	user.NumReviews--
	user.AverageRating = domainuser.Average(user.RatingTotal, user.NumReviews)
}

func cloneUser(u *domainuser.User) *domainuser.User {
	if u == nil {
		return nil
	}
	copyUser := *u
	copyUser.Roles = append([]domainuser.Role(nil), u.Roles...)
	return &copyUser
}

// SessionStore keeps bearer sessions in memory; expired sessions are dropped
// on read.
type SessionStore struct {
	mu     sync.RWMutex
	tokens map[domainauth.Token]domainauth.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{tokens: make(map[domainauth.Token]domainauth.Session)}
}

func (s *SessionStore) Save(ctx context.Context, session *domainauth.Session) error {
	if session == nil || session.Token == "" {
		return domainauth.ErrTokenRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[session.Token] = *session
	return nil
}

func (s *SessionStore) Get(ctx context.Context, token domainauth.Token) (*domainauth.Session, error) {
	s.mu.RLock()
	session, ok := s.tokens[token]
	s.mu.RUnlock()
	if !ok {
		return nil, domainauth.ErrSessionNotFound
	}
	if session.Expired(time.Now()) {
		_ = s.Delete(ctx, token)
		return nil, domainauth.ErrSessionNotFound
	}
	return &session, nil
}

func (s *SessionStore) Delete(ctx context.Context, token domainauth.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

var (
	_ domainuser.Repository   = (*UserRepository)(nil)
	_ domainauth.SessionStore = (*SessionStore)(nil)
)
