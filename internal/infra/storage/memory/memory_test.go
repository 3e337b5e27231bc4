package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "campusconnect/internal/app/outbox"
	"campusconnect/internal/app/uow"
	domainauth "campusconnect/internal/domain/auth"
	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, repo *UserRepository, id, name string) *domainuser.User {
	t.Helper()
	u, err := domainuser.NewUser(domainuser.CreateParams{ID: domainuser.ID(id), Email: id + "@campus.edu", Name: name})
	require.NoError(t, err)
	require.NoError(t, repo.Save(context.Background(), u))
	return u
}

func newConversation(t *testing.T, id, a, b, listing string, at time.Time) *conversations.Conversation {
	t.Helper()
	c, err := conversations.NewConversation(conversations.CreateParams{
		ID:        conversations.ConversationID(id),
		Initiator: domainuser.ID(a),
		Receiver:  domainuser.ID(b),
		Listing:   listings.ListingID(listing),
		Now:       at,
	})
	require.NoError(t, err)
	return c
}

func TestUserRepositoryEmailUniqueness(t *testing.T) {
	repo := NewUserRepository()
	seedUser(t, repo, "ana", "Ana")

	dup, err := domainuser.NewUser(domainuser.CreateParams{ID: "other", Email: "ANA@campus.edu", Name: "Other"})
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Save(context.Background(), dup), domainuser.ErrEmailAlreadyUsed)
}

func TestUserRepositoryListFiltersAndPaginates(t *testing.T) {
	repo := NewUserRepository()
	seedUser(t, repo, "u1", "Cara")
	seedUser(t, repo, "u2", "Ana")
	seedUser(t, repo, "u3", "Bo")

	users, total, err := repo.List(context.Background(), domainuser.ListParams{Exclude: "u3", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, users, 1)
	assert.Equal(t, "Ana", users[0].Name)

	users, total, err = repo.List(context.Background(), domainuser.ListParams{Query: "car"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, domainuser.ID("u1"), users[0].ID)
}

func TestApplyRatingConcurrentWritersDoNotLoseUpdates(t *testing.T) {
	repo := NewUserRepository()
	seedUser(t, repo, "seller", "Sam")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(r int) {
			defer wg.Done()
			_, err := repo.ApplyRating(context.Background(), "seller", r)
			assert.NoError(t, err)
		}(i%5 + 1)
	}
	wg.Wait()

	u, err := repo.ByID(context.Background(), "seller")
	require.NoError(t, err)
	assert.Equal(t, 50, u.NumReviews)
	assert.InDelta(t, 3.0, u.AverageRating, 1e-9)
}

func TestSessionStoreDropsExpired(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	live, err := domainauth.NewSession(domainauth.CreateSessionParams{Token: "live", UserID: "u1", TTL: time.Hour})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, live))
	stale, err := domainauth.NewSession(domainauth.CreateSessionParams{Token: "stale", UserID: "u1", TTL: time.Minute, Now: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, stale))

	got, err := store.Get(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, domainuser.ID("u1"), got.UserID)
	_, err = store.Get(ctx, "stale")
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestListingRepositorySearchAndVersioning(t *testing.T) {
	repo := NewListingRepository()
	ctx := context.Background()
	for i, title := range []string{"Calculus textbook", "Desk lamp", "Physics textbook"} {
		l, err := listings.NewListing(listings.CreateListingParams{
			ID:          listings.ListingID(title),
			Seller:      "seller",
			Title:       title,
			Description: "good condition",
			Category:    "Books",
			PriceCents:  1000,
			Now:         t0.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, l))
	}

	res, err := repo.Search(ctx, listings.SearchParams{Text: "TEXTBOOK"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, listings.ListingID("Physics textbook"), res.Items[0].ID)

	first, err := repo.ByID(ctx, "Desk lamp")
	require.NoError(t, err)
	second, err := repo.ByID(ctx, "Desk lamp")
	require.NoError(t, err)
	require.NoError(t, first.MarkSold("buyer", t0))
	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, second.MarkSold("other", t0))
	assert.ErrorIs(t, repo.Save(ctx, second), listings.ErrConcurrentUpdate)

	res, err = repo.Search(ctx, listings.SearchParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total, "sold listings are hidden by default")

	cats, err := repo.Distinct(ctx, listings.FieldCategory)
	require.NoError(t, err)
	assert.Equal(t, []string{"Books"}, cats)
}

func TestConversationRepositoryRejectsDuplicatePair(t *testing.T) {
	repo := NewConversationRepository()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, newConversation(t, "c1", "buyer", "seller", "l1", t0)))

	err := repo.Save(ctx, newConversation(t, "c2", "seller", "buyer", "l1", t0))
	assert.ErrorIs(t, err, conversations.ErrDuplicate)

	require.NoError(t, repo.Save(ctx, newConversation(t, "c3", "seller", "buyer", "", t0)))
	found, err := repo.FindByParticipants(ctx, "seller", "buyer", "l1")
	require.NoError(t, err)
	assert.Equal(t, conversations.ConversationID("c1"), found.ID)
	found, err = repo.FindByParticipants(ctx, "buyer", "seller", "")
	require.NoError(t, err)
	assert.Equal(t, conversations.ConversationID("c3"), found.ID)
}

func TestConversationRepositoryDetectsStaleSave(t *testing.T) {
	repo := NewConversationRepository()
	ctx := context.Background()
	require.NoError(t, repo.Save(ctx, newConversation(t, "c1", "buyer", "seller", "l1", t0)))

	a, err := repo.ByID(ctx, "c1")
	require.NoError(t, err)
	b, err := repo.ByID(ctx, "c1")
	require.NoError(t, err)
	require.NoError(t, a.Accept("seller", t0))
	require.NoError(t, repo.Save(ctx, a))
	require.NoError(t, b.Accept("seller", t0))
	assert.ErrorIs(t, repo.Save(ctx, b), conversations.ErrConcurrentUpdate)
}

func TestConversationRepositoryListForUser(t *testing.T) {
	repo := NewConversationRepository()
	ctx := context.Background()
	older := newConversation(t, "old", "me", "a", "l1", t0)
	newer := newConversation(t, "new", "me", "b", "l1", t0.Add(time.Hour))
	closed := newConversation(t, "closed", "c", "me", "l1", t0.Add(2*time.Hour))
	closed.Reject("me", t0.Add(3*time.Hour))
	other := newConversation(t, "other", "x", "y", "l1", t0)
	for _, c := range []*conversations.Conversation{older, newer, closed, other} {
		require.NoError(t, repo.Save(ctx, c))
	}

	list, err := repo.ListForUser(ctx, "me")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, conversations.ConversationID("new"), list[0].ID)
	assert.Equal(t, conversations.ConversationID("old"), list[1].ID)

	open, err := repo.OpenForListing(ctx, "l1", "old")
	require.NoError(t, err)
	ids := make([]conversations.ConversationID, 0, len(open))
	for _, c := range open {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []conversations.ConversationID{"other", "new"}, ids)
}

func TestMarkBuyerRatedOnlyOnce(t *testing.T) {
	repo := NewConversationRepository()
	ctx := context.Background()
	c := newConversation(t, "c1", "buyer", "seller", "l1", t0)
	require.NoError(t, c.RequestSale("seller", t0))
	require.NoError(t, c.ConfirmSale("buyer", "seller", t0))
	require.NoError(t, repo.Save(ctx, c))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if repo.MarkBuyerRated(ctx, "c1") == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, success)
	assert.ErrorIs(t, repo.MarkBuyerRated(ctx, "c1"), conversations.ErrAlreadyRated)
	assert.ErrorIs(t, repo.MarkBuyerRated(ctx, "missing"), conversations.ErrNotFound)
}

func TestMessageRepositoryBetween(t *testing.T) {
	repo := NewMessageRepository()
	ctx := context.Background()
	save := func(id, from, to, listing string, at time.Time) {
		msg, err := conversations.NewMessage(conversations.MessageParams{
			ID:       conversations.MessageID(id),
			Sender:   domainuser.ID(from),
			Receiver: domainuser.ID(to),
			Content:  "hello " + id,
			Listing:  listings.ListingID(listing),
			Now:      at,
		})
		require.NoError(t, err)
		require.NoError(t, repo.Save(ctx, msg))
	}
	save("m2", "b", "a", "l1", t0.Add(time.Minute))
	save("m1", "a", "b", "l1", t0)
	save("m3", "a", "b", "l2", t0)
	save("m4", "a", "c", "l1", t0)

	msgs, err := repo.Between(ctx, "a", "b", "l1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, conversations.MessageID("m1"), msgs[0].ID)
	assert.Equal(t, conversations.MessageID("m2"), msgs[1].ID)

	msgs, err = repo.Between(ctx, "b", "a", "")
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

type recordingSaga struct {
	name string
	want string
	got  []string
}

func (s *recordingSaga) Name() string              { return s.name }
func (s *recordingSaga) Handles(event string) bool { return event == s.want }
func (s *recordingSaga) OnEvent(ctx context.Context, ev appoutbox.EventRecord) error {
	s.got = append(s.got, ev.ID)
	return nil
}

func TestOutboxFlushDeliversToMatchingSubscribers(t *testing.T) {
	sent := &recordingSaga{name: "sent", want: "message.sent"}
	sold := &recordingSaga{name: "sold", want: "sale.confirmed"}
	box := NewOutbox(sent)
	box.Subscribe(sold)
	ctx := context.Background()

	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "1", Name: "message.sent"}))
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "2", Name: "sale.confirmed"}))
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "3", Name: "message.sent"}))
	require.NoError(t, box.Flush(ctx))
	require.NoError(t, box.Flush(ctx))

	assert.Equal(t, []string{"1", "3"}, sent.got)
	assert.Equal(t, []string{"2"}, sold.got)
	assert.Len(t, box.Records(), 3)
}

func TestUnitRollbackUndoesWrites(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()
	seedUser(t, stores.Users, "sam", "Sam")
	seedUser(t, stores.Users, "ana", "Ana")
	lamp, err := listings.NewListing(listings.CreateListingParams{
		ID: "lamp", Seller: "sam", Title: "Lamp", Description: "Warm", Category: "Furniture", PriceCents: 900,
	})
	require.NoError(t, err)
	require.NoError(t, stores.Listings.Save(ctx, lamp))

	unit, err := stores.Factory().Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	sold, err := unit.Listings().ByID(ctx, "lamp")
	require.NoError(t, err)
	require.NoError(t, sold.MarkSold("ana", t0))
	require.NoError(t, unit.Listings().Save(ctx, sold))
	conv := newConversation(t, "c1", "ana", "sam", "lamp", t0)
	require.NoError(t, unit.Conversations().Save(ctx, conv))
	msg, err := conversations.NewMessage(conversations.MessageParams{ID: "m1", Sender: "ana", Receiver: "sam", Content: "hi", Listing: "lamp", Now: t0})
	require.NoError(t, err)
	require.NoError(t, unit.Messages().Save(ctx, msg))
	_, err = unit.Users().ApplyRating(ctx, "sam", 5)
	require.NoError(t, err)

	require.NoError(t, unit.Rollback(ctx))

	got, err := stores.Listings.ByID(ctx, "lamp")
	require.NoError(t, err)
	assert.False(t, got.IsSold)
	assert.Equal(t, lamp.Version, got.Version)
	_, err = stores.Conversations.ByID(ctx, "c1")
	assert.ErrorIs(t, err, conversations.ErrNotFound)
	_, err = stores.Conversations.FindByParticipants(ctx, "sam", "ana", "lamp")
	assert.ErrorIs(t, err, conversations.ErrNotFound)
	thread, err := stores.Messages.Between(ctx, "ana", "sam", "lamp")
	require.NoError(t, err)
	assert.Empty(t, thread)
	sam, err := stores.Users.ByID(ctx, "sam")
	require.NoError(t, err)
	assert.Zero(t, sam.NumReviews)
}

func TestUnitRollbackKeepsNewerWrites(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()
	lamp, err := listings.NewListing(listings.CreateListingParams{
		ID: "lamp", Seller: "sam", Title: "Lamp", Description: "Warm", Category: "Furniture", PriceCents: 900,
	})
	require.NoError(t, err)
	require.NoError(t, stores.Listings.Save(ctx, lamp))

	unit, err := stores.Factory().Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	mine, err := unit.Listings().ByID(ctx, "lamp")
	require.NoError(t, err)
	require.NoError(t, unit.Listings().Save(ctx, mine))

	theirs, err := stores.Listings.ByID(ctx, "lamp")
	require.NoError(t, err)
	require.NoError(t, theirs.MarkSold("ana", t0))
	require.NoError(t, stores.Listings.Save(ctx, theirs))

	require.NoError(t, unit.Rollback(ctx))
	got, err := stores.Listings.ByID(ctx, "lamp")
	require.NoError(t, err)
	assert.True(t, got.IsSold, "a write made after the unit's own survives its rollback")
}

func TestUnitCommitKeepsWrites(t *testing.T) {
	ctx := context.Background()
	stores := NewStores()
	unit, err := stores.Factory().Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Conversations().Save(ctx, newConversation(t, "c1", "ana", "sam", "", t0)))
	require.NoError(t, unit.Commit(ctx))
	require.NoError(t, unit.Rollback(ctx))

	_, err = stores.Conversations.ByID(ctx, "c1")
	assert.NoError(t, err)
}
