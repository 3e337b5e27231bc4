package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusconnect/internal/app/bootstrap"
	"campusconnect/internal/app/services/auth"
	domainuser "campusconnect/internal/domain/user"
	"campusconnect/internal/infra/config"
	"campusconnect/internal/infra/obs"
	"campusconnect/internal/infra/realtime"
	"campusconnect/internal/infra/security"
	"campusconnect/internal/infra/storage/memory"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
	tokens map[string]string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	stores := memory.NewStores()
	hub := realtime.NewHub(nil, logger)
	t.Cleanup(hub.Close)
	app, err := bootstrap.Build(bootstrap.Options{
		UoWFactory:  stores.Factory(),
		Outbox:      memory.NewOutbox(hub),
		Idempotency: memory.NewIdempotencyStore(),
		Logger:      logger,
	})
	require.NoError(t, err)

	authSvc := &auth.Service{
		Users:    stores.Users,
		Sessions: memory.NewSessionStore(),
		Tokens:   security.RandomTokenGenerator{},
		Logger:   logger,
	}
	s := &testServer{t: t, tokens: map[string]string{}}
	for _, u := range []struct {
		id, name string
		roles    []domainuser.Role
	}{
		{"sam", "Sam Seller", nil},
		{"ana", "Ana", nil},
		{"ben", "Ben", nil},
		{"root", "Root", []domainuser.Role{domainuser.RoleAdmin}},
	} {
		user, err := domainuser.NewUser(domainuser.CreateParams{ID: domainuser.ID(u.id), Email: u.id + "@campus.edu", Name: u.name, Roles: u.roles})
		require.NoError(t, err)
		require.NoError(t, stores.Users.Save(ctx, user))
		token, err := authSvc.IssueSession(ctx, user.ID)
		require.NoError(t, err)
		s.tokens[u.id] = token
	}

	s.router = NewRouter(config.Config{Env: "test"}, obs.Middleware{Logger: logger}, obs.HealthHandlers{}, Handlers{
		Negotiation:    NegotiationHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Listing:        ListingHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		User:           UserHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Complaint:      ComplaintHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Admin:          AdminHandler{Commands: app.Commands, Queries: app.Queries, Logger: logger},
		Auth:           AuthHandler{Service: authSvc, Logger: logger},
		Realtime:       RealtimeHandler{Hub: hub, Logger: logger},
		AuthMiddleware: AuthMiddleware{Service: authSvc, Logger: logger}.Handle,
	})
	return s
}

func (s *testServer) do(method, path, as string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	return s.doKeyed(method, path, as, "", body)
}

func (s *testServer) doKeyed(method, path, as, key string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+s.tokens[as])
	}
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type idBody struct {
	ID string `json:"id"`
}

type conversationFields struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	SaleStatus string `json:"sale_status"`
}

type conversationBody struct {
	Conversation          conversationFields `json:"conversation"`
	RejectedConversations int                `json:"rejectedConversations"`
}

func (s *testServer) createListing(as string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/v1/listings", as, gin.H{
		"title":       "Desk lamp",
		"description": "Warm light, barely used",
		"category":    "Furniture",
		"department":  "Physics",
		"price":       15.5,
		"image":       "https://img.example/lamp.png",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[idBody](s.t, rec).ID
}

func TestProtectedRoutesRequireSession(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/v1/messages/conversations", "/api/v1/users/profile", "/api/v1/ws"} {
		rec := s.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.JSONEq(t, `{"error":"authentication required","code":"unauthorized"}`, rec.Body.String())
	}
}

func TestPublicCatalogRoutes(t *testing.T) {
	s := newTestServer(t)
	id := s.createListing("sam")

	rec := s.do(http.MethodGet, "/api/v1/listings?category=furniture", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Items []struct {
			ID     string   `json:"id"`
			Price  float64  `json:"price"`
			Images []string `json:"images"`
		} `json:"items"`
		Total int `json:"total"`
	}](t, rec)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, id, page.Items[0].ID)
	assert.InDelta(t, 15.5, page.Items[0].Price, 1e-9)
	assert.Equal(t, []string{"https://img.example/lamp.png"}, page.Items[0].Images)

	rec = s.do(http.MethodGet, "/api/v1/listings/categories", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Furniture")

	rec = s.do(http.MethodGet, "/api/v1/listings/"+id, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/listings/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decode[errorBody](t, rec).Code)
}

func TestNegotiationFlowOverHTTP(t *testing.T) {
	s := newTestServer(t)
	listingID := s.createListing("sam")

	rec := s.do(http.MethodPost, "/api/v1/messages/initiate", "ana", gin.H{"receiver": "sam", "listing": listingID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conv := decode[conversationBody](t, rec).Conversation
	assert.Equal(t, "pending", conv.Status)

	rec = s.do(http.MethodPost, "/api/v1/messages/initiate", "ben", gin.H{"receiver": "sam", "listing": listingID})
	require.Equal(t, http.StatusCreated, rec.Code)
	rival := decode[conversationBody](t, rec).Conversation

	rec = s.do(http.MethodPost, "/api/v1/messages/conversations/"+conv.ID+"/accept", "sam", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "accepted", decode[struct {
		Status string `json:"status"`
	}](t, rec).Status)

	rec = s.do(http.MethodPost, "/api/v1/messages", "ana", gin.H{"conversationId": conv.ID, "content": "Still available?"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/v1/messages?userId=sam&listingId="+listingID, "ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decode[struct {
		Items []struct {
			Content string `json:"content"`
		} `json:"items"`
	}](t, rec)
	require.Len(t, msgs.Items, 2)
	assert.Equal(t, "Still available?", msgs.Items[1].Content)

	rec = s.do(http.MethodPost, "/api/v1/messages/initiate-sale", "ana", gin.H{"conversationId": conv.ID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/messages/initiate-sale", "sam", gin.H{"conversationId": conv.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "pending_confirmation", decode[conversationBody](t, rec).Conversation.SaleStatus)

	rec = s.do(http.MethodPost, "/api/v1/messages/confirm-sale", "ana", gin.H{"conversationId": conv.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	confirmed := decode[conversationBody](t, rec)
	assert.Equal(t, "confirmed", confirmed.Conversation.SaleStatus)
	assert.Equal(t, 1, confirmed.RejectedConversations)

	rec = s.do(http.MethodGet, "/api/v1/messages/conversations", "ben", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), rival.ID)

	rec = s.do(http.MethodPost, "/api/v1/messages/conversations/"+conv.ID+"/rate", "ana", gin.H{"rating": 5})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rating := decode[struct {
		AverageRating float64 `json:"average_rating"`
		NumReviews    int     `json:"num_reviews"`
	}](t, rec)
	assert.InDelta(t, 5.0, rating.AverageRating, 1e-9)
	assert.Equal(t, 1, rating.NumReviews)

	rec = s.do(http.MethodPost, "/api/v1/messages/conversations/"+conv.ID+"/rate", "ana", gin.H{"rating": 4})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/listings/purchases", "ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), listingID)
}

func TestSaleRequestNeedsConversationID(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/v1/messages/initiate-sale", "sam", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation", decode[errorBody](t, rec).Code)
}

func TestAdminRoutesAreForbiddenForStudents(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/api/v1/admin/users", "/api/v1/admin/users/ana", "/api/v1/admin/listings", "/api/v1/admin/complaints", "/api/v1/complaints"} {
		rec := s.do(http.MethodGet, path, "ana", nil)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)

		rec = s.do(http.MethodGet, path, "root", nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestComplaintLifecycle(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/v1/complaints", "ana", gin.H{"reportedUser": "ben", "type": "spam", "description": "keeps messaging"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decode[idBody](t, rec).ID

	rec = s.do(http.MethodPatch, "/api/v1/complaints/"+id+"/status", "ana", gin.H{"status": "resolved"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPatch, "/api/v1/complaints/"+id+"/status", "root", gin.H{"status": "escalated"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPatch, "/api/v1/complaints/"+id+"/status", "root", gin.H{"status": "resolved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"resolved"`)
}

func TestProfileAndSession(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPut, "/api/v1/users/profile", "ana", gin.H{"college": "MIT"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"college":"MIT"`)

	rec = s.do(http.MethodGet, "/api/v1/users/all", "ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"id":"ana"`)

	rec = s.do(http.MethodGet, "/api/v1/auth/me", "ana", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ana", decode[idBody](t, rec).ID)

	rec = s.do(http.MethodPost, "/api/v1/auth/logout", "ana", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/api/v1/users/profile", "ana", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/livez", "", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/readyz", "", nil).Code)
}

func TestIdempotencyKeyDoesNotLeakAcrossCallers(t *testing.T) {
	s := newTestServer(t)
	listingID := s.createListing("sam")

	rec := s.do(http.MethodPost, "/api/v1/messages/initiate", "ana", gin.H{"receiver": "sam", "listing": listingID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	conv := decode[conversationBody](t, rec).Conversation
	rec = s.do(http.MethodPost, "/api/v1/messages/conversations/"+conv.ID+"/accept", "sam", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := gin.H{"conversationId": conv.ID, "content": "my phone is 555-0101"}
	rec = s.doKeyed(http.MethodPost, "/api/v1/messages", "ana", "k1", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[idBody](t, rec).ID

	rec = s.doKeyed(http.MethodPost, "/api/v1/messages", "ana", "k1", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, first, decode[idBody](t, rec).ID, "same caller replays the stored message")

	rec = s.doKeyed(http.MethodPost, "/api/v1/messages", "ben", "k1", body)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "555-0101")
	assert.Equal(t, "forbidden", decode[errorBody](t, rec).Code)
}

func TestAdminSettleListing(t *testing.T) {
	s := newTestServer(t)
	listingID := s.createListing("sam")

	rec := s.do(http.MethodPost, "/api/v1/messages/initiate", "ana", gin.H{"receiver": "sam", "listing": listingID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	convID := decode[conversationBody](t, rec).Conversation.ID
	rec = s.do(http.MethodPost, "/api/v1/messages/conversations/"+convID+"/accept", "sam", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	settle := "/api/v1/admin/listings/" + listingID + "/settle"
	rec = s.do(http.MethodPost, settle, "root", gin.H{"conversationId": convID})
	assert.Equal(t, http.StatusConflict, rec.Code, "an unconfirmed sale cannot be settled")

	rec = s.do(http.MethodPost, "/api/v1/messages/initiate-sale", "sam", gin.H{"conversationId": convID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/api/v1/messages/confirm-sale", "ana", gin.H{"conversationId": convID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, settle, "ana", gin.H{"conversationId": convID})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, settle, "root", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, settle, "root", gin.H{"conversationId": convID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"rejected":0}`, rec.Body.String())
}
