package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusconnect/internal/domain/conversations"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

type ConversationRepository struct {
	col *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{col: db.Collection(conversationsCollection)}
}

func (r *ConversationRepository) ByID(ctx context.Context, id conversations.ConversationID) (*conversations.Conversation, error) {
	var doc conversationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		return nil, notFound(err, conversations.ErrNotFound)
	}
	return doc.toAggregate(), nil
}

func (r *ConversationRepository) FindByParticipants(ctx context.Context, a, b domainuser.ID, listing listings.ListingID) (*conversations.Conversation, error) {
	var doc conversationDocument
	key := conversations.PairKey(a, b, listing)
	if err := r.col.FindOne(ctx, bson.M{"pair_key": key}).Decode(&doc); err != nil {
		return nil, notFound(err, conversations.ErrNotFound)
	}
	return doc.toAggregate(), nil
}

func (r *ConversationRepository) ListForUser(ctx context.Context, participant domainuser.ID) ([]*conversations.Conversation, error) {
	filter := bson.M{
		"participants": string(participant),
		"status":       bson.M{"$ne": string(conversations.StatusRejected)},
	}
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}, {Key: "_id", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *ConversationRepository) OpenForListing(ctx context.Context, listing listings.ListingID, exclude conversations.ConversationID) ([]*conversations.Conversation, error) {
	filter := bson.M{
		"listing": string(listing),
		"status": bson.M{"$in": bson.A{
			string(conversations.StatusPending),
			string(conversations.StatusAccepted),
		}},
	}
	if exclude != "" {
		filter["_id"] = bson.M{"$ne": string(exclude)}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *ConversationRepository) ConfirmedSince(ctx context.Context, since time.Time) ([]*conversations.Conversation, error) {
	filter := bson.M{
		"sale_status":       string(conversations.SaleConfirmed),
		"sale_confirmed_at": bson.M{"$gte": since.UTC()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "sale_confirmed_at", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *ConversationRepository) Save(ctx context.Context, c *conversations.Conversation) error {
	if c == nil || c.ID == "" {
		return conversations.ErrIDRequired
	}
	doc := newConversationDocument(c)
	doc.Version = c.Version + 1
	if c.Version == 0 {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return conversations.ErrDuplicate
			}
			return err
		}
		c.Version = doc.Version
		return nil
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": c.Version}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return conversations.ErrConcurrentUpdate
	}
	c.Version = doc.Version
	return nil
}

// MarkBuyerRated flips the flag with a conditional update so only one of
// several concurrent raters wins.
func (r *ConversationRepository) MarkBuyerRated(ctx context.Context, id conversations.ConversationID) error {
	filter := bson.M{
		"_id":         string(id),
		"sale_status": string(conversations.SaleConfirmed),
		"buyer_rated": false,
	}
	update := bson.M{
		"$set": bson.M{"buyer_rated": true, "updated_at": time.Now().UTC()},
		"$inc": bson.M{"version": 1},
	}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	current, err := r.ByID(ctx, id)
	if err != nil {
		return err
	}
	if err := current.EnsureRateable(); err != nil {
		return err
	}
	return conversations.ErrConcurrentUpdate
}

func (r *ConversationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*conversations.Conversation, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []conversationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*conversations.Conversation, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, nil
}

type conversationDocument struct {
	ID              string     `bson:"_id"`
	PairKey         string     `bson:"pair_key"`
	Participants    []string   `bson:"participants"`
	Listing         string     `bson:"listing,omitempty"`
	Status          string     `bson:"status"`
	InitiatedBy     string     `bson:"initiated_by"`
	LastMessageAt   time.Time  `bson:"last_message_at"`
	SaleStatus      string     `bson:"sale_status"`
	SaleRequestedAt *time.Time `bson:"sale_requested_at,omitempty"`
	SaleConfirmedAt *time.Time `bson:"sale_confirmed_at,omitempty"`
	BuyerRated      bool       `bson:"buyer_rated"`
	Version         int64      `bson:"version"`
	CreatedAt       time.Time  `bson:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at"`
}

func newConversationDocument(c *conversations.Conversation) conversationDocument {
	participants := make([]string, 0, len(c.Participants))
	for _, p := range c.Participants {
		participants = append(participants, string(p))
	}
	return conversationDocument{
		ID:              string(c.ID),
		PairKey:         c.PairKey(),
		Participants:    participants,
		Listing:         string(c.Listing),
		Status:          string(c.Status),
		InitiatedBy:     string(c.InitiatedBy),
		LastMessageAt:   c.LastMessageAt,
		SaleStatus:      string(c.SaleStatus),
		SaleRequestedAt: c.SaleRequestedAt,
		SaleConfirmedAt: c.SaleConfirmedAt,
		BuyerRated:      c.BuyerRated,
		Version:         c.Version,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func (d conversationDocument) toAggregate() *conversations.Conversation {
	participants := make([]domainuser.ID, 0, len(d.Participants))
	for _, p := range d.Participants {
		participants = append(participants, domainuser.ID(p))
	}
	return &conversations.Conversation{
		ID:              conversations.ConversationID(d.ID),
		Participants:    participants,
		Listing:         listings.ListingID(d.Listing),
		Status:          conversations.Status(d.Status),
		InitiatedBy:     domainuser.ID(d.InitiatedBy),
		LastMessageAt:   d.LastMessageAt.UTC(),
		SaleStatus:      conversations.SaleStatus(d.SaleStatus),
		SaleRequestedAt: utcPtr(d.SaleRequestedAt),
		SaleConfirmedAt: utcPtr(d.SaleConfirmedAt),
		BuyerRated:      d.BuyerRated,
		Version:         d.Version,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

type MessageRepository struct {
	col *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) *MessageRepository {
	return &MessageRepository{col: db.Collection(messagesCollection)}
}

func (r *MessageRepository) Save(ctx context.Context, msg *conversations.Message) error {
	if msg == nil || msg.ID == "" {
		return conversations.ErrMessageIDRequired
	}
	doc := messageDocument{
		ID:             string(msg.ID),
		PairKey:        usersKey(msg.Sender, msg.Receiver),
		ConversationID: string(msg.ConversationID),
		Sender:         string(msg.Sender),
		Receiver:       string(msg.Receiver),
		Content:        msg.Content,
		Listing:        string(msg.Listing),
		CreatedAt:      msg.CreatedAt,
	}
	_, err := r.col.InsertOne(ctx, doc)
	return err
}

func (r *MessageRepository) Between(ctx context.Context, a, b domainuser.ID, listing listings.ListingID) ([]*conversations.Message, error) {
	filter := bson.M{"pair_key": usersKey(a, b)}
	if listing != "" {
		filter["listing"] = string(listing)
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []messageDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*conversations.Message, 0, len(docs))
	for _, doc := range docs {
		out = append(out, &conversations.Message{
			ID:             conversations.MessageID(doc.ID),
			ConversationID: conversations.ConversationID(doc.ConversationID),
			Sender:         domainuser.ID(doc.Sender),
			Receiver:       domainuser.ID(doc.Receiver),
			Content:        doc.Content,
			Listing:        listings.ListingID(doc.Listing),
			CreatedAt:      doc.CreatedAt.UTC(),
		})
	}
	return out, nil
}

type messageDocument struct {
	ID             string    `bson:"_id"`
	PairKey        string    `bson:"pair_key"`
	ConversationID string    `bson:"conversation_id"`
	Sender         string    `bson:"sender"`
	Receiver       string    `bson:"receiver"`
	Content        string    `bson:"content"`
	Listing        string    `bson:"listing,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
}

// usersKey identifies the unordered sender/receiver pair.
func usersKey(a, b domainuser.ID) string {
	if b < a {
		a, b = b, a
	}
	return string(a) + "|" + string(b)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

var (
	_ conversations.Repository        = (*ConversationRepository)(nil)
	_ conversations.MessageRepository = (*MessageRepository)(nil)
)
