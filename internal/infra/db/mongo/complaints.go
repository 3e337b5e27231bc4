package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusconnect/internal/domain/complaints"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

type ComplaintRepository struct {
	col *mongo.Collection
}

func NewComplaintRepository(db *mongo.Database) *ComplaintRepository {
	return &ComplaintRepository{col: db.Collection(complaintsCollection)}
}

func (r *ComplaintRepository) ByID(ctx context.Context, id complaints.ComplaintID) (*complaints.Complaint, error) {
	var doc complaintDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		return nil, notFound(err, complaints.ErrNotFound)
	}
	return doc.toAggregate(), nil
}

func (r *ComplaintRepository) Save(ctx context.Context, c *complaints.Complaint) error {
	if c == nil || c.ID == "" {
		return complaints.ErrIDRequired
	}
	doc := complaintDocument{
		ID:              string(c.ID),
		ReportedBy:      string(c.ReportedBy),
		ReportedUser:    string(c.ReportedUser),
		ReportedListing: string(c.ReportedListing),
		Type:            c.Type,
		Description:     c.Description,
		Status:          string(c.Status),
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *ComplaintRepository) List(ctx context.Context, params complaints.ListParams) ([]*complaints.Complaint, int, error) {
	filter := bson.M{}
	if params.Status != "" {
		filter["status"] = string(params.Status)
	}
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := page(params.Limit, params.Offset).SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	var docs []complaintDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]*complaints.Complaint, 0, len(docs))
	for _, doc := range docs {
		out = append(out, doc.toAggregate())
	}
	return out, int(total), nil
}

type complaintDocument struct {
	ID              string    `bson:"_id"`
	ReportedBy      string    `bson:"reported_by"`
	ReportedUser    string    `bson:"reported_user,omitempty"`
	ReportedListing string    `bson:"reported_listing,omitempty"`
	Type            string    `bson:"type"`
	Description     string    `bson:"description"`
	Status          string    `bson:"status"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func (d complaintDocument) toAggregate() *complaints.Complaint {
	return &complaints.Complaint{
		ID:              complaints.ComplaintID(d.ID),
		ReportedBy:      domainuser.ID(d.ReportedBy),
		ReportedUser:    domainuser.ID(d.ReportedUser),
		ReportedListing: listings.ListingID(d.ReportedListing),
		Type:            d.Type,
		Description:     d.Description,
		Status:          complaints.Status(d.Status),
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

var _ complaints.Repository = (*ComplaintRepository)(nil)
