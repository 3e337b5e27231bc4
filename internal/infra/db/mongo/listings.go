package mongo

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
)

type ListingRepository struct {
	col *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{col: db.Collection(listingsCollection)}
}

func (r *ListingRepository) ByID(ctx context.Context, id listings.ListingID) (*listings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		return nil, notFound(err, listings.ErrNotFound)
	}
	return doc.toAggregate(), nil
}

func (r *ListingRepository) ByIDs(ctx context.Context, ids []listings.ListingID) (map[listings.ListingID]*listings.Listing, error) {
	out := make(map[listings.ListingID]*listings.Listing, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, string(id))
	}
	docs, err := r.find(ctx, bson.M{"_id": bson.M{"$in": raw}}, nil)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		out[listings.ListingID(doc.ID)] = doc.toAggregate()
	}
	return out, nil
}

// Save inserts a fresh listing or replaces the stored one when its version
// still matches.
func (r *ListingRepository) Save(ctx context.Context, listing *listings.Listing) error {
	if listing == nil || listing.ID == "" {
		return listings.ErrIDRequired
	}
	doc := newListingDocument(listing)
	doc.Version = listing.Version + 1
	if listing.Version == 0 {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return listings.ErrConcurrentUpdate
			}
			return err
		}
		listing.Version = doc.Version
		return nil
	}
	res, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID, "version": listing.Version}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return listings.ErrConcurrentUpdate
	}
	listing.Version = doc.Version
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id listings.ListingID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return listings.ErrNotFound
	}
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, params listings.SearchParams) (listings.SearchResult, error) {
	opts := params.Normalized()
	filter := searchFilter(opts)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return listings.SearchResult{}, err
	}
	sortBy := bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	if opts.OnlySold {
		sortBy = append(bson.D{{Key: "updated_at", Value: -1}}, sortBy...)
	}
	docs, err := r.find(ctx, filter, page(opts.Limit, opts.Offset).SetSort(sortBy))
	if err != nil {
		return listings.SearchResult{}, err
	}
	items := make([]*listings.Listing, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.toAggregate())
	}
	return listings.SearchResult{Items: items, Total: int(total)}, nil
}

func (r *ListingRepository) Distinct(ctx context.Context, field listings.DistinctField) ([]string, error) {
	var key string
	switch field {
	case listings.FieldCategory:
		key = "category"
	case listings.FieldDepartment:
		key = "department"
	default:
		return nil, nil
	}
	values, err := r.col.Distinct(ctx, key, bson.M{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

func (r *ListingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]listingDocument, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []listingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func searchFilter(p listings.SearchParams) bson.M {
	filter := bson.M{}
	switch {
	case p.OnlySold:
		filter["is_sold"] = true
	case !p.IncludeSold:
		filter["is_sold"] = false
	}
	if p.Category != "" {
		filter["category"] = exactFold(p.Category)
	}
	if p.Department != "" {
		filter["department"] = exactFold(p.Department)
	}
	if p.Seller != "" {
		filter["seller"] = string(p.Seller)
	}
	if p.Buyer != "" {
		filter["buyer"] = string(p.Buyer)
	}
	if p.Text != "" {
		pattern := primitiveRegex(p.Text)
		filter["$or"] = bson.A{bson.M{"title": pattern}, bson.M{"description": pattern}}
	}
	return filter
}

func exactFold(v string) bson.M {
	m := primitiveRegex(v)
	m["$regex"] = "^" + m["$regex"].(string) + "$"
	return m
}

type reviewDocument struct {
	Reviewer  string    `bson:"reviewer"`
	Rating    int       `bson:"rating"`
	Comment   string    `bson:"comment,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
}

type listingDocument struct {
	ID          string           `bson:"_id"`
	Seller      string           `bson:"seller"`
	Title       string           `bson:"title"`
	Description string           `bson:"description"`
	Category    string           `bson:"category"`
	Department  string           `bson:"department,omitempty"`
	PriceCents  int64            `bson:"price_cents"`
	Images      []string         `bson:"images,omitempty"`
	IsSold      bool             `bson:"is_sold"`
	Buyer       string           `bson:"buyer,omitempty"`
	Reviews     []reviewDocument `bson:"reviews,omitempty"`
	Version     int64            `bson:"version"`
	CreatedAt   time.Time        `bson:"created_at"`
	UpdatedAt   time.Time        `bson:"updated_at"`
}

func newListingDocument(l *listings.Listing) listingDocument {
	reviews := make([]reviewDocument, 0, len(l.Reviews))
	for _, rv := range l.Reviews {
		reviews = append(reviews, reviewDocument{
			Reviewer:  string(rv.Reviewer),
			Rating:    rv.Rating,
			Comment:   rv.Comment,
			CreatedAt: rv.CreatedAt,
		})
	}
	return listingDocument{
		ID:          string(l.ID),
		Seller:      string(l.Seller),
		Title:       l.Title,
		Description: l.Description,
		Category:    l.Category,
		Department:  l.Department,
		PriceCents:  l.PriceCents,
		Images:      append([]string(nil), l.Images...),
		IsSold:      l.IsSold,
		Buyer:       string(l.Buyer),
		Reviews:     reviews,
		Version:     l.Version,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
	}
}

func (d listingDocument) toAggregate() *listings.Listing {
	reviews := make([]listings.Review, 0, len(d.Reviews))
	for _, rv := range d.Reviews {
		reviews = append(reviews, listings.Review{
			Reviewer:  domainuser.ID(rv.Reviewer),
			Rating:    rv.Rating,
			Comment:   rv.Comment,
			CreatedAt: rv.CreatedAt.UTC(),
		})
	}
	return &listings.Listing{
		ID:          listings.ListingID(d.ID),
		Seller:      domainuser.ID(d.Seller),
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Department:  d.Department,
		PriceCents:  d.PriceCents,
		Images:      d.Images,
		IsSold:      d.IsSold,
		Buyer:       domainuser.ID(d.Buyer),
		Reviews:     reviews,
		Version:     d.Version,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

var _ listings.ListingRepository = (*ListingRepository)(nil)
