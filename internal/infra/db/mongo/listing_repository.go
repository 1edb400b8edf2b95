package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainlistings "xrent/internal/domain/listings"
)

const listingSequence = "listing_id"

type ListingRepository struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

func NewListingRepository(db *mongo.Database) *ListingRepository {
	return &ListingRepository{
		col:      db.Collection("agg_listing"),
		counters: db.Collection("app_counters"),
	}
}

func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	var doc listingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": int64(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("mongo: listing %d: %w", id, domainlistings.ErrNotFound)
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	doc := newListingDocument(listing)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *ListingRepository) All(ctx context.Context) ([]*domainlistings.Listing, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*domainlistings.Listing
	for cur.Next(ctx) {
		var doc listingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		listing, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, listing)
	}
	return out, cur.Err()
}

// NextID increments a counter document. Seeded listings keep their own ids,
// so the counter is first raised to the highest stored id.
func (r *ListingRepository) NextID(ctx context.Context) (domainlistings.ListingID, error) {
	var top listingDocument
	err := r.col.FindOne(ctx, bson.M{}, options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})).Decode(&top)
	if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, err
	}
	if top.ID > 0 {
		_, err := r.counters.UpdateByID(ctx, listingSequence, bson.M{"$max": bson.M{"value": top.ID}}, options.Update().SetUpsert(true))
		if err != nil {
			return 0, err
		}
	}
	var counter struct {
		Value int64 `bson:"value"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	if err := r.counters.FindOneAndUpdate(ctx, bson.M{"_id": listingSequence}, bson.M{"$inc": bson.M{"value": 1}}, opts).Decode(&counter); err != nil {
		return 0, err
	}
	return domainlistings.ListingID(counter.Value), nil
}

func (r *ListingRepository) FetchListings(ctx context.Context) ([]*domainlistings.Listing, error) {
	return r.All(ctx)
}

type listingDocument struct {
	ID             int64  `bson:"_id"`
	Lender         string `bson:"lender"`
	TokenSymbol    string `bson:"token_symbol"`
	TokenAddress   string `bson:"token_address"`
	Amount         string `bson:"amount"`
	RentalRate     string `bson:"rental_rate"`
	CollateralRate string `bson:"collateral_rate"`
	MinDuration    int    `bson:"min_duration"`
	MaxDuration    int    `bson:"max_duration"`
	IsAvailable    bool   `bson:"is_available"`
	CurrentRental  string `bson:"current_rental,omitempty"`
	CreatedAt      int64  `bson:"created_at"`
	UpdatedAt      int64  `bson:"updated_at"`
}

func newListingDocument(l *domainlistings.Listing) listingDocument {
	return listingDocument{
		ID:             int64(l.ID),
		Lender:         string(l.Lender),
		TokenSymbol:    l.TokenSymbol,
		TokenAddress:   l.TokenAddress,
		Amount:         l.Amount.String(),
		RentalRate:     l.RentalRate.String(),
		CollateralRate: l.CollateralRate.String(),
		MinDuration:    l.MinDuration,
		MaxDuration:    l.MaxDuration,
		IsAvailable:    l.IsAvailable,
		CurrentRental:  l.CurrentRental,
		CreatedAt:      timeToTimestamp(l.CreatedAt),
		UpdatedAt:      timeToTimestamp(l.UpdatedAt),
	}
}

func (d listingDocument) toAggregate() (*domainlistings.Listing, error) {
	amount, err := decimal.NewFromString(d.Amount)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing %d amount: %w", d.ID, err)
	}
	rate, err := decimal.NewFromString(d.RentalRate)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing %d rental rate: %w", d.ID, err)
	}
	collateral, err := decimal.NewFromString(d.CollateralRate)
	if err != nil {
		return nil, fmt.Errorf("mongo: listing %d collateral rate: %w", d.ID, err)
	}
	return &domainlistings.Listing{
		ID:             domainlistings.ListingID(d.ID),
		Lender:         domainlistings.LenderID(d.Lender),
		TokenSymbol:    d.TokenSymbol,
		TokenAddress:   d.TokenAddress,
		Amount:         amount,
		RentalRate:     rate,
		CollateralRate: collateral,
		MinDuration:    d.MinDuration,
		MaxDuration:    d.MaxDuration,
		IsAvailable:    d.IsAvailable,
		CurrentRental:  d.CurrentRental,
		CreatedAt:      timestampToTime(d.CreatedAt),
		UpdatedAt:      timestampToTime(d.UpdatedAt),
	}, nil
}

func timeToTimestamp(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func timestampToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
