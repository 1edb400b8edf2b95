package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
	domainpricing "xrent/internal/domain/pricing"
	domainrentals "xrent/internal/domain/rentals"
	"xrent/internal/domain/shared/daterange"
)

type RentalRepository struct {
	col *mongo.Collection
}

func NewRentalRepository(db *mongo.Database) *RentalRepository {
	col := db.Collection("agg_rental")
	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{{Key: "borrower", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "lender", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	return &RentalRepository{col: col}
}

func (r *RentalRepository) ByID(ctx context.Context, id domainrentals.RentalID) (*domainrentals.Rental, error) {
	var doc rentalDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("mongo: rental %s: %w", id, domainrentals.ErrNotFound)
		}
		return nil, err
	}
	return doc.toAggregate()
}

func (r *RentalRepository) Save(ctx context.Context, rental *domainrentals.Rental) error {
	doc := newRentalDocument(rental)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *RentalRepository) ListByBorrower(ctx context.Context, borrower account.Key) ([]*domainrentals.Rental, error) {
	return r.find(ctx, bson.M{"borrower": borrower.String()})
}

func (r *RentalRepository) ListByLender(ctx context.Context, lender domainlistings.LenderID) ([]*domainrentals.Rental, error) {
	return r.find(ctx, bson.M{"lender": string(lender)})
}

func (r *RentalRepository) find(ctx context.Context, filter bson.M) ([]*domainrentals.Rental, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*domainrentals.Rental
	for cur.Next(ctx) {
		var doc rentalDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		rental, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, rental)
	}
	return out, cur.Err()
}

type rentalDocument struct {
	ID              string        `bson:"_id"`
	ListingID       int64         `bson:"listing_id"`
	Lender          string        `bson:"lender"`
	Borrower        string        `bson:"borrower"`
	TokenSymbol     string        `bson:"token_symbol"`
	Duration        int           `bson:"duration"`
	Costs           costsDocument `bson:"costs"`
	Status          string        `bson:"status"`
	ConfirmationRef string        `bson:"confirmation_ref"`
	Period          rangeDocument `bson:"period"`
	Closure         string        `bson:"closure,omitempty"`
	ClosedAt        int64         `bson:"closed_at,omitempty"`
	Late            bool          `bson:"late"`
	Refund          string        `bson:"collateral_refund,omitempty"`
	Penalty         string        `bson:"collateral_penalty,omitempty"`
	CreatedAt       int64         `bson:"created_at"`
	UpdatedAt       int64         `bson:"updated_at"`
}

type costsDocument struct {
	RentalFee   string `bson:"rental_fee"`
	Collateral  string `bson:"collateral"`
	PlatformFee string `bson:"platform_fee"`
	Total       string `bson:"total"`
}

type rangeDocument struct {
	Start int64 `bson:"start"`
	End   int64 `bson:"end"`
}

func newRentalDocument(r *domainrentals.Rental) rentalDocument {
	doc := rentalDocument{
		ID:          string(r.ID),
		ListingID:   int64(r.ListingID),
		Lender:      string(r.Lender),
		Borrower:    r.Borrower.String(),
		TokenSymbol: r.TokenSymbol,
		Duration:    r.Duration,
		Costs: costsDocument{
			RentalFee:   r.Costs.RentalFee.String(),
			Collateral:  r.Costs.Collateral.String(),
			PlatformFee: r.Costs.PlatformFee.String(),
			Total:       r.Costs.Total.String(),
		},
		Status:          string(r.Status),
		ConfirmationRef: r.ConfirmationRef,
		Period:          rangeDocument{Start: timeToTimestamp(r.Period.Start), End: timeToTimestamp(r.Period.End)},
		Closure:         string(r.Closure),
		ClosedAt:        timeToTimestamp(r.ClosedAt),
		Late:            r.Late,
		CreatedAt:       timeToTimestamp(r.CreatedAt),
		UpdatedAt:       timeToTimestamp(r.UpdatedAt),
	}
	if r.Status == domainrentals.StatusCompleted {
		doc.Refund = r.Settlement.Refund.String()
		doc.Penalty = r.Settlement.Penalty.String()
	}
	return doc
}

func (d rentalDocument) toAggregate() (*domainrentals.Rental, error) {
	var parsed [4]decimal.Decimal
	for i, raw := range []string{d.Costs.RentalFee, d.Costs.Collateral, d.Costs.PlatformFee, d.Costs.Total} {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("mongo: rental %s costs: %w", d.ID, err)
		}
		parsed[i] = v
	}
	var settlement domainpricing.CollateralSettlement
	if d.Refund != "" || d.Penalty != "" {
		refund, err := decimal.NewFromString(d.Refund)
		if err != nil {
			return nil, fmt.Errorf("mongo: rental %s refund: %w", d.ID, err)
		}
		penalty, err := decimal.NewFromString(d.Penalty)
		if err != nil {
			return nil, fmt.Errorf("mongo: rental %s penalty: %w", d.ID, err)
		}
		settlement = domainpricing.CollateralSettlement{Refund: refund, Penalty: penalty}
	}
	return &domainrentals.Rental{
		ID:          domainrentals.RentalID(d.ID),
		ListingID:   domainlistings.ListingID(d.ListingID),
		Lender:      domainlistings.LenderID(d.Lender),
		Borrower:    account.Key(d.Borrower),
		TokenSymbol: d.TokenSymbol,
		Duration:    d.Duration,
		Costs: domainpricing.CostBreakdown{
			Duration:    d.Duration,
			RentalFee:   parsed[0],
			Collateral:  parsed[1],
			PlatformFee: parsed[2],
			Total:       parsed[3],
		},
		Status:          domainrentals.Status(d.Status),
		ConfirmationRef: d.ConfirmationRef,
		Period:          daterange.DateRange{Start: timestampToTime(d.Period.Start), End: timestampToTime(d.Period.End)},
		Closure:         domainrentals.Closure(d.Closure),
		ClosedAt:        timestampToTime(d.ClosedAt),
		Late:            d.Late,
		Settlement:      settlement,
		CreatedAt:       timestampToTime(d.CreatedAt),
		UpdatedAt:       timestampToTime(d.UpdatedAt),
	}, nil
}
