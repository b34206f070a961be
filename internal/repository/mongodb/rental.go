package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"carrental/internal/domain"
	"carrental/internal/repository"
)

type paymentDoc struct {
	Method         string `bson:"method,omitempty"`
	CardNumber     string `bson:"cardNumber,omitempty"`
	CardName       string `bson:"cardName,omitempty"`
	ExpirationDate string `bson:"expirationDate,omitempty"`
}

type rentalDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	LegacyID        mixed              `bson:"id,omitempty"`
	CarID           mixed              `bson:"carId"`
	UserID          mixed              `bson:"userId"`
	UserEmail       string             `bson:"userEmail"`
	Username        string             `bson:"username"`
	StartDate       string             `bson:"startDate"`
	EndDate         string             `bson:"endDate"`
	TotalDays       int                `bson:"totalDays"`
	PricePerDay     float64            `bson:"pricePerDay"`
	TotalPrice      float64            `bson:"totalPrice"`
	PickupLocation  string             `bson:"pickupLocation"`
	DropoffLocation string             `bson:"dropoffLocation"`
	SpecialRequests string             `bson:"specialRequests"`
	PaymentInfo     *paymentDoc        `bson:"paymentInfo,omitempty"`
	Status          string             `bson:"status"`
	CreatedAt       time.Time          `bson:"createdAt"`
}

func (d *rentalDoc) toDomain() *domain.Rental {
	rental := &domain.Rental{
		Key:             d.ID.Hex(),
		LegacyID:        domain.Ref(d.LegacyID),
		CarRef:          domain.Ref(d.CarID),
		UserRef:         domain.Ref(d.UserID),
		UserEmail:       d.UserEmail,
		Username:        d.Username,
		StartDate:       d.StartDate,
		EndDate:         d.EndDate,
		TotalDays:       d.TotalDays,
		PricePerDay:     d.PricePerDay,
		TotalPrice:      d.TotalPrice,
		PickupLocation:  d.PickupLocation,
		DropoffLocation: d.DropoffLocation,
		SpecialRequests: d.SpecialRequests,
		Status:          domain.RentalStatus(d.Status),
		CreatedAt:       d.CreatedAt,
	}
	if rental.Status == "" {
		rental.Status = domain.RentalStatusActive
	}
	if p := d.PaymentInfo; p != nil {
		rental.PaymentInfo = &domain.PaymentInfo{
			Method:         p.Method,
			CardNumber:     p.CardNumber,
			CardName:       p.CardName,
			ExpirationDate: p.ExpirationDate,
		}
	}
	return rental
}

func newRentalDoc(rental *domain.Rental) (*rentalDoc, error) {
	doc := &rentalDoc{
		LegacyID:        mixed(rental.LegacyID),
		CarID:           mixed(rental.CarRef),
		UserID:          mixed(rental.UserRef),
		UserEmail:       rental.UserEmail,
		Username:        rental.Username,
		StartDate:       rental.StartDate,
		EndDate:         rental.EndDate,
		TotalDays:       rental.TotalDays,
		PricePerDay:     rental.PricePerDay,
		TotalPrice:      rental.TotalPrice,
		PickupLocation:  rental.PickupLocation,
		DropoffLocation: rental.DropoffLocation,
		SpecialRequests: rental.SpecialRequests,
		Status:          string(rental.Status),
		CreatedAt:       rental.CreatedAt,
	}
	if rental.Key != "" {
		oid, err := primitive.ObjectIDFromHex(rental.Key)
		if err != nil {
			return nil, fmt.Errorf("rental key %q: %w", rental.Key, err)
		}
		doc.ID = oid
	}
	if p := rental.PaymentInfo; p != nil {
		doc.PaymentInfo = &paymentDoc{
			Method:         p.Method,
			CardNumber:     p.CardNumber,
			CardName:       p.CardName,
			ExpirationDate: p.ExpirationDate,
		}
	}
	return doc, nil
}

// rentalQuery translates filter into a MongoDB query document.
func rentalQuery(filter repository.RentalFilter) bson.M {
	query := bson.M{}

	if len(filter.CarRefs) > 0 {
		query["carId"] = bson.M{"$in": mixedIn(filter.CarRefs)}
	}

	var owner bson.A
	if len(filter.UserRefs) > 0 {
		owner = append(owner, bson.M{"userId": bson.M{"$in": mixedIn(filter.UserRefs)}})
	}
	if filter.UserEmail != "" {
		owner = append(owner, bson.M{"userEmail": emailPattern(filter.UserEmail)})
	}
	if len(owner) > 0 {
		query["$or"] = owner
	}

	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}
	if filter.EndBefore != "" {
		query["endDate"] = bson.M{"$lt": filter.EndBefore}
	}
	return query
}

// RentalRepository implements repository.RentalRepository using MongoDB.
type RentalRepository struct {
	coll *mongo.Collection
}

// NewRentalRepository creates a new RentalRepository.
func NewRentalRepository(db *mongo.Database) *RentalRepository {
	return &RentalRepository{coll: db.Collection(RentalsCollection)}
}

// EnsureIndexes creates the index used by overlap checks.
func (r *RentalRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "carId", Value: 1},
			{Key: "status", Value: 1},
			{Key: "startDate", Value: 1},
			{Key: "endDate", Value: 1},
		},
	})
	return err
}

// ParseKey reports whether raw is an ObjectID.
func (r *RentalRepository) ParseKey(raw string) (string, bool) {
	return parseKey(raw)
}

// GetByKey retrieves a rental by ObjectID.
func (r *RentalRepository) GetByKey(ctx context.Context, key string) (*domain.Rental, error) {
	filter, err := byKey(key)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, filter)
}

// GetByLegacyID retrieves a rental by its legacy id field.
func (r *RentalRepository) GetByLegacyID(ctx context.Context, id domain.Ref) (*domain.Rental, error) {
	return r.get(ctx, bson.M{"id": mixed(id)})
}

func (r *RentalRepository) get(ctx context.Context, filter bson.M) (*domain.Rental, error) {
	var doc rentalDoc
	if err := findOne(ctx, r.coll, filter, &doc); err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}

// Create inserts a rental with a new ObjectID.
func (r *RentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	doc, err := newRentalDoc(rental)
	if err != nil {
		return err
	}
	doc.ID = primitive.NewObjectID()

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return err
	}
	rental.Key = doc.ID.Hex()
	return nil
}

// Update replaces the rental document with the same ObjectID.
func (r *RentalRepository) Update(ctx context.Context, rental *domain.Rental) error {
	doc, err := newRentalDoc(rental)
	if err != nil {
		return repository.ErrNotFound
	}

	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Find returns the rentals matching filter in insertion order.
func (r *RentalRepository) Find(ctx context.Context, filter repository.RentalFilter) ([]*domain.Rental, error) {
	cur, err := r.coll.Find(ctx, rentalQuery(filter), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rentals []*domain.Rental
	for cur.Next(ctx) {
		var doc rentalDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		rentals = append(rentals, doc.toDomain())
	}
	return rentals, cur.Err()
}
