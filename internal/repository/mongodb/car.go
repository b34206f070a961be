package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"carrental/internal/domain"
)

type carDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	LegacyID     mixed              `bson:"id,omitempty"`
	Make         string             `bson:"make"`
	Model        string             `bson:"model"`
	Year         int                `bson:"year"`
	BodyType     string             `bson:"body_type,omitempty"`
	Seats        int                `bson:"seats,omitempty"`
	Transmission string             `bson:"transmission,omitempty"`
	FuelType     string             `bson:"fuel_type,omitempty"`
	RentalClass  string             `bson:"rental_class,omitempty"`
	Images       struct {
		Main string `bson:"main,omitempty"`
	} `bson:"images,omitempty"`
	PricePerDay float64   `bson:"price_per_day"`
	PriceCamel  float64   `bson:"pricePerDay,omitempty"`
	Currency    string    `bson:"currency,omitempty"`
	Available   *bool     `bson:"available,omitempty"`
	CreatedAt   time.Time `bson:"createdAt,omitempty"`
}

func (d *carDoc) toDomain() *domain.Car {
	car := &domain.Car{
		Key:          d.ID.Hex(),
		LegacyID:     domain.Ref(d.LegacyID),
		Make:         d.Make,
		Model:        d.Model,
		Year:         d.Year,
		BodyType:     d.BodyType,
		Seats:        d.Seats,
		Transmission: d.Transmission,
		FuelType:     d.FuelType,
		RentalClass:  d.RentalClass,
		ImageURL:     d.Images.Main,
		PricePerDay:  d.PricePerDay,
		Currency:     d.Currency,
		Available:    d.Available == nil || *d.Available,
		CreatedAt:    d.CreatedAt,
	}
	if car.PricePerDay == 0 {
		car.PricePerDay = d.PriceCamel
	}
	if car.Currency == "" {
		car.Currency = "USD"
	}
	return car
}

// CarRepository implements repository.CarRepository using MongoDB.
type CarRepository struct {
	coll *mongo.Collection
}

// NewCarRepository creates a new CarRepository.
func NewCarRepository(db *mongo.Database) *CarRepository {
	return &CarRepository{coll: db.Collection(CarsCollection)}
}

// ParseKey reports whether raw is an ObjectID.
func (r *CarRepository) ParseKey(raw string) (string, bool) {
	return parseKey(raw)
}

// GetByKey retrieves a car by ObjectID.
func (r *CarRepository) GetByKey(ctx context.Context, key string) (*domain.Car, error) {
	filter, err := byKey(key)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, filter)
}

// GetByLegacyID retrieves a car by its legacy id field.
func (r *CarRepository) GetByLegacyID(ctx context.Context, id domain.Ref) (*domain.Car, error) {
	return r.get(ctx, bson.M{"id": mixed(id)})
}

func (r *CarRepository) get(ctx context.Context, filter bson.M) (*domain.Car, error) {
	var doc carDoc
	if err := findOne(ctx, r.coll, filter, &doc); err != nil {
		return nil, err
	}
	return doc.toDomain(), nil
}
