package file

import (
	"context"
	"time"

	"carrental/internal/domain"
	"carrental/internal/repository"
)

type carImages struct {
	Main string `json:"main,omitempty"`
}

type carRecord struct {
	Key          string     `json:"_id,omitempty"`
	ID           jsonRef    `json:"id"`
	Make         string     `json:"make"`
	Model        string     `json:"model"`
	Year         int        `json:"year"`
	BodyType     string     `json:"body_type,omitempty"`
	Seats        int        `json:"seats,omitempty"`
	Transmission string     `json:"transmission,omitempty"`
	FuelType     string     `json:"fuel_type,omitempty"`
	RentalClass  string     `json:"rental_class,omitempty"`
	Images       carImages  `json:"images,omitempty"`
	PricePerDay  float64    `json:"price_per_day"`
	PriceCamel   float64    `json:"pricePerDay,omitempty"`
	Currency     string     `json:"currency,omitempty"`
	Available    *bool      `json:"available,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

func (r *carRecord) key() string       { return r.Key }
func (r *carRecord) setKey(key string) { r.Key = key }
func (r *carRecord) legacy() jsonRef   { return r.ID }

func (r *carRecord) toDomain() *domain.Car {
	car := &domain.Car{
		Key:          r.Key,
		LegacyID:     domain.Ref(r.ID),
		Make:         r.Make,
		Model:        r.Model,
		Year:         r.Year,
		BodyType:     r.BodyType,
		Seats:        r.Seats,
		Transmission: r.Transmission,
		FuelType:     r.FuelType,
		RentalClass:  r.RentalClass,
		ImageURL:     r.Images.Main,
		PricePerDay:  r.PricePerDay,
		Currency:     r.Currency,
		Available:    r.Available == nil || *r.Available,
	}
	if car.PricePerDay == 0 {
		car.PricePerDay = r.PriceCamel
	}
	if car.Currency == "" {
		car.Currency = "USD"
	}
	if r.CreatedAt != nil {
		car.CreatedAt = *r.CreatedAt
	}
	return car
}

// CarRepository implements repository.CarRepository over cars.json.
type CarRepository struct {
	cars *collection[*carRecord]
}

// NewCarRepository creates a new CarRepository reading from dir.
func NewCarRepository(dir string) *CarRepository {
	return &CarRepository{cars: newCollection[*carRecord](dir, CarsFile)}
}

// ParseKey reports whether raw is a UUID.
func (r *CarRepository) ParseKey(raw string) (string, bool) {
	return parseKey(raw)
}

// GetByKey retrieves a car by surrogate key.
func (r *CarRepository) GetByKey(ctx context.Context, key string) (*domain.Car, error) {
	return r.get(func(c *carRecord) bool { return c.Key == key })
}

// GetByLegacyID retrieves a car by legacy id.
func (r *CarRepository) GetByLegacyID(ctx context.Context, id domain.Ref) (*domain.Car, error) {
	return r.get(func(c *carRecord) bool { return domain.Ref(c.ID) == id })
}

func (r *CarRepository) get(match func(*carRecord) bool) (*domain.Car, error) {
	rec, ok, err := r.cars.find(match)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec.toDomain(), nil
}
