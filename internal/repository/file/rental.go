package file

import (
	"context"
	"time"

	"github.com/google/uuid"

	"carrental/internal/domain"
	"carrental/internal/repository"
)

type paymentRecord struct {
	Method         string `json:"method,omitempty"`
	CardNumber     string `json:"cardNumber,omitempty"`
	CardName       string `json:"cardName,omitempty"`
	ExpirationDate string `json:"expirationDate,omitempty"`
}

type rentalRecord struct {
	Key             string         `json:"_id,omitempty"`
	ID              jsonRef        `json:"id"`
	CarID           jsonRef        `json:"carId"`
	UserID          jsonRef        `json:"userId"`
	UserEmail       string         `json:"userEmail"`
	Username        string         `json:"username"`
	StartDate       string         `json:"startDate"`
	EndDate         string         `json:"endDate"`
	TotalDays       int            `json:"totalDays"`
	PricePerDay     float64        `json:"pricePerDay"`
	TotalPrice      float64        `json:"totalPrice"`
	PickupLocation  string         `json:"pickupLocation"`
	DropoffLocation string         `json:"dropoffLocation"`
	SpecialRequests string         `json:"specialRequests"`
	PaymentInfo     *paymentRecord `json:"paymentInfo,omitempty"`
	Status          string         `json:"status"`
	CreatedAt       time.Time      `json:"createdAt"`
}

func (r *rentalRecord) key() string       { return r.Key }
func (r *rentalRecord) setKey(key string) { r.Key = key }
func (r *rentalRecord) legacy() jsonRef   { return r.ID }

func (r *rentalRecord) toDomain() *domain.Rental {
	rental := &domain.Rental{
		Key:             r.Key,
		LegacyID:        domain.Ref(r.ID),
		CarRef:          domain.Ref(r.CarID),
		UserRef:         domain.Ref(r.UserID),
		UserEmail:       r.UserEmail,
		Username:        r.Username,
		StartDate:       r.StartDate,
		EndDate:         r.EndDate,
		TotalDays:       r.TotalDays,
		PricePerDay:     r.PricePerDay,
		TotalPrice:      r.TotalPrice,
		PickupLocation:  r.PickupLocation,
		DropoffLocation: r.DropoffLocation,
		SpecialRequests: r.SpecialRequests,
		Status:          domain.RentalStatus(r.Status),
		CreatedAt:       r.CreatedAt,
	}
	if rental.Status == "" {
		rental.Status = domain.RentalStatusActive
	}
	if p := r.PaymentInfo; p != nil {
		rental.PaymentInfo = &domain.PaymentInfo{
			Method:         p.Method,
			CardNumber:     p.CardNumber,
			CardName:       p.CardName,
			ExpirationDate: p.ExpirationDate,
		}
	}
	return rental
}

func newRentalRecord(rental *domain.Rental) *rentalRecord {
	rec := &rentalRecord{
		Key:             rental.Key,
		ID:              jsonRef(rental.LegacyID),
		CarID:           jsonRef(rental.CarRef),
		UserID:          jsonRef(rental.UserRef),
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
	if p := rental.PaymentInfo; p != nil {
		rec.PaymentInfo = &paymentRecord{
			Method:         p.Method,
			CardNumber:     p.CardNumber,
			CardName:       p.CardName,
			ExpirationDate: p.ExpirationDate,
		}
	}
	return rec
}

// RentalRepository implements repository.RentalRepository over rentItem.json.
type RentalRepository struct {
	rentals *collection[*rentalRecord]
}

// NewRentalRepository creates a new RentalRepository backed by dir.
func NewRentalRepository(dir string) *RentalRepository {
	return &RentalRepository{rentals: newCollection[*rentalRecord](dir, RentalsFile)}
}

// ParseKey reports whether raw is a UUID.
func (r *RentalRepository) ParseKey(raw string) (string, bool) {
	return parseKey(raw)
}

// GetByKey retrieves a rental by surrogate key.
func (r *RentalRepository) GetByKey(ctx context.Context, key string) (*domain.Rental, error) {
	return r.get(func(rec *rentalRecord) bool { return rec.Key == key })
}

// GetByLegacyID retrieves a rental by legacy id.
func (r *RentalRepository) GetByLegacyID(ctx context.Context, id domain.Ref) (*domain.Rental, error) {
	return r.get(func(rec *rentalRecord) bool { return domain.Ref(rec.ID) == id })
}

func (r *RentalRepository) get(match func(*rentalRecord) bool) (*domain.Rental, error) {
	rec, ok, err := r.rentals.find(match)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rec.toDomain(), nil
}

// Create appends a rental and assigns it a random UUID key.
func (r *RentalRepository) Create(ctx context.Context, rental *domain.Rental) error {
	key := uuid.NewString()
	err := r.rentals.modify(func(records []*rentalRecord) ([]*rentalRecord, error) {
		rec := newRentalRecord(rental)
		rec.Key = key
		return append(records, rec), nil
	})
	if err != nil {
		return err
	}
	rental.Key = key
	return nil
}

// Update replaces the rental with the same key.
func (r *RentalRepository) Update(ctx context.Context, rental *domain.Rental) error {
	return r.rentals.modify(func(records []*rentalRecord) ([]*rentalRecord, error) {
		for i, rec := range records {
			if rec.Key == rental.Key {
				records[i] = newRentalRecord(rental)
				return records, nil
			}
		}
		return nil, repository.ErrNotFound
	})
}

// Find returns the rentals matching filter in file order.
func (r *RentalRepository) Find(ctx context.Context, filter repository.RentalFilter) ([]*domain.Rental, error) {
	recs, err := r.rentals.filter(func(rec *rentalRecord) bool {
		return filter.Matches(rec.toDomain())
	})
	if err != nil {
		return nil, err
	}

	rentals := make([]*domain.Rental, 0, len(recs))
	for _, rec := range recs {
		rentals = append(rentals, rec.toDomain())
	}
	return rentals, nil
}
