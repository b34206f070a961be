package handler

import (
	"encoding/json"
	"time"

	"carrental/internal/domain"
	"carrental/internal/service"
)

// refJSON renders a reference the way clients have always seen it: legacy
// numbers as numbers, everything else as a string.
type refJSON domain.Ref

func (r refJSON) MarshalJSON() ([]byte, error) {
	ref := domain.Ref(r)
	switch ref.Kind {
	case domain.RefNumber:
		return json.Marshal(ref.Num)
	case domain.RefNone:
		return []byte("null"), nil
	default:
		return json.Marshal(ref.String())
	}
}

// CarImages holds the car image URLs.
type CarImages struct {
	Main string `json:"main,omitempty"`
}

// CarResponse is a car as embedded in rental responses.
type CarResponse struct {
	Key          string    `json:"_id"`
	ID           refJSON   `json:"id"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Year         int       `json:"year"`
	BodyType     string    `json:"body_type,omitempty"`
	Seats        int       `json:"seats,omitempty"`
	Transmission string    `json:"transmission,omitempty"`
	FuelType     string    `json:"fuel_type,omitempty"`
	RentalClass  string    `json:"rental_class,omitempty"`
	Images       CarImages `json:"images"`
	PricePerDay  float64   `json:"price_per_day"`
	Currency     string    `json:"currency"`
	Available    bool      `json:"available"`
}

// UserResponse is a user without credentials.
type UserResponse struct {
	Key         string  `json:"_id"`
	ID          refJSON `json:"id"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	PhoneNumber string  `json:"phoneNumber,omitempty"`
	Role        string  `json:"role"`
}

// PaymentInfoResponse is the stored payment snapshot.
type PaymentInfoResponse struct {
	Method         string `json:"method,omitempty"`
	CardNumber     string `json:"cardNumber,omitempty"`
	CardName       string `json:"cardName,omitempty"`
	ExpirationDate string `json:"expirationDate,omitempty"`
}

// RentalResponse is a rental, optionally joined with its car and user.
type RentalResponse struct {
	Key             string               `json:"_id"`
	ID              string               `json:"id"`
	CarID           refJSON              `json:"carId"`
	UserID          refJSON              `json:"userId"`
	UserEmail       string               `json:"userEmail"`
	Username        string               `json:"username"`
	StartDate       string               `json:"startDate"`
	EndDate         string               `json:"endDate"`
	TotalDays       int                  `json:"totalDays"`
	PricePerDay     float64              `json:"pricePerDay"`
	TotalPrice      float64              `json:"totalPrice"`
	PickupLocation  string               `json:"pickupLocation"`
	DropoffLocation string               `json:"dropoffLocation"`
	SpecialRequests string               `json:"specialRequests"`
	PaymentInfo     *PaymentInfoResponse `json:"paymentInfo,omitempty"`
	Status          string               `json:"status"`
	CreatedAt       time.Time            `json:"createdAt"`
	Car             *CarResponse         `json:"car"`
	User            *UserResponse        `json:"user,omitempty"`
}

func newCarResponse(car *domain.Car) *CarResponse {
	if car == nil {
		return nil
	}
	return &CarResponse{
		Key:          car.Key,
		ID:           refJSON(car.Ref()),
		Make:         car.Make,
		Model:        car.Model,
		Year:         car.Year,
		BodyType:     car.BodyType,
		Seats:        car.Seats,
		Transmission: car.Transmission,
		FuelType:     car.FuelType,
		RentalClass:  car.RentalClass,
		Images:       CarImages{Main: car.ImageURL},
		PricePerDay:  car.PricePerDay,
		Currency:     car.Currency,
		Available:    car.Available,
	}
}

func newUserResponse(user *domain.User) *UserResponse {
	if user == nil {
		return nil
	}
	return &UserResponse{
		Key:         user.Key,
		ID:          refJSON(user.Ref()),
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Username:    user.Username,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		Role:        string(user.Role),
	}
}

func newRentalResponse(rental *domain.Rental, car *domain.Car, user *domain.User) RentalResponse {
	resp := RentalResponse{
		Key:             rental.Key,
		ID:              rental.ID(),
		CarID:           refJSON(rental.CarRef),
		UserID:          refJSON(rental.UserRef),
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
		Car:             newCarResponse(car),
		User:            newUserResponse(user),
	}
	if p := rental.PaymentInfo; p != nil {
		resp.PaymentInfo = &PaymentInfoResponse{
			Method:         p.Method,
			CardNumber:     p.CardNumber,
			CardName:       p.CardName,
			ExpirationDate: p.ExpirationDate,
		}
	}
	return resp
}

func newRentalViews(views []*service.RentalView) []RentalResponse {
	out := make([]RentalResponse, 0, len(views))
	for _, v := range views {
		out = append(out, newRentalResponse(v.Rental, v.Car, v.User))
	}
	return out
}
