package domain

import "time"

// RentalStatus represents the current status of a rental.
type RentalStatus string

const (
	RentalStatusActive    RentalStatus = "active"
	RentalStatusCompleted RentalStatus = "completed"
	RentalStatusCancelled RentalStatus = "cancelled"
)

// Valid reports whether s is a known rental status.
func (s RentalStatus) Valid() bool {
	switch s {
	case RentalStatusActive, RentalStatusCompleted, RentalStatusCancelled:
		return true
	}
	return false
}

// DefaultLocation is used when a booking omits pickup or dropoff.
const DefaultLocation = "Default Location"

// PaymentInfo is the payment method snapshot taken at booking time.
type PaymentInfo struct {
	Method         string
	CardNumber     string // masked, last four digits only
	CardName       string
	ExpirationDate string
}

// Rental represents a booking of a car for an inclusive date range.
// StartDate and EndDate are YYYY-MM-DD strings and compare lexicographically.
type Rental struct {
	Key             string
	LegacyID        Ref // time-derived token for new rentals
	CarRef          Ref
	UserRef         Ref
	UserEmail       string
	Username        string
	StartDate       string
	EndDate         string
	TotalDays       int
	PricePerDay     float64
	TotalPrice      float64
	PickupLocation  string
	DropoffLocation string
	SpecialRequests string
	PaymentInfo     *PaymentInfo
	Status          RentalStatus
	CreatedAt       time.Time
}

// ID returns the identifier shown to clients: the legacy id when present,
// else the surrogate key.
func (r *Rental) ID() string {
	return PreferredRef(r.Key, r.LegacyID).String()
}

// IsActive reports whether the rental takes part in overlap checks.
func (r *Rental) IsActive() bool {
	return r.Status == RentalStatusActive
}
