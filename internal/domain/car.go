package domain

import "time"

// Car represents a vehicle in the rental catalog.
type Car struct {
	Key          string // surrogate key assigned by the store
	LegacyID     Ref    // numeric or string id from the pre-database catalog
	Make         string
	Model        string
	Year         int
	BodyType     string
	Seats        int
	Transmission string
	FuelType     string
	RentalClass  string
	ImageURL     string
	PricePerDay  float64
	Currency     string
	Available    bool
	CreatedAt    time.Time
}

// Refs returns every reference a rental may use to point at this car.
func (c *Car) Refs() []Ref {
	return Aliases(c.Key, c.LegacyID)
}

// Ref returns the reference stored on new rentals for this car.
func (c *Car) Ref() Ref {
	return PreferredRef(c.Key, c.LegacyID)
}
