package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"carrental/internal/middleware"
	"carrental/internal/service"
)

var errInvalidBody = errors.New("invalid request body")

// RentalHandler handles HTTP requests for rentals.
type RentalHandler struct {
	checker *service.AvailabilityChecker
	booking *service.BookingService
	reader  *service.RentalReader
}

// NewRentalHandler creates a new RentalHandler.
func NewRentalHandler(
	checker *service.AvailabilityChecker,
	booking *service.BookingService,
	reader *service.RentalReader,
) *RentalHandler {
	return &RentalHandler{
		checker: checker,
		booking: booking,
		reader:  reader,
	}
}

// AvailabilityRequest is the HTTP request body for an availability check.
type AvailabilityRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// AvailabilityResponse is the HTTP response for an availability check.
type AvailabilityResponse struct {
	Available bool            `json:"available"`
	Car       AvailabilityCar `json:"car"`
}

// AvailabilityCar identifies the car an availability answer is about.
type AvailabilityCar struct {
	ID refJSON `json:"id"`
}

// BookingRange is one booked date range.
type BookingRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// BookingsResponse is the HTTP response listing a car's active bookings.
type BookingsResponse struct {
	Bookings []BookingRange `json:"bookings"`
}

// PaymentInfoRequest is the payment method supplied with a booking.
type PaymentInfoRequest struct {
	Method         string `json:"method"`
	CardNumber     string `json:"cardNumber"`
	CardName       string `json:"cardName"`
	ExpirationDate string `json:"expirationDate"`
	CVC            string `json:"cvc"`
}

// CreateRentalRequest is the HTTP request body for booking a car.
type CreateRentalRequest struct {
	StartDate       string              `json:"startDate"`
	EndDate         string              `json:"endDate"`
	PickupLocation  string              `json:"pickupLocation,omitempty"`
	DropoffLocation string              `json:"dropoffLocation,omitempty"`
	SpecialRequests string              `json:"specialRequests,omitempty"`
	PaymentInfo     *PaymentInfoRequest `json:"paymentInfo,omitempty"`
}

// CreateRentalResponse is the HTTP response for a created rental.
type CreateRentalResponse struct {
	Message string         `json:"message"`
	Rental  RentalResponse `json:"rental"`
}

// UpdateRentalRequest is the HTTP request body for an administrative update.
type UpdateRentalRequest struct {
	StartDate *string `json:"startDate"`
	EndDate   *string `json:"endDate"`
	Status    *string `json:"status"`
}

// CheckAvailability handles POST /rentals/:id/availability
func (h *RentalHandler) CheckAvailability(c *gin.Context) {
	var req AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}

	result, err := h.checker.IsAvailable(c.Request.Context(), c.Param("id"), req.StartDate, req.EndDate)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, AvailabilityResponse{
		Available: result.Available,
		Car:       AvailabilityCar{ID: refJSON(result.Car.Ref())},
	})
}

// GetBookings handles GET /rentals/:id/bookings
func (h *RentalHandler) GetBookings(c *gin.Context) {
	_, ranges, err := h.checker.ActiveBookings(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	bookings := make([]BookingRange, 0, len(ranges))
	for _, r := range ranges {
		bookings = append(bookings, BookingRange{StartDate: r.Start, EndDate: r.End})
	}
	respondJSON(c, http.StatusOK, BookingsResponse{Bookings: bookings})
}

// CreateRental handles POST /rentals/:id
func (h *RentalHandler) CreateRental(c *gin.Context) {
	var req CreateRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}

	in := service.CreateBookingRequest{
		CarID:           c.Param("id"),
		StartDate:       req.StartDate,
		EndDate:         req.EndDate,
		PickupLocation:  req.PickupLocation,
		DropoffLocation: req.DropoffLocation,
		SpecialRequests: req.SpecialRequests,
	}
	if p := req.PaymentInfo; p != nil {
		in.Payment = &service.PaymentInput{
			Method:         p.Method,
			CardNumber:     p.CardNumber,
			CardName:       p.CardName,
			ExpirationDate: p.ExpirationDate,
			CVC:            p.CVC,
		}
	}

	result, err := h.booking.CreateBooking(c.Request.Context(), middleware.PrincipalFrom(c), in)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CreateRentalResponse{
		Message: "Car rented successfully",
		Rental:  newRentalResponse(result.Rental, result.Car, nil),
	})
}

// GetUserRentals handles GET /rentals/user
func (h *RentalHandler) GetUserRentals(c *gin.Context) {
	views, err := h.reader.ListForPrincipal(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRentalViews(views))
}

// CancelRental handles DELETE /rentals/:id
func (h *RentalHandler) CancelRental(c *gin.Context) {
	_, err := h.booking.CancelBooking(c.Request.Context(), middleware.PrincipalFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, MessageResponse{Message: "Rental cancelled successfully"})
}

// GetAllRentals handles GET /rentals/all
func (h *RentalHandler) GetAllRentals(c *gin.Context) {
	views, err := h.reader.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRentalViews(views))
}

// UpdateRental handles PUT /rentals/:id
func (h *RentalHandler) UpdateRental(c *gin.Context) {
	var req UpdateRentalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, errInvalidBody)
		return
	}

	result, err := h.booking.UpdateBooking(c.Request.Context(), c.Param("id"), service.UpdateBookingRequest{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Status:    req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, newRentalResponse(result.Rental, result.Car, nil))
}
