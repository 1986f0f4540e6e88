package model

import (
	"time"

	"stay/shared/model"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID                 = "id"
	FieldConfirmationNumber = "confirmation_number"
	FieldRoomID             = "room_id"
	FieldHotelID            = "hotel_id"
	FieldUserID             = "user_id"
	FieldCheckInDate        = "check_in_date"
	FieldCheckOutDate       = "check_out_date"
	FieldNumberOfGuests     = "number_of_guests"
	FieldNumberOfNights     = "number_of_nights"
	FieldPricePerNight      = "price_per_night"
	FieldTotalPrice         = "total_price"
	FieldStatus             = "status"
	FieldSpecialRequests    = "special_requests"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCancelled BookingStatus = "CANCELLED"
	StatusCompleted BookingStatus = "COMPLETED"
	StatusNoShow    BookingStatus = "NO_SHOW"
)

// ParseStatus maps a raw string onto the closed status set.
func ParseStatus(raw string) (BookingStatus, bool) {
	status := BookingStatus(raw)

	return status, status.Valid()
}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	default:
		return false
	}
}

// Final reports whether the booking reached a terminal state. Finalized
// bookings reject further modification through the update operation.
func (s BookingStatus) Final() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// ActiveStatuses are the states that occupy a room for availability checks.
func ActiveStatuses() []BookingStatus {
	return []BookingStatus{StatusPending, StatusConfirmed}
}

// CancellableStatuses are the states a booking may be cancelled from.
func CancellableStatuses() []BookingStatus {
	return []BookingStatus{StatusPending, StatusConfirmed, StatusNoShow}
}

type Booking struct {
	ID                 int64         `db:"id"`
	ConfirmationNumber string        `db:"confirmation_number"`
	RoomID             int64         `db:"room_id"`
	HotelID            int64         `db:"hotel_id"`
	UserID             string        `db:"user_id"`
	CheckInDate        time.Time     `db:"check_in_date"`
	CheckOutDate       time.Time     `db:"check_out_date"`
	NumberOfGuests     int           `db:"number_of_guests"`
	NumberOfNights     int           `db:"number_of_nights"`
	PricePerNight      float64       `db:"price_per_night"`
	TotalPrice         float64       `db:"total_price"`
	Status             BookingStatus `db:"status"`
	SpecialRequests    string        `db:"special_requests"`
	model.Metadata
}

// Nights returns the stay length in whole days between two calendar dates.
func Nights(checkIn, checkOut time.Time) int {
	return int(checkOut.Sub(checkIn) / (24 * time.Hour))
}
