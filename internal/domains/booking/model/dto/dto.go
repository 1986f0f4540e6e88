package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"stay/internal/domains/booking/model"
	"stay/shared/constant"
	gDto "stay/shared/dto"
)

const confirmationPrefix = "BK-"

// NewConfirmationNumber produces a human-facing booking reference of the form
// BK-XXXXXXXX, derived from a random UUID.
func NewConfirmationNumber() string {
	return confirmationPrefix + strings.ToUpper(uuid.NewString()[:8])
}

type CreateBookingRequest struct {
	RoomID          int64   `json:"room_id"          validate:"required"`
	HotelID         int64   `json:"hotel_id"         validate:"required"`
	UserID          string  `json:"user_id"          validate:"required"`
	CheckInDate     string  `json:"check_in_date"    validate:"required,datetime=2006-01-02"`
	CheckOutDate    string  `json:"check_out_date"   validate:"required,datetime=2006-01-02"`
	NumberOfGuests  int     `json:"number_of_guests" validate:"required,gte=1,lte=10"`
	PricePerNight   float64 `json:"price_per_night"  validate:"required,gt=0"`
	SpecialRequests string  `json:"special_requests" validate:"omitempty"`
}

func (c *CreateBookingRequest) ToModel() (model.Booking, error) {
	checkIn, err := time.Parse(constant.BookingDateOnly, c.CheckInDate)
	if err != nil {
		return model.Booking{}, err
	}

	checkOut, err := time.Parse(constant.BookingDateOnly, c.CheckOutDate)
	if err != nil {
		return model.Booking{}, err
	}

	nights := model.Nights(checkIn, checkOut)

	return model.Booking{
		ConfirmationNumber: NewConfirmationNumber(),
		RoomID:             c.RoomID,
		HotelID:            c.HotelID,
		UserID:             c.UserID,
		CheckInDate:        checkIn,
		CheckOutDate:       checkOut,
		NumberOfGuests:     c.NumberOfGuests,
		NumberOfNights:     nights,
		PricePerNight:      c.PricePerNight,
		TotalPrice:         c.PricePerNight * float64(nights),
		Status:             model.StatusConfirmed,
		SpecialRequests:    c.SpecialRequests,
	}, nil
}

type UpdateBookingRequest struct {
	CheckInDate     string  `json:"check_in_date"    validate:"omitempty,datetime=2006-01-02"`
	CheckOutDate    string  `json:"check_out_date"   validate:"omitempty,datetime=2006-01-02"`
	NumberOfGuests  int     `json:"number_of_guests" validate:"omitempty,gte=1,lte=10"`
	SpecialRequests *string `json:"special_requests" validate:"omitempty"`
}

func (u *UpdateBookingRequest) IsEmpty() bool {
	return *u == (UpdateBookingRequest{})
}

// HasDates reports whether the request carries a complete new stay window.
// Dates are only applied as a pair; a lone check-in or check-out is rejected
// by the service.
func (u *UpdateBookingRequest) HasDates() bool {
	return u.CheckInDate != "" && u.CheckOutDate != ""
}

func (u *UpdateBookingRequest) ParseDates() (checkIn, checkOut time.Time, err error) {
	checkIn, err = time.Parse(constant.BookingDateOnly, u.CheckInDate)
	if err != nil {
		return checkIn, checkOut, err
	}

	checkOut, err = time.Parse(constant.BookingDateOnly, u.CheckOutDate)

	return checkIn, checkOut, err
}

type BookingResponse struct {
	ID                 int64   `json:"id"`
	ConfirmationNumber string  `json:"confirmation_number"`
	RoomID             int64   `json:"room_id"`
	HotelID            int64   `json:"hotel_id"`
	UserID             string  `json:"user_id"`
	CheckInDate        string  `json:"check_in_date"`
	CheckOutDate       string  `json:"check_out_date"`
	NumberOfGuests     int     `json:"number_of_guests"`
	NumberOfNights     int     `json:"number_of_nights"`
	PricePerNight      float64 `json:"price_per_night"`
	TotalPrice         float64 `json:"total_price"`
	Status             string  `json:"status"`
	SpecialRequests    string  `json:"special_requests"`
	gDto.Metadata
}

func (r *BookingResponse) FromModel(model model.Booking) {
	r.ID = model.ID
	r.ConfirmationNumber = model.ConfirmationNumber
	r.RoomID = model.RoomID
	r.HotelID = model.HotelID
	r.UserID = model.UserID
	r.CheckInDate = model.CheckInDate.Format(constant.BookingDateOnly)
	r.CheckOutDate = model.CheckOutDate.Format(constant.BookingDateOnly)
	r.NumberOfGuests = model.NumberOfGuests
	r.NumberOfNights = model.NumberOfNights
	r.PricePerNight = model.PricePerNight
	r.TotalPrice = model.TotalPrice
	r.Status = string(model.Status)
	r.SpecialRequests = model.SpecialRequests
	r.Metadata.FromModel(model.Metadata)
}

func FromModels(models []model.Booking) []BookingResponse {
	responses := make([]BookingResponse, len(models))
	for i, mod := range models {
		responses[i].FromModel(mod)
	}

	return responses
}

type BookingCountResponse struct {
	UserID string `json:"user_id"`
	Count  int64  `json:"count"`
}
