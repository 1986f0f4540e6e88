package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"stay/internal/domains/booking/model"
	"stay/shared/constant"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw  string
		ok   bool
		want model.BookingStatus
	}{
		{raw: "PENDING", ok: true, want: model.StatusPending},
		{raw: "CONFIRMED", ok: true, want: model.StatusConfirmed},
		{raw: "CANCELLED", ok: true, want: model.StatusCancelled},
		{raw: "COMPLETED", ok: true, want: model.StatusCompleted},
		{raw: "NO_SHOW", ok: true, want: model.StatusNoShow},
		{raw: "confirmed", ok: false},
		{raw: "UNKNOWN", ok: false},
		{raw: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			status, ok := model.ParseStatus(tt.raw)

			assert.Equal(t, tt.ok, ok)

			if tt.ok {
				assert.Equal(t, tt.want, status)
			}
		})
	}
}

func TestBookingStatus_Final(t *testing.T) {
	assert.True(t, model.StatusCancelled.Final())
	assert.True(t, model.StatusCompleted.Final())
	assert.False(t, model.StatusPending.Final())
	assert.False(t, model.StatusConfirmed.Final())
	assert.False(t, model.StatusNoShow.Final())
}

func TestNights(t *testing.T) {
	tests := []struct {
		name     string
		checkIn  string
		checkOut string
		want     int
	}{
		{name: "single night", checkIn: "2030-01-10", checkOut: "2030-01-11", want: 1},
		{name: "week long stay", checkIn: "2030-01-10", checkOut: "2030-01-17", want: 7},
		{name: "across month boundary", checkIn: "2030-01-30", checkOut: "2030-02-02", want: 3},
		{name: "same day", checkIn: "2030-01-10", checkOut: "2030-01-10", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkIn, err := time.Parse(constant.BookingDateOnly, tt.checkIn)
			assert.NoError(t, err)

			checkOut, err := time.Parse(constant.BookingDateOnly, tt.checkOut)
			assert.NoError(t, err)

			assert.Equal(t, tt.want, model.Nights(checkIn, checkOut))
		})
	}
}
