package service_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"stay/config"
	"stay/infras/otel/mocks"
	bookingMocks "stay/internal/domains/booking/mocks"
	"stay/internal/domains/booking/model"
	"stay/internal/domains/booking/model/dto"
	"stay/internal/domains/booking/repository"
	"stay/internal/domains/booking/service"
	cacheMocks "stay/shared/cache/mocks"
	"stay/shared/constant"
	"stay/shared/failure"
)

var confirmationPattern = regexp.MustCompile(`^BK-[A-Z0-9]{8}$`)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Cache.TTL = 3600
	cfg.Booking.MaxStayNights = 30
	cfg.Booking.MaxGuests = 10

	return cfg
}

func sampleBooking(id int64, status model.BookingStatus) model.Booking {
	checkIn, _ := time.Parse(constant.BookingDateOnly, "2030-01-10")
	checkOut, _ := time.Parse(constant.BookingDateOnly, "2030-01-13")

	return model.Booking{
		ID:                 id,
		ConfirmationNumber: "BK-ABCD1234",
		RoomID:             7,
		HotelID:            3,
		UserID:             "user-1",
		CheckInDate:        checkIn,
		CheckOutDate:       checkOut,
		NumberOfGuests:     2,
		NumberOfNights:     3,
		PricePerNight:      100,
		TotalPrice:         300,
		Status:             status,
	}
}

func TestBookingService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := bookingMocks.NewMockBooking(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	svc := service.New(mockRepo, testConfig(), mockCache, mockOtel)

	validReq := dto.CreateBookingRequest{
		RoomID:         7,
		HotelID:        3,
		UserID:         "user-1",
		CheckInDate:    "2030-01-10",
		CheckOutDate:   "2030-01-13",
		NumberOfGuests: 2,
		PricePerNight:  100,
	}

	tests := []struct {
		name      string
		req       dto.CreateBookingRequest
		setupMock func()
		wantErr   bool
		wantCode  int
	}{
		{
			name: "successful creation",
			req:  validReq,
			setupMock: func() {
				mockRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(nil)
			},
		},
		{
			name: "check-out equals check-in",
			req: dto.CreateBookingRequest{
				RoomID:         7,
				HotelID:        3,
				UserID:         "user-1",
				CheckInDate:    "2030-01-10",
				CheckOutDate:   "2030-01-10",
				NumberOfGuests: 2,
				PricePerNight:  100,
			},
			setupMock: func() {},
			wantErr:   true,
			wantCode:  400,
		},
		{
			name: "check-in in the past",
			req: dto.CreateBookingRequest{
				RoomID:         7,
				HotelID:        3,
				UserID:         "user-1",
				CheckInDate:    "2020-01-10",
				CheckOutDate:   "2020-01-13",
				NumberOfGuests: 2,
				PricePerNight:  100,
			},
			setupMock: func() {},
			wantErr:   true,
			wantCode:  400,
		},
		{
			name: "stay exceeds maximum nights",
			req: dto.CreateBookingRequest{
				RoomID:         7,
				HotelID:        3,
				UserID:         "user-1",
				CheckInDate:    "2030-01-10",
				CheckOutDate:   "2030-03-10",
				NumberOfGuests: 2,
				PricePerNight:  100,
			},
			setupMock: func() {},
			wantErr:   true,
			wantCode:  400,
		},
		{
			name: "room unavailable",
			req:  validReq,
			setupMock: func() {
				mockRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(repository.ErrRoomUnavailable)
			},
			wantErr:  true,
			wantCode: 409,
		},
		{
			name: "duplicate confirmation number",
			req:  validReq,
			setupMock: func() {
				mockRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(repository.ErrDuplicateConfirmation)
			},
			wantErr:  true,
			wantCode: 409,
		},
		{
			name: "repository error",
			req:  validReq,
			setupMock: func() {
				mockRepo.EXPECT().
					Insert(gomock.Any(), gomock.Any()).
					Return(errors.New("database error"))
			},
			wantErr:  true,
			wantCode: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			res, err := svc.Create(context.Background(), tt.req)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Regexp(t, confirmationPattern, res.ConfirmationNumber)
			assert.Equal(t, "CONFIRMED", res.Status)
			assert.Equal(t, 3, res.NumberOfNights)
			assert.InDelta(t, 300.0, res.TotalPrice, 0.001)
		})
	}
}

func TestBookingService_Get(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := bookingMocks.NewMockBooking(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	svc := service.New(mockRepo, testConfig(), mockCache, mockOtel)

	booking := sampleBooking(1, model.StatusConfirmed)

	tests := []struct {
		name      string
		id        int64
		setupMock func()
		wantErr   bool
		wantCode  int
	}{
		{
			name: "cache hit",
			id:   1,
			setupMock: func() {
				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil)
			},
		},
		{
			name: "cache miss, successful get from db",
			id:   1,
			setupMock: func() {
				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				mockRepo.EXPECT().
					GetByID(gomock.Any(), int64(1)).
					Return(booking, nil)

				mockCache.EXPECT().
					Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
					Return(nil).
					AnyTimes()
			},
		},
		{
			name: "booking not found",
			id:   99,
			setupMock: func() {
				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				mockRepo.EXPECT().
					GetByID(gomock.Any(), int64(99)).
					Return(model.Booking{}, nil)
			},
			wantErr:  true,
			wantCode: 404,
		},
		{
			name: "repository error",
			id:   1,
			setupMock: func() {
				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				mockRepo.EXPECT().
					GetByID(gomock.Any(), int64(1)).
					Return(model.Booking{}, errors.New("database error"))
			},
			wantErr:  true,
			wantCode: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			res, err := svc.Get(context.Background(), tt.id)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)

			if tt.name == "cache miss, successful get from db" {
				assert.Equal(t, booking.ConfirmationNumber, res.ConfirmationNumber)
			}
		})
	}
}

func TestBookingService_GetAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := bookingMocks.NewMockBooking(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	mockCache.EXPECT().
		Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()

	svc := service.New(mockRepo, testConfig(), mockCache, mockOtel)

	bookings := []model.Booking{sampleBooking(1, model.StatusConfirmed), sampleBooking(2, model.StatusPending)}

	tests := []struct {
		name      string
		status    string
		setupMock func()
		wantErr   bool
		wantCode  int
		wantLen   int
	}{
		{
			name: "all bookings",
			setupMock: func() {
				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				mockRepo.EXPECT().
					GetAll(gomock.Any()).
					Return(bookings, nil)
			},
			wantLen: 2,
		},
		{
			name:   "filtered by status",
			status: "CONFIRMED",
			setupMock: func() {
				mockCache.EXPECT().
					Get(gomock.Any(), gomock.Any(), gomock.Any()).
					Return(errors.New("cache miss"))

				mockRepo.EXPECT().
					GetByStatus(gomock.Any(), model.StatusConfirmed).
					Return(bookings[:1], nil)
			},
			wantLen: 1,
		},
		{
			name:      "unknown status",
			status:    "SOMEDAY",
			setupMock: func() {},
			wantErr:   true,
			wantCode:  400,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupMock()

			res, err := svc.GetAll(context.Background(), tt.status)

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, failure.GetCode(err))

				return
			}

			require.NoError(t, err)
			assert.Len(t, res, tt.wantLen)
		})
	}
}

func TestBookingService_GetByConfirmationNumber(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := bookingMocks.NewMockBooking(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	mockCache.EXPECT().
		Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()

	svc := service.New(mockRepo, testConfig(), mockCache, mockOtel)

	booking := sampleBooking(1, model.StatusConfirmed)

	t.Run("found", func(t *testing.T) {
		mockCache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("cache miss"))

		mockRepo.EXPECT().
			GetByConfirmationNumber(gomock.Any(), "BK-ABCD1234").
			Return(booking, nil)

		res, err := svc.GetByConfirmationNumber(context.Background(), "BK-ABCD1234")

		require.NoError(t, err)
		assert.Equal(t, int64(1), res.ID)
	})

	t.Run("not found", func(t *testing.T) {
		mockCache.EXPECT().
			Get(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(errors.New("cache miss"))

		mockRepo.EXPECT().
			GetByConfirmationNumber(gomock.Any(), "BK-MISSING1").
			Return(model.Booking{}, nil)

		_, err := svc.GetByConfirmationNumber(context.Background(), "BK-MISSING1")

		require.Error(t, err)
		assert.Equal(t, 404, failure.GetCode(err))
	})
}

func TestBookingService_GetByUserID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := bookingMocks.NewMockBooking(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	svc := service.New(mockRepo, testConfig(), mockCache, mockOtel)

	bookings := []model.Booking{sampleBooking(1, model.StatusConfirmed)}

	t.Run("without status", func(t *testing.T) {
		mockRepo.EXPECT().
			GetByUserID(gomock.Any(), "user-1").
			Return(bookings, nil)

		res, err := svc.GetByUserID(context.Background(), "user-1", "")

		require.NoError(t, err)
		assert.Len(t, res, 1)
	})

	t.Run("with status", func(t *testing.T) {
		mockRepo.EXPECT().
			GetByUserIDAndStatus(gomock.Any(), "user-1", model.StatusCancelled).
			Return([]model.Booking{}, nil)

		res, err := svc.GetByUserID(context.Background(), "user-1", "CANCELLED")

		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("unknown status", func(t *testing.T) {
		_, err := svc.GetByUserID(context.Background(), "user-1", "INVALID")

		require.Error(t, err)
		assert.Equal(t, 400, failure.GetCode(err))
	})
}

func TestBookingService_CountByUserID(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := bookingMocks.NewMockBooking(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	mockCache.EXPECT().
		Get(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(errors.New("cache miss"))
	mockCache.EXPECT().
		Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil).
		AnyTimes()

	mockRepo.EXPECT().
		CountByUserID(gomock.Any(), "user-1").
		Return(int64(5), nil)

	svc := service.New(mockRepo, testConfig(), mockCache, mockOtel)

	res, err := svc.CountByUserID(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "user-1", res.UserID)
	assert.Equal(t, int64(5), res.Count)
}

func TestBookingService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := bookingMocks.NewMockBooking(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	svc := service.New(mockRepo, testConfig(), mockCache, mockOtel)

	active := sampleBooking(1, model.StatusConfirmed)
	cancelled := sampleBooking(2, model.StatusCancelled)

	guests := 4

	t.Run("empty request", func(t *testing.T) {
		_, err := svc.Update(context.Background(), 1, dto.UpdateBookingRequest{})

		require.Error(t, err)
		assert.Equal(t, 400, failure.GetCode(err))
	})

	t.Run("lone check-in date", func(t *testing.T) {
		_, err := svc.Update(context.Background(), 1, dto.UpdateBookingRequest{CheckInDate: "2030-01-12"})

		require.Error(t, err)
		assert.Equal(t, 400, failure.GetCode(err))
	})

	t.Run("guests only", func(t *testing.T) {
		mockRepo.EXPECT().
			Update(gomock.Any(), int64(1), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ int64, fields map[string]any) (model.Booking, error) {
				assert.Equal(t, guests, fields[model.FieldNumberOfGuests])
				assert.NotContains(t, fields, model.FieldCheckInDate)

				updated := active
				updated.NumberOfGuests = guests

				return updated, nil
			})

		res, err := svc.Update(context.Background(), 1, dto.UpdateBookingRequest{NumberOfGuests: guests})

		require.NoError(t, err)
		assert.Equal(t, guests, res.NumberOfGuests)
	})

	t.Run("new dates recompute nights and total price", func(t *testing.T) {
		mockRepo.EXPECT().
			GetByID(gomock.Any(), int64(1)).
			Return(active, nil)

		mockRepo.EXPECT().
			Update(gomock.Any(), int64(1), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ int64, fields map[string]any) (model.Booking, error) {
				assert.Equal(t, 5, fields[model.FieldNumberOfNights])
				assert.InDelta(t, 500.0, fields[model.FieldTotalPrice].(float64), 0.001)

				return active, nil
			})

		_, err := svc.Update(context.Background(), 1, dto.UpdateBookingRequest{
			CheckInDate:  "2030-02-01",
			CheckOutDate: "2030-02-06",
		})

		require.NoError(t, err)
	})

	t.Run("finalized booking", func(t *testing.T) {
		mockRepo.EXPECT().
			Update(gomock.Any(), int64(2), gomock.Any()).
			Return(cancelled, repository.ErrBookingFinalized)

		_, err := svc.Update(context.Background(), 2, dto.UpdateBookingRequest{NumberOfGuests: guests})

		require.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
		assert.Contains(t, err.Error(), "CANCELLED")
	})

	t.Run("booking not found", func(t *testing.T) {
		mockRepo.EXPECT().
			Update(gomock.Any(), int64(99), gomock.Any()).
			Return(model.Booking{}, nil)

		_, err := svc.Update(context.Background(), 99, dto.UpdateBookingRequest{NumberOfGuests: guests})

		require.Error(t, err)
		assert.Equal(t, 404, failure.GetCode(err))
	})

	t.Run("room unavailable for new dates", func(t *testing.T) {
		mockRepo.EXPECT().
			GetByID(gomock.Any(), int64(1)).
			Return(active, nil)

		mockRepo.EXPECT().
			Update(gomock.Any(), int64(1), gomock.Any()).
			Return(model.Booking{}, repository.ErrRoomUnavailable)

		_, err := svc.Update(context.Background(), 1, dto.UpdateBookingRequest{
			CheckInDate:  "2030-02-01",
			CheckOutDate: "2030-02-06",
		})

		require.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
	})
}

func TestBookingService_Cancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := bookingMocks.NewMockBooking(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	svc := service.New(mockRepo, testConfig(), mockCache, mockOtel)

	t.Run("successful cancel", func(t *testing.T) {
		cancelled := sampleBooking(1, model.StatusCancelled)

		mockRepo.EXPECT().
			Transition(gomock.Any(), int64(1), model.StatusCancelled, model.CancellableStatuses()).
			Return(cancelled, nil)

		res, err := svc.Cancel(context.Background(), 1)

		require.NoError(t, err)
		assert.Equal(t, "CANCELLED", res.Status)
	})

	t.Run("already cancelled", func(t *testing.T) {
		mockRepo.EXPECT().
			Transition(gomock.Any(), int64(2), model.StatusCancelled, model.CancellableStatuses()).
			Return(sampleBooking(2, model.StatusCancelled), repository.ErrInvalidStatusTransition)

		_, err := svc.Cancel(context.Background(), 2)

		require.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
		assert.Contains(t, err.Error(), "already cancelled")
	})

	t.Run("completed booking", func(t *testing.T) {
		mockRepo.EXPECT().
			Transition(gomock.Any(), int64(3), model.StatusCancelled, model.CancellableStatuses()).
			Return(sampleBooking(3, model.StatusCompleted), repository.ErrInvalidStatusTransition)

		_, err := svc.Cancel(context.Background(), 3)

		require.Error(t, err)
		assert.Equal(t, 409, failure.GetCode(err))
		assert.Contains(t, err.Error(), "completed")
	})

	t.Run("booking not found", func(t *testing.T) {
		mockRepo.EXPECT().
			Transition(gomock.Any(), int64(99), model.StatusCancelled, model.CancellableStatuses()).
			Return(model.Booking{}, nil)

		_, err := svc.Cancel(context.Background(), 99)

		require.Error(t, err)
		assert.Equal(t, 404, failure.GetCode(err))
	})
}

func TestBookingService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := bookingMocks.NewMockBooking(ctrl)
	mockCache := cacheMocks.NewMockRedisCache(ctrl)
	mockOtel := mocks.NewOtel()

	mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	svc := service.New(mockRepo, testConfig(), mockCache, mockOtel)

	t.Run("delete forces cancelled even when completed", func(t *testing.T) {
		cancelled := sampleBooking(1, model.StatusCancelled)

		mockRepo.EXPECT().
			Transition(gomock.Any(), int64(1), model.StatusCancelled, nil).
			Return(cancelled, nil)

		err := svc.Delete(context.Background(), 1)

		assert.NoError(t, err)
	})

	t.Run("booking not found", func(t *testing.T) {
		mockRepo.EXPECT().
			Transition(gomock.Any(), int64(99), model.StatusCancelled, nil).
			Return(model.Booking{}, nil)

		err := svc.Delete(context.Background(), 99)

		require.Error(t, err)
		assert.Equal(t, 404, failure.GetCode(err))
	})
}
