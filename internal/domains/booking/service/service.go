package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"stay/config"
	"stay/infras/otel"
	"stay/internal/domains/booking/model"
	"stay/internal/domains/booking/model/dto"
	"stay/internal/domains/booking/repository"
	"stay/shared"
	"stay/shared/cache"
	"stay/shared/constant"
	"stay/shared/failure"
	"stay/shared/timezone"
)

const (
	cacheGetBooking     = "booking:get"
	cacheGetByConfirm   = "booking:confirmation"
	cacheGetAllBooking  = "booking:gets"
	cacheCountByUser    = "booking:count"
	cacheKeyAllBookings = "all"
)

type Booking interface {
	Create(ctx context.Context, req dto.CreateBookingRequest) (dto.BookingResponse, error)
	GetAll(ctx context.Context, status string) ([]dto.BookingResponse, error)
	Get(ctx context.Context, id int64) (dto.BookingResponse, error)
	GetByConfirmationNumber(ctx context.Context, number string) (dto.BookingResponse, error)
	GetByUserID(ctx context.Context, userID, status string) ([]dto.BookingResponse, error)
	GetByHotelID(ctx context.Context, hotelID int64) ([]dto.BookingResponse, error)
	GetByRoomID(ctx context.Context, roomID int64) ([]dto.BookingResponse, error)
	CountByUserID(ctx context.Context, userID string) (dto.BookingCountResponse, error)
	Update(ctx context.Context, id int64, req dto.UpdateBookingRequest) (dto.BookingResponse, error)
	Cancel(ctx context.Context, id int64) (dto.BookingResponse, error)
	Delete(ctx context.Context, id int64) error
}

type serviceImpl struct {
	repo  repository.Booking
	cfg   *config.Config
	cache cache.RedisCache
	otel  otel.Otel
}

func New(repo repository.Booking, cfg *config.Config, cache cache.RedisCache, otel otel.Otel) Booking {
	return &serviceImpl{
		repo:  repo,
		cfg:   cfg,
		cache: cache,
		otel:  otel,
	}
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer scope.TraceIfError(err)

	booking, err := req.ToModel()
	if err != nil {
		log.Error().Err(err).Msg("failed to parse booking request")

		return res, failure.BadRequestFromString(fmt.Sprintf("invalid date format: %v", err)) //nolint:wrapcheck
	}

	if err = s.validateStay(booking.CheckInDate, booking.CheckOutDate); err != nil {
		return res, err
	}

	if err = s.repo.Insert(ctx, &booking); err != nil {
		return res, s.mapWriteError(err, "failed to create booking")
	}

	log.Info().
		Str("confirmationNumber", booking.ConfirmationNumber).
		Str("userId", booking.UserID).
		Msg("booking created")

	res.FromModel(booking)

	go s.invalidateListCaches(ctx)

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, status string) (res []dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetAllBooking, cacheKeyAllBookings)

	parsed := model.BookingStatus("")

	if status != "" {
		var ok bool
		if parsed, ok = model.ParseStatus(status); !ok {
			return res, failure.BadRequestFromString(fmt.Sprintf("unknown booking status: %s", status)) //nolint:wrapcheck
		}

		cacheKey = shared.BuildCacheKey(cacheGetAllBooking, constant.RequestParamStatus, status)
	}

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	var models []model.Booking
	if status != "" {
		models, err = s.repo.GetByStatus(ctx, parsed)
	} else {
		models, err = s.repo.GetAll(ctx)
	}

	if err != nil {
		log.Error().Err(err).Msg("failed to get bookings")

		return res, fmt.Errorf("failed to get bookings: %w", err)
	}

	res = dto.FromModels(models)

	s.saveToCache(ctx, cacheKey, res)

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id int64) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetBooking, fmt.Sprint(id))

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == 0 {
		return res, failure.NotFound(fmt.Sprintf("booking not found with id: %d", id)) //nolint:wrapcheck
	}

	res.FromModel(booking)

	s.saveToCache(ctx, cacheKey, res)

	return res, nil
}

func (s *serviceImpl) GetByConfirmationNumber(ctx context.Context, number string) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetByConfirmationNumber")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheGetByConfirm, number)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	booking, err := s.repo.GetByConfirmationNumber(ctx, number)
	if err != nil {
		log.Error().Err(err).Str("confirmationNumber", number).Msg("failed to get booking")

		return res, fmt.Errorf("failed to get booking: %w", err)
	}

	if booking.ID == 0 {
		return res, failure.NotFound(fmt.Sprintf("booking not found with confirmation number: %s", number)) //nolint:wrapcheck
	}

	res.FromModel(booking)

	s.saveToCache(ctx, cacheKey, res)

	return res, nil
}

func (s *serviceImpl) GetByUserID(ctx context.Context, userID, status string) (res []dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetByUserID")
	defer scope.End()
	defer scope.TraceIfError(err)

	var models []model.Booking

	if status != "" {
		parsed, ok := model.ParseStatus(status)
		if !ok {
			return res, failure.BadRequestFromString(fmt.Sprintf("unknown booking status: %s", status)) //nolint:wrapcheck
		}

		models, err = s.repo.GetByUserIDAndStatus(ctx, userID, parsed)
	} else {
		models, err = s.repo.GetByUserID(ctx, userID)
	}

	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("failed to get bookings for user")

		return res, fmt.Errorf("failed to get bookings for user: %w", err)
	}

	return dto.FromModels(models), nil
}

func (s *serviceImpl) GetByHotelID(ctx context.Context, hotelID int64) (res []dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetByHotelID")
	defer scope.End()
	defer scope.TraceIfError(err)

	models, err := s.repo.GetByHotelID(ctx, hotelID)
	if err != nil {
		log.Error().Err(err).Int64("hotelId", hotelID).Msg("failed to get bookings for hotel")

		return res, fmt.Errorf("failed to get bookings for hotel: %w", err)
	}

	return dto.FromModels(models), nil
}

func (s *serviceImpl) GetByRoomID(ctx context.Context, roomID int64) (res []dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetByRoomID")
	defer scope.End()
	defer scope.TraceIfError(err)

	models, err := s.repo.GetByRoomID(ctx, roomID)
	if err != nil {
		log.Error().Err(err).Int64("roomId", roomID).Msg("failed to get bookings for room")

		return res, fmt.Errorf("failed to get bookings for room: %w", err)
	}

	return dto.FromModels(models), nil
}

func (s *serviceImpl) CountByUserID(ctx context.Context, userID string) (res dto.BookingCountResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".CountByUserID")
	defer scope.End()
	defer scope.TraceIfError(err)

	cacheKey := shared.BuildCacheKey(cacheCountByUser, userID)

	err = s.cache.Get(ctx, cacheKey, &res)
	if err == nil {
		return res, nil
	}

	count, err := s.repo.CountByUserID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("failed to count bookings for user")

		return res, fmt.Errorf("failed to count bookings for user: %w", err)
	}

	res = dto.BookingCountResponse{UserID: userID, Count: count}

	s.saveToCache(ctx, cacheKey, res)

	return res, nil
}

func (s *serviceImpl) Update(ctx context.Context, id int64, req dto.UpdateBookingRequest) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Update")
	defer scope.End()
	defer scope.TraceIfError(err)

	if req.IsEmpty() {
		return res, failure.BadRequestFromString("update request cannot be empty") //nolint:wrapcheck
	}

	if (req.CheckInDate == "") != (req.CheckOutDate == "") {
		return res, failure.BadRequestFromString("check-in and check-out dates must be updated together") //nolint:wrapcheck
	}

	fields := map[string]any{}

	if req.HasDates() {
		checkIn, checkOut, parseErr := req.ParseDates()
		if parseErr != nil {
			return res, failure.BadRequestFromString(fmt.Sprintf("invalid date format: %v", parseErr)) //nolint:wrapcheck
		}

		if err = s.validateStay(checkIn, checkOut); err != nil {
			return res, err
		}

		// The nightly price never changes after creation, so reading it
		// outside the update transaction is safe.
		booking, getErr := s.repo.GetByID(ctx, id)
		if getErr != nil {
			log.Error().Err(getErr).Int64("id", id).Msg("failed to get booking for update")

			return res, fmt.Errorf("failed to get booking: %w", getErr)
		}

		if booking.ID == 0 {
			return res, failure.NotFound(fmt.Sprintf("booking not found with id: %d", id)) //nolint:wrapcheck
		}

		nights := model.Nights(checkIn, checkOut)

		fields[model.FieldCheckInDate] = checkIn
		fields[model.FieldCheckOutDate] = checkOut
		fields[model.FieldNumberOfNights] = nights
		fields[model.FieldTotalPrice] = booking.PricePerNight * float64(nights)
	}

	if req.NumberOfGuests != 0 {
		fields[model.FieldNumberOfGuests] = req.NumberOfGuests
	}

	if req.SpecialRequests != nil {
		fields[model.FieldSpecialRequests] = *req.SpecialRequests
	}

	updated, err := s.repo.Update(ctx, id, fields)
	if errors.Is(err, repository.ErrBookingFinalized) {
		return res, failure.Conflict(fmt.Sprintf("cannot update a %s booking", updated.Status)) //nolint:wrapcheck
	}

	if err != nil {
		return res, s.mapWriteError(err, "failed to update booking")
	}

	if updated.ID == 0 {
		return res, failure.NotFound(fmt.Sprintf("booking not found with id: %d", id)) //nolint:wrapcheck
	}

	log.Info().Int64("id", id).Msg("booking updated")

	res.FromModel(updated)

	go s.invalidateBookingCaches(ctx, updated)

	return res, nil
}

func (s *serviceImpl) Cancel(ctx context.Context, id int64) (res dto.BookingResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Cancel")
	defer scope.End()
	defer scope.TraceIfError(err)

	cancelled, err := s.repo.Transition(ctx, id, model.StatusCancelled, model.CancellableStatuses())
	if errors.Is(err, repository.ErrInvalidStatusTransition) {
		if cancelled.Status == model.StatusCancelled {
			return res, failure.Conflict("booking is already cancelled") //nolint:wrapcheck
		}

		return res, failure.Conflict("cannot cancel a completed booking") //nolint:wrapcheck
	}

	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to cancel booking")

		return res, fmt.Errorf("failed to cancel booking: %w", err)
	}

	if cancelled.ID == 0 {
		return res, failure.NotFound(fmt.Sprintf("booking not found with id: %d", id)) //nolint:wrapcheck
	}

	log.Info().Int64("id", id).Msg("booking cancelled")

	res.FromModel(cancelled)

	go s.invalidateBookingCaches(ctx, cancelled)

	return res, nil
}

// Delete performs the logical delete: the row is kept and its status forced
// to CANCELLED. Unlike Cancel this succeeds for any current status.
func (s *serviceImpl) Delete(ctx context.Context, id int64) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Delete")
	defer scope.End()
	defer scope.TraceIfError(err)

	deleted, err := s.repo.Transition(ctx, id, model.StatusCancelled, nil)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("failed to delete booking")

		return fmt.Errorf("failed to delete booking: %w", err)
	}

	if deleted.ID == 0 {
		return failure.NotFound(fmt.Sprintf("booking not found with id: %d", id)) //nolint:wrapcheck
	}

	log.Info().Int64("id", id).Msg("booking deleted (cancelled)")

	go s.invalidateBookingCaches(ctx, deleted)

	return nil
}

// validateStay enforces the stay window rules: check-in before check-out,
// check-in not in the past, and the stay capped at the configured maximum.
func (s *serviceImpl) validateStay(checkIn, checkOut time.Time) error {
	today, err := time.Parse(constant.BookingDateOnly, timezone.Now().Format(constant.BookingDateOnly))
	if err != nil {
		return failure.InternalError(err) //nolint:wrapcheck
	}

	if checkIn.Before(today) {
		return failure.BadRequestFromString("check-in date cannot be in the past") //nolint:wrapcheck
	}

	if !checkOut.After(checkIn) {
		return failure.BadRequestFromString("check-out date must be after check-in date") //nolint:wrapcheck
	}

	maxNights := s.cfg.Booking.MaxStayNights
	if maxNights <= 0 {
		maxNights = 30
	}

	if model.Nights(checkIn, checkOut) > maxNights {
		return failure.BadRequestFromString(fmt.Sprintf("booking cannot exceed %d nights", maxNights)) //nolint:wrapcheck
	}

	return nil
}

func (s *serviceImpl) mapWriteError(err error, msg string) error {
	switch {
	case errors.Is(err, repository.ErrRoomUnavailable):
		return failure.Conflict(err.Error()) //nolint:wrapcheck
	case errors.Is(err, repository.ErrDuplicateConfirmation):
		return failure.Conflict(err.Error()) //nolint:wrapcheck
	default:
		log.Error().Err(err).Msg(msg)

		return fmt.Errorf("%s: %w", msg, err)
	}
}

func (s *serviceImpl) saveToCache(ctx context.Context, key string, value any) {
	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, key, value, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Str("cacheKey", key).Msg("failed to save booking cache")
		}
	}()
}

func (s *serviceImpl) invalidateListCaches(ctx context.Context) {
	c := context.WithoutCancel(ctx)

	shared.InvalidateCaches(c, s.cache, cacheGetAllBooking)
	shared.InvalidateCaches(c, s.cache, cacheCountByUser)
}

func (s *serviceImpl) invalidateBookingCaches(ctx context.Context, booking model.Booking) {
	c := context.WithoutCancel(ctx)

	if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetBooking, fmt.Sprint(booking.ID))); err != nil {
		log.Error().Err(err).Msg("failed to delete booking from cache")
	}

	if err := s.cache.Delete(c, shared.BuildCacheKey(cacheGetByConfirm, booking.ConfirmationNumber)); err != nil {
		log.Error().Err(err).Msg("failed to delete booking from cache")
	}

	s.invalidateListCaches(c)
}
