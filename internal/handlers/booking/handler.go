package booking

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"stay/infras/otel"
	"stay/internal/domains/booking/model/dto"
	"stay/internal/domains/booking/service"
	"stay/shared/constant"
	"stay/shared/failure"
	"stay/shared/validator"
	"stay/transport/http/response"
)

type Handler struct {
	service service.Booking
	otel    otel.Otel
}

func New(service service.Booking, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/bookings", func(routerGroup chi.Router) {
		routerGroup.Post("/", handler.CreateBooking)
		routerGroup.Get("/", handler.GetBookings)
		routerGroup.Get("/health", handler.Health)
		routerGroup.Get("/confirmation/{confirmationNumber}", handler.GetBookingByConfirmationNumber)
		routerGroup.Get("/user/{userId}", handler.GetBookingsByUser)
		routerGroup.Get("/user/{userId}/count", handler.CountBookingsByUser)
		routerGroup.Get("/hotel/{hotelId}", handler.GetBookingsByHotel)
		routerGroup.Get("/room/{roomId}", handler.GetBookingsByRoom)
		routerGroup.Get("/{id}", handler.GetBookingByID)
		routerGroup.Put("/{id}", handler.UpdateBooking)
		routerGroup.Patch("/{id}/cancel", handler.CancelBooking)
		routerGroup.Delete("/{id}", handler.DeleteBooking)
	})
}

// CreateBooking handles the creation of a new booking.
// @Summary Create a new booking
// @Description Create a booking for a room. The stay window is validated and the room checked for availability.
// @Tags Booking
// @Accept json
// @Produce json
// @Param request body dto.CreateBookingRequest true "Create Booking Request"
// @Success 201 {object} response.Data[dto.BookingResponse] "Booking created successfully"
// @Failure 400 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings [post]
func (handler *Handler) CreateBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CreateBooking")
	defer scope.End()

	req := dto.CreateBookingRequest{}

	if err := validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.Create(ctx, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to create booking")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Booking created with confirmation number " + booking.ConfirmationNumber)

	response.WithJSON(writer, http.StatusCreated, booking)
}

// GetBookings retrieves all bookings, optionally filtered by status.
// @Summary Get all bookings
// @Description Retrieve all bookings, newest first. An optional status query narrows the result.
// @Tags Booking
// @Produce json
// @Param status query string false "Filter by status" Enums(PENDING, CONFIRMED, CANCELLED, COMPLETED, NO_SHOW)
// @Success 200 {object} response.Data[[]dto.BookingResponse] "List of bookings"
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings [get]
func (handler *Handler) GetBookings(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookings")
	defer scope.End()

	status := request.URL.Query().Get(constant.RequestParamStatus)

	bookings, err := handler.service.GetAll(ctx, status)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get bookings")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, bookings)
}

// GetBookingByID retrieves a single booking by its id.
// @Summary Get a booking by id
// @Tags Booking
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} response.Data[dto.BookingResponse]
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id} [get]
func (handler *Handler) GetBookingByID(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingByID")
	defer scope.End()

	id, err := parseID(request, constant.RequestParamID)
	if err != nil {
		scope.TraceError(err)

		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.Get(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Int64("id", id).Msg("failed to get booking")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, booking)
}

// GetBookingByConfirmationNumber retrieves a booking by its confirmation number.
// @Summary Get a booking by confirmation number
// @Tags Booking
// @Produce json
// @Param confirmationNumber path string true "Confirmation number"
// @Success 200 {object} response.Data[dto.BookingResponse]
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/confirmation/{confirmationNumber} [get]
func (handler *Handler) GetBookingByConfirmationNumber(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingByConfirmationNumber")
	defer scope.End()

	number := chi.URLParam(request, constant.RequestParamConfirmationNumber)

	booking, err := handler.service.GetByConfirmationNumber(ctx, number)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("confirmationNumber", number).Msg("failed to get booking")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, booking)
}

// GetBookingsByUser retrieves the bookings of one user.
// @Summary Get bookings by user
// @Tags Booking
// @Produce json
// @Param userId path string true "User ID"
// @Param status query string false "Filter by status" Enums(PENDING, CONFIRMED, CANCELLED, COMPLETED, NO_SHOW)
// @Success 200 {object} response.Data[[]dto.BookingResponse]
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/user/{userId} [get]
func (handler *Handler) GetBookingsByUser(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingsByUser")
	defer scope.End()

	userID := chi.URLParam(request, constant.RequestParamUserID)
	status := request.URL.Query().Get(constant.RequestParamStatus)

	bookings, err := handler.service.GetByUserID(ctx, userID, status)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("userId", userID).Msg("failed to get bookings for user")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, bookings)
}

// CountBookingsByUser returns how many bookings a user has made.
// @Summary Count bookings by user
// @Tags Booking
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {object} response.Data[dto.BookingCountResponse]
// @Failure 500 {object} response.Error
// @Router /v1/bookings/user/{userId}/count [get]
func (handler *Handler) CountBookingsByUser(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CountBookingsByUser")
	defer scope.End()

	userID := chi.URLParam(request, constant.RequestParamUserID)

	count, err := handler.service.CountByUserID(ctx, userID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("userId", userID).Msg("failed to count bookings for user")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, count)
}

// GetBookingsByHotel retrieves the bookings of one hotel.
// @Summary Get bookings by hotel
// @Tags Booking
// @Produce json
// @Param hotelId path int true "Hotel ID"
// @Success 200 {object} response.Data[[]dto.BookingResponse]
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/hotel/{hotelId} [get]
func (handler *Handler) GetBookingsByHotel(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingsByHotel")
	defer scope.End()

	hotelID, err := parseID(request, constant.RequestParamHotelID)
	if err != nil {
		scope.TraceError(err)

		response.WithError(writer, err)

		return
	}

	bookings, err := handler.service.GetByHotelID(ctx, hotelID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Int64("hotelId", hotelID).Msg("failed to get bookings for hotel")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, bookings)
}

// GetBookingsByRoom retrieves the bookings of one room.
// @Summary Get bookings by room
// @Tags Booking
// @Produce json
// @Param roomId path int true "Room ID"
// @Success 200 {object} response.Data[[]dto.BookingResponse]
// @Failure 400 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/room/{roomId} [get]
func (handler *Handler) GetBookingsByRoom(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetBookingsByRoom")
	defer scope.End()

	roomID, err := parseID(request, constant.RequestParamRoomID)
	if err != nil {
		scope.TraceError(err)

		response.WithError(writer, err)

		return
	}

	bookings, err := handler.service.GetByRoomID(ctx, roomID)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Int64("roomId", roomID).Msg("failed to get bookings for room")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, bookings)
}

// UpdateBooking applies a partial update to a booking.
// @Summary Update a booking
// @Description Update the stay window, guest count or special requests of a booking. Dates travel as a pair.
// @Tags Booking
// @Accept json
// @Produce json
// @Param id path int true "Booking ID"
// @Param request body dto.UpdateBookingRequest true "Update Booking Request"
// @Success 200 {object} response.Data[dto.BookingResponse]
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id} [put]
func (handler *Handler) UpdateBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".UpdateBooking")
	defer scope.End()

	id, err := parseID(request, constant.RequestParamID)
	if err != nil {
		scope.TraceError(err)

		response.WithError(writer, err)

		return
	}

	req := dto.UpdateBookingRequest{}

	if err = validator.Validate(request.Body, &req); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to validate request body")

		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.Update(ctx, id, req)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Int64("id", id).Msg("failed to update booking")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, booking)
}

// CancelBooking cancels a booking.
// @Summary Cancel a booking
// @Description Transition a booking to CANCELLED. Already cancelled or completed bookings are rejected.
// @Tags Booking
// @Produce json
// @Param id path int true "Booking ID"
// @Success 200 {object} response.Data[dto.BookingResponse]
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 409 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id}/cancel [patch]
func (handler *Handler) CancelBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CancelBooking")
	defer scope.End()

	id, err := parseID(request, constant.RequestParamID)
	if err != nil {
		scope.TraceError(err)

		response.WithError(writer, err)

		return
	}

	booking, err := handler.service.Cancel(ctx, id)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Int64("id", id).Msg("failed to cancel booking")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Booking cancelled")

	response.WithJSON(writer, http.StatusOK, booking)
}

// DeleteBooking logically deletes a booking by forcing it to CANCELLED.
// @Summary Delete a booking
// @Description The booking row is kept for audit; its status is forced to CANCELLED regardless of the current state.
// @Tags Booking
// @Param id path int true "Booking ID"
// @Success 204 "Booking deleted"
// @Failure 400 {object} response.Error
// @Failure 404 {object} response.Error
// @Failure 500 {object} response.Error
// @Router /v1/bookings/{id} [delete]
func (handler *Handler) DeleteBooking(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".DeleteBooking")
	defer scope.End()

	id, err := parseID(request, constant.RequestParamID)
	if err != nil {
		scope.TraceError(err)

		response.WithError(writer, err)

		return
	}

	if err = handler.service.Delete(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Int64("id", id).Msg("failed to delete booking")

		response.WithError(writer, err)

		return
	}

	scope.AddEvent("Booking deleted")

	writer.WriteHeader(http.StatusNoContent)
}

// Health reports service liveness.
// @Summary Liveness probe
// @Tags Booking
// @Produce json
// @Success 200 {object} response.Message
// @Router /v1/bookings/health [get]
func (handler *Handler) Health(writer http.ResponseWriter, _ *http.Request) {
	response.WithMessage(writer, http.StatusOK, "Booking service is running")
}

func parseID(request *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(request, param), 10, 64)
	if err != nil {
		return 0, failure.BadRequestFromString(param + " must be a valid number") //nolint:wrapcheck
	}

	return id, nil
}
