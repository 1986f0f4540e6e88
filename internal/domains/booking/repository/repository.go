package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"stay/infras/otel"
	"stay/infras/postgres"
	"stay/internal/domains/booking/model"
	"stay/shared/constant"
	"stay/shared/logger"
)

var (
	// ErrRoomUnavailable reports that another active booking already occupies
	// the room for an overlapping date range.
	ErrRoomUnavailable = errors.New("room is not available for the selected dates")

	// ErrDuplicateConfirmation reports a collision on the generated
	// confirmation number.
	ErrDuplicateConfirmation = errors.New("confirmation number already exists")

	// ErrBookingFinalized reports an update attempt on a booking already in a
	// terminal state.
	ErrBookingFinalized = errors.New("booking is finalized")

	// ErrInvalidStatusTransition reports a status transition the current
	// state does not allow.
	ErrInvalidStatusTransition = errors.New("status transition not allowed")
)

const allColumns = `id, confirmation_number, room_id, hotel_id, user_id,
	check_in_date, check_out_date, number_of_guests, number_of_nights,
	price_per_night, total_price, status, special_requests, created_at, updated_at`

type Booking interface {
	Insert(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (model.Booking, error)
	GetByConfirmationNumber(ctx context.Context, number string) (model.Booking, error)
	GetAll(ctx context.Context) ([]model.Booking, error)
	GetByStatus(ctx context.Context, status model.BookingStatus) ([]model.Booking, error)
	GetByUserID(ctx context.Context, userID string) ([]model.Booking, error)
	GetByUserIDAndStatus(ctx context.Context, userID string, status model.BookingStatus) ([]model.Booking, error)
	GetByHotelID(ctx context.Context, hotelID int64) ([]model.Booking, error)
	GetByRoomID(ctx context.Context, roomID int64) ([]model.Booking, error)
	CountByUserID(ctx context.Context, userID string) (int64, error)
	Update(ctx context.Context, id int64, fields map[string]any) (model.Booking, error)
	Transition(ctx context.Context, id int64, to model.BookingStatus, allowedFrom []model.BookingStatus) (model.Booking, error)
}

type repositoryImpl struct {
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	return &repositoryImpl{
		db:   db,
		otel: otel,
	}
}

// Insert persists a new booking inside one transaction: the availability
// check and the write either both commit or neither does. The id and audit
// timestamps are assigned by the database and copied back onto the model.
func (repo *repositoryImpl) Insert(ctx context.Context, booking *model.Booking) (err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+"."+model.EntityName+".Insert")
	defer scope.End()
	defer scope.TraceIfError(err)

	tx, err := repo.db.Write.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction (%s): %w", model.EntityName, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	taken, err := existsOverlapping(ctx, tx, booking.RoomID, booking.CheckInDate, booking.CheckOutDate, 0)
	if err != nil {
		return err
	}

	if taken {
		return ErrRoomUnavailable
	}

	query := fmt.Sprintf(`INSERT INTO %s
		(confirmation_number, room_id, hotel_id, user_id, check_in_date, check_out_date,
		 number_of_guests, number_of_nights, price_per_night, total_price, status, special_requests)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`, model.TableName)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	err = tx.QueryRowxContext(ctx, query,
		booking.ConfirmationNumber,
		booking.RoomID,
		booking.HotelID,
		booking.UserID,
		booking.CheckInDate,
		booking.CheckOutDate,
		booking.NumberOfGuests,
		booking.NumberOfNights,
		booking.PricePerNight,
		booking.TotalPrice,
		booking.Status,
		booking.SpecialRequests,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == constant.PqErrorCodeUniqueViolation {
			return ErrDuplicateConfirmation
		}

		logger.ErrorWithStack(err)

		return fmt.Errorf("failed to insert data (%s): %w", model.EntityName, err)
	}

	return tx.Commit() //nolint:wrapcheck
}

func (repo *repositoryImpl) GetByID(ctx context.Context, id int64) (model.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", allColumns, model.TableName)

	return repo.getOne(ctx, "GetByID", query, id)
}

func (repo *repositoryImpl) GetByConfirmationNumber(ctx context.Context, number string) (model.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE confirmation_number = $1", allColumns, model.TableName)

	return repo.getOne(ctx, "GetByConfirmationNumber", query, number)
}

func (repo *repositoryImpl) GetAll(ctx context.Context) ([]model.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC", allColumns, model.TableName)

	return repo.getMany(ctx, "GetAll", query)
}

func (repo *repositoryImpl) GetByStatus(ctx context.Context, status model.BookingStatus) ([]model.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE status = $1 ORDER BY created_at DESC", allColumns, model.TableName)

	return repo.getMany(ctx, "GetByStatus", query, status)
}

func (repo *repositoryImpl) GetByUserID(ctx context.Context, userID string) ([]model.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = $1 ORDER BY created_at DESC", allColumns, model.TableName)

	return repo.getMany(ctx, "GetByUserID", query, userID)
}

func (repo *repositoryImpl) GetByUserIDAndStatus(ctx context.Context, userID string, status model.BookingStatus) ([]model.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE user_id = $1 AND status = $2 ORDER BY created_at DESC", allColumns, model.TableName)

	return repo.getMany(ctx, "GetByUserIDAndStatus", query, userID, status)
}

func (repo *repositoryImpl) GetByHotelID(ctx context.Context, hotelID int64) ([]model.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE hotel_id = $1 ORDER BY created_at DESC", allColumns, model.TableName)

	return repo.getMany(ctx, "GetByHotelID", query, hotelID)
}

func (repo *repositoryImpl) GetByRoomID(ctx context.Context, roomID int64) ([]model.Booking, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE room_id = $1 ORDER BY created_at DESC", allColumns, model.TableName)

	return repo.getMany(ctx, "GetByRoomID", query, roomID)
}

func (repo *repositoryImpl) CountByUserID(ctx context.Context, userID string) (count int64, err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+"."+model.EntityName+".CountByUserID")
	defer scope.End()
	defer scope.TraceIfError(err)

	query := fmt.Sprintf("SELECT COUNT(id) FROM %s WHERE user_id = $1", model.TableName)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	err = repo.db.Read.GetContext(ctx, &count, query, userID)
	if err != nil {
		logger.ErrorWithStack(err)

		return 0, fmt.Errorf("failed to count data (%s): %w", model.EntityName, err)
	}

	return count, nil
}

// Update applies the given column values to one booking inside a single
// transaction. The current row is locked first, so the finality check and,
// when the stay window changes, the availability re-check both see committed
// state that cannot shift before the write. updated_at is always refreshed.
// A vanished row yields a zero model.
func (repo *repositoryImpl) Update(ctx context.Context, id int64, fields map[string]any) (booking model.Booking, err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+"."+model.EntityName+".Update")
	defer scope.End()
	defer scope.TraceIfError(err)

	tx, err := repo.db.Write.BeginTxx(ctx, nil)
	if err != nil {
		return booking, fmt.Errorf("failed to begin transaction (%s): %w", model.EntityName, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	current, err := lockBooking(ctx, tx, id)
	if err != nil {
		return booking, err
	}

	if current.ID == 0 {
		return model.Booking{}, tx.Commit() //nolint:wrapcheck
	}

	if current.Status.Final() {
		return current, ErrBookingFinalized
	}

	checkIn, hasCheckIn := fields[model.FieldCheckInDate]
	checkOut, hasCheckOut := fields[model.FieldCheckOutDate]

	if hasCheckIn && hasCheckOut {
		taken, existsErr := existsOverlapping(ctx, tx, current.RoomID, checkIn, checkOut, id)
		if existsErr != nil {
			return booking, existsErr
		}

		if taken {
			return booking, ErrRoomUnavailable
		}
	}

	columns := make([]string, 0, len(fields))
	for column := range fields {
		columns = append(columns, column)
	}

	sort.Strings(columns)

	assignments := make([]string, 0, len(columns)+1)
	args := make([]any, 0, len(columns)+1)

	for i, column := range columns {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, i+1))
		args = append(args, fields[column])
	}

	assignments = append(assignments, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		model.TableName, strings.Join(assignments, ", "), len(args), allColumns)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	err = tx.QueryRowxContext(ctx, query, args...).StructScan(&booking)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, tx.Commit() //nolint:wrapcheck
	}

	if err != nil {
		logger.ErrorWithStack(err)

		return model.Booking{}, fmt.Errorf("failed to update data (%s): %w", model.EntityName, err)
	}

	return booking, tx.Commit() //nolint:wrapcheck
}

// Transition moves a booking to the given status inside one transaction. The
// row is locked before the state check, so concurrent transitions serialize
// and only one of two racing cancels passes the guard. A nil allowedFrom
// permits any current status. When the current status is not allowed, that
// booking is returned alongside ErrInvalidStatusTransition so callers can
// report the offending state.
func (repo *repositoryImpl) Transition(ctx context.Context, id int64, to model.BookingStatus, allowedFrom []model.BookingStatus) (booking model.Booking, err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+"."+model.EntityName+".Transition")
	defer scope.End()
	defer scope.TraceIfError(err)

	tx, err := repo.db.Write.BeginTxx(ctx, nil)
	if err != nil {
		return booking, fmt.Errorf("failed to begin transaction (%s): %w", model.EntityName, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	current, err := lockBooking(ctx, tx, id)
	if err != nil {
		return booking, err
	}

	if current.ID == 0 {
		return model.Booking{}, tx.Commit() //nolint:wrapcheck
	}

	if allowedFrom != nil && !statusIn(current.Status, allowedFrom) {
		return current, ErrInvalidStatusTransition
	}

	query := fmt.Sprintf("UPDATE %s SET status = $1, updated_at = now() WHERE id = $2 RETURNING %s",
		model.TableName, allColumns)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	err = tx.QueryRowxContext(ctx, query, to, id).StructScan(&booking)
	if err != nil {
		logger.ErrorWithStack(err)

		return model.Booking{}, fmt.Errorf("failed to update status (%s): %w", model.EntityName, err)
	}

	return booking, tx.Commit() //nolint:wrapcheck
}

func (repo *repositoryImpl) getOne(ctx context.Context, operation, query string, args ...any) (booking model.Booking, err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+"."+model.EntityName+"."+operation)
	defer scope.End()
	defer scope.TraceIfError(err)

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	err = repo.db.Read.GetContext(ctx, &booking, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)

		return model.Booking{}, fmt.Errorf("failed to get data (%s): %w", model.EntityName, err)
	}

	return booking, nil
}

func (repo *repositoryImpl) getMany(ctx context.Context, operation, query string, args ...any) (bookings []model.Booking, err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+"."+model.EntityName+"."+operation)
	defer scope.End()
	defer scope.TraceIfError(err)

	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	err = repo.db.Read.SelectContext(ctx, &bookings, query, args...)
	if err != nil {
		logger.ErrorWithStack(err)

		return nil, fmt.Errorf("failed to get all data (%s): %w", model.EntityName, err)
	}

	return bookings, nil
}

// lockBooking reads one booking under a row lock so the caller's subsequent
// checks and writes run against state no other transaction can change. A
// missing row yields a zero model.
func lockBooking(ctx context.Context, tx *sqlx.Tx, id int64) (booking model.Booking, err error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1 FOR UPDATE", allColumns, model.TableName)

	err = tx.GetContext(ctx, &booking, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)

		return model.Booking{}, fmt.Errorf("failed to lock data (%s): %w", model.EntityName, err)
	}

	return booking, nil
}

func statusIn(status model.BookingStatus, set []model.BookingStatus) bool {
	for _, allowed := range set {
		if status == allowed {
			return true
		}
	}

	return false
}

// existsOverlapping checks whether any active booking of the room collides
// with the [checkIn, checkOut) window. Bounds are exclusive on both sides so
// back-to-back stays on the same room are allowed. excludeID carries the
// booking being updated, zero on insert.
func existsOverlapping(ctx context.Context, tx *sqlx.Tx, roomID int64, checkIn, checkOut any, excludeID int64) (bool, error) {
	statuses := make([]string, 0, len(model.ActiveStatuses()))
	for _, status := range model.ActiveStatuses() {
		statuses = append(statuses, string(status))
	}

	query := fmt.Sprintf(`SELECT EXISTS(
		SELECT 1 FROM %s
		WHERE room_id = $1
		  AND check_in_date < $2
		  AND check_out_date > $3
		  AND status = ANY($4)
		  AND id <> $5)`, model.TableName)

	var exists bool

	err := tx.GetContext(ctx, &exists, query, roomID, checkOut, checkIn, pq.Array(statuses), excludeID)
	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to check room availability (%s): %w", model.EntityName, err)
	}

	return exists, nil
}
