package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/bogo-voucher/internal/model"
	"github.com/fairyhunter13/bogo-voucher/internal/service"
)

func intPtr(i int) *int {
	return &i
}

func TestOfferRepository_Insert_Success(t *testing.T) {
	var capturedSQL string
	var capturedArgs []any
	created := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			capturedSQL = sql
			capturedArgs = args
			return &mockRow{scanFn: func(dest ...any) error {
				*(dest[0].(*time.Time)) = created
				*(dest[1].(*time.Time)) = created
				return nil
			}}
		},
	}

	repo := NewOfferRepositoryWithPool(mock)
	offer := &model.Offer{
		ID:              uuid.New(),
		VendorID:        "vendor-1",
		Title:           "Burger BOGO",
		Active:          true,
		MaxReservations: intPtr(10),
		IssuedCount:     7,
		Rule:            model.ValidityRule{Weekdays: []int{1, 3}, FromHour: intPtr(23), UntilHour: intPtr(2)},
	}

	err := repo.Insert(context.Background(), offer)

	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "INSERT INTO offers")
	assert.Contains(t, capturedSQL, "RETURNING created_at, updated_at")
	assert.Equal(t, offer.ID, capturedArgs[0])
	assert.Equal(t, "vendor-1", capturedArgs[1])
	assert.Equal(t, []int32{1, 3}, capturedArgs[5])
	assert.Equal(t, 0, offer.IssuedCount, "issued_count always starts at zero")
	assert.Equal(t, created, offer.CreatedAt)
}

func TestOfferRepository_Insert_DatabaseError(t *testing.T) {
	dbErr := errors.New("connection refused")
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return errRow(dbErr)
		},
	}

	err := NewOfferRepositoryWithPool(mock).Insert(context.Background(), &model.Offer{ID: uuid.New()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert offer")
	assert.True(t, errors.Is(err, dbErr), "should wrap original error")
}

func TestOfferRepository_GetByID_Success(t *testing.T) {
	id := uuid.New()
	from := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error {
				*(dest[0].(*uuid.UUID)) = id
				*(dest[1].(*string)) = "vendor-1"
				*(dest[2].(*string)) = "Burger BOGO"
				*(dest[3].(*bool)) = true
				*(dest[4].(**int)) = intPtr(10)
				*(dest[5].(*int)) = 4
				*(dest[6].(*[]int32)) = []int32{3}
				*(dest[7].(**int)) = intPtr(23)
				*(dest[8].(**int)) = intPtr(2)
				*(dest[9].(**time.Time)) = &from
				return nil
			}}
		},
	}

	offer, err := NewOfferRepositoryWithPool(mock).GetByID(context.Background(), id)

	require.NoError(t, err)
	require.NotNil(t, offer)
	assert.Equal(t, id, offer.ID)
	assert.Equal(t, 4, offer.IssuedCount)
	assert.Equal(t, []int{3}, offer.Rule.Weekdays)
	assert.True(t, offer.Rule.Overnight())
	assert.Equal(t, from, *offer.Rule.FromDate)
	assert.Nil(t, offer.Rule.UntilDate)
	assert.Equal(t, 6, *offer.Remaining())
}

func TestOfferRepository_GetByID_EmptyWeekdaysMeansEveryDay(t *testing.T) {
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return &mockRow{scanFn: func(dest ...any) error {
				*(dest[6].(*[]int32)) = []int32{}
				return nil
			}}
		},
	}

	offer, err := NewOfferRepositoryWithPool(mock).GetByID(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Nil(t, offer.Rule.Weekdays)
}

func TestOfferRepository_GetByID_NotFound(t *testing.T) {
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return errRow(pgx.ErrNoRows)
		},
	}

	offer, err := NewOfferRepositoryWithPool(mock).GetByID(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Nil(t, offer)
}

func TestOfferRepository_GetByID_DatabaseError(t *testing.T) {
	dbErr := errors.New("connection timeout")
	mock := &mockPool{
		queryRowFn: func(ctx context.Context, sql string, args ...any) pgx.Row {
			return errRow(dbErr)
		},
	}

	_, err := NewOfferRepositoryWithPool(mock).GetByID(context.Background(), uuid.New())

	require.Error(t, err)
	assert.True(t, errors.Is(err, dbErr))
}

func TestOfferRepository_UpdateValidity(t *testing.T) {
	var capturedSQL string
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			capturedSQL = sql
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}

	err := NewOfferRepositoryWithPool(mock).UpdateValidity(context.Background(), uuid.New(), model.ValidityRule{UntilHour: intPtr(17)})

	require.NoError(t, err)
	assert.Contains(t, capturedSQL, "UPDATE offers SET weekdays")
	assert.NotContains(t, capturedSQL, "issued_count", "validity edits must not touch capacity")
}

func TestOfferRepository_UpdateValidity_NotFound(t *testing.T) {
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}

	err := NewOfferRepositoryWithPool(mock).UpdateValidity(context.Background(), uuid.New(), model.ValidityRule{})

	assert.True(t, errors.Is(err, service.ErrOfferNotFound))
}

func TestOfferRepository_SetActive(t *testing.T) {
	var capturedArgs []any
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			capturedArgs = arguments
			return pgconn.NewCommandTag("UPDATE 1"), nil
		},
	}
	id := uuid.New()

	err := NewOfferRepositoryWithPool(mock).SetActive(context.Background(), id, false)

	require.NoError(t, err)
	assert.Equal(t, []any{id, false}, capturedArgs)
}

func TestOfferRepository_SetActive_NotFound(t *testing.T) {
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			return pgconn.NewCommandTag("UPDATE 0"), nil
		},
	}

	err := NewOfferRepositoryWithPool(mock).SetActive(context.Background(), uuid.New(), true)

	assert.True(t, errors.Is(err, service.ErrOfferNotFound))
}

func TestOfferRepository_SetActive_DatabaseError(t *testing.T) {
	dbErr := errors.New("connection reset")
	mock := &mockPool{
		execFn: func(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
			return pgconn.CommandTag{}, dbErr
		},
	}

	err := NewOfferRepositoryWithPool(mock).SetActive(context.Background(), uuid.New(), true)

	require.Error(t, err)
	assert.True(t, errors.Is(err, dbErr))
	assert.Contains(t, err.Error(), "set offer active")
}

// TestNewOfferRepository_Production verifies the production constructor exists.
func TestNewOfferRepository_Production(t *testing.T) {
	repo := NewOfferRepository(nil)
	require.NotNil(t, repo)
}
