package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fairyhunter13/bogo-voucher/internal/model"
	"github.com/fairyhunter13/bogo-voucher/pkg/database"
)

// mockOfferRepository is a mock implementation of OfferRepositoryInterface.
type mockOfferRepository struct {
	insertFn         func(ctx context.Context, offer *model.Offer) error
	getByIDFn        func(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	updateValidityFn func(ctx context.Context, id uuid.UUID, rule model.ValidityRule) error
	setActiveFn      func(ctx context.Context, id uuid.UUID, active bool) error
}

func (m *mockOfferRepository) Insert(ctx context.Context, offer *model.Offer) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, offer)
	}
	return nil
}

func (m *mockOfferRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockOfferRepository) UpdateValidity(ctx context.Context, id uuid.UUID, rule model.ValidityRule) error {
	if m.updateValidityFn != nil {
		return m.updateValidityFn(ctx, id, rule)
	}
	return nil
}

func (m *mockOfferRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, id, active)
	}
	return nil
}

// memLedger is an in-memory CapacityLedger. Admissions taken inside a *mockTx are
// undone when that transaction rolls back, like an UPDATE inside a real transaction.
type memLedger struct {
	mu       sync.Mutex
	max      *int
	issued   int
	admitErr error
}

func (l *memLedger) TryAdmit(ctx context.Context, q database.TxQuerier, offerID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.admitErr != nil {
		return l.admitErr
	}
	if l.max != nil && l.issued >= *l.max {
		return ErrSoldOut
	}
	l.issued++
	if tx, ok := q.(*mockTx); ok {
		tx.onRollback(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.issued--
		})
	}
	return nil
}

func (l *memLedger) Release(ctx context.Context, q database.TxQuerier, offerID uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.issued > 0 {
		l.issued--
	}
	return nil
}

func (l *memLedger) Issued(ctx context.Context, q database.TxQuerier, offerID uuid.UUID) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.issued, nil
}

func (l *memLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.issued
}

// mockReservationRepository is a mock implementation of ReservationRepositoryInterface.
type mockReservationRepository struct {
	listByOfferFn func(ctx context.Context, offerID uuid.UUID) ([]model.Reservation, error)
	codeExistsFn  func(ctx context.Context, q database.TxQuerier, code string) (bool, error)
	insertFn      func(ctx context.Context, q database.TxQuerier, r *model.Reservation) error
	getByIDFn     func(ctx context.Context, q database.TxQuerier, id uuid.UUID) (*model.Reservation, error)
	markUsedFn    func(ctx context.Context, q database.TxQuerier, id uuid.UUID, usedAt time.Time) (bool, error)
	cancelFn      func(ctx context.Context, q database.TxQuerier, id uuid.UUID) (bool, error)
}

func (m *mockReservationRepository) ListByOffer(ctx context.Context, offerID uuid.UUID) ([]model.Reservation, error) {
	if m.listByOfferFn != nil {
		return m.listByOfferFn(ctx, offerID)
	}
	return []model.Reservation{}, nil
}

func (m *mockReservationRepository) CodeExists(ctx context.Context, q database.TxQuerier, code string) (bool, error) {
	if m.codeExistsFn != nil {
		return m.codeExistsFn(ctx, q, code)
	}
	return false, nil
}

func (m *mockReservationRepository) Insert(ctx context.Context, q database.TxQuerier, r *model.Reservation) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, q, r)
	}
	return nil
}

func (m *mockReservationRepository) GetByID(ctx context.Context, q database.TxQuerier, id uuid.UUID) (*model.Reservation, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, q, id)
	}
	return nil, nil
}

func (m *mockReservationRepository) MarkUsed(ctx context.Context, q database.TxQuerier, id uuid.UUID, usedAt time.Time) (bool, error) {
	if m.markUsedFn != nil {
		return m.markUsedFn(ctx, q, id, usedAt)
	}
	return true, nil
}

func (m *mockReservationRepository) Cancel(ctx context.Context, q database.TxQuerier, id uuid.UUID) (bool, error) {
	if m.cancelFn != nil {
		return m.cancelFn(ctx, q, id)
	}
	return true, nil
}

// mockVoucherRepository is a mock implementation of VoucherRepositoryInterface.
type mockVoucherRepository struct {
	codeExistsFn         func(ctx context.Context, q database.TxQuerier, code string) (bool, error)
	insertFn             func(ctx context.Context, q database.TxQuerier, v *model.Voucher) error
	getByCodeFn          func(ctx context.Context, code string) (*model.Voucher, error)
	getByReservationIDFn func(ctx context.Context, reservationID uuid.UUID) (*model.Voucher, error)
	markUsedFn           func(ctx context.Context, q database.TxQuerier, id uuid.UUID, usedAt time.Time) (bool, error)
}

func (m *mockVoucherRepository) CodeExists(ctx context.Context, q database.TxQuerier, code string) (bool, error) {
	if m.codeExistsFn != nil {
		return m.codeExistsFn(ctx, q, code)
	}
	return false, nil
}

func (m *mockVoucherRepository) Insert(ctx context.Context, q database.TxQuerier, v *model.Voucher) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, q, v)
	}
	return nil
}

func (m *mockVoucherRepository) GetByCode(ctx context.Context, code string) (*model.Voucher, error) {
	if m.getByCodeFn != nil {
		return m.getByCodeFn(ctx, code)
	}
	return nil, nil
}

func (m *mockVoucherRepository) GetByReservationID(ctx context.Context, reservationID uuid.UUID) (*model.Voucher, error) {
	if m.getByReservationIDFn != nil {
		return m.getByReservationIDFn(ctx, reservationID)
	}
	return nil, nil
}

func (m *mockVoucherRepository) MarkUsed(ctx context.Context, q database.TxQuerier, id uuid.UUID, usedAt time.Time) (bool, error) {
	if m.markUsedFn != nil {
		return m.markUsedFn(ctx, q, id, usedAt)
	}
	return true, nil
}

// mockCache is a mock implementation of OfferCache.
type mockCache struct {
	getFn        func(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	setFn        func(ctx context.Context, offer *model.Offer) error
	invalidateFn func(ctx context.Context, id uuid.UUID) error
}

func (m *mockCache) Get(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, nil
}

func (m *mockCache) Set(ctx context.Context, offer *model.Offer) error {
	if m.setFn != nil {
		return m.setFn(ctx, offer)
	}
	return nil
}

func (m *mockCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if m.invalidateFn != nil {
		return m.invalidateFn(ctx, id)
	}
	return nil
}

// mockTx is a mock implementation of pgx.Tx for testing transactions.
type mockTx struct {
	commitFn   func(ctx context.Context) error
	rollbackFn func(ctx context.Context) error

	mu        sync.Mutex
	done      bool
	committed bool
	undo      []func()
}

func (m *mockTx) onRollback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = append(m.undo, fn)
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	return nil, errors.New("nested transactions not supported")
}

func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitFn != nil {
		if err := m.commitFn(ctx); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = true
	m.committed = true
	return nil
}

func (m *mockTx) Rollback(ctx context.Context) error {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return nil
	}
	m.done = true
	undo := m.undo
	m.mu.Unlock()

	for i := len(undo) - 1; i >= 0; i-- {
		undo[i]()
	}
	if m.rollbackFn != nil {
		return m.rollbackFn(ctx)
	}
	return nil
}

func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *mockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}

func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *mockTx) Conn() *pgx.Conn {
	return nil
}

// mockTxBeginner is a mock implementation of TxBeginner.
type mockTxBeginner struct {
	beginFn func(ctx context.Context) (pgx.Tx, error)
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	if m.beginFn != nil {
		return m.beginFn(ctx)
	}
	return &mockTx{}, nil
}

func intPtr(i int) *int {
	return &i
}
