package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocktrackerst/stock-tracker/internal/ledger"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/dto"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/ledgertest"
	"github.com/stocktrackerst/stock-tracker/internal/model"
	"github.com/stocktrackerst/stock-tracker/pkg/logger"
)

const tenant = "tenant-1"

func newUseCase(t *testing.T) (ledger.UseCase, *ledgertest.FakeRepository) {
	t.Helper()
	repo := ledgertest.NewFakeRepository()
	return NewLedgerUseCase(repo, nil, logger.NewNop()), repo
}

func TestOrderCreatesRecordLazily(t *testing.T) {
	uc, _ := newUseCase(t)

	bal, err := uc.Order(context.Background(), &dto.OrderInput{
		TenantID: tenant, Model: "M1", Quantity: 10,
		Supplier: "Acme", BillNo: "B-1", OrderedBy: "sam",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(10), bal.Ordered)
	assert.Equal(t, int64(0), bal.Delivered)
	assert.Equal(t, int64(0), bal.Booked)
	assert.Equal(t, int64(0), bal.Dispatched)
	assert.Equal(t, int64(0), bal.AvailableQty())
	assert.Equal(t, "General", bal.Category)
}

func TestFullMovementScenario(t *testing.T) {
	// Fresh model: Order(10) -> Receive(10) -> Book(4, Hold) ->
	// Dispatch(4, linked). Each step's counters must match the rule table.
	uc, _ := newUseCase(t)
	ctx := context.Background()

	bal, err := uc.Order(ctx, &dto.OrderInput{TenantID: tenant, Model: "M1", Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(10), bal.Ordered)
	assert.Equal(t, int64(0), bal.AvailableQty())

	bal, err = uc.Receive(ctx, &dto.ReceiveInput{TenantID: tenant, Model: "M1", Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(10), bal.Delivered)
	assert.Equal(t, int64(10), bal.AvailableQty())

	bal, err = uc.Book(ctx, &dto.BookInput{TenantID: tenant, Model: "M1", Quantity: 4, Status: model.BookStatusHold})
	require.NoError(t, err)
	assert.Equal(t, int64(4), bal.Booked)
	assert.Equal(t, int64(10), bal.AvailableQty(), "hold must not change availability")

	bal, err = uc.Dispatch(ctx, &dto.DispatchInput{TenantID: tenant, Model: "M1", Quantity: 4, LinkedBookingID: "BK-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), bal.Dispatched)
	assert.Equal(t, int64(0), bal.Booked)
	assert.Equal(t, int64(6), bal.AvailableQty())
}

func TestFirstReceiveCountsAvailabilityOnce(t *testing.T) {
	// A lazily created record has no stored available yet, so the first
	// availability-affecting movement derives its base from the pre-movement
	// counters. Deriving after the deltas land would double the quantity.
	uc, repo := newUseCase(t)
	ctx := context.Background()

	bal, err := uc.Receive(ctx, &dto.ReceiveInput{TenantID: tenant, Model: "M1", Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(10), bal.AvailableQty())
	require.NotNil(t, bal.Available, "first movement materializes stored available")
	assert.Equal(t, int64(10), *bal.Available)

	// Same rule on the dispatch side of a fresh record.
	bal, err = uc.Dispatch(ctx, &dto.DispatchInput{TenantID: tenant, Model: "M2", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(-3), bal.AvailableQty())

	stored, err := repo.GetBalance(ctx, tenant, "M1")
	require.NoError(t, err)
	assert.Equal(t, stored.Opening+stored.Delivered-stored.Dispatched, stored.AvailableQty())
}

func TestCountersEqualSumOfQuantities(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	for _, q := range []int64{3, 7, 2} {
		_, err := uc.Order(ctx, &dto.OrderInput{TenantID: tenant, Model: "M1", Quantity: q})
		require.NoError(t, err)
	}
	for _, q := range []int64{5, 5} {
		_, err := uc.Receive(ctx, &dto.ReceiveInput{TenantID: tenant, Model: "M1", Quantity: q})
		require.NoError(t, err)
	}
	_, err := uc.Book(ctx, &dto.BookInput{TenantID: tenant, Model: "M1", Quantity: 6, Status: model.BookStatusHold})
	require.NoError(t, err)
	_, err = uc.Dispatch(ctx, &dto.DispatchInput{TenantID: tenant, Model: "M1", Quantity: 2, LinkedBookingID: "BK-1"})
	require.NoError(t, err)
	bal, err := uc.Dispatch(ctx, &dto.DispatchInput{TenantID: tenant, Model: "M1", Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, int64(12), bal.Ordered)
	assert.Equal(t, int64(10), bal.Delivered)
	assert.Equal(t, int64(3), bal.Dispatched)
	// booked = hold total (6) minus linked dispatch quantities (2)
	assert.Equal(t, int64(4), bal.Booked)
	// available = opening(0) + delivered(10) - dispatched(3)
	assert.Equal(t, int64(7), bal.AvailableQty())
}

func TestBookSoldDispatchesDirectly(t *testing.T) {
	uc, repo := newUseCase(t)
	ctx := context.Background()

	_, err := uc.Receive(ctx, &dto.ReceiveInput{TenantID: tenant, Model: "M1", Quantity: 5})
	require.NoError(t, err)

	bal, err := uc.Book(ctx, &dto.BookInput{
		TenantID: tenant, Model: "M1", Quantity: 2,
		Status: model.BookStatusSold, BookingID: "BK-9", EnteredBy: "sam",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(0), bal.Booked, "sold booking must not increment booked")
	assert.Equal(t, int64(2), bal.Dispatched)
	assert.Equal(t, int64(3), bal.AvailableQty())

	require.Empty(t, repo.Events(model.MovementBook), "sold booking writes no book event")
	dispatches := repo.Events(model.MovementDispatch)
	require.Len(t, dispatches, 1)
	ev := dispatches[0].(*model.DispatchEvent)
	assert.Equal(t, "DS-BK-9", ev.DispatchID)
	assert.Equal(t, model.DispatchSourceDirect, ev.Source)
	assert.Nil(t, ev.LinkedBookingID)
}

func TestLinkedDispatchClampsBookedAtZero(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	_, err := uc.Book(ctx, &dto.BookInput{TenantID: tenant, Model: "M1", Quantity: 3, Status: model.BookStatusHold})
	require.NoError(t, err)

	bal, err := uc.Dispatch(ctx, &dto.DispatchInput{TenantID: tenant, Model: "M1", Quantity: 5, LinkedBookingID: "BK-1"})
	require.NoError(t, err)

	assert.Equal(t, int64(0), bal.Booked, "booked clamps at zero, never negative")
	assert.Equal(t, int64(5), bal.Dispatched)
}

func TestUnlinkedDispatchLeavesBookedAlone(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	_, err := uc.Book(ctx, &dto.BookInput{TenantID: tenant, Model: "M1", Quantity: 3, Status: model.BookStatusHold})
	require.NoError(t, err)

	bal, err := uc.Dispatch(ctx, &dto.DispatchInput{TenantID: tenant, Model: "M1", Quantity: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(3), bal.Booked)
	assert.Equal(t, int64(2), bal.Dispatched)
}

func TestValidationRejectedBeforeStoreAccess(t *testing.T) {
	uc, repo := newUseCase(t)
	ctx := context.Background()

	cases := []struct {
		name string
		call func() error
	}{
		{"empty tenant", func() error {
			_, err := uc.Order(ctx, &dto.OrderInput{Model: "M1", Quantity: 1})
			return err
		}},
		{"empty model", func() error {
			_, err := uc.Receive(ctx, &dto.ReceiveInput{TenantID: tenant, Model: "  ", Quantity: 1})
			return err
		}},
		{"zero quantity", func() error {
			_, err := uc.Book(ctx, &dto.BookInput{TenantID: tenant, Model: "M1", Quantity: 0, Status: model.BookStatusHold})
			return err
		}},
		{"negative quantity", func() error {
			_, err := uc.Dispatch(ctx, &dto.DispatchInput{TenantID: tenant, Model: "M1", Quantity: -4})
			return err
		}},
		{"bad booking status", func() error {
			_, err := uc.Book(ctx, &dto.BookInput{TenantID: tenant, Model: "M1", Quantity: 1, Status: "Pending"})
			return err
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.call()
			require.Error(t, err)
			assert.True(t, ledger.IsValidation(err), "expected validation error, got %v", err)
		})
	}

	bals, err := repo.ListBalances(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, bals, "rejected input must not create records")
}

func TestStoreErrorPropagatesWithoutSideEffects(t *testing.T) {
	uc, repo := newUseCase(t)
	ctx := context.Background()

	_, err := uc.Receive(ctx, &dto.ReceiveInput{TenantID: tenant, Model: "M1", Quantity: 5})
	require.NoError(t, err)

	boom := errors.New("tx aborted")
	repo.FailApply = boom

	_, err = uc.Receive(ctx, &dto.ReceiveInput{TenantID: tenant, Model: "M1", Quantity: 5})
	require.ErrorIs(t, err, boom)

	bal, err := repo.GetBalance(ctx, tenant, "M1")
	require.NoError(t, err)
	assert.Equal(t, int64(5), bal.Delivered, "failed movement leaves the record as before")
}

func TestConcurrentReceivesLoseNoUpdate(t *testing.T) {
	uc, repo := newUseCase(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Receive(ctx, &dto.ReceiveInput{TenantID: tenant, Model: "X", Quantity: 5})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	bal, err := repo.GetBalance(ctx, tenant, "X")
	require.NoError(t, err)
	assert.Equal(t, int64(10), bal.Delivered)
	assert.Equal(t, int64(10), bal.AvailableQty())
}

func TestCategoryDefaultsAndRefreshes(t *testing.T) {
	uc, _ := newUseCase(t)
	ctx := context.Background()

	bal, err := uc.Order(ctx, &dto.OrderInput{TenantID: tenant, Model: "M1", Quantity: 1, Category: "  "})
	require.NoError(t, err)
	assert.Equal(t, "General", bal.Category)

	bal, err = uc.Order(ctx, &dto.OrderInput{TenantID: tenant, Model: "M1", Quantity: 1, Category: "Compressors"})
	require.NoError(t, err)
	assert.Equal(t, "Compressors", bal.Category)
}

type countingNotifier struct {
	mu      sync.Mutex
	tenants []string
}

func (n *countingNotifier) NotifyChanged(_ context.Context, tenantID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tenants = append(n.tenants, tenantID)
}

func TestNotifierToldAfterEveryCommit(t *testing.T) {
	repo := ledgertest.NewFakeRepository()
	notifier := &countingNotifier{}
	uc := NewLedgerUseCase(repo, notifier, logger.NewNop())
	ctx := context.Background()

	_, err := uc.Order(ctx, &dto.OrderInput{TenantID: tenant, Model: "M1", Quantity: 1})
	require.NoError(t, err)
	_, err = uc.Receive(ctx, &dto.ReceiveInput{TenantID: tenant, Model: "M1", Quantity: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{tenant, tenant}, notifier.tenants)

	repo.FailApply = errors.New("tx aborted")
	_, err = uc.Order(ctx, &dto.OrderInput{TenantID: tenant, Model: "M1", Quantity: 1})
	require.Error(t, err)
	assert.Len(t, notifier.tenants, 2, "failed movement must not notify")
}
