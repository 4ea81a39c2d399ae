package listener

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stocktrackerst/stock-tracker/internal/ledger/ledgertest"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/usecase"
	"github.com/stocktrackerst/stock-tracker/internal/model"
	"github.com/stocktrackerst/stock-tracker/pkg/logger"
)

func newListener(t *testing.T) (*MovementListener, *ledgertest.FakeRepository) {
	t.Helper()
	repo := ledgertest.NewFakeRepository()
	uc := usecase.NewLedgerUseCase(repo, nil, logger.NewNop())
	return NewMovementListener(nil, uc, logger.NewNop()), repo
}

func marshal(t *testing.T, ev MovementRequestedEvent) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestProcessMessageAppliesMovement(t *testing.T) {
	l, repo := newListener(t)
	ctx := context.Background()

	l.processMessage(ctx, marshal(t, MovementRequestedEvent{
		EventID:   "ev-1",
		EventType: "MovementRequested",
		Payload: MovementPayload{
			TenantID: "tenant-1", Type: model.MovementReceive,
			Model: "M1", Quantity: 5,
		},
		Timestamp: time.Now(),
	}))

	bal, err := repo.GetBalance(ctx, "tenant-1", "M1")
	require.NoError(t, err)
	require.NotNil(t, bal)
	assert.Equal(t, int64(5), bal.Delivered)
	assert.Equal(t, int64(5), bal.AvailableQty())
}

func TestProcessMessageIgnoresForeignEventTypes(t *testing.T) {
	l, repo := newListener(t)
	ctx := context.Background()

	l.processMessage(ctx, marshal(t, MovementRequestedEvent{
		EventID:   "ev-2",
		EventType: "OrderCreated",
		Payload:   MovementPayload{TenantID: "tenant-1", Type: model.MovementOrder, Model: "M1", Quantity: 5},
	}))

	bal, err := repo.GetBalance(ctx, "tenant-1", "M1")
	require.NoError(t, err)
	assert.Nil(t, bal)
}

func TestProcessMessageSkipsUnknownMovementType(t *testing.T) {
	l, repo := newListener(t)
	ctx := context.Background()

	l.processMessage(ctx, marshal(t, MovementRequestedEvent{
		EventID:   "ev-3",
		EventType: "MovementRequested",
		Payload:   MovementPayload{TenantID: "tenant-1", Type: "transfer", Model: "M1", Quantity: 5},
	}))

	bal, err := repo.GetBalance(ctx, "tenant-1", "M1")
	require.NoError(t, err)
	assert.Nil(t, bal)
}

func TestProcessMessageToleratesMalformedJSON(t *testing.T) {
	l, _ := newListener(t)
	l.processMessage(context.Background(), []byte(`{not json`))
}
