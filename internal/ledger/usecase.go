package ledger

import (
	"context"

	"github.com/stocktrackerst/stock-tracker/internal/ledger/dto"
	"github.com/stocktrackerst/stock-tracker/internal/model"
)

// UseCase is the single canonical implementation of the balance update rules.
// Every ingest path (HTTP, broker) goes through it; nothing else mutates
// balance counters.
type UseCase interface {
	Order(ctx context.Context, input *dto.OrderInput) (*model.BalanceRecord, error)
	Receive(ctx context.Context, input *dto.ReceiveInput) (*model.BalanceRecord, error)
	Book(ctx context.Context, input *dto.BookInput) (*model.BalanceRecord, error)
	Dispatch(ctx context.Context, input *dto.DispatchInput) (*model.BalanceRecord, error)

	GetBalance(ctx context.Context, tenantID, modelName string) (*model.BalanceRecord, error)
	ListBalances(ctx context.Context, tenantID string) ([]model.BalanceRecord, error)
	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.Movement, int, error)
}

// ChangeNotifier is told after every committed movement so read projections
// can refresh. Notification is best-effort; a missed notification delays a
// snapshot, it never loses data.
type ChangeNotifier interface {
	NotifyChanged(ctx context.Context, tenantID string)
}
