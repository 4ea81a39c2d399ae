package ledger

import (
	"context"

	"github.com/stocktrackerst/stock-tracker/internal/ledger/dto"
	"github.com/stocktrackerst/stock-tracker/internal/model"
)

type Repository interface {
	// GetBalance returns nil, nil when no record exists for the model.
	GetBalance(ctx context.Context, tenantID, modelName string) (*model.BalanceRecord, error)

	// CreateIfAbsent lazily creates an all-zero balance record. Racing
	// creations are harmless; the first writer wins and the rest no-op.
	CreateIfAbsent(ctx context.Context, tenantID, modelName, category string) error

	// ApplyMovement runs the delta against the balance row and appends the
	// event record in one transaction. The read-modify-write happens under a
	// row lock; a failed transaction leaves both untouched.
	ApplyMovement(ctx context.Context, tenantID, modelName string, delta model.BalanceDelta, ev model.Movement) (*model.BalanceRecord, error)

	// ListBalances returns every balance record for the tenant ordered by
	// model name ascending.
	ListBalances(ctx context.Context, tenantID string) ([]model.BalanceRecord, error)

	ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.Movement, int, error)
}
