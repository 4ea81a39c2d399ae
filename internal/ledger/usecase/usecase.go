package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stocktrackerst/stock-tracker/internal/ledger"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/dto"
	"github.com/stocktrackerst/stock-tracker/internal/model"
	"github.com/stocktrackerst/stock-tracker/pkg/logger"
	"go.uber.org/zap"
)

// ledgerUseCase holds the one balance update rule set. Historically the same
// rules lived in two places (the client SDK and the server callables) and
// drifted; every path now funnels through here.
type ledgerUseCase struct {
	repo     ledger.Repository
	notifier ledger.ChangeNotifier
	logger   logger.ZapLogger
}

func NewLedgerUseCase(repo ledger.Repository, notifier ledger.ChangeNotifier, log logger.ZapLogger) ledger.UseCase {
	return &ledgerUseCase{
		repo:     repo,
		notifier: notifier,
		logger:   log,
	}
}

// validateMovement covers the fields every movement shares. It runs before any
// store access.
func validateMovement(tenantID, modelName string, quantity int64) error {
	if strings.TrimSpace(tenantID) == "" {
		return ledger.NewValidationError("tenantId", "must not be empty")
	}
	if strings.TrimSpace(modelName) == "" {
		return ledger.NewValidationError("model", "must not be empty")
	}
	if quantity <= 0 {
		return ledger.NewValidationError("quantity", "must be a positive integer")
	}
	return nil
}

func normalizeCategory(category string) string {
	c := strings.TrimSpace(category)
	if c == "" {
		return "General"
	}
	return c
}

func (uc *ledgerUseCase) apply(ctx context.Context, tenantID, modelName, category string, delta model.BalanceDelta, ev model.Movement) (*model.BalanceRecord, error) {
	if err := uc.repo.CreateIfAbsent(ctx, tenantID, modelName, category); err != nil {
		return nil, err
	}

	bal, err := uc.repo.ApplyMovement(ctx, tenantID, modelName, delta, ev)
	if err != nil {
		return nil, err
	}

	if uc.notifier != nil {
		uc.notifier.NotifyChanged(ctx, tenantID)
	}
	return bal, nil
}

func (uc *ledgerUseCase) Order(ctx context.Context, input *dto.OrderInput) (*model.BalanceRecord, error) {
	if err := validateMovement(input.TenantID, input.Model, input.Quantity); err != nil {
		return nil, err
	}

	modelName := strings.TrimSpace(input.Model)
	category := normalizeCategory(input.Category)
	now := time.Now().UTC()

	ev := &model.OrderEvent{
		ID:        uuid.New().String(),
		TenantID:  input.TenantID,
		Model:     modelName,
		Category:  category,
		Quantity:  input.Quantity,
		Supplier:  input.Supplier,
		BillNo:    input.BillNo,
		OrderedBy: input.OrderedBy,
		EventDate: input.Date,
		Remarks:   input.Remarks,
		CreatedAt: now,
	}

	// Ordering stock does not change availability.
	delta := model.BalanceDelta{Ordered: input.Quantity, Category: category}
	return uc.apply(ctx, input.TenantID, modelName, category, delta, ev)
}

func (uc *ledgerUseCase) Receive(ctx context.Context, input *dto.ReceiveInput) (*model.BalanceRecord, error) {
	if err := validateMovement(input.TenantID, input.Model, input.Quantity); err != nil {
		return nil, err
	}

	modelName := strings.TrimSpace(input.Model)
	category := normalizeCategory(input.Category)
	now := time.Now().UTC()

	ev := &model.ReceiveEvent{
		ID:         uuid.New().String(),
		TenantID:   input.TenantID,
		Model:      modelName,
		Category:   category,
		Quantity:   input.Quantity,
		OrderedQty: input.OrderedQty,
		ReceivedBy: input.ReceivedBy,
		EventDate:  input.Date,
		Remarks:    input.Remarks,
		CreatedAt:  now,
	}

	delta := model.BalanceDelta{
		Delivered: input.Quantity,
		Available: input.Quantity,
		Category:  category,
	}
	return uc.apply(ctx, input.TenantID, modelName, category, delta, ev)
}

func (uc *ledgerUseCase) Book(ctx context.Context, input *dto.BookInput) (*model.BalanceRecord, error) {
	if err := validateMovement(input.TenantID, input.Model, input.Quantity); err != nil {
		return nil, err
	}

	switch input.Status {
	case model.BookStatusHold:
	case model.BookStatusSold:
		// A sale closed on the spot never sits in booked: it dispatches
		// immediately with a derived dispatch id.
		return uc.Dispatch(ctx, &dto.DispatchInput{
			TenantID:     input.TenantID,
			Model:        input.Model,
			Category:     input.Category,
			Quantity:     input.Quantity,
			CustomerName: input.CustomerName,
			DispatchID:   "DS-" + input.BookingID,
			DispatchedBy: input.EnteredBy,
			Source:       model.DispatchSourceDirect,
			Date:         input.DueDate,
			Remarks:      input.Remarks,
		})
	default:
		return nil, ledger.NewValidationError("status", `must be "Hold" or "Sold"`)
	}

	modelName := strings.TrimSpace(input.Model)
	category := normalizeCategory(input.Category)
	now := time.Now().UTC()

	ev := &model.BookEvent{
		ID:           uuid.New().String(),
		TenantID:     input.TenantID,
		Model:        modelName,
		Category:     category,
		Quantity:     input.Quantity,
		Status:       model.BookStatusHold,
		CustomerName: input.CustomerName,
		BookingID:    input.BookingID,
		EnteredBy:    input.EnteredBy,
		DueDate:      input.DueDate,
		Remarks:      input.Remarks,
		CreatedAt:    now,
	}

	// A hold reserves stock without touching availability.
	delta := model.BalanceDelta{Booked: input.Quantity, Category: category}
	return uc.apply(ctx, input.TenantID, modelName, category, delta, ev)
}

func (uc *ledgerUseCase) Dispatch(ctx context.Context, input *dto.DispatchInput) (*model.BalanceRecord, error) {
	if err := validateMovement(input.TenantID, input.Model, input.Quantity); err != nil {
		return nil, err
	}

	modelName := strings.TrimSpace(input.Model)
	category := normalizeCategory(input.Category)
	now := time.Now().UTC()

	source := input.Source
	if source == "" {
		source = model.DispatchSourceDirect
		if input.LinkedBookingID != "" {
			source = model.DispatchSourceFromBooking
		}
	}

	var linked *string
	if input.LinkedBookingID != "" {
		linked = &input.LinkedBookingID
	}

	ev := &model.DispatchEvent{
		ID:              uuid.New().String(),
		TenantID:        input.TenantID,
		Model:           modelName,
		Category:        category,
		Quantity:        input.Quantity,
		CustomerName:    input.CustomerName,
		DispatchID:      input.DispatchID,
		DispatchedBy:    input.DispatchedBy,
		Source:          source,
		LinkedBookingID: linked,
		EventDate:       input.Date,
		Remarks:         input.Remarks,
		CreatedAt:       now,
	}

	delta := model.BalanceDelta{
		Dispatched: input.Quantity,
		Available:  -input.Quantity,
		Category:   category,
	}
	if linked != nil {
		// The store floors booked at zero; dispatching more than was booked
		// is allowed and merely empties the reservation.
		delta.Booked = -input.Quantity
	}

	bal, err := uc.apply(ctx, input.TenantID, modelName, category, delta, ev)
	if err != nil {
		return nil, err
	}

	if linked != nil && bal.Booked == 0 {
		// Either the booking was consumed exactly or the dispatch overshot
		// and the store clamped booked at zero. Both are worth surfacing.
		uc.logger.Warn("dispatch emptied booked reservation",
			zap.String("tenant_id", input.TenantID),
			zap.String("model", modelName),
			zap.String("booking_id", input.LinkedBookingID),
			zap.Int64("quantity", input.Quantity),
		)
	}
	return bal, nil
}

func (uc *ledgerUseCase) GetBalance(ctx context.Context, tenantID, modelName string) (*model.BalanceRecord, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, ledger.NewValidationError("tenantId", "must not be empty")
	}
	if strings.TrimSpace(modelName) == "" {
		return nil, ledger.NewValidationError("model", "must not be empty")
	}

	bal, err := uc.repo.GetBalance(ctx, tenantID, strings.TrimSpace(modelName))
	if err != nil {
		return nil, err
	}
	if bal == nil {
		// A model nobody has moved yet reads as an all-zero record rather
		// than an error; the record itself is only created on first movement.
		return &model.BalanceRecord{
			TenantID: tenantID,
			Model:    strings.TrimSpace(modelName),
			Category: "General",
		}, nil
	}
	return bal, nil
}

func (uc *ledgerUseCase) ListBalances(ctx context.Context, tenantID string) ([]model.BalanceRecord, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, ledger.NewValidationError("tenantId", "must not be empty")
	}
	return uc.repo.ListBalances(ctx, tenantID)
}

func (uc *ledgerUseCase) ListMovements(ctx context.Context, filters *dto.MovementFilters) ([]model.Movement, int, error) {
	if strings.TrimSpace(filters.TenantID) == "" {
		return nil, 0, ledger.NewValidationError("tenantId", "must not be empty")
	}
	switch filters.MovementType {
	case model.MovementOrder, model.MovementReceive, model.MovementBook, model.MovementDispatch:
	default:
		return nil, 0, ledger.NewValidationError("type", "must be one of order, receive, book, dispatch")
	}
	return uc.repo.ListMovements(ctx, filters)
}
