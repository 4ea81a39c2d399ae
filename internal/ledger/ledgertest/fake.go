// Package ledgertest provides an in-memory Repository for tests. It honors the
// store contract the Postgres repository implements: serialized delta
// application per balance row, booked floored at zero, and atomic
// balance-plus-event commits.
package ledgertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stocktrackerst/stock-tracker/internal/ledger"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/dto"
	"github.com/stocktrackerst/stock-tracker/internal/model"
)

type key struct {
	tenantID string
	model    string
}

type FakeRepository struct {
	mu       sync.Mutex
	balances map[key]*model.BalanceRecord
	events   map[string][]model.Movement // keyed by movement type

	// FailApply, when set, makes the next ApplyMovement return this error
	// without touching any state, mimicking an aborted transaction.
	FailApply error
}

func NewFakeRepository() *FakeRepository {
	return &FakeRepository{
		balances: make(map[key]*model.BalanceRecord),
		events:   make(map[string][]model.Movement),
	}
}

func (r *FakeRepository) GetBalance(_ context.Context, tenantID, modelName string) (*model.BalanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bal, ok := r.balances[key{tenantID, modelName}]
	if !ok {
		return nil, nil
	}
	cp := *bal
	return &cp, nil
}

func (r *FakeRepository) CreateIfAbsent(_ context.Context, tenantID, modelName, category string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{tenantID, modelName}
	if _, ok := r.balances[k]; ok {
		return nil
	}
	r.balances[k] = &model.BalanceRecord{
		TenantID:    tenantID,
		Model:       modelName,
		Category:    category,
		LastUpdated: time.Now().UTC(),
	}
	return nil
}

func (r *FakeRepository) ApplyMovement(_ context.Context, tenantID, modelName string, delta model.BalanceDelta, ev model.Movement) (*model.BalanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailApply != nil {
		err := r.FailApply
		r.FailApply = nil
		return nil, err
	}

	bal, ok := r.balances[key{tenantID, modelName}]
	if !ok {
		return nil, ledger.NewValidationError("model", "balance record missing")
	}

	// Same ordering as the Postgres repository: the availability base is taken
	// from the pre-movement counters, not the freshly incremented ones.
	availBase := bal.AvailableQty()

	bal.Ordered += delta.Ordered
	bal.Delivered += delta.Delivered
	bal.Dispatched += delta.Dispatched
	bal.Booked += delta.Booked
	if bal.Booked < 0 {
		bal.Booked = 0
	}
	if delta.Available != 0 {
		avail := availBase + delta.Available
		bal.Available = &avail
	}
	if delta.Category != "" {
		bal.Category = delta.Category
	}
	bal.LastUpdated = time.Now().UTC()

	r.events[ev.Type()] = append(r.events[ev.Type()], ev)

	cp := *bal
	return &cp, nil
}

func (r *FakeRepository) ListBalances(_ context.Context, tenantID string) ([]model.BalanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []model.BalanceRecord{}
	for k, bal := range r.balances {
		if k.tenantID == tenantID {
			out = append(out, *bal)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out, nil
}

func (r *FakeRepository) ListMovements(_ context.Context, f *dto.MovementFilters) ([]model.Movement, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch f.MovementType {
	case model.MovementOrder, model.MovementReceive, model.MovementBook, model.MovementDispatch:
	default:
		return nil, 0, ledger.ErrUnknownMovementType
	}
	all := r.events[f.MovementType]

	out := []model.Movement{}
	for _, ev := range all {
		if tenantOf(ev) != f.TenantID {
			continue
		}
		if f.Model != "" && modelOf(ev) != f.Model {
			continue
		}
		out = append(out, ev)
	}
	return out, len(out), nil
}

// Events returns every appended event of the given type, in append order.
func (r *FakeRepository) Events(movementType string) []model.Movement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Movement(nil), r.events[movementType]...)
}

func tenantOf(ev model.Movement) string {
	switch e := ev.(type) {
	case *model.OrderEvent:
		return e.TenantID
	case *model.ReceiveEvent:
		return e.TenantID
	case *model.BookEvent:
		return e.TenantID
	case *model.DispatchEvent:
		return e.TenantID
	}
	return ""
}

func modelOf(ev model.Movement) string {
	switch e := ev.(type) {
	case *model.OrderEvent:
		return e.Model
	case *model.ReceiveEvent:
		return e.Model
	case *model.BookEvent:
		return e.Model
	case *model.DispatchEvent:
		return e.Model
	}
	return ""
}
