package watch

import (
	"context"
	"sync"

	"github.com/stocktrackerst/stock-tracker/internal/ledger"
	"github.com/stocktrackerst/stock-tracker/internal/model"
	"github.com/stocktrackerst/stock-tracker/pkg/logger"
	"go.uber.org/zap"
)

// Hub fans balance snapshots out to per-tenant subscribers. Every committed
// movement triggers a fresh full snapshot (ordered by model, derived
// availability filled in); there is no replay beyond the snapshot delivered on
// subscribe.
type Hub struct {
	repo   ledger.Repository
	logger logger.ZapLogger

	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]chan []model.BalanceRecord
}

func NewHub(repo ledger.Repository, log logger.ZapLogger) *Hub {
	return &Hub{
		repo:   repo,
		logger: log,
		subs:   make(map[string]map[int]chan []model.BalanceRecord),
	}
}

// Subscribe returns a channel that receives the current snapshot immediately
// and a new one after every change. The cancel func releases the subscription
// and closes the channel; ctx cancellation does the same.
func (h *Hub) Subscribe(ctx context.Context, tenantID string) (<-chan []model.BalanceRecord, func(), error) {
	snapshot, err := h.snapshot(ctx, tenantID)
	if err != nil {
		return nil, nil, err
	}

	// Buffer of one: a slow consumer only ever sees the latest snapshot,
	// older ones are superseded rather than queued.
	ch := make(chan []model.BalanceRecord, 1)
	ch <- snapshot

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[tenantID] == nil {
		h.subs[tenantID] = make(map[int]chan []model.BalanceRecord)
	}
	h.subs[tenantID][id] = ch
	h.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[tenantID], id)
			if len(h.subs[tenantID]) == 0 {
				delete(h.subs, tenantID)
			}
			h.mu.Unlock()
			close(ch)
			close(done)
		})
	}

	// The watcher must also wake on cancel(), otherwise it would block on a
	// long-lived ctx after the subscriber already left.
	if stop := ctx.Done(); stop != nil {
		go func() {
			select {
			case <-stop:
				cancel()
			case <-done:
			}
		}()
	}

	return ch, cancel, nil
}

// NotifyChanged implements ledger.ChangeNotifier for single-process
// deployments: the usecase drives the hub directly without a broker hop.
func (h *Hub) NotifyChanged(ctx context.Context, tenantID string) {
	h.mu.Lock()
	n := len(h.subs[tenantID])
	h.mu.Unlock()
	if n == 0 {
		return
	}

	snapshot, err := h.snapshot(ctx, tenantID)
	if err != nil {
		h.logger.Error("failed to load balance snapshot",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[tenantID] {
		select {
		case ch <- snapshot:
		default:
			// Replace the stale pending snapshot with the fresh one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

func (h *Hub) snapshot(ctx context.Context, tenantID string) ([]model.BalanceRecord, error) {
	records, err := h.repo.ListBalances(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].Available == nil {
			avail := records[i].AvailableQty()
			records[i].Available = &avail
		}
	}
	return records, nil
}
