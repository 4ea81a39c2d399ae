// Package reconcile recomputes balance counters from the append-only event
// tables and repairs drifted rows. Normal-path maintenance is incremental;
// this job is the safety net for lost or double-applied writes.
package reconcile

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stocktrackerst/stock-tracker/pkg/logger"
	"go.uber.org/zap"
)

type Reconciler struct {
	db     *sqlx.DB
	logger logger.ZapLogger
}

func NewReconciler(db *sqlx.DB, log logger.ZapLogger) *Reconciler {
	return &Reconciler{db: db, logger: log}
}

// Run reconciles every tenant on a fixed interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) {
	r.logger.Info("Starting balance reconciler", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping balance reconciler")
			return
		case <-ticker.C:
			repaired, err := r.ReconcileAll(ctx)
			if err != nil {
				r.logger.Error("reconcile pass failed", zap.Error(err))
				continue
			}
			if repaired > 0 {
				r.logger.Warn("reconcile pass repaired drifted balances", zap.Int("repaired", repaired))
			}
		}
	}
}

func (r *Reconciler) ReconcileAll(ctx context.Context) (int, error) {
	var tenants []string
	if err := r.db.SelectContext(ctx, &tenants, `SELECT DISTINCT tenant_id FROM balances`); err != nil {
		return 0, err
	}

	repaired := 0
	for _, tenantID := range tenants {
		n, err := r.ReconcileTenant(ctx, tenantID)
		if err != nil {
			return repaired, err
		}
		repaired += n
	}
	return repaired, nil
}

type balanceRow struct {
	Model      string `db:"model"`
	Opening    int64  `db:"opening"`
	Ordered    int64  `db:"ordered"`
	Delivered  int64  `db:"delivered"`
	Booked     int64  `db:"booked"`
	Dispatched int64  `db:"dispatched"`
	Available  *int64 `db:"available"`

	EventOrdered    int64 `db:"event_ordered"`
	EventDelivered  int64 `db:"event_delivered"`
	EventBookedHold int64 `db:"event_booked_hold"`
	EventDispatched int64 `db:"event_dispatched"`
	EventLinked     int64 `db:"event_linked"`
}

const aggregateQuery = `
SELECT b.model, b.opening, b.ordered, b.delivered, b.booked, b.dispatched, b.available,
       COALESCE(o.total, 0)         AS event_ordered,
       COALESCE(rcv.total, 0)       AS event_delivered,
       COALESCE(bk.total, 0)        AS event_booked_hold,
       COALESCE(d.total, 0)         AS event_dispatched,
       COALESCE(d.linked_total, 0)  AS event_linked
FROM balances b
LEFT JOIN (SELECT model, SUM(quantity) AS total FROM order_events WHERE tenant_id = $1 GROUP BY model) o ON o.model = b.model
LEFT JOIN (SELECT model, SUM(quantity) AS total FROM receive_events WHERE tenant_id = $1 GROUP BY model) rcv ON rcv.model = b.model
LEFT JOIN (SELECT model, SUM(quantity) AS total FROM book_events WHERE tenant_id = $1 AND status = 'Hold' GROUP BY model) bk ON bk.model = b.model
LEFT JOIN (SELECT model,
                  SUM(quantity) AS total,
                  SUM(quantity) FILTER (WHERE linked_booking_id IS NOT NULL) AS linked_total
           FROM dispatch_events WHERE tenant_id = $1 GROUP BY model) d ON d.model = b.model
WHERE b.tenant_id = $1
`

// ReconcileTenant repairs the tenant's drifted balance rows and returns how
// many were repaired.
func (r *Reconciler) ReconcileTenant(ctx context.Context, tenantID string) (int, error) {
	var rows []balanceRow
	if err := r.db.SelectContext(ctx, &rows, aggregateQuery, tenantID); err != nil {
		return 0, err
	}

	repaired := 0
	for _, row := range rows {
		exp := expectedCounters(row.Opening, eventTotals{
			Ordered:          row.EventOrdered,
			Delivered:        row.EventDelivered,
			BookedHold:       row.EventBookedHold,
			Dispatched:       row.EventDispatched,
			LinkedDispatched: row.EventLinked,
		})
		if !drifted(row, exp) {
			continue
		}
		if err := r.repairModel(ctx, tenantID, row.Model); err != nil {
			return repaired, err
		}
		repaired++
		r.logger.Warn("repaired drifted balance",
			zap.String("tenant_id", tenantID),
			zap.String("model", row.Model),
		)
	}
	return repaired, nil
}

// repairModel re-aggregates under the row lock so a movement racing the
// reconciler cannot be overwritten with stale totals.
func (r *Reconciler) repairModel(ctx context.Context, tenantID, modelName string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`SELECT 1 FROM balances WHERE tenant_id = $1 AND model = $2 FOR UPDATE`,
		tenantID, modelName); err != nil {
		return err
	}

	updateQuery := `
        UPDATE balances b SET
            ordered = agg.event_ordered,
            delivered = agg.event_delivered,
            booked = GREATEST(0, agg.event_booked_hold - agg.event_linked),
            dispatched = agg.event_dispatched,
            available = b.opening + agg.event_delivered - agg.event_dispatched,
            last_updated = NOW()
        FROM (` + aggregateQuery + `) agg
        WHERE b.tenant_id = $1 AND b.model = $2 AND agg.model = $2
    `
	_, err = tx.ExecContext(ctx, updateQuery, tenantID, modelName)
	if err != nil {
		return err
	}
	return tx.Commit()
}

type eventTotals struct {
	Ordered          int64
	Delivered        int64
	BookedHold       int64
	Dispatched       int64
	LinkedDispatched int64
}

type counters struct {
	Ordered    int64
	Delivered  int64
	Booked     int64
	Dispatched int64
	Available  int64
}

// expectedCounters is the replay form of the balance rules: each monotonic
// counter is the sum of its event quantities, booked is holds minus linked
// dispatches floored at zero, available is opening + delivered - dispatched.
// The global floor can differ from the live path's per-movement clamp when a
// hold follows a linked dispatch that overshot the reservation; the replay
// value is canonical for repair.
func expectedCounters(opening int64, t eventTotals) counters {
	booked := t.BookedHold - t.LinkedDispatched
	if booked < 0 {
		booked = 0
	}
	return counters{
		Ordered:    t.Ordered,
		Delivered:  t.Delivered,
		Booked:     booked,
		Dispatched: t.Dispatched,
		Available:  opening + t.Delivered - t.Dispatched,
	}
}

func drifted(row balanceRow, exp counters) bool {
	if row.Ordered != exp.Ordered ||
		row.Delivered != exp.Delivered ||
		row.Booked != exp.Booked ||
		row.Dispatched != exp.Dispatched {
		return true
	}
	return row.Available == nil || *row.Available != exp.Available
}
