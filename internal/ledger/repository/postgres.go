package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stocktrackerst/stock-tracker/internal/ledger"
	"github.com/stocktrackerst/stock-tracker/internal/ledger/dto"
	"github.com/stocktrackerst/stock-tracker/internal/model"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetBalance(ctx context.Context, tenantID, modelName string) (*model.BalanceRecord, error) {
	var bal model.BalanceRecord
	query := `SELECT * FROM balances WHERE tenant_id = $1 AND model = $2`
	err := r.DB.GetContext(ctx, &bal, query, tenantID, modelName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Caller handles lazy creation
		}
		return nil, err
	}
	return &bal, nil
}

func (r *PGRepository) CreateIfAbsent(ctx context.Context, tenantID, modelName, category string) error {
	query := `
        INSERT INTO balances (tenant_id, model, category, last_updated)
        VALUES ($1, $2, $3, NOW())
        ON CONFLICT (tenant_id, model) DO NOTHING
    `
	_, err := r.DB.ExecContext(ctx, query, tenantID, modelName, category)
	return err
}

// ApplyMovement performs the transactional read-modify-write for one movement:
// the balance row is read under FOR UPDATE, the deltas are applied (booked
// floored at zero), and the event record is inserted, all in one transaction.
// Concurrent movements on the same model serialize on the row lock.
func (r *PGRepository) ApplyMovement(ctx context.Context, tenantID, modelName string, delta model.BalanceDelta, ev model.Movement) (*model.BalanceRecord, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var bal model.BalanceRecord
	selectQuery := `SELECT * FROM balances WHERE tenant_id = $1 AND model = $2 FOR UPDATE`
	if err := tx.GetContext(ctx, &bal, selectQuery, tenantID, modelName); err != nil {
		return nil, fmt.Errorf("lock balance row: %w", err)
	}

	// The availability base must come from the pre-movement counters; deriving
	// it after the deltas land would count this movement's quantity twice.
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

	updateQuery := `
        UPDATE balances SET
            category = :category,
            ordered = :ordered,
            delivered = :delivered,
            booked = :booked,
            dispatched = :dispatched,
            available = :available,
            last_updated = :last_updated
        WHERE tenant_id = :tenant_id AND model = :model
    `
	if _, err := tx.NamedExecContext(ctx, updateQuery, &bal); err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	if err := insertMovement(ctx, tx, ev); err != nil {
		return nil, fmt.Errorf("append movement event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &bal, nil
}

func insertMovement(ctx context.Context, tx *sqlx.Tx, ev model.Movement) error {
	var query string
	switch ev.(type) {
	case *model.OrderEvent:
		query = `
            INSERT INTO order_events (id, tenant_id, model, category, quantity, supplier, bill_no, ordered_by, event_date, remarks, created_at)
            VALUES (:id, :tenant_id, :model, :category, :quantity, :supplier, :bill_no, :ordered_by, :event_date, :remarks, :created_at)
        `
	case *model.ReceiveEvent:
		query = `
            INSERT INTO receive_events (id, tenant_id, model, category, quantity, ordered_qty, received_by, event_date, remarks, created_at)
            VALUES (:id, :tenant_id, :model, :category, :quantity, :ordered_qty, :received_by, :event_date, :remarks, :created_at)
        `
	case *model.BookEvent:
		query = `
            INSERT INTO book_events (id, tenant_id, model, category, quantity, status, customer_name, booking_id, entered_by, due_date, remarks, created_at)
            VALUES (:id, :tenant_id, :model, :category, :quantity, :status, :customer_name, :booking_id, :entered_by, :due_date, :remarks, :created_at)
        `
	case *model.DispatchEvent:
		query = `
            INSERT INTO dispatch_events (id, tenant_id, model, category, quantity, customer_name, dispatch_id, dispatched_by, source, linked_booking_id, event_date, remarks, created_at)
            VALUES (:id, :tenant_id, :model, :category, :quantity, :customer_name, :dispatch_id, :dispatched_by, :source, :linked_booking_id, :event_date, :remarks, :created_at)
        `
	default:
		return ledger.ErrUnknownMovementType
	}
	_, err := tx.NamedExecContext(ctx, query, ev)
	return err
}

func (r *PGRepository) ListBalances(ctx context.Context, tenantID string) ([]model.BalanceRecord, error) {
	items := []model.BalanceRecord{}
	query := `SELECT * FROM balances WHERE tenant_id = $1 ORDER BY model ASC`
	err := r.DB.SelectContext(ctx, &items, query, tenantID)
	return items, err
}

func (r *PGRepository) ListMovements(ctx context.Context, f *dto.MovementFilters) ([]model.Movement, int, error) {
	table, ok := eventTables[f.MovementType]
	if !ok {
		return nil, 0, ledger.ErrUnknownMovementType
	}

	conditions := ` WHERE tenant_id = :tenant_id`
	args := map[string]interface{}{"tenant_id": f.TenantID}
	if f.Model != "" {
		conditions += ` AND model = :model`
		args["model"] = f.Model
	}

	var count int
	countQuery := `SELECT count(*) FROM ` + table + conditions
	rows, err := r.DB.NamedQueryContext(ctx, countQuery, args)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return nil, 0, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	query := `SELECT * FROM ` + table + conditions + ` ORDER BY created_at DESC`
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	switch f.MovementType {
	case model.MovementOrder:
		var items []model.OrderEvent
		if err := nstmt.SelectContext(ctx, &items, args); err != nil {
			return nil, 0, err
		}
		return asMovements(items), count, nil
	case model.MovementReceive:
		var items []model.ReceiveEvent
		if err := nstmt.SelectContext(ctx, &items, args); err != nil {
			return nil, 0, err
		}
		return asMovements(items), count, nil
	case model.MovementBook:
		var items []model.BookEvent
		if err := nstmt.SelectContext(ctx, &items, args); err != nil {
			return nil, 0, err
		}
		return asMovements(items), count, nil
	default:
		var items []model.DispatchEvent
		if err := nstmt.SelectContext(ctx, &items, args); err != nil {
			return nil, 0, err
		}
		return asMovements(items), count, nil
	}
}

var eventTables = map[string]string{
	model.MovementOrder:    "order_events",
	model.MovementReceive:  "receive_events",
	model.MovementBook:     "book_events",
	model.MovementDispatch: "dispatch_events",
}

func asMovements[T any](items []T) []model.Movement {
	out := make([]model.Movement, len(items))
	for i := range items {
		m, _ := any(&items[i]).(model.Movement)
		out[i] = m
	}
	return out
}
