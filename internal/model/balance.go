package model

import "time"

// BalanceRecord is the per-tenant, per-model inventory balance. The counter
// fields are maintained incrementally by the movement protocol and are never
// overwritten wholesale.
type BalanceRecord struct {
	TenantID    string    `db:"tenant_id" json:"-"`
	Model       string    `db:"model" json:"model"`
	Category    string    `db:"category" json:"category"`
	Opening     int64     `db:"opening" json:"opening"`
	Ordered     int64     `db:"ordered" json:"ordered"`
	Delivered   int64     `db:"delivered" json:"delivered"`
	Booked      int64     `db:"booked" json:"booked"`
	Dispatched  int64     `db:"dispatched" json:"dispatched"`
	Available   *int64    `db:"available" json:"available,omitempty"`
	LastUpdated time.Time `db:"last_updated" json:"lastUpdated"`
}

// AvailableQty returns the stored available quantity, deriving it from
// opening + delivered - dispatched for rows that predate the stored column.
func (b *BalanceRecord) AvailableQty() int64 {
	if b.Available != nil {
		return *b.Available
	}
	return b.Opening + b.Delivered - b.Dispatched
}

// BalanceDelta is the set of counter increments one movement applies. Booked
// may be negative; the store floors the resulting value at zero. Category, if
// non-empty, refreshes the record's category alongside the counters.
type BalanceDelta struct {
	Ordered    int64
	Delivered  int64
	Booked     int64
	Dispatched int64
	Available  int64
	Category   string
}
