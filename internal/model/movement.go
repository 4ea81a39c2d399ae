package model

import "time"

// Movement type discriminators, one per append-only event table.
const (
	MovementOrder    = "order"
	MovementReceive  = "receive"
	MovementBook     = "book"
	MovementDispatch = "dispatch"
)

// Booking statuses.
const (
	BookStatusHold = "Hold"
	BookStatusSold = "Sold"
)

// Dispatch sources.
const (
	DispatchSourceDirect      = "Direct"
	DispatchSourceFromBooking = "FromBooking"
)

// Movement is the tagged union over the four event record variants. Consumers
// switch on Type() and assert the concrete variant; each variant maps to its
// own table.
type Movement interface {
	Type() string
}

type OrderEvent struct {
	ID        string    `db:"id" json:"id"`
	TenantID  string    `db:"tenant_id" json:"-"`
	Model     string    `db:"model" json:"model"`
	Category  string    `db:"category" json:"category"`
	Quantity  int64     `db:"quantity" json:"quantity"`
	Supplier  string    `db:"supplier" json:"supplier"`
	BillNo    string    `db:"bill_no" json:"billNo"`
	OrderedBy string    `db:"ordered_by" json:"orderedBy"`
	EventDate string    `db:"event_date" json:"date"`
	Remarks   string    `db:"remarks" json:"remarks"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

func (OrderEvent) Type() string { return MovementOrder }

type ReceiveEvent struct {
	ID         string    `db:"id" json:"id"`
	TenantID   string    `db:"tenant_id" json:"-"`
	Model      string    `db:"model" json:"model"`
	Category   string    `db:"category" json:"category"`
	Quantity   int64     `db:"quantity" json:"quantity"`
	OrderedQty *int64    `db:"ordered_qty" json:"orderedQty,omitempty"`
	ReceivedBy string    `db:"received_by" json:"receivedBy"`
	EventDate  string    `db:"event_date" json:"date"`
	Remarks    string    `db:"remarks" json:"remarks"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

func (ReceiveEvent) Type() string { return MovementReceive }

type BookEvent struct {
	ID           string    `db:"id" json:"id"`
	TenantID     string    `db:"tenant_id" json:"-"`
	Model        string    `db:"model" json:"model"`
	Category     string    `db:"category" json:"category"`
	Quantity     int64     `db:"quantity" json:"quantity"`
	Status       string    `db:"status" json:"status"`
	CustomerName string    `db:"customer_name" json:"customerName"`
	BookingID    string    `db:"booking_id" json:"bookingId"`
	EnteredBy    string    `db:"entered_by" json:"enteredBy"`
	DueDate      string    `db:"due_date" json:"dueDate"`
	Remarks      string    `db:"remarks" json:"remarks"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

func (BookEvent) Type() string { return MovementBook }

type DispatchEvent struct {
	ID              string    `db:"id" json:"id"`
	TenantID        string    `db:"tenant_id" json:"-"`
	Model           string    `db:"model" json:"model"`
	Category        string    `db:"category" json:"category"`
	Quantity        int64     `db:"quantity" json:"quantity"`
	CustomerName    string    `db:"customer_name" json:"customerName"`
	DispatchID      string    `db:"dispatch_id" json:"dispatchId"`
	DispatchedBy    string    `db:"dispatched_by" json:"dispatchedBy"`
	Source          string    `db:"source" json:"source"`
	LinkedBookingID *string   `db:"linked_booking_id" json:"linkedBookingId,omitempty"`
	EventDate       string    `db:"event_date" json:"date"`
	Remarks         string    `db:"remarks" json:"remarks"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

func (DispatchEvent) Type() string { return MovementDispatch }
