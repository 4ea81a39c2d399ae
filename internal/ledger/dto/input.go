package dto

type OrderInput struct {
	TenantID  string
	Model     string
	Category  string
	Quantity  int64
	Supplier  string
	BillNo    string
	OrderedBy string
	Date      string
	Remarks   string
}

type ReceiveInput struct {
	TenantID   string
	Model      string
	Category   string
	Quantity   int64
	OrderedQty *int64
	ReceivedBy string
	Date       string
	Remarks    string
}

type BookInput struct {
	TenantID     string
	Model        string
	Category     string
	Quantity     int64
	Status       string // "Hold" or "Sold"
	CustomerName string
	BookingID    string
	EnteredBy    string
	DueDate      string
	Remarks      string
}

type DispatchInput struct {
	TenantID        string
	Model           string
	Category        string
	Quantity        int64
	CustomerName    string
	DispatchID      string
	DispatchedBy    string
	Source          string // "Direct" or "FromBooking"; derived when empty
	LinkedBookingID string
	Date            string
	Remarks         string
}
