package dto

// MovementFilters narrows a movement event listing. MovementType selects one
// of the four event tables and is required.
type MovementFilters struct {
	TenantID     string
	Model        string
	MovementType string
	Page         int
	PageSize     int
}
