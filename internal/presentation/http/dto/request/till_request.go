package request

// OpenTillRequest represents a till open request
type OpenTillRequest struct {
	Warehouse string `json:"warehouse" binding:"required,max=255"`
}

// SwitchTillRequest moves the cashier from one till to the till in the
// path. Warehouse is only needed when the target till is not open yet.
type SwitchTillRequest struct {
	From      string `json:"from" binding:"omitempty,max=100"`
	Warehouse string `json:"warehouse" binding:"omitempty,max=255"`
}
