package request

// SendReceiptRequest sends a receipt to the customer. An empty mobile uses
// the one recorded on the sale.
type SendReceiptRequest struct {
	Mobile string `json:"mobile" binding:"omitempty,max=20"`
}
