package request

// QueueDraftRequest parks the till's cart as a draft
type QueueDraftRequest struct {
	Mobile string `json:"mobile" binding:"omitempty,max=20"`
}
