package enum

// SubmissionKind selects which of the mutually exclusive settlement shapes
// is posted.
type SubmissionKind string

const (
	SubmissionNewSale        SubmissionKind = "new_sale"
	SubmissionDraftSave      SubmissionKind = "draft_save"
	SubmissionInvoicePayment SubmissionKind = "invoice_payment"
)

func (k SubmissionKind) Valid() bool {
	switch k {
	case SubmissionNewSale, SubmissionDraftSave, SubmissionInvoicePayment:
		return true
	}
	return false
}
