package enum

import (
	"encoding/json"
	"strings"
)

// DraftStatus tells whether a parked sale still needs settling.
type DraftStatus int

const (
	DraftStatusPending DraftStatus = iota
	DraftStatusPaid
)

func (s DraftStatus) String() string {
	if s == DraftStatusPaid {
		return "Paid"
	}
	return "Pending"
}

func (s DraftStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the labels the backend uses for a draft that was
// settled elsewhere ("Paid", "Completed", "Submitted"); anything else is pending.
func (s *DraftStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = ParseDraftStatus(str)
	return nil
}

func ParseDraftStatus(raw string) DraftStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paid", "completed", "complete", "submitted", "closed":
		return DraftStatusPaid
	default:
		return DraftStatusPending
	}
}
