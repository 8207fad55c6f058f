package enum

import "encoding/json"

// ConfirmationState is the mobile-money state of a single payment line.
// A line is in exactly one state; there are no parallel flags.
type ConfirmationState int

const (
	ConfirmationIdle ConfirmationState = iota
	ConfirmationProcessing
	ConfirmationSuccess
	ConfirmationFailure
)

func (s ConfirmationState) String() string {
	names := [...]string{"idle", "processing", "success", "failure"}
	if int(s) < 0 || int(s) >= len(names) {
		return "idle"
	}
	return names[s]
}

func (s ConfirmationState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *ConfirmationState) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "processing":
		*s = ConfirmationProcessing
	case "success":
		*s = ConfirmationSuccess
	case "failure":
		*s = ConfirmationFailure
	default:
		*s = ConfirmationIdle
	}
	return nil
}

// Terminal reports whether no further attempt may start from this state.
func (s ConfirmationState) Terminal() bool {
	return s == ConfirmationSuccess
}
