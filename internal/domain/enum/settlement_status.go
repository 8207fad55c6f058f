package enum

import (
	"database/sql/driver"
	"encoding/json"
)

// SettlementStatus records whether a posted settlement covered its target.
type SettlementStatus int

const (
	SettlementStatusComplete SettlementStatus = 0
	SettlementStatusPartial  SettlementStatus = 1
)

func (s SettlementStatus) String() string {
	names := [...]string{"Complete", "Partial"}
	if int(s) < 0 || int(s) >= len(names) {
		return "Complete"
	}
	return names[s]
}

func (s SettlementStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SettlementStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		// Try unmarshaling as int
		var i int
		if err := json.Unmarshal(data, &i); err != nil {
			return err
		}
		*s = SettlementStatus(i)
		return nil
	}
	switch str {
	case "Complete":
		*s = SettlementStatusComplete
	case "Partial":
		*s = SettlementStatusPartial
	}
	return nil
}

func (s SettlementStatus) Value() (driver.Value, error) {
	return int64(s), nil
}

func (s *SettlementStatus) Scan(value interface{}) error {
	if value == nil {
		*s = SettlementStatusComplete
		return nil
	}
	switch v := value.(type) {
	case int64:
		*s = SettlementStatus(v)
	case int:
		*s = SettlementStatus(v)
	}
	return nil
}
