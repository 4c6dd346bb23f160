package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Payment status tokens. A connection carries a set of these; "current"
// never co-occurs with a delinquency token and the set is never empty.
const (
	StatusCurrent                = "current"
	StatusDelinquent             = "delinquent"
	StatusDelinquentMeter        = "delinquent-meter"
	StatusDelinquentInstallation = "delinquent-installation"
)

// statusOrder fixes the order tokens are persisted in, so the stored
// JSON array is stable regardless of the order flags were added.
var statusOrder = []string{
	StatusCurrent,
	StatusDelinquent,
	StatusDelinquentMeter,
	StatusDelinquentInstallation,
}

// StatusSet is the payment-status set of a water connection. It is
// persisted as a JSON array of tokens. Use NewStatusSet / With /
// Without rather than manipulating the slice so the invariants hold.
type StatusSet []string

// NewStatusSet builds a normalized set from the given tokens. Unknown
// tokens are dropped, duplicates collapsed, and the current/delinquency
// exclusivity rule applied: if any delinquency token is present,
// "current" is removed; if none is, the set is exactly {current}.
func NewStatusSet(tokens ...string) StatusSet {
	present := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		switch t {
		case StatusCurrent, StatusDelinquent, StatusDelinquentMeter, StatusDelinquentInstallation:
			present[t] = true
		}
	}

	if present[StatusDelinquent] || present[StatusDelinquentMeter] || present[StatusDelinquentInstallation] {
		delete(present, StatusCurrent)
	} else {
		return StatusSet{StatusCurrent}
	}

	set := make(StatusSet, 0, len(present))
	for _, t := range statusOrder {
		if present[t] {
			set = append(set, t)
		}
	}
	return set
}

// Contains reports whether the set includes the given token.
func (s StatusSet) Contains(token string) bool {
	for _, t := range s {
		if t == token {
			return true
		}
	}
	return false
}

// With returns a normalized copy of the set with the token added.
func (s StatusSet) With(token string) StatusSet {
	return NewStatusSet(append(append([]string{}, s...), token)...)
}

// Without returns a normalized copy of the set with the token removed.
// Removing the last delinquency token yields {current}.
func (s StatusSet) Without(token string) StatusSet {
	remaining := make([]string, 0, len(s))
	for _, t := range s {
		if t != token {
			remaining = append(remaining, t)
		}
	}
	return NewStatusSet(remaining...)
}

// IsCurrent reports whether the connection has no delinquency of any kind.
func (s StatusSet) IsCurrent() bool {
	return s.Contains(StatusCurrent)
}

// Value implements driver.Valuer, storing the set as a JSON array.
func (s StatusSet) Value() (driver.Value, error) {
	if len(s) == 0 {
		s = NewStatusSet()
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner. Stored sets are re-normalized on read so
// rows written before the exclusivity rule existed still satisfy it.
func (s *StatusSet) Scan(value interface{}) error {
	if value == nil {
		*s = NewStatusSet()
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for StatusSet: %T", value)
	}

	var tokens []string
	if err := json.Unmarshal(raw, &tokens); err != nil {
		return fmt.Errorf("invalid payment status column: %w", err)
	}
	*s = NewStatusSet(tokens...)
	return nil
}
