package domain

import "fmt"

const (
	GateDayNotOpen   = "DAY_NOT_OPEN"
	GateDateMismatch = "DATE_MISMATCH"
)

// GateError rejects a sale when no day operation is open, or the open
// one is dated in the past. The date fields give the caller enough to
// render an actionable message.
type GateError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	BusinessDate string `json:"business_date"`
	OpenDate     string `json:"open_date,omitempty"`
	Timezone     string `json:"timezone"`
}

func (e *GateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
