package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RunnerResult represents one horse's finishing record in a race
type RunnerResult struct {
	RaceID        string              `json:"race_id"`
	Course        string              `json:"course"`
	CourseID      string              `json:"course_id"`
	OffTime       string              `json:"off_time,omitempty"`
	RaceDate      time.Time           `json:"race_date"`
	Horse         string              `json:"horse"`
	Position      string              `json:"position"` // numeric or void code (NR, NS, RR, VOID)
	StartingPrice decimal.NullDecimal `json:"sp"`
	OverallBeaten decimal.NullDecimal `json:"ovr_btn"`
	Runners       int                 `json:"runners"`
}

// NumericPosition returns the finishing position when it is a positive integer
func (r *RunnerResult) NumericPosition() (int, bool) {
	pos, err := strconv.Atoi(strings.TrimSpace(r.Position))
	if err != nil || pos < 1 {
		return 0, false
	}
	return pos, true
}

// HasPosition checks if the record carries any finishing position text
func (r *RunnerResult) HasPosition() bool {
	return strings.TrimSpace(r.Position) != ""
}
