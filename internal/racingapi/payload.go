package racingapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/yourusername/turf-ledger/internal/models"
)

// flexString accepts JSON strings, numbers and null
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(strings.TrimSpace(v))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*s = flexString(n.String())
	return nil
}

// resultsPage is one page of GET /results
type resultsPage struct {
	Results []racePayload `json:"results"`
	Total   *int          `json:"total"`
	Limit   *int          `json:"limit"`
	Skip    *int          `json:"skip"`
}

type racePayload struct {
	RaceID   flexString      `json:"race_id" validate:"required"`
	Course   flexString      `json:"course"`
	CourseID flexString      `json:"course_id"`
	Date     flexString      `json:"date"`
	Off      flexString      `json:"off"`
	Runners  []runnerPayload `json:"runners"`
}

type runnerPayload struct {
	Horse    flexString `json:"horse" validate:"required"`
	HorseID  flexString `json:"horse_id"`
	Number   flexString `json:"number"`
	Position flexString `json:"position" validate:"required"`
	SP       flexString `json:"sp"`
	SPDec    flexString `json:"sp_dec"`
	OvrBtn   flexString `json:"ovr_btn"`
	Btn      flexString `json:"btn"`
}

// SkippedRecord is an upstream record dropped during conversion
type SkippedRecord struct {
	RaceID string
	Horse  string
	Reason string
}

// payloadValidator checks upstream records before conversion
type payloadValidator struct {
	validate *validator.Validate
}

func newPayloadValidator() *payloadValidator {
	v := validator.New()
	// flexString is validated as the string it holds
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if s, ok := field.Interface().(flexString); ok {
			return string(s)
		}
		return nil
	}, flexString(""))
	return &payloadValidator{validate: v}
}

// reason returns a short description of why record is invalid, or "" when valid
func (pv *payloadValidator) reason(record interface{}) string {
	err := pv.validate.Struct(record)
	if err == nil {
		return ""
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	parts := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		parts = append(parts, fmt.Sprintf("missing %s", strings.ToLower(fe.Field())))
	}
	return strings.Join(parts, ", ")
}

// convertRace turns a race payload into runner results, reporting dropped runners
func (pv *payloadValidator) convertRace(race *racePayload, day time.Time) ([]models.RunnerResult, []SkippedRecord) {
	var skipped []SkippedRecord
	raceID := string(race.RaceID)
	if reason := pv.reason(race); reason != "" {
		return nil, []SkippedRecord{{RaceID: raceID, Reason: reason}}
	}

	if d, err := time.Parse(models.DateLayout, string(race.Date)); err == nil {
		day = d
	}

	out := make([]models.RunnerResult, 0, len(race.Runners))
	for i := range race.Runners {
		rp := &race.Runners[i]
		if reason := pv.reason(rp); reason != "" {
			skipped = append(skipped, SkippedRecord{RaceID: raceID, Horse: string(rp.Horse), Reason: reason})
			continue
		}
		r := models.RunnerResult{
			RaceID:        raceID,
			Course:        string(race.Course),
			CourseID:      string(race.CourseID),
			OffTime:       string(race.Off),
			RaceDate:      day,
			Horse:         string(rp.Horse),
			Position:      string(rp.Position),
			StartingPrice: parseDecimal(rp.SPDec),
			OverallBeaten: parseDecimal(rp.OvrBtn),
			Runners:       len(race.Runners),
		}
		if !r.HasPosition() {
			skipped = append(skipped, SkippedRecord{RaceID: raceID, Horse: r.Horse, Reason: "missing position"})
			continue
		}
		out = append(out, r)
	}
	return out, skipped
}

// parseDecimal parses a numeric string, treating blanks and dashes as missing
func parseDecimal(s flexString) decimal.NullDecimal {
	v := strings.TrimSpace(string(s))
	if v == "" || v == "-" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
