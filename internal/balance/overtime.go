package balance

import (
	"fmt"

	"github.com/rgehrsitz/cdnpayroll/internal/domain"
	"github.com/shopspring/decimal"
)

// OvertimeThresholds are the hours after which overtime applies
type OvertimeThresholds struct {
	Daily  decimal.Decimal
	Weekly decimal.Decimal
}

// DefaultOvertimeThresholds returns the 8h daily and 40h weekly thresholds.
func DefaultOvertimeThresholds() OvertimeThresholds {
	return OvertimeThresholds{Daily: decimal.NewFromInt(8), Weekly: decimal.NewFromInt(40)}
}

// OvertimeEntry is one timesheet entry with the hours worked around it.
// DayHours and WeekHours are totals that include this entry's hours.
type OvertimeEntry struct {
	PayCode   domain.PayCode  `json:"pay_code"`
	Hours     decimal.Decimal `json:"hours"`
	DayHours  decimal.Decimal `json:"day_hours"`
	WeekHours decimal.Decimal `json:"week_hours"`
}

// OvertimeValidator flags entries whose pay code does not match the hours worked.
// Its warnings are advisory and never block an entry.
type OvertimeValidator struct {
	Thresholds OvertimeThresholds
}

// NewOvertimeValidator creates a validator. Zero thresholds fall back to the defaults.
func NewOvertimeValidator(t OvertimeThresholds) *OvertimeValidator {
	def := DefaultOvertimeThresholds()
	if !t.Daily.IsPositive() {
		t.Daily = def.Daily
	}
	if !t.Weekly.IsPositive() {
		t.Weekly = def.Weekly
	}
	return &OvertimeValidator{Thresholds: t}
}

// Validate returns warnings for the entry
func (v *OvertimeValidator) Validate(e OvertimeEntry) []string {
	warnings := []string{}
	overDaily := e.DayHours.GreaterThan(v.Thresholds.Daily)
	overWeekly := e.WeekHours.GreaterThan(v.Thresholds.Weekly)

	switch e.PayCode.Category {
	case domain.CategoryOvertime:
		if !overDaily && !overWeekly {
			warnings = append(warnings, fmt.Sprintf(
				"Overtime code %s used but %sh today and %sh this week are within the %sh daily and %sh weekly thresholds",
				e.PayCode.Code, e.DayHours.String(), e.WeekHours.String(),
				v.Thresholds.Daily.String(), v.Thresholds.Weekly.String()))
		}

	case domain.CategoryEarning:
		switch {
		case overDaily:
			excess := decimal.Min(e.Hours, e.DayHours.Sub(v.Thresholds.Daily))
			warnings = append(warnings, fmt.Sprintf(
				"%s hours bring the day to %sh, over the %sh daily threshold; consider an overtime code for %sh",
				e.PayCode.Code, e.DayHours.String(), v.Thresholds.Daily.String(), excess.String()))
		case overWeekly:
			excess := decimal.Min(e.Hours, e.WeekHours.Sub(v.Thresholds.Weekly))
			warnings = append(warnings, fmt.Sprintf(
				"%s hours bring the week to %sh, over the %sh weekly threshold; consider an overtime code for %sh",
				e.PayCode.Code, e.WeekHours.String(), v.Thresholds.Weekly.String(), excess.String()))
		}
	}
	return warnings
}
