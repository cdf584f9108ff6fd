package intake

import (
	"errors"
	"fmt"
	"time"

	"customs-calc/internal/tariff"
)

type State int

const (
	StateChoosingCategory State = iota
	StateChoosingEngineSubtype
	StateEnteringCost
	StateEnteringCostCurrency
	StateEnteringAdditionalCost
	StateEnteringAdditionalCurrency
	StateEnteringEngineVolume
	StateEnteringBatteryCapacity
	StateEnteringProductionYear
	StateChoosingValuationDate
	StateEnteringCustomDate
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateChoosingCategory:
		return "choosing_category"
	case StateChoosingEngineSubtype:
		return "choosing_engine_subtype"
	case StateEnteringCost:
		return "entering_cost"
	case StateEnteringCostCurrency:
		return "entering_cost_currency"
	case StateEnteringAdditionalCost:
		return "entering_additional_cost"
	case StateEnteringAdditionalCurrency:
		return "entering_additional_currency"
	case StateEnteringEngineVolume:
		return "entering_engine_volume"
	case StateEnteringBatteryCapacity:
		return "entering_battery_capacity"
	case StateEnteringProductionYear:
		return "entering_production_year"
	case StateChoosingValuationDate:
		return "choosing_valuation_date"
	case StateEnteringCustomDate:
		return "entering_custom_date"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// AnswerKind tells the transport what shape of answer a prompt expects.
type AnswerKind string

const (
	KindChoice AnswerKind = "choice"
	KindNumber AnswerKind = "number"
	KindYear   AnswerKind = "year"
	KindDate   AnswerKind = "date"
	KindNone   AnswerKind = "none"
)

// Answers shared by every transport.
const (
	AnswerBack      = "back"
	AnswerToday     = "today"
	AnswerTomorrow  = "tomorrow"
	AnswerYesterday = "yesterday"
	AnswerCustom    = "custom"
)

var (
	ErrNotANumber     = errors.New("not a number")
	ErrNotPositive    = errors.New("value must be positive")
	ErrNegative       = errors.New("value must not be negative")
	ErrTooLarge       = errors.New("value is too large")
	ErrNotAYear       = errors.New("not a year")
	ErrYearOutOfRange = errors.New("year out of range")
	ErrBadDate        = errors.New("date must be DD.MM.YYYY")
	ErrUnknownOption  = errors.New("unknown option")
	ErrIncomplete     = errors.New("intake record is incomplete")
	ErrCompleted      = errors.New("intake already completed")
)

// YearRangeError carries the accepted bounds for a rejected production year.
type YearRangeError struct {
	Min, Max int
}

func (e *YearRangeError) Error() string {
	return fmt.Sprintf("year must be between %d and %d", e.Min, e.Max)
}

func (e *YearRangeError) Unwrap() error {
	return ErrYearOutOfRange
}

// Prompt is the question the machine is waiting on. Err is set when the
// previous answer was rejected and the same question is asked again.
type Prompt struct {
	State   State
	Kind    AnswerKind
	Group   tariff.Group
	Options []string
	Record  Record
	Err     error
}

// Request is what a completed dialogue hands to the calculation pipeline.
// RatesOnly requests carry just the valuation date.
type Request struct {
	RatesOnly     bool
	Vehicle       tariff.Vehicle
	Cost          tariff.Money
	Additional    tariff.Money
	ValuationDate time.Time
}

// Step is the outcome of one answer: either the next prompt or a finished request.
type Step struct {
	Prompt    Prompt
	Request   *Request
	Cancelled bool
}
