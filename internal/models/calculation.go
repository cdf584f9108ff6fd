package models

import (
	"time"

	"github.com/google/uuid"
)

// Calculation is one persisted tariff result. Rows are append-only.
type Calculation struct {
	ID                 int64     `db:"id"`
	TraceID            uuid.UUID `db:"trace_id"`
	UserID             int64     `db:"user_id"`
	Username           *string   `db:"username"`
	VehicleType        string    `db:"vehicle_type"`
	Cost               float64   `db:"cost"`
	Currency           string    `db:"currency"`
	Additional         float64   `db:"additional"`
	AdditionalCurrency string    `db:"additional_currency"`
	TotalUAH           float64   `db:"total_uah"`
	Duty               float64   `db:"duty"`
	Excise             float64   `db:"excise"`
	VAT                float64   `db:"vat"`
	Pension            float64   `db:"pension"`
	TotalPayments      float64   `db:"total_payments"`
	CreatedAt          time.Time `db:"created_at"`
	Year               *int      `db:"year"`
	EngineVolume       *float64  `db:"engine_volume"`
	BatteryKWh         *float64  `db:"battery_kwh"`
	USDRate            float64   `db:"usd_rate"`
	EURRate            float64   `db:"eur_rate"`
	TotalCustoms       float64   `db:"total_customs"`
	ValuationDate      time.Time `db:"valuation_date"`
}

// StatsQuery bounds the aggregate windows of a stats request.
type StatsQuery struct {
	RecentSince time.Time
	DaysSince   time.Time
	TopTypes    int
}

type VehicleTypeCount struct {
	VehicleType string
	Count       int
}

type DayCount struct {
	Day   string // YYYY-MM-DD
	Count int
}

type CalculationStats struct {
	Total         int
	UniqueUsers   int
	Recent        int
	ByVehicleType []VehicleTypeCount
	ByDay         []DayCount
}
