package dto

// CalculationRequest asks for a one-shot calculation without a dialogue.
// ValuationDate accepts DD.MM.YYYY, "today", "tomorrow" or "yesterday".
type CalculationRequest struct {
	UserID             int64    `json:"user_id"`
	Username           string   `json:"username,omitempty"`
	VehicleType        string   `json:"vehicle_type"`
	Cost               float64  `json:"cost"`
	Currency           string   `json:"currency"`
	Additional         float64  `json:"additional"`
	AdditionalCurrency string   `json:"additional_currency,omitempty"`
	EngineVolume       *float64 `json:"engine_volume,omitempty"`
	BatteryKWh         *float64 `json:"battery_kwh,omitempty"`
	Year               *int     `json:"year,omitempty"`
	ValuationDate      string   `json:"valuation_date"`
}

type BreakdownResponse struct {
	VehicleType        string        `json:"vehicle_type"`
	Cost               float64       `json:"cost"`
	Currency           string        `json:"currency"`
	Additional         float64       `json:"additional"`
	AdditionalCurrency string        `json:"additional_currency"`
	TotalUAH           float64       `json:"total_uah"`
	Duty               float64       `json:"duty"`
	DutyRate           float64       `json:"duty_rate"`
	ExciseEUR          float64       `json:"excise_eur"`
	Excise             float64       `json:"excise"`
	VAT                float64       `json:"vat"`
	VATRate            float64       `json:"vat_rate"`
	Pension            float64       `json:"pension"`
	PensionRate        float64       `json:"pension_rate"`
	AgeCoefficient     float64       `json:"age_coefficient,omitempty"`
	TotalCustoms       float64       `json:"total_customs"`
	TotalCustomsInCost float64       `json:"total_customs_in_cost_currency"`
	TotalPayments      float64       `json:"total_payments"`
	Year               *int          `json:"year,omitempty"`
	EngineVolume       *float64      `json:"engine_volume,omitempty"`
	BatteryKWh         *float64      `json:"battery_kwh,omitempty"`
	Rates              RatesResponse `json:"rates"`
}

type CalculationResponse struct {
	TraceID   string            `json:"trace_id"`
	Breakdown BreakdownResponse `json:"breakdown"`
}

type CalculationRecordResponse struct {
	ID            int64    `json:"id"`
	TraceID       string   `json:"trace_id"`
	VehicleType   string   `json:"vehicle_type"`
	Cost          float64  `json:"cost"`
	Currency      string   `json:"currency"`
	TotalUAH      float64  `json:"total_uah"`
	TotalCustoms  float64  `json:"total_customs"`
	TotalPayments float64  `json:"total_payments"`
	Year          *int     `json:"year,omitempty"`
	EngineVolume  *float64 `json:"engine_volume,omitempty"`
	BatteryKWh    *float64 `json:"battery_kwh,omitempty"`
	USDRate       float64  `json:"usd_rate"`
	EURRate       float64  `json:"eur_rate"`
	ValuationDate string   `json:"valuation_date"`
	CreatedAt     string   `json:"created_at"`
}
