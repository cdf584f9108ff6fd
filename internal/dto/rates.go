package dto

type RatesResponse struct {
	Date string  `json:"date"`
	USD  float64 `json:"usd"`
	EUR  float64 `json:"eur"`
}
