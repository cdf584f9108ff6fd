package dto

type CountResponse struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type StatsResponse struct {
	Total         int             `json:"total"`
	UniqueUsers   int             `json:"unique_users"`
	Last24h       int             `json:"last_24h"`
	ByVehicleType []CountResponse `json:"by_vehicle_type"`
	ByDay         []CountResponse `json:"by_day"`
}
