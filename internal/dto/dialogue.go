package dto

type DialogueRequest struct {
	Answer   string `json:"answer"`
	Username string `json:"username,omitempty"`
}

type DialogueResponse struct {
	State     string               `json:"state"`
	Kind      string               `json:"kind"`
	Options   []string             `json:"options,omitempty"`
	Error     string               `json:"error,omitempty"`
	Cancelled bool                 `json:"cancelled,omitempty"`
	Result    *CalculationResponse `json:"result,omitempty"`
	Rates     *RatesResponse       `json:"rates,omitempty"`
}
