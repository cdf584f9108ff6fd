package handlers

import (
	"strconv"
	"time"

	"customs-calc/internal/dto"
	"customs-calc/internal/intake"
	"customs-calc/internal/models"
	"customs-calc/internal/service"
	"customs-calc/internal/tariff"

	"github.com/gofiber/fiber/v2"
)

func toRatesResponse(r tariff.RateSet) dto.RatesResponse {
	return dto.RatesResponse{
		Date: r.Date.Format(intake.DateLayout),
		USD:  r.USD,
		EUR:  r.EUR,
	}
}

func toCalculationResponse(res *service.CalculationResult) *dto.CalculationResponse {
	b := res.Breakdown
	inCost, err := b.TotalCustomsIn(b.Cost.Currency)
	if err != nil {
		inCost = 0
	}
	return &dto.CalculationResponse{
		TraceID: res.TraceID.String(),
		Breakdown: dto.BreakdownResponse{
			VehicleType:        string(b.Category),
			Cost:               b.Cost.Amount,
			Currency:           string(b.Cost.Currency),
			Additional:         b.Additional.Amount,
			AdditionalCurrency: string(b.Additional.Currency),
			TotalUAH:           b.TotalLocal,
			Duty:               b.Duty,
			DutyRate:           b.DutyRate,
			ExciseEUR:          b.ExciseEUR,
			Excise:             b.ExciseLocal,
			VAT:                b.VAT,
			VATRate:            b.VATRate,
			Pension:            b.Pension,
			PensionRate:        b.PensionRate,
			AgeCoefficient:     b.AgeCoefficient,
			TotalCustoms:       b.TotalCustoms,
			TotalCustomsInCost: inCost,
			TotalPayments:      b.TotalPayments,
			Year:               b.Year,
			EngineVolume:       b.EngineCC,
			BatteryKWh:         b.BatteryKWh,
			Rates:              toRatesResponse(b.Rates),
		},
	}
}

func toRecordResponse(c *models.Calculation) dto.CalculationRecordResponse {
	return dto.CalculationRecordResponse{
		ID:            c.ID,
		TraceID:       c.TraceID.String(),
		VehicleType:   c.VehicleType,
		Cost:          c.Cost,
		Currency:      c.Currency,
		TotalUAH:      c.TotalUAH,
		TotalCustoms:  c.TotalCustoms,
		TotalPayments: c.TotalPayments,
		Year:          c.Year,
		EngineVolume:  c.EngineVolume,
		BatteryKWh:    c.BatteryKWh,
		USDRate:       c.USDRate,
		EURRate:       c.EURRate,
		ValuationDate: c.ValuationDate.Format(intake.DateLayout),
		CreatedAt:     c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toDialogueResponse(r service.Reply) dto.DialogueResponse {
	resp := dto.DialogueResponse{
		State:     r.Prompt.State.String(),
		Kind:      string(r.Prompt.Kind),
		Options:   r.Prompt.Options,
		Cancelled: r.Cancelled,
	}
	if r.Err != nil {
		resp.Error = r.Err.Error()
	}
	if r.Result != nil {
		resp.Result = toCalculationResponse(r.Result)
	}
	if r.Rates != nil {
		rates := toRatesResponse(*r.Rates)
		resp.Rates = &rates
	}
	return resp
}

func parseUserID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("user_id"), 10, 64)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}
