package handlers

import (
	"errors"
	"strings"
	"time"

	"customs-calc/internal/dto"
	"customs-calc/internal/intake"
	"customs-calc/internal/service"
	"customs-calc/internal/tariff"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CalculationHandler struct {
	calcService      *service.CalculationService
	historyLimit     int
	electricBenefits bool
	now              func() time.Time
	logger           *zap.Logger
}

// NewCalculationHandler serves calculations. electricBenefits gates the
// car_electric_benefits category the same way the chat dialogue does.
func NewCalculationHandler(calcService *service.CalculationService, historyLimit int, electricBenefits bool, logger *zap.Logger) *CalculationHandler {
	return &CalculationHandler{
		calcService:      calcService,
		historyLimit:     historyLimit,
		electricBenefits: electricBenefits,
		now:              time.Now,
		logger:           logger,
	}
}

// Calculate godoc
// @Summary Calculate customs payments
// @Description Runs one calculation through the same pipeline as the chat dialogue
// @Tags calculations
// @Accept json
// @Produce json
// @Param request body dto.CalculationRequest true "Vehicle and costs"
// @Success 200 {object} dto.CalculationResponse
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/v1/calculations [post]
func (h *CalculationHandler) Calculate(c *fiber.Ctx) error {
	var req dto.CalculationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	intakeReq, err := h.toIntakeRequest(&req)
	if err != nil {
		return badRequest(c, err.Error())
	}

	res, err := h.calcService.Calculate(c.UserContext(), service.User{ID: req.UserID, Username: req.Username}, *intakeReq)
	switch {
	case errors.Is(err, service.ErrRateUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Exchange rates are unavailable for this date, try again later",
		})
	case errors.Is(err, tariff.ErrUnsupportedVehicle), errors.Is(err, tariff.ErrNotFinite):
		return badRequest(c, err.Error())
	case err != nil:
		h.logger.Error("Failed to calculate", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to calculate",
		})
	}

	return c.JSON(toCalculationResponse(res))
}

func (h *CalculationHandler) toIntakeRequest(req *dto.CalculationRequest) (*intake.Request, error) {
	category, ok := tariff.ParseCategory(strings.ToLower(req.VehicleType))
	if !ok {
		return nil, errors.New("unknown vehicle_type")
	}

	var cost, additional tariff.Money
	if category == tariff.CategoryCarElectricBenefits {
		if !h.electricBenefits {
			return nil, errors.New("vehicle_type car_electric_benefits is disabled")
		}
		// Costs do not enter the benefits regime.
		cost = tariff.Money{Amount: 0, Currency: tariff.CurrencyEUR}
		additional = tariff.Money{Amount: 0, Currency: tariff.CurrencyEUR}
	} else {
		currency, ok := tariff.ParseCurrency(req.Currency)
		if !ok {
			return nil, errors.New("unknown currency")
		}
		additionalCurrency := tariff.CurrencyUSD
		if req.AdditionalCurrency != "" {
			if additionalCurrency, ok = tariff.ParseCurrency(req.AdditionalCurrency); !ok {
				return nil, errors.New("unknown additional_currency")
			}
		}
		cost = tariff.Money{Amount: req.Cost, Currency: currency}
		additional = tariff.Money{Amount: req.Additional, Currency: additionalCurrency}
	}

	dateAnswer := req.ValuationDate
	if dateAnswer == "" {
		dateAnswer = intake.AnswerToday
	}
	date, err := intake.ResolveDate(dateAnswer, h.now())
	if err != nil {
		return nil, err
	}

	record := intake.Record{
		Category:      category,
		Cost:          &cost,
		Additional:    &additional,
		EngineCC:      req.EngineVolume,
		BatteryKWh:    req.BatteryKWh,
		Year:          req.Year,
		ValuationDate: &date,
	}
	if err := record.Validate(h.now()); err != nil {
		return nil, err
	}
	return record.Request()
}

// History godoc
// @Summary Recent calculations of a user
// @Tags calculations
// @Produce json
// @Param user_id path int true "Chat user id"
// @Param limit query int false "Number of records" default(5)
// @Success 200 {array} dto.CalculationRecordResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/users/{user_id}/calculations [get]
func (h *CalculationHandler) History(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return badRequest(c, "Invalid user id")
	}
	limit := c.QueryInt("limit", h.historyLimit)
	if limit <= 0 || limit > 100 {
		return badRequest(c, "limit must be between 1 and 100")
	}

	rows, err := h.calcService.History(c.UserContext(), userID, limit)
	if err != nil {
		h.logger.Error("Failed to read history", zap.Int64("user_id", userID), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read history",
		})
	}

	resp := make([]dto.CalculationRecordResponse, 0, len(rows))
	for _, r := range rows {
		resp = append(resp, toRecordResponse(r))
	}
	return c.JSON(resp)
}
