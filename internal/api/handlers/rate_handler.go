package handlers

import (
	"errors"
	"time"

	"customs-calc/internal/intake"
	"customs-calc/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type RateHandler struct {
	calcService *service.CalculationService
	now         func() time.Time
	logger      *zap.Logger
}

func NewRateHandler(calcService *service.CalculationService, logger *zap.Logger) *RateHandler {
	return &RateHandler{
		calcService: calcService,
		now:         time.Now,
		logger:      logger,
	}
}

// GetRates godoc
// @Summary Official NBU rates
// @Tags rates
// @Produce json
// @Param date query string false "DD.MM.YYYY, today, tomorrow or yesterday" default(today)
// @Success 200 {object} dto.RatesResponse
// @Failure 400 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/v1/rates [get]
func (h *RateHandler) GetRates(c *fiber.Ctx) error {
	date, err := intake.ResolveDate(c.Query("date", intake.AnswerToday), h.now())
	if err != nil {
		return badRequest(c, err.Error())
	}

	rates, err := h.calcService.Rates(c.UserContext(), date)
	if errors.Is(err, service.ErrRateUnavailable) {
		h.logger.Warn("Rates unavailable", zap.Time("date", date), zap.Error(err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": "Exchange rates are unavailable for this date",
		})
	}
	if err != nil {
		return err
	}

	return c.JSON(toRatesResponse(rates))
}
