package handlers

import (
	"bytes"
	"fmt"
	"time"

	"customs-calc/internal/dto"
	"customs-calc/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AdminHandler struct {
	calcService *service.CalculationService
	logger      *zap.Logger
}

func NewAdminHandler(calcService *service.CalculationService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		calcService: calcService,
		logger:      logger,
	}
}

// Stats godoc
// @Summary Usage statistics
// @Tags admin
// @Produce json
// @Security Bearer
// @Success 200 {object} dto.StatsResponse
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/v1/admin/stats [get]
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.calcService.Stats(c.UserContext())
	if err != nil {
		h.logger.Error("Failed to read stats", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read stats",
		})
	}

	resp := dto.StatsResponse{
		Total:         stats.Total,
		UniqueUsers:   stats.UniqueUsers,
		Last24h:       stats.Recent,
		ByVehicleType: []dto.CountResponse{},
		ByDay:         []dto.CountResponse{},
	}
	for _, v := range stats.ByVehicleType {
		resp.ByVehicleType = append(resp.ByVehicleType, dto.CountResponse{Key: v.VehicleType, Count: v.Count})
	}
	for _, d := range stats.ByDay {
		resp.ByDay = append(resp.ByDay, dto.CountResponse{Key: d.Day, Count: d.Count})
	}
	return c.JSON(resp)
}

// Export godoc
// @Summary Export all calculations as CSV
// @Tags admin
// @Produce text/csv
// @Security Bearer
// @Success 200 {string} string "CSV file"
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/v1/admin/export [get]
func (h *AdminHandler) Export(c *fiber.Ctx) error {
	var buf bytes.Buffer
	n, err := h.calcService.Export(c.UserContext(), &buf)
	if err != nil {
		h.logger.Error("Failed to export calculations", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to export calculations",
		})
	}

	h.logger.Info("Calculations exported", zap.Int("rows", n))
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="calculations_%s.csv"`, time.Now().UTC().Format("20060102_150405")))
	return c.Send(buf.Bytes())
}
