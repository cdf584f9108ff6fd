package handlers

import (
	"customs-calc/internal/dto"
	"customs-calc/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type DialogueHandler struct {
	dialogue *service.DialogueService
	logger   *zap.Logger
}

func NewDialogueHandler(dialogue *service.DialogueService, logger *zap.Logger) *DialogueHandler {
	return &DialogueHandler{
		dialogue: dialogue,
		logger:   logger,
	}
}

// Current godoc
// @Summary Pending dialogue prompt
// @Tags dialogue
// @Produce json
// @Param user_id path int true "Chat user id"
// @Success 200 {object} dto.DialogueResponse
// @Router /api/v1/dialogue/{user_id} [get]
func (h *DialogueHandler) Current(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return badRequest(c, "Invalid user id")
	}
	return c.JSON(toDialogueResponse(h.dialogue.Current(service.User{ID: userID})))
}

// Reply godoc
// @Summary Answer the pending dialogue prompt
// @Description Answers are option codes (car, car_petrol, USD, today, custom, back) or typed values.
// @Description "start" opens a new calculation and "rates" a rate lookup.
// @Tags dialogue
// @Accept json
// @Produce json
// @Param user_id path int true "Chat user id"
// @Param request body dto.DialogueRequest true "Answer"
// @Success 200 {object} dto.DialogueResponse
// @Failure 400 {object} map[string]string
// @Router /api/v1/dialogue/{user_id} [post]
func (h *DialogueHandler) Reply(c *fiber.Ctx) error {
	userID, err := parseUserID(c)
	if err != nil {
		return badRequest(c, "Invalid user id")
	}
	var req dto.DialogueRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user := service.User{ID: userID, Username: req.Username}
	var reply service.Reply
	switch req.Answer {
	case "start":
		reply = h.dialogue.Start(user)
	case "rates":
		reply = h.dialogue.LookupRates(user)
	default:
		reply = h.dialogue.Reply(c.UserContext(), user, req.Answer)
	}

	return c.JSON(toDialogueResponse(reply))
}
