package service

import (
	"context"
	"errors"

	"customs-calc/internal/intake"
	"customs-calc/internal/tariff"

	"go.uber.org/zap"
)

// Reply is the outcome of one dialogue turn. Prompt is always the question
// the user should see next; Result or Rates are set when a request completed.
type Reply struct {
	Prompt    intake.Prompt
	Result    *CalculationResult
	Rates     *tariff.RateSet
	Cancelled bool
	Err       error
}

// DialogueService runs intake sessions and hands completed requests to the
// calculation pipeline.
type DialogueService struct {
	sessions *intake.Store
	calc     *CalculationService
	logger   *zap.Logger
}

func NewDialogueService(sessions *intake.Store, calc *CalculationService, logger *zap.Logger) *DialogueService {
	return &DialogueService{
		sessions: sessions,
		calc:     calc,
		logger:   logger,
	}
}

// Start clears the user's session and asks for a category.
func (d *DialogueService) Start(user User) Reply {
	sess := d.sessions.Acquire(user.ID)
	defer sess.Release()
	return Reply{Prompt: sess.Machine().Reset()}
}

// LookupRates begins a rates-only dialogue.
func (d *DialogueService) LookupRates(user User) Reply {
	sess := d.sessions.Acquire(user.ID)
	defer sess.Release()
	return Reply{Prompt: sess.Machine().LookupRates()}
}

// Current returns the pending prompt without changing the session.
func (d *DialogueService) Current(user User) Reply {
	sess := d.sessions.Acquire(user.ID)
	defer sess.Release()
	return Reply{Prompt: sess.Machine().Prompt()}
}

// Reply feeds one answer into the user's session. A failed rate lookup
// keeps the accumulated answers and asks for the valuation date again.
func (d *DialogueService) Reply(ctx context.Context, user User, answer string) Reply {
	sess := d.sessions.Acquire(user.ID)
	defer sess.Release()
	m := sess.Machine()

	step := m.Handle(answer)
	if step.Request == nil {
		return Reply{Prompt: step.Prompt, Cancelled: step.Cancelled, Err: step.Prompt.Err}
	}

	if step.Request.RatesOnly {
		rates, err := d.calc.Rates(ctx, step.Request.ValuationDate)
		if err != nil {
			d.logger.Warn("Rate lookup failed", zap.Int64("user_id", user.ID), zap.Error(err))
			return Reply{Prompt: m.Rewind(), Err: err}
		}
		return Reply{Prompt: m.Done(), Rates: &rates}
	}

	result, err := d.calc.Calculate(ctx, user, *step.Request)
	switch {
	case errors.Is(err, ErrRateUnavailable):
		return Reply{Prompt: m.Rewind(), Err: err}
	case err != nil:
		d.logger.Error("Calculation failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return Reply{Prompt: m.Reset(), Cancelled: true, Err: err}
	}
	return Reply{Prompt: m.Done(), Result: result}
}
