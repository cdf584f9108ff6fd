package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"customs-calc/internal/intake"
	"customs-calc/internal/tariff"
)

func newTestDialogue(rates *stubRates) (*DialogueService, *CalculationService) {
	calc := newTestCalculationService(rates, &stubStore{})
	sessions := intake.NewStore(time.Minute, time.Minute, func() *intake.Machine {
		return intake.NewMachine(intake.WithClock(func() time.Time { return testNow }))
	})
	return NewDialogueService(sessions, calc, zap.NewNop()), calc
}

func say(t *testing.T, d *DialogueService, user User, answers ...string) Reply {
	t.Helper()
	var r Reply
	for _, a := range answers {
		r = d.Reply(context.Background(), user, a)
	}
	return r
}

func TestDialogueService_CompletesCalculation(t *testing.T) {
	d, calc := newTestDialogue(&stubRates{set: tariff.RateSet{USD: 41, EUR: 45}})
	user := User{ID: 10}

	start := d.Start(user)
	assert.Equal(t, intake.StateChoosingCategory, start.Prompt.State)

	r := say(t, d, user, "car", "car_petrol", "15000", "USD", "0", "2000", "2020", "today")

	require.NoError(t, r.Err)
	require.NotNil(t, r.Result)
	assert.InDelta(t, 243000, r.Result.Breakdown.TotalPayments, 1e-6)
	assert.Equal(t, intake.StateChoosingCategory, r.Prompt.State)
	require.NoError(t, calc.Wait(context.Background()))
}

func TestDialogueService_RateFailureKeepsAnswers(t *testing.T) {
	rates := &stubRates{err: ErrRateUnavailable}
	d, _ := newTestDialogue(rates)
	user := User{ID: 11}

	r := say(t, d, user, "truck", "truck_electric", "40000", "USD", "0", "200", "today")

	assert.ErrorIs(t, r.Err, ErrRateUnavailable)
	assert.Nil(t, r.Result)
	assert.Equal(t, intake.StateChoosingValuationDate, r.Prompt.State)
	require.NotNil(t, r.Prompt.Record.Cost)
	assert.Equal(t, 40000.0, r.Prompt.Record.Cost.Amount)

	rates.mu.Lock()
	rates.err = nil
	rates.set = tariff.RateSet{USD: 40, EUR: 44}
	rates.mu.Unlock()

	r = say(t, d, user, "yesterday")
	require.NoError(t, r.Err)
	require.NotNil(t, r.Result)
	assert.Equal(t, tariff.CategoryTruckElectric, r.Result.Breakdown.Category)
	assert.Equal(t, 0.0, r.Result.Breakdown.Pension)
}

func TestDialogueService_InvalidAnswerReprompts(t *testing.T) {
	d, _ := newTestDialogue(&stubRates{})
	user := User{ID: 12}

	r := say(t, d, user, "moto", "moto_petrol", "abc")

	assert.ErrorIs(t, r.Err, intake.ErrNotANumber)
	assert.Equal(t, intake.StateEnteringCost, r.Prompt.State)
	assert.Equal(t, intake.StateEnteringCost, d.Current(user).Prompt.State)
}

func TestDialogueService_RatesOnly(t *testing.T) {
	d, _ := newTestDialogue(&stubRates{set: tariff.RateSet{USD: 41, EUR: 45}})
	user := User{ID: 13}

	p := d.LookupRates(user)
	assert.Equal(t, intake.StateChoosingValuationDate, p.Prompt.State)

	r := say(t, d, user, "custom", "01.06.2025")
	require.NoError(t, r.Err)
	require.NotNil(t, r.Rates)
	assert.Equal(t, 41.0, r.Rates.USD)
	assert.Equal(t, time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC), r.Rates.Date)
	assert.Equal(t, intake.StateChoosingCategory, r.Prompt.State)
}

func TestDialogueService_BackCancels(t *testing.T) {
	d, _ := newTestDialogue(&stubRates{})
	user := User{ID: 14}

	r := say(t, d, user, "car", "car_diesel", "back")
	assert.True(t, r.Cancelled)
	assert.Equal(t, intake.StateChoosingCategory, r.Prompt.State)
}

func TestDialogueService_UsersAreIsolated(t *testing.T) {
	d, _ := newTestDialogue(&stubRates{})

	say(t, d, User{ID: 1}, "car", "car_petrol")
	say(t, d, User{ID: 2}, "moto")

	assert.Equal(t, intake.StateEnteringCost, d.Current(User{ID: 1}).Prompt.State)
	assert.Equal(t, intake.StateChoosingEngineSubtype, d.Current(User{ID: 2}).Prompt.State)
}

func TestDialogueService_WrapsForeignRateErrors(t *testing.T) {
	d, _ := newTestDialogue(&stubRates{err: errors.New("boom")})

	r := say(t, d, User{ID: 15}, "moto", "moto_electric", "1000", "EUR", "0", "4", "today")
	assert.ErrorIs(t, r.Err, ErrRateUnavailable)
	assert.Equal(t, intake.StateChoosingValuationDate, r.Prompt.State)
}

func TestDialogueService_HugeCostIsRejected(t *testing.T) {
	d, calc := newTestDialogue(&stubRates{set: tariff.RateSet{USD: 41, EUR: 45}})
	user := User{ID: 16}

	r := say(t, d, user, "car", "car_petrol", "1e308")
	assert.ErrorIs(t, r.Err, intake.ErrTooLarge)
	assert.Equal(t, intake.StateEnteringCost, r.Prompt.State)

	r = say(t, d, user, "15000", "USD", "0", "2000", "2020", "today")
	require.NoError(t, r.Err)
	require.NotNil(t, r.Result)
	require.NoError(t, calc.Wait(context.Background()))

	var buf bytes.Buffer
	n, err := calc.Export(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
