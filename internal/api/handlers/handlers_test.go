package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"customs-calc/internal/dto"
	"customs-calc/internal/intake"
	"customs-calc/internal/repository"
	"customs-calc/internal/service"
	"customs-calc/internal/tariff"
	"customs-calc/pkg/auth"
	"customs-calc/pkg/middleware"
)

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

type fakeRates struct {
	mu  sync.Mutex
	err error
}

func (f *fakeRates) GetRates(_ context.Context, date time.Time) (tariff.RateSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return tariff.RateSet{}, f.err
	}
	return tariff.RateSet{Date: date, USD: 41, EUR: 45}, nil
}

type testServer struct {
	app         *fiber.App
	calc        *service.CalculationService
	calcHandler *CalculationHandler
	rates       *fakeRates
	jwt         *auth.JWTManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clock := func() time.Time { return testNow }
	rates := &fakeRates{}
	calc := service.NewCalculationService(
		tariff.NewEngine(clock), rates, nil, repository.NewCalculationMirror(10), time.Second, zap.NewNop())
	sessions := intake.NewStore(time.Minute, time.Minute, func() *intake.Machine {
		return intake.NewMachine(intake.WithClock(clock))
	})
	dialogue := service.NewDialogueService(sessions, calc, zap.NewNop())
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	calcHandler := NewCalculationHandler(calc, 5, false, zap.NewNop())
	calcHandler.now = clock
	rateHandler := NewRateHandler(calc, zap.NewNop())
	rateHandler.now = clock
	dialogueHandler := NewDialogueHandler(dialogue, zap.NewNop())
	adminHandler := NewAdminHandler(calc, zap.NewNop())

	app := fiber.New()
	app.Get("/rates", rateHandler.GetRates)
	app.Post("/calculations", calcHandler.Calculate)
	app.Get("/users/:user_id/calculations", calcHandler.History)
	app.Get("/dialogue/:user_id", dialogueHandler.Current)
	app.Post("/dialogue/:user_id", dialogueHandler.Reply)
	admin := app.Group("/admin", middleware.AdminMiddleware(jwtManager, zap.NewNop()))
	admin.Get("/stats", adminHandler.Stats)
	admin.Get("/export", adminHandler.Export)

	t.Cleanup(func() { _ = calc.Wait(context.Background()) })
	return &testServer{app: app, calc: calc, calcHandler: calcHandler, rates: rates, jwt: jwtManager}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func petrolCalculation() dto.CalculationRequest {
	engine := 2000.0
	year := 2020
	return dto.CalculationRequest{
		UserID:        42,
		Username:      "importer",
		VehicleType:   "car_petrol",
		Cost:          15000,
		Currency:      "usd",
		EngineVolume:  &engine,
		Year:          &year,
		ValuationDate: "today",
	}
}

func TestCalculationHandler_Calculate(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/calculations", petrolCalculation())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out dto.CalculationResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.NotEmpty(t, out.TraceID)
	assert.Equal(t, "car_petrol", out.Breakdown.VehicleType)
	assert.Equal(t, "USD", out.Breakdown.AdditionalCurrency)
	assert.InDelta(t, 218400, out.Breakdown.TotalCustoms, 1e-6)
	assert.InDelta(t, 243000, out.Breakdown.TotalPayments, 1e-6)
	assert.Equal(t, "15.06.2025", out.Breakdown.Rates.Date)
}

func TestCalculationHandler_CalculateRejectsInput(t *testing.T) {
	tests := []struct {
		name   string
		modify func(r *dto.CalculationRequest)
	}{
		{"unknown vehicle", func(r *dto.CalculationRequest) { r.VehicleType = "boat" }},
		{"unknown currency", func(r *dto.CalculationRequest) { r.Currency = "GBP" }},
		{"negative cost", func(r *dto.CalculationRequest) { r.Cost = -1 }},
		{"cost overflows", func(r *dto.CalculationRequest) { r.Cost = 1e308 }},
		{"engine volume overflows", func(r *dto.CalculationRequest) { v := 1e300; r.EngineVolume = &v }},
		{"missing engine volume", func(r *dto.CalculationRequest) { r.EngineVolume = nil }},
		{"year in the future", func(r *dto.CalculationRequest) { y := 2030; r.Year = &y }},
		{"bad date", func(r *dto.CalculationRequest) { r.ValuationDate = "31.02.2025" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			req := petrolCalculation()
			tt.modify(&req)

			resp, body := s.do(t, http.MethodPost, "/calculations", req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
		})
	}
}

func electricBenefitsCalculation() dto.CalculationRequest {
	battery := 60.0
	return dto.CalculationRequest{
		UserID:      42,
		VehicleType: "car_electric_benefits",
		Cost:        30000,
		Currency:    "USD",
		Additional:  500,
		BatteryKWh:  &battery,
	}
}

func TestCalculationHandler_ElectricBenefitsDisabled(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/calculations", electricBenefitsCalculation())
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "car_electric_benefits")

	rows, err := s.calc.History(context.Background(), 42, 5)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCalculationHandler_ElectricBenefitsIgnoresCosts(t *testing.T) {
	s := newTestServer(t)
	s.calcHandler.electricBenefits = true

	resp, body := s.do(t, http.MethodPost, "/calculations", electricBenefitsCalculation())
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out dto.CalculationResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "car_electric_benefits", out.Breakdown.VehicleType)
	assert.Zero(t, out.Breakdown.Cost)
	assert.Equal(t, "EUR", out.Breakdown.Currency)
	assert.Zero(t, out.Breakdown.Additional)
	assert.Equal(t, "EUR", out.Breakdown.AdditionalCurrency)
	assert.Zero(t, out.Breakdown.TotalUAH)
	assert.Zero(t, out.Breakdown.VAT)
}

func TestCalculationHandler_RatesUnavailable(t *testing.T) {
	s := newTestServer(t)
	s.rates.err = service.ErrRateUnavailable

	resp, _ := s.do(t, http.MethodPost, "/calculations", petrolCalculation())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestCalculationHandler_History(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		resp, _ := s.do(t, http.MethodPost, "/calculations", petrolCalculation())
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := s.do(t, http.MethodGet, "/users/42/calculations?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rows []dto.CalculationRecordResponse
	require.NoError(t, json.Unmarshal(body, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "car_petrol", rows[0].VehicleType)
	assert.Equal(t, "15.06.2025", rows[0].ValuationDate)

	resp, _ = s.do(t, http.MethodGet, "/users/abc/calculations", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, http.MethodGet, "/users/42/calculations?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRateHandler_GetRates(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodGet, "/rates?date=yesterday", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.RatesResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "14.06.2025", out.Date)
	assert.Equal(t, 41.0, out.USD)
	assert.Equal(t, 45.0, out.EUR)

	resp, _ = s.do(t, http.MethodGet, "/rates?date=someday", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	s.rates.err = errors.New("nbu down")
	resp, _ = s.do(t, http.MethodGet, "/rates", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDialogueHandler_Flow(t *testing.T) {
	s := newTestServer(t)
	answer := func(a string) dto.DialogueResponse {
		resp, body := s.do(t, http.MethodPost, "/dialogue/7", dto.DialogueRequest{Answer: a, Username: "chat"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out dto.DialogueResponse
		require.NoError(t, json.Unmarshal(body, &out))
		return out
	}

	out := answer("start")
	assert.Equal(t, intake.StateChoosingCategory.String(), out.State)
	assert.Equal(t, []string{"car", "truck", "moto"}, out.Options)

	out = answer("truck")
	assert.Equal(t, string(intake.KindChoice), out.Kind)

	answer("truck_diesel")
	out = answer("20 000")
	assert.Equal(t, intake.StateEnteringCostCurrency.String(), out.State)

	answer("eur")
	out = answer("1000")
	assert.Equal(t, intake.StateEnteringAdditionalCurrency.String(), out.State)

	out = answer("minus")
	assert.NotEmpty(t, out.Error)
	assert.Equal(t, intake.StateEnteringAdditionalCurrency.String(), out.State)

	answer("EUR")
	answer("6000")
	out = answer("2018")
	assert.Equal(t, intake.StateChoosingValuationDate.String(), out.State)

	out = answer("today")
	require.Empty(t, out.Error)
	require.NotNil(t, out.Result)
	assert.Equal(t, "truck_diesel", out.Result.Breakdown.VehicleType)
	assert.Equal(t, intake.StateChoosingCategory.String(), out.State)

	resp, body := s.do(t, http.MethodGet, "/dialogue/7", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var current dto.DialogueResponse
	require.NoError(t, json.Unmarshal(body, &current))
	assert.Equal(t, intake.StateChoosingCategory.String(), current.State)
}

func TestDialogueHandler_RatesLookup(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodPost, "/dialogue/8", dto.DialogueRequest{Answer: "rates"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), intake.StateChoosingValuationDate.String())

	resp, body = s.do(t, http.MethodPost, "/dialogue/8", dto.DialogueRequest{Answer: "tomorrow"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.DialogueResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotNil(t, out.Rates)
	assert.Equal(t, "16.06.2025", out.Rates.Date)
}

func TestAdminHandler_RequiresAdminToken(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, http.MethodGet, "/admin/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	userToken, err := s.jwt.GenerateToken(1, "user")
	require.NoError(t, err)
	resp, _ = s.do(t, http.MethodGet, "/admin/stats", nil, "Authorization", "Bearer "+userToken)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminHandler_StatsAndExport(t *testing.T) {
	s := newTestServer(t)
	token, err := s.jwt.GenerateToken(1, auth.RoleAdmin)
	require.NoError(t, err)
	bearer := "Bearer " + token

	for _, id := range []int64{1, 2, 2} {
		req := petrolCalculation()
		req.UserID = id
		resp, _ := s.do(t, http.MethodPost, "/calculations", req)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := s.do(t, http.MethodGet, "/admin/stats", nil, "Authorization", bearer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats dto.StatsResponse
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.UniqueUsers)
	assert.Equal(t, []dto.CountResponse{{Key: "car_petrol", Count: 3}}, stats.ByVehicleType)

	resp, body = s.do(t, http.MethodGet, "/admin/export", nil, "Authorization", bearer)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/csv"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "calculations_")
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	assert.Len(t, lines, 4)
}
