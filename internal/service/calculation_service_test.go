package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"customs-calc/internal/intake"
	"customs-calc/internal/models"
	"customs-calc/internal/repository"
	"customs-calc/internal/tariff"
)

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

type stubRates struct {
	set   tariff.RateSet
	err   error
	calls int
	mu    sync.Mutex
}

func (s *stubRates) GetRates(_ context.Context, date time.Time) (tariff.RateSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return tariff.RateSet{}, s.err
	}
	set := s.set
	set.Date = date
	return set, nil
}

type stubStore struct {
	mu       sync.Mutex
	created  []models.Calculation
	rows     []*models.Calculation
	stats    *models.CalculationStats
	createFn func(ctx context.Context) error
	readErr  error
}

func (s *stubStore) Create(ctx context.Context, c *models.Calculation) error {
	if s.createFn != nil {
		if err := s.createFn(ctx); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, *c)
	return nil
}

func (s *stubStore) ListRecentByUser(context.Context, int64, int) ([]*models.Calculation, error) {
	return s.rows, s.readErr
}

func (s *stubStore) ListAll(context.Context) ([]*models.Calculation, error) {
	return s.rows, s.readErr
}

func (s *stubStore) Stats(context.Context, models.StatsQuery) (*models.CalculationStats, error) {
	return s.stats, s.readErr
}

func (s *stubStore) createdRows() []models.Calculation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Calculation(nil), s.created...)
}

func newTestCalculationService(rates RateProvider, store CalculationStore) *CalculationService {
	engine := tariff.NewEngine(func() time.Time { return testNow })
	svc := NewCalculationService(engine, rates, store, repository.NewCalculationMirror(10), time.Second, zap.NewNop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func petrolRequest() intake.Request {
	return intake.Request{
		Vehicle:       tariff.PetrolCar{EngineCC: 2000, Year: 2020},
		Cost:          tariff.Money{Amount: 15000, Currency: tariff.CurrencyUSD},
		Additional:    tariff.Money{Amount: 0, Currency: tariff.CurrencyUSD},
		ValuationDate: time.Date(2025, time.June, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestCalculationService_CalculatePersistsInBackground(t *testing.T) {
	rates := &stubRates{set: tariff.RateSet{USD: 41, EUR: 45}}
	store := &stubStore{}
	svc := newTestCalculationService(rates, store)
	user := User{ID: 7, Username: "driver"}

	res, err := svc.Calculate(context.Background(), user, petrolRequest())
	require.NoError(t, err)
	require.NoError(t, svc.Wait(context.Background()))

	assert.InDelta(t, 218400, res.Breakdown.TotalCustoms, 1e-6)
	assert.Equal(t, 1, rates.calls)

	created := store.createdRows()
	require.Len(t, created, 1)
	row := created[0]
	assert.Equal(t, res.TraceID, row.TraceID)
	assert.Equal(t, int64(7), row.UserID)
	require.NotNil(t, row.Username)
	assert.Equal(t, "driver", *row.Username)
	assert.Equal(t, "car_petrol", row.VehicleType)
	assert.Equal(t, "USD", row.AdditionalCurrency)
	assert.InDelta(t, 218400, row.TotalCustoms, 1e-6)
	assert.Equal(t, 41.0, row.USDRate)
	require.NotNil(t, row.Year)
	assert.Equal(t, 2020, *row.Year)
	assert.Equal(t, testNow, row.CreatedAt)

	history, err := svc.mirror.ListRecentByUser(context.Background(), 7, 5)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestCalculationService_RateFailurePersistsNothing(t *testing.T) {
	store := &stubStore{}
	svc := newTestCalculationService(&stubRates{err: errors.New("connection refused")}, store)

	res, err := svc.Calculate(context.Background(), User{ID: 1}, petrolRequest())
	require.NoError(t, svc.Wait(context.Background()))

	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrRateUnavailable)
	assert.Empty(t, store.createdRows())
	assert.Zero(t, svc.mirror.Len())
}

func TestCalculationService_WriteFailureDoesNotFailCalculation(t *testing.T) {
	store := &stubStore{createFn: func(context.Context) error { return errors.New("disk full") }}
	svc := newTestCalculationService(&stubRates{set: tariff.RateSet{USD: 41, EUR: 45}}, store)

	res, err := svc.Calculate(context.Background(), User{ID: 1}, petrolRequest())
	require.NoError(t, err)
	require.NotNil(t, res)
	require.NoError(t, svc.Wait(context.Background()))
	assert.Equal(t, 1, svc.mirror.Len())
}

func TestCalculationService_WriteOutlivesRequestContext(t *testing.T) {
	var writeErr error
	store := &stubStore{createFn: func(ctx context.Context) error {
		writeErr = ctx.Err()
		return nil
	}}
	svc := newTestCalculationService(&stubRates{set: tariff.RateSet{USD: 41, EUR: 45}}, store)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.Calculate(ctx, User{ID: 1}, petrolRequest())
	cancel()
	require.NoError(t, err)
	require.NoError(t, svc.Wait(context.Background()))

	assert.NoError(t, writeErr)
	assert.Len(t, store.createdRows(), 1)
}

func TestCalculationService_RejectsRatesOnlyRequest(t *testing.T) {
	svc := newTestCalculationService(&stubRates{}, nil)
	_, err := svc.Calculate(context.Background(), User{ID: 1}, intake.Request{RatesOnly: true})
	assert.ErrorIs(t, err, ErrRatesOnlyRequest)
}

func TestCalculationService_HistoryFallsBackToMirror(t *testing.T) {
	ctx := context.Background()
	rates := &stubRates{set: tariff.RateSet{USD: 41, EUR: 45}}

	tests := []struct {
		name  string
		store *stubStore
	}{
		{"read error", &stubStore{readErr: errors.New("db down")}},
		{"empty result", &stubStore{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestCalculationService(rates, tt.store)
			_, err := svc.Calculate(ctx, User{ID: 3}, petrolRequest())
			require.NoError(t, err)
			require.NoError(t, svc.Wait(ctx))

			history, err := svc.History(ctx, 3, 5)
			require.NoError(t, err)
			require.Len(t, history, 1)
			assert.Equal(t, "car_petrol", history[0].VehicleType)
		})
	}
}

func TestCalculationService_HistoryPrefersStore(t *testing.T) {
	stored := &models.Calculation{ID: 99, TraceID: uuid.New(), UserID: 3, VehicleType: "truck_diesel"}
	svc := newTestCalculationService(&stubRates{}, &stubStore{rows: []*models.Calculation{stored}})

	history, err := svc.History(context.Background(), 3, 5)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(99), history[0].ID)
}

func TestCalculationService_HistoryIncludesPendingWrites(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	stored := &models.Calculation{
		ID:          1,
		TraceID:     uuid.New(),
		UserID:      3,
		VehicleType: "truck_diesel",
		CreatedAt:   testNow.Add(-time.Hour),
	}
	store := &stubStore{
		rows: []*models.Calculation{stored},
		createFn: func(context.Context) error {
			<-release
			return nil
		},
	}
	svc := newTestCalculationService(&stubRates{set: tariff.RateSet{USD: 41, EUR: 45}}, store)

	res, err := svc.Calculate(ctx, User{ID: 3}, petrolRequest())
	require.NoError(t, err)

	history, err := svc.History(ctx, 3, 5)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, res.TraceID, history[0].TraceID)
	assert.Equal(t, int64(1), history[1].ID)

	history, err = svc.History(ctx, 3, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, res.TraceID, history[0].TraceID)

	close(release)
	require.NoError(t, svc.Wait(ctx))
}

func TestMergeRecentDropsDuplicates(t *testing.T) {
	id := uuid.New()
	stored := []*models.Calculation{{ID: 7, TraceID: id, CreatedAt: testNow}}
	mirrored := []*models.Calculation{{TraceID: id, CreatedAt: testNow}}

	out := mergeRecent(stored, mirrored, 5)
	require.Len(t, out, 1)
	assert.Equal(t, int64(7), out[0].ID)
}

func TestCalculationService_NonFiniteResultIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	store := &stubStore{}
	svc := newTestCalculationService(&stubRates{set: tariff.RateSet{USD: 41, EUR: 45}}, store)

	req := petrolRequest()
	req.Cost = tariff.Money{Amount: 1e308, Currency: tariff.CurrencyUSD}
	res, err := svc.Calculate(ctx, User{ID: 1}, req)
	require.NoError(t, svc.Wait(ctx))

	assert.Nil(t, res)
	assert.ErrorIs(t, err, tariff.ErrNotFinite)
	assert.Empty(t, store.createdRows())
	assert.Zero(t, svc.mirror.Len())

	var buf bytes.Buffer
	n, err := svc.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCalculationService_StatsFallsBackToMirror(t *testing.T) {
	ctx := context.Background()
	svc := newTestCalculationService(&stubRates{set: tariff.RateSet{USD: 41, EUR: 45}}, &stubStore{readErr: errors.New("db down")})
	for _, id := range []int64{1, 2, 2} {
		_, err := svc.Calculate(ctx, User{ID: id}, petrolRequest())
		require.NoError(t, err)
	}
	require.NoError(t, svc.Wait(ctx))

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.UniqueUsers)
	assert.Equal(t, 3, stats.Recent)
	assert.Equal(t, []models.DayCount{{Day: "2025-06-15", Count: 3}}, stats.ByDay)
}

func TestCalculationService_Export(t *testing.T) {
	ctx := context.Background()
	svc := newTestCalculationService(&stubRates{set: tariff.RateSet{USD: 41, EUR: 45}}, nil)
	_, err := svc.Calculate(ctx, User{ID: 5, Username: "exp"}, petrolRequest())
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := svc.Export(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, exportHeader, records[0])

	row := map[string]string{}
	for i, h := range records[0] {
		row[h] = records[1][i]
	}
	assert.Equal(t, "exp", row["username"])
	assert.Equal(t, "car_petrol", row["vehicle_type"])
	assert.Equal(t, "615000.00", row["total_uah"])
	assert.Equal(t, "218400.00", row["total_customs"])
	assert.Equal(t, "41.0000", row["usd_rate"])
	assert.Equal(t, "2020", row["year"])
	assert.Equal(t, "", row["battery_kwh"])
	assert.Equal(t, "2025-06-15", row["valuation_date"])
}

func TestSanitizeUTF8(t *testing.T) {
	assert.Equal(t, "ok", sanitizeUTF8("ok"))
	assert.Equal(t, "ab", sanitizeUTF8("a\xffb"))
	assert.Nil(t, optionalString("  "))
	assert.Equal(t, "x", *optionalString("x"))
}
