package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"sync"
	"time"

	"customs-calc/internal/intake"
	"customs-calc/internal/models"
	"customs-calc/internal/repository"
	"customs-calc/internal/tariff"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	statsRecentWindow = 24 * time.Hour
	statsDays         = 7
	statsTopTypes     = 5
)

var ErrRatesOnlyRequest = errors.New("rates-only request has nothing to calculate")

// CalculationStore is the persistence surface the pipeline needs.
type CalculationStore interface {
	Create(ctx context.Context, c *models.Calculation) error
	ListRecentByUser(ctx context.Context, userID int64, limit int) ([]*models.Calculation, error)
	ListAll(ctx context.Context) ([]*models.Calculation, error)
	Stats(ctx context.Context, q models.StatsQuery) (*models.CalculationStats, error)
}

type User struct {
	ID       int64
	Username string
}

type CalculationResult struct {
	TraceID   uuid.UUID
	Breakdown *tariff.Breakdown
}

// CalculationService is the single pipeline from a completed intake request
// to a breakdown: rates, tariff engine, then persistence in the background.
type CalculationService struct {
	engine       *tariff.Engine
	rates        RateProvider
	store        CalculationStore
	mirror       *repository.CalculationMirror
	writeTimeout time.Duration
	now          func() time.Time
	logger       *zap.Logger
	wg           sync.WaitGroup
}

// NewCalculationService wires the pipeline. store may be nil, in which case
// the mirror is the only history.
func NewCalculationService(
	engine *tariff.Engine,
	rates RateProvider,
	store CalculationStore,
	mirror *repository.CalculationMirror,
	writeTimeout time.Duration,
	logger *zap.Logger,
) *CalculationService {
	if mirror == nil {
		mirror = repository.NewCalculationMirror(repository.DefaultMirrorCapacity)
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}
	return &CalculationService{
		engine:       engine,
		rates:        rates,
		store:        store,
		mirror:       mirror,
		writeTimeout: writeTimeout,
		now:          time.Now,
		logger:       logger,
	}
}

// Rates returns the official rates for date.
func (s *CalculationService) Rates(ctx context.Context, date time.Time) (tariff.RateSet, error) {
	set, err := s.rates.GetRates(ctx, date)
	if err != nil {
		if !errors.Is(err, ErrRateUnavailable) {
			err = fmt.Errorf("%w: %v", ErrRateUnavailable, err)
		}
		return tariff.RateSet{}, err
	}
	return set, nil
}

// Calculate fetches rates for the valuation date, runs the tariff engine and
// schedules the result for storage. Storage failures never fail the call.
func (s *CalculationService) Calculate(ctx context.Context, user User, req intake.Request) (*CalculationResult, error) {
	if req.RatesOnly {
		return nil, ErrRatesOnlyRequest
	}

	rates, err := s.Rates(ctx, req.ValuationDate)
	if err != nil {
		s.logger.Warn("Failed to fetch rates",
			zap.Int64("user_id", user.ID),
			zap.Time("valuation_date", req.ValuationDate),
			zap.Error(err),
		)
		return nil, err
	}

	breakdown, err := s.engine.Compute(tariff.Input{
		Vehicle:    req.Vehicle,
		Cost:       req.Cost,
		Additional: req.Additional,
	}, rates)
	if err != nil {
		return nil, fmt.Errorf("failed to compute tariff: %w", err)
	}

	result := &CalculationResult{TraceID: uuid.New(), Breakdown: breakdown}
	s.record(ctx, user, result, req.ValuationDate)

	s.logger.Info("Calculation completed",
		zap.String("trace_id", result.TraceID.String()),
		zap.Int64("user_id", user.ID),
		zap.String("vehicle_type", string(breakdown.Category)),
		zap.Float64("total_payments", breakdown.TotalPayments),
	)

	return result, nil
}

func (s *CalculationService) record(ctx context.Context, user User, result *CalculationResult, valuationDate time.Time) {
	row := toCalculationModel(user, result, valuationDate, s.now().UTC())

	mirrored := *row
	_ = s.mirror.Create(ctx, &mirrored)

	if s.store == nil {
		return
	}

	s.wg.Add(1)
	go func(row models.Calculation) {
		defer s.wg.Done()
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout)
		defer cancel()
		if err := s.store.Create(wctx, &row); err != nil {
			s.logger.Warn("Failed to persist calculation",
				zap.String("trace_id", row.TraceID.String()),
				zap.Int64("user_id", row.UserID),
				zap.Error(err),
			)
		}
	}(*row)
}

// Wait blocks until background writes finish or ctx is done.
func (s *CalculationService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// History returns the user's most recent calculations, newest first.
// Mirror rows not yet in the store are merged in; the mirror answers alone
// when the store fails.
func (s *CalculationService) History(ctx context.Context, userID int64, limit int) ([]*models.Calculation, error) {
	if limit <= 0 {
		limit = 5
	}
	recent, err := s.mirror.ListRecentByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if s.store == nil {
		return recent, nil
	}
	rows, err := s.store.ListRecentByUser(ctx, userID, limit)
	if err != nil {
		s.logger.Warn("Failed to read history, using in-memory mirror", zap.Int64("user_id", userID), zap.Error(err))
		return recent, nil
	}
	return mergeRecent(rows, recent, limit), nil
}

// mergeRecent combines stored rows with mirror rows whose background write
// may still be in flight, newest first and without duplicates.
func mergeRecent(stored, mirrored []*models.Calculation, limit int) []*models.Calculation {
	seen := make(map[uuid.UUID]struct{}, len(stored))
	out := make([]*models.Calculation, 0, len(stored)+len(mirrored))
	for _, c := range stored {
		seen[c.TraceID] = struct{}{}
		out = append(out, c)
	}
	for _, c := range mirrored {
		if _, ok := seen[c.TraceID]; !ok {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b *models.Calculation) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *CalculationService) Stats(ctx context.Context) (*models.CalculationStats, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	q := models.StatsQuery{
		RecentSince: now.Add(-statsRecentWindow),
		DaysSince:   today.AddDate(0, 0, -(statsDays - 1)),
		TopTypes:    statsTopTypes,
	}
	if s.store != nil {
		stats, err := s.store.Stats(ctx, q)
		if err == nil {
			return stats, nil
		}
		s.logger.Warn("Failed to read stats, using in-memory mirror", zap.Error(err))
	}
	return s.mirror.Stats(ctx, q)
}

var exportHeader = []string{
	"id", "trace_id", "user_id", "username", "vehicle_type", "cost", "currency", "additional",
	"additional_currency", "total_uah", "duty", "excise", "vat", "pension", "total_customs",
	"total_payments", "year", "engine_volume", "battery_kwh", "usd_rate", "eur_rate",
	"valuation_date", "created_at",
}

// Export writes every stored calculation as CSV.
func (s *CalculationService) Export(ctx context.Context, w io.Writer) (int, error) {
	var rows []*models.Calculation
	var err error
	if s.store != nil {
		rows, err = s.store.ListAll(ctx)
		if err != nil {
			s.logger.Warn("Failed to read calculations for export, using in-memory mirror", zap.Error(err))
		}
	}
	if s.store == nil || err != nil {
		if rows, err = s.mirror.ListAll(ctx); err != nil {
			return 0, err
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return 0, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, c := range rows {
		if err := cw.Write(exportRow(c)); err != nil {
			return 0, fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush csv: %w", err)
	}
	return len(rows), nil
}

func exportRow(c *models.Calculation) []string {
	money := func(v float64) string { return decimal.NewFromFloat(v).StringFixed(2) }
	rate := func(v float64) string { return decimal.NewFromFloat(v).StringFixed(4) }
	optFloat := func(v *float64) string {
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(*v, 'f', -1, 64)
	}
	year := ""
	if c.Year != nil {
		year = strconv.Itoa(*c.Year)
	}
	username := ""
	if c.Username != nil {
		username = *c.Username
	}
	return []string{
		strconv.FormatInt(c.ID, 10), c.TraceID.String(), strconv.FormatInt(c.UserID, 10), username,
		c.VehicleType, money(c.Cost), c.Currency, money(c.Additional), c.AdditionalCurrency,
		money(c.TotalUAH), money(c.Duty), money(c.Excise), money(c.VAT), money(c.Pension),
		money(c.TotalCustoms), money(c.TotalPayments), year, optFloat(c.EngineVolume),
		optFloat(c.BatteryKWh), rate(c.USDRate), rate(c.EURRate),
		c.ValuationDate.Format("2006-01-02"), c.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toCalculationModel(user User, result *CalculationResult, valuationDate, createdAt time.Time) *models.Calculation {
	b := result.Breakdown
	return &models.Calculation{
		TraceID:            result.TraceID,
		UserID:             user.ID,
		Username:           optionalString(sanitizeUTF8(user.Username)),
		VehicleType:        string(b.Category),
		Cost:               b.Cost.Amount,
		Currency:           string(b.Cost.Currency),
		Additional:         b.Additional.Amount,
		AdditionalCurrency: string(b.Additional.Currency),
		TotalUAH:           b.TotalLocal,
		Duty:               b.Duty,
		Excise:             b.ExciseLocal,
		VAT:                b.VAT,
		Pension:            b.Pension,
		TotalPayments:      b.TotalPayments,
		CreatedAt:          createdAt,
		Year:               b.Year,
		EngineVolume:       b.EngineCC,
		BatteryKWh:         b.BatteryKWh,
		USDRate:            b.Rates.USD,
		EURRate:            b.Rates.EUR,
		TotalCustoms:       b.TotalCustoms,
		ValuationDate:      valuationDate,
	}
}
