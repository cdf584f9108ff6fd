package repository

import (
	"context"
	"fmt"
	"time"

	"customs-calc/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var calculationColumns = []string{
	"trace_id", "user_id", "username", "vehicle_type", "cost", "currency", "additional",
	"additional_currency", "total_uah", "duty", "excise", "vat", "pension", "total_payments",
	"created_at", "year", "engine_volume", "battery_kwh", "usd_rate", "eur_rate",
	"total_customs", "valuation_date",
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS calculations (
		id BIGSERIAL PRIMARY KEY,
		trace_id UUID NOT NULL,
		user_id BIGINT NOT NULL,
		username TEXT,
		vehicle_type TEXT NOT NULL,
		cost DOUBLE PRECISION NOT NULL,
		currency TEXT NOT NULL,
		additional DOUBLE PRECISION NOT NULL DEFAULT 0,
		additional_currency TEXT NOT NULL DEFAULT 'USD',
		total_uah DOUBLE PRECISION NOT NULL,
		duty DOUBLE PRECISION NOT NULL,
		excise DOUBLE PRECISION NOT NULL,
		vat DOUBLE PRECISION NOT NULL,
		pension DOUBLE PRECISION NOT NULL,
		total_payments DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		year INTEGER,
		engine_volume DOUBLE PRECISION,
		battery_kwh DOUBLE PRECISION,
		usd_rate DOUBLE PRECISION NOT NULL,
		eur_rate DOUBLE PRECISION NOT NULL,
		total_customs DOUBLE PRECISION NOT NULL,
		valuation_date DATE NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_calculations_user_created ON calculations (user_id, created_at DESC)`,
}

// CalculationRepository stores calculations in PostgreSQL.
type CalculationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewCalculationRepository(db *pgxpool.Pool, logger *zap.Logger) *CalculationRepository {
	return &CalculationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *CalculationRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range postgresSchema {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (r *CalculationRepository) Create(ctx context.Context, c *models.Calculation) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := squirrel.Insert("calculations").
		Columns(calculationColumns...).
		Values(
			c.TraceID, c.UserID, c.Username, c.VehicleType, c.Cost, c.Currency, c.Additional,
			c.AdditionalCurrency, c.TotalUAH, c.Duty, c.Excise, c.VAT, c.Pension, c.TotalPayments,
			c.CreatedAt, c.Year, c.EngineVolume, c.BatteryKWh, c.USDRate, c.EURRate,
			c.TotalCustoms, c.ValuationDate,
		).
		Suffix("RETURNING id").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	return r.db.QueryRow(ctx, sql, args...).Scan(&c.ID)
}

func (r *CalculationRepository) ListRecentByUser(ctx context.Context, userID int64, limit int) ([]*models.Calculation, error) {
	query := squirrel.Select(append([]string{"id"}, calculationColumns...)...).
		From("calculations").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar)

	return r.list(ctx, query)
}

func (r *CalculationRepository) ListAll(ctx context.Context) ([]*models.Calculation, error) {
	query := squirrel.Select(append([]string{"id"}, calculationColumns...)...).
		From("calculations").
		OrderBy("id ASC").
		PlaceholderFormat(squirrel.Dollar)

	return r.list(ctx, query)
}

func (r *CalculationRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]*models.Calculation, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calculations []*models.Calculation
	for rows.Next() {
		var c models.Calculation
		if err := rows.Scan(
			&c.ID, &c.TraceID, &c.UserID, &c.Username, &c.VehicleType, &c.Cost, &c.Currency, &c.Additional,
			&c.AdditionalCurrency, &c.TotalUAH, &c.Duty, &c.Excise, &c.VAT, &c.Pension, &c.TotalPayments,
			&c.CreatedAt, &c.Year, &c.EngineVolume, &c.BatteryKWh, &c.USDRate, &c.EURRate,
			&c.TotalCustoms, &c.ValuationDate,
		); err != nil {
			return nil, err
		}
		calculations = append(calculations, &c)
	}

	return calculations, rows.Err()
}

func (r *CalculationRepository) Stats(ctx context.Context, q models.StatsQuery) (*models.CalculationStats, error) {
	stats := &models.CalculationStats{}

	totals := squirrel.Select("COUNT(*)", "COUNT(DISTINCT user_id)").
		Column(squirrel.Expr("COUNT(*) FILTER (WHERE created_at >= ?)", q.RecentSince)).
		From("calculations").
		PlaceholderFormat(squirrel.Dollar)
	sql, args, err := totals.ToSql()
	if err != nil {
		return nil, err
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&stats.Total, &stats.UniqueUsers, &stats.Recent); err != nil {
		return nil, fmt.Errorf("failed to count calculations: %w", err)
	}

	byType := squirrel.Select("vehicle_type", "COUNT(*) AS cnt").
		From("calculations").
		GroupBy("vehicle_type").
		OrderBy("cnt DESC", "vehicle_type ASC").
		PlaceholderFormat(squirrel.Dollar)
	if q.TopTypes > 0 {
		byType = byType.Limit(uint64(q.TopTypes))
	}
	sql, args, err = byType.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group by vehicle type: %w", err)
	}
	for rows.Next() {
		var vc models.VehicleTypeCount
		if err := rows.Scan(&vc.VehicleType, &vc.Count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.ByVehicleType = append(stats.ByVehicleType, vc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	byDay := squirrel.Select("TO_CHAR(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day", "COUNT(*)").
		From("calculations").
		Where(squirrel.GtOrEq{"created_at": q.DaysSince}).
		GroupBy("day").
		OrderBy("day DESC").
		PlaceholderFormat(squirrel.Dollar)
	sql, args, err = byDay.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err = r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to group by day: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var dc models.DayCount
		if err := rows.Scan(&dc.Day, &dc.Count); err != nil {
			return nil, err
		}
		stats.ByDay = append(stats.ByDay, dc)
	}

	return stats, rows.Err()
}
