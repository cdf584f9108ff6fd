package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"customs-calc/internal/models"

	"github.com/Masterminds/squirrel"
	"go.uber.org/zap"
)

// Timestamps are stored as fixed-width UTC text so that string comparison
// and substr(created_at, 1, 10) behave like time ordering and date().
const (
	sqliteTimeLayout = "2006-01-02 15:04:05.000"
	sqliteDateLayout = "2006-01-02"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS calculations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	trace_id TEXT NOT NULL,
	user_id INTEGER NOT NULL,
	username TEXT,
	vehicle_type TEXT NOT NULL,
	cost REAL NOT NULL,
	currency TEXT NOT NULL,
	additional REAL NOT NULL DEFAULT 0,
	additional_currency TEXT NOT NULL DEFAULT 'USD',
	total_uah REAL NOT NULL,
	duty REAL NOT NULL,
	excise REAL NOT NULL,
	vat REAL NOT NULL,
	pension REAL NOT NULL,
	total_payments REAL NOT NULL,
	created_at TEXT NOT NULL,
	year INTEGER,
	engine_volume REAL,
	battery_kwh REAL,
	usd_rate REAL NOT NULL,
	eur_rate REAL NOT NULL,
	total_customs REAL NOT NULL,
	valuation_date TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_calculations_user_created ON calculations (user_id, created_at DESC);
`

// SQLiteCalculationRepository stores calculations in a SQLite file.
type SQLiteCalculationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLiteCalculationRepository(db *sql.DB, logger *zap.Logger) *SQLiteCalculationRepository {
	return &SQLiteCalculationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *SQLiteCalculationRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (r *SQLiteCalculationRepository) Create(ctx context.Context, c *models.Calculation) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := squirrel.Insert("calculations").
		Columns(calculationColumns...).
		Values(
			c.TraceID.String(), c.UserID, c.Username, c.VehicleType, c.Cost, c.Currency, c.Additional,
			c.AdditionalCurrency, c.TotalUAH, c.Duty, c.Excise, c.VAT, c.Pension, c.TotalPayments,
			c.CreatedAt.UTC().Format(sqliteTimeLayout), c.Year, c.EngineVolume, c.BatteryKWh, c.USDRate, c.EURRate,
			c.TotalCustoms, c.ValuationDate.Format(sqliteDateLayout),
		).
		PlaceholderFormat(squirrel.Question)

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *SQLiteCalculationRepository) ListRecentByUser(ctx context.Context, userID int64, limit int) ([]*models.Calculation, error) {
	query := squirrel.Select(append([]string{"id"}, calculationColumns...)...).
		From("calculations").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit))

	return r.list(ctx, query)
}

func (r *SQLiteCalculationRepository) ListAll(ctx context.Context) ([]*models.Calculation, error) {
	query := squirrel.Select(append([]string{"id"}, calculationColumns...)...).
		From("calculations").
		OrderBy("id ASC")

	return r.list(ctx, query)
}

func (r *SQLiteCalculationRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]*models.Calculation, error) {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var calculations []*models.Calculation
	for rows.Next() {
		var c models.Calculation
		var traceID, created, valued string
		if err := rows.Scan(
			&c.ID, &traceID, &c.UserID, &c.Username, &c.VehicleType, &c.Cost, &c.Currency, &c.Additional,
			&c.AdditionalCurrency, &c.TotalUAH, &c.Duty, &c.Excise, &c.VAT, &c.Pension, &c.TotalPayments,
			&created, &c.Year, &c.EngineVolume, &c.BatteryKWh, &c.USDRate, &c.EURRate,
			&c.TotalCustoms, &valued,
		); err != nil {
			return nil, err
		}
		if err := c.TraceID.Scan(traceID); err != nil {
			return nil, fmt.Errorf("failed to parse trace id of calculation %d: %w", c.ID, err)
		}
		if c.CreatedAt, err = time.Parse(sqliteTimeLayout, created); err != nil {
			return nil, fmt.Errorf("failed to parse created_at of calculation %d: %w", c.ID, err)
		}
		if c.ValuationDate, err = time.Parse(sqliteDateLayout, valued); err != nil {
			return nil, fmt.Errorf("failed to parse valuation_date of calculation %d: %w", c.ID, err)
		}
		calculations = append(calculations, &c)
	}

	return calculations, rows.Err()
}

func (r *SQLiteCalculationRepository) Stats(ctx context.Context, q models.StatsQuery) (*models.CalculationStats, error) {
	stats := &models.CalculationStats{}

	totals := squirrel.Select("COUNT(*)", "COUNT(DISTINCT user_id)").
		Column(squirrel.Expr("COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0)",
			q.RecentSince.UTC().Format(sqliteTimeLayout))).
		From("calculations")
	sqlStr, args, err := totals.ToSql()
	if err != nil {
		return nil, err
	}
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&stats.Total, &stats.UniqueUsers, &stats.Recent); err != nil {
		return nil, fmt.Errorf("failed to count calculations: %w", err)
	}

	byType := squirrel.Select("vehicle_type", "COUNT(*) AS cnt").
		From("calculations").
		GroupBy("vehicle_type").
		OrderBy("cnt DESC", "vehicle_type ASC")
	if q.TopTypes > 0 {
		byType = byType.Limit(uint64(q.TopTypes))
	}
	if err := r.groupCounts(ctx, byType, func(key string, n int) {
		stats.ByVehicleType = append(stats.ByVehicleType, models.VehicleTypeCount{VehicleType: key, Count: n})
	}); err != nil {
		return nil, fmt.Errorf("failed to group by vehicle type: %w", err)
	}

	byDay := squirrel.Select("substr(created_at, 1, 10) AS day", "COUNT(*)").
		From("calculations").
		Where(squirrel.GtOrEq{"created_at": q.DaysSince.UTC().Format(sqliteTimeLayout)}).
		GroupBy("day").
		OrderBy("day DESC")
	if err := r.groupCounts(ctx, byDay, func(key string, n int) {
		stats.ByDay = append(stats.ByDay, models.DayCount{Day: key, Count: n})
	}); err != nil {
		return nil, fmt.Errorf("failed to group by day: %w", err)
	}

	return stats, nil
}

func (r *SQLiteCalculationRepository) groupCounts(ctx context.Context, query squirrel.SelectBuilder, add func(string, int)) error {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return err
	}
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			key string
			n   int
		)
		if err := rows.Scan(&key, &n); err != nil {
			return err
		}
		add(key, n)
	}
	return rows.Err()
}
