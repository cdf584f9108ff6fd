package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"customs-calc/internal/models"
)

const DefaultMirrorCapacity = 1000

// CalculationMirror is a fixed-capacity ring of the most recent calculations.
// It answers the same queries as the SQL repositories, over what it holds.
type CalculationMirror struct {
	mu     sync.RWMutex
	buf    []models.Calculation
	next   int
	size   int
	lastID int64
}

func NewCalculationMirror(capacity int) *CalculationMirror {
	if capacity <= 0 {
		capacity = DefaultMirrorCapacity
	}
	return &CalculationMirror{buf: make([]models.Calculation, capacity)}
}

func (m *CalculationMirror) Capacity() int {
	return len(m.buf)
}

func (m *CalculationMirror) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.size
}

// Create stores a copy of c, overwriting the oldest entry when full.
// A zero ID is replaced with the mirror's own sequence.
func (m *CalculationMirror) Create(_ context.Context, c *models.Calculation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.ID == 0 {
		m.lastID++
		c.ID = m.lastID
	} else if c.ID > m.lastID {
		m.lastID = c.ID
	}

	m.buf[m.next] = *c
	m.next = (m.next + 1) % len(m.buf)
	if m.size < len(m.buf) {
		m.size++
	}
	return nil
}

// snapshot returns held entries oldest first.
func (m *CalculationMirror) snapshot() []models.Calculation {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Calculation, 0, m.size)
	start := (m.next - m.size + len(m.buf)) % len(m.buf)
	for i := 0; i < m.size; i++ {
		out = append(out, m.buf[(start+i)%len(m.buf)])
	}
	return out
}

func (m *CalculationMirror) ListRecentByUser(_ context.Context, userID int64, limit int) ([]*models.Calculation, error) {
	all := m.snapshot()
	var out []*models.Calculation
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		if all[i].UserID == userID {
			c := all[i]
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *CalculationMirror) ListAll(_ context.Context) ([]*models.Calculation, error) {
	all := m.snapshot()
	out := make([]*models.Calculation, len(all))
	for i := range all {
		out[i] = &all[i]
	}
	return out, nil
}

func (m *CalculationMirror) Stats(_ context.Context, q models.StatsQuery) (*models.CalculationStats, error) {
	stats := &models.CalculationStats{}
	users := make(map[int64]struct{})
	byType := make(map[string]int)
	byDay := make(map[string]int)

	for _, c := range m.snapshot() {
		stats.Total++
		users[c.UserID] = struct{}{}
		byType[c.VehicleType]++
		if !c.CreatedAt.Before(q.RecentSince) {
			stats.Recent++
		}
		if !c.CreatedAt.Before(q.DaysSince) {
			byDay[c.CreatedAt.UTC().Format("2006-01-02")]++
		}
	}
	stats.UniqueUsers = len(users)

	for k, n := range byType {
		stats.ByVehicleType = append(stats.ByVehicleType, models.VehicleTypeCount{VehicleType: k, Count: n})
	}
	sort.Slice(stats.ByVehicleType, func(i, j int) bool {
		a, b := stats.ByVehicleType[i], stats.ByVehicleType[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.VehicleType < b.VehicleType
	})
	if q.TopTypes > 0 && len(stats.ByVehicleType) > q.TopTypes {
		stats.ByVehicleType = stats.ByVehicleType[:q.TopTypes]
	}

	for k, n := range byDay {
		stats.ByDay = append(stats.ByDay, models.DayCount{Day: k, Count: n})
	}
	sort.Slice(stats.ByDay, func(i, j int) bool {
		return stats.ByDay[i].Day > stats.ByDay[j].Day
	})

	return stats, nil
}
