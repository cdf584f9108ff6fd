package intake

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the DD.MM.YYYY format users type custom dates in.
const DateLayout = "02.01.2006"

// MaxAmount bounds every cost, engine volume and battery capacity.
const MaxAmount = 1e12

// ParseAmount accepts "15000", "15 000" and "15000,50".
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, ErrNotANumber
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrNotANumber
	}
	return v, nil
}

func parseNonNegative(s string) (float64, error) {
	v, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if v < 0 {
		return 0, ErrNegative
	}
	if v > MaxAmount {
		return 0, ErrTooLarge
	}
	return v, nil
}

func parsePositive(s string) (float64, error) {
	v, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, ErrNotPositive
	}
	if v > MaxAmount {
		return 0, ErrTooLarge
	}
	return v, nil
}

// ParseYear validates a production year against [1900, currentYear+1].
func ParseYear(s string, currentYear int) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, ErrNotAYear
	}
	if year < 1900 || year > currentYear+1 {
		return 0, &YearRangeError{Min: 1900, Max: currentYear + 1}
	}
	return year, nil
}

func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, ErrBadDate
	}
	return d, nil
}

// ResolveDate turns today, tomorrow, yesterday or DD.MM.YYYY into a
// calendar day in now's location.
func ResolveDate(answer string, now time.Time) (time.Time, error) {
	today := startOfDay(now)
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case AnswerToday:
		return today, nil
	case AnswerTomorrow:
		return today.AddDate(0, 0, 1), nil
	case AnswerYesterday:
		return today.AddDate(0, 0, -1), nil
	}
	return ParseDate(answer, now.Location())
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
