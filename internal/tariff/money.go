package tariff

import (
	"fmt"
	"strings"
	"time"
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyUAH Currency = "UAH"
)

// Currencies are the currencies a cost may be declared in.
var Currencies = []Currency{CurrencyUSD, CurrencyEUR, CurrencyUAH}

func ParseCurrency(s string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Currencies {
		if c == known {
			return c, true
		}
	}
	return "", false
}

type Money struct {
	Amount   float64
	Currency Currency
}

// RateSet holds the official UAH rates for one valuation date.
type RateSet struct {
	Date time.Time
	USD  float64
	EUR  float64
}

// Rate returns the UAH value of one unit of c.
func (r RateSet) Rate(c Currency) (float64, error) {
	switch c {
	case CurrencyUSD:
		return r.USD, nil
	case CurrencyEUR:
		return r.EUR, nil
	case CurrencyUAH:
		return 1.0, nil
	default:
		return 0, fmt.Errorf("unsupported currency %q", c)
	}
}

// ToLocal converts m into UAH.
func (r RateSet) ToLocal(m Money) (float64, error) {
	if m.Amount == 0 {
		return 0, nil
	}
	rate, err := r.Rate(m.Currency)
	if err != nil {
		return 0, err
	}
	return m.Amount * rate, nil
}

// FromLocal converts a UAH amount into c.
func (r RateSet) FromLocal(amount float64, c Currency) (float64, error) {
	rate, err := r.Rate(c)
	if err != nil {
		return 0, err
	}
	if rate == 0 {
		return 0, fmt.Errorf("zero rate for %s", c)
	}
	return amount / rate, nil
}
